package usecase

import (
	"reflect"
	"regexp"
	"strings"

	apperrors "office-dashboard/internal/shared/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	strongPasswordTag = "strongpassword"
	notBlankTag       = "notblank"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	upperRegex   = regexp.MustCompile(`[A-Z]`)
	lowerRegex   = regexp.MustCompile(`[a-z]`)
	numberRegex  = regexp.MustCompile(`[0-9]`)
	specialRegex = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>_\-]`)
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(strongPasswordTag, func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	register := func(ut.Translator) error { return nil }
	_ = validate.RegisterTranslation(strongPasswordTag, translator, register,
		func(ut.Translator, validator.FieldError) string {
			return "password needs upper and lower case letters, a digit and a symbol"
		})
	_ = validate.RegisterTranslation(notBlankTag, translator, register,
		func(ut.Translator, validator.FieldError) string {
			return "this field cannot be blank"
		})
}

func strongPassword(password string) bool {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return false
	}
	return upperRegex.MatchString(password) &&
		lowerRegex.MatchString(password) &&
		numberRegex.MatchString(password) &&
		specialRegex.MatchString(password)
}

// validateRequest runs struct validation on req and converts failures into
// per-field errors keyed by JSON name.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}
	out := apperrors.NewValidationErrors()
	for _, fe := range verrs {
		out.Add(fe.Field(), fe.Translate(translator), nil)
	}
	out.Sort()
	return out.ToAppError()
}
