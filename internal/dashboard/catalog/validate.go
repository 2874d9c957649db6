package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"office-dashboard/internal/dashboard/domain/model"
	apperrors "office-dashboard/internal/shared/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Mode selects how Validate treats missing fields.
type Mode int

const (
	// ModeCreate enforces required fields and applies defaults.
	ModeCreate Mode = iota
	// ModeUpdate validates only the fields present in the input.
	ModeUpdate
)

var (
	validate   *validator.Validate
	translator ut.Translator

	slugTag   = "slug"
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	// patternTags maps catalog pattern names to validator tags.
	patternTags = map[string]string{
		"slug":     slugTag,
		"hexcolor": "hexcolor",
	}
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	_ = validate.RegisterValidation(slugTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && slugRegex.MatchString(s)
	})
	_ = validate.RegisterTranslation(slugTag, translator,
		func(ut.Translator) error { return nil },
		func(ut.Translator, validator.FieldError) string {
			return "may only contain lowercase letters, digits and dashes"
		})
}

// ValidateVar checks a single value against validator tags, for inputs
// that are not catalog fields such as a public contact form.
func ValidateVar(v interface{}, tag string) error {
	return validate.Var(v, tag)
}

// Validate cleans input for kind. The returned map holds coerced values
// only for declared fields; server-managed keys are dropped. A nil
// *ValidationErrors means the input is acceptable.
func (c *Catalog) Validate(kind *model.EntityKind, input map[string]interface{}, mode Mode) (map[string]interface{}, *apperrors.ValidationErrors) {
	errs := apperrors.NewValidationErrors()
	clean := validateFields(kind.Fields, input, mode, "", errs)
	if model.IsPageKind(kind.Name) {
		checkQuestions(clean["questions"], errs)
	}
	if errs.HasErrors() {
		errs.Sort()
		return nil, errs
	}
	return clean, nil
}

func validateFields(fields []model.FieldSpec, input map[string]interface{}, mode Mode, prefix string, errs *apperrors.ValidationErrors) map[string]interface{} {
	clean := make(map[string]interface{}, len(fields))

	for key := range input {
		if prefix == "" && isReserved(key) {
			continue
		}
		if !declared(fields, key) {
			errs.Add(prefix+key, "unknown field", nil)
		}
	}

	for i := range fields {
		f := &fields[i]
		path := prefix + f.Name
		raw, present := input[f.Name]
		if !present && mode == ModeCreate && f.Default != nil {
			raw, present = f.Default, true
		}
		if !present {
			if mode == ModeCreate && f.Required {
				errs.Add(path, requiredMessage(f), nil)
			}
			continue
		}

		v, msg := coerce(f, raw)
		if msg != "" {
			errs.Add(path, msg, raw)
			continue
		}
		if isBlank(v) {
			if f.Required {
				errs.Add(path, requiredMessage(f), nil)
			} else if mode == ModeUpdate {
				clean[f.Name] = nil
			}
			continue
		}

		if tag := tagFor(f); tag != "" {
			if err := validate.Var(v, tag); err != nil {
				errs.Add(path, translate(f, err), raw)
				continue
			}
		}

		if f.Type == model.FieldObjects {
			items := v.([]interface{})
			out := make([]interface{}, 0, len(items))
			for n, item := range items {
				out = append(out, validateFields(f.Items, item.(map[string]interface{}), ModeCreate, fmt.Sprintf("%s[%d].", path, n), errs))
			}
			v = out
		}
		clean[f.Name] = v
	}
	return clean
}

// checkQuestions enforces what the questionnaire needs to resolve answers:
// ids unique within the page and at least one option per choice question.
func checkQuestions(v interface{}, errs *apperrors.ValidationErrors) {
	items, _ := v.([]interface{})
	seen := make(map[string]bool, len(items))
	for n, item := range items {
		q, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		path := fmt.Sprintf("questions[%d].", n)
		if id, _ := q["id"].(string); id != "" {
			if seen[id] {
				errs.Add(path+"id", "Id must be unique within the page", id)
			}
			seen[id] = true
		}
		if q["type"] == model.QuestionChoice {
			if opts, _ := q["options"].([]interface{}); len(opts) == 0 {
				errs.Add(path+"options", "Options are required for choice questions", nil)
			}
		}
	}
}

func declared(fields []model.FieldSpec, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func label(f *model.FieldSpec) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

func requiredMessage(f *model.FieldSpec) string {
	msg, err := translator.T("required", label(f))
	if err != nil {
		return label(f) + " is required"
	}
	return msg
}

// translate renders the first validator error with the field label, the
// way the form shows it next to the input.
func translate(f *model.FieldSpec, err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return label(f) + " is invalid"
	}
	return label(f) + " " + strings.TrimSpace(verrs[0].Translate(translator))
}

func tagFor(f *model.FieldSpec) string {
	var parts []string
	switch f.Type {
	case model.FieldEmail:
		parts = append(parts, "email")
	case model.FieldURL:
		parts = append(parts, "url")
	case model.FieldEnum:
		opts := make([]string, len(f.Options))
		for i, o := range f.Options {
			if strings.ContainsAny(o, " '") {
				o = "'" + strings.ReplaceAll(o, "'", "") + "'"
			}
			opts[i] = o
		}
		parts = append(parts, "oneof="+strings.Join(opts, " "))
	case model.FieldNumber, model.FieldInteger:
		if f.Min != nil {
			parts = append(parts, "gte="+strconv.FormatFloat(*f.Min, 'f', -1, 64))
		}
		if f.Max != nil {
			parts = append(parts, "lte="+strconv.FormatFloat(*f.Max, 'f', -1, 64))
		}
		return strings.Join(parts, ",")
	case model.FieldList, model.FieldObjects, model.FieldMap, model.FieldBool, model.FieldDate:
		return ""
	}
	if f.MaxLength > 0 {
		parts = append(parts, "max="+strconv.Itoa(f.MaxLength))
	}
	if tag := patternTags[f.Pattern]; tag != "" {
		parts = append(parts, tag)
	}
	return strings.Join(parts, ",")
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

// coerce converts a form or JSON value to the field's storage type. The
// second result is a user-facing message when the value cannot be used.
func coerce(f *model.FieldSpec, raw interface{}) (interface{}, string) {
	if raw == nil {
		return nil, ""
	}
	name := label(f)
	switch f.Type {
	case model.FieldString, model.FieldText, model.FieldHTML, model.FieldEmail,
		model.FieldURL, model.FieldRef, model.FieldEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, name + " must be text"
		}
		return strings.TrimSpace(s), ""

	case model.FieldNumber:
		n, ok := toFloat(raw)
		if !ok {
			return nil, name + " must be a number"
		}
		if s, isStr := raw.(string); isStr && strings.TrimSpace(s) == "" {
			return nil, ""
		}
		return n, ""

	case model.FieldInteger:
		if s, isStr := raw.(string); isStr && strings.TrimSpace(s) == "" {
			return nil, ""
		}
		n, ok := toFloat(raw)
		if !ok || n != math.Trunc(n) || n < minInt64 || n >= maxInt64 {
			return nil, name + " must be a whole number"
		}
		return int64(n), ""

	case model.FieldBool:
		switch t := raw.(type) {
		case bool:
			return t, ""
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "on", "yes", "1":
				return true, ""
			case "false", "off", "no", "0":
				return false, ""
			case "":
				return nil, ""
			}
		}
		return nil, name + " must be true or false"

	case model.FieldDate:
		switch t := raw.(type) {
		case time.Time:
			return t.UTC(), ""
		case string:
			if strings.TrimSpace(t) == "" {
				return nil, ""
			}
			if d, ok := model.ParseDate(t); ok {
				return d, ""
			}
		}
		return nil, name + " must be a date (YYYY-MM-DD or RFC3339)"

	case model.FieldList:
		var items []interface{}
		switch t := raw.(type) {
		case string:
			for _, part := range strings.Split(t, ",") {
				items = append(items, part)
			}
		case []string:
			for _, s := range t {
				items = append(items, s)
			}
		case []interface{}:
			items = t
		default:
			return nil, name + " must be a list"
		}
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, name + " must be a list of text values"
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, ""

	case model.FieldObjects:
		items, ok := raw.([]interface{})
		if !ok {
			return nil, name + " must be a list of objects"
		}
		for _, item := range items {
			if _, ok := item.(map[string]interface{}); !ok {
				return nil, name + " must be a list of objects"
			}
		}
		return items, ""

	case model.FieldMap:
		out := make(map[string]interface{})
		switch t := raw.(type) {
		case map[string]string:
			for k, v := range t {
				out[k] = v
			}
		case map[string]interface{}:
			for k, v := range t {
				switch v.(type) {
				case string, bool, float64, int, int64, json.Number:
					out[k] = fmt.Sprint(v)
				default:
					return nil, name + " values must be text"
				}
			}
		default:
			return nil, name + " must be an object"
		}
		return out, ""
	}
	return raw, ""
}

// Bounds of the int64 range as exactly representable floats.
const (
	minInt64 = -(1 << 63)
	maxInt64 = 1 << 63
)

// toFloat reports false for anything that is not a finite number.
func toFloat(v interface{}) (float64, bool) {
	f, ok := rawFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
