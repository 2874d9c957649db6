package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"office-dashboard/internal/dashboard/domain/model"
	apperrors "office-dashboard/internal/shared/errors"
)

// PrepareQuery checks a client query against the kind and converts filter
// values to the stored types, so "2024-01-31" compares as a date and "10"
// as a number in every store.
func PrepareQuery(k *model.EntityKind, q model.Query) (model.Query, error) {
	if q.OrderBy != "" && !queryable(k, q.OrderBy) {
		return q, fmt.Errorf("%w: cannot order by %q", apperrors.ErrInvalidInput, q.OrderBy)
	}
	if q.Direction != "" && q.Direction != model.Ascending && q.Direction != model.Descending {
		return q, fmt.Errorf("%w: direction must be asc or desc", apperrors.ErrInvalidInput)
	}
	filters := make([]model.Filter, 0, len(q.Filters))
	for _, f := range q.Filters {
		if !model.ValidOperators[f.Operator] {
			return q, fmt.Errorf("%w: unsupported operator %q", apperrors.ErrInvalidInput, f.Operator)
		}
		if !queryable(k, f.Field) {
			return q, fmt.Errorf("%w: unknown field %q", apperrors.ErrInvalidInput, f.Field)
		}
		if f.Operator == model.OperatorIn {
			values, ok := f.Value.([]interface{})
			if !ok {
				return q, fmt.Errorf("%w: %q expects a list", apperrors.ErrInvalidInput, f.Field)
			}
			coerced := make([]interface{}, len(values))
			for i, v := range values {
				coerced[i] = filterValue(k, f.Field, v)
			}
			f.Value = coerced
		} else {
			f.Value = filterValue(k, f.Field, f.Value)
		}
		filters = append(filters, f)
	}
	q.Filters = filters
	q.Search = strings.TrimSpace(q.Search)
	return q.Normalize(k), nil
}

func queryable(k *model.EntityKind, field string) bool {
	switch field {
	case model.KeyID, model.KeyCreatedAt, model.KeyUpdatedAt:
		return true
	}
	_, ok := k.Field(field)
	return ok
}

func filterValue(k *model.EntityKind, field string, v interface{}) interface{} {
	s, isString := v.(string)
	if !isString {
		if n, ok := v.(int); ok {
			return float64(n)
		}
		return v
	}
	if field == model.KeyCreatedAt || field == model.KeyUpdatedAt {
		if t, ok := model.ParseDate(s); ok {
			return t
		}
		return v
	}
	spec, ok := k.Field(field)
	if !ok {
		return v
	}
	switch spec.Type {
	case model.FieldDate:
		if t, ok := model.ParseDate(s); ok {
			return t
		}
	case model.FieldNumber, model.FieldInteger:
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n
		}
	case model.FieldBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b
		}
	}
	return v
}

// ParseQueryParams builds a query from URL parameters:
// where=field:op:value (repeatable), orderBy, direction, limit, offset, search.
func ParseQueryParams(get func(string) string, where []string) (model.Query, error) {
	q := model.Query{
		OrderBy:   get("orderBy"),
		Direction: get("direction"),
		Search:    get("search"),
	}
	if v := get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("%w: limit must be a number", apperrors.ErrInvalidInput)
		}
		q.Limit = n
	}
	if v := get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%w: offset must be a non-negative number", apperrors.ErrInvalidInput)
		}
		q.Offset = n
	}
	for _, w := range where {
		parts := strings.SplitN(w, ":", 3)
		if len(parts) != 3 {
			return q, fmt.Errorf("%w: where must be field:op:value", apperrors.ErrInvalidInput)
		}
		f := model.Filter{Field: parts[0], Operator: parts[1], Value: parts[2]}
		if f.Operator == model.OperatorIn {
			var values []interface{}
			for _, v := range strings.Split(parts[2], ",") {
				values = append(values, v)
			}
			f.Value = values
		}
		q.Filters = append(q.Filters, f)
	}
	return q, nil
}
