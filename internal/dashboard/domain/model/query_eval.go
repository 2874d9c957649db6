package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Matches reports whether doc satisfies every filter and the search term.
func (q Query) Matches(doc *Document, searchFields []string) bool {
	for _, f := range q.Filters {
		if !f.Matches(doc) {
			return false
		}
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, field := range searchFields {
		if s, ok := doc.Data[field].(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// Matches evaluates a single filter against doc. A missing field only
// satisfies "!=".
func (f Filter) Matches(doc *Document) bool {
	v, ok := doc.Value(f.Field)
	if !ok || v == nil {
		return f.Operator == OperatorNotEqual && f.Value != nil
	}
	switch f.Operator {
	case OperatorEqual:
		return CompareValues(v, f.Value) == 0
	case OperatorNotEqual:
		return CompareValues(v, f.Value) != 0
	case OperatorLessThan:
		return orderable(v, f.Value) && CompareValues(v, f.Value) < 0
	case OperatorLessThanOrEqual:
		return orderable(v, f.Value) && CompareValues(v, f.Value) <= 0
	case OperatorGreaterThan:
		return orderable(v, f.Value) && CompareValues(v, f.Value) > 0
	case OperatorGreaterThanOrEqual:
		return orderable(v, f.Value) && CompareValues(v, f.Value) >= 0
	case OperatorIn:
		for _, candidate := range toSlice(f.Value) {
			if CompareValues(v, candidate) == 0 {
				return true
			}
		}
	}
	return false
}

// Apply filters, sorts and paginates docs in memory.
func (q Query) Apply(docs []*Document, searchFields []string) []*Document {
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if q.Matches(d, searchFields) {
			out = append(out, d)
		}
	}
	SortDocuments(out, q.OrderBy, q.Direction)
	if q.Offset >= len(out) {
		return []*Document{}
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// SortDocuments orders docs by field; ties are broken by id so pages are stable.
func SortDocuments(docs []*Document, field, direction string) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, _ := docs[i].Value(field)
		b, _ := docs[j].Value(field)
		c := CompareValues(a, b)
		if c == 0 {
			return docs[i].ID < docs[j].ID
		}
		if direction == Descending {
			return c > 0
		}
		return c < 0
	})
}

type valueClass int

const (
	classNil valueClass = iota
	classBool
	classNumber
	classTime
	classString
	classOther
)

func classify(v interface{}) (valueClass, interface{}) {
	switch t := v.(type) {
	case nil:
		return classNil, nil
	case bool:
		return classBool, t
	case int:
		return classNumber, float64(t)
	case int32:
		return classNumber, float64(t)
	case int64:
		return classNumber, float64(t)
	case float32:
		return classNumber, float64(t)
	case float64:
		return classNumber, t
	case time.Time:
		return classTime, t
	case string:
		return classString, t
	default:
		return classOther, fmt.Sprint(t)
	}
}

func orderable(a, b interface{}) bool {
	ca, _ := classify(a)
	cb, _ := classify(b)
	if ca == classTime && cb == classString {
		_, ok := ParseDate(b.(string))
		return ok
	}
	return ca == cb
}

// CompareValues orders two payload values: nil < bool < number < time <
// string < other. A string compared with a time is parsed as a date so
// filters can be written with plain "2024-01-31" values.
func CompareValues(a, b interface{}) int {
	ca, va := classify(a)
	cb, vb := classify(b)
	if ca == classTime && cb == classString {
		if t, ok := ParseDate(vb.(string)); ok {
			cb, vb = classTime, t
		}
	}
	if ca == classString && cb == classTime {
		if t, ok := ParseDate(va.(string)); ok {
			ca, va = classTime, t
		}
	}
	if ca != cb {
		if ca < cb {
			return -1
		}
		return 1
	}
	switch ca {
	case classNil:
		return 0
	case classBool:
		x, y := va.(bool), vb.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case classNumber:
		x, y := va.(float64), vb.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case classTime:
		x, y := va.(time.Time), vb.(time.Time)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	default:
		return strings.Compare(va.(string), vb.(string))
	}
}

func toSlice(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	case nil:
		return nil
	default:
		return []interface{}{t}
	}
}

// DateLayouts are accepted for date fields and date filter values.
var DateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ParseDate parses s with DateLayouts and returns it in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
