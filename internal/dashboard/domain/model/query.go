package model

const (
	Ascending  = "asc"
	Descending = "desc"

	DefaultLimit = 100
	MaxLimit     = 500
)

// Filter operators accepted in list queries and live subscriptions.
const (
	OperatorEqual              = "=="
	OperatorNotEqual           = "!="
	OperatorLessThan           = "<"
	OperatorLessThanOrEqual    = "<="
	OperatorGreaterThan        = ">"
	OperatorGreaterThanOrEqual = ">="
	OperatorIn                 = "in"
)

// ValidOperators is the set of supported filter operators.
var ValidOperators = map[string]bool{
	OperatorEqual: true, OperatorNotEqual: true, OperatorLessThan: true,
	OperatorLessThanOrEqual: true, OperatorGreaterThan: true,
	OperatorGreaterThanOrEqual: true, OperatorIn: true,
}

// Filter is a single where clause.
type Filter struct {
	Field    string      `json:"field"`
	Operator string      `json:"op"`
	Value    interface{} `json:"value"`
}

// Query is a list request over one kind.
type Query struct {
	Filters   []Filter `json:"filters,omitempty"`
	OrderBy   string   `json:"orderBy,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
	// Search is a case-insensitive substring matched against the kind's search fields.
	Search string `json:"search,omitempty"`
}

// Normalize fills ordering from the kind and clamps the limit.
func (q Query) Normalize(kind *EntityKind) Query {
	if q.OrderBy == "" {
		q.OrderBy, q.Direction = kind.SortSpec()
	}
	if q.Direction != Descending {
		q.Direction = Ascending
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
