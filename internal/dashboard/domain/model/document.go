package model

import "time"

// Reserved keys are managed by the server and never accepted as input.
const (
	KeyID        = "id"
	KeyTenantID  = "tenantId"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// ReservedKeys lists the server-managed document keys.
var ReservedKeys = []string{KeyID, KeyTenantID, KeyCreatedAt, KeyUpdatedAt, "_id", "kind"}

// Document is one flat entity record.
type Document struct {
	ID        string                 `json:"id" bson:"_id"`
	Kind      string                 `json:"kind" bson:"-"`
	TenantID  string                 `json:"tenantId" bson:"-"`
	Data      map[string]interface{} `json:"data" bson:"data"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a copy whose Data map can be modified independently.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Data = CloneData(d.Data)
	return &c
}

// Value returns a field, resolving the server-managed keys.
func (d *Document) Value(field string) (interface{}, bool) {
	switch field {
	case KeyID:
		return d.ID, true
	case KeyCreatedAt:
		return d.CreatedAt, true
	case KeyUpdatedAt:
		return d.UpdatedAt, true
	}
	v, ok := d.Data[field]
	return v, ok
}

// String returns a string field or "".
func (d *Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

// CloneData deep-copies maps and slices of a document payload.
func CloneData(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return CloneData(t)
	case []interface{}:
		c := make([]interface{}, len(t))
		for i := range t {
			c[i] = cloneValue(t[i])
		}
		return c
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// NoticeLevel is the toast style shown by the client.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is the toast message attached to every mutation result.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// MutationResult is what a create/update/delete hands back to the caller.
type MutationResult struct {
	Document *Document `json:"document,omitempty"`
	Notice   Notice    `json:"notice"`
}
