package model

import "time"

// MutationOp is the write that produced a change.
type MutationOp string

const (
	OpCreate MutationOp = "create"
	OpUpdate MutationOp = "update"
	OpDelete MutationOp = "delete"
)

// ChangeType is how a change looks from one live query's point of view.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// ChangeEvent is published on every successful mutation.
type ChangeEvent struct {
	Op         MutationOp `json:"op"`
	TenantID   string     `json:"tenantId"`
	Kind       string     `json:"kind"`
	DocumentID string     `json:"documentId"`
	// Document is the state after the write; nil for deletes.
	Document *Document `json:"document,omitempty"`
	// Previous is the state before the write; nil for creates.
	Previous    *Document `json:"previous,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	ResumeToken string    `json:"resumeToken,omitempty"`
}

// StreamKey identifies the change stream of a tenant's kind.
func StreamKey(tenantID, kind string) string {
	return "changes:" + tenantID + ":" + kind
}
