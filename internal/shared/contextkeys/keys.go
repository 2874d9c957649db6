package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "office-dashboard context key " + string(c)
}

const (
	// TenantIDKey carries the organization the request acts on.
	TenantIDKey = contextKey("tenantID")
	// UserIDKey carries the authenticated user id.
	UserIDKey = contextKey("userID")
	// UserEmailKey carries the authenticated user email.
	UserEmailKey = contextKey("userEmail")
	// RoleKey carries the authenticated user role (admin, manager, staff).
	RoleKey = contextKey("role")
	// RequestIDKey carries the X-Request-ID of the current request.
	RequestIDKey = contextKey("requestID")
	// ComponentKey and OperationKey are used for log enrichment.
	ComponentKey = contextKey("component")
	OperationKey = contextKey("operation")
)
