package middleware

import "context"

type contextKey string

const (
	ctxUserID   contextKey = "auth.user_id"
	ctxRole     contextKey = "auth.role"
	ctxVendorID contextKey = "auth.vendor_id"
)

// UserIDFromContext returns the authenticated user id, empty when anonymous.
func UserIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(ctxUserID).(string)
	return value
}

// RoleFromContext returns the actor role from the access token.
func RoleFromContext(ctx context.Context) string {
	value, _ := ctx.Value(ctxRole).(string)
	return value
}

// VendorIDFromContext returns the vendor id for vendor-role tokens.
func VendorIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(ctxVendorID).(string)
	return value
}
