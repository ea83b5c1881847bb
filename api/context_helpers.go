package api

import "context"

type contextKey string

const OrganizationIDKey contextKey = "organizationID"

// WithOrganizationID returns a copy of ctx carrying the caller's organization.
func WithOrganizationID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, OrganizationIDKey, id)
}

// OrganizationIDFromCtx returns the organization set by OrganizationMiddleware.
func OrganizationIDFromCtx(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(OrganizationIDKey).(int64)
	return id, ok && id > 0
}
