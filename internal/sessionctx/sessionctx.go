package sessionctx

import "context"

// Session carries the authenticated caller of a request. Identity issuance is owned elsewhere;
// RBAC only consumes the user id and, inside a tenant, the tenant id.
type Session struct {
	UserID    string
	Username  string
	TenantID  *string
	IPAddress string
}

type sessionContextKey struct{}

// WithSession returns a derived context carrying session.
func WithSession(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// WithTenant returns a derived context whose session is scoped to tenantID.
// A context without a session is returned unchanged.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	session, ok := FromContext(ctx)
	if !ok {
		return ctx
	}
	session.TenantID = &tenantID
	return WithSession(ctx, session)
}

// FromContext extracts the session. ok is false when no authenticated user is present.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionContextKey{}).(Session)
	if !ok || session.UserID == "" {
		return Session{}, false
	}
	return session, true
}
