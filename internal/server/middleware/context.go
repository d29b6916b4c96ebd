package middleware

import "context"

type contextKey string

// ContextKeySubject holds the client id taken from the bearer token.
const ContextKeySubject contextKey = "subject"

// WithSubject returns ctx carrying the authenticated client id.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ContextKeySubject, subject)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeySubject).(string)
	return v, ok && v != ""
}
