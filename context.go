package goRelay

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches the ingress request id to ctx. The relay copies it into
// logs and audit metadata so a tracker delivery can be followed end to end.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
