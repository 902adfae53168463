package context

import "context"

type ctxKey string

const (
	requestIDKey  ctxKey = "request_id"
	ownerEmailKey ctxKey = "owner_email"
	businessIDKey ctxKey = "business_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithOwner records the authenticated owner for log correlation.
func WithOwner(ctx context.Context, email, businessID string) context.Context {
	ctx = context.WithValue(ctx, ownerEmailKey, email)
	return context.WithValue(ctx, businessIDKey, businessID)
}

func OwnerFromContext(ctx context.Context) (string, string) {
	return stringValue(ctx, ownerEmailKey), stringValue(ctx, businessIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
