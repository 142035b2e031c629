package gateway

import "context"

type ctxKey string

const (
	ctxRiderIDKey   ctxKey = "rider_id"
	ctxRequestIDKey ctxKey = "request_id"
)

// withRiderID stores the validated token subject. Only the auth middleware
// calls this, which is what keeps the "no ride without a validated token"
// invariant: handlers can only read a rider id the middleware put there.
func withRiderID(ctx context.Context, riderID string) context.Context {
	return context.WithValue(ctx, ctxRiderIDKey, riderID)
}

// RiderID returns the validated rider id, or "" when the request was not
// authenticated.
func RiderID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRiderIDKey).(string); ok {
		return v
	}
	return ""
}

func withRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, rid)
}

// RequestID returns the propagated request id, or "".
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return v
	}
	return ""
}
