package actorctx

import (
	"context"
)

type ctxKey string

const keyUserID ctxKey = "user_id"

// WithUserID records the authenticated user on a request context so code
// below the HTTP layer (logging, repositories) can see who is acting.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)

	return v, ok && v != ""
}
