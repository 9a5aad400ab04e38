package auth

import (
	"context"

	"github.com/duetlabs/duet/internal/model"
)

type contextKey struct{}

// Context identifies the authenticated actor for a request. It is passed
// explicitly into every state-machine call; there is no ambient current user.
type Context struct {
	UserID    int64
	PartnerID *int64
	Role      model.Role
	SessionID int64
}

func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(contextKey{}).(Context)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}
