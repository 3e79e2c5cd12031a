// Package identity carries the resolved caller of a request.
package identity

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

type Identity struct {
	UserID    uint
	SessionID string
	Name      string
	Email     string
	Role      string
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

func FromUser(u *models.User, sessionID string) Identity {
	return Identity{
		UserID:    u.ID,
		SessionID: sessionID,
		Name:      u.DisplayName(),
		Email:     u.Email,
		Role:      u.Role,
	}
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns false for anonymous requests.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == 0 {
		return Identity{}, false
	}
	return id, true
}
