package users

import (
	"context"
	"time"
)

// UserRepo persists accounts. Lookups by email expect a normalized address and
// return an error wrapping errors.ErrNotFound when nothing matches.
type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	ListAdmins(ctx context.Context, tenantID string) ([]*User, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}
