package services

import (
	"context"
	"time"

	"github.com/garuda-portal/apiserver/types"
)

// UserStore defines persistence operations for users. Implementations
// must enforce email and username uniqueness themselves (a unique
// index/constraint), returning store.ErrDuplicate on conflict.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	SetLastLogin(ctx context.Context, id int64, when time.Time) error
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Close(ctx context.Context) error
}
