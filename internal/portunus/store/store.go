package store

import (
	"context"
	"errors"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Account is an operator login. PasswordHash is a bcrypt hash.
type Account struct {
	types.Account
	PasswordHash []byte
}

type AccountStore interface {
	CreateAccount(ctx context.Context, a Account) error
	AccountByEmail(ctx context.Context, email string) (Account, error)
	AccountByID(ctx context.Context, id string) (Account, error)
}

type UserStore interface {
	ListUsers(ctx context.Context) ([]types.User, error)
	GetUser(ctx context.Context, id string) (types.User, error)
	PutUser(ctx context.Context, u types.User) error
	DeleteUser(ctx context.Context, id string) error
}

type CardStore interface {
	ListCards(ctx context.Context) ([]types.Card, error)
	GetCard(ctx context.Context, id string) (types.Card, error)
	CardByUID(ctx context.Context, uid string) (types.Card, error)
	PutCard(ctx context.Context, c types.Card) error
	DeleteCard(ctx context.Context, id string) error
}

type DoorStore interface {
	ListDoors(ctx context.Context) ([]types.DoorStatus, error)
	GetDoor(ctx context.Context, id string) (types.DoorStatus, error)
	PutDoor(ctx context.Context, d types.DoorStatus) error
}
