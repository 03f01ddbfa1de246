package main

import (
	"context"
	"errors"
)

var ErrNoSession = errors.New("no session stored")

// TokenStore persists the session between runs of the client.
type TokenStore interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context) (Session, error)
	Clear(ctx context.Context) error
	Close() error
}
