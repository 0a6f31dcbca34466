package session

import (
	"context"
	"time"
)

// Stateless accepts every refresh token whose signature is valid. It is used
// when no Redis is configured, so logout cannot revoke outstanding tokens.
type Stateless struct{}

func (Stateless) Save(context.Context, string, string, time.Time) error { return nil }

// Lookup returns an empty user id, which tells the caller to trust the token subject.
func (Stateless) Lookup(context.Context, string) (string, error) { return "", nil }

func (Stateless) Revoke(context.Context, string) error { return nil }

func (Stateless) Ping(context.Context) error { return nil }

func (Stateless) Close() error { return nil }
