package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/config"
	"github.com/sumire/issuedesk/internal/session"
)

func TestOpenSessions_StatelessWithoutRedis(t *testing.T) {
	store, err := openSessions(context.Background(), config.Config{})
	require.NoError(t, err)
	assert.IsType(t, session.Stateless{}, store)
}

func TestOpenSessions_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := openSessions(ctx, config.Config{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, "jti-1", "user-1", time.Now().Add(time.Hour)))
	userID, err := store.Lookup(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestOpenSessions_RedisUnreachable(t *testing.T) {
	_, err := openSessions(context.Background(), config.Config{RedisURL: "redis://127.0.0.1:1"})
	require.Error(t, err)
}

func TestAuthConfig(t *testing.T) {
	cfg := config.Config{
		JWTSecret:       "secret",
		FrontendURL:     "http://localhost:5173",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		GitHubClientID:  "gh",
	}

	got := authConfig(cfg)
	assert.Equal(t, "secret", got.JWTSecret)
	assert.Equal(t, time.Minute, got.AccessTokenTTL)
	assert.Equal(t, time.Hour, got.RefreshTokenTTL)
	assert.Equal(t, "gh", got.GitHubClientID)
	assert.Equal(t, cfg.FrontendURL, got.FrontendURL)
}
