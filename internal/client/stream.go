package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/sumire/issuedesk/internal/realtime"
)

// Stream is one websocket connection to the event endpoint.
type Stream struct {
	conn *websocket.Conn
}

// Dial opens the event stream.
func (c *Client) Dial(ctx context.Context) (*Stream, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	origin := u.Scheme + "://" + u.Host

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/ws"
	u.RawQuery = url.Values{"token": {c.token}}.Encode()

	cfg, err := websocket.NewConfig(u.String(), origin)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial event stream: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// Next blocks until the next frame arrives.
func (s *Stream) Next() (realtime.Frame, error) {
	var f realtime.Frame
	if err := websocket.JSON.Receive(s.conn, &f); err != nil {
		return realtime.Frame{}, err
	}
	return f, nil
}

// Close closes the connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}

// Events keeps an event stream open until ctx ends, redialing after failures
// with a delay that doubles up to maxBackoff. Every successful connection
// starts with a hello frame, so consumers can refetch state on reconnect.
func (c *Client) Events(ctx context.Context, maxBackoff time.Duration) <-chan realtime.Frame {
	out := make(chan realtime.Frame)

	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	go func() {
		defer close(out)
		backoff := 500 * time.Millisecond

		for ctx.Err() == nil {
			stream, err := c.Dial(ctx)
			if err != nil {
				slog.Debug("event stream dial failed", "error", err, "retry_in", backoff)
				if !sleep(ctx, backoff) {
					return
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			backoff = 500 * time.Millisecond

			c.pump(ctx, stream, out)
		}
	}()

	return out
}

func (c *Client) pump(ctx context.Context, stream *Stream, out chan<- realtime.Frame) {
	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()
	defer stream.Close()

	for {
		f, err := stream.Next()
		if err != nil {
			if ctx.Err() == nil {
				slog.Debug("event stream closed", "error", err)
			}
			return
		}
		select {
		case out <- f:
		case <-ctx.Done():
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
