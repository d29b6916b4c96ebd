package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/gosuda/kanban/internal/auth"
	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/config"
	"github.com/gosuda/kanban/internal/engine"
	"github.com/gosuda/kanban/internal/remote/httpclient"
	"github.com/gosuda/kanban/internal/remote/wsrpc"
)

// selfIssuedTTL is the lifetime of tokens the client signs for itself.
const selfIssuedTTL = time.Hour

// Session is a connected coordinator and the transport behind it.
type Session struct {
	Coordinator *engine.Coordinator
	closeFn     func() error
}

// Open connects to the configured store and builds a coordinator over a
// fresh board. The board is empty until Hydrate.
func Open(ctx context.Context, cfg *config.ClientConfig, opts ...engine.Option) (*Session, error) {
	b, err := board.New(cfg.Columns)
	if err != nil {
		return nil, fmt.Errorf("cli.Open: %w", err)
	}

	token, err := bearerToken(cfg)
	if err != nil {
		return nil, fmt.Errorf("cli.Open: %w", err)
	}

	var (
		remote  engine.RemoteStore
		closeFn = func() error { return nil }
	)
	switch cfg.Transport {
	case config.TransportWS:
		c, err := wsrpc.Dial(ctx, cfg.RPCURL(),
			wsrpc.WithToken(token),
			wsrpc.WithRateLimit(cfg.RPS, cfg.Burst),
			wsrpc.WithTimeout(cfg.RequestTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("cli.Open: %w", err)
		}
		remote, closeFn = c, c.Close
	default:
		c, err := httpclient.New(cfg.RemoteURL,
			httpclient.WithToken(token),
			httpclient.WithRateLimit(cfg.RPS, cfg.Burst),
			httpclient.WithTimeout(cfg.RequestTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("cli.Open: %w", err)
		}
		remote = c
	}

	opts = append([]engine.Option{engine.WithPolicy(cfg.OverlapPolicy)}, opts...)
	return &Session{Coordinator: engine.New(b, remote, opts...), closeFn: closeFn}, nil
}

// Close waits for in-flight remote calls and releases the transport.
func (s *Session) Close() error {
	s.Coordinator.Wait()
	return s.closeFn()
}

func bearerToken(cfg *config.ClientConfig) (string, error) {
	if cfg.Token != "" || cfg.JWTSecret == "" {
		return cfg.Token, nil
	}
	tok, err := auth.IssueToken(cfg.JWTSecret, cfg.ClientID, selfIssuedTTL)
	if err != nil {
		return "", fmt.Errorf("signing client token: %w", err)
	}
	return tok, nil
}
