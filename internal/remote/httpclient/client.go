// Package httpclient talks to the card store over its REST API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/gosuda/kanban/internal/domain"
)

const (
	cardsPath       = "/api/v1/cards"
	maxResponseSize = 1 << 20
	defaultTimeout  = 10 * time.Second
)

// ListOutput is the body of GET /api/v1/cards.
type ListOutput struct {
	Cards []domain.Card `json:"cards"`
}

// DeleteOutput is the body of DELETE /api/v1/cards/{id}.
type DeleteOutput struct {
	ID string `json:"id"`
}

// Client implements engine.RemoteStore over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	token     string
	timeout   time.Duration
	transport http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRateLimit paces outgoing requests. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds each request. Expired requests fail as network errors.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// New creates a Client for the store at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("httpclient.New: invalid base url %q: %w", baseURL, domain.ErrValidation)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	rt := c.transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	if c.token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token, TokenType: "Bearer"}),
			Base:   rt,
		}
	}
	c.http = &http.Client{Transport: rt, Timeout: c.timeout}

	return c, nil
}

// ListCardsByStatus fetches every card in the store.
func (c *Client) ListCardsByStatus(ctx context.Context) ([]domain.Card, error) {
	var out ListOutput
	if err := c.do(ctx, "list", http.MethodGet, cardsPath, nil, &out); err != nil {
		return nil, err
	}
	if out.Cards == nil {
		return nil, domain.NewRemoteError("list", domain.ReasonMalformed, http.StatusOK, errors.New("missing cards field"))
	}
	return out.Cards, nil
}

// CreateCard stores a new card with its client-chosen id.
func (c *Client) CreateCard(ctx context.Context, card domain.Card) (*domain.Card, error) {
	var out domain.Card
	if err := c.do(ctx, "create", http.MethodPost, cardsPath, card, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCard replaces every field of an existing card.
func (c *Client) UpdateCard(ctx context.Context, card domain.Card) (*domain.Card, error) {
	var out domain.Card
	if err := c.do(ctx, "update", http.MethodPut, cardPath(card.ID), card, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCard removes a card and returns the id the store deleted.
func (c *Client) DeleteCard(ctx context.Context, id string) (string, error) {
	var out DeleteOutput
	if err := c.do(ctx, "delete", http.MethodDelete, cardPath(id), nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func cardPath(id string) string {
	return cardsPath + "/" + url.PathEscape(id)
}

// do sends one request and decodes a 2xx body into out. Every failure comes
// back as a *domain.RemoteError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.NewRemoteError(op, domain.ReasonNetwork, 0, err)
		}
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpclient.Client.do: marshal: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("httpclient.Client.do: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewRemoteError(op, domain.ReasonNetwork, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return domain.NewRemoteError(op, domain.ReasonNetwork, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewRemoteError(op, domain.ReasonRejected, resp.StatusCode, problemError(resp.StatusCode, raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return domain.NewRemoteError(op, domain.ReasonMalformed, resp.StatusCode, err)
	}
	return nil
}

// problemError turns an RFC 9457 problem body into an error, wrapping the
// domain sentinel that matches the status code.
func problemError(status int, raw []byte) error {
	msg := http.StatusText(status)
	var problem huma.ErrorModel
	if json.Unmarshal(raw, &problem) == nil {
		switch {
		case problem.Detail != "":
			msg = problem.Detail
		case problem.Title != "":
			msg = problem.Title
		}
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", msg, domain.ErrValidation)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, domain.ErrUnauthorized)
	default:
		return errors.New(msg)
	}
}
