package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/gosuda/kanban/internal/domain"
)

// ErrClosed is reported for calls made after the connection went away.
var ErrClosed = errors.New("wsrpc: connection closed") //nolint:gochecknoglobals // sentinel error

// Client implements engine.RemoteStore over one websocket connection.
type Client struct {
	conn    *websocket.Conn
	limiter *rate.Limiter
	timeout time.Duration
	cancel  context.CancelFunc

	nextID atomic.Uint64

	mu       sync.Mutex
	calls    map[uint64]chan Response
	closed   chan struct{}
	closeErr error
}

type dialConfig struct {
	token   string
	limiter *rate.Limiter
	timeout time.Duration
	client  *http.Client
}

// Option configures Dial.
type Option func(*dialConfig)

// WithToken sends token as a bearer credential on the handshake.
func WithToken(token string) Option {
	return func(c *dialConfig) { c.token = token }
}

// WithRateLimit paces outgoing calls. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *dialConfig) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithTimeout bounds each call. Expired calls fail as network errors.
func WithTimeout(d time.Duration) Option {
	return func(c *dialConfig) { c.timeout = d }
}

// WithHTTPClient sets the client used for the handshake.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *dialConfig) { c.client = hc }
}

// Dial connects to the RPC endpoint at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	var cfg dialConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	dialOpts := &websocket.DialOptions{HTTPClient: cfg.client}
	if cfg.token != "" {
		dialOpts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + cfg.token}}
	}

	conn, resp, err := websocket.Dial(ctx, url, dialOpts)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, domain.NewRemoteError("dial", domain.ReasonNetwork, status, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:    conn,
		limiter: cfg.limiter,
		timeout: cfg.timeout,
		cancel:  cancel,
		calls:   make(map[uint64]chan Response),
		closed:  make(chan struct{}),
	}
	go c.readLoop(readCtx)

	return c, nil
}

// Close shuts the connection down. In-flight calls fail with a network error.
func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.cancel()
	c.fail(ErrClosed)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("wsrpc.Client.Close: %w", err)
	}
	return nil
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// ListCardsByStatus fetches every card in the store.
func (c *Client) ListCardsByStatus(ctx context.Context) ([]domain.Card, error) {
	resp, err := c.call(ctx, Request{Op: OpList})
	if err != nil {
		return nil, err
	}
	if resp.Cards == nil {
		return nil, domain.NewRemoteError(string(OpList), domain.ReasonMalformed, 0, errors.New("response has no cards"))
	}
	return resp.Cards, nil
}

// CreateCard stores a new card with its client-chosen id.
func (c *Client) CreateCard(ctx context.Context, card domain.Card) (*domain.Card, error) {
	resp, err := c.call(ctx, Request{Op: OpCreate, Card: &card})
	if err != nil {
		return nil, err
	}
	if resp.Card == nil {
		return nil, domain.NewRemoteError(string(OpCreate), domain.ReasonMalformed, 0, errors.New("response has no card"))
	}
	return resp.Card, nil
}

// UpdateCard replaces every field of an existing card.
func (c *Client) UpdateCard(ctx context.Context, card domain.Card) (*domain.Card, error) {
	resp, err := c.call(ctx, Request{Op: OpUpdate, Card: &card})
	if err != nil {
		return nil, err
	}
	if resp.Card == nil {
		return nil, domain.NewRemoteError(string(OpUpdate), domain.ReasonMalformed, 0, errors.New("response has no card"))
	}
	return resp.Card, nil
}

// DeleteCard removes a card and returns the id the store deleted.
func (c *Client) DeleteCard(ctx context.Context, id string) (string, error) {
	resp, err := c.call(ctx, Request{Op: OpDelete, CardID: id})
	if err != nil {
		return "", err
	}
	if resp.DeletedID == "" {
		return "", domain.NewRemoteError(string(OpDelete), domain.ReasonMalformed, 0, errors.New("response has no deleted id"))
	}
	return resp.DeletedID, nil
}

func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	op := string(req.Op)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, domain.NewRemoteError(op, domain.ReasonNetwork, 0, err)
		}
	}

	req.ID = c.nextID.Add(1)
	ch := make(chan Response, 1)

	c.mu.Lock()
	if c.closeErr != nil {
		err := c.closeErr
		c.mu.Unlock()
		return Response{}, domain.NewRemoteError(op, domain.ReasonNetwork, 0, err)
	}
	c.calls[req.ID] = ch
	c.mu.Unlock()

	if err := wsjson.Write(ctx, c.conn, req); err != nil {
		c.forget(req.ID)
		return Response{}, domain.NewRemoteError(op, domain.ReasonNetwork, 0, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return Response{}, domain.NewRemoteError(op, domain.ReasonRejected, 0, resp.Error)
		}
		return resp, nil
	case <-c.closed:
		c.mu.Lock()
		err := c.closeErr
		c.mu.Unlock()
		return Response{}, domain.NewRemoteError(op, closeReason(err), 0, err)
	case <-ctx.Done():
		c.forget(req.ID)
		return Response{}, domain.NewRemoteError(op, domain.ReasonNetwork, 0, ctx.Err())
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.calls, id)
}

// readLoop routes response frames to their callers until the connection
// fails.
func (c *Client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.fail(err)
			return
		}

		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			log.Error().Err(err).Msg("wsrpc: undecodable response frame")
			c.fail(&malformedFrameError{err: err})
			_ = c.conn.Close(websocket.StatusInvalidFramePayloadData, "undecodable frame")
			return
		}

		c.mu.Lock()
		ch, ok := c.calls[resp.ID]
		delete(c.calls, resp.ID)
		c.mu.Unlock()

		if !ok {
			log.Warn().Uint64("request_id", resp.ID).Msg("wsrpc: response for unknown request")
			continue
		}
		ch <- resp
	}
}

// fail records the first terminal error and releases every waiting caller.
func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closeErr != nil {
		return
	}
	c.closeErr = err
	c.calls = make(map[uint64]chan Response)
	close(c.closed)
}

func closeReason(err error) domain.RemoteReason {
	var mf *malformedFrameError
	if errors.As(err, &mf) {
		return domain.ReasonMalformed
	}
	return domain.ReasonNetwork
}

type malformedFrameError struct {
	err error
}

func (e *malformedFrameError) Error() string { return "malformed frame: " + e.err.Error() }
func (e *malformedFrameError) Unwrap() error { return e.err }
