// Package engine applies user actions to a board optimistically and keeps it
// in step with a remote store.
//
// Every action runs in two phases. A Begin call validates the intent, mutates
// the board immediately and returns a *Pending describing the remote call to
// make. Resolve feeds the remote outcome back: success reconciles the board
// with the authoritative copy, failure reverts exactly what the action changed.
// The intent methods (DragEnd, AddCard, UpdateCard, DeleteCard) chain both
// phases around an asynchronous remote call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
)

// ErrAlreadyResolved is returned when Resolve is called for a finished action.
var ErrAlreadyResolved = errors.New("engine: action already resolved") //nolint:gochecknoglobals // sentinel error

// RemoteStore is the card store the coordinator talks to.
// *httpclient.Client and *wsrpc.Client satisfy this interface.
type RemoteStore interface {
	CreateCard(ctx context.Context, card domain.Card) (*domain.Card, error)
	UpdateCard(ctx context.Context, card domain.Card) (*domain.Card, error)
	DeleteCard(ctx context.Context, id string) (string, error)
	ListCardsByStatus(ctx context.Context) ([]domain.Card, error)
}

// Observer receives every board change and every rollback, in order.
// Observers run outside the board lock and may read the coordinator through
// View or Card, but must not issue intents synchronously. A delivery can run
// on the goroutine of another action that is already delivering.
type Observer interface {
	BoardChanged(view board.View)
	ActionFailed(f Failure)
}

// Policy decides what happens when an intent names a card that already has
// an unresolved action.
type Policy int

const (
	// PolicyRejectOverlap refuses the second intent with domain.ErrConflict.
	PolicyRejectOverlap Policy = iota
	// PolicyLastResolvedWins lets both run; whichever resolves last has its
	// commit or rollback applied last.
	PolicyLastResolvedWins
)

func (p Policy) String() string {
	if p == PolicyLastResolvedWins {
		return "last-wins"
	}
	return "reject"
}

// ParsePolicy parses "reject" or "last-wins".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return PolicyRejectOverlap, nil
	case "last-wins":
		return PolicyLastResolvedWins, nil
	default:
		return 0, fmt.Errorf("engine.ParsePolicy: unknown policy %q: %w", s, domain.ErrValidation)
	}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPolicy sets the overlap policy. The default is PolicyRejectOverlap.
func WithPolicy(p Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, o) }
}

// WithIDGenerator replaces the card id generator (uuid v4 by default).
func WithIDGenerator(gen func() string) Option {
	return func(c *Coordinator) { c.newID = gen }
}

// Coordinator is the only mutator of its board.
type Coordinator struct {
	// mu makes each apply, commit and rollback one uninterrupted turn.
	mu sync.Mutex

	board     *board.Board
	remote    RemoteStore
	policy    Policy
	newID     func() string
	observers []Observer

	nextID   uint64
	pending  map[uint64]*Pending
	inflight map[string]int

	// outbox holds deliveries in mutation order. Guarded by mu.
	outbox     []emission
	delivering bool

	calls sync.WaitGroup
}

// New creates a Coordinator that owns b.
func New(b *board.Board, remote RemoteStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		board:    b,
		remote:   remote,
		newID:    uuid.NewString,
		pending:  make(map[uint64]*Pending),
		inflight: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers an observer.
func (c *Coordinator) Subscribe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Policy returns the configured overlap policy.
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// View materializes the current board.
func (c *Coordinator) View() board.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.View()
}

// Card returns the current local copy of a card.
func (c *Coordinator) Card(id string) (domain.Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Card(id)
}

// PendingCount returns the number of actions still in StateApplied.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Check verifies the board invariants.
func (c *Coordinator) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Check()
}

// claim enforces the overlap policy for cardID. Caller holds c.mu.
func (c *Coordinator) claim(cardID string) error {
	if c.policy == PolicyRejectOverlap && c.inflight[cardID] > 0 {
		return fmt.Errorf("card %q has an unresolved action: %w", cardID, domain.ErrConflict)
	}
	return nil
}

// track registers a freshly applied action. Caller holds c.mu.
func (c *Coordinator) track(p *Pending) {
	p.appliedRev = c.board.Revision()
	c.pending[p.id] = p
	c.inflight[p.cardID]++
}

// untrack forgets a resolved action. Caller holds c.mu.
func (c *Coordinator) untrack(p *Pending) {
	delete(c.pending, p.id)
	if c.inflight[p.cardID] <= 1 {
		delete(c.inflight, p.cardID)
		return
	}
	c.inflight[p.cardID]--
}

func (c *Coordinator) allocate(kind Kind, card domain.Card) *Pending {
	c.nextID++
	return newPending(c.nextID, kind, card)
}

type emission struct {
	view      board.View
	failure   *Failure
	observers []Observer
}

func (e emission) deliver() {
	for _, o := range e.observers {
		o.BoardChanged(e.view)
		if e.failure != nil {
			o.ActionFailed(*e.failure)
		}
	}
}

// publish queues the current view, and the failure if any, for observers.
// Caller holds c.mu; publish releases it. If no other goroutine is
// delivering, the caller drains the queue with c.mu released around each
// delivery.
func (c *Coordinator) publish(failure *Failure) {
	c.outbox = append(c.outbox, emission{
		view:      c.board.View(),
		failure:   failure,
		observers: slices.Clone(c.observers),
	})
	if c.delivering {
		c.mu.Unlock()
		return
	}

	c.delivering = true
	for len(c.outbox) > 0 {
		next := c.outbox[0]
		c.outbox[0] = emission{}
		c.outbox = c.outbox[1:]

		c.mu.Unlock()
		next.deliver()
		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}
