package engine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/engine"
)

// ---------------------------------------------------------------------------
// Mock RemoteStore
// ---------------------------------------------------------------------------

// mockStore echoes requests back as authoritative copies unless a func field
// overrides the behavior. Every call is recorded.
type mockStore struct {
	createFunc func(ctx context.Context, card domain.Card) (*domain.Card, error)
	updateFunc func(ctx context.Context, card domain.Card) (*domain.Card, error)
	deleteFunc func(ctx context.Context, id string) (string, error)
	listFunc   func(ctx context.Context) ([]domain.Card, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockStore) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockStore) CreateCard(ctx context.Context, card domain.Card) (*domain.Card, error) {
	m.record("create:" + card.ID)
	if m.createFunc != nil {
		return m.createFunc(ctx, card)
	}
	return &card, nil
}

func (m *mockStore) UpdateCard(ctx context.Context, card domain.Card) (*domain.Card, error) {
	m.record("update:" + card.ID)
	if m.updateFunc != nil {
		return m.updateFunc(ctx, card)
	}
	return &card, nil
}

func (m *mockStore) DeleteCard(ctx context.Context, id string) (string, error) {
	m.record("delete:" + id)
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return id, nil
}

func (m *mockStore) ListCardsByStatus(ctx context.Context) ([]domain.Card, error) {
	m.record("list")
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// Recording observer
// ---------------------------------------------------------------------------

type recorder struct {
	mu       sync.Mutex
	views    []board.View
	failures []engine.Failure
}

func (r *recorder) BoardChanged(v board.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) ActionFailed(f engine.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *recorder) Views() []board.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]board.View(nil), r.views...)
}

func (r *recorder) Failures() []engine.Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Failure(nil), r.failures...)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var errRemote = domain.NewRemoteError("update", domain.ReasonRejected, 500, fmt.Errorf("internal error"))

// seededBoard returns the default board with c1,c2 in "To Do" and c3 in
// "In Progress"; "Done" is empty.
func seededBoard(t *testing.T) *board.Board {
	t.Helper()

	b, err := board.New(domain.DefaultColumns())
	require.NoError(t, err)
	require.NoError(t, b.Insert(domain.Card{ID: "c1", Title: "Write spec", Description: "first"}, "column-1", -1))
	require.NoError(t, b.Insert(domain.Card{ID: "c2", Title: "Review spec"}, "column-1", -1))
	require.NoError(t, b.Insert(domain.Card{ID: "c3", Title: "Ship"}, "column-2", -1))
	return b
}

func newCoordinator(t *testing.T, store engine.RemoteStore, opts ...engine.Option) (*engine.Coordinator, *recorder) {
	t.Helper()

	rec := &recorder{}
	opts = append([]engine.Option{engine.WithObserver(rec), engine.WithIDGenerator(sequence("n1", "n2", "n3", "n4"))}, opts...)
	return engine.New(seededBoard(t), store, opts...), rec
}

// sequence returns an id generator yielding ids in order.
func sequence(ids ...string) func() string {
	var (
		mu sync.Mutex
		i  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func cardIDs(t *testing.T, c *engine.Coordinator, columnID string) []string {
	t.Helper()

	col, ok := c.View().Column(columnID)
	require.True(t, ok, "column %s", columnID)
	return col.CardIDs()
}

func mustCard(t *testing.T, c *engine.Coordinator, id string) domain.Card {
	t.Helper()

	card, ok := c.Card(id)
	require.True(t, ok, "card %s", id)
	return card
}

func authoritative(card domain.Card) engine.Result {
	return engine.Result{Card: &card}
}
