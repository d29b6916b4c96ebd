package engine

import (
	"sync"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
)

// Kind names the user action behind a Pending.
type Kind string

const (
	KindMove   Kind = "move"
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// State is the lifecycle position of one action.
type State int

const (
	// StateApplied means the optimistic change is visible and the remote
	// call has not resolved yet.
	StateApplied State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateApplied:
		return "applied"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Request is the remote call an action needs. Card carries every field the
// store expects; for deletes only Card.ID is meaningful.
type Request struct {
	Kind Kind
	Card domain.Card
}

// Result is the outcome of a remote call as fed into Coordinator.Resolve.
// Card is the authoritative copy returned by create and update calls;
// DeletedID is the id echoed by a delete.
type Result struct {
	Card      *domain.Card
	DeletedID string
	Err       error
}

// position is a card's place on the board.
type position struct {
	columnID string
	index    int
}

// Pending is the handle of one in-flight action. It is created by a Begin
// call and finished exactly once by Resolve.
type Pending struct {
	id     uint64
	kind   Kind
	cardID string
	req    Request

	// Rollback data, scoped to this action.
	appliedRev uint64
	snapshot   board.Snapshot
	origin     position
	prev       domain.Card

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newPending(id uint64, kind Kind, card domain.Card) *Pending {
	return &Pending{
		id:     id,
		kind:   kind,
		cardID: card.ID,
		req:    Request{Kind: kind, Card: card},
		state:  StateApplied,
		done:   make(chan struct{}),
	}
}

func (p *Pending) ID() uint64       { return p.id }
func (p *Pending) Kind() Kind       { return p.kind }
func (p *Pending) CardID() string   { return p.cardID }
func (p *Pending) Request() Request { return p.req }

// Done is closed once the action is committed or rolled back.
func (p *Pending) Done() <-chan struct{} { return p.done }

// State returns the current lifecycle state.
func (p *Pending) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the failure that rolled the action back, or nil.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pending) finish(state State, err error) {
	p.mu.Lock()
	p.state = state
	p.err = err
	p.mu.Unlock()
	close(p.done)
}

// Failure reports a rolled-back action to observers.
type Failure struct {
	Action Kind
	CardID string
	Reason domain.RemoteReason
	Err    error
}
