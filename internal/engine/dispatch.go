package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
)

// DragEnd applies a drag and issues the remote update. A no-op drag returns a
// nil Pending.
func (c *Coordinator) DragEnd(ctx context.Context, d board.Drag) (*Pending, error) {
	p, err := c.BeginMove(d)
	if err != nil || p == nil {
		return p, err
	}
	c.dispatch(ctx, p)
	return p, nil
}

// AddCard creates a card with an empty description at the end of columnID.
func (c *Coordinator) AddCard(ctx context.Context, columnID, title string) (*Pending, error) {
	p, err := c.BeginCreate(columnID, title, "")
	if err != nil {
		return nil, err
	}
	c.dispatch(ctx, p)
	return p, nil
}

// UpdateCard edits a card's title and description.
func (c *Coordinator) UpdateCard(ctx context.Context, cardID, title, description string) (*Pending, error) {
	p, err := c.BeginUpdate(cardID, title, description)
	if err != nil {
		return nil, err
	}
	c.dispatch(ctx, p)
	return p, nil
}

// DeleteCard removes a card.
func (c *Coordinator) DeleteCard(ctx context.Context, cardID string) (*Pending, error) {
	p, err := c.BeginDelete(cardID)
	if err != nil {
		return nil, err
	}
	c.dispatch(ctx, p)
	return p, nil
}

// Wait blocks until every dispatched remote call has been resolved.
func (c *Coordinator) Wait() {
	c.calls.Wait()
}

// dispatch runs the remote call for p in the background. The call is detached
// from ctx cancellation: once issued it always resolves.
func (c *Coordinator) dispatch(ctx context.Context, p *Pending) {
	ctx = context.WithoutCancel(ctx)

	c.calls.Add(1)
	go func() {
		defer c.calls.Done()

		res := Call(ctx, c.remote, p.Request())
		if err := c.Resolve(p, res); err != nil {
			log.Error().Err(err).Uint64("action_id", p.id).Msg("engine: resolve")
		}
	}()
}

// Call performs req against store and packages the outcome as a Result.
func Call(ctx context.Context, store RemoteStore, req Request) Result {
	switch req.Kind {
	case KindCreate:
		card, err := store.CreateCard(ctx, req.Card)
		return Result{Card: card, Err: err}
	case KindMove, KindUpdate:
		card, err := store.UpdateCard(ctx, req.Card)
		return Result{Card: card, Err: err}
	case KindDelete:
		id, err := store.DeleteCard(ctx, req.Card.ID)
		return Result{DeletedID: id, Err: err}
	default:
		return Result{Err: fmt.Errorf("engine.Call: unknown action %q: %w", req.Kind, domain.ErrInvalidReference)}
	}
}

// Hydrate replaces the board content with the store's cards. Each card lands
// in the column whose title equals its status; cards with an unknown status
// are dropped. It is refused while actions are unresolved.
func (c *Coordinator) Hydrate(ctx context.Context) error {
	if n := c.PendingCount(); n > 0 {
		return fmt.Errorf("engine.Coordinator.Hydrate: %d unresolved actions: %w", n, domain.ErrConflict)
	}

	cards, err := c.remote.ListCardsByStatus(ctx)
	if err != nil {
		return fmt.Errorf("engine.Coordinator.Hydrate: %w", err)
	}

	c.mu.Lock()
	if len(c.pending) > 0 {
		c.mu.Unlock()
		return fmt.Errorf("engine.Coordinator.Hydrate: %d unresolved actions: %w", len(c.pending), domain.ErrConflict)
	}
	dropped := c.board.Load(cards)
	for _, id := range dropped {
		log.Debug().Str("card_id", id).Msg("engine: hydrate dropped card")
	}
	log.Info().Int("cards", c.board.Len()).Int("dropped", len(dropped)).Msg("engine: hydrated")

	c.publish(nil)
	return nil
}
