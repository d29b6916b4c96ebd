package engine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanban/internal/domain"
)

// Resolve finishes p with the outcome of its remote call. A nil Result.Err
// with a valid payload commits the action; anything else rolls it back and
// reports a Failure to observers. The returned error is only about Resolve
// itself (for example ErrAlreadyResolved); the remote failure is available
// from p.Err.
func (c *Coordinator) Resolve(p *Pending, res Result) error {
	c.mu.Lock()
	if c.pending[p.id] != p {
		c.mu.Unlock()
		return fmt.Errorf("engine.Coordinator.Resolve: action %d: %w", p.id, ErrAlreadyResolved)
	}

	err := res.Err
	if err != nil {
		var re *domain.RemoteError
		if !errors.As(err, &re) {
			err = domain.NewRemoteError(string(p.kind), domain.ReasonNetwork, 0, err)
		}
	} else {
		err = c.validate(p, res)
	}

	var failure *Failure
	if err == nil {
		c.commit(p, res)
		c.untrack(p)
		p.finish(StateCommitted, nil)
		log.Debug().
			Uint64("action_id", p.id).
			Str("action", string(p.kind)).
			Str("card_id", p.cardID).
			Msg("engine: committed")
	} else {
		c.rollback(p)
		c.untrack(p)
		p.finish(StateRolledBack, err)
		failure = &Failure{Action: p.kind, CardID: p.cardID, Reason: domain.RemoteReasonOf(err), Err: err}
		log.Warn().
			Err(err).
			Uint64("action_id", p.id).
			Str("action", string(p.kind)).
			Str("card_id", p.cardID).
			Str("reason", string(failure.Reason)).
			Msg("engine: rolled back")
	}

	c.publish(failure)
	return nil
}

// validate rejects success payloads that cannot be reconciled. Caller holds
// c.mu.
func (c *Coordinator) validate(p *Pending, res Result) error {
	malformed := func(format string, args ...any) error {
		return domain.NewRemoteError(string(p.kind), domain.ReasonMalformed, 0, fmt.Errorf(format, args...))
	}

	if p.kind == KindDelete {
		if res.DeletedID != p.cardID {
			return malformed("deleted id %q does not match %q", res.DeletedID, p.cardID)
		}
		return nil
	}

	switch {
	case res.Card == nil:
		return malformed("no card in response")
	case res.Card.ID != p.cardID:
		return malformed("card id %q does not match %q", res.Card.ID, p.cardID)
	case domain.IsBlank(res.Card.Title):
		return malformed("card %q has an empty title", res.Card.ID)
	}
	if _, ok := c.board.ColumnByTitle(res.Card.Status); !ok {
		return malformed("card %q has unknown status %q", res.Card.ID, res.Card.Status)
	}
	return nil
}

// commit merges the authoritative result. Caller holds c.mu.
func (c *Coordinator) commit(p *Pending, res Result) {
	if p.kind == KindDelete {
		c.board.Retire(p.cardID)
		return
	}

	// A later delete may already have taken the card off the board.
	if _, ok := c.board.Card(p.cardID); !ok {
		return
	}
	if err := c.board.Reconcile(*res.Card); err != nil {
		log.Error().Err(err).Str("card_id", p.cardID).Msg("engine: reconcile")
	}
}

// rollback reverts what p applied. Caller holds c.mu.
func (c *Coordinator) rollback(p *Pending) {
	var err error
	switch p.kind {
	case KindMove:
		err = c.rollbackMove(p)
	case KindCreate:
		c.board.Remove(p.cardID)
		c.board.Retire(p.cardID)
	case KindUpdate:
		if _, ok := c.board.Card(p.cardID); ok {
			err = c.board.Edit(p.cardID, p.prev.Title, p.prev.Description)
		}
	case KindDelete:
		err = c.rollbackDelete(p)
	}
	if err != nil {
		log.Error().Err(err).Str("card_id", p.cardID).Str("action", string(p.kind)).Msg("engine: rollback")
	}
}

// rollbackMove restores the pre-move board when nothing else touched it since
// the move was applied. Otherwise only the moved card goes back to its
// original column and index, so other actions' changes survive.
func (c *Coordinator) rollbackMove(p *Pending) error {
	if c.board.Revision() == p.appliedRev {
		return c.board.Restore(p.snapshot)
	}

	colID, idx, ok := c.board.Locate(p.cardID)
	if !ok {
		return nil
	}
	return c.board.Relocate(p.cardID, colID, idx, p.origin.columnID, p.origin.index)
}

// rollbackDelete puts the card back at the end of the column named by its
// last known status. The original index is not reused because other actions
// may have shifted it.
func (c *Coordinator) rollbackDelete(p *Pending) error {
	if _, ok := c.board.Card(p.cardID); ok {
		return nil
	}
	col, ok := c.board.ColumnByTitle(p.prev.Status)
	if !ok {
		return fmt.Errorf("no column for status %q: %w", p.prev.Status, domain.ErrInvalidReference)
	}
	return c.board.Insert(p.prev, col.ID, -1)
}
