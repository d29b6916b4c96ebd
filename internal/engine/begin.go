package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
)

// BeginMove applies a drag. It returns a nil Pending and no error when the
// card is dropped where it was picked up; nothing changes in that case and no
// remote call is needed.
func (c *Coordinator) BeginMove(d board.Drag) (*Pending, error) {
	if d.IsNoop() {
		log.Debug().Str("card_id", d.CardID).Msg("engine: no-op drag discarded")
		return nil, nil
	}

	c.mu.Lock()
	prev, ok := c.board.Card(d.CardID)
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginMove: card %q: %w", d.CardID, domain.ErrInvalidReference)
	}
	if err := c.claim(d.CardID); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginMove: %w", err)
	}

	snapshot := c.board.Snapshot()
	if err := c.board.Relocate(d.CardID, d.SourceColumnID, d.SourceIndex, d.DestColumnID, d.DestIndex); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginMove: %w", err)
	}

	moved, _ := c.board.Card(d.CardID)
	p := c.allocate(KindMove, moved)
	p.snapshot = snapshot
	p.origin = position{columnID: d.SourceColumnID, index: d.SourceIndex}
	p.prev = prev
	c.track(p)
	logApplied(p)

	c.publish(nil)
	return p, nil
}

// BeginCreate appends a new card with a freshly generated id to columnID.
// A blank title is refused before anything changes.
func (c *Coordinator) BeginCreate(columnID, title, description string) (*Pending, error) {
	if domain.IsBlank(title) {
		return nil, fmt.Errorf("engine.Coordinator.BeginCreate: card title cannot be empty: %w", domain.ErrValidation)
	}

	c.mu.Lock()
	if _, ok := c.board.Column(columnID); !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginCreate: column %q: %w", columnID, domain.ErrInvalidReference)
	}

	card := domain.Card{ID: c.newID(), Title: title, Description: description}
	if err := c.board.Insert(card, columnID, -1); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginCreate: %w", err)
	}

	created, _ := c.board.Card(card.ID)
	p := c.allocate(KindCreate, created)
	c.track(p)
	logApplied(p)

	c.publish(nil)
	return p, nil
}

// BeginUpdate replaces a card's title and description in place. The request
// re-sends the card's current status because the store expects every field.
func (c *Coordinator) BeginUpdate(cardID, title, description string) (*Pending, error) {
	if domain.IsBlank(title) {
		return nil, fmt.Errorf("engine.Coordinator.BeginUpdate: card title cannot be empty: %w", domain.ErrValidation)
	}

	c.mu.Lock()
	prev, ok := c.board.Card(cardID)
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginUpdate: card %q: %w", cardID, domain.ErrInvalidReference)
	}
	if err := c.claim(cardID); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginUpdate: %w", err)
	}

	if err := c.board.Edit(cardID, title, description); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginUpdate: %w", err)
	}

	edited, _ := c.board.Card(cardID)
	p := c.allocate(KindUpdate, edited)
	p.prev = prev
	c.track(p)
	logApplied(p)

	c.publish(nil)
	return p, nil
}

// BeginDelete removes a card from the board.
func (c *Coordinator) BeginDelete(cardID string) (*Pending, error) {
	c.mu.Lock()
	prev, ok := c.board.Card(cardID)
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginDelete: card %q: %w", cardID, domain.ErrInvalidReference)
	}
	if err := c.claim(cardID); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("engine.Coordinator.BeginDelete: %w", err)
	}

	colID, idx, _ := c.board.Locate(cardID)
	c.board.Remove(cardID)

	p := c.allocate(KindDelete, prev)
	p.prev = prev
	p.origin = position{columnID: colID, index: idx}
	c.track(p)
	logApplied(p)

	c.publish(nil)
	return p, nil
}

func logApplied(p *Pending) {
	log.Debug().
		Uint64("action_id", p.id).
		Str("action", string(p.kind)).
		Str("card_id", p.cardID).
		Msg("engine: applied")
}
