// Package memory is an in-process card repository for development servers
// and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gosuda/kanban/internal/domain"
)

type CardRepo struct {
	mu    sync.RWMutex
	order []string
	cards map[string]domain.Card
}

func NewCardRepo() *CardRepo {
	return &CardRepo{cards: make(map[string]domain.Card)}
}

func (r *CardRepo) Create(_ context.Context, c *domain.Card) (*domain.Card, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.cards[c.ID]; ok {
		return &existing, false, nil
	}
	r.cards[c.ID] = *c
	r.order = append(r.order, c.ID)

	stored := *c
	return &stored, true, nil
}

func (r *CardRepo) GetByID(_ context.Context, id string) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cards[id]
	if !ok {
		return nil, fmt.Errorf("memory.CardRepo.GetByID: %w", domain.ErrNotFound)
	}
	return &c, nil
}

func (r *CardRepo) List(_ context.Context) ([]*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Card, 0, len(r.order))
	for _, id := range r.order {
		c := r.cards[id]
		out = append(out, &c)
	}
	return out, nil
}

func (r *CardRepo) Update(_ context.Context, c *domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cards[c.ID]; !ok {
		return fmt.Errorf("memory.CardRepo.Update: %w", domain.ErrNotFound)
	}
	r.cards[c.ID] = *c
	return nil
}

func (r *CardRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cards[id]; !ok {
		return fmt.Errorf("memory.CardRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.cards, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return nil
}
