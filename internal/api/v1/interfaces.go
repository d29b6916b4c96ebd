package v1

import (
	"context"

	"github.com/gosuda/kanban/internal/domain"
)

// CardService abstracts card operations for handler testing.
// *cards.Service satisfies this interface.
type CardService interface {
	Statuses() []string
	List(ctx context.Context) ([]domain.Card, error)
	Get(ctx context.Context, id string) (*domain.Card, error)
	Create(ctx context.Context, c domain.Card) (*domain.Card, error)
	Update(ctx context.Context, c domain.Card) (*domain.Card, error)
	Delete(ctx context.Context, id string) error
}
