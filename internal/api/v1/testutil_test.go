package v1_test

import (
	"context"

	"github.com/gosuda/kanban/internal/domain"
)

var testStatuses = []string{"To Do", "In Progress", "Done"}

// ---------------------------------------------------------------------------
// Mock CardService
// ---------------------------------------------------------------------------

type mockCardService struct {
	listFunc   func(ctx context.Context) ([]domain.Card, error)
	getFunc    func(ctx context.Context, id string) (*domain.Card, error)
	createFunc func(ctx context.Context, c domain.Card) (*domain.Card, error)
	updateFunc func(ctx context.Context, c domain.Card) (*domain.Card, error)
	deleteFunc func(ctx context.Context, id string) error
}

func (m *mockCardService) Statuses() []string {
	return testStatuses
}

func (m *mockCardService) List(ctx context.Context) ([]domain.Card, error) {
	return m.listFunc(ctx)
}

func (m *mockCardService) Get(ctx context.Context, id string) (*domain.Card, error) {
	return m.getFunc(ctx, id)
}

func (m *mockCardService) Create(ctx context.Context, c domain.Card) (*domain.Card, error) {
	return m.createFunc(ctx, c)
}

func (m *mockCardService) Update(ctx context.Context, c domain.Card) (*domain.Card, error) {
	return m.updateFunc(ctx, c)
}

func (m *mockCardService) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func echoCard(_ context.Context, c domain.Card) (*domain.Card, error) {
	return &c, nil
}
