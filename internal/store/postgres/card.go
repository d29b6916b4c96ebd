package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/kanban/internal/domain"
)

type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

// Create inserts c. When a card with the same id already exists the stored
// row is returned unchanged and created is false.
func (r *CardRepo) Create(ctx context.Context, c *domain.Card) (*domain.Card, bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO cards (id, title, description, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		c.ID, c.Title, c.Description, c.Status,
	)
	if err != nil {
		return nil, false, fmt.Errorf("cardRepo.Create: %w", err)
	}
	if tag.RowsAffected() == 1 {
		stored := *c
		return &stored, true, nil
	}

	existing, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return nil, false, fmt.Errorf("cardRepo.Create: %w", err)
	}
	return existing, false, nil
}

func (r *CardRepo) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	var c domain.Card

	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, status FROM cards WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", err)
	}

	return &c, nil
}

// List returns every card in insertion order. Hydration needs the whole
// board, so the result is never truncated.
func (r *CardRepo) List(ctx context.Context) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, status FROM cards ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.List: %w", err)
	}
	defer rows.Close()

	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Card, error) {
		var c domain.Card
		err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Status)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("cardRepo.List: %w", err)
	}

	return cards, nil
}

func (r *CardRepo) Update(ctx context.Context, c *domain.Card) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cards SET title = $1, description = $2, status = $3, updated_at = now()
		 WHERE id = $4`,
		c.Title, c.Description, c.Status, c.ID,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CardRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("cardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
