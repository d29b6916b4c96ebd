package domain

import (
	"context"
	"strings"
)

// Card is a titled unit of work. Status ties it to the column whose title
// equals it.
type Card struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Column is an ordered bucket of card ids. Title doubles as the status value
// of every card it lists.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	CardIDs []string `json:"card_ids"`
}

// ColumnSpec declares a column at board initialization.
type ColumnSpec struct {
	ID    string
	Title string
}

// DefaultColumns is the three-column board used when nothing else is configured.
func DefaultColumns() []ColumnSpec {
	return []ColumnSpec{
		{ID: "column-1", Title: "To Do"},
		{ID: "column-2", Title: "In Progress"},
		{ID: "column-3", Title: "Done"},
	}
}

// IsBlank reports whether s holds no visible characters.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// CardRepository persists cards on the store side.
type CardRepository interface {
	// Create inserts c unless a card with the same id exists. It returns the
	// stored card and whether this call created it.
	Create(ctx context.Context, c *Card) (*Card, bool, error)
	GetByID(ctx context.Context, id string) (*Card, error)
	List(ctx context.Context) ([]*Card, error)
	Update(ctx context.Context, c *Card) error
	Delete(ctx context.Context, id string) error
}
