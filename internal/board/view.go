package board

import "github.com/gosuda/kanban/internal/domain"

// View is the materialized board handed to the rendering surface: every
// column in display order with its cards in order.
type View struct {
	Columns []ColumnView `json:"columns"`
}

// ColumnView is one column of a View.
type ColumnView struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Cards []domain.Card `json:"cards"`
}

// View materializes the board. The result shares nothing with the board.
func (b *Board) View() View {
	v := View{Columns: make([]ColumnView, 0, len(b.order))}
	for _, id := range b.order {
		col := b.columns[id]
		cv := ColumnView{ID: col.ID, Title: col.Title, Cards: make([]domain.Card, 0, len(col.CardIDs))}
		for _, cardID := range col.CardIDs {
			if c, ok := b.cards[cardID]; ok {
				cv.Cards = append(cv.Cards, *c)
			}
		}
		v.Columns = append(v.Columns, cv)
	}
	return v
}

// Column returns the column view with the given id.
func (v View) Column(id string) (ColumnView, bool) {
	for _, c := range v.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return ColumnView{}, false
}

// CardIDs lists the ids of the column's cards in order.
func (c ColumnView) CardIDs() []string {
	ids := make([]string, len(c.Cards))
	for i, card := range c.Cards {
		ids[i] = card.ID
	}
	return ids
}
