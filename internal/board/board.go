// Package board holds the canonical in-memory state of a kanban board: a fixed
// ordered set of columns and the cards they list.
//
// Every exported mutation leaves the board consistent: each card is listed by
// exactly one column and its Status equals that column's title. Board is not
// safe for concurrent use; the engine serializes access to it.
package board

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/gosuda/kanban/internal/domain"
)

// Board is the column and card state of one kanban board.
type Board struct {
	order   []string
	columns map[string]*domain.Column
	cards   map[string]*domain.Card
	retired map[string]struct{}
	rev     uint64
}

// New creates an empty board with the given columns in display order.
func New(specs []domain.ColumnSpec) (*Board, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("board.New: no columns: %w", domain.ErrValidation)
	}

	b := &Board{
		order:   make([]string, 0, len(specs)),
		columns: make(map[string]*domain.Column, len(specs)),
		cards:   make(map[string]*domain.Card),
		retired: make(map[string]struct{}),
	}

	titles := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if domain.IsBlank(s.ID) || domain.IsBlank(s.Title) {
			return nil, fmt.Errorf("board.New: column id and title are required: %w", domain.ErrValidation)
		}
		if _, dup := b.columns[s.ID]; dup {
			return nil, fmt.Errorf("board.New: duplicate column id %q: %w", s.ID, domain.ErrValidation)
		}
		if _, dup := titles[s.Title]; dup {
			return nil, fmt.Errorf("board.New: duplicate column title %q: %w", s.Title, domain.ErrValidation)
		}
		titles[s.Title] = struct{}{}
		b.order = append(b.order, s.ID)
		b.columns[s.ID] = &domain.Column{ID: s.ID, Title: s.Title, CardIDs: []string{}}
	}

	return b, nil
}

// Revision is incremented by every mutation. Callers compare revisions to
// detect whether anything changed the board in between.
func (b *Board) Revision() uint64 {
	return b.rev
}

// Len returns the number of cards on the board.
func (b *Board) Len() int {
	return len(b.cards)
}

// Insert adds card to columnID at index and sets its Status to the column
// title. A negative or past-the-end index appends.
func (b *Board) Insert(card domain.Card, columnID string, index int) error {
	col, ok := b.columns[columnID]
	if !ok {
		return fmt.Errorf("board.Insert: column %q: %w", columnID, domain.ErrInvalidReference)
	}
	if _, exists := b.cards[card.ID]; exists {
		return fmt.Errorf("board.Insert: card %q already on board: %w", card.ID, domain.ErrInvalidReference)
	}
	if _, gone := b.retired[card.ID]; gone {
		return fmt.Errorf("board.Insert: card id %q was retired: %w", card.ID, domain.ErrInvalidReference)
	}

	card.Status = col.Title
	b.cards[card.ID] = &card
	col.CardIDs = insertAt(col.CardIDs, card.ID, index)
	b.rev++
	return nil
}

// Remove deletes the card from the card map and from whichever column lists
// it. It reports whether anything was removed; removing an absent card is a
// no-op.
func (b *Board) Remove(cardID string) bool {
	if _, ok := b.cards[cardID]; !ok {
		return false
	}
	delete(b.cards, cardID)
	if colID, idx, ok := b.Locate(cardID); ok {
		col := b.columns[colID]
		col.CardIDs = slices.Delete(col.CardIDs, idx, idx+1)
	}
	b.rev++
	return true
}

// Relocate moves cardID from fromColumnID[fromIndex] to toColumnID at toIndex
// and sets its Status to the destination title. It fails without changing
// anything when the card is not at fromIndex (a stale drag).
func (b *Board) Relocate(cardID, fromColumnID string, fromIndex int, toColumnID string, toIndex int) error {
	from, ok := b.columns[fromColumnID]
	if !ok {
		return fmt.Errorf("board.Relocate: column %q: %w", fromColumnID, domain.ErrInvalidReference)
	}
	to, ok := b.columns[toColumnID]
	if !ok {
		return fmt.Errorf("board.Relocate: column %q: %w", toColumnID, domain.ErrInvalidReference)
	}
	card, ok := b.cards[cardID]
	if !ok {
		return fmt.Errorf("board.Relocate: card %q: %w", cardID, domain.ErrInvalidReference)
	}

	src, dst, err := Reorder(from.CardIDs, to.CardIDs, Drag{
		CardID:         cardID,
		SourceColumnID: fromColumnID,
		SourceIndex:    fromIndex,
		DestColumnID:   toColumnID,
		DestIndex:      toIndex,
	})
	if err != nil {
		return fmt.Errorf("board.Relocate: %w", err)
	}

	from.CardIDs = src
	to.CardIDs = dst
	card.Status = to.Title
	b.rev++
	return nil
}

// Edit replaces the title and description of a card in place.
func (b *Board) Edit(cardID, title, description string) error {
	card, ok := b.cards[cardID]
	if !ok {
		return fmt.Errorf("board.Edit: card %q: %w", cardID, domain.ErrInvalidReference)
	}
	card.Title = title
	card.Description = description
	b.rev++
	return nil
}

// Reconcile adopts the authoritative copy of a card. Title and description are
// taken verbatim; when Status names a different column the card moves to the
// end of that column.
func (b *Board) Reconcile(authoritative domain.Card) error {
	card, ok := b.cards[authoritative.ID]
	if !ok {
		return fmt.Errorf("board.Reconcile: card %q: %w", authoritative.ID, domain.ErrInvalidReference)
	}
	target, ok := b.ColumnByTitle(authoritative.Status)
	if !ok {
		return fmt.Errorf("board.Reconcile: status %q: %w", authoritative.Status, domain.ErrInvalidReference)
	}

	card.Title = authoritative.Title
	card.Description = authoritative.Description

	if colID, idx, found := b.Locate(card.ID); found && colID != target.ID {
		from := b.columns[colID]
		from.CardIDs = slices.Delete(from.CardIDs, idx, idx+1)
		to := b.columns[target.ID]
		to.CardIDs = append(to.CardIDs, card.ID)
	}
	card.Status = target.Title
	b.rev++
	return nil
}

// Retire marks a card id as permanently used. Retired ids cannot be inserted
// again.
func (b *Board) Retire(cardID string) {
	b.retired[cardID] = struct{}{}
}

// IsRetired reports whether cardID was retired.
func (b *Board) IsRetired(cardID string) bool {
	_, ok := b.retired[cardID]
	return ok
}

// Load replaces every card on the board. Each card goes to the end of the
// column whose title equals its Status. Cards with an unknown status, a blank
// or retired id, or an id already loaded are skipped; their ids are returned.
func (b *Board) Load(cards []domain.Card) []string {
	byTitle := make(map[string]*domain.Column, len(b.columns))
	for _, col := range b.columns {
		col.CardIDs = []string{}
		byTitle[col.Title] = col
	}
	b.cards = make(map[string]*domain.Card, len(cards))

	var dropped []string
	for _, c := range cards {
		col, ok := byTitle[c.Status]
		_, dup := b.cards[c.ID]
		if !ok || dup || domain.IsBlank(c.ID) || b.IsRetired(c.ID) {
			dropped = append(dropped, c.ID)
			continue
		}
		card := c
		b.cards[c.ID] = &card
		col.CardIDs = append(col.CardIDs, c.ID)
	}
	b.rev++
	return dropped
}

// Card returns a copy of the card with the given id.
func (b *Board) Card(cardID string) (domain.Card, bool) {
	c, ok := b.cards[cardID]
	if !ok {
		return domain.Card{}, false
	}
	return *c, true
}

// Column returns a copy of the column with the given id.
func (b *Board) Column(columnID string) (domain.Column, bool) {
	col, ok := b.columns[columnID]
	if !ok {
		return domain.Column{}, false
	}
	return copyColumn(col), true
}

// ColumnByTitle returns a copy of the column whose title is title.
func (b *Board) ColumnByTitle(title string) (domain.Column, bool) {
	for _, id := range b.order {
		if col := b.columns[id]; col.Title == title {
			return copyColumn(col), true
		}
	}
	return domain.Column{}, false
}

// Locate returns the column and index currently listing cardID.
func (b *Board) Locate(cardID string) (string, int, bool) {
	for _, id := range b.order {
		if idx := slices.Index(b.columns[id].CardIDs, cardID); idx >= 0 {
			return id, idx, true
		}
	}
	return "", 0, false
}

// Columns returns copies of all columns in display order.
func (b *Board) Columns() []domain.Column {
	out := make([]domain.Column, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, copyColumn(b.columns[id]))
	}
	return out
}

// Specs returns the column layout the board was created with.
func (b *Board) Specs() []domain.ColumnSpec {
	out := make([]domain.ColumnSpec, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, domain.ColumnSpec{ID: id, Title: b.columns[id].Title})
	}
	return out
}

// Snapshot is a deep copy of board content taken for rollback.
type Snapshot struct {
	columns map[string][]string
	cards   map[string]domain.Card
}

// Snapshot captures the full board content. The result shares no mutable
// state with the board.
func (b *Board) Snapshot() Snapshot {
	s := Snapshot{
		columns: make(map[string][]string, len(b.columns)),
		cards:   make(map[string]domain.Card, len(b.cards)),
	}
	for id, col := range b.columns {
		s.columns[id] = slices.Clone(col.CardIDs)
	}
	for id, c := range b.cards {
		s.cards[id] = *c
	}
	return s
}

// Restore replaces the board content with s. The snapshot stays usable for
// further restores. Retired ids are kept retired.
func (b *Board) Restore(s Snapshot) error {
	if len(s.columns) != len(b.columns) {
		return fmt.Errorf("board.Restore: snapshot has %d columns, board has %d: %w",
			len(s.columns), len(b.columns), domain.ErrInvalidReference)
	}
	for id := range s.columns {
		if _, ok := b.columns[id]; !ok {
			return fmt.Errorf("board.Restore: unknown column %q: %w", id, domain.ErrInvalidReference)
		}
	}

	for id, ids := range s.columns {
		b.columns[id].CardIDs = slices.Clone(ids)
	}
	b.cards = make(map[string]*domain.Card, len(s.cards))
	for id, c := range s.cards {
		card := c
		b.cards[id] = &card
	}
	b.rev++
	return nil
}

// Check verifies the board invariants and returns every violation found.
func (b *Board) Check() error {
	var errs []error
	seen := make(map[string]string, len(b.cards))

	for _, colID := range b.order {
		col := b.columns[colID]
		for _, id := range col.CardIDs {
			if other, dup := seen[id]; dup {
				errs = append(errs, fmt.Errorf("card %q listed by %q and %q", id, other, colID))
				continue
			}
			seen[id] = colID
			card, ok := b.cards[id]
			if !ok {
				errs = append(errs, fmt.Errorf("column %q lists missing card %q", colID, id))
				continue
			}
			if card.Status != col.Title {
				errs = append(errs, fmt.Errorf("card %q has status %q but is in %q", id, card.Status, col.Title))
			}
		}
	}
	for _, id := range slices.Sorted(maps.Keys(b.cards)) {
		if _, ok := seen[id]; !ok {
			errs = append(errs, fmt.Errorf("card %q is not listed by any column", id))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("board.Check: %w", errors.Join(errs...))
	}
	return nil
}

func copyColumn(col *domain.Column) domain.Column {
	return domain.Column{ID: col.ID, Title: col.Title, CardIDs: slices.Clone(col.CardIDs)}
}
