package board

import (
	"fmt"
	"slices"

	"github.com/gosuda/kanban/internal/domain"
)

// Drag is a move intent reported by the rendering surface.
type Drag struct {
	CardID         string
	SourceColumnID string
	SourceIndex    int
	DestColumnID   string
	DestIndex      int
}

// IsNoop reports whether the card is dropped back where it was picked up.
func (d Drag) IsNoop() bool {
	return d.SourceColumnID == d.DestColumnID && d.SourceIndex == d.DestIndex
}

// Reorder computes the column sequences after applying d. The card is removed
// from source at d.SourceIndex and inserted into dest at d.DestIndex; a
// DestIndex past the end of the post-removal sequence appends.
//
// For a same-column drag pass the same sequence twice: removal happens first,
// so DestIndex refers to the list without the card, and both returned slices
// are the single resulting sequence. Inputs are never modified.
func Reorder(source, dest []string, d Drag) ([]string, []string, error) {
	if d.SourceIndex < 0 || d.SourceIndex >= len(source) || source[d.SourceIndex] != d.CardID {
		return nil, nil, fmt.Errorf("board.Reorder: card %q not at %s[%d]: %w",
			d.CardID, d.SourceColumnID, d.SourceIndex, domain.ErrInvalidReference)
	}
	if d.DestIndex < 0 {
		return nil, nil, fmt.Errorf("board.Reorder: negative destination index %d: %w", d.DestIndex, domain.ErrValidation)
	}

	newSource := slices.Delete(slices.Clone(source), d.SourceIndex, d.SourceIndex+1)

	if d.SourceColumnID == d.DestColumnID {
		out := insertAt(newSource, d.CardID, d.DestIndex)
		return out, out, nil
	}

	return newSource, insertAt(slices.Clone(dest), d.CardID, d.DestIndex), nil
}

// insertAt inserts id at index, appending when index is past the end.
func insertAt(ids []string, id string, index int) []string {
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	return slices.Insert(ids, index, id)
}
