package cli_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/cli"
	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/engine"
)

func sampleView() board.View {
	return board.View{Columns: []board.ColumnView{
		{ID: "column-1", Title: "To Do", Cards: []domain.Card{
			{ID: "0b9f6c2e-1111-4a4a-9c9c-000000000001", Title: "Write spec", Status: "To Do"},
			{ID: "c2", Title: "Review", Status: "To Do"},
		}},
		{ID: "column-2", Title: "Done", Cards: []domain.Card{}},
	}}
}

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	out := cli.NewRenderer(&bytes.Buffer{}).Render(sampleView())

	assert.Contains(t, out, "To Do (2)")
	assert.Contains(t, out, "0. Write spec 0b9f6c2e")
	assert.NotContains(t, out, "0b9f6c2e-1111")
	assert.Contains(t, out, "1. Review c2")
	assert.Contains(t, out, "Done (0)")
	assert.Contains(t, out, "empty")

	// Columns sit side by side: both headers share the first content line.
	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[1], "To Do")
	assert.Contains(t, lines[1], "Done")
}

func TestRenderer_Observer(t *testing.T) {
	t.Parallel()

	t.Run("redraws on change", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := cli.NewRenderer(&buf)
		r.BoardChanged(sampleView())
		assert.Contains(t, buf.String(), "Write spec")
	})

	t.Run("quiet skips redraws", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := cli.NewRenderer(&buf, cli.WithQuietBoard())
		r.BoardChanged(sampleView())
		assert.Empty(t, buf.String())
	})

	t.Run("reports failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := cli.NewRenderer(&buf, cli.WithQuietBoard())
		r.ActionFailed(engine.Failure{
			Action: engine.KindMove,
			CardID: "0b9f6c2e-1111-4a4a-9c9c-000000000001",
			Reason: domain.ReasonNetwork,
			Err:    errors.New("connection refused"),
		})
		assert.Contains(t, buf.String(), "! move of 0b9f6c2e rolled back (network): connection refused")
	})
}

func TestShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "c1", cli.ShortID("c1"))
	assert.Equal(t, "12345678", cli.ShortID("12345678"))
	assert.Equal(t, "12345678", cli.ShortID("123456789"))
}
