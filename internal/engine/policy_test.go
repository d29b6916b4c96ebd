package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/engine"
)

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    engine.Policy
		wantErr bool
	}{
		{"", engine.PolicyRejectOverlap, false},
		{"reject", engine.PolicyRejectOverlap, false},
		{" Last-Wins ", engine.PolicyLastResolvedWins, false},
		{"first-wins", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := engine.ParsePolicy(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.String())
		})
	}
}

func TestRejectOverlap_SecondIntentRefused(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(t, &mockStore{})
	assert.Equal(t, engine.PolicyRejectOverlap, c.Policy())

	first, err := c.BeginUpdate("c1", "Edited", "")
	require.NoError(t, err)
	afterFirst := c.View()

	tests := []struct {
		name  string
		begin func() (*engine.Pending, error)
	}{
		{"move", func() (*engine.Pending, error) {
			return c.BeginMove(board.Drag{CardID: "c1", SourceColumnID: "column-1", SourceIndex: 0, DestColumnID: "column-2", DestIndex: 0})
		}},
		{"update", func() (*engine.Pending, error) { return c.BeginUpdate("c1", "Again", "") }},
		{"delete", func() (*engine.Pending, error) { return c.BeginDelete("c1") }},
	}
	for _, tt := range tests {
		p, err := tt.begin()
		require.ErrorIs(t, err, domain.ErrConflict, tt.name)
		assert.Nil(t, p, tt.name)
	}
	assert.Equal(t, afterFirst, c.View())
	assert.Equal(t, 1, c.PendingCount())

	// Other cards are unaffected.
	other, err := c.BeginUpdate("c2", "Unrelated", "")
	require.NoError(t, err)

	require.NoError(t, c.Resolve(first, authoritative(first.Request().Card)))
	require.NoError(t, c.Resolve(other, authoritative(other.Request().Card)))

	// Once resolved, the card accepts intents again.
	again, err := c.BeginUpdate("c1", "Again", "")
	require.NoError(t, err)
	require.NoError(t, c.Resolve(again, authoritative(again.Request().Card)))
	assert.Equal(t, "Again", mustCard(t, c, "c1").Title)
}

func TestLastResolvedWins(t *testing.T) {
	t.Parallel()

	t.Run("later commit wins", func(t *testing.T) {
		t.Parallel()

		c, _ := newCoordinator(t, &mockStore{}, engine.WithPolicy(engine.PolicyLastResolvedWins))

		first, err := c.BeginUpdate("c1", "First", "")
		require.NoError(t, err)
		second, err := c.BeginUpdate("c1", "Second", "")
		require.NoError(t, err)
		assert.Equal(t, "Second", mustCard(t, c, "c1").Title)

		require.NoError(t, c.Resolve(second, authoritative(second.Request().Card)))
		require.NoError(t, c.Resolve(first, authoritative(first.Request().Card)))

		assert.Equal(t, "First", mustCard(t, c, "c1").Title)
		assert.Equal(t, 0, c.PendingCount())
		require.NoError(t, c.Check())
	})

	t.Run("later rollback wins", func(t *testing.T) {
		t.Parallel()

		c, _ := newCoordinator(t, &mockStore{}, engine.WithPolicy(engine.PolicyLastResolvedWins))

		first, err := c.BeginUpdate("c1", "First", "")
		require.NoError(t, err)
		second, err := c.BeginUpdate("c1", "Second", "")
		require.NoError(t, err)

		require.NoError(t, c.Resolve(second, authoritative(second.Request().Card)))
		require.NoError(t, c.Resolve(first, engine.Result{Err: errRemote}))

		got := mustCard(t, c, "c1")
		assert.Equal(t, "Write spec", got.Title)
		assert.Equal(t, "first", got.Description)
	})

	t.Run("update then move then failed update keeps moved status", func(t *testing.T) {
		t.Parallel()

		c, _ := newCoordinator(t, &mockStore{}, engine.WithPolicy(engine.PolicyLastResolvedWins))

		update, err := c.BeginUpdate("c2", "Edited", "")
		require.NoError(t, err)
		move, err := c.BeginMove(board.Drag{CardID: "c2", SourceColumnID: "column-1", SourceIndex: 1, DestColumnID: "column-2", DestIndex: 0})
		require.NoError(t, err)

		require.NoError(t, c.Resolve(update, engine.Result{Err: errRemote}))
		require.NoError(t, c.Resolve(move, authoritative(move.Request().Card)))

		got := mustCard(t, c, "c2")
		assert.Equal(t, "In Progress", got.Status)
		assert.Equal(t, []string{"c2", "c3"}, cardIDs(t, c, "column-2"))
		require.NoError(t, c.Check())
	})
}
