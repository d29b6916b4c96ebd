package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/kanban/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. Default board layout.
// ---------------------------------------------------------------------------

func TestDefaultColumns(t *testing.T) {
	t.Parallel()

	cols := domain.DefaultColumns()
	require.Len(t, cols, 3)

	assert.Equal(t, domain.ColumnSpec{ID: "column-1", Title: "To Do"}, cols[0])
	assert.Equal(t, domain.ColumnSpec{ID: "column-2", Title: "In Progress"}, cols[1])
	assert.Equal(t, domain.ColumnSpec{ID: "column-3", Title: "Done"}, cols[2])

	// Callers may mutate the result without affecting later calls.
	cols[0].Title = "changed"
	assert.Equal(t, "To Do", domain.DefaultColumns()[0].Title)
}

func TestIsBlank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"x", false},
		{"  Write spec  ", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, domain.IsBlank(tt.in))
		})
	}
}

// ---------------------------------------------------------------------------
// 2. Sentinel errors: distinctness and wrapping.
// ---------------------------------------------------------------------------

func TestSentinelErrors_Distinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrUnauthorized,
		domain.ErrInvalidReference,
		domain.ErrValidation,
		domain.ErrRemoteFailure,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}

			t.Run(a.Error()+"!="+b.Error(), func(t *testing.T) {
				t.Parallel()

				assert.NotErrorIs(t, a, b, "sentinel errors must be distinct")
			})
		}
	}
}

// ---------------------------------------------------------------------------
// 3. RemoteError.
// ---------------------------------------------------------------------------

func TestRemoteError(t *testing.T) {
	t.Parallel()

	t.Run("matches ErrRemoteFailure for every reason", func(t *testing.T) {
		t.Parallel()

		for _, reason := range []domain.RemoteReason{domain.ReasonNetwork, domain.ReasonRejected, domain.ReasonMalformed} {
			err := domain.NewRemoteError("update", reason, 0, nil)
			require.ErrorIs(t, err, domain.ErrRemoteFailure, "reason %s", reason)
		}
	})

	t.Run("wraps cause", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("connection refused")
		err := fmt.Errorf("outer: %w", domain.NewRemoteError("create", domain.ReasonNetwork, 0, cause))

		require.ErrorIs(t, err, cause)
		require.ErrorIs(t, err, domain.ErrRemoteFailure)
	})

	t.Run("message includes op reason and status", func(t *testing.T) {
		t.Parallel()

		err := domain.NewRemoteError("delete", domain.ReasonRejected, 404, errors.New("card not found"))
		assert.Equal(t, "remote delete: rejected (status 404): card not found", err.Error())
	})

	t.Run("message without status or cause", func(t *testing.T) {
		t.Parallel()

		err := domain.NewRemoteError("list", domain.ReasonMalformed, 0, nil)
		assert.Equal(t, "remote list: malformed", err.Error())
	})
}

func TestRemoteReasonOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want domain.RemoteReason
	}{
		{"rejected", domain.NewRemoteError("update", domain.ReasonRejected, 500, nil), domain.ReasonRejected},
		{"malformed wrapped", fmt.Errorf("x: %w", domain.NewRemoteError("update", domain.ReasonMalformed, 0, nil)), domain.ReasonMalformed},
		{"plain error", errors.New("boom"), domain.ReasonNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, domain.RemoteReasonOf(tt.err))
		})
	}
}
