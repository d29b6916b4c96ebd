package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/kanban/internal/api/v1"
	"github.com/gosuda/kanban/internal/domain"
)

// ---------------------------------------------------------------------------
// GET /cards
// ---------------------------------------------------------------------------

func TestListCards(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			listFunc: func(context.Context) ([]domain.Card, error) {
				return []domain.Card{{ID: "c1", Title: "Write spec", Status: "To Do"}}, nil
			},
		})

		resp := api.Get("/cards")
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Cards []domain.Card `json:"cards"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Cards, 1)
		assert.Equal(t, "Write spec", body.Cards[0].Title)
	})

	t.Run("empty_is_array", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			listFunc: func(context.Context) ([]domain.Card, error) { return nil, nil },
		})

		resp := api.Get("/cards")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"cards":[]}`, stripSchema(t, resp.Body.Bytes()))
	})

	t.Run("store_error", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			listFunc: func(context.Context) ([]domain.Card, error) { return nil, errors.New("db down") },
		})

		resp := api.Get("/cards")
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

// stripSchema removes the $schema link huma adds to response bodies.
func stripSchema(t *testing.T, raw []byte) string {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	delete(m, "$schema")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}

// ---------------------------------------------------------------------------
// POST /cards
// ---------------------------------------------------------------------------

func TestCreateCard(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		var got domain.Card
		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			createFunc: func(_ context.Context, c domain.Card) (*domain.Card, error) {
				got = c
				return &c, nil
			},
		})

		resp := api.Post("/cards", map[string]any{
			"id":     "c1",
			"title":  "Write spec",
			"status": "To Do",
		})
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, domain.Card{ID: "c1", Title: "Write spec", Status: "To Do"}, got)

		var body domain.Card
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "c1", body.ID)
	})

	t.Run("schema_validation", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{createFunc: echoCard})

		for _, body := range []map[string]any{
			{"title": "no id", "status": "To Do"},
			{"id": "c1", "title": "", "status": "To Do"},
			{"id": "c1", "title": "no status"},
		} {
			resp := api.Post("/cards", body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, fmt.Sprint(body))
		}
	})

	t.Run("service_validation", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			createFunc: func(context.Context, domain.Card) (*domain.Card, error) {
				return nil, fmt.Errorf("unknown status %q: %w", "Archived", domain.ErrValidation)
			},
		})

		resp := api.Post("/cards", map[string]any{"id": "c1", "title": "T", "status": "Archived"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Contains(t, resp.Body.String(), "Archived")
	})
}

// ---------------------------------------------------------------------------
// PUT /cards/{id}
// ---------------------------------------------------------------------------

func TestUpdateCard(t *testing.T) {
	t.Parallel()

	t.Run("happy_path_uses_path_id", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			updateFunc: func(_ context.Context, c domain.Card) (*domain.Card, error) {
				assert.Equal(t, "c1", c.ID)
				c.Title += "!"
				return &c, nil
			},
		})

		resp := api.Put("/cards/c1", map[string]any{"title": "Ship", "status": "Done"})
		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Card
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.Card{ID: "c1", Title: "Ship!", Status: "Done"}, body)
	})

	t.Run("id_mismatch", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{updateFunc: echoCard})

		resp := api.Put("/cards/c1", map[string]any{"id": "c2", "title": "Ship", "status": "Done"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			updateFunc: func(context.Context, domain.Card) (*domain.Card, error) {
				return nil, fmt.Errorf("cards.Service.Update: %w", domain.ErrNotFound)
			},
		})

		resp := api.Put("/cards/c9", map[string]any{"title": "Ship", "status": "Done"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// GET /cards/{id}
// ---------------------------------------------------------------------------

func TestGetCard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		getFunc  func(ctx context.Context, id string) (*domain.Card, error)
		wantCode int
	}{
		{
			name: "happy_path",
			getFunc: func(_ context.Context, id string) (*domain.Card, error) {
				return &domain.Card{ID: id, Title: "Write spec", Status: "To Do"}, nil
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "not_found",
			getFunc:  func(context.Context, string) (*domain.Card, error) { return nil, domain.ErrNotFound },
			wantCode: http.StatusNotFound,
		},
		{
			name:     "store_error",
			getFunc:  func(context.Context, string) (*domain.Card, error) { return nil, errors.New("db down") },
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			v1.RegisterCardRoutes(api, &mockCardService{getFunc: tt.getFunc})

			resp := api.Get("/cards/c1")
			require.Equal(t, tt.wantCode, resp.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var card domain.Card
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
			assert.Equal(t, domain.Card{ID: "c1", Title: "Write spec", Status: "To Do"}, card)
		})
	}
}

// ---------------------------------------------------------------------------
// DELETE /cards/{id}
// ---------------------------------------------------------------------------

func TestDeleteCard(t *testing.T) {
	t.Parallel()

	t.Run("happy_path_echoes_id", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			deleteFunc: func(_ context.Context, id string) error {
				assert.Equal(t, "c1", id)
				return nil
			},
		})

		resp := api.Delete("/cards/c1")
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "c1", body.ID)
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			deleteFunc: func(context.Context, string) error { return domain.ErrNotFound },
		})

		resp := api.Delete("/cards/c1")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("conflict", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterCardRoutes(api, &mockCardService{
			deleteFunc: func(context.Context, string) error { return domain.ErrConflict },
		})

		resp := api.Delete("/cards/c1")
		assert.Equal(t, http.StatusConflict, resp.Code)
	})
}
