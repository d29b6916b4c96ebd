package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanban/internal/domain"
)

type ListCardsInput struct{}

type ListCardsOutput struct {
	Body struct {
		Cards []domain.Card `json:"cards"`
	}
}

type GetCardInput struct {
	ID string `path:"id" doc:"Card ID"`
}

type CreateCardInput struct {
	Body struct {
		ID          string `json:"id" minLength:"1" maxLength:"128" doc:"Client-assigned card ID"`
		Title       string `json:"title" minLength:"1" maxLength:"500" doc:"Card title"`
		Description string `json:"description,omitempty" doc:"Card description"`
		Status      string `json:"status" minLength:"1" doc:"Title of the column holding the card"`
	}
}

type CardOutput struct {
	Body *domain.Card
}

type UpdateCardInput struct {
	ID   string `path:"id" doc:"Card ID"`
	Body struct {
		ID          string `json:"id,omitempty" doc:"Must match the path ID when present"`
		Title       string `json:"title" minLength:"1" maxLength:"500" doc:"Card title"`
		Description string `json:"description,omitempty" doc:"Card description"`
		Status      string `json:"status" minLength:"1" doc:"Title of the column holding the card"`
	}
}

type DeleteCardInput struct {
	ID string `path:"id" doc:"Card ID"`
}

type DeleteCardOutput struct {
	Body struct {
		ID string `json:"id" doc:"ID of the deleted card"`
	}
}

func RegisterCardRoutes(api huma.API, svc CardService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-cards",
		Method:      http.MethodGet,
		Path:        "/cards",
		Summary:     "List all cards",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, _ *ListCardsInput) (*ListCardsOutput, error) {
		cards, err := svc.List(ctx)
		if err != nil {
			return nil, cardError(err, "failed to list cards")
		}

		out := &ListCardsOutput{}
		out.Body.Cards = cards
		if out.Body.Cards == nil {
			out.Body.Cards = []domain.Card{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-card",
		Method:      http.MethodGet,
		Path:        "/cards/{id}",
		Summary:     "Get a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *GetCardInput) (*CardOutput, error) {
		card, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, cardError(err, "failed to get card")
		}

		return &CardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-card",
		Method:        http.MethodPost,
		Path:          "/cards",
		Summary:       "Create a card with a client-assigned ID",
		Description:   "Repeating a create with the same ID returns the card stored by the first request.",
		Tags:          []string{"Cards"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateCardInput) (*CardOutput, error) {
		card, err := svc.Create(ctx, domain.Card{
			ID:          input.Body.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
		})
		if err != nil {
			return nil, cardError(err, "failed to create card")
		}

		return &CardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-card",
		Method:      http.MethodPut,
		Path:        "/cards/{id}",
		Summary:     "Replace a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *UpdateCardInput) (*CardOutput, error) {
		if input.Body.ID != "" && input.Body.ID != input.ID {
			return nil, huma.Error422UnprocessableEntity("body id does not match path id")
		}

		card, err := svc.Update(ctx, domain.Card{
			ID:          input.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
		})
		if err != nil {
			return nil, cardError(err, "failed to update card")
		}

		return &CardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-card",
		Method:      http.MethodDelete,
		Path:        "/cards/{id}",
		Summary:     "Delete a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *DeleteCardInput) (*DeleteCardOutput, error) {
		if err := svc.Delete(ctx, input.ID); err != nil {
			return nil, cardError(err, "failed to delete card")
		}

		out := &DeleteCardOutput{}
		out.Body.ID = input.ID
		return out, nil
	})
}

func cardError(err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("card not found")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
