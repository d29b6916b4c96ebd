package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/kanban/internal/domain"
)

type GetBoardInput struct{}

type BoardColumn struct {
	Title string        `json:"title"`
	Cards []domain.Card `json:"cards"`
}

type GetBoardOutput struct {
	Body struct {
		Columns []BoardColumn `json:"columns"`
	}
}

func RegisterBoardRoutes(api huma.API, svc CardService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Get cards grouped into the configured columns",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, _ *GetBoardInput) (*GetBoardOutput, error) {
		cards, err := svc.List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list cards for board", err)
		}

		statuses := svc.Statuses()
		index := make(map[string]int, len(statuses))
		out := &GetBoardOutput{}
		out.Body.Columns = make([]BoardColumn, len(statuses))
		for i, s := range statuses {
			index[s] = i
			out.Body.Columns[i] = BoardColumn{Title: s, Cards: make([]domain.Card, 0)}
		}

		for _, c := range cards {
			i, ok := index[c.Status]
			if !ok {
				continue
			}
			out.Body.Columns[i].Cards = append(out.Body.Columns[i].Cards, c)
		}

		return out, nil
	})
}
