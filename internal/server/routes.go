package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/gosuda/kanban/internal/api/rpc"
	v1 "github.com/gosuda/kanban/internal/api/v1"
	"github.com/gosuda/kanban/internal/cards"
)

func registerAPIRoutes(r chi.Router, svc *cards.Service) {
	apiConfig := huma.DefaultConfig("Kanban API", "1.0.0")
	apiConfig.Servers = []*huma.Server{
		{URL: "/api/v1"},
	}
	api := humachi.New(r, apiConfig)

	v1.RegisterCardRoutes(api, svc)
	v1.RegisterBoardRoutes(api, svc)
}

func registerRPCRoutes(r chi.Router, svc *cards.Service, originPatterns []string) {
	r.Get("/rpc", rpc.NewHandler(svc, originPatterns).ServeHTTP)
}
