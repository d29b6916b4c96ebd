// Package rpc serves the card store over the websocket RPC protocol.
package rpc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/remote/wsrpc"
)

// CardService abstracts card operations for handler testing.
// *cards.Service satisfies this interface.
type CardService interface {
	List(ctx context.Context) ([]domain.Card, error)
	Create(ctx context.Context, c domain.Card) (*domain.Card, error)
	Update(ctx context.Context, c domain.Card) (*domain.Card, error)
	Delete(ctx context.Context, id string) error
}

// Handler upgrades requests to websocket connections and answers RPC frames
// in the order they arrive.
type Handler struct {
	svc            CardService
	originPatterns []string
}

// NewHandler creates a Handler. originPatterns is passed to websocket.Accept
// for cross-origin browser clients.
func NewHandler(svc CardService, originPatterns []string) *Handler {
	return &Handler{svc: svc, originPatterns: originPatterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The connection outlives the server's per-request deadlines.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		var req wsrpc.Request
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return
			}
			if !errors.Is(err, context.Canceled) {
				log.Debug().Err(err).Msg("websocket read")
			}
			return
		}

		resp := h.dispatch(ctx, req)
		if err := wsjson.Write(ctx, conn, resp); err != nil {
			log.Debug().Err(err).Msg("websocket write")
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, req wsrpc.Request) wsrpc.Response {
	resp := wsrpc.Response{ID: req.ID}

	switch req.Op {
	case wsrpc.OpList:
		cards, err := h.svc.List(ctx)
		if err != nil {
			resp.Error = failure(req, err)
			return resp
		}
		if cards == nil {
			cards = []domain.Card{}
		}
		resp.Cards = cards

	case wsrpc.OpCreate, wsrpc.OpUpdate:
		if req.Card == nil {
			resp.Error = wsrpc.BadRequest("%s requires a card", req.Op)
			return resp
		}
		call := h.svc.Create
		if req.Op == wsrpc.OpUpdate {
			call = h.svc.Update
		}
		card, err := call(ctx, *req.Card)
		if err != nil {
			resp.Error = failure(req, err)
			return resp
		}
		resp.Card = card

	case wsrpc.OpDelete:
		if req.CardID == "" {
			resp.Error = wsrpc.BadRequest("delete requires card_id")
			return resp
		}
		if err := h.svc.Delete(ctx, req.CardID); err != nil {
			resp.Error = failure(req, err)
			return resp
		}
		resp.DeletedID = req.CardID

	default:
		resp.Error = wsrpc.BadRequest("unknown op %q", req.Op)
	}

	return resp
}

func failure(req wsrpc.Request, err error) *wsrpc.Error {
	wireErr := wsrpc.ErrorFor(err)
	if wireErr.Code == wsrpc.CodeInternal {
		log.Error().Err(err).Uint64("request_id", req.ID).Str("op", string(req.Op)).Msg("rpc: store call failed")
	}
	return wireErr
}
