// Package wsrpc carries card store calls over a single websocket connection.
//
// Each call is one JSON text frame holding a Request. The server answers with
// one Response frame carrying the same id. Responses may arrive in any order.
package wsrpc

import (
	"errors"
	"fmt"

	"github.com/gosuda/kanban/internal/domain"
)

// Op names a store operation.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Request is a client frame.
type Request struct {
	ID     uint64       `json:"id"`
	Op     Op           `json:"op"`
	Card   *domain.Card `json:"card,omitempty"`
	CardID string       `json:"card_id,omitempty"`
}

// Response is a server frame. Exactly one of the payload fields or Error is
// set. Cards is always present so an empty board ([]) can be told apart from
// a frame missing its payload (null).
type Response struct {
	ID        uint64        `json:"id"`
	Card      *domain.Card  `json:"card,omitempty"`
	DeletedID string        `json:"deleted_id,omitempty"`
	Cards     []domain.Card `json:"cards"`
	Error     *Error        `json:"error,omitempty"`
}

// Error codes sent in Response.Error.
const (
	CodeNotFound   = "not_found"
	CodeValidation = "validation"
	CodeConflict   = "conflict"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

// Error is a store-side failure.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Unwrap maps the code back onto the domain sentinel.
func (e *Error) Unwrap() error {
	switch e.Code {
	case CodeNotFound:
		return domain.ErrNotFound
	case CodeValidation, CodeBadRequest:
		return domain.ErrValidation
	case CodeConflict:
		return domain.ErrConflict
	default:
		return nil
	}
}

// ErrorFor converts a service error into a wire error.
func ErrorFor(err error) *Error {
	code := CodeInternal
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, domain.ErrValidation):
		code = CodeValidation
	case errors.Is(err, domain.ErrConflict):
		code = CodeConflict
	}
	msg := err.Error()
	if code == CodeInternal {
		msg = "internal error"
	}
	return &Error{Code: code, Message: msg}
}

// BadRequest builds the error for a frame the server cannot act on.
func BadRequest(format string, args ...any) *Error {
	return &Error{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}
