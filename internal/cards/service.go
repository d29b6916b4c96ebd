// Package cards is the store-side card service shared by the REST and
// websocket transports.
package cards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanban/internal/domain"
)

const maxTitleLength = 500

type EventType string

const (
	EventCardCreated EventType = "card_created"
	EventCardUpdated EventType = "card_updated"
	EventCardDeleted EventType = "card_deleted"
)

// Event is published after every successful mutation.
type Event struct {
	Type   EventType    `json:"type"`
	CardID string       `json:"card_id"`
	Card   *domain.Card `json:"card,omitempty"`
}

// Publisher fans events out. *redis.PubSub satisfies this interface.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Deduper recognizes replayed creates. *redis.Deduper satisfies this interface.
type Deduper interface {
	Claim(ctx context.Context, cardID string) (bool, error)
	Release(ctx context.Context, cardID string) error
}

type Service struct {
	repo     domain.CardRepository
	statuses []string
	pub      Publisher
	channel  string
	dedupe   Deduper
}

type Option func(*Service)

// WithPublisher publishes events to channel.
func WithPublisher(p Publisher, channel string) Option {
	return func(s *Service) {
		s.pub = p
		s.channel = channel
	}
}

func WithDeduper(d Deduper) Option {
	return func(s *Service) { s.dedupe = d }
}

// NewService creates a Service accepting the given status values.
func NewService(repo domain.CardRepository, statuses []string, opts ...Option) *Service {
	s := &Service{repo: repo, statuses: slices.Clone(statuses)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Statuses returns the accepted status values in board order.
func (s *Service) Statuses() []string {
	return slices.Clone(s.statuses)
}

func (s *Service) List(ctx context.Context) ([]domain.Card, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("cards.Service.List: %w", err)
	}

	out := make([]domain.Card, 0, len(stored))
	for _, c := range stored {
		out = append(out, *c)
	}
	return out, nil
}

// Get returns the stored copy of one card.
func (s *Service) Get(ctx context.Context, id string) (*domain.Card, error) {
	if domain.IsBlank(id) {
		return nil, fmt.Errorf("cards.Service.Get: card id cannot be empty: %w", domain.ErrValidation)
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cards.Service.Get: %w", err)
	}
	return c, nil
}

// Create stores c under its client-chosen id. Repeating a create returns the
// card stored by the first one.
func (s *Service) Create(ctx context.Context, c domain.Card) (*domain.Card, error) {
	if err := s.validate(c); err != nil {
		return nil, fmt.Errorf("cards.Service.Create: %w", err)
	}

	claimed := false
	if s.dedupe != nil {
		first, err := s.dedupe.Claim(ctx, c.ID)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("card_id", c.ID).Msg("cards: dedupe claim failed")
		case first:
			claimed = true
		default:
			existing, err := s.repo.GetByID(ctx, c.ID)
			if err == nil {
				log.Debug().Str("card_id", c.ID).Msg("cards: replayed create")
				return existing, nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("cards.Service.Create: %w", err)
			}
		}
	}

	stored, created, err := s.repo.Create(ctx, &c)
	if err != nil {
		if claimed {
			if relErr := s.dedupe.Release(ctx, c.ID); relErr != nil {
				log.Warn().Err(relErr).Str("card_id", c.ID).Msg("cards: dedupe release failed")
			}
		}
		return nil, fmt.Errorf("cards.Service.Create: %w", err)
	}

	if created {
		s.publish(ctx, Event{Type: EventCardCreated, CardID: stored.ID, Card: stored})
	}
	return stored, nil
}

// Update replaces every field of an existing card.
func (s *Service) Update(ctx context.Context, c domain.Card) (*domain.Card, error) {
	if err := s.validate(c); err != nil {
		return nil, fmt.Errorf("cards.Service.Update: %w", err)
	}

	if err := s.repo.Update(ctx, &c); err != nil {
		return nil, fmt.Errorf("cards.Service.Update: %w", err)
	}

	s.publish(ctx, Event{Type: EventCardUpdated, CardID: c.ID, Card: &c})
	return &c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if domain.IsBlank(id) {
		return fmt.Errorf("cards.Service.Delete: card id cannot be empty: %w", domain.ErrValidation)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("cards.Service.Delete: %w", err)
	}

	s.publish(ctx, Event{Type: EventCardDeleted, CardID: id})
	return nil
}

func (s *Service) validate(c domain.Card) error {
	switch {
	case domain.IsBlank(c.ID):
		return fmt.Errorf("card id cannot be empty: %w", domain.ErrValidation)
	case domain.IsBlank(c.Title):
		return fmt.Errorf("card title cannot be empty: %w", domain.ErrValidation)
	case len(c.Title) > maxTitleLength:
		return fmt.Errorf("card title longer than %d bytes: %w", maxTitleLength, domain.ErrValidation)
	case !slices.Contains(s.statuses, c.Status):
		return fmt.Errorf("unknown status %q: %w", c.Status, domain.ErrValidation)
	}
	return nil
}

// publish is best effort; the mutation already succeeded.
func (s *Service) publish(ctx context.Context, ev Event) {
	if s.pub == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("card_id", ev.CardID).Msg("cards: marshal event")
		return
	}
	if err := s.pub.Publish(ctx, s.channel, payload); err != nil {
		log.Warn().Err(err).Str("card_id", ev.CardID).Str("event", string(ev.Type)).Msg("cards: publish event")
	}
}
