package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	UserRegistered = "user_registered"
	UserLoggedIn   = "user_logged_in"
	UserLoggedOut  = "user_logged_out"
	UserDeleted    = "user_deleted"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     uint      `json:"userId"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role,omitempty"`
	ActorID    uint      `json:"actorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(typ string, userID uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
