// Package events publishes auth lifecycle notifications to a message broker.
// Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"time"
)

type Type string

const (
	UserRegistered  Type = "user.registered"
	UserLoggedIn    Type = "user.logged_in"
	TokenRefreshed  Type = "token.refreshed"
	SessionsRevoked Type = "sessions.revoked"
	TokensSwept     Type = "tokens.swept"
)

// Event is the JSON body of every message. Type doubles as the routing key.
type Event struct {
	Type          Type      `json:"type"`
	UserID        string    `json:"userId,omitempty"`
	Email         string    `json:"email,omitempty"`
	Count         int64     `json:"count,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
