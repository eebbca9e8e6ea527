// Package events publishes account lifecycle events for downstream services.
package events

import "context"

// UserRegistered is emitted once per successful sign-up.
type UserRegistered struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Publisher is used best-effort: callers log and ignore errors.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, ev UserRegistered) error
	Close() error
}

// Nop discards every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishUserRegistered(context.Context, UserRegistered) error { return nil }
func (Nop) Close() error                                               { return nil }
