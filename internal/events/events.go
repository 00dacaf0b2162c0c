// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package events is the in-process notification bus between the auth core
// and external collaborators such as the mailer. Publishers never block on
// subscribers.
package events

import (
	"context"
	"log/slog"
	"sync"

	"codeberg.org/paperdock/paperdock/internal/models"
)

// PasswordLostEvent carries the resolved user and the issued recovery key so
// a mail-delivery collaborator can send the reset link. The auth core itself
// never sends mail.
type PasswordLostEvent struct {
	User *models.User
	Key  *models.RecoveryKey
}

// PasswordLostHandler consumes password-lost notifications.
type PasswordLostHandler func(ctx context.Context, ev PasswordLostEvent)

// Bus fans events out to registered subscribers.
type Bus struct {
	mu           sync.RWMutex
	passwordLost []PasswordLostHandler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribePasswordLost registers a handler for password-lost events.
func (b *Bus) SubscribePasswordLost(fn PasswordLostHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passwordLost = append(b.passwordLost, fn)
}

// PublishPasswordLost delivers an event to every subscriber asynchronously.
func (b *Bus) PublishPasswordLost(ctx context.Context, ev PasswordLostEvent) {
	b.mu.RLock()
	handlers := make([]PasswordLostHandler, len(b.passwordLost))
	copy(handlers, b.passwordLost)
	b.mu.RUnlock()

	for _, fn := range handlers {
		go func(fn PasswordLostHandler) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("event_handler_panic", "event", "password_lost", "panic", r)
				}
			}()
			fn(ctx, ev)
		}(fn)
	}
}
