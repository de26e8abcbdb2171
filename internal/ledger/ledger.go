// Package ledger tracks the per-user search attempt balance. Consumption is a
// single conditional update at the storage layer; two concurrent deliveries for
// the same user can never drive the balance negative.
package ledger

import (
	"context"

	"usersbox-bot/internal/models"
	"usersbox-bot/internal/repository"
)

// ConsumeResult is the outcome of a consume call. Denied is a normal result,
// not an error.
type ConsumeResult int

const (
	Consumed ConsumeResult = iota
	Denied
)

type Ledger struct {
	users repository.UserRepository
}

func New(users repository.UserRepository) *Ledger {
	return &Ledger{users: users}
}

// TryConsume takes one attempt from the user's balance. Unlimited entitlements
// (admins) always succeed without touching the stored counter. Once committed
// a consume is never reversed.
func (l *Ledger) TryConsume(ctx context.Context, user *models.User) (ConsumeResult, error) {
	if user.Entitlement().IsUnlimited() {
		return Consumed, nil
	}
	ok, err := l.users.ConsumeAttempt(ctx, user.TelegramID)
	if err != nil {
		return Denied, err
	}
	if !ok {
		return Denied, nil
	}
	return Consumed, nil
}

// Credit adds amount attempts to the user's balance. amount must be positive.
// Returns repository.ErrUserNotFound for unknown users.
func (l *Ledger) Credit(ctx context.Context, telegramID int64, amount int) error {
	return l.users.Credit(ctx, telegramID, amount)
}
