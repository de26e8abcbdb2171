// Package referral credits referrer/referred pairs exactly once. The
// insert-if-absent on the pair is the idempotency boundary: a retried webhook
// delivery that redeems the same code again changes nothing.
package referral

import (
	"context"
	"errors"
	"fmt"

	"usersbox-bot/internal/ledger"
	"usersbox-bot/internal/repository"

	"github.com/rs/zerolog/log"
)

// Result is the outcome of a redemption. Rejected covers unknown codes,
// self-referral and already-redeemed pairs; none of these are errors.
type Result int

const (
	Applied Result = iota
	Rejected
)

// Notifier delivers the congratulation message to the referrer. Delivery
// failure does not undo the redemption.
type Notifier interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

type Processor struct {
	users     repository.UserRepository
	referrals repository.ReferralRepository
	ledger    *ledger.Ledger
	notifier  Notifier
}

func NewProcessor(users repository.UserRepository, referrals repository.ReferralRepository, l *ledger.Ledger, notifier Notifier) *Processor {
	return &Processor{users: users, referrals: referrals, ledger: l, notifier: notifier}
}

// Redeem applies the referral identified by code to the referred user. Both
// parties are credited one attempt and the referrer's counter is incremented,
// observably exactly once per (referrer, referred) pair.
func (p *Processor) Redeem(ctx context.Context, referredUserID int64, code string) (Result, error) {
	referrer, err := p.users.ByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Rejected, nil
		}
		return Rejected, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	if referrer.TelegramID == referredUserID {
		return Rejected, nil
	}

	inserted, err := p.referrals.CreateIfAbsent(ctx, referrer.TelegramID, referredUserID)
	if err != nil {
		return Rejected, fmt.Errorf("failed to record referral: %w", err)
	}
	if !inserted {
		// Duplicate delivery; the pair was already credited.
		return Rejected, nil
	}

	if err := p.ledger.Credit(ctx, referrer.TelegramID, 1); err != nil {
		return Rejected, fmt.Errorf("failed to credit referrer: %w", err)
	}
	if err := p.users.IncrementReferrals(ctx, referrer.TelegramID); err != nil {
		return Rejected, fmt.Errorf("failed to increment referral counter: %w", err)
	}
	if err := p.users.SetReferredBy(ctx, referredUserID, referrer.TelegramID); err != nil {
		return Rejected, fmt.Errorf("failed to set referrer back-reference: %w", err)
	}
	if err := p.ledger.Credit(ctx, referredUserID, 1); err != nil {
		return Rejected, fmt.Errorf("failed to credit referred user: %w", err)
	}

	// The counter in the notification is the pre-update snapshot plus one,
	// matching the historical behavior. Under concurrent redemptions the DB
	// counter is authoritative, this text may lag.
	text := fmt.Sprintf(
		"🎉 *Поздравляем!* Пользователь присоединился по вашей реферальной ссылке!\n\n"+
			"💎 Вы получили +1 попытку поиска\n"+
			"👥 Всего рефералов: %d",
		referrer.TotalReferrals+1,
	)
	if err := p.notifier.SendMarkdown(ctx, referrer.TelegramID, text); err != nil {
		log.Warn().Err(err).Int64("referrer_id", referrer.TelegramID).Msg("failed to notify referrer")
	}

	return Applied, nil
}
