// Package search orchestrates one lookup: validation, gate check, balance
// check, classification, the provider call, the audit record and conditional
// consumption of an attempt.
package search

import (
	"context"
	"strings"

	"usersbox-bot/internal/classifier"
	"usersbox-bot/internal/ledger"
	"usersbox-bot/internal/models"
	"usersbox-bot/internal/repository"
	"usersbox-bot/internal/subscription"
	"usersbox-bot/internal/usersbox"

	"github.com/rs/zerolog/log"
)

// Status is the terminal state of one dispatch.
type Status int

const (
	Success Status = iota
	ValidationFailed
	GateDenied
	Exhausted
	ProviderFailed
	InternalError
)

// Outcome is handed back to the router for delivery. Text is only populated
// for statuses that produced provider output; the router phrases the rest.
type Outcome struct {
	Status    Status
	Type      classifier.SearchType
	Text      string
	Remaining models.Entitlement
}

// Provider is the external lookup collaborator.
type Provider interface {
	Search(ctx context.Context, query string) (*usersbox.SearchResult, error)
}

// ProgressFunc announces that the provider call is about to start, after the
// query passed validation, gate and balance checks. May be nil.
type ProgressFunc func(ctx context.Context, user *models.User, searchType classifier.SearchType)

type Dispatcher struct {
	provider Provider
	gate     *subscription.Gate
	ledger   *ledger.Ledger
	searches repository.SearchRepository
	progress ProgressFunc
}

func NewDispatcher(provider Provider, gate *subscription.Gate, l *ledger.Ledger, searches repository.SearchRepository, progress ProgressFunc) *Dispatcher {
	return &Dispatcher{provider: provider, gate: gate, ledger: l, searches: searches, progress: progress}
}

// Dispatch runs one search for the user. An attempt is consumed only after the
// provider answered with a success status; a failed call is audited but free.
// The balance check up front is advisory, TryConsume's conditional update is
// the real enforcement point under concurrency.
func (d *Dispatcher) Dispatch(ctx context.Context, user *models.User, rawQuery string) Outcome {
	query := strings.TrimSpace(rawQuery)
	if query == "" {
		return Outcome{Status: ValidationFailed, Remaining: user.Entitlement()}
	}

	if !d.gate.IsAdmitted(ctx, user) {
		return Outcome{Status: GateDenied, Remaining: user.Entitlement()}
	}

	if user.Entitlement().Exhausted() {
		return Outcome{Status: Exhausted, Remaining: user.Entitlement()}
	}

	searchType := classifier.Detect(query)
	if d.progress != nil {
		d.progress(ctx, user, searchType)
	}

	result, err := d.provider.Search(ctx, query)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.TelegramID).Str("type", string(searchType)).Msg("provider call failed")
		d.record(ctx, user.TelegramID, query, searchType, nil, false)
		return Outcome{Status: ProviderFailed, Type: searchType, Remaining: user.Entitlement()}
	}

	if !result.OK() {
		d.record(ctx, user.TelegramID, query, searchType, result.Raw, false)
		return Outcome{
			Status:    ProviderFailed,
			Type:      searchType,
			Text:      FormatResults(&result.Body, query, searchType),
			Remaining: user.Entitlement(),
		}
	}

	if err := d.searches.Create(ctx, &models.SearchRecord{
		UserID:     user.TelegramID,
		Query:      query,
		SearchType: string(searchType),
		Results:    result.Raw,
		Success:    true,
	}); err != nil {
		// Abort before consuming so no ledger mutation is left behind.
		log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("failed to write search record")
		return Outcome{Status: InternalError, Type: searchType, Remaining: user.Entitlement()}
	}

	remaining := user.Entitlement()
	consumeResult, err := d.ledger.TryConsume(ctx, user)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("failed to consume attempt")
		return Outcome{Status: InternalError, Type: searchType, Remaining: remaining}
	}
	if consumeResult == ledger.Consumed && !remaining.IsUnlimited() {
		remaining = models.Limited(remaining.Remaining() - 1)
	}

	return Outcome{
		Status:    Success,
		Type:      searchType,
		Text:      FormatResults(&result.Body, query, searchType),
		Remaining: remaining,
	}
}

func (d *Dispatcher) record(ctx context.Context, userID int64, query string, searchType classifier.SearchType, raw []byte, success bool) {
	err := d.searches.Create(ctx, &models.SearchRecord{
		UserID:     userID,
		Query:      query,
		SearchType: string(searchType),
		Results:    raw,
		Success:    success,
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to write search record")
	}
}
