// Package bot routes inbound Telegram updates to command handlers. The router
// holds no state across messages; everything it needs is read back from the
// repositories on each update.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"usersbox-bot/internal/ledger"
	"usersbox-bot/internal/models"
	"usersbox-bot/internal/referral"
	"usersbox-bot/internal/repository"
	"usersbox-bot/internal/search"
	"usersbox-bot/internal/subscription"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog/log"
)

// MessageGateway is the outbound side of the Telegram transport.
type MessageGateway interface {
	Send(ctx context.Context, chatID int64, text string) error
	SendMarkdown(ctx context.Context, chatID int64, text string) error
	SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackQueryID string) error
	BotUsername(ctx context.Context) string
}

// SearchDispatcher runs one search attempt end to end.
type SearchDispatcher interface {
	Dispatch(ctx context.Context, user *models.User, rawQuery string) search.Outcome
}

// Redeemer applies referral codes.
type Redeemer interface {
	Redeem(ctx context.Context, referredUserID int64, code string) (referral.Result, error)
}

type Router struct {
	users           repository.UserRepository
	referralRecords repository.ReferralRepository
	searches        repository.SearchRepository
	dispatcher      SearchDispatcher
	referrals       Redeemer
	gate            *subscription.Gate
	ledger          *ledger.Ledger
	gw              MessageGateway
	adminUsername   string
	channel         string
}

func NewRouter(
	users repository.UserRepository,
	referralRecords repository.ReferralRepository,
	searches repository.SearchRepository,
	dispatcher SearchDispatcher,
	referrals Redeemer,
	gate *subscription.Gate,
	l *ledger.Ledger,
	gw MessageGateway,
	adminUsername, channel string,
) *Router {
	return &Router{
		users:           users,
		referralRecords: referralRecords,
		searches:        searches,
		dispatcher:      dispatcher,
		referrals:       referrals,
		gate:            gate,
		ledger:          l,
		gw:              gw,
		adminUsername:   adminUsername,
		channel:         channel,
	}
}

// HandleUpdate processes one inbound update to completion and never returns an
// error: every failure path ends in a user-facing message or a log line.
func (r *Router) HandleUpdate(ctx context.Context, update telego.Update) {
	if update.CallbackQuery != nil {
		r.handleCallback(ctx, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.Chat.ID == 0 {
		return
	}

	chatID := msg.Chat.ID
	user, err := r.users.GetOrCreate(ctx, r.profileFrom(msg.From, chatID))
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to get or create user")
		r.send(ctx, chatID, msgGenericFailure)
		return
	}

	text := msg.Text
	command, args := splitCommand(text)

	switch command {
	case "/start":
		r.handleStart(ctx, chatID, user, args)
	case "/search":
		r.handleSearch(ctx, chatID, user, args)
	case "/balance":
		r.handleBalance(ctx, chatID, user)
	case "/referral":
		r.handleReferral(ctx, chatID, user)
	case "/help":
		r.sendMarkdown(ctx, chatID, helpText(r.channel))
	case "/capabilities":
		r.sendMarkdown(ctx, chatID, capabilitiesText())
	case "/admin":
		if user.IsAdmin {
			r.handleAdmin(ctx, chatID, user)
			return
		}
		r.handleSearch(ctx, chatID, user, text)
	case "/give":
		if user.IsAdmin {
			r.handleGive(ctx, chatID, text)
			return
		}
		r.handleSearch(ctx, chatID, user, text)
	case "/stats":
		if user.IsAdmin {
			r.handleStats(ctx, chatID)
			return
		}
		r.handleSearch(ctx, chatID, user, text)
	default:
		// Anything else is an implicit search query.
		r.handleSearch(ctx, chatID, user, text)
	}
}

func (r *Router) handleStart(ctx context.Context, chatID int64, user *models.User, args string) {
	referralBonus := false
	if code := strings.TrimSpace(args); code != "" {
		result, err := r.referrals.Redeem(ctx, user.TelegramID, code)
		if err != nil {
			log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("referral redemption failed")
		}
		if result == referral.Applied {
			referralBonus = true
			// Reload so the welcome shows the credited balance.
			if fresh, err := r.users.ByID(ctx, user.TelegramID); err == nil {
				user = fresh
			}
		}
	}

	if !r.gate.IsAdmitted(ctx, user) {
		r.sendWithKeyboard(ctx, chatID, subscribeWelcomeText(r.channel), subscribeKeyboard(r.channel))
		return
	}
	r.send(ctx, chatID, welcomeText(user, referralBonus))
}

func (r *Router) handleSearch(ctx context.Context, chatID int64, user *models.User, query string) {
	outcome := r.dispatcher.Dispatch(ctx, user, query)
	switch outcome.Status {
	case search.ValidationFailed:
		r.send(ctx, chatID, msgSearchUsage)
	case search.GateDenied:
		r.sendWithKeyboard(ctx, chatID, subscribeRequiredText(r.channel), subscribeKeyboard(r.channel))
	case search.Exhausted:
		r.send(ctx, chatID, msgExhausted)
	case search.ProviderFailed:
		if outcome.Text != "" {
			r.sendMarkdown(ctx, chatID, outcome.Text)
			return
		}
		r.send(ctx, chatID, msgProviderFailure)
	case search.InternalError:
		r.send(ctx, chatID, msgGenericFailure)
	case search.Success:
		r.sendMarkdown(ctx, chatID, outcome.Text)
		if !outcome.Remaining.IsUnlimited() {
			if outcome.Remaining.Remaining() > 0 {
				r.send(ctx, chatID, remainingText(outcome.Remaining))
			} else {
				r.send(ctx, chatID, msgExhaustedAfterSearch)
			}
		}
	}
}

func (r *Router) handleBalance(ctx context.Context, chatID int64, user *models.User) {
	total, err := r.searches.CountByUser(ctx, user.TelegramID)
	if err != nil {
		log.Error().Err(err).Msg("failed to count user searches")
	}
	successful, err := r.searches.CountSuccessfulByUser(ctx, user.TelegramID)
	if err != nil {
		log.Error().Err(err).Msg("failed to count successful user searches")
	}
	recent, err := r.searches.RecentByUser(ctx, user.TelegramID, 3)
	if err != nil {
		log.Error().Err(err).Msg("failed to load recent user searches")
	}
	r.sendMarkdown(ctx, chatID, balanceText(user, total, successful, recent))
}

func (r *Router) handleReferral(ctx context.Context, chatID int64, user *models.User) {
	earned, err := r.referralRecords.CountByReferrer(ctx, user.TelegramID)
	if err != nil {
		log.Error().Err(err).Msg("failed to count referrals")
	}
	r.sendMarkdown(ctx, chatID, referralText(user, r.gw.BotUsername(ctx), earned))
}

func (r *Router) handleAdmin(ctx context.Context, chatID int64, user *models.User) {
	stats, err := r.collectStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to collect admin stats")
		r.send(ctx, chatID, "❌ Ошибка при получении статистики")
		return
	}
	topReferrers, err := r.users.TopReferrers(ctx, 3)
	if err != nil {
		log.Error().Err(err).Msg("failed to load top referrers")
	}
	r.sendMarkdown(ctx, chatID, adminPanelText(user, stats, topReferrers))
}

func (r *Router) handleGive(ctx context.Context, chatID int64, text string) {
	parts := strings.Fields(text)
	if len(parts) != 3 {
		r.sendMarkdown(ctx, chatID, msgGiveUsage)
		return
	}
	targetID, err1 := strconv.ParseInt(parts[1], 10, 64)
	amount, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || amount <= 0 {
		r.send(ctx, chatID, msgGiveBadArgs)
		return
	}

	if err := r.ledger.Credit(ctx, targetID, amount); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			r.send(ctx, chatID, "❌ Пользователь с ID "+parts[1]+" не найден")
			return
		}
		log.Error().Err(err).Int64("target_id", targetID).Msg("failed to grant attempts")
		r.send(ctx, chatID, "❌ Ошибка при выдаче попыток")
		return
	}

	r.send(ctx, chatID, "✅ Пользователю "+parts[1]+" выдано "+parts[2]+" попыток")
	r.sendMarkdown(ctx, targetID, attemptsGrantedText(amount))
}

func (r *Router) handleStats(ctx context.Context, chatID int64) {
	stats, err := r.collectStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to collect stats")
		r.send(ctx, chatID, "❌ Ошибка при получении статистики")
		return
	}
	midnight := formatDay(time.Now().UTC())
	todayUsers, err := r.users.CountCreatedSince(ctx, midnight)
	if err != nil {
		log.Error().Err(err).Msg("failed to count today's users")
	}
	todaySearches, err := r.searches.CountSince(ctx, midnight)
	if err != nil {
		log.Error().Err(err).Msg("failed to count today's searches")
	}
	distribution, err := r.searches.TypeDistribution(ctx, 5)
	if err != nil {
		log.Error().Err(err).Msg("failed to load search type distribution")
	}
	r.sendMarkdown(ctx, chatID, statsText(stats, todayUsers, todaySearches, distribution))
}

func (r *Router) handleCallback(ctx context.Context, cq *telego.CallbackQuery) {
	if err := r.gw.AnswerCallback(ctx, cq.ID); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback query")
	}
	if cq.Data != "check_subscription" {
		return
	}

	chatID := cq.From.ID
	user, err := r.users.GetOrCreate(ctx, r.profileFrom(&cq.From, chatID))
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to get or create user")
		r.send(ctx, chatID, msgGenericFailure)
		return
	}

	if r.gate.IsAdmitted(ctx, user) {
		if err := r.users.SetSubscribed(ctx, user.TelegramID, true); err != nil {
			log.Error().Err(err).Msg("failed to persist subscription flag")
		}
		r.send(ctx, chatID, msgSubscriptionConfirmed)
		return
	}
	r.sendWithKeyboard(ctx, chatID, subscriptionMissingText(r.channel), subscribeKeyboard(r.channel))
}

type adminStats struct {
	TotalUsers         int64
	TotalSearches      int64
	TotalReferrals     int64
	SuccessfulSearches int64
	RecentUsers        int64
	RecentSearches     int64
}

func (r *Router) collectStats(ctx context.Context) (adminStats, error) {
	var s adminStats
	var err error
	if s.TotalUsers, err = r.users.Count(ctx); err != nil {
		return s, err
	}
	if s.TotalSearches, err = r.searches.Count(ctx); err != nil {
		return s, err
	}
	if s.TotalReferrals, err = r.referralRecords.Count(ctx); err != nil {
		return s, err
	}
	if s.SuccessfulSearches, err = r.searches.CountSuccessful(ctx); err != nil {
		return s, err
	}
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	if s.RecentUsers, err = r.users.CountCreatedSince(ctx, yesterday); err != nil {
		return s, err
	}
	if s.RecentSearches, err = r.searches.CountSince(ctx, yesterday); err != nil {
		return s, err
	}
	return s, nil
}

func (r *Router) profileFrom(from *telego.User, chatID int64) repository.UserProfile {
	profile := repository.UserProfile{TelegramID: chatID}
	if from != nil {
		profile.TelegramID = from.ID
		profile.Username = from.Username
		profile.FirstName = from.FirstName
		profile.LastName = from.LastName
		profile.IsAdmin = r.adminUsername != "" && from.Username == r.adminUsername
	}
	return profile
}

// splitCommand returns the leading slash command (bot-name suffix stripped)
// and the rest of the text. Non-command text yields an empty command.
func splitCommand(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", trimmed
	}
	parts := strings.SplitN(trimmed, " ", 2)
	command := strings.ToLower(parts[0])
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return command, args
}

func (r *Router) send(ctx context.Context, chatID int64, text string) {
	if err := r.gw.Send(ctx, chatID, text); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (r *Router) sendMarkdown(ctx context.Context, chatID int64, text string) {
	if err := r.gw.SendMarkdown(ctx, chatID, text); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (r *Router) sendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) {
	if err := r.gw.SendWithKeyboard(ctx, chatID, text, keyboard); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}
