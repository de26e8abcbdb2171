package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	"usersbox-bot/internal/ledger"
	"usersbox-bot/internal/models"
	"usersbox-bot/internal/referral"
	"usersbox-bot/internal/repository"
	"usersbox-bot/internal/search"
	"usersbox-bot/internal/subscription"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard bool
}

type fakeGateway struct {
	mu       sync.Mutex
	sent     []sentMessage
	answered []string
}

func (g *fakeGateway) Send(ctx context.Context, chatID int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (g *fakeGateway) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	return g.Send(ctx, chatID, text)
}

func (g *fakeGateway) SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{chatID: chatID, text: text, keyboard: true})
	return nil
}

func (g *fakeGateway) AnswerCallback(ctx context.Context, callbackQueryID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answered = append(g.answered, callbackQueryID)
	return nil
}

func (g *fakeGateway) BotUsername(ctx context.Context) string { return "search1_test_bot" }

func (g *fakeGateway) texts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.sent))
	for i, m := range g.sent {
		out[i] = m.text
	}
	return out
}

type routerUsers struct {
	repository.UserRepository

	mu         sync.Mutex
	users      map[int64]*models.User
	subscribed map[int64]bool
	credits    map[int64]int
}

func newRouterUsers() *routerUsers {
	return &routerUsers{
		users:      make(map[int64]*models.User),
		subscribed: make(map[int64]bool),
		credits:    make(map[int64]int),
	}
}

func (r *routerUsers) GetOrCreate(ctx context.Context, profile repository.UserProfile) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[profile.TelegramID]; ok {
		copied := *user
		copied.IsAdmin = profile.IsAdmin
		return &copied, nil
	}
	user := &models.User{
		TelegramID:        profile.TelegramID,
		Username:          profile.Username,
		AttemptsRemaining: 3,
		ReferralCode:      "code" + profile.Username,
		IsAdmin:           profile.IsAdmin,
	}
	r.users[profile.TelegramID] = user
	copied := *user
	return &copied, nil
}

func (r *routerUsers) ByID(ctx context.Context, telegramID int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *routerUsers) SetSubscribed(ctx context.Context, telegramID int64, subscribed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed[telegramID] = subscribed
	return nil
}

func (r *routerUsers) Credit(ctx context.Context, telegramID int64, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[telegramID]; !ok {
		return repository.ErrUserNotFound
	}
	r.credits[telegramID] += amount
	return nil
}

type fakeDispatcher struct {
	mu      sync.Mutex
	outcome search.Outcome
	queries []string
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, user *models.User, rawQuery string) search.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, rawQuery)
	return d.outcome
}

type fakeRedeemer struct {
	mu     sync.Mutex
	result referral.Result
	codes  []string
}

func (r *fakeRedeemer) Redeem(ctx context.Context, referredUserID int64, code string) (referral.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
	return r.result, nil
}

type routerOracle struct{ member bool }

func (o *routerOracle) IsMember(ctx context.Context, userID int64) (bool, error) {
	return o.member, nil
}

type routerReferrals struct {
	repository.ReferralRepository
}

func (routerReferrals) CountByReferrer(ctx context.Context, referrerID int64) (int64, error) {
	return 0, nil
}

type routerSearches struct {
	repository.SearchRepository
}

func (routerSearches) CountByUser(ctx context.Context, userID int64) (int64, error) { return 0, nil }
func (routerSearches) CountSuccessfulByUser(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}
func (routerSearches) RecentByUser(ctx context.Context, userID int64, limit int) ([]models.SearchRecord, error) {
	return nil, nil
}

type routerFixture struct {
	users      *routerUsers
	dispatcher *fakeDispatcher
	redeemer   *fakeRedeemer
	gw         *fakeGateway
}

func newTestRouter(member bool) (*Router, *routerFixture) {
	f := &routerFixture{
		users:      newRouterUsers(),
		dispatcher: &fakeDispatcher{},
		redeemer:   &fakeRedeemer{},
		gw:         &fakeGateway{},
	}
	r := NewRouter(
		f.users,
		routerReferrals{},
		routerSearches{},
		f.dispatcher,
		f.redeemer,
		subscription.NewGate(&routerOracle{member: member}),
		ledger.New(f.users),
		f.gw,
		"admin_user",
		"@test_channel",
	)
	return r, f
}

func messageUpdate(userID int64, username, text string) telego.Update {
	return telego.Update{
		UpdateID: 1,
		Message: &telego.Message{
			Chat: telego.Chat{ID: userID},
			From: &telego.User{ID: userID, Username: username},
			Text: text,
		},
	}
}

func TestPlainTextIsImplicitSearch(t *testing.T) {
	r, f := newTestRouter(true)
	f.dispatcher.outcome = search.Outcome{
		Status:    search.Success,
		Text:      "results",
		Remaining: models.Limited(2),
	}

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "ivan@mail.ru"))

	require.Equal(t, []string{"ivan@mail.ru"}, f.dispatcher.queries)
	texts := f.gw.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "results", texts[0])
	assert.Contains(t, texts[1], "2")
}

func TestSearchCommandPassesArgs(t *testing.T) {
	r, f := newTestRouter(true)
	f.dispatcher.outcome = search.Outcome{Status: search.Success, Text: "results", Remaining: models.Unlimited()}

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "/search +79123456789"))

	require.Equal(t, []string{"+79123456789"}, f.dispatcher.queries)
	assert.Equal(t, []string{"results"}, f.gw.texts(), "unlimited balance must not get a remaining notice")
}

func TestLastLimitedAttemptWarnsExhaustion(t *testing.T) {
	r, f := newTestRouter(true)
	f.dispatcher.outcome = search.Outcome{Status: search.Success, Text: "results", Remaining: models.Limited(0)}

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "ivan@mail.ru"))

	texts := f.gw.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, msgExhaustedAfterSearch, texts[1])
}

func TestExhaustedOutcomeMessage(t *testing.T) {
	r, f := newTestRouter(true)
	f.dispatcher.outcome = search.Outcome{Status: search.Exhausted}

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "ivan@mail.ru"))

	assert.Equal(t, []string{msgExhausted}, f.gw.texts())
}

func TestGateDeniedOutcomeSendsKeyboard(t *testing.T) {
	r, f := newTestRouter(true)
	f.dispatcher.outcome = search.Outcome{Status: search.GateDenied}

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "ivan@mail.ru"))

	require.Len(t, f.gw.sent, 1)
	assert.True(t, f.gw.sent[0].keyboard)
}

func TestStartWithReferralCode(t *testing.T) {
	r, f := newTestRouter(true)
	f.redeemer.result = referral.Applied

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "/start abc123"))

	assert.Equal(t, []string{"abc123"}, f.redeemer.codes)
	texts := f.gw.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "БОНУС")
}

func TestStartUnsubscribedShowsGate(t *testing.T) {
	r, f := newTestRouter(false)

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "/start"))

	require.Len(t, f.gw.sent, 1)
	assert.True(t, f.gw.sent[0].keyboard)
	assert.Contains(t, f.gw.sent[0].text, "@test_channel")
}

func TestGiveFromAdmin(t *testing.T) {
	r, f := newTestRouter(true)
	// Target must exist for the credit to land.
	_, err := f.users.GetOrCreate(context.Background(), repository.UserProfile{TelegramID: 100, Username: "target"})
	require.NoError(t, err)

	r.HandleUpdate(context.Background(), messageUpdate(1, "admin_user", "/give 100 5"))

	assert.Equal(t, 5, f.users.credits[100])
	assert.Empty(t, f.dispatcher.queries)
	texts := f.gw.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "выдано")
	assert.Contains(t, texts[1], "5")
}

func TestGiveUnknownTarget(t *testing.T) {
	r, f := newTestRouter(true)

	r.HandleUpdate(context.Background(), messageUpdate(1, "admin_user", "/give 100 5"))

	texts := f.gw.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "не найден")
}

// Admin commands from a regular user are treated as an ordinary search query,
// full text included.
func TestGiveFromNonAdminFallsThroughToSearch(t *testing.T) {
	r, f := newTestRouter(true)
	f.dispatcher.outcome = search.Outcome{Status: search.Success, Text: "results", Remaining: models.Unlimited()}

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "/give 100 5"))

	assert.Equal(t, []string{"/give 100 5"}, f.dispatcher.queries)
	assert.Empty(t, f.users.credits)
}

func TestCommandWithBotSuffix(t *testing.T) {
	r, f := newTestRouter(true)
	f.dispatcher.outcome = search.Outcome{Status: search.Success, Text: "results", Remaining: models.Unlimited()}

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "/search@search1_test_bot ivan@mail.ru"))

	assert.Equal(t, []string{"ivan@mail.ru"}, f.dispatcher.queries)
}

func TestCallbackConfirmsSubscription(t *testing.T) {
	r, f := newTestRouter(true)

	r.HandleUpdate(context.Background(), telego.Update{
		CallbackQuery: &telego.CallbackQuery{
			ID:   "cb1",
			Data: "check_subscription",
			From: telego.User{ID: 42, Username: "ivan"},
		},
	})

	assert.Equal(t, []string{"cb1"}, f.gw.answered)
	assert.True(t, f.users.subscribed[42])
	assert.Equal(t, []string{msgSubscriptionConfirmed}, f.gw.texts())
}

func TestCallbackStillUnsubscribed(t *testing.T) {
	r, f := newTestRouter(false)

	r.HandleUpdate(context.Background(), telego.Update{
		CallbackQuery: &telego.CallbackQuery{
			ID:   "cb2",
			Data: "check_subscription",
			From: telego.User{ID: 42, Username: "ivan"},
		},
	})

	assert.False(t, f.users.subscribed[42])
	require.Len(t, f.gw.sent, 1)
	assert.True(t, f.gw.sent[0].keyboard)
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in      string
		command string
		args    string
	}{
		{"/start", "/start", ""},
		{"/start abc123", "/start", "abc123"},
		{"/SEARCH query", "/search", "query"},
		{"/search@some_bot query", "/search", "query"},
		{"plain text", "", "plain text"},
		{"  /help  ", "/help", ""},
	}
	for _, tt := range tests {
		command, args := splitCommand(tt.in)
		assert.Equal(t, tt.command, command, tt.in)
		assert.Equal(t, tt.args, args, tt.in)
	}
}

func TestHelpMentionsCommands(t *testing.T) {
	r, f := newTestRouter(true)

	r.HandleUpdate(context.Background(), messageUpdate(42, "ivan", "/help"))

	texts := f.gw.texts()
	require.Len(t, texts, 1)
	for _, cmd := range []string{"/search", "/balance", "/referral"} {
		assert.True(t, strings.Contains(texts[0], cmd), "help must mention %s", cmd)
	}
}
