package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const apiCallTimeout = 10 * time.Second

// Gateway wraps the Telegram Bot API for outbound sends and the channel
// membership check. It implements referral.Notifier and
// subscription.MembershipOracle.
type Gateway struct {
	bot              *telego.Bot
	requiredChannel  string
	fallbackUsername string

	mu       sync.Mutex
	username string
}

func NewGateway(tgBot *telego.Bot, requiredChannel, fallbackUsername string) *Gateway {
	return &Gateway{
		bot:              tgBot,
		requiredChannel:  requiredChannel,
		fallbackUsername: fallbackUsername,
	}
}

func (g *Gateway) Send(ctx context.Context, chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()
	_, err := g.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (g *Gateway) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()
	_, err := g.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (g *Gateway) SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) error {
	ctx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()
	_, err := g.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithReplyMarkup(keyboard))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (g *Gateway) AnswerCallback(ctx context.Context, callbackQueryID string) error {
	ctx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()
	if err := g.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(callbackQueryID)); err != nil {
		return fmt.Errorf("failed to answer callback query: %w", err)
	}
	return nil
}

// IsMember reports whether the user is a member, administrator or creator of
// the required channel.
func (g *Gateway) IsMember(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()
	member, err := g.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: g.channelChatID(),
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to get chat member: %w", err)
	}
	switch member.MemberStatus() {
	case telego.MemberStatusMember, telego.MemberStatusAdministrator, telego.MemberStatusCreator:
		return true, nil
	}
	return false, nil
}

// BotUsername returns the bot's username for building referral links, cached
// after the first successful GetMe.
func (g *Gateway) BotUsername(ctx context.Context) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.username != "" {
		return g.username
	}
	ctx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()
	if info, err := g.bot.GetMe(ctx); err == nil {
		g.username = info.Username
		return g.username
	}
	return g.fallbackUsername
}

func (g *Gateway) channelChatID() telego.ChatID {
	if strings.HasPrefix(g.requiredChannel, "@") {
		return tu.Username(g.requiredChannel)
	}
	if id, err := strconv.ParseInt(g.requiredChannel, 10, 64); err == nil {
		return tu.ID(id)
	}
	return tu.Username("@" + g.requiredChannel)
}
