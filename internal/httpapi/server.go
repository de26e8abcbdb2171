// Package httpapi exposes the Telegram webhook endpoint and a small
// administrative read API over gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"usersbox-bot/internal/ledger"
	"usersbox-bot/internal/repository"
	"usersbox-bot/internal/usersbox"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mymmrac/telego"
	"github.com/rs/zerolog/log"
)

// UpdateQueue accepts inbound updates for asynchronous processing.
type UpdateQueue interface {
	Submit(update telego.Update) bool
}

// Deduper reports whether an update id was already delivered.
type Deduper interface {
	Seen(ctx context.Context, updateID int) bool
}

// Notifier pushes a plain message to a Telegram chat.
type Notifier interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

// SearchProvider runs a raw provider query; used by the dashboard proxy.
type SearchProvider interface {
	Search(ctx context.Context, query string) (*usersbox.SearchResult, error)
}

type Server struct {
	secret    string
	queue     UpdateQueue
	dedup     Deduper
	users     repository.UserRepository
	searches  repository.SearchRepository
	referrals repository.ReferralRepository
	ledger    *ledger.Ledger
	notifier  Notifier
	provider  SearchProvider
}

func NewServer(
	secret string,
	queue UpdateQueue,
	dedup Deduper,
	users repository.UserRepository,
	searches repository.SearchRepository,
	referrals repository.ReferralRepository,
	l *ledger.Ledger,
	notifier Notifier,
	provider SearchProvider,
) *Server {
	return &Server{
		secret:    secret,
		queue:     queue,
		dedup:     dedup,
		users:     users,
		searches:  searches,
		referrals: referrals,
		ledger:    l,
		notifier:  notifier,
		provider:  provider,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"*"}
	router.Use(cors.New(corsCfg))

	api := router.Group("/api")
	{
		api.GET("/", s.root)
		api.POST("/webhook/:secret", s.webhook)
		api.GET("/users", s.listUsers)
		api.GET("/searches", s.listSearches)
		api.GET("/stats", s.stats)
		api.POST("/give-attempts", s.giveAttempts)
		api.POST("/search", s.proxySearch)
	}
	return router
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Usersbox Telegram Bot API", "status": "running"})
}

// webhook accepts a Telegram update and enqueues it. Duplicate deliveries and
// updates the bot does not handle are acknowledged without processing, so
// Telegram stops retrying them.
func (s *Server) webhook(c *gin.Context) {
	if c.Param("secret") != s.secret {
		log.Error().Msg("webhook called with invalid secret")
		c.JSON(http.StatusForbidden, gin.H{"detail": "Invalid webhook secret"})
		return
	}

	var update telego.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Error().Err(err).Msg("failed to parse webhook body")
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid update payload"})
		return
	}

	if update.Message == nil && update.CallbackQuery == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if s.dedup.Seen(c.Request.Context(), update.UpdateID) {
		log.Debug().Int("update_id", update.UpdateID).Msg("duplicate update skipped")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	s.queue.Submit(update)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context(), 1000)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) listSearches(c *gin.Context) {
	searches, err := s.searches.Recent(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, searches)
}

func (s *Server) stats(c *gin.Context) {
	ctx := c.Request.Context()

	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	totalSearches, err := s.searches.Count(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	totalReferrals, err := s.referrals.Count(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	successfulSearches, err := s.searches.CountSuccessful(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	successRate := 0.0
	if totalSearches > 0 {
		successRate = float64(successfulSearches) / float64(totalSearches) * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":         totalUsers,
		"total_searches":      totalSearches,
		"total_referrals":     totalReferrals,
		"successful_searches": successfulSearches,
		"success_rate":        successRate,
	})
}

func (s *Server) giveAttempts(c *gin.Context) {
	userID, err1 := strconv.ParseInt(c.Query("user_id"), 10, 64)
	attempts, err2 := strconv.Atoi(c.Query("attempts"))
	if err1 != nil || err2 != nil || attempts <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id and attempts must be positive integers"})
		return
	}

	ctx := c.Request.Context()
	if err := s.ledger.Credit(ctx, userID, attempts); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	if err := s.notifier.SendMarkdown(ctx, userID, grantNoticeText(attempts)); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to notify user about granted attempts")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Gave " + strconv.Itoa(attempts) + " attempts to user " + strconv.FormatInt(userID, 10),
	})
}

// proxySearch forwards a raw query to the provider for the web dashboard. It
// bypasses the ledger and the subscription gate on purpose: the endpoint is
// not reachable by bot users.
func (s *Server) proxySearch(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query is required"})
		return
	}

	result, err := s.provider.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "API request failed: " + err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", result.Raw)
}

func grantNoticeText(attempts int) string {
	return "🎁 *Вам выданы попытки!*\n\n" +
		"💎 Получено попыток: " + strconv.Itoa(attempts) + "\n" +
		"Можете продолжать поиск!"
}
