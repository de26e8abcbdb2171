package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"usersbox-bot/internal/bot"
	"usersbox-bot/internal/config"
	"usersbox-bot/internal/database"
	"usersbox-bot/internal/dedup"
	"usersbox-bot/internal/httpapi"
	"usersbox-bot/internal/ledger"
	"usersbox-bot/internal/logger"
	"usersbox-bot/internal/referral"
	"usersbox-bot/internal/repository"
	"usersbox-bot/internal/search"
	"usersbox-bot/internal/subscription"
	"usersbox-bot/internal/usersbox"
	"usersbox-bot/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/mymmrac/telego"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init("usersbox-bot", cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	users := repository.NewUserRepository(db)
	searches := repository.NewSearchRepository(db)
	referrals := repository.NewReferralRepository(db)

	gw := bot.NewGateway(tgBot, cfg.RequiredChannel, cfg.BotUsername)
	attempts := ledger.New(users)
	gate := subscription.NewGate(gw)
	redeemer := referral.NewProcessor(users, referrals, attempts, gw)
	provider := usersbox.NewClient(cfg.UsersboxURL, cfg.UsersboxToken)
	dispatcher := search.NewDispatcher(provider, gate, attempts, searches, bot.ProgressNotifier(gw))
	router := bot.NewRouter(users, referrals, searches, dispatcher, redeemer, gate, attempts, gw, cfg.AdminUsername, cfg.RequiredChannel)

	pool := worker.NewPool(router, cfg.WorkerPoolSize)
	deduper := dedup.New(rdb)
	api := httpapi.NewServer(cfg.WebhookSecret, pool, deduper, users, searches, referrals, attempts, gw, provider)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolDone := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(poolDone)
	}()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Router(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.PollingMode {
		g.Go(func() error {
			updates, err := tgBot.UpdatesViaLongPolling(ctx, nil)
			if err != nil {
				return fmt.Errorf("failed to start long polling: %w", err)
			}
			log.Info().Msg("long polling started")
			for update := range updates {
				pool.Submit(update)
			}
			return nil
		})
	}

	err = g.Wait()

	// All producers are stopped, let the pool drain what is queued.
	pool.Close()
	<-poolDone

	if err != nil {
		log.Fatal().Err(err).Msg("service terminated")
	}
	log.Info().Msg("service stopped")
}
