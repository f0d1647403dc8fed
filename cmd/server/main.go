package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vedran77/veil/internal/config"
	"github.com/vedran77/veil/internal/database"
	"github.com/vedran77/veil/internal/realtime"
	"github.com/vedran77/veil/internal/repository"
	"github.com/vedran77/veil/internal/repository/memory"
	postgresrepo "github.com/vedran77/veil/internal/repository/postgres"
	"github.com/vedran77/veil/internal/service"
	"github.com/vedran77/veil/internal/transport/http/handlers"
	"github.com/vedran77/veil/internal/transport/http/middleware"
	"github.com/vedran77/veil/internal/transport/ws"
	"github.com/vedran77/veil/internal/voice"
	"github.com/vedran77/veil/internal/voice/livekit"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	repos, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Realtime + voice
	hub := realtime.NewHub(realtime.Deps{Repos: repos, Logger: logger})
	sfu := livekit.New(cfg.LivekitURL, cfg.LivekitAPIKey, cfg.LivekitAPISecret)
	broker := voice.NewBroker(repos, sfu, voice.Config{
		URL:      cfg.LivekitURL,
		TokenTTL: cfg.VoiceTokenTTL,
	}, logger)
	hub.SetVoice(broker)

	// Services
	authService := service.NewAuthService(repos.Users, cfg.JWTSecret)
	maskService := service.NewMaskService(repos.Masks, repos.Users, repos.Uploads)
	maskService.SetNotifier(hub)
	friendService := service.NewFriendService(repos.Friends, repos.Users)
	dmService := service.NewDMService(repos.DMs, repos.Users, repos.Friends)
	roomService := service.NewRoomService(repos.Rooms, repos.Masks, hub)
	serverService := service.NewServerService(repos)
	serverService.SetNotifier(hub)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    limiter,
		Auth:           handlers.NewAuthHandler(authService),
		Masks:          handlers.NewMaskHandler(maskService),
		Friends:        handlers.NewFriendHandler(friendService),
		DMs:            handlers.NewDMHandler(dmService),
		Rooms:          handlers.NewRoomHandler(roomService),
		Servers:        handlers.NewServerHandler(serverService),
		Channel:        handlers.NewChannelHandler(serverService),
		RTC:            handlers.NewRTCHandler(broker),
		WS:             ws.NewHandler(hub, cfg.JWTSecret, cfg.AllowedOrigins, logger),
	})

	// Expire rooms that lapsed while we were down and arm timers for the rest.
	if err := hub.Sweep(ctx); err != nil {
		return fmt.Errorf("sweeping rooms: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Repositories, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New().Repositories(), func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return repository.Repositories{}, nil, err
	}
	logger.Info("connected to database")

	if cfg.Migrations {
		if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
			pool.Close()
			return repository.Repositories{}, nil, err
		}
	}

	return postgresrepo.NewRepositories(pool), pool.Close, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("app", "veil")
}
