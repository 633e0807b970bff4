package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/vedran77/careteam/internal/config"
	"github.com/vedran77/careteam/internal/database"
	"github.com/vedran77/careteam/internal/database/migrations"
	"github.com/vedran77/careteam/internal/realtime"
	"github.com/vedran77/careteam/internal/repository"
	memoryrepo "github.com/vedran77/careteam/internal/repository/memory"
	postgresrepo "github.com/vedran77/careteam/internal/repository/postgres"
	"github.com/vedran77/careteam/internal/service"
	"github.com/vedran77/careteam/internal/storage"
	"github.com/vedran77/careteam/internal/transport/http/handlers"
	"github.com/vedran77/careteam/internal/transport/http/middleware"
	"github.com/vedran77/careteam/internal/transport/ws"
)

type repos struct {
	profiles  repository.ProfileRepository
	careTeams repository.CareTeamRepository
	messages  repository.MessageRepository
}

// app is the wired server. Close releases every backend connection.
type app struct {
	handler http.Handler
	hub     *ws.Hub
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// Repositories
	var r repos
	switch cfg.Database.Type {
	case "postgres":
		if migrate {
			if err := migrations.Up(cfg.MigrateURL()); err != nil {
				return nil, err
			}
		}
		if _, err := migrations.CheckStatus(cfg.MigrateURL()); err != nil {
			return nil, fmt.Errorf("%w (run `careteam migrate up`)", err)
		}

		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		logger.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)

		r = repos{
			profiles:  postgresrepo.NewProfileRepo(pool),
			careTeams: postgresrepo.NewCareTeamRepo(pool),
			messages:  postgresrepo.NewMessageRepo(pool),
		}
	default:
		store := memoryrepo.NewStore()
		logger.Warn("using in-memory database; data is lost on restart")
		r = repos{
			profiles:  memoryrepo.NewProfileRepo(store),
			careTeams: memoryrepo.NewCareTeamRepo(store),
			messages:  memoryrepo.NewMessageRepo(store),
		}
	}

	// Attachment storage
	signer := storage.NewURLSigner(cfg.Storage.SigningSecret, cfg.Server.PublicBaseURL)
	store, err := storage.NewFromConfig(ctx, cfg, signer)
	if err != nil {
		return nil, fmt.Errorf("attachment storage: %w", err)
	}
	if c, ok := store.(interface{ Close(context.Context) error }); ok {
		a.closers = append(a.closers, func() {
			if err := c.Close(context.Background()); err != nil {
				logger.Warn("closing attachment storage", "error", err)
			}
		})
	}

	// Change bus
	bus, closeBus, err := realtime.NewBusFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("realtime bus: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := closeBus(); err != nil {
			logger.Warn("closing realtime bus", "error", err)
		}
	})
	mode, err := realtime.ParseMode(cfg.Realtime.Mode)
	if err != nil {
		return nil, err
	}

	// Services
	clock := service.RealClock{}
	profileService := service.NewProfileService(r.profiles, clock)
	careTeamService := service.NewCareTeamService(r.careTeams, r.profiles, clock)
	messageService := service.NewMessageService(r.messages, r.careTeams, store, clock, logger, service.MessageOptions{
		MaxFileSize:  cfg.Storage.MaxFileSize,
		SignedURLTTL: cfg.SignedURLTTL(),
	})
	messageService.SetNotifier(realtime.NewBusNotifier(bus, logger))
	composer := service.NewComposer(messageService, logger)

	// Realtime
	a.hub = ws.NewHub(bus, messageService, careTeamService, mode, logger).WithClock(clock.Now)

	// Routes
	rt := &handlers.Router{
		Profiles:  handlers.NewProfileHandler(profileService, logger),
		CareTeams: handlers.NewCareTeamHandler(careTeamService, logger),
		Messages:  handlers.NewMessageHandler(messageService, composer, cfg.Storage.MaxFileSize, logger),
		Files:     handlers.NewFileHandler(signer, store, logger),
		WS:        ws.ServeWS(a.hub, cfg.Auth.JWTSecret, profileService, originPatterns(cfg.Server.AllowedOrigin), logger),
		Auth:      middleware.Auth(cfg.Auth.JWTSecret),
		Session:   middleware.Session(profileService, logger),
	}

	a.handler = middleware.RequestLogger(logger)(middleware.CORS(cfg.Server.AllowedOrigin)(rt.Routes()))
	return a, nil
}

// originPatterns turns the CORS origin into websocket origin patterns.
func originPatterns(allowedOrigin string) []string {
	if allowedOrigin == "" || allowedOrigin == "*" {
		return nil
	}
	if u, err := url.Parse(allowedOrigin); err == nil && u.Host != "" {
		return []string{u.Host}
	}
	return []string{allowedOrigin}
}
