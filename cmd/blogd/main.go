// blogd - blog provider agent server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/inkroute/inkroute/internal/api"
	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/cdn"
	"github.com/inkroute/inkroute/internal/command"
	"github.com/inkroute/inkroute/internal/config"
	"github.com/inkroute/inkroute/internal/escalation"
	"github.com/inkroute/inkroute/internal/identity"
	"github.com/inkroute/inkroute/internal/imagegen"
	"github.com/inkroute/inkroute/internal/middleware"
	"github.com/inkroute/inkroute/internal/provider/ghost"
	"github.com/inkroute/inkroute/internal/provider/memory"
	"github.com/inkroute/inkroute/internal/scripting"
	"github.com/inkroute/inkroute/internal/session"
	"github.com/inkroute/inkroute/internal/store"
	"github.com/inkroute/inkroute/internal/tools"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	registry, err := buildRegistry(cfg.Blog)
	if err != nil {
		slog.Error("Failed to build provider registry", "error", err)
		os.Exit(1)
	}
	slog.Info("Providers registered", "providers", registry.Names())

	uploader := cdn.NewClient(buildCDNEndpoints(cfg.Blog))
	models := buildImageModels(cfg.Blog)
	hub := escalation.NewHub(cfg.FrontendURL)

	sessions := session.NewManager(session.State{
		ActiveProvider:         cfg.Blog.Defaults.Provider,
		ReviewPatterns:         cfg.Blog.Review.Patterns,
		ReviewEscalationTarget: cfg.Blog.Review.EscalationTarget,
		ReviewTimeout:          cfg.Blog.Review.Timeout.Duration(),
	}, repo)

	svc := blog.NewService(registry, hub)
	images := blog.NewImageService(svc, uploader, models)

	toolDefs := tools.All(tools.Deps{Blog: svc, Images: images})
	scripts := scripting.NewRegistry()
	scripting.RegisterBlogFunctions(scripts, svc)

	// Initialize handlers.
	rpcHandler := api.NewHandler(sessions, svc, images, toolDefs, scripts)
	chatHandler := command.NewWebSocketHandler(svc, images, sessions, cfg.FrontendURL)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware)

	r.Route("/api/blog", rpcHandler.Routes)
	r.Get("/ws/chat", chatHandler.ServeHTTP)
	r.Get("/ws/review/{target}", hub.ServeHTTP)

	// Create server. The chat and review websockets stay open for the
	// lifetime of a conversation, so no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startSessionCleanup(ctx, repo, cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// buildRegistry instantiates the configured provider backends in a
// stable order.
func buildRegistry(cfg config.BlogConfig) (*blog.Registry, error) {
	registry := blog.NewRegistry()
	for _, name := range sortedKeys(cfg.Providers) {
		p := cfg.Providers[name]
		var provider blog.Provider
		switch p.Type {
		case "ghost":
			provider = ghost.New(ghost.Options{
				URL:                  p.URL,
				Key:                  p.Key,
				Description:          p.Description,
				ImageGenerationModel: p.ImageGenerationModel,
				CDNName:              p.CDN,
			})
		case "memory", "":
			provider = memory.New(memory.Options{
				Description:          p.Description,
				ImageGenerationModel: p.ImageGenerationModel,
				CDNName:              p.CDN,
			})
		default:
			return nil, fmt.Errorf("provider %q: unknown type %q", name, p.Type)
		}
		if err := registry.Register(name, provider); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func buildCDNEndpoints(cfg config.BlogConfig) map[string]cdn.Endpoint {
	endpoints := make(map[string]cdn.Endpoint, len(cfg.CDNs))
	for name, c := range cfg.CDNs {
		endpoints[name] = cdn.Endpoint{URL: c.URL, Token: c.Token}
	}
	return endpoints
}

func buildImageModels(cfg config.BlogConfig) *imagegen.Registry {
	registry := imagegen.NewRegistry()
	for name, m := range cfg.ImageModels {
		model := m.Model
		if model == "" {
			model = name
		}
		registry.Register(name, imagegen.NewHTTPClient(m.URL, m.Key, model))
	}
	return registry
}

func sortedKeys(m map[string]config.ProviderConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// startSessionCleanup periodically removes stale persisted sessions.
func startSessionCleanup(ctx context.Context, repo store.Repository, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := repo.CleanupExpiredSessions(ctx, ttl)
				if err != nil {
					slog.Warn("Session cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("Expired sessions removed", "count", removed)
				}
			}
		}
	}()
}
