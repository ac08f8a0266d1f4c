package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"groundops/internal/domain/auth"
	"groundops/internal/domain/insight"
	"groundops/internal/domain/mutation"
	"groundops/internal/domain/records"
	"groundops/internal/platform/apperror"
	"groundops/internal/platform/config"
	cryptoutil "groundops/internal/platform/crypto"
	"groundops/internal/platform/db"
	"groundops/internal/platform/metrics"
	"groundops/internal/transport/http/api"
	authhandler "groundops/internal/transport/http/handlers/auth"
	corehandler "groundops/internal/transport/http/handlers/core"
	performancehandler "groundops/internal/transport/http/handlers/performance"
	reportshandler "groundops/internal/transport/http/handlers/reports"
	"groundops/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	Logger *zap.Logger
	DB     *db.Pool
	Redis  *redis.Client
	Router http.Handler
}

// Deps are the services the router is built from.
type Deps struct {
	Config    config.Config
	Logger    *zap.Logger
	Repo      *records.Repository
	Auth      *auth.Service
	Mutations *mutation.Service
	Insight   *insight.Service
	Metrics   *metrics.Collector
	// Ready reports backing store readiness; nil means always ready.
	Ready func(ctx context.Context) error
}

// New connects to Postgres (and Redis when configured), applies migrations and
// seed data, warms the record snapshot and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	app := &App{Config: cfg, Logger: logger, DB: pool}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, os.DirFS(cfg.MigrationsDir), logger); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}

	store := records.NewPGStore(pool)
	accounts := auth.NewStore(pool)
	if cfg.RunSeed {
		if err := db.Seed(ctx, store, accounts, cfg, logger.Named("seed")); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		app.Close()
		return nil, err
	}

	repo := records.NewRepository(store, logger)
	repo.Reload(ctx)

	authService := auth.NewService(accounts, repo, crypto, auth.Options{
		Secret:              cfg.JWTSecret,
		SessionTTL:          cfg.SessionTTL,
		ProvisionDepartment: cfg.ProvisionDepartment,
		DefaultScore:        cfg.DefaultScore,
	}, logger)

	if cfg.RedisURL != "" {
		app.Redis, err = connectRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
	}
	generator := insight.NewGeminiClient(cfg.InsightAPIKey, cfg.InsightAPIBase, cfg.InsightModel, cfg.InsightTimeout)

	app.Router = NewRouter(Deps{
		Config:    cfg,
		Logger:    logger,
		Repo:      repo,
		Auth:      authService,
		Mutations: mutation.NewService(repo, authService, logger),
		Insight:   insight.NewService(generator, app.Redis, cfg.InsightCacheTTL, logger),
		Metrics:   metrics.New(),
		Ready: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	})
	return app, nil
}

// connectRedis parses url and pings once. An unreachable cache is logged, not
// fatal: insight generation works without it.
func connectRedis(ctx context.Context, url string, logger *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, insight cache degraded", zap.Error(err))
	}
	return client, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      a.Config.InsightTimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	perms := auth.StaticPermissions{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(d.Logger.Named("http"), d.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(d.Config.Environment == "production"))
	router.Use(middleware.BodyLimit(d.Config.MaxBodyBytes))
	router.Use(middleware.Auth(d.Auth, d.Config.IdentityCheckTimeout))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.With(middleware.RequirePermission(auth.PermSystemAdmin, perms)).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, d.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			api.FailErr(w, r, apperror.NotFound("route not found"))
		})

		authhandler.NewHandler(d.Auth, d.Repo).RegisterRoutes(r, middleware.LoginRateLimit(d.Config.LoginRatePerMinute))
		corehandler.NewHandler(d.Repo, d.Mutations, perms).RegisterRoutes(r)
		performancehandler.NewHandler(d.Repo, d.Insight, perms).RegisterRoutes(r)
		reportshandler.NewHandler(d.Repo, perms).RegisterRoutes(r)

		r.With(middleware.RequirePermission(auth.PermSystemAdmin, perms)).Post("/admin/reload", reloadHandler(d.Repo))
	})

	if d.Config.FrontendDir != "" {
		router.Mount("/", spaHandler{staticPath: d.Config.FrontendDir, indexPath: "index.html"})
	}
	return router
}

type reloadFailure struct {
	Collection string `json:"collection"`
	Error      string `json:"error"`
}

func reloadHandler(repo *records.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := repo.Reload(r.Context())
		failures := []reloadFailure{}
		for _, f := range repo.Failures() {
			failures = append(failures, reloadFailure{Collection: f.Collection, Error: f.Err.Error()})
		}
		api.Success(w, map[string]any{
			"loadedAt": snap.LoadedAt,
			"counts": map[string]int{
				"employees":    len(snap.Employees),
				"departments":  len(snap.Departments),
				"evaluations":  len(snap.Evaluations),
				"notes":        len(snap.Notes),
				"leaves":       len(snap.Leaves),
				"observations": len(snap.Observations),
			},
			"failures": failures,
		}, middleware.GetRequestID(r.Context()))
	}
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	_, err := os.Stat(filepath.Join(h.staticPath, filepath.FromSlash(clean)))
	if err == nil {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
