package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hu-quiz-engine/internal/config"
	"hu-quiz-engine/internal/engine"
	"hu-quiz-engine/internal/infra/postgres"
	rediscache "hu-quiz-engine/internal/infra/redis"
	"hu-quiz-engine/internal/infra/sqlite"
	"hu-quiz-engine/internal/transport/ws"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	eng, closeStores, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	limit := cfg.Leaderboard.Limit
	if limit <= 0 {
		limit = 10
	}
	wsHandler := ws.NewHandler(eng, limit)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildEngine wires catalog and progress stores from config: Postgres when a
// URL is set, otherwise the durable SQLite file; an optional Redis
// read-through cache fronts the catalog.
func buildEngine(ctx context.Context, cfg config.Config) (*engine.Engine, func(), error) {
	var (
		catalog  engine.CatalogStore
		progress engine.ProgressStore
		closers  []func()
	)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		store := postgres.NewStore(pool)
		catalog, progress = store, store
	} else {
		store, err := sqlite.NewStore(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = store.Close() })
		catalog, progress = store, store
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		ttl := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
		catalog = rediscache.NewCatalogCache(client, catalog, ttl)
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return engine.New(catalog, progress), closeAll, nil
}
