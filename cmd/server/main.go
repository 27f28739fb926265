package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stream-multiview/internal/multiview"
	"stream-multiview/internal/platform/config"
	"stream-multiview/internal/platform/kvstore"
	"stream-multiview/internal/platform/logger"
	"stream-multiview/internal/platform/metrics"
	"stream-multiview/internal/player"
	"stream-multiview/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	rootCmd := &cobra.Command{
		Use:          "multiview",
		Short:        "Serve a two-column page of up to six embedded video players",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	flags := rootCmd.Flags()
	flags.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port (PORT)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (LOG_LEVEL)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "json or text (LOG_FORMAT)")
	flags.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "layout store: memory, pebble or sqlite (STORE_BACKEND)")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the on-disk store (DATA_DIR)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	store, err := kvstore.Open(cfg.StoreBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("close store", "error", err)
		}
	}()

	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	hub := player.NewHub(log)
	players := player.NewFactory(hub, log)
	hub.HandleMessages(players.Dispatch)
	hub.OnConnect(players.Replay)
	go hub.Run(hubCtx)

	mgr := multiview.NewManager(store, players, log)
	mgr.OnChange(func(v multiview.View) {
		if err := hub.Broadcast(player.LayoutMessage(v)); err != nil {
			log.Warn("layout broadcast dropped", "error", err)
		}
	})
	if err := mgr.Restore(); err != nil {
		log.Warn("restore layout failed, starting empty", "error", err)
	}

	met := metrics.New()
	h := multiview.NewHandler(mgr, log, met)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			met.SetActiveStreams(mgr.Count())
			met.SetWSClients(hub.ClientCount())
		}).ServeHTTP(w, r)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", hub.ServeWS)
	r.Route("/api", h.Routes)
	r.Handle("/*", web.Handler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"store", cfg.StoreBackend,
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
