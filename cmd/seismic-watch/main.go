package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siasic/seismic-watch/internal/api"
	"github.com/siasic/seismic-watch/internal/config"
	"github.com/siasic/seismic-watch/internal/ingest"
	"github.com/siasic/seismic-watch/internal/logging"
	"github.com/siasic/seismic-watch/internal/models"
	"github.com/siasic/seismic-watch/internal/observability"
	"github.com/siasic/seismic-watch/internal/repository"
	"github.com/siasic/seismic-watch/internal/view"
	"github.com/siasic/seismic-watch/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	// Catalog writes run off the polling path.
	pool := worker.NewWorkerPool(cfg.Worker.Count, cfg.Worker.BufferSize, func(ctx context.Context, batch worker.Batch) error {
		inserted, err := db.AddBatch(ctx, batch.Events)
		if err != nil {
			return fmt.Errorf("persisting %s batch: %w", batch.Source, err)
		}
		metrics.CatalogInserts.Add(float64(inserted))
		slog.Debug("catalog batch stored", "source", batch.Source, "events", len(batch.Events), "inserted", inserted)
		return nil
	})
	pool.Start(ctx)

	if cfg.Dataset.Path != "" {
		events, report, err := ingest.LoadCatalog(cfg.Dataset.Path)
		if err != nil {
			logging.Fatalf("Failed to load dataset %s: %v", cfg.Dataset.Path, err)
		}
		slog.Info("dataset loaded", "path", cfg.Dataset.Path, "events", len(events), "skipped", report.Skipped)
		pool.Submit(worker.Batch{Source: string(models.SourceCatalog), Events: events})
	}

	broadcaster := ingest.NewBroadcaster()
	selection := view.NewSelection()
	selection.OnRecenter(func(center models.Coordinates) {
		slog.Debug("selection recentered", "latitude", center.Latitude, "longitude", center.Longitude)
	})
	selection.OnCleared(func() {
		slog.Debug("selection cleared")
	})

	feed := ingest.NewFeedClient(cfg.Feed.BaseURL, cfg.Feed.Timeout)
	sel := ingest.Selector{Floor: cfg.Feed.Floor, Window: cfg.Feed.Window, Region: cfg.Feed.Region}
	poller := ingest.NewPoller(feed, sel, cfg.Feed.PollInterval, clockwork.NewRealClock(), metrics)
	poller.OnApply(func(s *ingest.Snapshot) {
		selection.Reconcile(s.Events)
		broadcaster.Broadcast(s)
		pool.Submit(worker.Batch{Source: string(models.SourceFeed), Events: s.Events})
	})
	poller.Refresh()
	poller.SetAutoRefresh(cfg.Feed.AutoRefresh)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	handler := api.NewHandler(poller, db, selection, broadcaster)
	handler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	poller.Close()
	broadcaster.Close() // Close all streams gracefully
	cancel()
	pool.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
