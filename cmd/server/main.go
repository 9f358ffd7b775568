package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/cesargomez89/karaqueue/internal/blacklist"
	"github.com/cesargomez89/karaqueue/internal/catalog"
	"github.com/cesargomez89/karaqueue/internal/config"
	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/downloads"
	"github.com/cesargomez89/karaqueue/internal/events"
	httpapp "github.com/cesargomez89/karaqueue/internal/http"
	"github.com/cesargomez89/karaqueue/internal/logger"
	"github.com/cesargomez89/karaqueue/internal/playlist"
	"github.com/cesargomez89/karaqueue/internal/store"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	// Notifications: in-process broker for the event stream, Redis when configured
	broker := events.NewBroker()
	notifier := events.Multi{broker}
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Warn("Redis unreachable, notifications will be retried per event", "addr", cfg.RedisAddr, "error", err)
		}
		notifier = append(notifier, events.NewRedisPublisher(rdb, cfg.RedisChannel, appLogger))
	}

	// The playlist manager reads the catalog inside write transactions, so it
	// gets the plain catalog. The cached one writes to the cache table.
	storeCatalog := catalog.NewStoreCatalog(db)
	cachedCatalog := catalog.NewCachedCatalog(storeCatalog, catalog.NewStoreCache(db), cfg.CacheTTL())

	engine := blacklist.NewEngine()
	blacklistService := blacklist.NewService(db, cachedCatalog, engine, notifier, appLogger)
	if err := blacklistService.Reload(ctx); err != nil {
		appLogger.Error("Failed to load blacklist", "error", err)
		os.Exit(1)
	}

	playlists := playlist.NewManager(db, storeCatalog, engine, notifier, appLogger)
	gate := downloads.NewGate(db, cachedCatalog, engine, notifier, appLogger)
	tracker := downloads.NewTracker(db, notifier, appLogger)
	if _, err := tracker.ResetRunning(ctx); err != nil {
		appLogger.Error("Failed to reset interrupted downloads", "error", err)
	}

	h := httpapp.NewHandler(playlists, blacklistService, gate, tracker, broker, appLogger)
	r := httpapp.NewRouter(h, constants.DefaultRequestTimeout)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr, "db", cfg.DBPath, "redis", cfg.RedisEnabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exiting")
}
