/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Warp Settlement Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present), then parse command-line flags
  2. Configure the logger
  3. Initialize SQLite store and the payroll config cache
  4. Create API handler and start the config refresher
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (environment fallback in brackets):
  -port    HTTP server port [PORT] (default: 8080)
  -db      SQLite database path [DB_PATH] (default: settlement.db)
           Use ":memory:" for in-memory database
  -redis   Redis address for the config cache [REDIS_ADDRESS]
           Empty keeps the cache in process memory

ENVIRONMENT:
  LOG_LEVEL                 logrus level (default: info)
  REDIS_PASSWORD            Redis password
  DEPOSIT_SUFFIX            Appended to deposit display texts
  WITHDRAWAL_SUFFIX         Appended to withdrawal display texts
  CONFIG_REFRESH_INTERVAL   Config cache refresh interval (default: 5m, 0 disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the refresher, close Redis and the database
  4. Exit

EXAMPLES:
  ./server -db="./data/settlement.db"
  ./server -db=":memory:" -redis=localhost:6379

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/warp/settlement-engine/api"
	"github.com/warp/settlement-engine/export"
	"github.com/warp/settlement-engine/payroll"
	"github.com/warp/settlement-engine/store/rediscache"
	"github.com/warp/settlement-engine/store/sqlite"
)

func main() {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	// Flags
	port := flag.Int("port", getEnvInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", getEnv("DB_PATH", "settlement.db"), "SQLite database path")
	redisAddr := flag.String("redis", getEnv("REDIS_ADDRESS", ""), "Redis address for the config cache")
	flag.Parse()

	log := newLogger(getEnv("LOG_LEVEL", "info"))

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Config cache
	var cache payroll.ConfigCache = payroll.NewMemoryCache()
	var refreshLock api.RefreshLock
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: getEnv("REDIS_PASSWORD", ""),
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, config cache reads will fail until it recovers")
		}
		cancel()
		cache = rediscache.New(rdb, rediscache.DefaultKey, 24*time.Hour)
		refreshLock = rediscache.NewLocker(rdb, rediscache.DefaultLockKey, time.Minute)
		log.WithField("addr", *redisAddr).Info("using redis config cache")
	}

	// Initialize handler
	handler := api.NewHandler(store, cache, export.Options{
		DepositSuffix:    getEnv("DEPOSIT_SUFFIX", ""),
		WithdrawalSuffix: getEnv("WITHDRAWAL_SUFFIX", ""),
	}, log)

	refresher := api.NewConfigRefresher(handler.Config, log)
	refresher.Interval = getEnvDuration("CONFIG_REFRESH_INTERVAL", refresher.Interval)
	refresher.Lock = refreshLock
	refresher.Start()
	defer refresher.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", *port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server stopped")
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
