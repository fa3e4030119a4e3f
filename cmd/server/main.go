/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the lab record-keeping server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and process environment config
  2. Configure zerolog
  3. Open SQLite store (migrates schema on open)
  4. Wire the ledger engine and HTTP router
  5. Start server with graceful shutdown

ENVIRONMENT:
  LABLEDGER_PORT        HTTP server port (default: 8080)
  LABLEDGER_DB_PATH     SQLite database path (default: labledger.db)
                        Use ":memory:" for an in-memory database
  LABLEDGER_JWT_SECRET  HMAC secret for bearer tokens (required)
  LABLEDGER_LOG_LEVEL   zerolog level (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/ehslabs/labledger/api"
	"github.com/ehslabs/labledger/ledger"
	"github.com/ehslabs/labledger/store/sqlite"

	// Domain packages register their families on import.
	_ "github.com/ehslabs/labledger/equipment"
	_ "github.com/ehslabs/labledger/inventory"
	_ "github.com/ehslabs/labledger/reagents"
	_ "github.com/ehslabs/labledger/standards"
)

type config struct {
	Port      int    `envconfig:"PORT" default:"8080"`
	DBPath    string `envconfig:"DB_PATH" default:"labledger.db"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg config
	if err := envconfig.Process("LABLEDGER", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	engine := ledger.NewService(store, ledger.NewSystemClock(), log)
	auth := api.NewAuthenticator(cfg.JWTSecret)
	router := api.NewRouter(engine, auth, log)
	server := api.NewServer(fmt.Sprintf(":%d", cfg.Port), router)

	go func() {
		log.Info().Int("port", cfg.Port).Str("db", cfg.DBPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
