package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/eventloophq/turnstile/admission"
	"github.com/eventloophq/turnstile/cliparse"
	"github.com/eventloophq/turnstile/db"
	"github.com/eventloophq/turnstile/identity"
	"github.com/eventloophq/turnstile/ratelimit"
	"github.com/eventloophq/turnstile/realtime"
	"github.com/eventloophq/turnstile/router"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	driver := "postgres"
	if cfg.DatabaseType == "sqlite" {
		driver = "sqlite"
	}
	dbConn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	// Rate-limit store: Redis when configured, in-process otherwise
	var store ratelimit.Store
	if cfg.RedisAddr != "" {
		store = ratelimit.NewRedisStore(cfg.RedisAddr)
		slog.Info("Using Redis rate-limit store", "addr", cfg.RedisAddr)
	} else {
		memStore := ratelimit.NewMemoryStore()
		defer memStore.Close()
		store = memStore
	}
	limiter := ratelimit.New(store, cfg.RateLimit, cfg.RateWindow)

	// Assemble the admission pipeline
	hub := realtime.NewHub()
	resolver := identity.NewResolver(dbConn, cfg.PhoneHashSalt)
	engine := admission.NewEngine(dbConn, limiter, resolver, hub)

	// Create router
	mux := router.NewRouter(dbConn, cfg, engine, hub)

	// Create server
	server := http.Server{
		Handler: mux,
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
