package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/homewatt/homewatt/api/config"
	"github.com/homewatt/homewatt/api/handlers"
	"github.com/homewatt/homewatt/api/metrics"
	"github.com/homewatt/homewatt/api/middleware"
	"github.com/homewatt/homewatt/pkg/auth"
	"github.com/homewatt/homewatt/pkg/engine"
	"github.com/homewatt/homewatt/pkg/store"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const maxCompletionTokens = 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists
	_ = godotenv.Load()

	var showVersion, verbose bool
	flag.BoolVar(&showVersion, "version", false, "show version and exit")
	flag.BoolVar(&verbose, "verbose", false, "verbose mode - show debug logs")
	flag.Parse()

	if showVersion {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(verbose || cfg.Verbose)
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, cfg.PostgresDSN(), log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()
	log.Info("connected to postgres", "host", cfg.PostgresHost, "database", cfg.PostgresDB)

	parsers := []engine.Parser{engine.NewKeywordParser(nil)}
	var summarizer engine.Summarizer
	if cfg.AnthropicAPIKey != "" {
		completion := engine.NewAnthropicClient(cfg.AnthropicAPIKey, anthropic.Model(cfg.AnthropicModel), maxCompletionTokens, log)
		parsers = append(parsers, engine.NewModelParser(completion, log))
		if cfg.ModelSummarizer {
			summarizer = engine.NewModelSummarizer(completion, log)
		}
		log.Info("generative parsing enabled", "model", cfg.AnthropicModel, "model_summarizer", cfg.ModelSummarizer)
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, keyword parsing only")
	}

	eng, err := engine.New(&engine.Config{
		Logger:     log,
		Store:      db,
		Parsers:    parsers,
		Summarizer: summarizer,
	})
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, nil)
	srv := handlers.New(log, db, eng, tokens)
	defer srv.Stop()

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", srv.Router(middleware.Auth(tokens)))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server listening", "address", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down gracefully")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}))
}
