package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/csousa/bookdata-api/api"
	"github.com/csousa/bookdata-api/catalog"
	"github.com/csousa/bookdata-api/config"
)

func main() {
	config.LoadDotenv()

	defaultCfg := config.DefaultAPIConfig()
	addrDefault := defaultCfg.Addr
	if value, ok := config.EnvString("API_ADDR"); ok {
		addrDefault = value
	}
	dataDefault := defaultCfg.DataFile
	if value, ok := config.EnvString("API_DATA_FILE"); ok {
		dataDefault = value
	}
	secretDefault := defaultCfg.JWTSecret
	if value, ok := config.EnvString("API_JWT_SECRET"); ok {
		secretDefault = value
	}
	ttlDefault := defaultCfg.TokenTTL
	if value, ok, err := config.EnvDuration("API_TOKEN_TTL"); err != nil {
		slog.Error("invalid API_TOKEN_TTL", slog.Any("error", err))
		os.Exit(1)
	} else if ok {
		ttlDefault = value
	}

	addr := flag.String("addr", addrDefault, "Listen address")
	dataFile := flag.String("data", dataDefault, "Path to the scraped books CSV")
	jwtSecret := flag.String("jwt-secret", secretDefault, "JWT signing secret")
	tokenTTL := flag.Duration("token-ttl", ttlDefault, "Access token lifetime")
	mode := flag.String("mode", defaultCfg.Mode, "Gin mode: debug, release, or test")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger := newLogger(*verbose)
	slog.SetDefault(logger)

	// Prices serialize as JSON numbers, matching the original API.
	decimal.MarshalJSONWithoutQuotes = true

	cfg := defaultCfg
	cfg.Addr = *addr
	cfg.DataFile = *dataFile
	cfg.JWTSecret = *jwtSecret
	cfg.TokenTTL = *tokenTTL
	cfg.Mode = *mode
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// A missing snapshot is not fatal: the server starts with an empty
	// catalog and reports unavailable until a reload succeeds.
	snap, err := catalog.LoadCSV(cfg.DataFile)
	if err != nil {
		slog.Warn("catalog not loaded, starting with an empty snapshot",
			slog.String("file", cfg.DataFile),
			slog.Any("error", err),
		)
		snap = catalog.Empty()
	}
	store := catalog.NewStore(snap)
	slog.Info("catalog loaded", slog.Int("books", store.Len()))

	server, err := api.NewServer(cfg, store)
	if err != nil {
		slog.Error("initialising server", slog.Any("error", err))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("serving catalog API", slog.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
