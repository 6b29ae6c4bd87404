package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/naglis/mediaresolver/internal/auth"
	"github.com/naglis/mediaresolver/internal/config"
	"github.com/naglis/mediaresolver/internal/extractor"
	"github.com/naglis/mediaresolver/internal/fetch"
	"github.com/naglis/mediaresolver/internal/metrics"
	"github.com/naglis/mediaresolver/internal/streams"
)

func main() {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: resolver <url> [<url> ...]")
		os.Exit(2)
	}

	logger.Info().
		Str("cache_provider", cfg.Cache.Provider).
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Int("url_count", len(args)).
		Msg("Application started with configuration")

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Sentry")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Start Prometheus metrics HTTP server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Metrics.Address, cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
				logger.Fatal().Err(err).Msg("Failed to serve metrics")
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown metrics server")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := fetch.NewFetcher(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create fetcher")
	}
	defer fetcher.Close()

	var session *auth.Session
	if cfg.LibroFM.Username != "" {
		session, err = auth.Login(ctx, fetcher, extractor.LibroFMLoginURL,
			cfg.LibroFM.Username, cfg.LibroFM.Password,
			map[string]string{"User-Agent": extractor.LibroFMUserAgent})
		if err != nil {
			logger.Fatal().Err(err).Msg("Login failed")
		}
	}

	expander := streams.NewExpander(fetcher)
	registry := extractor.NewRegistry(
		extractor.NewExtremeMusic(fetcher, expander),
		extractor.NewRuutu(fetcher, expander),
		extractor.NewLibroFM(fetcher, session),
	)

	encoder := json.NewEncoder(os.Stdout)
	failures := 0
	for _, rawURL := range args {
		manifest, err := registry.Resolve(ctx, rawURL)
		if err != nil {
			// A failed URL never aborts the rest of the batch.
			sentry.CaptureException(err)
			failures++
			continue
		}
		if err := encoder.Encode(manifest); err != nil {
			logger.Fatal().Err(err).Msg("Failed to write manifest")
		}
	}

	if failures > 0 {
		logger.Warn().Int("failed", failures).Int("total", len(args)).Msg("Some URLs could not be resolved")
		os.Exit(1)
	}
}
