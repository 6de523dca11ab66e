package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"newsagent/internal/app"
	"newsagent/internal/config"
)

func main() {
	mode := flag.String("mode", "process", "Run mode (process, trending, cached, clear, status)")
	topic := flag.String("topic", "", "Topic to process (process mode)")
	maxArticles := flag.Int("max", 0, "Article budget for the run (0 uses the configured default)")
	language := flag.String("lang", "", "Two-letter article language (defaults to the configured language)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	setLogLevel(cfg.LogLevel)

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}

	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close caches")
		}
	}()

	application.StartJanitors(ctx)

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	lang := *language
	if lang == "" {
		lang = cfg.Language
	}

	budget := *maxArticles
	if budget <= 0 {
		budget = cfg.MaxArticles
	}

	if err := runMode(ctx, application, *mode, *topic, budget, lang); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// setLogLevel sets the global log level based on the configuration.
func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func runMode(ctx context.Context, application *app.App, mode, topic string, maxArticles int, language string) error {
	switch mode {
	case "process":
		return application.RunProcess(ctx, topic, maxArticles, language)
	case "trending":
		return application.RunTrending(ctx, language)
	case "cached":
		return application.RunCached(ctx)
	case "clear":
		return application.RunClear(ctx)
	case "status":
		return application.RunStatus(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[process|trending|cached|clear|status]", os.Args[0])

		return nil
	}
}
