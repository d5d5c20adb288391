package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kula-app/upcoming-contests/internal/clist"
	"github.com/kula-app/upcoming-contests/internal/config"
	"github.com/kula-app/upcoming-contests/internal/lister"
	"github.com/kula-app/upcoming-contests/internal/logging"
	"github.com/kula-app/upcoming-contests/internal/notify"
)

const defaultEnvFile = ".env"

// The run function is like the main function, except that it takes in operating system fundamentals as arguments, and returns an error.
//
// If the run function finishes without an error, it means the application completed.
// If the run function returns an error, it means the application failed to complete.
// API failures are not errors of the application: they are logged and the listing ends early.
func run(ctx context.Context, args []string, getenv func(key string) string, stdout, stderr io.Writer) error {
	// Parse command-line flags
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(stderr)
	envFile := flags.String("env-file", defaultEnvFile, "Read variables missing from the environment from this file (empty disables)")
	resources := flags.String("resources", "", "Comma-separated platform names (default: codechef.com,leetcode.com,codeforces.com)")
	watchInterval := flags.Duration("watch", 0, "Repeat the listing on this interval (e.g., 30m, 6h)")
	remindBefore := flags.Duration("remind", 0, "Send a Telegram reminder this long before each contest starts (e.g., 30m)")
	httpTimeout := flags.Duration("timeout", 0, "Override the HTTP timeout (e.g., 10s)")
	logLevel := flags.String("log-level", "", "Override the log level (debug, info, warn, error)")
	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	// Values from the environment always win over the env file
	getenv, err := withEnvFile(getenv, *envFile)
	if err != nil {
		return err
	}

	// Load configuration. Missing credentials stop here, before any request is made.
	cfg, err := config.FromEnv(getenv)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *resources != "" {
		cfg.Resources = config.ParseResources(*resources)
	}
	if *watchInterval > 0 {
		cfg.WatchInterval = *watchInterval
	}
	if *remindBefore > 0 {
		cfg.RemindBefore = *remindBefore
	}
	if *httpTimeout > 0 {
		cfg.HTTPTimeout = *httpTimeout
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := slog.New(logging.NewTerminalHandler(stderr, level))

	// Derive a context that is canceled on OS interrupt/termination, so a watch
	// loop or an in-flight request stops when the process is asked to stop.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Debug("configuration loaded",
		"base_url", cfg.BaseURL,
		"resources", cfg.Resources,
		"page_limit", cfg.PageLimit,
		"http_timeout", cfg.HTTPTimeout,
		"watch_interval", cfg.WatchInterval,
		"remind_before", cfg.RemindBefore,
		"telegram", cfg.TelegramEnabled())

	client, err := clist.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create clist client: %w", err)
	}

	var notifier lister.Notifier
	if cfg.TelegramEnabled() {
		opts := []notify.TelegramOption{
			notify.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		}
		if cfg.TelegramAPIEndpoint != "" {
			opts = append(opts, notify.WithAPIEndpoint(cfg.TelegramAPIEndpoint))
		}
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, logger, opts...)
		if err != nil {
			// Listing continues without the Telegram sink
			logger.Warn("telegram sink disabled", "error", err)
		} else {
			notifier = tg
		}
	}

	l := lister.New(client, notifier, stdout, logger, cfg)
	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("listing failed: %w", err)
	}

	if cfg.WatchInterval > 0 {
		logger.Info("stopped gracefully")
	}
	return nil
}

// withEnvFile returns a getenv that falls back to the values of the given env file.
// A missing default file is ignored; a missing file that was asked for explicitly is an error.
func withEnvFile(getenv func(key string) string, path string) (func(key string) string, error) {
	if path == "" {
		return getenv, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
			return getenv, nil
		}
		return nil, fmt.Errorf("failed to read env file %q: %w", path, err)
	}

	return func(key string) string {
		if value := getenv(key); value != "" {
			return value
		}
		return values[key]
	}, nil
}
