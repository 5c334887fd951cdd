package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"crypto-news-bot/bot"
	"crypto-news-bot/config"
	"crypto-news-bot/cryptopanic"
	"crypto-news-bot/dedup"
	"crypto-news-bot/health"
	"crypto-news-bot/relay"
	"crypto-news-bot/scheduler"
	"crypto-news-bot/scraper"
	"crypto-news-bot/storage"
	"crypto-news-bot/telemetry"
)

func main() {
	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	slog.Info("starting Crypto News Bot")

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Load configuration
	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	slog.Info("config loaded", "path", configPath, "currencies", cfg.Currencies, "filter", cfg.Filter)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Tracing.Enabled, cfg.Tracing.Endpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracer(flushCtx); err != nil {
			slog.Warn("failed to shutdown tracer", "error", err)
		}
	}()

	// Initialize relay journal
	db, err := storage.NewDB(cfg.JournalPath)
	if err != nil {
		slog.Error("failed to initialize journal", "path", cfg.JournalPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("journal initialized", "path", cfg.JournalPath)

	// Initialize scheduler
	spec := cfg.PollSchedule
	if spec == "" {
		spec = scheduler.EverySpec(cfg.PollInterval())
	}
	sched, err := scheduler.NewScheduler(spec, cfg.Timezone)
	if err != nil {
		slog.Error("failed to initialize scheduler", "schedule", spec, "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// Initialize components
	client := cryptopanic.NewClient(
		cfg.CryptoPanicAPIKey,
		cryptopanic.WithTimeout(cfg.FetchTimeout()),
		cryptopanic.WithCurrencies(cfg.Currencies),
		cryptopanic.WithFilter(cfg.Filter),
		cryptopanic.WithKind(cfg.Kind),
	)
	notifier := bot.NewNotifier(
		cfg.TelegramToken,
		cfg.ChatID,
		bot.WithTimeout(cfg.SendTimeout()),
	)
	if !notifier.Enabled() {
		slog.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, headlines will not be delivered")
	}
	if cfg.CryptoPanicAPIKey == "" {
		slog.Warn("CRYPTOPANIC_API_KEY not set, no headlines will be fetched")
	}

	opts := []relay.Option{
		relay.WithPause(cfg.DeliveryPause()),
		relay.WithJournal(&journalAdapter{db}),
	}
	if !cfg.SkipTitleLookup {
		opts = append(opts, relay.WithTitleResolver(scraper.NewScraper(
			scraper.WithTimeout(cfg.FetchTimeout()),
		)))
	}

	runner := relay.NewRunner(client, notifier, dedup.NewSeenSet(), sched, opts...)

	var wg sync.WaitGroup

	if cfg.Port != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := health.NewServer(cfg.Port).Run(ctx); err != nil {
				slog.Error("liveness endpoint failed", "port", cfg.Port, "error", err)
			}
		}()
	}

	slog.Info("relay scheduled", "schedule", spec, "timezone", cfg.Timezone)
	runner.Run(ctx)

	cancel()
	wg.Wait()
	slog.Info("bot stopped")
}

// journalAdapter bridges storage.DB to the relay.Journal interface.
type journalAdapter struct {
	db *storage.DB
}

func (j *journalAdapter) Record(ctx context.Context, entry *relay.JournalEntry) error {
	return j.db.RecordRelay(ctx, &storage.Relay{
		ItemID:     entry.Item.ID,
		Title:      entry.Item.Title,
		URL:        entry.Item.URL,
		Currencies: entry.Item.Currencies,
		Vote:       entry.Item.Vote,
		Delivered:  entry.Delivered,
		Skipped:    entry.Skipped,
		MessageID:  entry.MessageID,
		Error:      entry.Error,
		CycleID:    entry.CycleID,
		RelayedAt:  entry.RelayedAt,
	})
}

func (j *journalAdapter) Totals(ctx context.Context) (relay.JournalTotals, error) {
	t, err := j.db.Totals(ctx)
	if err != nil {
		return relay.JournalTotals{}, err
	}
	return relay.JournalTotals{
		Delivered: t.Delivered,
		Failed:    t.Failed,
		Skipped:   t.Skipped,
	}, nil
}
