package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"crypto-news-bot/bot"
	"crypto-news-bot/dedup"
	"crypto-news-bot/news"
)

const defaultPause = time.Second

// Fetcher reads the latest batch of items, newest first.
type Fetcher interface {
	Fetch(ctx context.Context) news.FetchResult
}

// Notifier delivers one formatted message.
type Notifier interface {
	Send(ctx context.Context, text string) bot.Delivery
}

// Pacer blocks until the next cycle is due.
type Pacer interface {
	Wait(ctx context.Context) error
}

// TitleResolver looks up a title for an item that arrived without one.
type TitleResolver interface {
	Title(ctx context.Context, url string) (string, error)
}

// Journal records relay attempts.
type Journal interface {
	Record(ctx context.Context, entry *JournalEntry) error
	Totals(ctx context.Context) (JournalTotals, error)
}

// JournalEntry is one relay attempt as handed to the Journal.
type JournalEntry struct {
	CycleID   string
	Item      news.Item
	Delivered bool
	Skipped   bool
	MessageID int
	Error     string
	RelayedAt time.Time
}

// JournalTotals summarises the journal.
type JournalTotals struct {
	Delivered int
	Failed    int
	Skipped   int
}

// Report describes one cycle.
type Report struct {
	CycleID   string
	Fetched   int
	NoID      int
	Relayed   int
	Delivered int
	Failed    int
	Skipped   int
	FetchErr  error
}

// Runner runs the fetch, filter, relay, sleep loop.
type Runner struct {
	source   Fetcher
	notifier Notifier
	seen     *dedup.SeenSet
	pacer    Pacer
	titles   TitleResolver
	journal  Journal
	pause    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	newID    func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithPause sets the pause between consecutive deliveries in one cycle.
func WithPause(d time.Duration) Option {
	return func(r *Runner) {
		r.pause = d
	}
}

// WithTitleResolver enables title lookup for items without a title.
func WithTitleResolver(t TitleResolver) Option {
	return func(r *Runner) {
		r.titles = t
	}
}

// WithJournal records every relay attempt.
func WithJournal(j Journal) Option {
	return func(r *Runner) {
		r.journal = j
	}
}

// NewRunner creates a relay runner. seen is the dedup state owned by this
// runner for the life of the process.
func NewRunner(source Fetcher, notifier Notifier, seen *dedup.SeenSet, pacer Pacer, opts ...Option) *Runner {
	r := &Runner{
		source:   source,
		notifier: notifier,
		seen:     seen,
		pacer:    pacer,
		pause:    defaultPause,
		sleep:    sleepContext,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cycles until ctx is cancelled. The interval between cycles is
// fixed by the pacer and never depends on errors.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("relay loop started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.RunOnce(ctx)

		if err := r.pacer.Wait(ctx); err != nil {
			slog.Info("relay loop stopped", "reason", err)
			return err
		}
	}
}

// RunOnce fetches one batch and relays every item not seen before, oldest
// first so the chat reads chronologically.
func (r *Runner) RunOnce(ctx context.Context) Report {
	report := Report{CycleID: r.newID()}
	log := slog.With("cycle_id", report.CycleID)

	ctx, span := otel.Tracer("crypto-news-bot/relay").Start(ctx, "relay.cycle",
		trace.WithAttributes(attribute.String("relay.cycle_id", report.CycleID)))
	defer span.End()

	log.Info("checking for new headlines")

	res := r.source.Fetch(ctx)
	report.Fetched = len(res.Items)
	report.FetchErr = res.Err
	if len(res.Items) == 0 {
		log.Info("no headlines fetched", "fetch_ok", res.OK())
	}

	for i := len(res.Items) - 1; i >= 0; i-- {
		item := res.Items[i]
		if !item.HasID() {
			report.NoID++
			continue
		}
		if r.seen.Contains(item.ID) {
			continue
		}

		if report.Relayed > 0 && r.pause > 0 {
			if err := r.sleep(ctx, r.pause); err != nil {
				log.Info("cycle interrupted", "error", err)
				break
			}
		}

		r.seen.Add(item.ID)
		report.Relayed++
		log.Info("relaying headline", "item_id", item.ID, "n", report.Relayed)

		d := r.relay(ctx, report.CycleID, item)
		switch {
		case d.Skipped:
			report.Skipped++
		case d.Err != nil:
			report.Failed++
		default:
			report.Delivered++
		}
	}

	span.SetAttributes(
		attribute.Int("relay.fetched", report.Fetched),
		attribute.Int("relay.relayed", report.Relayed),
		attribute.Int("relay.failed", report.Failed),
	)

	if report.Relayed == 0 {
		log.Info("no new headlines")
	}
	log.Info("cycle complete",
		"fetched", report.Fetched,
		"relayed", report.Relayed,
		"delivered", report.Delivered,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"missing_id", report.NoID,
		"seen", r.seen.Len(),
	)
	r.logTotals(ctx, log)

	return report
}

func (r *Runner) relay(ctx context.Context, cycleID string, item news.Item) bot.Delivery {
	if item.Title == "" && item.URL != "" && r.titles != nil {
		title, err := r.titles.Title(ctx, item.URL)
		if err != nil {
			slog.Warn("title lookup failed, using placeholder", "item_id", item.ID, "url", item.URL, "error", err)
		} else {
			item.Title = title
		}
	}

	d := r.notifier.Send(ctx, bot.Format(item))
	r.record(ctx, cycleID, item, d)
	return d
}

func (r *Runner) record(ctx context.Context, cycleID string, item news.Item, d bot.Delivery) {
	if r.journal == nil {
		return
	}

	entry := &JournalEntry{
		CycleID:   cycleID,
		Item:      item,
		Delivered: d.OK(),
		Skipped:   d.Skipped,
		MessageID: d.MessageID,
		RelayedAt: time.Now(),
	}
	if d.Err != nil {
		entry.Error = d.Err.Error()
	}

	if err := r.journal.Record(ctx, entry); err != nil {
		slog.Warn("failed to journal relay", "item_id", item.ID, "error", err)
	}
}

func (r *Runner) logTotals(ctx context.Context, log *slog.Logger) {
	if r.journal == nil {
		return
	}
	totals, err := r.journal.Totals(ctx)
	if err != nil {
		log.Warn("failed to read journal totals", "error", err)
		return
	}
	log.Info("relay totals", "delivered", totals.Delivered, "failed", totals.Failed, "skipped", totals.Skipped)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
