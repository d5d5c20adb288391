package lister

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kula-app/upcoming-contests/internal/clist"
	"github.com/kula-app/upcoming-contests/internal/config"
	"github.com/kula-app/upcoming-contests/internal/report"
)

// ContestSource resolves resources and lists their upcoming contests
type ContestSource interface {
	ResolveResources(ctx context.Context, names []string) (map[string]int64, error)
	UpcomingContests(ctx context.Context, resourceIDs []int64) ([]clist.Contest, error)
}

// Notifier receives changed listings after they were printed,
// and reminders for contests that are about to start
type Notifier interface {
	Notify(ctx context.Context, contests []clist.Contest) error
	Remind(ctx context.Context, contest clist.Contest, startsIn time.Duration) error
}

// ReminderWindow is how far a contest start may be from the reminder lead time
// and still get a reminder. A watch interval up to twice this long sees every contest.
const ReminderWindow = 5 * time.Minute

// Lister prints upcoming contests for the configured resources
type Lister struct {
	source   ContestSource
	notifier Notifier
	out      io.Writer
	logger   *slog.Logger
	config   *config.Config
	now      func() time.Time

	// forwarded is the key of the last listing the notifier accepted
	forwarded     string
	haveForwarded bool

	// reminded holds the start time of every contest a reminder was sent for
	reminded map[int64]time.Time
}

// Option customizes a Lister
type Option func(*Lister)

// WithClock replaces the clock used to find contests that need a reminder
func WithClock(now func() time.Time) Option {
	return func(l *Lister) {
		l.now = now
	}
}

// New creates a new lister. The notifier may be nil.
func New(source ContestSource, notifier Notifier, out io.Writer, logger *slog.Logger, cfg *config.Config, opts ...Option) *Lister {
	l := &Lister{
		source:   source,
		notifier: notifier,
		out:      out,
		logger:   logger,
		config:   cfg,
		now:      time.Now,
		reminded: make(map[int64]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run lists contests once, then again on every watch interval until ctx is canceled.
// Without a watch interval it returns after the first listing.
func (l *Lister) Run(ctx context.Context) error {
	if l.config.WatchInterval <= 0 {
		return l.ListOnce(ctx)
	}

	l.logger.Info("starting watch loop",
		"interval", l.config.WatchInterval,
		"resources", l.config.Resources,
		"remind_before", l.config.RemindBefore)

	// Run initial listing immediately
	if err := l.ListOnce(ctx); err != nil {
		l.logger.Error("initial listing failed", "error", err)
	}

	ticker := time.NewTicker(l.config.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("watch loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := l.ListOnce(ctx); err != nil {
				l.logger.Error("listing failed", "error", err)
			}
		}
	}
}

// ListOnce performs a single listing: resolve resources, fetch contests, print them.
// API failures are logged and end the listing early; only output failures are returned.
func (l *Lister) ListOnce(ctx context.Context) error {
	startTime := time.Now()
	l.logger.Debug("listing started", "resources", l.config.Resources)

	// 1. Resolve platform names to resource IDs
	idsByName, err := l.source.ResolveResources(ctx, l.config.Resources)
	if err != nil {
		l.logger.Error("failed to resolve resources", "error", err)
		idsByName = map[string]int64{}
	}

	// 2. Keep the configured order and report every name the API did not know
	resourceIDs := make([]int64, 0, len(l.config.Resources))
	for _, name := range l.config.Resources {
		id, ok := idsByName[name]
		if !ok {
			l.logger.Warn("resource ID not found", "name", name)
			continue
		}
		resourceIDs = append(resourceIDs, id)
	}

	if len(resourceIDs) == 0 {
		return l.println(report.MsgNoValidResource)
	}

	l.logger.Debug("resources resolved",
		"requested", len(l.config.Resources),
		"found", len(resourceIDs))

	// 3. Fetch upcoming contests for the resolved resources
	contests, err := l.source.UpcomingContests(ctx, resourceIDs)
	if errors.Is(err, clist.ErrNoResourceIDs) {
		return l.println(report.MsgNoResourceIDs)
	}
	if err != nil {
		l.logger.Error("failed to fetch contests", "error", err)
		return nil
	}

	// 4. Print the table
	if err := report.WriteTable(l.out, contests); err != nil {
		return fmt.Errorf("failed to write contest table: %w", err)
	}

	// 5. Forward the listing and remind about contests starting soon
	if l.notifier != nil {
		l.forward(ctx, contests)
		l.remind(ctx, contests)
	}

	l.logger.Debug("listing completed",
		"duration", time.Since(startTime),
		"resources", len(resourceIDs),
		"contests", len(contests))

	return nil
}

// forward hands the listing to the notifier unless it equals the last one forwarded
func (l *Lister) forward(ctx context.Context, contests []clist.Contest) {
	key := listingKey(contests)
	if l.haveForwarded && key == l.forwarded {
		l.logger.Debug("listing unchanged, not forwarded")
		return
	}

	if err := l.notifier.Notify(ctx, contests); err != nil {
		l.logger.Warn("failed to forward listing", "error", err)
		return
	}
	l.forwarded = key
	l.haveForwarded = true
}

// remind sends one reminder per contest whose start is RemindBefore away, give or take ReminderWindow.
// Contests whose reminder failed are tried again on the next listing.
func (l *Lister) remind(ctx context.Context, contests []clist.Contest) {
	if l.config.RemindBefore <= 0 {
		return
	}

	now := l.now().UTC()

	// Started contests never come back, so their entries can go
	for id, start := range l.reminded {
		if !start.After(now) {
			delete(l.reminded, id)
		}
	}

	earliest := l.config.RemindBefore - ReminderWindow
	latest := l.config.RemindBefore + ReminderWindow

	for _, contest := range contests {
		if _, sent := l.reminded[contest.ID]; sent {
			continue
		}

		start, err := contest.StartTime()
		if err != nil {
			l.logger.Debug("skipping reminder", "contest", contest.Event, "error", err)
			continue
		}

		startsIn := start.Sub(now)
		if startsIn <= 0 || startsIn < earliest || startsIn > latest {
			continue
		}

		if err := l.notifier.Remind(ctx, contest, startsIn); err != nil {
			l.logger.Warn("failed to send reminder", "contest", contest.Event, "error", err)
			continue
		}
		l.reminded[contest.ID] = start
	}
}

func listingKey(contests []clist.Contest) string {
	var b strings.Builder
	for _, contest := range contests {
		fmt.Fprintf(&b, "%d@%s;", contest.ID, contest.Start)
	}
	return b.String()
}

func (l *Lister) println(msg string) error {
	if _, err := fmt.Fprintln(l.out, msg); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
