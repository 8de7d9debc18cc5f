// Package monitor runs one availability check over every configured target.
//
// A run loads the state file once, fetches and classifies targets one at a
// time with a polite delay in between, batches every fresh restock into a
// single notification, sends a heartbeat when due, and saves the state once
// at the end. Page fetches are not retried inside a run; the next scheduled
// run is the retry.
package monitor

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/restockwatch/internal/availability"
	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/events"
	"git.home.luguber.info/inful/restockwatch/internal/fetch"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/restockwatch/internal/history"
	"git.home.luguber.info/inful/restockwatch/internal/logfields"
	"git.home.luguber.info/inful/restockwatch/internal/metrics"
	"git.home.luguber.info/inful/restockwatch/internal/notify"
	"git.home.luguber.info/inful/restockwatch/internal/observability"
	"git.home.luguber.info/inful/restockwatch/internal/retry"
	"git.home.luguber.info/inful/restockwatch/internal/state"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Runner executes monitoring runs. It holds no state between runs.
type Runner struct {
	cfg       *config.Config
	router    *availability.Router
	fetcher   fetch.Fetcher
	notifier  notify.Notifier
	publisher events.Publisher
	history   history.Recorder
	recorder  metrics.Recorder
	now       func() time.Time
	sleep     Sleeper
	newID     func() string
	persist   bool
}

// Option customises a Runner.
type Option func(*Runner)

// WithPublisher sets the transition event publisher.
func WithPublisher(p events.Publisher) Option { return func(r *Runner) { r.publisher = p } }

// WithHistory sets the history recorder.
func WithHistory(h history.Recorder) Option { return func(r *Runner) { r.history = h } }

// WithRecorder sets the metrics recorder.
func WithRecorder(m metrics.Recorder) Option { return func(r *Runner) { r.recorder = m } }

// WithClock overrides the run clock.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// WithSleeper overrides the polite delay implementation.
func WithSleeper(s Sleeper) Option { return func(r *Runner) { r.sleep = s } }

// WithRunIDs overrides run ID generation.
func WithRunIDs(f func() string) Option { return func(r *Runner) { r.newID = f } }

// WithoutPersistence keeps the state file, history and event stream
// untouched. Used for dry runs.
func WithoutPersistence() Option { return func(r *Runner) { r.persist = false } }

// New creates a Runner. The rule sets in cfg are compiled here, so a bad
// pattern fails before any page is fetched.
func New(cfg *config.Config, fetcher fetch.Fetcher, notifier notify.Notifier, opts ...Option) (*Runner, error) {
	router, err := availability.NewRouterFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:       cfg,
		router:    router,
		fetcher:   fetcher,
		notifier:  notifier,
		publisher: events.Noop{},
		history:   history.Noop{},
		recorder:  metrics.NoopRecorder{},
		now:       time.Now,
		sleep:     retry.Wait,
		newID:     uuid.NewString,
		persist:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run performs one pass over the configured targets.
//
// Fetch failures never fail the run. A notification failure is returned as a
// notify error after the affected restock entries were rolled back, so the
// next run alerts again. Cancellation stops the loop, rolls back this run's
// restocks and returns the context error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: r.newID(), Start: r.now()}
	ctx = observability.WithRunID(ctx, report.RunID)
	observability.InfoContext(ctx, "Run started", slog.Int("targets", len(r.cfg.Targets)))

	store := state.Load(r.cfg.State.Path)

	var batch []TargetResult
	var loopErr error
	for i, target := range r.cfg.Targets {
		if i > 0 && r.cfg.Run.Delay > 0 {
			if err := r.sleep(ctx, r.cfg.Run.Delay); err != nil {
				loopErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}
		res := r.check(ctx, store, target)
		report.Results = append(report.Results, res)
		if res.Restocked() {
			batch = append(batch, res)
		}
	}
	if loopErr == nil {
		loopErr = ctx.Err()
	}

	if loopErr != nil {
		rollback(store, batch)
		observability.WarnContext(ctx, "Run interrupted, restocks rolled back",
			logfields.BatchSize(len(batch)), logfields.Error(loopErr))
		if err := r.save(ctx, store); err != nil {
			observability.ErrorContext(ctx, "Failed to save state after interruption", logfields.Error(err))
		}
		r.finish(ctx, report, store, metrics.OutcomeCanceled)
		return report, loopErr
	}

	// Detach from cancellation so a shutdown signal arriving after the loop
	// does not drop an alert that is already decided.
	sendCtx := context.WithoutCancel(ctx)

	var runErr error
	if len(batch) > 0 {
		if err := r.sendRestock(sendCtx, batch); err != nil {
			rollback(store, batch)
			runErr = err
		} else {
			for _, res := range batch {
				report.Restocked = append(report.Restocked, res.Target)
			}
		}
	}

	sent, err := r.heartbeat(sendCtx, store, report.RunID)
	report.HeartbeatSent = sent
	if err != nil && runErr == nil {
		runErr = err
	}

	if err := r.save(ctx, store); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			observability.ErrorContext(ctx, "Failed to save state", logfields.Error(err))
		}
	}

	outcome := metrics.OutcomeSuccess
	if runErr != nil {
		outcome = metrics.OutcomeFailed
	}
	r.finish(ctx, report, store, outcome)
	return report, runErr
}

func (r *Runner) check(ctx context.Context, store *state.Store, target config.Target) TargetResult {
	start := r.now()
	prev := store.Get(target.URL)
	res := TargetResult{Target: target, Previous: prev, Current: prev}
	host := hostOf(target.URL)

	content, err := r.fetcher.Fetch(ctx, target.URL)
	res.Duration = r.now().Sub(start)
	r.recorder.ObserveFetchDuration(host, res.Duration, err == nil)
	if err != nil {
		res.Err = err
		if prev.IsNone() {
			store.Set(target.URL, availability.NotAvailable)
			res.Current = availability.Seen(availability.NotAvailable)
		}
		observability.WarnContext(ctx, "Fetch failed, keeping stored state",
			logfields.Target(target.URL), logfields.Host(host),
			logfields.State(availability.Label(res.Current)), logfields.Error(err))
		return res
	}

	classifier, ruleSet := r.router.For(target.URL)
	current := classifier.Classify(content)
	store.Set(target.URL, current)
	res.Current = availability.Seen(current)
	res.RuleSet = ruleSet
	r.recorder.IncClassification(ruleSet, string(current))

	attrs := []slog.Attr{
		logfields.Target(target.URL), logfields.RuleSet(ruleSet),
		logfields.PrevState(availability.Label(prev)), logfields.State(string(current)),
		logfields.DurationMS(float64(res.Duration.Microseconds()) / 1000),
	}
	if !res.Changed() {
		observability.DebugContext(ctx, "Target unchanged", attrs...)
		return res
	}
	observability.InfoContext(ctx, "Target changed state", attrs...)
	r.recordTransition(ctx, res)
	return res
}

func (r *Runner) recordTransition(ctx context.Context, res TargetResult) {
	from := availability.Label(res.Previous)
	to := availability.Label(res.Current)
	r.recorder.IncTransition(from, to)
	if !r.persist {
		return
	}
	runID := observability.GetContext(ctx).RunID
	ts := r.now().UTC()

	err := r.publisher.Publish(ctx, events.TransitionEvent{
		Kind:      events.KindTransition,
		RunID:     runID,
		Target:    res.Target.URL,
		Name:      res.Target.Name,
		Previous:  from,
		Current:   to,
		RuleSet:   res.RuleSet,
		Timestamp: ts,
	})
	if err != nil {
		observability.WarnContext(ctx, "Failed to publish transition", logfields.Target(res.Target.URL), logfields.Error(err))
	}
	err = r.history.Append(ctx, history.Entry{
		RunID: runID, Kind: string(events.KindTransition), Target: res.Target.URL,
		Previous: from, Current: to, Timestamp: ts,
	})
	if err != nil {
		observability.WarnContext(ctx, "Failed to record history", logfields.Target(res.Target.URL), logfields.Error(err))
	}
}

func (r *Runner) sendRestock(ctx context.Context, batch []TargetResult) error {
	lines := make([]string, 0, len(batch))
	for _, res := range batch {
		lines = append(lines, res.Target.Label())
	}
	if err := r.notifier.Send(ctx, notify.RestockMessage(lines)); err != nil {
		r.recorder.IncNotification("restock", metrics.OutcomeFailed)
		observability.ErrorContext(ctx, "Failed to send restock notification",
			logfields.BatchSize(len(batch)), logfields.Error(err))
		return asNotifyError(err, "send restock notification")
	}
	r.recorder.IncNotification("restock", metrics.OutcomeSuccess)
	observability.InfoContext(ctx, "Restock notification sent", logfields.BatchSize(len(batch)))
	return nil
}

// heartbeatDue reports whether the interval has elapsed. A store without a
// timestamp is always due.
func (r *Runner) heartbeatDue(store *state.Store, now time.Time) bool {
	if !r.cfg.Heartbeat.Enabled() {
		return false
	}
	last, ok := store.LastHeartbeat().Get()
	if !ok {
		return true
	}
	return now.Sub(last) > r.cfg.Heartbeat.Interval
}

func (r *Runner) heartbeat(ctx context.Context, store *state.Store, runID string) (bool, error) {
	now := r.now()
	if !r.heartbeatDue(store, now) {
		return false, nil
	}
	tracked := len(r.cfg.Targets)
	available := store.CountAvailable(r.cfg.TargetURLs())
	if err := r.notifier.Send(ctx, notify.HeartbeatMessage(tracked, available)); err != nil {
		r.recorder.IncNotification("heartbeat", metrics.OutcomeFailed)
		observability.ErrorContext(ctx, "Failed to send heartbeat", logfields.Error(err))
		return false, asNotifyError(err, "send heartbeat")
	}
	r.recorder.IncNotification("heartbeat", metrics.OutcomeSuccess)
	store.SetLastHeartbeat(now)
	observability.InfoContext(ctx, "Heartbeat sent", slog.Int("tracked", tracked), slog.Int("available", available))

	if r.persist {
		if err := r.history.Append(ctx, history.Entry{RunID: runID, Kind: string(events.KindHeartbeat), Timestamp: now}); err != nil {
			observability.WarnContext(ctx, "Failed to record history", logfields.Error(err))
		}
	}
	return true, nil
}

func (r *Runner) save(ctx context.Context, store *state.Store) error {
	if !r.persist {
		observability.DebugContext(ctx, "Dry run, state not saved", logfields.Path(store.Path()))
		return nil
	}
	return store.Save()
}

func (r *Runner) finish(ctx context.Context, report *Report, store *state.Store, outcome metrics.Outcome) {
	report.End = r.now()
	report.Tracked = len(r.cfg.Targets)
	report.Available = store.CountAvailable(r.cfg.TargetURLs())
	r.recorder.ObserveRunDuration(report.Duration(), outcome)
	r.recorder.SetTargets(report.Tracked, report.Available)
	r.recorder.SetLastRun(report.End)
	observability.InfoContext(ctx, "Run finished",
		slog.String("outcome", string(outcome)),
		slog.Int("failed", len(report.Failed())),
		logfields.BatchSize(len(report.Restocked)),
		slog.Bool("heartbeat", report.HeartbeatSent),
		logfields.DurationMS(float64(report.Duration().Milliseconds())))
}

// rollback restores the previous value of every batched target.
func rollback(store *state.Store, batch []TargetResult) {
	for _, res := range batch {
		store.Restore(res.Target.URL, res.Previous)
	}
}

func asNotifyError(err error, msg string) error {
	if errors.HasCategory(err, errors.CategoryNotify) {
		return err
	}
	return errors.WrapError(err, errors.CategoryNotify, msg).Fatal().Build()
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// IsCanceled reports whether err came from context cancellation.
func IsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
