// Package engine drives the fetch → history → detect → notify cycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fxsignal-go/internal/history"
	"fxsignal-go/internal/metrics"
	"fxsignal-go/internal/notify"
	"fxsignal-go/internal/signal"
	"fxsignal-go/internal/strategy"
)

// Fetcher is the slice of the market-data client the engine depends on.
type Fetcher interface {
	Latest(ctx context.Context, pair string) (signal.Bar, error)
	History(ctx context.Context, pair string, count int) ([]signal.Bar, error)
}

// Config carries the cycle-loop knobs.
type Config struct {
	Pairs           []string
	Timeframe       string
	UpdateInterval  time.Duration
	Cooldown        time.Duration
	HistoryCapacity int
}

// LastSignal records the most recent non-None outcome for a pair.
type LastSignal struct {
	Eval strategy.Evaluation
	Ts   time.Time
}

// Engine owns all per-pair state for the polling loop. Pairs are processed
// sequentially within a cycle, so no series is ever mutated concurrently.
type Engine struct {
	cfg      Config
	fetcher  Fetcher
	store    *history.Store
	detector *strategy.RSICross
	notifier notify.Notifier
	log      zerolog.Logger

	mu   sync.Mutex
	last map[string]LastSignal

	now func() time.Time
}

// New wires the engine together. The history store is created here and owned
// by the engine for its whole lifetime.
func New(cfg Config, fetcher Fetcher, detector *strategy.RSICross, notifier notify.Notifier, log zerolog.Logger) *Engine {
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1min"
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Second
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = 100
	}
	return &Engine{
		cfg:      cfg,
		fetcher:  fetcher,
		store:    history.NewStore(cfg.HistoryCapacity, cfg.Pairs),
		detector: detector,
		notifier: notifier,
		log:      log,
		last:     make(map[string]LastSignal),
		now:      time.Now,
	}
}

// Run announces startup, seeds history once, then polls until ctx is
// canceled. Only cancellation ends the loop; every other failure is logged
// and retried after a cooldown.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.notifier.Send(ctx, notify.FormatStartup(e.cfg.Pairs)); err != nil {
		e.log.Warn().Err(err).Msg("startup notification failed")
	}

	if err := e.Seed(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.runCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Error().Err(err).Msg("cycle failed, cooling down")
			if err := sleepCtx(ctx, e.cfg.Cooldown); err != nil {
				return err
			}
			continue
		}
		if err := sleepCtx(ctx, e.cfg.UpdateInterval); err != nil {
			return err
		}
	}
}

// Seed performs the one-time bulk history fetch per pair. A pair whose seed
// fetch fails starts empty and fills naturally through rolling updates.
func (e *Engine) Seed(ctx context.Context) error {
	for _, pair := range e.cfg.Pairs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bars, err := e.fetcher.History(ctx, pair, e.cfg.HistoryCapacity)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Warn().Err(err).Str("pair", pair).Msg("seed fetch failed, starting empty")
			continue
		}
		closes := make([]float64, len(bars))
		for i, bar := range bars {
			closes[i] = bar.Close
		}
		e.store.Get(pair).Seed(closes)
		e.log.Info().Str("pair", pair).Int("bars", len(closes)).Msg("seeded history")
	}
	return nil
}

// runCycle processes every pair once. A failure on one pair never aborts the
// others; an unexpected panic is converted to an error for the caller's
// cooldown path.
func (e *Engine) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	e.log.Debug().Time("at", e.now()).Msg("cycle started")
	for _, pair := range e.cfg.Pairs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.processPair(ctx, pair)
	}
	return nil
}

func (e *Engine) processPair(ctx context.Context, pair string) {
	bar, err := e.fetcher.Latest(ctx, pair)
	if err != nil {
		e.log.Warn().Err(err).Str("pair", pair).Str("phase", "fetch").Msg("skipping pair this cycle")
		return
	}

	series := e.store.Get(pair)
	series.Append(bar.Close)

	eval, ok := e.detector.Evaluate(series.Snapshot())
	if !ok {
		e.log.Info().Str("pair", pair).
			Int("have", series.Len()).
			Int("need", e.detector.Period()+1).
			Msg("insufficient history, warming up")
		return
	}

	metrics.SignalsTotal.WithLabelValues(pair, eval.Signal.String()).Inc()
	e.log.Info().Str("pair", pair).
		Float64("rsi", eval.Reading.Current).
		Float64("prev_rsi", eval.Reading.Previous).
		Float64("move_pct", eval.MovePct).
		Float64("min_move", e.detector.MinMove()).
		Str("signal", eval.Signal.String()).
		Msg("analysis")

	text := notify.FormatAlert(pair, eval, e.cfg.Timeframe, e.now())
	if err := e.notifier.Send(ctx, text); err != nil {
		metrics.AlertsTotal.WithLabelValues(pair, "failed").Inc()
		e.log.Warn().Err(err).Str("pair", pair).Str("phase", "notify").Msg("alert delivery failed")
	} else {
		metrics.AlertsTotal.WithLabelValues(pair, "sent").Inc()
	}

	if eval.Signal != signal.None {
		e.mu.Lock()
		e.last[pair] = LastSignal{Eval: eval, Ts: e.now()}
		e.mu.Unlock()
	}
}

// LastSignals returns a copy of the most recent non-None signal per pair.
func (e *Engine) LastSignals() map[string]LastSignal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]LastSignal, len(e.last))
	for pair, ls := range e.last {
		out[pair] = ls
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
