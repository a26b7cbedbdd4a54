package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fxsignal-go/internal/signal"
	"fxsignal-go/internal/strategy"
)

type fakeFetcher struct {
	mu      sync.Mutex
	history map[string][]float64
	latest  map[string][]float64
	histErr error
}

func (f *fakeFetcher) Latest(ctx context.Context, pair string) (signal.Bar, error) {
	if err := ctx.Err(); err != nil {
		return signal.Bar{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.latest[pair]
	if len(queue) == 0 {
		return signal.Bar{}, errors.New("no more bars")
	}
	price := queue[0]
	f.latest[pair] = queue[1:]
	return signal.Bar{Pair: pair, Close: price, Ts: time.Now()}, nil
}

func (f *fakeFetcher) History(ctx context.Context, pair string, count int) ([]signal.Bar, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	closes := f.history[pair]
	bars := make([]signal.Bar, len(closes))
	for i, c := range closes {
		bars[i] = signal.Bar{Pair: pair, Close: c, Ts: time.Now()}
	}
	return bars, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, text)
	return nil
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	copy(out, n.messages)
	return out
}

func newTestEngine(fetcher Fetcher, notifier *recordingNotifier) *Engine {
	cfg := Config{
		Pairs:           []string{"EUR/USD"},
		Timeframe:       "1min",
		UpdateInterval:  10 * time.Millisecond,
		Cooldown:        time.Millisecond,
		HistoryCapacity: 20,
	}
	det := strategy.NewRSICross(2, 60, 40, 0)
	return New(cfg, fetcher, det, notifier, zerolog.Nop())
}

func TestCycleEmitsCallAlertOnce(t *testing.T) {
	fetcher := &fakeFetcher{
		history: map[string][]float64{"EUR/USD": {10, 11, 12, 11.5}},
		latest:  map[string][]float64{"EUR/USD": {9, 8.8}},
	}
	notifier := &recordingNotifier{}
	eng := newTestEngine(fetcher, notifier)

	ctx := context.Background()
	if err := eng.Seed(ctx); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}

	// First cycle: RSI crosses below oversold → CALL alert.
	if err := eng.runCycle(ctx); err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}
	msgs := notifier.all()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0], "CALL") || !strings.Contains(msgs[0], "EUR/USD") {
		t.Fatalf("expected CALL alert for EUR/USD, got:\n%s", msgs[0])
	}

	// Second cycle: still oversold → no re-fire, plain no-opportunity message.
	if err := eng.runCycle(ctx); err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}
	msgs = notifier.all()
	if len(msgs) != 2 {
		t.Fatalf("expected one message per cycle, got %d", len(msgs))
	}
	if !strings.Contains(msgs[1], "No Trading Opportunity") {
		t.Fatalf("expected no-opportunity message, got:\n%s", msgs[1])
	}

	last := eng.LastSignals()
	if ls, ok := last["EUR/USD"]; !ok || ls.Eval.Signal != signal.Call {
		t.Fatalf("expected CALL retained as last signal, got %+v", last)
	}
}

func TestSeedFailureStartsEmpty(t *testing.T) {
	fetcher := &fakeFetcher{
		histErr: errors.New("provider down"),
		latest:  map[string][]float64{"EUR/USD": {1.07}},
	}
	notifier := &recordingNotifier{}
	eng := newTestEngine(fetcher, notifier)

	ctx := context.Background()
	if err := eng.Seed(ctx); err != nil {
		t.Fatalf("seed failure must not abort startup: %v", err)
	}
	if err := eng.runCycle(ctx); err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}
	// One close in history → warm-up, no alert.
	if msgs := notifier.all(); len(msgs) != 0 {
		t.Fatalf("expected no alerts during warm-up, got %v", msgs)
	}
}

func TestFetchFailureSkipsPairOnly(t *testing.T) {
	fetcher := &fakeFetcher{
		history: map[string][]float64{
			"EUR/USD": {},
			"USD/JPY": {10, 11, 12, 11.5},
		},
		latest: map[string][]float64{
			// EUR/USD has no bars → fetch error every cycle.
			"USD/JPY": {9},
		},
	}
	notifier := &recordingNotifier{}
	eng := newTestEngine(fetcher, notifier)
	eng.cfg.Pairs = []string{"EUR/USD", "USD/JPY"}

	ctx := context.Background()
	if err := eng.Seed(ctx); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if err := eng.runCycle(ctx); err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}
	msgs := notifier.all()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "USD/JPY") {
		t.Fatalf("expected USD/JPY to be processed despite EUR/USD failure, got %v", msgs)
	}
}

func TestNotifyFailureDoesNotAbortCycle(t *testing.T) {
	fetcher := &fakeFetcher{
		history: map[string][]float64{"EUR/USD": {10, 11, 12, 11.5}},
		latest:  map[string][]float64{"EUR/USD": {9}},
	}
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	eng := newTestEngine(fetcher, notifier)

	ctx := context.Background()
	if err := eng.Seed(ctx); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if err := eng.runCycle(ctx); err != nil {
		t.Fatalf("delivery failure must not fail the cycle: %v", err)
	}
}

type panickyNotifier struct{}

func (panickyNotifier) Send(context.Context, string) error { panic("boom") }

func TestCyclePanicRecovered(t *testing.T) {
	fetcher := &fakeFetcher{
		history: map[string][]float64{"EUR/USD": {10, 11, 12, 11.5}},
		latest:  map[string][]float64{"EUR/USD": {9}},
	}
	cfg := Config{Pairs: []string{"EUR/USD"}, HistoryCapacity: 20}
	eng := New(cfg, fetcher, strategy.NewRSICross(2, 60, 40, 0), panickyNotifier{}, zerolog.Nop())

	ctx := context.Background()
	if err := eng.Seed(ctx); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	err := eng.runCycle(ctx)
	if err == nil || !strings.Contains(err.Error(), "cycle panic") {
		t.Fatalf("expected recovered panic error, got %v", err)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	fetcher := &fakeFetcher{
		history: map[string][]float64{"EUR/USD": {10, 11, 12, 11.5}},
		latest:  map[string][]float64{"EUR/USD": {9, 8.8, 8.7, 8.6, 8.5, 8.4}},
	}
	notifier := &recordingNotifier{}
	eng := newTestEngine(fetcher, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	// Let at least one cycle happen, then stop.
	deadline := time.After(2 * time.Second)
	for len(notifier.all()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for first cycle")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
