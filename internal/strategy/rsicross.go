// Package strategy turns price history into discrete trading signals.
package strategy

import (
	"math"

	"fxsignal-go/internal/indicator"
	"fxsignal-go/internal/signal"
)

// RSICross emits a signal when the oscillator crosses a threshold between two
// consecutive readings. Edge detection rather than level detection: a value
// lingering past a threshold fires exactly once, on the crossing cycle.
type RSICross struct {
	period     int
	overbought float64
	oversold   float64
	minMove    float64
}

// Evaluation is the outcome of one detection pass over a history snapshot.
type Evaluation struct {
	Reading signal.Reading
	Signal  signal.Kind
	Price   float64
	// MovePct is the absolute percent change between the two newest closes.
	// Reported for diagnostics only; it does not gate the signal.
	MovePct float64
}

// NewRSICross builds the crossing detector. The threshold pair is deliberately
// configurable rather than fixed at the conventional 70/30.
func NewRSICross(period int, overbought, oversold, minMove float64) *RSICross {
	if period <= 0 {
		period = 14
	}
	if overbought <= 0 || overbought > 100 {
		overbought = 50
	}
	if oversold <= 0 || oversold >= overbought {
		oversold = 40
	}
	return &RSICross{
		period:     period,
		overbought: overbought,
		oversold:   oversold,
		minMove:    math.Max(0, minMove),
	}
}

// Name returns the configured identifier for logging.
func (s *RSICross) Name() string { return "RSICross" }

// Period returns the oscillator look-back; detection needs Period()+1 closes.
func (s *RSICross) Period() int { return s.period }

// MinMove exposes the configured move filter for logging alongside MovePct.
func (s *RSICross) MinMove() float64 { return s.minMove }

// Evaluate runs the oscillator over closes (oldest first) and classifies the
// newest reading against the previous one. ok is false while the history is
// still too short to compute the oscillator; that is the normal warm-up
// state, not an error.
func (s *RSICross) Evaluate(closes []float64) (Evaluation, bool) {
	rsi := indicator.RSISeries(closes, s.period)
	if len(rsi) == 0 {
		return Evaluation{}, false
	}

	current := round2(rsi[len(rsi)-1])
	previous := current
	if len(rsi) > 1 {
		previous = round2(rsi[len(rsi)-2])
	}

	eval := Evaluation{
		Reading: signal.Reading{Current: current, Previous: previous},
		Signal:  signal.None,
		Price:   closes[len(closes)-1],
	}
	if len(closes) > 1 && closes[len(closes)-2] != 0 {
		prev := closes[len(closes)-2]
		eval.MovePct = math.Abs((eval.Price - prev) / prev * 100)
	}

	eval.Signal = s.classify(current, previous)
	return eval, true
}

func (s *RSICross) classify(current, previous float64) signal.Kind {
	switch {
	case current <= s.oversold && previous > s.oversold:
		return signal.Call
	case current >= s.overbought && previous < s.overbought:
		return signal.Put
	default:
		return signal.None
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
