package marketdata

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fxsignal-go/internal/signal"
)

const defaultStreamURL = "wss://ws.twelvedata.com/v1/quotes/price"

type streamSubscribe struct {
	Action string       `json:"action"`
	Params streamParams `json:"params"`
}

type streamParams struct {
	Symbols string `json:"symbols"`
}

type streamEvent struct {
	Event     string  `json:"event"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// Stream maintains a websocket subscription to the provider's live quote feed.
// It is a diagnostics-oriented companion to the polling Client; the trading
// loop itself stays on the bar-polling path.
type Stream struct {
	url    string
	apiKey string
	pairs  []string
	log    zerolog.Logger
}

// NewStream builds a quote stream for the given pairs.
func NewStream(apiKey string, pairs []string, log zerolog.Logger, opts ...StreamOption) *Stream {
	s := &Stream{
		url:    defaultStreamURL,
		apiKey: apiKey,
		pairs:  pairs,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StreamOption configures Stream construction parameters.
type StreamOption func(*Stream)

// WithStreamURL points the stream at a non-default websocket endpoint.
func WithStreamURL(url string) StreamOption {
	return func(s *Stream) {
		if url != "" {
			s.url = url
		}
	}
}

// Run pushes quotes onto out until the context is canceled, reconnecting
// with capped backoff on transport failures.
func (s *Stream) Run(ctx context.Context, out chan<- signal.Quote) error {
	if len(s.pairs) == 0 {
		return fmt.Errorf("quote stream requires at least one pair")
	}

	url := s.url
	if s.apiKey != "" {
		url = fmt.Sprintf("%s?apikey=%s", s.url, s.apiKey)
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, url, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("quote stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		backoff = time.Second
	}
}

func (s *Stream) consume(ctx context.Context, url string, out chan<- signal.Quote) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sub := streamSubscribe{Action: "subscribe", Params: streamParams{Symbols: strings.Join(s.pairs, ",")}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	// Unblock ReadJSON when the context is torn down.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var event streamEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		quote, ok := parseStreamEvent(event)
		if !ok {
			continue
		}
		select {
		case out <- quote:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func parseStreamEvent(event streamEvent) (signal.Quote, bool) {
	if event.Event != "price" || event.Symbol == "" || event.Price <= 0 {
		return signal.Quote{}, false
	}
	ts := time.Now().UTC()
	if event.Timestamp > 0 {
		ts = time.Unix(event.Timestamp, 0).UTC()
	}
	return signal.Quote{Pair: event.Symbol, Price: event.Price, Ts: ts}, true
}
