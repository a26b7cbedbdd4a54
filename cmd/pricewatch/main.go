// pricewatch tails the provider's live quote stream for a set of pairs.
// Useful for checking credentials and symbol spellings without running the bot.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"fxsignal-go/internal/marketdata"
	"fxsignal-go/internal/signal"
	"fxsignal-go/internal/util"
)

func main() {
	pairsArg := flag.String("pairs", "EUR/USD,USD/JPY,GBP/USD", "comma-separated pair list")
	streamURL := flag.String("url", "", "override websocket endpoint")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	_ = godotenv.Load()
	log := util.NewLogger(*level)

	apiKey := os.Getenv("TWELVE_DATA_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("TWELVE_DATA_API_KEY is required")
	}

	pairs := make([]string, 0)
	for _, p := range strings.Split(*pairsArg, ",") {
		if p = strings.TrimSpace(p); p != "" {
			pairs = append(pairs, p)
		}
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stream := marketdata.NewStream(apiKey, pairs, util.Component(log, "stream"),
		marketdata.WithStreamURL(*streamURL))
	quotes := make(chan signal.Quote, 64)

	go func() {
		if err := stream.Run(ctx, quotes); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("stream stopped")
			cancel()
		}
	}()

	log.Info().Strs("pairs", pairs).Msg("watching live quotes")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopped")
			return
		case q := <-quotes:
			log.Info().Str("pair", q.Pair).Float64("price", q.Price).Time("ts", q.Ts).Msg("quote")
		}
	}
}
