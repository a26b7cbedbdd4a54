package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fxsignal-go/internal/config"
	"fxsignal-go/internal/engine"
	"fxsignal-go/internal/marketdata"
	"fxsignal-go/internal/metrics"
	"fxsignal-go/internal/notify"
	"fxsignal-go/internal/ratelimit"
	"fxsignal-go/internal/strategy"
	"fxsignal-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML configuration")
	envPath := flag.String("env", ".env", "path to dotenv file with credentials")
	flag.Parse()

	// Missing dotenv is fine; secrets may come from the real environment.
	_ = godotenv.Load(*envPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	cfg.ApplyEnv()

	log := util.NewLogger(cfg.App.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	srv := metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	limiter := ratelimit.New(cfg.Provider.RatePerMinute, time.Minute)
	client := marketdata.NewClient(
		cfg.Provider.APIKey,
		limiter,
		util.Component(log, "marketdata"),
		marketdata.WithBaseURL(cfg.Provider.BaseURL),
		marketdata.WithInterval(cfg.Provider.Interval),
		marketdata.WithTimeout(time.Duration(cfg.Provider.TimeoutSecs)*time.Second),
	)

	var notifier notify.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		notifier = notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		log.Info().Str("chat_id", cfg.Telegram.ChatID).Msg("telegram notifier initialized")
	} else {
		notifier = notify.NewLog(util.Component(log, "notify"))
		log.Warn().Msg("telegram credentials missing, alerts go to the log only")
	}

	detector := strategy.NewRSICross(
		cfg.Strategy.RSIPeriod,
		cfg.Strategy.Overbought,
		cfg.Strategy.Oversold,
		cfg.Strategy.MinMovePct,
	)

	eng := engine.New(engine.Config{
		Pairs:           cfg.Engine.Pairs,
		Timeframe:       cfg.Provider.Interval,
		UpdateInterval:  time.Duration(cfg.Engine.UpdateIntervalSecs) * time.Second,
		Cooldown:        time.Duration(cfg.Engine.CooldownSecs) * time.Second,
		HistoryCapacity: cfg.Engine.HistoryCapacity,
	}, client, detector, notifier, util.Component(log, "engine"))

	log.Info().Strs("pairs", cfg.Engine.Pairs).Msg("signal bot started")
	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("engine stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("bot stopped")
}
