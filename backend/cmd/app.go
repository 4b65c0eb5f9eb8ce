package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/adwski/fourseat/backend/clock"
	"github.com/adwski/fourseat/backend/model"
	httpServer "github.com/adwski/fourseat/backend/server/http"
	websocketServer "github.com/adwski/fourseat/backend/server/websocket"
	"github.com/adwski/fourseat/backend/service"
	store "github.com/adwski/fourseat/backend/storage/memory"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const envPrefix = "FOURSEAT_"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("failed to load .env file")
	}

	fs := pflag.NewFlagSet("main", pflag.ContinueOnError)
	var (
		apiListenAddr = fs.StringP("api-listen-addr", "a", envString("API_LISTEN_ADDR", ":8080"), "api listen address")
		wsListenAddr  = fs.StringP("ws-listen-addr", "w", envString("WS_LISTEN_ADDR", ":8888"), "websocket seat listen address")
		logLevel      = fs.StringP("log-level", "l", envString("LOG_LEVEL", "debug"), "log level")
		grace         = fs.DurationP("grace", "g", envDuration("GRACE", clock.DefaultGrace), "per-turn grace window")
		timeBank      = fs.DurationP("time-bank", "t", envDuration("TIME_BANK", clock.DefaultTimeBank), "time bank of every seat")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse command line arguments")
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	sessions := store.NewMemStore()
	svc := service.NewService(service.Config{
		SessionStore: sessions,
		Timers:       model.Timers{Grace: *grace, Remaining: *timeBank},
		Logger:       &logger,
	})
	httpSrv := httpServer.NewServer(httpServer.Config{
		Logger:         &logger,
		SessionService: svc,
		ListenAddr:     *apiListenAddr,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:      &logger,
		SeatService: svc,
		ListenAddr:  *wsListenAddr,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(2)
	go httpSrv.Run(ctx, wg, errc)
	go wsSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	logger.Info().Int("sessions", sessions.Len()).Msg("closing sessions")
	sessions.CloseAll()
	wg.Wait()
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
