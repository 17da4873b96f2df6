package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("word search server exited")
	}
}

func run(ctx context.Context) error {
	path, required := configPath()
	cfg, err := loadConfig(path, required)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}

	puzzles, err := loadPuzzles(ctx, cfg)
	if err != nil {
		return err
	}

	services, err := setupServices(ctx, cfg, puzzles)
	if err != nil {
		return err
	}
	defer services.Close()

	srv := setupServer(cfg, services.Gateway)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return services.Gateway.Start(gctx) })
	if services.Relay != nil {
		g.Go(func() error { return services.Relay.Run(gctx) })
	}
	if services.Ingest != nil {
		g.Go(func() error { return services.Ingest.Start(gctx) })
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("starting word search server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	services.Scheduler.Start()

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		services.Scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if services.Relay != nil {
		st := services.Relay.Stats()
		log.Info().
			Uint64("published", st.Published).
			Uint64("failed", st.Failed).
			Uint64("dropped", st.Dropped).
			Msg("event relay totals")
	}
	return err
}
