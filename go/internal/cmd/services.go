package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/gateway"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/orchestrator"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/puzzle"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/relay"
)

type Services struct {
	Scheduler *orchestrator.Scheduler
	Gateway   *gateway.Service
	Relay     *relay.EventRelay // nil unless the event relay is enabled
	Ingest    *relay.ChatIngest // nil unless chat ingest is enabled
	NATS      *nats.Conn
}

// Close releases the NATS connection, if any.
func (s *Services) Close() {
	if s.NATS != nil {
		s.NATS.Close()
	}
}

func setupServices(ctx context.Context, cfg *Config, puzzles []puzzle.Puzzle) (svc *Services, err error) {
	// Gateway -> relay -> scheduler -> ingest. The gateway and relay are the
	// scheduler's publishers; ingest submits into the scheduler.
	svc = &Services{}
	defer func() {
		if err != nil {
			svc.Close()
		}
	}()

	svc.Gateway = gateway.NewService(cfg.gatewayConfig(), nil)
	publishers := orchestrator.FanOut{svc.Gateway}

	var js jetstream.JetStream
	if cfg.NATS.RelayEnabled || cfg.NATS.IngestEnabled {
		connCfg := relay.DefaultConnConfig()
		connCfg.URL = cfg.NATS.URL
		svc.NATS, js, err = relay.Connect(connCfg)
		if err != nil {
			return svc, err
		}
	}

	if cfg.NATS.RelayEnabled {
		sink, err := relay.NewJetStreamSink(ctx, js, cfg.relayConfig())
		if err != nil {
			return svc, fmt.Errorf("failed to set up event relay: %w", err)
		}
		svc.Relay = relay.NewEventRelay(sink, cfg.relayConfig())
		publishers = append(publishers, svc.Relay)
	}

	svc.Scheduler, err = orchestrator.NewScheduler(
		cfg.schedulerConfig(),
		puzzles,
		orchestrator.WithPublisher(publishers),
	)
	if err != nil {
		return svc, fmt.Errorf("failed to create scheduler: %w", err)
	}
	svc.Gateway.SetGame(svc.Scheduler)

	if cfg.NATS.IngestEnabled {
		svc.Ingest, err = relay.NewChatIngest(ctx, js, cfg.ingestConfig(), svc.Scheduler)
		if err != nil {
			return svc, fmt.Errorf("failed to set up chat ingest: %w", err)
		}
	}

	log.Info().
		Bool("event_relay", svc.Relay != nil).
		Bool("chat_ingest", svc.Ingest != nil).
		Msg("services wired")
	return svc, nil
}
