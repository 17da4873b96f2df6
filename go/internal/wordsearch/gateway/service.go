package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/events"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/orchestrator"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/session"
)

// Game is what the gateway needs from the session scheduler
type Game interface {
	Current() *session.Snapshot
	Submit(sessionID, word, playerID string) session.SubmissionResult
	Stats() orchestrator.Stats
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	RateLimitRPS     float64
	RateLimitBurst   int
	LimiterIdleTTL   time.Duration
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		RateLimitRPS:     5,
		RateLimitBurst:   10,
		LimiterIdleTTL:   10 * time.Minute,
	}
}

// Service fans scheduler events out to websocket clients and serves the HTTP game API
type Service struct {
	game        Game
	connections *ConnectionManager
	limiter     *PlayerLimiter
	config      Config
	startedAt   time.Time
}

var _ orchestrator.Publisher = (*Service)(nil)

// NewService creates a new gateway service
func NewService(config Config, game Game) *Service {
	s := &Service{
		game:        game,
		connections: NewConnectionManager(config.ConnectionConfig),
		limiter:     NewPlayerLimiter(config.RateLimitRPS, config.RateLimitBurst),
		config:      config,
		startedAt:   time.Now(),
	}
	s.connections.OnClientMessage(s.handleClientMessage)
	return s
}

// SetGame attaches the scheduler. The gateway is built first so it can be handed to the
// scheduler as its publisher.
func (s *Service) SetGame(game Game) {
	s.game = game
}

// Start runs the broadcast loop until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting word search gateway")

	go s.connections.Start(ctx)

	ttl := s.config.LimiterIdleTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("word search gateway shutting down")
			return nil
		case <-ticker.C:
			if n := s.limiter.Cleanup(ttl); n > 0 {
				log.Debug().Int("removed", n).Msg("pruned idle rate limiters")
			}
		}
	}
}

// Publish implements orchestrator.Publisher. It never blocks.
func (s *Service) Publish(evt events.Event) {
	wsEvent, err := FromEvent(evt)
	if err != nil {
		log.Error().Err(err).Str("event_id", evt.ID).Msg("failed to convert event for broadcast")
		return
	}
	s.connections.Broadcast(wsEvent)
}

// Connections returns the connection manager
func (s *Service) Connections() *ConnectionManager {
	return s.connections
}
