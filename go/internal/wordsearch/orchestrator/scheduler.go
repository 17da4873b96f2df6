package orchestrator

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/events"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/grid"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/puzzle"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/session"
)

// Config holds the round timings.
type Config struct {
	RoundDuration     time.Duration
	PendingDelay      time.Duration
	GraceDelay        time.Duration
	RetryDelay        time.Duration
	MaxPuzzleAttempts int
}

// DefaultConfig returns the standard round timings.
func DefaultConfig() Config {
	return Config{
		RoundDuration:     120 * time.Second,
		PendingDelay:      3 * time.Second,
		GraceDelay:        10 * time.Second,
		RetryDelay:        5 * time.Second,
		MaxPuzzleAttempts: 10,
	}
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	RoundsStarted      int            `json:"roundsStarted"`
	RoundsCompleted    int            `json:"roundsCompleted"`
	RoundsExpired      int            `json:"roundsExpired"`
	GenerationFailures int            `json:"generationFailures"`
	Submissions        int            `json:"submissions"`
	WordsFound         int            `json:"wordsFound"`
	CurrentSessionID   string         `json:"currentSessionId,omitempty"`
	CurrentStatus      session.Status `json:"currentStatus,omitempty"`
	PuzzleCount        int            `json:"puzzleCount"`
	RotationRemaining  int            `json:"rotationRemaining"`
}

// Scheduler owns the current game session and drives it through its phases.
//
// Every read and write of the current session and both timers happens under mu. Timer
// callbacks, submissions and snapshot queries all take the same lock, so the ACTIVE
// precondition checked by completion and expiry decides which of them wins a race.
// Events are published while mu is held so subscribers see them in state order.
type Scheduler struct {
	mu sync.Mutex

	cfg       Config
	clock     Clock
	rng       *rand.Rand
	generator *grid.Generator
	rotation  *puzzle.Rotation
	publisher Publisher

	current    *session.GameSession
	roundTimer timerSlot
	nextTimer  timerSlot
	seq        uint64

	started bool
	stopped bool
	done    chan struct{}

	stats Stats
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for timestamps and timers.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRand sets the random source for puzzle choice and grid generation.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = r }
}

// WithGenerator replaces the grid generator.
func WithGenerator(g *grid.Generator) Option {
	return func(s *Scheduler) { s.generator = g }
}

// WithPublisher sets the sink lifecycle events are published to.
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// NewScheduler creates a scheduler over puzzles. Call Start to begin the first round.
func NewScheduler(cfg Config, puzzles []puzzle.Puzzle, opts ...Option) (*Scheduler, error) {
	if cfg.MaxPuzzleAttempts <= 0 {
		cfg.MaxPuzzleAttempts = DefaultConfig().MaxPuzzleAttempts
	}

	s := &Scheduler{
		cfg:        cfg,
		clock:      clockwork.NewRealClock(),
		generator:  grid.NewGenerator(),
		publisher:  noopPublisher{},
		roundTimer: timerSlot{name: "round_timeout"},
		nextTimer:  timerSlot{name: "next_round"},
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = newSeededRand()
	}

	rotation, err := puzzle.NewRotation(puzzles, s.rng)
	if err != nil {
		return nil, fmt.Errorf("create rotation: %w", err)
	}
	s.rotation = rotation
	s.stats.PuzzleCount = rotation.Len()

	return s, nil
}

// newSeededRand returns a PCG generator seeded from crypto/rand.
func newSeededRand() *rand.Rand {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		log.Warn().Err(err).Msg("crypto seed unavailable, falling back to time seed")
		now := uint64(time.Now().UnixNano())
		return rand.New(rand.NewPCG(now, now>>1))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:])))
}

// Start begins the first round. Calling it more than once has no effect.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true
	log.Info().
		Int("puzzles", s.rotation.Len()).
		Dur("round_duration", s.cfg.RoundDuration).
		Msg("session scheduler started")

	s.startRoundLocked()
}

// Stop cancels every armed timer. The current session is left as is. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.cancelLocked(&s.roundTimer)
	s.cancelLocked(&s.nextTimer)
	close(s.done)

	log.Info().Msg("session scheduler stopped")
}

// startRoundLocked picks a puzzle, builds and verifies a grid and installs a PENDING
// session, retrying with other puzzles up to MaxPuzzleAttempts. If every attempt fails no
// session is installed and a retry is scheduled instead.
func (s *Scheduler) startRoundLocked() {
	if s.stopped {
		return
	}
	s.cancelLocked(&s.roundTimer)
	s.cancelLocked(&s.nextTimer)

	for attempt := 1; attempt <= s.cfg.MaxPuzzleAttempts; attempt++ {
		p := s.rotation.Next()

		res, err := s.generator.Generate(s.rng, p.Words)
		if err != nil {
			s.stats.GenerationFailures++
			log.Warn().
				Err(err).
				Str("puzzle_id", p.ID).
				Int("attempt", attempt).
				Msg("grid generation failed, trying another puzzle")
			continue
		}
		if !grid.Verify(res.Grid, p.Words) {
			s.stats.GenerationFailures++
			log.Warn().
				Str("puzzle_id", p.ID).
				Int("attempt", attempt).
				Msg("grid verification failed, trying another puzzle")
			continue
		}

		s.installLocked(session.New(session.NewID(), p, res.Grid))
		return
	}

	log.Error().
		Int("attempts", s.cfg.MaxPuzzleAttempts).
		Dur("retry_in", s.cfg.RetryDelay).
		Msg("could not generate a valid puzzle, retrying later")

	s.armLocked(&s.nextTimer, s.cfg.RetryDelay, s.startRoundLocked)
}

// installLocked makes sess the current session and schedules its activation.
func (s *Scheduler) installLocked(sess *session.GameSession) {
	now := s.clock.Now()
	s.current = sess
	s.stats.RoundsStarted++

	log.Info().
		Str("session_id", sess.ID()).
		Str("puzzle_id", sess.PuzzleID()).
		Str("category", sess.Category()).
		Msg("new session pending")

	id := sess.ID()
	if s.cfg.PendingDelay <= 0 {
		s.activateLocked(id)
		return
	}

	s.publishLocked(events.GamePendingPayload{
		SessionID: id,
		PuzzleID:  sess.PuzzleID(),
		Category:  sess.Category(),
		StartsAt:  now.Add(s.cfg.PendingDelay),
		Message:   fmt.Sprintf("New %s puzzle starting soon...", sess.Category()),
	})
	s.armLocked(&s.nextTimer, s.cfg.PendingDelay, func() { s.activateLocked(id) })
}

// activateLocked moves the pending session id to ACTIVE and arms the round timeout.
func (s *Scheduler) activateLocked(id string) {
	sess := s.current
	if sess == nil || sess.ID() != id || sess.Status() != session.StatusPending {
		return
	}
	if err := sess.Activate(s.clock.Now(), s.cfg.RoundDuration); err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("failed to activate session")
		return
	}

	log.Info().
		Str("session_id", id).
		Time("end_time", sess.EndTime()).
		Msg("session active")

	s.publishLocked(events.NewGamePayload{Snapshot: sess.Snapshot()})
	s.armLocked(&s.roundTimer, s.cfg.RoundDuration, func() { s.expireLocked(id) })
}

// expireLocked ends session id on timeout. It is a no-op unless that session is ACTIVE.
func (s *Scheduler) expireLocked(id string) bool {
	sess := s.current
	if sess == nil || sess.ID() != id || sess.Status() != session.StatusActive {
		return false
	}
	if err := sess.Expire(); err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("failed to expire session")
		return false
	}
	s.stats.RoundsExpired++
	s.cancelLocked(&s.roundTimer)

	log.Info().
		Str("session_id", id).
		Int("found", sess.FoundCount()).
		Int("targets", sess.TargetCount()).
		Msg("session expired")

	s.publishLocked(events.GameTimeoutPayload{
		Message:      fmt.Sprintf("Time's up! New game starting in %d seconds...", s.graceSeconds()),
		NextGameAt:   s.clock.Now().Add(s.cfg.GraceDelay),
		GraceSeconds: s.graceSeconds(),
		FoundCount:   sess.FoundCount(),
		TotalWords:   sess.TargetCount(),
	})
	s.armLocked(&s.nextTimer, s.cfg.GraceDelay, s.startRoundLocked)
	return true
}

// completeLocked ends session id early. It is a no-op unless that session is ACTIVE.
func (s *Scheduler) completeLocked(id string) bool {
	sess := s.current
	if sess == nil || sess.ID() != id || sess.Status() != session.StatusActive {
		return false
	}
	if err := sess.Complete(); err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("failed to complete session")
		return false
	}
	s.stats.RoundsCompleted++
	s.cancelLocked(&s.roundTimer)

	log.Info().
		Str("session_id", id).
		Int("found", sess.FoundCount()).
		Msg("puzzle completed early")

	s.publishLocked(events.PuzzleCompletedPayload{
		Message:      fmt.Sprintf("Puzzle completed! New game starting in %d seconds...", s.graceSeconds()),
		NextGameAt:   s.clock.Now().Add(s.cfg.GraceDelay),
		GraceSeconds: s.graceSeconds(),
		FoundCount:   sess.FoundCount(),
	})
	s.armLocked(&s.nextTimer, s.cfg.GraceDelay, s.startRoundLocked)
	return true
}

// checkExpiryLocked applies the deadline to a session whose timer has not fired yet.
func (s *Scheduler) checkExpiryLocked() {
	if s.current != nil && s.current.Expired(s.clock.Now()) {
		s.expireLocked(s.current.ID())
	}
}

// Submit routes a player's word to the current session.
func (s *Scheduler) Submit(sessionID, word, playerID string) session.SubmissionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Submissions++
	s.checkExpiryLocked()

	sess := s.current
	if sess == nil || sess.ID() != sessionID {
		return session.Rejected(normalized(word), session.RejectInvalidSession, nil)
	}
	if sess.Status() != session.StatusActive {
		return session.Rejected(normalized(word), session.RejectNotActive, sess.FoundWords())
	}

	res := sess.SubmitWord(word, playerID, s.clock.Now())
	if !res.Success {
		log.Debug().
			Str("session_id", sessionID).
			Str("player_id", playerID).
			Str("word", res.Word).
			Str("reason", string(res.Reason)).
			Msg("submission rejected")
		return res
	}

	s.stats.WordsFound++
	log.Info().
		Str("session_id", sessionID).
		Str("player_id", playerID).
		Str("word", res.Word).
		Bool("bonus", res.IsBonus).
		Msg("word found")

	s.publishLocked(events.WordFoundPayload{
		Word:            res.Word,
		IsBonus:         res.IsBonus,
		FoundBy:         res.FoundBy,
		FoundWords:      res.FoundWords,
		PuzzleCompleted: res.PuzzleCompleted,
	})
	if res.PuzzleCompleted {
		s.completeLocked(sessionID)
	}
	return res
}

// SubmitCurrent submits word to whichever session is current. Used by sources that do not
// track session ids, such as chat ingest.
func (s *Scheduler) SubmitCurrent(word, playerID string) session.SubmissionResult {
	s.mu.Lock()
	id := ""
	if s.current != nil {
		id = s.current.ID()
	}
	s.mu.Unlock()
	return s.Submit(id, word, playerID)
}

// Current returns the snapshot of the current session, or nil if no session is ACTIVE or
// PENDING. An ACTIVE session past its deadline is expired first.
func (s *Scheduler) Current() *session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkExpiryLocked()
	if s.current == nil {
		return nil
	}
	switch s.current.Status() {
	case session.StatusActive, session.StatusPending:
		snap := s.current.Snapshot()
		return &snap
	default:
		return nil
	}
}

// Stats returns counters and the current session's id and status.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.RotationRemaining = s.rotation.Remaining()
	if s.current != nil {
		st.CurrentSessionID = s.current.ID()
		st.CurrentStatus = s.current.Status()
	}
	return st
}

func (s *Scheduler) publishLocked(p events.Payload) {
	id := ""
	if s.current != nil {
		id = s.current.ID()
	}
	s.publisher.Publish(events.New(id, s.clock.Now(), p))
}

func normalized(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}

func (s *Scheduler) graceSeconds() int {
	return int(s.cfg.GraceDelay.Round(time.Second) / time.Second)
}
