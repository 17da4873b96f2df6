package orchestrator

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/events"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/puzzle"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/session"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return events.Event{}
	}
	return r.events[len(r.events)-1]
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestScheduler(t *testing.T, cfg Config, puzzles []puzzle.Puzzle) (*Scheduler, *clockwork.FakeClock, *recorder) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	if puzzles == nil {
		puzzles = []puzzle.Puzzle{puzzle.Default()}
	}
	s, err := NewScheduler(cfg, puzzles,
		WithClock(clock),
		WithRand(rand.New(rand.NewPCG(42, 7))),
		WithPublisher(rec),
	)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	t.Cleanup(s.Stop)
	return s, clock, rec
}

func isActive(s *Scheduler) func() bool {
	return func() bool {
		snap := s.Current()
		return snap != nil && snap.Status == session.StatusActive
	}
}

func TestScheduler_FullRoundLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	puzzles := []puzzle.Puzzle{
		{ID: "ANIMALS", Category: "Animals", Words: []string{"CAT", "DOG", "HORSE"}},
		{ID: "COLORS", Category: "Colors", Words: []string{"RED", "BLUE", "GREEN"}},
	}
	s, clock, rec := newTestScheduler(t, cfg, puzzles)

	s.Start()

	snap := s.Current()
	if snap == nil || snap.Status != session.StatusPending {
		t.Fatalf("after Start snapshot = %+v, want PENDING", snap)
	}
	if snap.StartTime != nil || snap.EndTime != nil {
		t.Fatal("pending snapshot must not carry start/end times")
	}
	if rec.count(events.KindGamePending) != 1 {
		t.Fatal("expected a game_pending notice")
	}
	firstID, firstPuzzle := snap.SessionID, snap.PuzzleID

	clock.Advance(cfg.PendingDelay)
	eventually(t, "activation", isActive(s))
	if rec.count(events.KindNewGame) != 1 {
		t.Fatalf("new_game events = %d, want 1", rec.count(events.KindNewGame))
	}
	active := s.Current()
	if got := active.EndTime.Sub(*active.StartTime); got != cfg.RoundDuration {
		t.Fatalf("round length = %v, want %v", got, cfg.RoundDuration)
	}

	clock.Advance(cfg.RoundDuration)
	eventually(t, "expiry", func() bool { return s.Stats().RoundsExpired == 1 })
	if s.Current() != nil {
		t.Fatal("expired session must not be served as current")
	}
	if rec.last().Kind() != events.KindGameTimeout {
		t.Fatalf("last event = %s, want game_timeout", rec.last().Kind())
	}

	clock.Advance(cfg.GraceDelay)
	eventually(t, "next round", func() bool { return s.Stats().RoundsStarted == 2 })

	next := s.Current()
	if next == nil || next.SessionID == firstID {
		t.Fatalf("expected a fresh session, got %+v", next)
	}
	if next.PuzzleID == firstPuzzle {
		t.Fatalf("rotation repeated %s before using every puzzle", firstPuzzle)
	}
}

func TestScheduler_EarlyCompletion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PendingDelay = 0
	s, clock, rec := newTestScheduler(t, cfg, nil)

	s.Start()
	snap := s.Current()
	if snap == nil || snap.Status != session.StatusActive {
		t.Fatalf("snapshot = %+v, want ACTIVE", snap)
	}

	var last session.SubmissionResult
	for i, w := range snap.Words {
		last = s.Submit(snap.SessionID, w, "player")
		if !last.Success {
			t.Fatalf("submit %s: %+v", w, last)
		}
		if want := i == len(snap.Words)-1; last.PuzzleCompleted != want {
			t.Fatalf("submit %s: puzzleCompleted = %v, want %v", w, last.PuzzleCompleted, want)
		}
	}

	st := s.Stats()
	if st.CurrentStatus != session.StatusCompleted || st.RoundsCompleted != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if rec.count(events.KindWordFound) != len(snap.Words) || rec.count(events.KindPuzzleCompleted) != 1 {
		t.Fatal("missing word_found or puzzle_completed events")
	}
	if res := s.Submit(snap.SessionID, snap.Words[0], "late"); res.Reason != session.RejectNotActive {
		t.Fatalf("submit after completion reason = %q", res.Reason)
	}

	clock.Advance(cfg.GraceDelay)
	eventually(t, "next round", func() bool { return s.Stats().RoundsStarted == 2 })
	eventually(t, "next round active", isActive(s))

	if rec.count(events.KindGameTimeout) != 0 {
		t.Fatal("a completed round must never also time out")
	}
}

func TestScheduler_SubmitRejections(t *testing.T) {
	cfg := DefaultConfig()
	s, clock, _ := newTestScheduler(t, cfg, nil)
	s.Start()

	pending := s.Current()
	if res := s.Submit("nope", "WORD", "p"); res.Reason != session.RejectInvalidSession {
		t.Fatalf("wrong session reason = %q", res.Reason)
	}
	if res := s.Submit(pending.SessionID, "WORD", "p"); res.Reason != session.RejectNotActive {
		t.Fatalf("pending session reason = %q", res.Reason)
	}

	clock.Advance(cfg.PendingDelay)
	eventually(t, "activation", isActive(s))

	cases := map[string]session.Rejection{
		"AB":     session.RejectTooShort,
		"CAT123": session.RejectInvalidFormat,
		"ZZZZZZ": session.RejectNotOnGrid,
	}
	for word, want := range cases {
		if res := s.Submit(pending.SessionID, word, "p"); res.Success || res.Reason != want {
			t.Errorf("Submit(%q) = %+v, want %q", word, res, want)
		}
	}

	if res := s.Submit(pending.SessionID, "search", "p"); !res.Success {
		t.Fatalf("valid word rejected: %+v", res)
	}
	if res := s.Submit(pending.SessionID, "SEARCH", "q"); res.Reason != session.RejectAlreadyFound {
		t.Fatalf("duplicate reason = %q", res.Reason)
	}
	if n := len(s.Current().FoundWords); n != 1 {
		t.Fatalf("ledger length = %d, want 1", n)
	}
}

func TestScheduler_LazyExpiryOnQuery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PendingDelay = 0
	s, clock, rec := newTestScheduler(t, cfg, nil)
	s.Start()

	// Pretend the round timer has not been delivered yet.
	s.mu.Lock()
	s.cancelLocked(&s.roundTimer)
	s.mu.Unlock()

	clock.Advance(cfg.RoundDuration + time.Second)

	if snap := s.Current(); snap != nil {
		t.Fatalf("Current() = %+v, want nil after deadline", snap)
	}
	st := s.Stats()
	if st.CurrentStatus != session.StatusExpired || st.RoundsExpired != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if rec.count(events.KindGameTimeout) != 1 {
		t.Fatal("lazy expiry must broadcast game_timeout")
	}

	s.mu.Lock()
	armed := s.nextTimer.armed()
	s.mu.Unlock()
	if !armed {
		t.Fatal("lazy expiry must arm the grace timer")
	}
}

func TestScheduler_CompletionTimeoutRace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PendingDelay = 0

	for i := 0; i < 50; i++ {
		s, _, rec := newTestScheduler(t, cfg, nil)
		s.Start()
		snap := s.Current()

		for _, w := range snap.Words[:len(snap.Words)-1] {
			if res := s.Submit(snap.SessionID, w, "p"); !res.Success {
				t.Fatalf("submit %s: %+v", w, res)
			}
		}
		lastWord := snap.Words[len(snap.Words)-1]

		var wg sync.WaitGroup
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			s.mu.Lock()
			s.expireLocked(snap.SessionID)
			s.mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			<-start
			s.Submit(snap.SessionID, lastWord, "p")
		}()
		close(start)
		wg.Wait()

		st := s.Stats()
		if st.RoundsCompleted+st.RoundsExpired != 1 {
			t.Fatalf("iteration %d: completed=%d expired=%d", i, st.RoundsCompleted, st.RoundsExpired)
		}
		terminal := rec.count(events.KindPuzzleCompleted) + rec.count(events.KindGameTimeout)
		if terminal != 1 {
			t.Fatalf("iteration %d: %d terminal events", i, terminal)
		}

		s.mu.Lock()
		roundArmed, nextArmed := s.roundTimer.armed(), s.nextTimer.armed()
		s.mu.Unlock()
		if roundArmed || !nextArmed {
			t.Fatalf("iteration %d: round timer armed=%v grace timer armed=%v", i, roundArmed, nextArmed)
		}
		s.Stop()
	}
}

func TestScheduler_GenerationFailureSchedulesRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPuzzleAttempts = 3
	puzzles := []puzzle.Puzzle{{ID: "HUGE", Category: "Huge", Words: []string{"ABCDEFGHIJKLMNOP"}}}
	s, clock, rec := newTestScheduler(t, cfg, puzzles)

	s.Start()

	if s.Current() != nil {
		t.Fatal("no session may be exposed when generation fails")
	}
	if st := s.Stats(); st.GenerationFailures != 3 || st.RoundsStarted != 0 {
		t.Fatalf("stats = %+v", st)
	}
	if len(rec.events) != 0 {
		t.Fatalf("unexpected events %v", rec.events)
	}

	clock.Advance(cfg.RetryDelay)
	eventually(t, "retry", func() bool { return s.Stats().GenerationFailures == 6 })
}

func TestScheduler_StopCancelsTimers(t *testing.T) {
	cfg := DefaultConfig()
	s, clock, rec := newTestScheduler(t, cfg, nil)
	s.Start()
	s.Stop()
	s.Stop()

	clock.Advance(cfg.PendingDelay + cfg.RoundDuration + cfg.GraceDelay)
	time.Sleep(20 * time.Millisecond)

	if rec.count(events.KindNewGame) != 0 {
		t.Fatal("stopped scheduler must not activate rounds")
	}
	if snap := s.Current(); snap == nil || snap.Status != session.StatusPending {
		t.Fatalf("snapshot after stop = %+v", snap)
	}
}

func TestScheduler_SubmitCurrent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PendingDelay = 0
	s, _, _ := newTestScheduler(t, cfg, nil)

	if res := s.SubmitCurrent("WORD", "chat"); res.Reason != session.RejectInvalidSession {
		t.Fatalf("before start reason = %q", res.Reason)
	}

	s.Start()
	if res := s.SubmitCurrent("grid", "chat"); !res.Success || res.FoundBy != "chat" {
		t.Fatalf("SubmitCurrent = %+v", res)
	}
}
