package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielpatrickdp/gesture-agent/internal/agent"
	"github.com/danielpatrickdp/gesture-agent/internal/logging"
	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/playback"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
)

func tempDB(t *testing.T) (*store.Store, string) {
	t.Helper()
	st, err := store.NewStore(store.DriverSQLite, filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	sess, err := st.CreateSession("test")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return st, sess.ID
}

func newSync(t *testing.T, sink playback.Sink, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithSynchronous(),
		WithAgentOptions(agent.WithSeed(7)),
		WithPlayerOptions(playback.WithSleeper(playback.NoSleep)),
	}
	s, err := New(DefaultConfig(), sink, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func feedGesture(t *testing.T, s *Session, t0 float64, n int, fingers ...int) float64 {
	t.Helper()
	ts := t0
	for i := 0; i < n; i++ {
		ts = t0 + float64(i)*0.01
		smp := note.Sample{
			Fingers:  note.NewFingerSet(fingers...),
			X:        0.2 + float64(i)*0.005,
			Y:        0.4,
			Z:        0.5,
			Angle:    0.3,
			Velocity: 0.6,
			T:        ts,
		}
		if err := s.Feed(context.Background(), smp); err != nil {
			t.Fatalf("Feed: %v", err)
		}
	}
	return ts
}

func feedSilence(t *testing.T, s *Session, t0, t1 float64) {
	t.Helper()
	for ts := t0; ts <= t1; ts += 0.05 {
		if err := s.Feed(context.Background(), note.Sample{T: ts}); err != nil {
			t.Fatalf("Feed: %v", err)
		}
	}
}

func TestNewRejectsNilSink(t *testing.T) {
	if _, err := New(DefaultConfig(), nil); err == nil {
		t.Fatal("expected error for nil sink")
	}
}

func TestNewRejectsStoreWithoutSession(t *testing.T) {
	st, _ := tempDB(t)
	defer st.Close()
	if _, err := New(DefaultConfig(), playback.DiscardSink{}, WithStore(st, "")); err == nil {
		t.Fatal("expected error for missing session id")
	}
}

func TestCycle_GeneratesAndPlays(t *testing.T) {
	sink := &playback.MemorySink{}
	var cycles []Cycle
	s := newSync(t, sink, WithCycleHook(func(c Cycle) { cycles = append(cycles, c) }))

	last := feedGesture(t, s, 0, 50, 1)
	feedSilence(t, s, last+0.01, last+4)

	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	c := cycles[0]
	if c.Decision != logging.DecisionGenerated {
		t.Fatalf("expected generated decision, got %q (%v)", c.Decision, c.Err)
	}
	if c.Phrase != 1 || c.Generated == 0 || c.Played != c.Generated {
		t.Errorf("unexpected cycle %+v", c)
	}
	if sink.Count(playback.AddrFingers) != c.Played+1 {
		t.Errorf("expected %d finger messages, got %d", c.Played+1, sink.Count(playback.AddrFingers))
	}

	ai := s.Notes(note.AI)
	if len(ai) != c.Generated {
		t.Errorf("expected %d AI notes, got %d", c.Generated, len(ai))
	}
	for _, n := range ai {
		if n.Source != note.AI {
			t.Errorf("unexpected source %q", n.Source)
		}
	}
	st := s.Status()
	if st.PhrasesEnded != 1 || st.PhrasesPlayed != 1 || st.HumanNotes != 1 {
		t.Errorf("unexpected status %+v", st)
	}
	if st.Phrase != 2 {
		t.Errorf("expected phrase 2, got %d", st.Phrase)
	}
	if st.Busy {
		t.Error("expected idle session")
	}
}

func TestCycle_PlaysLongPhrasePause(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Segment.EndOfPhrasePause = 6
	sink := &playback.MemorySink{}
	var cycles []Cycle
	s, err := New(cfg, sink,
		WithSynchronous(),
		WithAgentOptions(agent.WithSeed(7)),
		WithPlayerOptions(playback.WithSleeper(playback.NoSleep)),
		WithCycleHook(func(c Cycle) { cycles = append(cycles, c) }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(context.Background())

	last := feedGesture(t, s, 0, 30, 1)
	feedSilence(t, s, last+0.01, last+4)

	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	c := cycles[0]
	if c.Decision != logging.DecisionGenerated || c.Played == 0 {
		t.Fatalf("expected the child of a 6s-pause note to play, got %+v", c)
	}
	if sink.Count("") == 0 {
		t.Fatal("expected emissions")
	}
}

func TestCycle_ResumeSuspendsSilence(t *testing.T) {
	var cycles int
	s := newSync(t, &playback.MemorySink{}, WithCycleHook(func(Cycle) { cycles++ }))

	last := feedGesture(t, s, 0, 30, 2)
	feedSilence(t, s, last+0.01, last+4)
	// silence continuing after the agent played must not end another phrase
	feedSilence(t, s, last+4.05, last+12)
	if cycles != 1 {
		t.Fatalf("expected 1 cycle, got %d", cycles)
	}

	last = feedGesture(t, s, 20, 30, 3)
	feedSilence(t, s, last+0.01, last+4)
	if cycles != 2 {
		t.Errorf("expected 2 cycles after a new gesture, got %d", cycles)
	}
}

func TestEmptyPhraseEndIgnored(t *testing.T) {
	sink := &playback.MemorySink{}
	s := newSync(t, sink)
	feedSilence(t, s, 0, 5)
	if sink.Count("") != 0 {
		t.Errorf("expected no playback, got %d messages", sink.Count(""))
	}
	if st := s.Status(); st.PhrasesEnded != 0 || st.Samples == 0 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestHotnessFollowsCohesion(t *testing.T) {
	s := newSync(t, &playback.MemorySink{})
	s.SetHotness(0.9)
	if s.Hotness() != 0.9 {
		t.Fatalf("expected override 0.9, got %f", s.Hotness())
	}
	last := feedGesture(t, s, 0, 30, 1)
	last = feedGesture(t, s, last+0.2, 30, 2)
	feedSilence(t, s, last+0.01, last+4)

	st := s.Status()
	want := s.scorer.Hotness(st.LastCohesion)
	if st.Hotness != want {
		t.Errorf("expected hotness %f from cohesion %f, got %f", want, st.LastCohesion, st.Hotness)
	}
}

func TestCycle_PersistsToStore(t *testing.T) {
	st, id := tempDB(t)
	var cycle Cycle
	s := newSync(t, &playback.MemorySink{}, WithStore(st, id), WithCycleHook(func(c Cycle) { cycle = c }))

	last := feedGesture(t, s, 0, 50, 1)
	feedSilence(t, s, last+0.01, last+4)

	human, err := st.CountNotes(id, note.Human)
	if err != nil {
		t.Fatalf("CountNotes: %v", err)
	}
	if human != 1 {
		t.Errorf("expected 1 stored human note, got %d", human)
	}
	ai, err := st.CountNotes(id, note.AI)
	if err != nil {
		t.Fatalf("CountNotes: %v", err)
	}
	if ai != cycle.Generated {
		t.Errorf("expected %d stored AI notes, got %d", cycle.Generated, ai)
	}
	rows, err := st.ListPhraseLog(id, 10)
	if err != nil {
		t.Fatalf("ListPhraseLog: %v", err)
	}
	if len(rows) != 1 || rows[0].Decision != logging.DecisionGenerated || rows[0].Phrase != 1 {
		t.Errorf("unexpected phrase log %+v", rows)
	}
}

func TestFinalize(t *testing.T) {
	st, id := tempDB(t)
	s := newSync(t, &playback.MemorySink{}, WithStore(st, id))
	last := feedGesture(t, s, 0, 20, 1)
	last = feedGesture(t, s, last+0.5, 20, 2)

	notes, err := s.Finalize(last + 0.01)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].PauseAfter <= 0 {
		t.Errorf("expected back-filled pause, got %f", notes[0].PauseAfter)
	}
	if n, _ := st.CountNotes(id, note.Human); n != 2 {
		t.Errorf("expected 2 stored notes, got %d", n)
	}
}

// gatedSink blocks every send until release is closed.
type gatedSink struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedSink) Send(string, any) error {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return nil
}

func TestAsync_DropsPhraseEndWhileBusy(t *testing.T) {
	st, id := tempDB(t)
	sink := &gatedSink{started: make(chan struct{}), release: make(chan struct{})}
	s, err := New(DefaultConfig(), sink,
		WithStore(st, id),
		WithAgentOptions(agent.WithSeed(3)),
		WithPlayerOptions(playback.WithSleeper(playback.NoSleep)),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	last := feedGesture(t, s, 0, 50, 1)
	feedSilence(t, s, last+0.01, last+4)

	select {
	case <-sink.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never started playback")
	}
	if !s.Status().Busy {
		t.Error("expected busy session during playback")
	}

	last = feedGesture(t, s, 10, 30, 2)
	feedSilence(t, s, last+0.01, last+4)

	close(sink.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	status := s.Status()
	if status.PhrasesEnded != 2 || status.PhrasesDropped != 1 || status.PhrasesPlayed != 1 {
		t.Errorf("unexpected status %+v", status)
	}
	rows, err := st.ListPhraseLog(id, 10)
	if err != nil {
		t.Fatalf("ListPhraseLog: %v", err)
	}
	var dropped int
	for _, r := range rows {
		if r.Decision == logging.DecisionDropped {
			dropped++
		}
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped log row, got %d", dropped)
	}
	if err := s.Close(ctx); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestBreedUsesConfiguredCrossovers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agent.Crossovers = 3
	s, err := New(cfg, playback.DiscardSink{},
		WithSynchronous(),
		WithAgentOptions(agent.WithSeed(3)),
		WithPlayerOptions(playback.WithSleeper(playback.NoSleep)),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(context.Background())

	last := feedGesture(t, s, 0, 30, 1)
	feedSilence(t, s, last+0.01, last+4)
	human := s.Notes(note.Human)
	if len(human) != 1 {
		t.Fatalf("expected 1 human note, got %d", len(human))
	}
	aiBefore := len(s.Notes(note.AI))

	children, err := s.Breed(human[0].ID, human[0].ID, 0)
	if err != nil {
		t.Fatalf("Breed: %v", err)
	}
	if len(children) != 3 {
		t.Fatalf("expected 3 children from the configured count, got %d", len(children))
	}
	for _, c := range children {
		if c.Source != note.AI {
			t.Errorf("unexpected source %q", c.Source)
		}
	}
	if got, _ := s.Breed(human[0].ID, human[0].ID, 2); len(got) != 2 {
		t.Errorf("expected explicit count 2, got %d", len(got))
	}
	if len(s.Notes(note.AI)) != aiBefore {
		t.Error("bred notes must not join the session history")
	}

	if _, err := s.Breed(human[0].ID, "missing", 0); !errors.Is(err, ErrUnknownNote) {
		t.Errorf("expected ErrUnknownNote, got %v", err)
	}
}
