package player

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/james-see/midnote/pkg/timeline"
)

// mockSink records everything sent to it
type mockSink struct {
	mu   sync.Mutex
	msgs [][]byte
	fail bool
}

func (s *mockSink) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("device unplugged")
	}
	b := make([]byte, len(data))
	copy(b, data)
	s.msgs = append(s.msgs, b)
	return nil
}

func (s *mockSink) snapshot() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func isNoteOn(msg []byte, key uint8) bool {
	return len(msg) == 3 && msg[0]&0xF0 == 0x90 && msg[1] == key && msg[2] > 0
}

func isAllNotesOff(msg []byte) bool {
	return len(msg) == 3 && msg[0]&0xF0 == 0xB0 && msg[1] == ccAllNotesOff
}

func countNoteOns(msgs [][]byte, key uint8) int {
	var n int
	for _, m := range msgs {
		if isNoteOn(m, key) {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type harness struct {
	sink      *mockSink
	out       *Output
	commands  chan Command
	responses chan Response
	errc      chan error
	cancel    context.CancelFunc
}

func startPlayer(t *testing.T, all, solo []Bar, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		sink:      &mockSink{},
		commands:  make(chan Command, 16),
		responses: make(chan Response, 64),
		errc:      make(chan error, 1),
	}
	h.out = NewOutput(h.sink, nil)

	p, err := New(h.out, all, solo, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errc <- p.Run(ctx, h.commands, h.responses) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.errc:
		case <-time.After(3 * time.Second):
			t.Error("player did not stop")
		}
	})
	return h
}

func (h *harness) next(t *testing.T) Response {
	t.Helper()
	select {
	case r := <-h.responses:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a response")
		return Response{}
	}
}

func (h *harness) expect(t *testing.T, kind ResponseKind) Response {
	t.Helper()
	r := h.next(t)
	if r.Kind != kind {
		t.Fatalf("response kind = %d, want %d", r.Kind, kind)
	}
	return r
}

// shortBars builds bars holding a single note each, so workers finish at once
func shortBars(keys ...uint8) []Bar {
	tl := make(timeline.Timeline, 0, len(keys)*4)
	for _, k := range keys {
		tl = append(tl, on(0, k), off(0, k), nil, nil)
	}
	return Segment(tl, 1, 4)
}

func TestNewRejectsMismatch(t *testing.T) {
	_, err := New(NewOutput(&mockSink{}, nil), shortBars(60, 62), shortBars(60))
	if !errors.Is(err, ErrBarMismatch) {
		t.Errorf("New() error = %v, want ErrBarMismatch", err)
	}
}

func TestPlayerNavigation(t *testing.T) {
	bars := shortBars(60, 62)
	h := startPlayer(t, bars, bars)

	h.commands <- Prev()
	h.expect(t, ResponseStartOfTrack)

	h.commands <- Next()
	r := h.expect(t, ResponseNotes)
	if r.Bar != 0 || len(r.Notes) == 0 || r.Notes[0][0].Key() != 60 {
		t.Errorf("first bar notes = %+v", r)
	}

	h.commands <- Next()
	r = h.expect(t, ResponseNotes)
	if r.Bar != 1 || r.Notes[0][0].Key() != 62 {
		t.Errorf("second bar notes = %+v", r)
	}

	h.commands <- Next()
	h.expect(t, ResponseEndOfTrack)
	h.commands <- Next()
	h.expect(t, ResponseEndOfTrack)

	h.commands <- Prev()
	r = h.expect(t, ResponseNotes)
	if r.Bar != 0 {
		t.Errorf("Prev after the end played bar %d, want 0", r.Bar)
	}
	if r.State.Bar != 0 || r.State.Cursor != 0 || r.State.Tempo != 120 {
		t.Errorf("state carried with the notes = %+v", r.State)
	}

	h.commands <- Info()
	st := h.expect(t, ResponseState).State
	if st.Bar != 0 || st.Cursor != 0 || st.Bars != 2 {
		t.Errorf("state = %+v", st)
	}

	// earlier bars may be cancelled before they sound; the last one is not
	waitFor(t, "bar 0 to sound", func() bool {
		return countNoteOns(h.sink.snapshot(), 60) >= 1
	})
}

func TestPlayerNotesComeFromSoloLine(t *testing.T) {
	all := shortBars(48)
	solo := shortBars(72)
	h := startPlayer(t, all, solo)

	h.commands <- Next()
	r := h.expect(t, ResponseNotes)
	if len(r.Notes) == 0 || len(r.Notes[0]) != 1 || r.Notes[0][0].Key() != 72 {
		t.Errorf("notes = %v, want the solo line", r.Notes)
	}
	waitFor(t, "full mix to sound", func() bool {
		return countNoteOns(h.sink.snapshot(), 48) == 1
	})
	if countNoteOns(h.sink.snapshot(), 72) != 0 {
		t.Error("solo line sounded while solo was off")
	}

	h.commands <- ToggleSolo()
	if st := h.expect(t, ResponseState).State; !st.Solo {
		t.Error("ToggleSolo did not enable solo")
	}

	h.commands <- Replay()
	h.expect(t, ResponseNotes)
	waitFor(t, "solo line to sound", func() bool {
		return countNoteOns(h.sink.snapshot(), 72) == 1
	})
	if countNoteOns(h.sink.snapshot(), 48) != 1 {
		t.Error("full mix sounded while solo was on")
	}
}

func TestPlayerTranspose(t *testing.T) {
	bars := shortBars(60)
	h := startPlayer(t, bars, bars)

	steps := []struct {
		delta int
		want  int
	}{
		{5, 5},
		{10, 3},
		{-7, -4},
		{-11, -3},
		{0, 0},
		{-13, -1},
		{13, 0},
	}
	for _, s := range steps {
		h.commands <- TransposeBy(s.delta)
		st := h.expect(t, ResponseState).State
		if st.Transpose != s.want {
			t.Fatalf("Transpose(%d) = %d, want %d", s.delta, st.Transpose, s.want)
		}
		if st.Transpose < -11 || st.Transpose > 11 {
			t.Fatalf("transpose %d out of range", st.Transpose)
		}
	}

	for _, k := range []int{1, 4, 7, 11, -6} {
		h.commands <- Info()
		before := h.expect(t, ResponseState).State.Transpose
		h.commands <- TransposeBy(k)
		h.expect(t, ResponseState)
		h.commands <- TransposeBy(-k)
		after := h.expect(t, ResponseState).State.Transpose
		if (after-before)%12 != 0 {
			t.Errorf("Transpose(%d) then Transpose(%d): %d -> %d", k, -k, before, after)
		}
	}

	h.commands <- TransposeBy(0)
	h.expect(t, ResponseState)
	h.commands <- TransposeBy(2)
	h.expect(t, ResponseState)
	h.commands <- Next()
	r := h.expect(t, ResponseNotes)
	if r.Notes[0][0].Key() != 62 {
		t.Errorf("transposed note = %v, want D4", r.Notes[0][0])
	}
	waitFor(t, "transposed note to sound", func() bool {
		return countNoteOns(h.sink.snapshot(), 62) == 1
	})
}

func TestPlayerSpeedFloor(t *testing.T) {
	bars := shortBars(60)
	h := startPlayer(t, bars, bars, WithSpeed(2))

	h.commands <- Info()
	if st := h.expect(t, ResponseState).State; st.Speed != 2 {
		t.Errorf("initial speed = %v, want 2", st.Speed)
	}

	for i := 0; i < 10; i++ {
		h.commands <- SpeedBy(-1)
		st := h.expect(t, ResponseState).State
		if st.Speed <= 0 || st.Speed < MinSpeed {
			t.Fatalf("speed = %v after %d decrements", st.Speed, i+1)
		}
	}

	h.commands <- SpeedBy(0.25)
	if st := h.expect(t, ResponseState).State; math.Abs(st.Speed-0.35) > 1e-9 {
		t.Errorf("speed = %v, want 0.35", st.Speed)
	}

	h.commands <- SpeedBy(0.004)
	if st := h.expect(t, ResponseState).State; math.Abs(st.Speed-0.354) > 1e-9 {
		t.Errorf("speed = %v, want 0.354", st.Speed)
	}

	h.commands <- Reset()
	if st := h.expect(t, ResponseState).State; st.Speed != DefaultSpeed {
		t.Errorf("speed after Reset = %v, want %v", st.Speed, DefaultSpeed)
	}
}

func TestPlayerReplayAndReset(t *testing.T) {
	bars := shortBars(60, 62, 64)
	h := startPlayer(t, bars, bars)

	// nothing to replay yet
	h.commands <- Replay()
	h.commands <- Info()
	if st := h.expect(t, ResponseState).State; st.Bar != -1 {
		t.Errorf("bar before playing = %d, want -1", st.Bar)
	}

	h.commands <- Next()
	h.expect(t, ResponseNotes)
	h.commands <- Next()
	h.expect(t, ResponseNotes)

	h.commands <- Replay()
	if r := h.expect(t, ResponseNotes); r.Bar != 1 {
		t.Errorf("Replay played bar %d, want 1", r.Bar)
	}
	h.commands <- Info()
	if st := h.expect(t, ResponseState).State; st.Cursor != 2 {
		t.Errorf("Replay moved the cursor to %d", st.Cursor)
	}

	h.commands <- Reset()
	st := h.expect(t, ResponseState).State
	if st.Cursor != 0 || st.Bar != -1 {
		t.Errorf("state after Reset = %+v", st)
	}

	h.commands <- Next()
	if r := h.expect(t, ResponseNotes); r.Bar != 0 {
		t.Errorf("Next after Reset played bar %d, want 0", r.Bar)
	}
}

func TestPlayerCancelsPreviousBar(t *testing.T) {
	// bar 0: fast tempo, a note every four ticks; bar 1: one note at once
	tl := timeline.Timeline{
		append(tempo(40000), on(0, 60)...), nil, nil, nil,
		on(0, 60), nil, nil, nil,
		on(0, 60), nil, nil, nil,
		on(0, 60), nil, nil, nil,
		on(0, 72), nil, nil, nil,
	}
	bars := Segment(tl, 4, 4)

	for round := 0; round < 20; round++ {
		h := startPlayer(t, bars, bars)

		h.commands <- Next()
		h.commands <- Next()
		h.expect(t, ResponseNotes)
		h.expect(t, ResponseNotes)

		waitFor(t, "bar 1 to sound", func() bool {
			return countNoteOns(h.sink.snapshot(), 72) == 1
		})

		msgs := h.sink.snapshot()
		first72, lastSilence := -1, -1
		for i, m := range msgs {
			if isNoteOn(m, 72) {
				first72 = i
				break
			}
			if isAllNotesOff(m) {
				lastSilence = i
			}
		}
		for i, m := range msgs {
			if isNoteOn(m, 60) && i > lastSilence {
				t.Fatalf("round %d: bar 0 note at %d after the silence at %d (bar 1 at %d)", round, i, lastSilence, first72)
			}
		}
		h.cancel()
	}
}

func TestPlayerSilenceStopsBar(t *testing.T) {
	tl := make(timeline.Timeline, 16)
	tl[0] = on(0, 60)
	tl[15] = on(0, 61)
	bars := Segment(tl, 4, 4)

	// 14 silent ticks at 125ms each, sped up ten times: 175ms
	h := startPlayer(t, bars, bars, WithSpeed(10))

	h.commands <- Next()
	h.expect(t, ResponseNotes)
	h.commands <- Silence()
	h.commands <- Info()
	h.expect(t, ResponseState)

	time.Sleep(400 * time.Millisecond)

	msgs := h.sink.snapshot()
	if n := countNoteOns(msgs, 61); n != 0 {
		t.Errorf("cancelled bar kept playing: %d late notes", n)
	}
	if !isAllNotesOff(msgs[len(msgs)-1]) {
		t.Errorf("last message = %X, want all notes off", msgs[len(msgs)-1])
	}
}

func TestPlayerSurvivesOutputFailure(t *testing.T) {
	bars := shortBars(60, 62)
	h := startPlayer(t, bars, bars)
	h.sink.mu.Lock()
	h.sink.fail = true
	h.sink.mu.Unlock()

	h.commands <- Next()
	h.expect(t, ResponseNotes)
	h.commands <- Next()
	h.expect(t, ResponseNotes)

	waitFor(t, "failed sends to be counted", func() bool {
		return h.out.Dropped() > 32
	})
}

func TestPlayerStopsWhenCommandsClose(t *testing.T) {
	bars := shortBars(60)
	sink := &mockSink{}
	p, err := New(NewOutput(sink, nil), bars, bars)
	if err != nil {
		t.Fatal(err)
	}

	commands := make(chan Command)
	close(commands)
	if err := p.Run(context.Background(), commands, make(chan Response)); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if len(sink.snapshot()) != 16 {
		t.Errorf("expected a final all-notes-off on 16 channels, got %d messages", len(sink.snapshot()))
	}
}

func TestPlayerStopsWhenContextCancelled(t *testing.T) {
	bars := shortBars(60)
	p, err := New(NewOutput(&mockSink{}, nil), bars, bars)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	commands := make(chan Command, 1)
	commands <- Info()

	errc := make(chan error, 1)
	// nobody reads responses
	go func() { errc <- p.Run(ctx, commands, make(chan Response)) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return")
	}
}
