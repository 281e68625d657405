package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/midnote/pkg/player"
	"github.com/james-see/midnote/pkg/timeline"
)

type mockSink struct {
	mu   sync.Mutex
	sent int
}

func (s *mockSink) Send([]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	return nil
}

func note(on bool, key uint8) timeline.Moment {
	if on {
		return timeline.Moment{timeline.MIDIEvent(midi.NoteOn(0, key, 100))}
	}
	return timeline.Moment{timeline.MIDIEvent(midi.NoteOff(0, key))}
}

// writeSong writes two bars of four beats at one tick per beat
func writeSong(t *testing.T) string {
	t.Helper()
	moments := []timeline.Moment{
		note(true, 60), note(false, 60), nil, nil,
		note(true, 62), note(false, 62),
	}
	path := filepath.Join(t.TempDir(), "song.mid")
	if err := timeline.WriteFile(path, moments, timeline.NewTicker(1)); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	song, err := Load(writeSong(t), -1, 4)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(song.All) != 2 || len(song.Solo) != 2 {
		t.Errorf("bars = %d/%d, want 2/2", len(song.All), len(song.Solo))
	}
	if song.Track != 0 {
		t.Errorf("Track = %d, want 0", song.Track)
	}
	if song.TrackName() != "Unnamed Track" {
		t.Errorf("TrackName() = %q", song.TrackName())
	}
}

func TestLoadKeepsRestBar(t *testing.T) {
	moments := []timeline.Moment{
		note(true, 60), note(false, 60), nil, nil,
		nil, nil, nil, nil,
	}
	path := filepath.Join(t.TempDir(), "rest.mid")
	if err := timeline.WriteFile(path, moments, timeline.NewTicker(1)); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	song, err := Load(path, -1, 4)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(song.All) != 2 || len(song.Solo) != 2 {
		t.Errorf("bars = %d/%d, want 2/2", len(song.All), len(song.Solo))
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.mid"), -1, 4); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestExport(t *testing.T) {
	song, err := Load(writeSong(t), -1, 4)
	if err != nil {
		t.Fatal(err)
	}

	data, err := song.Export(1, false, 3)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	f, err := timeline.Decode(data)
	if err != nil {
		t.Fatalf("Decode(export) error = %v", err)
	}

	var keys []uint8
	for _, m := range f.All() {
		for _, e := range m {
			var ch, key, vel uint8
			if e.Kind == timeline.EventMIDI && e.Message.GetNoteStart(&ch, &key, &vel) {
				keys = append(keys, key)
			}
		}
	}
	if len(keys) != 1 || keys[0] != 65 {
		t.Errorf("exported note starts = %v, want [65]", keys)
	}

	if _, err := song.Export(2, false, 0); err == nil {
		t.Error("Export() past the last bar succeeded")
	}
}

func TestSessionRun(t *testing.T) {
	song, err := Load(writeSong(t), -1, 4)
	if err != nil {
		t.Fatal(err)
	}
	sink := &mockSink{}
	s, err := Open(song, Options{Sink: sink})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	got := make(chan player.Response, 8)
	s.Observe(func(r player.Response) { got <- r })
	var second []player.Response
	var mu sync.Mutex
	s.Observe(func(r player.Response) {
		mu.Lock()
		second = append(second, r)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	if err := s.Send(ctx, player.Next()); err != nil {
		t.Fatal(err)
	}
	if !s.TrySend(player.Info()) {
		t.Fatal("TrySend() on an empty queue failed")
	}

	for _, want := range []player.ResponseKind{player.ResponseNotes, player.ResponseState} {
		select {
		case r := <-got:
			if r.Kind != want {
				t.Fatalf("response = %v, want %v", r.Kind, want)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %v", want)
		}
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(second) != 2 {
		t.Errorf("second observer saw %d responses, want 2", len(second))
	}
	if s.Dropped() != 0 {
		t.Errorf("Dropped() = %d", s.Dropped())
	}
}

func TestOpenDryRun(t *testing.T) {
	song, err := Load(writeSong(t), -1, 4)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Open(song, Options{DryRun: true, Speed: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
