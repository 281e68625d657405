package player

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/midnote/pkg/note"
	"github.com/james-see/midnote/pkg/timeline"
)

func TestExtract(t *testing.T) {
	moments := []timeline.Moment{
		{
			timeline.MIDIEvent(midi.NoteOn(0, 60, 100)),
			timeline.MIDIEvent(midi.NoteOn(1, 60, 80)), // same pitch, other channel
			timeline.MIDIEvent(midi.NoteOn(0, 64, 100)),
			timeline.TempoEvent(400000),
		},
		nil,
		{
			timeline.MIDIEvent(midi.NoteOn(0, 67, 0)), // velocity 0 is a release
			timeline.MIDIEvent(midi.NoteOff(0, 60)),
		},
		{
			timeline.MIDIEvent(midi.NoteOn(2, 72, 100)),
		},
	}

	got := Extract(moments, 0)
	if len(got) != 3 {
		t.Fatalf("len(Extract()) = %d, want 3 (silent moments skipped)", len(got))
	}

	want0 := []note.Pitch{note.FromKey(60), note.FromKey(64)}
	if len(got[0]) != len(want0) {
		t.Fatalf("moment 0 = %v, want %v", got[0], want0)
	}
	for i := range want0 {
		if got[0][i] != want0[i] {
			t.Errorf("moment 0 pitch %d = %v, want %v", i, got[0][i], want0[i])
		}
	}
	if len(got[1]) != 0 {
		t.Errorf("moment with only releases = %v, want none", got[1])
	}
	if len(got[2]) != 1 || got[2][0] != note.FromKey(72) {
		t.Errorf("moment 2 = %v, want [C5]", got[2])
	}
}

func TestExtractPercussionOnly(t *testing.T) {
	moments := []timeline.Moment{
		on(timeline.PercussionChannel, 36),
		nil,
		on(timeline.PercussionChannel, 38),
		on(timeline.PercussionChannel, 42),
	}

	for _, transpose := range []int{-11, -5, 0, 3, 11} {
		got := Extract(moments, transpose)
		if len(got) != 3 {
			t.Fatalf("transpose %d: len = %d, want 3", transpose, len(got))
		}
		for i, pitches := range got {
			if len(pitches) != 0 {
				t.Errorf("transpose %d: slice %d = %v, want empty", transpose, i, pitches)
			}
		}
	}
}

func TestExtractRange(t *testing.T) {
	moments := []timeline.Moment{on(0, 0)}

	if got := Extract(moments, -1); len(got) != 1 || len(got[0]) != 0 {
		t.Errorf("key 0 at -1 = %v, want omitted", got)
	}

	got := Extract(moments, 0)
	if len(got) != 1 || len(got[0]) != 1 {
		t.Fatalf("key 0 at 0 = %v", got)
	}
	if got[0][0].Octave != 0 || got[0][0].Offset != 0 {
		t.Errorf("key 0 = %+v, want octave 0 offset 0", got[0][0])
	}

	if got := Extract([]timeline.Moment{on(0, 127)}, 1); len(got[0]) != 0 {
		t.Errorf("key 127 at +1 = %v, want omitted", got)
	}
}

func TestExtractTransposeDedup(t *testing.T) {
	moments := []timeline.Moment{{
		timeline.MIDIEvent(midi.NoteOn(0, 60, 100)),
		timeline.MIDIEvent(midi.NoteOn(0, 60, 100)),
	}}
	got := Extract(moments, 2)
	if len(got[0]) != 1 || got[0][0] != note.FromKey(62) {
		t.Errorf("Extract() = %v, want [D4]", got)
	}
}

func TestTransposeZeroReturnsInput(t *testing.T) {
	moments := []timeline.Moment{on(0, 60), nil}
	got := Transpose(moments, 0)
	if &got[0] != &moments[0] {
		t.Error("Transpose(0) copied the moments")
	}
}

func TestTransposeCopies(t *testing.T) {
	moments := []timeline.Moment{
		{
			timeline.MIDIEvent(midi.NoteOn(0, 60, 100)),
			timeline.MIDIEvent(midi.NoteOn(timeline.PercussionChannel, 36, 100)),
			timeline.MIDIEvent(midi.ControlChange(0, 7, 100)),
			timeline.TempoEvent(300000),
		},
		nil,
		off(0, 60),
		on(0, 126),
	}

	got := Transpose(moments, 3)
	if len(got) != len(moments) {
		t.Fatalf("len = %d, want %d", len(got), len(moments))
	}

	var ch, key, vel uint8
	if !got[0][0].Message.GetNoteStart(&ch, &key, &vel) || key != 63 {
		t.Errorf("note = %v, want key 63", got[0][0].Message)
	}
	if !got[0][1].Message.GetNoteStart(&ch, &key, &vel) || key != 36 {
		t.Errorf("drum = %v, want key 36 unchanged", got[0][1].Message)
	}
	var ctl, val uint8
	if !got[0][2].Message.GetControlChange(&ch, &ctl, &val) || ctl != 7 {
		t.Errorf("control change = %v, want untouched", got[0][2].Message)
	}
	if got[0][3].Kind != timeline.EventTempo {
		t.Error("tempo event lost")
	}
	if !got[2][0].Message.GetNoteEnd(&ch, &key) || key != 63 {
		t.Errorf("note off = %v, want key 63", got[2][0].Message)
	}
	if !got[3].IsEmpty() {
		t.Errorf("key 129 should be dropped, got %v", got[3])
	}

	if !moments[0][0].Message.GetNoteStart(&ch, &key, &vel) || key != 60 {
		t.Error("Transpose modified its input")
	}
	if len(moments[3]) != 1 {
		t.Error("Transpose dropped events from its input")
	}
}
