package player

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/midnote/pkg/note"
	"github.com/james-see/midnote/pkg/timeline"
)

// Notes holds the sounding pitches of a bar, one entry per non-silent tick
type Notes [][]note.Pitch

// Extract lists the pitches started in each non-silent moment, shifted by
// transpose semitones. Drum notes are ignored and pitches pushed outside
// the MIDI key range are dropped. Each pitch appears once per moment.
func Extract(moments []timeline.Moment, transpose int) Notes {
	out := make(Notes, 0, len(moments))
	for _, m := range moments {
		if m.IsEmpty() {
			continue
		}
		out = append(out, momentPitches(m, transpose))
	}
	return out
}

func momentPitches(m timeline.Moment, transpose int) []note.Pitch {
	pitches := []note.Pitch{}
	seen := make(map[uint8]bool, len(m))
	for _, e := range m {
		if e.Kind != timeline.EventMIDI {
			continue
		}
		var ch, key, vel uint8
		if !e.Message.GetNoteStart(&ch, &key, &vel) || ch == timeline.PercussionChannel {
			continue
		}
		k, ok := shiftKey(key, transpose)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		pitches = append(pitches, note.FromKey(k))
	}
	return pitches
}

func shiftKey(key uint8, delta int) (uint8, bool) {
	k := int(key) + delta
	if k < 0 || k > 127 {
		return 0, false
	}
	return uint8(k), true
}

// Transpose shifts every keyed channel message by delta semitones. With a
// zero delta the input slice itself is returned; otherwise the result is a
// fresh copy and the input is left untouched. Callers must not rely on
// which of the two they got. Messages shifted out of range are dropped.
func Transpose(moments []timeline.Moment, delta int) []timeline.Moment {
	if delta == 0 {
		return moments
	}

	out := make([]timeline.Moment, len(moments))
	for i, m := range moments {
		if m.IsEmpty() {
			continue
		}
		shifted := make(timeline.Moment, 0, len(m))
		for _, e := range m {
			if e.Kind == timeline.EventMIDI {
				msg, ok := transposeMessage(e.Message, delta)
				if !ok {
					continue
				}
				e = timeline.MIDIEvent(msg)
			}
			shifted = append(shifted, e)
		}
		out[i] = shifted
	}
	return out
}

func transposeMessage(msg midi.Message, delta int) (midi.Message, bool) {
	if len(msg) < 3 {
		return msg, true
	}
	switch msg[0] & 0xF0 {
	case 0x80, 0x90, 0xA0: // note off, note on, polyphonic aftertouch
	default:
		return msg, true
	}
	if msg[0]&0x0F == timeline.PercussionChannel {
		return msg, true
	}

	k, ok := shiftKey(msg[1], delta)
	if !ok {
		return nil, false
	}
	out := make(midi.Message, len(msg))
	copy(out, msg)
	out[1] = k
	return out, true
}
