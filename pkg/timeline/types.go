// Package timeline provides the decoded, per-tick view of a Standard MIDI File
package timeline

import (
	"gitlab.com/gomidi/midi/v2"
)

// EventKind identifies what an Event carries
type EventKind uint8

const (
	EventMIDI  EventKind = iota // channel message, forwarded to the output
	EventTempo                  // tempo change, microseconds per beat
	EventMeta                   // inert meta or sysex data
)

// PercussionChannel is the zero-based General MIDI drum channel
const PercussionChannel uint8 = 9

// Event is a single entry of a Moment
type Event struct {
	Kind    EventKind
	Tempo   uint32       // EventTempo only
	Message midi.Message // EventMIDI: channel message, EventMeta: raw bytes
}

// Moment holds the events of one tick. A Moment without events is silent.
type Moment []Event

// IsEmpty reports whether the moment carries no events
func (m Moment) IsEmpty() bool {
	return len(m) == 0
}

// Timeline is a sequence of moments indexed by tick
type Timeline []Moment

// MIDIEvent wraps a channel message
func MIDIEvent(msg midi.Message) Event {
	return Event{Kind: EventMIDI, Message: msg}
}

// TempoEvent creates a tempo change to the given microseconds per beat
func TempoEvent(microsPerBeat uint32) Event {
	return Event{Kind: EventTempo, Tempo: microsPerBeat}
}

// MetaEvent wraps inert data
func MetaEvent(data []byte) Event {
	return Event{Kind: EventMeta, Message: midi.Message(data)}
}

// TrackInfo describes one track of a decoded file
type TrackInfo struct {
	Index      int
	Name       string
	Instrument string
	Notes      int // number of note-on events
}

// String renders the track the way the chooser lists it
func (t TrackInfo) String() string {
	name := t.Name
	if name == "" {
		name = "Unnamed Track"
	}
	if t.Instrument != "" {
		return name + " (" + t.Instrument + ")"
	}
	return name
}
