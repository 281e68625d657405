package player

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
)

// ccAllNotesOff is the channel mode controller that releases every note
const ccAllNotesOff uint8 = 123

// Sink receives raw MIDI bytes. drivers.Out from gomidi satisfies it.
type Sink interface {
	Send(data []byte) error
}

// Output guards the single output sink. Playback workers hold the lock
// for a whole bar; silence writes wait for it.
type Output struct {
	mu      sync.Mutex
	sink    Sink
	log     *slog.Logger
	dropped atomic.Uint64
}

// NewOutput wraps a sink
func NewOutput(sink Sink, log *slog.Logger) *Output {
	if log == nil {
		log = slog.Default()
	}
	return &Output{sink: sink, log: log}
}

// Silence sends all-notes-off on every channel
func (o *Output) Silence() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.silenceLocked()
}

func (o *Output) silenceLocked() {
	for ch := uint8(0); ch < 16; ch++ {
		o.sendLocked(midi.ControlChange(ch, ccAllNotesOff, 0))
	}
}

// sendLocked writes one message; the caller holds mu. Failures are logged
// and counted, never returned: a dropped note must not stop playback.
func (o *Output) sendLocked(msg midi.Message) {
	if err := o.sink.Send(msg.Bytes()); err != nil {
		o.dropped.Add(1)
		o.log.Debug("midi send failed", "msg", msg.String(), "err", err)
	}
}

// Dropped returns how many messages failed to send
func (o *Output) Dropped() uint64 {
	return o.dropped.Load()
}
