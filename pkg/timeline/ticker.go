package timeline

import "time"

// DefaultTempo is 120 BPM in microseconds per beat
const DefaultTempo uint32 = 500000

// Ticker converts tick counts to wall-clock time at the current tempo.
// It is a value type; copies are independent clocks.
type Ticker struct {
	TicksPerBeat  uint16
	MicrosPerBeat uint32
}

// NewTicker creates a ticker at the default tempo
func NewTicker(ticksPerBeat uint16) Ticker {
	if ticksPerBeat == 0 {
		ticksPerBeat = 1
	}
	return Ticker{
		TicksPerBeat:  ticksPerBeat,
		MicrosPerBeat: DefaultTempo,
	}
}

// SleepDuration returns how long the given number of ticks lasts
func (t Ticker) SleepDuration(ticks uint32) time.Duration {
	if ticks == 0 || t.TicksPerBeat == 0 {
		return 0
	}
	micros := uint64(ticks) * uint64(t.MicrosPerBeat) / uint64(t.TicksPerBeat)
	return time.Duration(micros) * time.Microsecond
}

// ChangeTempo sets the tempo from here on
func (t *Ticker) ChangeTempo(microsPerBeat uint32) {
	if microsPerBeat == 0 {
		return
	}
	t.MicrosPerBeat = microsPerBeat
}

// BPM returns the current tempo in beats per minute
func (t Ticker) BPM() float64 {
	if t.MicrosPerBeat == 0 {
		return 0
	}
	return 60000000.0 / float64(t.MicrosPerBeat)
}
