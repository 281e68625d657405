package api

import (
	"sync"

	"github.com/james-see/midnote/pkg/player"
)

// Monitor keeps the latest player responses for the read endpoints
type Monitor struct {
	mu       sync.RWMutex
	state    player.State
	notes    player.Notes
	position string
}

// NewMonitor returns a monitor that has seen nothing yet
func NewMonitor() *Monitor {
	return &Monitor{state: player.State{Bar: -1}}
}

// Observe records a response. It is registered as a session observer.
func (m *Monitor) Observe(r player.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch r.Kind {
	case player.ResponseStartOfTrack:
		m.position = "start"
	case player.ResponseEndOfTrack:
		m.position = "end"
	case player.ResponseNotes:
		m.position = ""
		m.notes = r.Notes
		m.state = r.State
	case player.ResponseState:
		m.state = r.State
	}
}

// Snapshot returns the last known state, notes and track position
// ("start", "end" or empty).
func (m *Monitor) Snapshot() (player.State, player.Notes, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.notes, m.position
}
