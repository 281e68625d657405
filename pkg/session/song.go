// Package session wires a decoded file to an output device and a running
// player, and fans the player's responses out to any number of observers.
package session

import (
	"fmt"

	"github.com/james-see/midnote/pkg/player"
	"github.com/james-see/midnote/pkg/timeline"
)

// Song is a decoded file cut into bars around one solo track
type Song struct {
	File  *timeline.File
	Track int // solo track index
	All   []player.Bar
	Solo  []player.Bar
}

// Load reads and decodes path. See NewSong for track and beatsPerBar.
func Load(path string, track, beatsPerBar int) (*Song, error) {
	f, err := timeline.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewSong(f, track, beatsPerBar)
}

// NewSong cuts f into bars. A negative track picks the track with the most
// notes; beatsPerBar below 1 means the default.
func NewSong(f *timeline.File, track, beatsPerBar int) (*Song, error) {
	if track < 0 {
		track = f.DefaultSolo()
	}
	solo, err := f.Solo(track)
	if err != nil {
		return nil, err
	}

	all, soloBars := player.NewBars(f.All(), solo, f.TicksPerBeat, beatsPerBar)
	return &Song{
		File:  f,
		Track: track,
		All:   all,
		Solo:  soloBars,
	}, nil
}

// TrackName describes the solo track
func (s *Song) TrackName() string {
	tracks := s.File.Tracks()
	if s.Track < len(tracks) {
		return tracks[s.Track].String()
	}
	return ""
}

// Export renders bar n as a standalone SMF, from the solo line or the full
// mix, transposed by the given semitones.
func (s *Song) Export(n int, solo bool, transpose int) ([]byte, error) {
	if n < 0 || n >= len(s.All) {
		return nil, fmt.Errorf("bar %d out of range: the file has %d bars", n, len(s.All))
	}
	bar := s.All[n]
	if solo {
		bar = s.Solo[n]
	}
	return timeline.Encode(player.Transpose(bar.Trim(), transpose), bar.Ticker)
}
