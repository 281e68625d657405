// Package note names MIDI key numbers
package note

import (
	"fmt"
	"strings"
)

// Style selects how pitch classes are spelled
type Style int

const (
	StyleMixed  Style = iota // C C# D E♭ E F F# G A♭ A B♭ B
	StyleSharps              // C C# D D# E F F# G G# A A# B
	StyleFlats               // C D♭ D E♭ E F G♭ G A♭ A B♭ B
)

var names = [...][12]string{
	StyleMixed:  {"C", "C#", "D", "E♭", "E", "F", "F#", "G", "A♭", "A", "B♭", "B"},
	StyleSharps: {"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"},
	StyleFlats:  {"C", "D♭", "D", "E♭", "E", "F", "G♭", "G", "A♭", "A", "B♭", "B"},
}

var styleNames = [...]string{
	StyleMixed:  "mixed",
	StyleSharps: "sharps",
	StyleFlats:  "flats",
}

// String returns the config name of the style
func (s Style) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return styleNames[StyleMixed]
	}
	return styleNames[s]
}

// Next cycles to the following style
func (s Style) Next() Style {
	return (s + 1) % Style(len(styleNames))
}

// ParseStyle converts a config name to a Style
func ParseStyle(name string) (Style, error) {
	for i, n := range styleNames {
		if strings.EqualFold(n, name) {
			return Style(i), nil
		}
	}
	return StyleMixed, fmt.Errorf("unknown note style %q (want mixed, sharps or flats)", name)
}

// Pitch is a key number split into octave and offset within the octave
type Pitch struct {
	Octave uint8
	Offset uint8
}

// FromKey converts a MIDI key number (0-127)
func FromKey(key uint8) Pitch {
	return Pitch{Octave: key / 12, Offset: key % 12}
}

// Key returns the MIDI key number
func (p Pitch) Key() uint8 {
	return p.Octave*12 + p.Offset
}

// Name renders the pitch in scientific notation, key 60 being C4
func (p Pitch) Name(s Style) string {
	if s < 0 || int(s) >= len(names) {
		s = StyleMixed
	}
	return fmt.Sprintf("%s%d", names[s][p.Offset%12], int(p.Octave)-1)
}

// String renders the pitch in the mixed style
func (p Pitch) String() string {
	return p.Name(StyleMixed)
}

// Join renders a slice of pitches separated by commas
func Join(ps []Pitch, s Style) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Name(s)
	}
	return strings.Join(parts, ", ")
}
