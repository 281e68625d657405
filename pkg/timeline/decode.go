package timeline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrUnsupportedTimeFormat is returned for files whose time base is not
// metrical (ticks per quarter note).
var ErrUnsupportedTimeFormat = errors.New("the midi file has an unsupported time format")

// ErrNoSuchTrack is returned when a track index is out of range
var ErrNoSuchTrack = errors.New("no such track")

// SMF formats as stored in the header chunk
const (
	FormatSingle     uint16 = 0
	FormatParallel   uint16 = 1
	FormatSequential uint16 = 2
)

// File is a decoded Standard MIDI File
type File struct {
	Format       uint16
	TicksPerBeat uint16
	tracks       []Timeline
	infos        []TrackInfo
}

// ReadFile reads and decodes a MIDI file from disk
func ReadFile(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return Decode(data)
}

// Decode parses MIDI data into per-track timelines
func Decode(data []byte) (*File, error) {
	// smf.ReadFrom cannot compute absolute times for timecode files
	if headerTimecode(data) {
		return nil, ErrUnsupportedTimeFormat
	}

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrUnsupportedTimeFormat
	}

	f := &File{
		Format:       headerFormat(data),
		TicksPerBeat: mt.Resolution(),
		tracks:       make([]Timeline, 0, len(s.Tracks)),
		infos:        make([]TrackInfo, 0, len(s.Tracks)),
	}

	for i, track := range s.Tracks {
		tl, info := decodeTrack(track)
		info.Index = i
		f.tracks = append(f.tracks, tl)
		f.infos = append(f.infos, info)
	}

	return f, nil
}

// headerFormat reads the format word of the MThd chunk
func headerFormat(data []byte) uint16 {
	if len(data) < 10 || string(data[:4]) != "MThd" {
		return FormatSingle
	}
	return binary.BigEndian.Uint16(data[8:10])
}

// headerTimecode reports whether the MThd division word has bit 15 set,
// meaning SMPTE frames instead of ticks per quarter note
func headerTimecode(data []byte) bool {
	if len(data) < 14 || string(data[:4]) != "MThd" {
		return false
	}
	return binary.BigEndian.Uint16(data[12:14])&0x8000 != 0
}

func decodeTrack(track smf.Track) (Timeline, TrackInfo) {
	var (
		tl   Timeline
		info TrackInfo
		tick int64
	)

	for _, ev := range track {
		tick += int64(ev.Delta)
		msg := ev.Message

		if len(msg) == 0 {
			continue
		}
		// End of track (FF 2F 00): the track lasts until here, rests included
		if len(msg) >= 2 && msg[0] == 0xFF && msg[1] == 0x2F {
			for int64(len(tl)) < tick {
				tl = append(tl, nil)
			}
			continue
		}

		var text string
		if info.Name == "" && msg.GetMetaTrackName(&text) {
			info.Name = text
		}
		if info.Instrument == "" && msg.GetMetaInstrument(&text) {
			info.Instrument = text
		}

		e, ok := decodeEvent(msg)
		if !ok {
			continue
		}
		if e.Kind == EventMIDI {
			var ch, key, vel uint8
			if e.Message.GetNoteStart(&ch, &key, &vel) {
				info.Notes++
			}
		}

		for int64(len(tl)) <= tick {
			tl = append(tl, nil)
		}
		tl[tick] = append(tl[tick], e)
	}

	return tl, info
}

func decodeEvent(msg smf.Message) (Event, bool) {
	status := msg[0]

	switch {
	// Tempo meta message (FF 51 03 tt tt tt)
	case len(msg) >= 6 && status == 0xFF && msg[1] == 0x51 && msg[2] == 0x03:
		microsPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
		if microsPerBeat == 0 {
			return Event{}, false
		}
		return TempoEvent(microsPerBeat), true

	case status >= 0x80 && status < 0xF0:
		raw := make([]byte, len(msg))
		copy(raw, msg)
		return MIDIEvent(midi.Message(raw)), true

	default:
		return MetaEvent(msg), true
	}
}

// Parallel reports whether the tracks are meant to play simultaneously
func (f *File) Parallel() bool {
	return f.Format == FormatParallel && len(f.tracks) > 1
}

// Tracks returns information about every track
func (f *File) Tracks() []TrackInfo {
	out := make([]TrackInfo, len(f.infos))
	copy(out, f.infos)
	return out
}

// Track returns the timeline of a single track
func (f *File) Track(i int) (Timeline, error) {
	if i < 0 || i >= len(f.tracks) {
		return nil, fmt.Errorf("%w: %d (file has %d tracks)", ErrNoSuchTrack, i, len(f.tracks))
	}
	return f.tracks[i], nil
}

// All returns every track combined: merged for parallel files, one after
// another otherwise.
func (f *File) All() Timeline {
	if f.Format == FormatSequential {
		return Sequential(f.tracks...)
	}
	return Parallel(f.tracks...)
}

// Solo returns track i merged with the tempo and meta events of the whole
// file, so the track keeps its timing even if it carries no tempo events.
// Files that are not parallel have a single line and return All.
func (f *File) Solo(i int) (Timeline, error) {
	if !f.Parallel() {
		return f.All(), nil
	}
	track, err := f.Track(i)
	if err != nil {
		return nil, err
	}
	return Merge(MetaOnly(f.All()), ChannelOnly(track)), nil
}

// DefaultSolo picks the track used when the user does not choose one: the
// first track with the most notes.
func (f *File) DefaultSolo() int {
	best, most := 0, -1
	for _, info := range f.infos {
		if info.Notes > most {
			best, most = info.Index, info.Notes
		}
	}
	return best
}
