package timeline

import (
	"bytes"
	"fmt"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Encode writes moments as a single-track Standard MIDI File. The tempo the
// moments start with is written first so the excerpt plays at the right
// speed on its own.
func Encode(moments []Moment, ticker Ticker) ([]byte, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticker.TicksPerBeat)

	var track smf.Track

	// Add tempo meta event
	track.Add(0, tempoMessage(ticker.MicrosPerBeat))

	var delta uint32
	for _, m := range moments {
		for _, e := range m {
			switch e.Kind {
			case EventTempo:
				track.Add(delta, tempoMessage(e.Tempo))
			case EventMIDI:
				track.Add(delta, e.Message.Bytes())
			default:
				continue
			}
			delta = 0
		}
		delta++
	}

	// End of track after the last moment, so trailing rests survive
	track.Close(delta)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteFile encodes moments and writes them to filename
func WriteFile(filename string, moments []Moment, ticker Ticker) error {
	data, err := Encode(moments, ticker)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

func tempoMessage(microsPerBeat uint32) smf.Message {
	return smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsPerBeat >> 16),
		byte(microsPerBeat >> 8),
		byte(microsPerBeat),
	})
}
