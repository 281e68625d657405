package player

import (
	"github.com/james-see/midnote/pkg/timeline"
)

// DefaultBeatsPerBar is used when no time signature is configured
const DefaultBeatsPerBar = 4

// Bar is one bar of a timeline together with the tempo clock in effect
// where it starts. Bars are shared read-only between playback workers.
type Bar struct {
	Ticker  timeline.Ticker
	Moments []timeline.Moment
}

// Segment splits a timeline into bars of beatsPerBar beats. The ticker
// stored with a bar does not include tempo changes made inside that bar;
// the following bar's ticker does.
func Segment(t timeline.Timeline, tpb uint16, beatsPerBar int) []Bar {
	if beatsPerBar <= 0 {
		beatsPerBar = DefaultBeatsPerBar
	}
	size := int(tpb) * beatsPerBar
	if size <= 0 {
		size = beatsPerBar
	}

	ticker := timeline.NewTicker(tpb)
	bars := make([]Bar, 0, (len(t)+size-1)/size)

	for start := 0; start < len(t); start += size {
		end := start + size
		if end > len(t) {
			end = len(t)
		}
		moments := t[start:end:end]

		bars = append(bars, Bar{Ticker: ticker, Moments: moments})

		for _, m := range moments {
			for _, e := range m {
				if e.Kind == timeline.EventTempo {
					ticker.ChangeTempo(e.Tempo)
				}
			}
		}
	}

	return bars
}

// NewBars segments the full mix and the solo line with identical bar
// boundaries, padding the shorter timeline with silence.
func NewBars(all, solo timeline.Timeline, tpb uint16, beatsPerBar int) (allBars, soloBars []Bar) {
	n := len(all)
	if len(solo) > n {
		n = len(solo)
	}
	allBars = Segment(timeline.Pad(all, n), tpb, beatsPerBar)
	soloBars = Segment(timeline.Pad(solo, n), tpb, beatsPerBar)
	return allBars, soloBars
}

// Trim returns the bar's moments without leading and trailing silence.
// The result shares memory with the bar.
func (b Bar) Trim() []timeline.Moment {
	return trim(b.Moments)
}

func trim(moments []timeline.Moment) []timeline.Moment {
	start := 0
	for start < len(moments) && moments[start].IsEmpty() {
		start++
	}
	end := len(moments)
	for end > start && moments[end-1].IsEmpty() {
		end--
	}
	return moments[start:end]
}
