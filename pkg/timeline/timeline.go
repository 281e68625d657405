package timeline

// Merge combines two timelines tick by tick. Events of t come before the
// events of other within a moment. Neither input is modified.
func Merge(t, other Timeline) Timeline {
	n := len(t)
	if len(other) > n {
		n = len(other)
	}
	out := make(Timeline, n)
	for i := range out {
		var a, b Moment
		if i < len(t) {
			a = t[i]
		}
		if i < len(other) {
			b = other[i]
		}
		switch {
		case a.IsEmpty():
			out[i] = b
		case b.IsEmpty():
			out[i] = a
		default:
			m := make(Moment, 0, len(a)+len(b))
			m = append(m, a...)
			m = append(m, b...)
			out[i] = m
		}
	}
	return out
}

// Parallel merges all timelines so they play at the same time
func Parallel(ts ...Timeline) Timeline {
	var out Timeline
	for _, t := range ts {
		out = Merge(out, t)
	}
	return out
}

// Sequential plays the timelines one after another
func Sequential(ts ...Timeline) Timeline {
	var n int
	for _, t := range ts {
		n += len(t)
	}
	out := make(Timeline, 0, n)
	for _, t := range ts {
		out = append(out, t...)
	}
	return out
}

// MetaOnly returns a copy of t with every channel message removed, keeping
// tempo changes and inert meta events.
func MetaOnly(t Timeline) Timeline {
	return filter(t, func(e Event) bool { return e.Kind != EventMIDI })
}

// ChannelOnly returns a copy of t holding only channel messages
func ChannelOnly(t Timeline) Timeline {
	return filter(t, func(e Event) bool { return e.Kind == EventMIDI })
}

func filter(t Timeline, keep func(Event) bool) Timeline {
	out := make(Timeline, len(t))
	for i, m := range t {
		var kept Moment
		for _, e := range m {
			if keep(e) {
				kept = append(kept, e)
			}
		}
		out[i] = kept
	}
	return out
}

// Pad extends t with silent moments up to n ticks. A timeline that is
// already long enough is returned as is.
func Pad(t Timeline, n int) Timeline {
	if len(t) >= n {
		return t
	}
	out := make(Timeline, n)
	copy(out, t)
	return out
}
