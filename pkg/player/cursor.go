package player

// Cursor tracks where the next navigation lands. Index is a boundary, not
// the current bar: after moving forward it points one past the bar just
// played, after moving backward it points at the bar just played. Turning
// around therefore takes a two-bar step so the adjacent bar plays next.
type Cursor struct {
	Index       int
	LastForward bool
}

// NewCursor returns a cursor at the start of the track
func NewCursor() Cursor {
	return Cursor{LastForward: true}
}

// Advance moves forward over n bars and returns the bar to play. It fails
// without changing the cursor when there is no next bar.
func (c *Cursor) Advance(n int) (int, bool) {
	if c.Index >= n || (c.LastForward && c.Index+1 > n) {
		return 0, false
	}
	next := c.Index + 2
	if c.LastForward {
		next = c.Index + 1
	}
	if next > n {
		return 0, false
	}
	c.Index = next
	c.LastForward = true
	return c.Index - 1, true
}

// Retreat moves backward and returns the bar to play. It fails without
// changing the cursor when there is no previous bar.
func (c *Cursor) Retreat() (int, bool) {
	step := 1
	if c.LastForward {
		step = 2
	}
	if c.Index < step {
		return 0, false
	}
	c.Index -= step
	c.LastForward = false
	return c.Index, true
}

// Reset moves the cursor back to the start of the track
func (c *Cursor) Reset() {
	*c = NewCursor()
}
