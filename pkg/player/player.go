// Package player steps through a track bar by bar and plays each bar on a
// MIDI output in the background.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/james-see/midnote/pkg/timeline"
)

const (
	DefaultSpeed = 1.0
	// MinSpeed is the slowest multiplier; speed never reaches zero
	MinSpeed = 0.1
)

// ErrBarMismatch is returned when the full and solo bar lists differ in length
var ErrBarMismatch = errors.New("full and solo bar lists have different lengths")

// Player owns the navigation state. All of its fields are touched only by
// the goroutine running Run; workers get copies of what they need.
type Player struct {
	out  *Output
	all  []Bar
	solo []Bar
	log  *slog.Logger

	cursor    Cursor
	transpose int
	speed     float64
	soloOn    bool
	last      int

	worker *worker
}

// worker is one bar being played. cancel is unbuffered: a send completes
// only when the worker takes it, so the sender knows it has been seen.
type worker struct {
	cancel chan struct{}
	done   chan struct{}
}

// Option configures a Player
type Option func(*Player)

// WithTranspose sets the starting transposition
func WithTranspose(semitones int) Option {
	return func(p *Player) { p.transpose = semitones % 12 }
}

// WithSpeed sets the starting speed multiplier
func WithSpeed(speed float64) Option {
	return func(p *Player) { p.speed = clampSpeed(speed) }
}

// WithSolo starts with only the solo line sounding
func WithSolo(on bool) Option {
	return func(p *Player) { p.soloOn = on }
}

// WithLogger sets the logger used for diagnostics
func WithLogger(log *slog.Logger) Option {
	return func(p *Player) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a player over two bar lists with the same boundaries
func New(out *Output, all, solo []Bar, opts ...Option) (*Player, error) {
	if len(all) != len(solo) {
		return nil, fmt.Errorf("%w: %d and %d", ErrBarMismatch, len(all), len(solo))
	}
	p := &Player{
		out:    out,
		all:    all,
		solo:   solo,
		log:    slog.Default(),
		cursor: NewCursor(),
		speed:  DefaultSpeed,
		last:   -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run consumes commands in order until the channel is closed or ctx is
// cancelled. It never waits on playback pacing itself. On return the
// current bar is stopped and the output silenced.
func (p *Player) Run(ctx context.Context, commands <-chan Command, responses chan<- Response) error {
	defer func() {
		p.stop()
		p.out.Silence()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			if err := p.handle(ctx, cmd, responses); err != nil {
				return err
			}
		}
	}
}

func (p *Player) handle(ctx context.Context, cmd Command, responses chan<- Response) error {
	p.log.Debug("command", "kind", cmd.Kind.String(), "cursor", p.cursor.Index, "forward", p.cursor.LastForward)

	switch cmd.Kind {
	case CommandNext:
		bar, ok := p.cursor.Advance(len(p.all))
		if !ok {
			return p.send(ctx, responses, Response{Kind: ResponseEndOfTrack})
		}
		return p.play(ctx, responses, bar)

	case CommandPrev:
		bar, ok := p.cursor.Retreat()
		if !ok {
			return p.send(ctx, responses, Response{Kind: ResponseStartOfTrack})
		}
		return p.play(ctx, responses, bar)

	case CommandReplay:
		if p.last < 0 {
			return nil
		}
		return p.play(ctx, responses, p.last)

	case CommandSilence:
		p.stop()
		p.out.Silence()
		return nil

	case CommandReset:
		p.cursor.Reset()
		p.speed = DefaultSpeed
		p.last = -1

	case CommandToggleSolo:
		p.soloOn = !p.soloOn

	case CommandTranspose:
		if cmd.Transpose == 0 {
			p.transpose = 0
		} else {
			p.transpose = (p.transpose + cmd.Transpose) % 12
		}

	case CommandSpeed:
		p.speed = clampSpeed(p.speed + cmd.Speed)

	case CommandInfo:

	default:
		p.log.Warn("unknown command", "kind", int(cmd.Kind))
		return nil
	}

	return p.send(ctx, responses, Response{Kind: ResponseState, State: p.State()})
}

// State returns a snapshot of the player settings. Only safe to call from
// the goroutine running Run, or when Run is not running.
func (p *Player) State() State {
	return State{
		Bar:       p.last,
		Cursor:    p.cursor.Index,
		Bars:      len(p.all),
		Transpose: p.transpose,
		Solo:      p.soloOn,
		Speed:     p.speed,
		Tempo:     p.tempo(),
	}
}

// tempo is the file tempo where the last played bar starts, or where the
// track starts before anything was played
func (p *Player) tempo() float64 {
	switch {
	case p.last >= 0:
		return p.all[p.last].Ticker.BPM()
	case len(p.all) > 0:
		return p.all[0].Ticker.BPM()
	}
	return 0
}

func (p *Player) send(ctx context.Context, responses chan<- Response, r Response) error {
	select {
	case responses <- r:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("response channel: %w", ctx.Err())
	}
}

// play stops the current bar, silences the output, reports the notes of
// the solo line and starts a worker for the chosen bar.
func (p *Player) play(ctx context.Context, responses chan<- Response, bar int) error {
	p.stop()
	p.out.Silence()
	p.last = bar

	notes := Extract(p.solo[bar].Trim(), p.transpose)
	if err := p.send(ctx, responses, Response{Kind: ResponseNotes, Bar: bar, Notes: notes, State: p.State()}); err != nil {
		return err
	}

	source := p.all
	if p.soloOn {
		source = p.solo
	}

	w := &worker{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	p.worker = w
	go p.out.play(w, source[bar], p.transpose, p.speed)
	return nil
}

// stop hands a cancellation to the running worker and returns once the
// worker has taken it or has already finished.
func (p *Player) stop() {
	if p.worker == nil {
		return
	}
	select {
	case p.worker.cancel <- struct{}{}:
	case <-p.worker.done:
	}
	p.worker = nil
}

// play paces one bar onto the sink. The lock is held for the whole bar.
func (o *Output) play(w *worker, b Bar, transpose int, speed float64) {
	defer close(w.done)

	o.mu.Lock()
	defer o.mu.Unlock()

	ticker := b.Ticker
	var empty uint32

	for _, m := range Transpose(b.Trim(), transpose) {
		select {
		case <-w.cancel:
			return
		default:
		}

		if m.IsEmpty() {
			empty++
			continue
		}

		if d := scaleDuration(ticker.SleepDuration(empty), speed); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-w.cancel:
				t.Stop()
				return
			case <-t.C:
			}
		}
		empty = 0

		for _, e := range m {
			switch e.Kind {
			case timeline.EventTempo:
				ticker.ChangeTempo(e.Tempo)
			case timeline.EventMIDI:
				o.sendLocked(e.Message)
			}
		}
	}
}

func scaleDuration(d time.Duration, speed float64) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(float64(d) / speed)
}

// clampSpeed keeps the multiplier at or above MinSpeed
func clampSpeed(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return DefaultSpeed
	}
	if s < MinSpeed {
		return MinSpeed
	}
	return s
}
