package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/james-see/midnote/pkg/device"
	"github.com/james-see/midnote/pkg/player"
)

// commandBuffer bounds how many key presses can queue ahead of the player
const commandBuffer = 32

// Options configures Open
type Options struct {
	Device    int
	DryRun    bool // log MIDI instead of opening a device
	Transpose int
	Speed     float64
	Solo      bool
	Logger    *slog.Logger

	// Sink replaces the device when set
	Sink player.Sink
}

// Observer receives every response in order. It runs on the fan-out
// goroutine and should return quickly.
type Observer func(player.Response)

// Session is a running player bound to an output
type Session struct {
	Song *Song

	player   *player.Player
	output   *player.Output
	device   io.Closer
	log      *slog.Logger
	commands chan player.Command

	mu        sync.Mutex
	observers []Observer
}

// Open connects song to an output and prepares the player
func Open(song *Song, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		Song:     song,
		log:      log,
		commands: make(chan player.Command, commandBuffer),
	}

	sink := opts.Sink
	switch {
	case sink != nil:
	case opts.DryRun:
		sink = device.LogSink{Log: log}
	default:
		out, err := device.Open(opts.Device)
		if err != nil {
			return nil, err
		}
		sink = out
		s.device = out
	}

	s.output = player.NewOutput(sink, log)

	popts := []player.Option{
		player.WithLogger(log),
		player.WithTranspose(opts.Transpose),
		player.WithSolo(opts.Solo),
	}
	if opts.Speed > 0 {
		popts = append(popts, player.WithSpeed(opts.Speed))
	}

	p, err := player.New(s.output, song.All, song.Solo, popts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.player = p
	return s, nil
}

// Observe registers fn for every response published after this call
func (s *Session) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Send queues a command behind those already waiting
func (s *Session) Send(ctx context.Context, cmd player.Command) error {
	select {
	case s.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend queues a command unless the queue is full
func (s *Session) TrySend(cmd player.Command) bool {
	select {
	case s.commands <- cmd:
		return true
	default:
		return false
	}
}

// Dropped reports how many MIDI messages failed to reach the device
func (s *Session) Dropped() uint64 {
	return s.output.Dropped()
}

// Run plays until ctx is cancelled. Responses are delivered to the
// observers in order; Run returns after the last one has been delivered.
func (s *Session) Run(ctx context.Context) error {
	responses := make(chan player.Response, commandBuffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for r := range responses {
			s.publish(r)
		}
	}()

	s.log.Info("session started", "bars", len(s.Song.All), "track", s.Song.Track)
	err := s.player.Run(ctx, s.commands, responses)
	close(responses)
	<-done

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("player: %w", err)
	}
	s.log.Info("session stopped", "dropped", s.Dropped())
	return nil
}

func (s *Session) publish(r player.Response) {
	s.mu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	s.log.Debug("response", "kind", r.Kind.String(), "bar", r.Bar)
	for _, fn := range observers {
		fn(r)
	}
}

// Close releases the output device
func (s *Session) Close() error {
	if s.device == nil {
		return nil
	}
	err := s.device.Close()
	device.Close()
	s.device = nil
	return err
}
