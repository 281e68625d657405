// Package device finds and opens MIDI output ports through the rtmidi driver.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

var (
	ErrNoDevice       = errors.New("no MIDI output devices detected")
	ErrDeviceNotFound = errors.New("MIDI device not found")
)

// scanTimeout bounds a port scan; CoreMIDI can hang
const scanTimeout = 3 * time.Second

// Port is one output port as listed to the user
type Port struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func (p Port) String() string {
	return fmt.Sprintf("%d: %s", p.Index, p.Name)
}

// List returns the output ports in driver order
func List() ([]Port, error) {
	outs, err := outPorts()
	if err != nil {
		return nil, err
	}
	ports := make([]Port, len(outs))
	for i, out := range outs {
		ports[i] = Port{Index: i, Name: out.String()}
	}
	return ports, nil
}

// Open opens output port n
func Open(n int) (drivers.Out, error) {
	outs, err := outPorts()
	if err != nil {
		return nil, err
	}
	if err := checkIndex(n, len(outs)); err != nil {
		return nil, err
	}

	out := outs[n]
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("open %q: %w", out.String(), err)
	}
	slog.Debug("midi output opened", "index", n, "device", out.String())
	return out, nil
}

// Close releases the driver. Ports opened through it stop working.
func Close() {
	midi.CloseDriver()
}

func outPorts() ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- midi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(scanTimeout):
		return nil, fmt.Errorf("scanning MIDI outputs: timed out after %s", scanTimeout)
	}
}

func checkIndex(n, count int) error {
	if count == 0 {
		return ErrNoDevice
	}
	if n < 0 || n >= count {
		return fmt.Errorf("%w: only %d MIDI devices detected; run with --list to see them", ErrDeviceNotFound, count)
	}
	return nil
}
