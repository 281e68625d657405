package device

import (
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
)

// LogSink stands in for a port in dry runs: every message is logged and
// nothing is sent anywhere.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Send(data []byte) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("midi out", "msg", midi.Message(data).String())
	return nil
}
