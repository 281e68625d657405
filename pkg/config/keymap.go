package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/james-see/midnote/pkg/player"
)

// KeyMap holds the bindings built from Keys. It satisfies help.KeyMap.
type KeyMap struct {
	Next           key.Binding
	Prev           key.Binding
	Replay         key.Binding
	Silence        key.Binding
	Rewind         key.Binding
	Solo           key.Binding
	TransposeUp    key.Binding
	TransposeDown  key.Binding
	TransposeReset key.Binding
	SpeedUp        key.Binding
	SpeedDown      key.Binding
	Info           key.Binding
	NoteStyle      key.Binding
	Help           key.Binding
	Exit           key.Binding

	speedStep float64
}

// KeyMap builds the key bindings
func (c *Config) KeyMap() KeyMap {
	k := c.Keys
	return KeyMap{
		Next:           binding(k.Next, "next bar"),
		Prev:           binding(k.Prev, "previous bar"),
		Replay:         binding(k.Replay, "replay"),
		Silence:        binding(k.Silence, "silence"),
		Rewind:         binding(k.Rewind, "rewind to start"),
		Solo:           binding(k.Solo, "toggle solo"),
		TransposeUp:    binding(k.TransposeUp, "transpose up"),
		TransposeDown:  binding(k.TransposeDown, "transpose down"),
		TransposeReset: binding(k.TransposeReset, "reset transpose"),
		SpeedUp:        binding(k.SpeedUp, fmt.Sprintf("speed +%g", c.SpeedStep)),
		SpeedDown:      binding(k.SpeedDown, fmt.Sprintf("speed -%g", c.SpeedStep)),
		Info:           binding(k.Info, "info"),
		NoteStyle:      binding(k.NoteStyle, "note names"),
		Help:           binding(k.Help, "help"),
		Exit:           binding(k.Exit, "quit"),
		speedStep:      c.SpeedStep,
	}
}

// Command translates a key press into a player command. Keys that only
// affect the presentation (note style, help, exit) yield false.
func (k KeyMap) Command(msg fmt.Stringer) (player.Command, bool) {
	switch {
	case key.Matches(msg, k.Next):
		return player.Next(), true
	case key.Matches(msg, k.Prev):
		return player.Prev(), true
	case key.Matches(msg, k.Replay):
		return player.Replay(), true
	case key.Matches(msg, k.Silence):
		return player.Silence(), true
	case key.Matches(msg, k.Rewind):
		return player.Reset(), true
	case key.Matches(msg, k.Solo):
		return player.ToggleSolo(), true
	case key.Matches(msg, k.TransposeUp):
		return player.TransposeBy(1), true
	case key.Matches(msg, k.TransposeDown):
		return player.TransposeBy(-1), true
	case key.Matches(msg, k.TransposeReset):
		return player.TransposeBy(0), true
	case key.Matches(msg, k.SpeedUp):
		return player.SpeedBy(k.speedStep), true
	case key.Matches(msg, k.SpeedDown):
		return player.SpeedBy(-k.speedStep), true
	case key.Matches(msg, k.Info):
		return player.Info(), true
	}
	return player.Command{}, false
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Replay, k.Silence, k.Help, k.Exit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Replay, k.Silence, k.Rewind},
		{k.Solo, k.TransposeUp, k.TransposeDown, k.TransposeReset},
		{k.SpeedUp, k.SpeedDown, k.Info, k.NoteStyle, k.Help, k.Exit},
	}
}

func binding(keys []string, desc string) key.Binding {
	names := make([]string, len(keys))
	shown := make([]string, len(keys))
	for i, k := range keys {
		names[i] = keyName(k)
		shown[i] = displayName(names[i])
	}
	return key.NewBinding(
		key.WithKeys(names...),
		key.WithHelp(strings.Join(shown, "/"), desc),
	)
}

// keyName maps a configured name to the string bubbletea reports
func keyName(k string) string {
	if strings.EqualFold(k, "space") {
		return " "
	}
	return k
}

func displayName(k string) string {
	switch k {
	case " ":
		return "space"
	case "right":
		return "→"
	case "left":
		return "←"
	case "up":
		return "↑"
	case "down":
		return "↓"
	}
	return k
}
