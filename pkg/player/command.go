package player

import "fmt"

// CommandKind identifies a player command
type CommandKind int

const (
	CommandNext CommandKind = iota
	CommandPrev
	CommandReplay
	CommandSilence
	CommandReset
	CommandToggleSolo
	CommandTranspose
	CommandSpeed
	CommandInfo
)

var commandNames = [...]string{
	CommandNext:       "next",
	CommandPrev:       "prev",
	CommandReplay:     "replay",
	CommandSilence:    "silence",
	CommandReset:      "reset",
	CommandToggleSolo: "solo",
	CommandTranspose:  "transpose",
	CommandSpeed:      "speed",
	CommandInfo:       "info",
}

func (k CommandKind) String() string {
	if k < 0 || int(k) >= len(commandNames) {
		return fmt.Sprintf("command(%d)", int(k))
	}
	return commandNames[k]
}

// ParseCommandKind looks a command up by name
func ParseCommandKind(name string) (CommandKind, bool) {
	for i, n := range commandNames {
		if n == name {
			return CommandKind(i), true
		}
	}
	return 0, false
}

// Command is sent to the player's control loop
type Command struct {
	Kind      CommandKind
	Transpose int     // CommandTranspose: semitones, 0 resets
	Speed     float64 // CommandSpeed: added to the multiplier
}

func Next() Command       { return Command{Kind: CommandNext} }
func Prev() Command       { return Command{Kind: CommandPrev} }
func Replay() Command     { return Command{Kind: CommandReplay} }
func Silence() Command    { return Command{Kind: CommandSilence} }
func Reset() Command      { return Command{Kind: CommandReset} }
func ToggleSolo() Command { return Command{Kind: CommandToggleSolo} }
func Info() Command       { return Command{Kind: CommandInfo} }

// TransposeBy shifts the transposition; a zero delta resets it
func TransposeBy(delta int) Command {
	return Command{Kind: CommandTranspose, Transpose: delta}
}

// SpeedBy changes the speed multiplier
func SpeedBy(delta float64) Command {
	return Command{Kind: CommandSpeed, Speed: delta}
}

// ResponseKind identifies a player response
type ResponseKind int

const (
	ResponseStartOfTrack ResponseKind = iota
	ResponseEndOfTrack
	ResponseNotes
	ResponseState
)

var responseNames = [...]string{
	ResponseStartOfTrack: "start",
	ResponseEndOfTrack:   "end",
	ResponseNotes:        "notes",
	ResponseState:        "state",
}

func (k ResponseKind) String() string {
	if k < 0 || int(k) >= len(responseNames) {
		return fmt.Sprintf("response(%d)", int(k))
	}
	return responseNames[k]
}

// State is a snapshot of the player settings
type State struct {
	Bar       int     `json:"bar"` // last played bar, -1 before the first
	Cursor    int     `json:"cursor"`
	Bars      int     `json:"bars"`
	Transpose int     `json:"transpose"`
	Solo      bool    `json:"solo"`
	Speed     float64 `json:"speed"`
	Tempo     float64 `json:"tempo"` // bpm from the file, before speed
}

// Response is published by the control loop
type Response struct {
	Kind  ResponseKind
	Bar   int   // ResponseNotes: the bar about to sound
	Notes Notes // ResponseNotes
	State State // ResponseState, and ResponseNotes after the cursor moved
}
