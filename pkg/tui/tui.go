// Package tui provides the terminal user interface for midnote
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/james-see/midnote/pkg/config"
	"github.com/james-see/midnote/pkg/note"
	"github.com/james-see/midnote/pkg/player"
	"github.com/james-see/midnote/pkg/session"
	"github.com/james-see/midnote/pkg/timeline"
)

// State represents the current TUI state
type State int

const (
	StateFilePicker State = iota
	StateTrackMenu
	StateLoading
	StatePlaying
	StateError
)

// responseBuffer is how many responses may wait for the view
const responseBuffer = 64

// Options configures the TUI
type Options struct {
	Config *config.Config
	// Path is the file to play; empty opens the file picker
	Path string
	// Track is the solo track; negative asks when the file has several
	Track   int
	Session session.Options

	// OnSession runs once the session is open and before it starts
	// playing, for example to serve the HTTP remote control.
	OnSession func(*session.Session) error
}

// Model represents the TUI model
type Model struct {
	state  State
	opts   Options
	keys   config.KeyMap
	styles styles
	style  note.Style

	filePicker filepicker.Model
	spinner    spinner.Model
	help       help.Model
	menuIndex  int

	path string
	file *timeline.File
	run  *runner

	player player.State
	notes  player.Notes
	status string
	err    error
	width  int
	height int
}

// runner is a session playing in the background
type runner struct {
	session   *session.Session
	responses chan player.Response
	ctx       context.Context
	cancel    context.CancelFunc
	errc      chan error
}

func (r *runner) stop() error {
	r.cancel()
	err := <-r.errc
	if cerr := r.session.Close(); err == nil {
		err = cerr
	}
	return err
}

type fileLoadedMsg struct {
	file *timeline.File
	err  error
}

type sessionReadyMsg struct {
	run *runner
	err error
}

type responseMsg player.Response

// New creates a new TUI model
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		opts.Config = cfg
	}
	st := newStyles(cfg.Colors)

	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = st.spinner

	h := help.New()
	if !cfg.Colors {
		h.Styles = help.Styles{}
	}

	m := Model{
		state:      StateFilePicker,
		opts:       opts,
		keys:       cfg.KeyMap(),
		styles:     st,
		style:      cfg.Style(),
		filePicker: fp,
		spinner:    s,
		help:       h,
		path:       opts.Path,
		player:     player.State{Bar: -1},
	}
	if opts.Path != "" {
		m.state = StateLoading
	}
	return m
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	if m.state == StateLoading {
		return tea.Batch(m.spinner.Tick, loadFile(m.path))
	}
	return m.filePicker.Init()
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc", "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.path = path
			m.state = StateLoading
			return m, tea.Batch(m.spinner.Tick, loadFile(path))
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateTrackMenu:
			return m.updateTrackMenu(msg)
		case StatePlaying:
			return m.updatePlaying(msg)
		case StateLoading, StateError:
			switch msg.String() {
			case "esc", "q", "ctrl+c", "enter":
				return m, tea.Quit
			}
		}

	case spinner.TickMsg:
		if m.state != StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case fileLoadedMsg:
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.file = msg.file
		if m.file.Parallel() && m.opts.Track < 0 {
			m.state = StateTrackMenu
			m.menuIndex = m.file.DefaultSolo()
			return m, nil
		}
		return m, m.openSession(m.opts.Track)

	case sessionReadyMsg:
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.run = msg.run
		m.state = StatePlaying
		m.player.Bars = len(msg.run.session.Song.All)
		msg.run.session.TrySend(player.Info())
		return m, waitForResponse(msg.run)

	case responseMsg:
		m.apply(player.Response(msg))
		return m, waitForResponse(m.run)
	}

	return m, nil
}

func (m Model) fail(err error) Model {
	m.err = err
	m.state = StateError
	return m
}

func (m Model) updateTrackMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tracks := m.file.Tracks()
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(tracks)-1 {
			m.menuIndex++
		}
	case "enter":
		m.state = StateLoading
		return m, tea.Batch(m.spinner.Tick, m.openSession(m.menuIndex))
	case "esc", "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updatePlaying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Exit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.NoteStyle):
		m.style = m.style.Next()
		return m, nil
	}

	if cmd, ok := m.keys.Command(msg); ok {
		if !m.run.session.TrySend(cmd) {
			m.status = "busy, key dropped"
		}
	}
	return m, nil
}

// apply folds a player response into the view
func (m *Model) apply(r player.Response) {
	switch r.Kind {
	case player.ResponseStartOfTrack:
		m.status = "At the start."
	case player.ResponseEndOfTrack:
		m.status = fmt.Sprintf("End of track, press %s to seek to the start.", m.keys.Rewind.Help().Key)
	case player.ResponseNotes:
		m.status = ""
		m.notes = r.Notes
		m.player = r.State
	case player.ResponseState:
		m.player = r.State
	}
}

func loadFile(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := timeline.ReadFile(path)
		return fileLoadedMsg{file: f, err: err}
	}
}

// openSession cuts the file into bars, opens the output and starts the
// player in the background.
func (m Model) openSession(track int) tea.Cmd {
	file := m.file
	opts := m.opts
	return func() tea.Msg {
		song, err := session.NewSong(file, track, opts.Config.BeatsPerBar)
		if err != nil {
			return sessionReadyMsg{err: err}
		}
		s, err := session.Open(song, opts.Session)
		if err != nil {
			return sessionReadyMsg{err: err}
		}
		if opts.OnSession != nil {
			if err := opts.OnSession(s); err != nil {
				s.Close()
				return sessionReadyMsg{err: err}
			}
		}
		return sessionReadyMsg{run: start(s)}
	}
}

func start(s *session.Session) *runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &runner{
		session:   s,
		responses: make(chan player.Response, responseBuffer),
		ctx:       ctx,
		cancel:    cancel,
		errc:      make(chan error, 1),
	}

	s.Observe(func(resp player.Response) {
		select {
		case r.responses <- resp:
		case <-ctx.Done():
		}
	})

	go func() { r.errc <- s.Run(ctx) }()
	return r
}

func waitForResponse(r *runner) tea.Cmd {
	return func() tea.Msg {
		select {
		case resp := <-r.responses:
			return responseMsg(resp)
		case <-r.ctx.Done():
			return nil
		}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(m.styles.logo.Render(asciiLogo))
	s.WriteString("\n")

	switch m.state {
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateTrackMenu:
		s.WriteString(m.viewTrackMenu())
	case StateLoading:
		s.WriteString(m.viewLoading())
	case StatePlaying:
		s.WriteString(m.viewPlaying())
	case StateError:
		s.WriteString(m.viewError())
	}

	return s.String()
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(m.styles.title.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(m.styles.help.Render("enter: open • esc: quit"))

	return s.String()
}

func (m Model) viewTrackMenu() string {
	var s strings.Builder

	s.WriteString(m.styles.title.Render(" SELECT SOLO TRACK "))
	s.WriteString("\n\n")

	for i, t := range m.file.Tracks() {
		if i == m.menuIndex {
			s.WriteString(m.styles.selected.Render(fmt.Sprintf("▸ %d: %s", i, t)))
			s.WriteString("\n")
			s.WriteString(m.styles.detail.Render(fmt.Sprintf("%d notes", t.Notes)))
		} else {
			s.WriteString(m.styles.menu.Render(fmt.Sprintf("  %d: %s", i, t)))
		}
		s.WriteString("\n")
	}

	s.WriteString(m.styles.help.Render("↑/↓: navigate • enter: select • q: quit"))
	return m.styles.box.Render(s.String())
}

func (m Model) viewLoading() string {
	return m.styles.box.Render(fmt.Sprintf("%s Loading %s...", m.spinner.View(), filepath.Base(m.path)))
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(m.styles.title.Render(" ERROR "))
	s.WriteString("\n\n")
	s.WriteString(m.styles.err.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	s.WriteString("\n\n")
	s.WriteString(m.styles.help.Render("Press enter to exit"))

	return m.styles.box.Render(s.String())
}

func (m Model) viewPlaying() string {
	var s strings.Builder

	title := fmt.Sprintf(" %s ", filepath.Base(m.path))
	if m.run != nil {
		if name := m.run.session.Song.TrackName(); name != "" && m.file.Parallel() {
			title = fmt.Sprintf(" %s • %s ", filepath.Base(m.path), name)
		}
	}
	s.WriteString(m.styles.title.Render(title))
	s.WriteString("\n")
	s.WriteString(m.viewNotes())
	s.WriteString(m.styles.status.Render(m.statusLine()))
	if m.status != "" {
		s.WriteString("\n")
		s.WriteString(m.styles.detail.Render(m.status))
	}
	s.WriteString("\n")
	s.WriteString(m.styles.help.Render(m.help.View(m.keys)))

	return s.String()
}

func (m Model) viewNotes() string {
	if m.player.Bar < 0 || m.notes == nil {
		return m.styles.rest.Render(fmt.Sprintf("press %s to play the first bar", m.keys.Next.Help().Key)) + "\n"
	}

	var s strings.Builder
	for _, pitches := range m.notes {
		if len(pitches) == 0 {
			s.WriteString(m.styles.rest.Render("·"))
		} else {
			s.WriteString(m.styles.notes.Render(note.Join(pitches, m.style)))
		}
		s.WriteString("\n")
	}
	return s.String()
}

func (m Model) statusLine() string {
	bar := "-"
	if m.player.Bar >= 0 {
		bar = fmt.Sprint(m.player.Bar + 1)
	}
	solo := "off"
	if m.player.Solo {
		solo = "on"
	}
	return fmt.Sprintf("bar %s/%d • %.0f bpm • transpose %+d • speed %.2fx • solo %s • %s",
		bar, m.player.Bars, m.player.Tempo, m.player.Transpose, m.player.Speed, solo, m.style)
}

const asciiLogo = `
  __  __ ___ ____  _   _  ___ _____ _____
 |  \/  |_ _|  _ \| \ | |/ _ \_   _| ____|
 | |\/| || || | | |  \| | | | || | |  _|
 | |  | || || |_| | |\  | |_| || | | |___
 |_|  |_|___|____/|_| \_|\___/ |_| |_____|
`

// Run starts the TUI application and stops the player on exit
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	final, err := p.Run()

	if m, ok := final.(Model); ok && m.run != nil {
		if serr := m.run.stop(); err == nil {
			err = serr
		}
	}
	return err
}
