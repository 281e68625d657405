// Package main is the entry point for the midnote CLI
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/james-see/midnote/pkg/api"
	"github.com/james-see/midnote/pkg/config"
	"github.com/james-see/midnote/pkg/device"
	"github.com/james-see/midnote/pkg/logging"
	"github.com/james-see/midnote/pkg/session"
	"github.com/james-see/midnote/pkg/timeline"
	"github.com/james-see/midnote/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	deviceIndex int
	track       int
	transpose   int
	speed       float64
	beats       int
	configPath  string
	noColor     bool
	dryRun      bool
	debug       bool
	servePort   int
	serverPort  int
	listDevices bool

	outputFile string
	exportBar  int
	exportSolo bool
	force      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midnote [file]",
	Short: "Step through a MIDI file one bar at a time",
	Long: `midnote plays a Standard MIDI File one bar at a time on a MIDI output
and shows the notes of the bar, so you can learn a part at your own pace.

Examples:
  midnote song.mid
  midnote song.mid --device 1 --track 2
  midnote --list
  midnote tracks song.mid
  midnote serve song.mid --port 8080
  midnote export song.mid --bar 12 -o bar12.mid`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPlay,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List MIDI output devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

var tracksCmd = &cobra.Command{
	Use:   "tracks <file>",
	Short: "List the tracks of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTracks,
}

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Play a file headless, controlled over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a single bar as a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration in effect",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&deviceIndex, "device", "d", 0, "MIDI output device index (see --list)")
	pf.IntVarP(&track, "track", "t", -1, "Solo track index; -1 asks when the file has several")
	pf.IntVar(&transpose, "transpose", 0, "Starting transposition in semitones")
	pf.Float64Var(&speed, "speed", 1, "Starting speed multiplier")
	pf.IntVar(&beats, "beats", 0, "Beats per bar (default from config, 4)")
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/midnote/config.yaml)")
	pf.BoolVar(&noColor, "no-color", false, "Disable colors")
	pf.BoolVar(&dryRun, "dry-run", false, "Log MIDI messages instead of opening a device")
	pf.BoolVar(&debug, "debug", false, "Write a debug log to ~/.config/midnote/debug.log")

	// Root command
	rootCmd.Flags().IntVar(&servePort, "serve", 0, "Also serve the HTTP remote control on this port")
	rootCmd.Flags().BoolVarP(&listDevices, "list", "l", false, "List MIDI output devices and exit")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// export command
	exportCmd.Flags().IntVar(&exportBar, "bar", 1, "Bar number, starting at 1")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	exportCmd.Flags().BoolVar(&exportSolo, "solo", false, "Export only the solo track")

	// config init
	configInitCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	// Add commands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(tracksCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the config file and applies the flags that were set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Device = deviceIndex
	}
	if flags.Changed("beats") {
		cfg.BeatsPerBar = beats
	}
	if noColor {
		cfg.Colors = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		Device:    cfg.Device,
		DryRun:    dryRun,
		Transpose: transpose,
		Speed:     speed,
	}
}

// setupFileLogging sends slog and gin output to the debug log, or nowhere
func setupFileLogging() (io.Closer, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	w, err := logging.Setup(debug, filepath.Join(dir, logging.FileName))
	if err != nil {
		return nil, err
	}
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = w
	gin.DefaultErrorWriter = w
	return w, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	if listDevices {
		return runDevices(cmd, nil)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logs, err := setupFileLogging()
	if err != nil {
		return err
	}
	defer logs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := tui.Options{
		Config:  cfg,
		Track:   track,
		Session: sessionOptions(cfg),
	}
	if len(args) == 1 {
		opts.Path = args[0]
	}

	serveErr := make(chan error, 1)
	if servePort > 0 {
		opts.OnSession = func(s *session.Session) error {
			srv := api.NewServer(s, api.WithStyle(cfg.Style()))
			go func() { serveErr <- srv.ListenAndServe(ctx, servePort) }()
			return nil
		}
	}

	err = tui.Run(opts)
	cancel()
	if servePort > 0 {
		select {
		case serr := <-serveErr:
			if err == nil {
				err = serr
			}
		default:
		}
	}
	return err
}

func runDevices(cmd *cobra.Command, args []string) error {
	defer device.Close()

	ports, err := device.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		return device.ErrNoDevice
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func runTracks(cmd *cobra.Command, args []string) error {
	f, err := timeline.ReadFile(args[0])
	if err != nil {
		return err
	}

	kind := "single line"
	if f.Parallel() {
		kind = "parallel tracks"
	}
	fmt.Printf("%s: format %d, %s, %d ticks per beat\n", filepath.Base(args[0]), f.Format, kind, f.TicksPerBeat)

	solo := f.DefaultSolo()
	for _, t := range f.Tracks() {
		mark := " "
		if f.Parallel() && t.Index == solo {
			mark = "*"
		}
		fmt.Printf("%s %d: %s (%d notes)\n", mark, t.Index, t, t.Notes)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logging.Stderr(debug)
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	song, err := session.Load(args[0], track, cfg.BeatsPerBar)
	if err != nil {
		return err
	}
	s, err := session.Open(song, sessionOptions(cfg))
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Playing %s (%d bars, solo: %s)\n", filepath.Base(args[0]), len(song.All), song.TrackName())
	fmt.Printf("Starting midnote API server on port %d...\n", serverPort)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", serverPort)
	return api.Serve(ctx, s, serverPort, api.WithStyle(cfg.Style()))
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	input := args[0]
	song, err := session.Load(input, track, cfg.BeatsPerBar)
	if err != nil {
		return err
	}

	data, err := song.Export(exportBar-1, exportSolo, transpose)
	if err != nil {
		return err
	}

	output := outputFile
	if output == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		output = fmt.Sprintf("%s-bar%d.mid", base, exportBar)
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return err
	}

	fmt.Printf("Exported bar %d of %s -> %s\n", exportBar, input, output)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
