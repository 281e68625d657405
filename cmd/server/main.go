// Package main is the entry point for the headless midnote API server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/gin-gonic/gin"

	"github.com/james-see/midnote/pkg/api"
	"github.com/james-see/midnote/pkg/config"
	"github.com/james-see/midnote/pkg/logging"
	"github.com/james-see/midnote/pkg/session"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	dev := flag.Int("device", 0, "MIDI output device index")
	file := flag.String("file", "", "MIDI file to play (required)")
	track := flag.Int("track", -1, "Solo track index; -1 picks the busiest")
	dryRun := flag.Bool("dry-run", false, "Log MIDI messages instead of opening a device")
	debug := flag.Bool("debug", false, "Debug logging")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		flag.Usage()
		os.Exit(2)
	}

	logging.Stderr(*debug)
	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(*file, *track, *dev, *port, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(file string, track, dev, port int, dryRun bool) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	song, err := session.Load(file, track, cfg.BeatsPerBar)
	if err != nil {
		return err
	}
	s, err := session.Open(song, session.Options{Device: dev, DryRun: dryRun})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Starting midnote API server on port %d...\n", port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", port)

	return api.Serve(ctx, s, port, api.WithStyle(cfg.Style()))
}
