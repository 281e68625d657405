// Package api provides the HTTP remote control for midnote
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/midnote/pkg/device"
	"github.com/james-see/midnote/pkg/note"
	"github.com/james-see/midnote/pkg/player"
	"github.com/james-see/midnote/pkg/session"
)

// @title midnote API
// @version 1.0
// @description Remote control for the midnote bar-by-bar MIDI practice player
// @host localhost:8080
// @BasePath /api/v1

// Controller is the part of a session the server drives
type Controller interface {
	Send(ctx context.Context, cmd player.Command) error
	Observe(fn session.Observer)
}

// simpleCommands are the commands that take no argument
var simpleCommands = map[player.CommandKind]bool{
	player.CommandNext:       true,
	player.CommandPrev:       true,
	player.CommandReplay:     true,
	player.CommandSilence:    true,
	player.CommandReset:      true,
	player.CommandToggleSolo: true,
	player.CommandInfo:       true,
}

// Server serves the remote control routes
type Server struct {
	router  *gin.Engine
	ctrl    Controller
	monitor *Monitor
	style   note.Style
	devices func() ([]device.Port, error)
}

// Option configures a Server
type Option func(*Server)

// WithStyle sets the default note spelling of /notes
func WithStyle(s note.Style) Option {
	return func(srv *Server) { srv.style = s }
}

// WithDeviceLister replaces the MIDI port scan behind /devices
func WithDeviceLister(fn func() ([]device.Port, error)) Option {
	return func(srv *Server) { srv.devices = fn }
}

// NewServer builds the routes and starts observing ctrl
func NewServer(ctrl Controller, opts ...Option) *Server {
	s := &Server{
		ctrl:    ctrl,
		monitor: NewMonitor(),
		devices: device.List,
	}
	for _, opt := range opts {
		opt(s)
	}
	ctrl.Observe(s.monitor.Observe)

	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/state", s.getState)
		v1.GET("/notes", s.getNotes)
		v1.POST("/commands/:name", s.postCommand)
		v1.POST("/transpose", s.postTranspose)
		v1.POST("/speed", s.postSpeed)
		v1.GET("/devices", s.listDevices)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on port until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// TransposeRequest shifts the transposition; a delta of 0 resets it
type TransposeRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

// SpeedRequest changes the speed multiplier
type SpeedRequest struct {
	Delta float64 `json:"delta" binding:"required"`
}

// NotesResponse is the body of /notes
type NotesResponse struct {
	Bar      int        `json:"bar"`
	Notes    [][]string `json:"notes"`
	Position string     `json:"position,omitempty"`
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "midnote",
	})
}

// getState godoc
// @Summary Player state
// @Description Returns the last played bar, cursor, transposition, solo flag, speed and file tempo
// @Tags player
// @Produce json
// @Success 200 {object} player.State
// @Router /api/v1/state [get]
func (s *Server) getState(c *gin.Context) {
	state, _, _ := s.monitor.Snapshot()
	c.JSON(http.StatusOK, state)
}

// getNotes godoc
// @Summary Notes of the last bar
// @Description Returns the pitches of each sounding slice of the last played bar
// @Tags player
// @Produce json
// @Param style query string false "Note spelling: mixed, sharps or flats"
// @Success 200 {object} NotesResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/notes [get]
func (s *Server) getNotes(c *gin.Context) {
	style := s.style
	if name := c.Query("style"); name != "" {
		parsed, err := note.ParseStyle(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		style = parsed
	}

	state, notes, position := s.monitor.Snapshot()
	resp := NotesResponse{
		Bar:      state.Bar,
		Notes:    make([][]string, len(notes)),
		Position: position,
	}
	for i, pitches := range notes {
		names := make([]string, len(pitches))
		for j, p := range pitches {
			names[j] = p.Name(style)
		}
		resp.Notes[i] = names
	}
	c.JSON(http.StatusOK, resp)
}

// postCommand godoc
// @Summary Queue a player command
// @Description Queues next, prev, replay, silence, reset, solo or info behind earlier commands
// @Tags player
// @Produce json
// @Param name path string true "Command name"
// @Success 202 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/commands/{name} [post]
func (s *Server) postCommand(c *gin.Context) {
	name := c.Param("name")
	kind, ok := player.ParseCommandKind(name)
	if !ok || !simpleCommands[kind] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown command %q", name)})
		return
	}
	s.queue(c, player.Command{Kind: kind})
}

// postTranspose godoc
// @Summary Transpose
// @Description Shifts the transposition by delta semitones; 0 resets it
// @Tags player
// @Accept json
// @Produce json
// @Param request body TransposeRequest true "Semitones"
// @Success 202 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/transpose [post]
func (s *Server) postTranspose(c *gin.Context) {
	var req TransposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.queue(c, player.TransposeBy(*req.Delta))
}

// postSpeed godoc
// @Summary Change speed
// @Description Adds delta to the speed multiplier, which never drops below 0.1
// @Tags player
// @Accept json
// @Produce json
// @Param request body SpeedRequest true "Multiplier change"
// @Success 202 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/speed [post]
func (s *Server) postSpeed(c *gin.Context) {
	var req SpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.queue(c, player.SpeedBy(req.Delta))
}

// listDevices godoc
// @Summary List MIDI outputs
// @Description Returns the MIDI output ports of this machine
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]device.Port
// @Failure 500 {object} map[string]string
// @Router /api/v1/devices [get]
func (s *Server) listDevices(c *gin.Context) {
	ports, err := s.devices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": ports})
}

func (s *Server) queue(c *gin.Context, cmd player.Command) {
	if err := s.ctrl.Send(c.Request.Context(), cmd); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": cmd.Kind.String()})
}

// Serve plays s and serves its remote control on port until ctx is
// cancelled or the listener fails.
func Serve(ctx context.Context, s *session.Session, port int, opts ...Option) error {
	srv := NewServer(s, opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	err := srv.ListenAndServe(ctx, port)
	cancel()
	if rerr := <-errc; err == nil {
		err = rerr
	}
	return err
}
