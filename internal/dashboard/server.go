// Package dashboard exposes the interactive surface: a small JSON API plus a
// websocket feed of live frames, marks and scheduler events.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/campuskit/facemark/internal/capture"
	"github.com/campuskit/facemark/internal/logger"
	"github.com/campuskit/facemark/internal/schedule"
	"github.com/campuskit/facemark/internal/store"
)

type dashboardStore interface {
	store.AttendanceStore
	store.RosterStore
}

// Server hosts the dashboard API and websocket endpoint.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	hub        *Hub
	store      dashboardStore
	scheduler  *schedule.Scheduler
	registry   *schedule.Registry
	loop       *capture.Loop
	log        *logger.Logger
	upgrader   websocket.Upgrader
}

// NewServer wires the routes. loop may be nil when no capture session runs.
func NewServer(addr string, hub *Hub, st dashboardStore, sched *schedule.Scheduler, reg *schedule.Registry, loop *capture.Loop, log *logger.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:    r,
		hub:       hub,
		store:     st,
		scheduler: sched,
		registry:  reg,
		loop:      loop,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/today", s.handleToday)
		r.Get("/roster", s.handleRoster)
		r.Get("/status", s.handleStatus)
		r.Get("/tasks", s.handleTasks)
		r.Post("/tasks/{name}/run", s.handleRunTask)
	})
	r.Get("/ws", s.handleWebsocket)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.log.Info("dashboard listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and closes all websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.hub.Stop()
	return err
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warning("response encode failed: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.RecordsOn(r.Context(), time.Now())
	if err != nil {
		s.log.Error("today query failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load records")
		return
	}
	if records == nil {
		records = []store.AttendanceRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	students, err := s.store.ActiveRoster(r.Context())
	if err != nil {
		s.log.Error("roster query failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}
	if students == nil {
		students = []store.Student{}
	}
	s.writeJSON(w, http.StatusOK, students)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := string(capture.StateClosed)
	if s.loop != nil {
		state = string(s.loop.State())
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"capture_state": state,
		"clients":       s.hub.ClientCount(),
	})
}

type taskView struct {
	Name       string `json:"name"`
	Time       string `json:"time"`
	Recurrence string `json:"recurrence"`
	Enabled    bool   `json:"enabled"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []taskView
	for _, e := range s.registry.Entries() {
		tasks = append(tasks, taskView{
			Name:       e.Task.Name(),
			Time:       fmt.Sprintf("%02d:%02d", e.Hour, e.Minute),
			Recurrence: string(e.Recurrence),
			Enabled:    e.Enabled,
		})
	}
	if tasks == nil {
		tasks = []taskView{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleRunTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	summary, err := s.scheduler.RunNow(r.Context(), name)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"task": name, "summary": summary})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warning("websocket upgrade failed: %v", err)
		return
	}
	s.hub.Register(conn)

	// Drain client messages to detect disconnects; the feed is one-way.
	go func() {
		defer s.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
