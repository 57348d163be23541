package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/cohort/internal/config"
	"github.com/felixgeelhaar/cohort/internal/curriculum"
	"github.com/felixgeelhaar/cohort/internal/observe"
	"github.com/felixgeelhaar/cohort/internal/orchestrate"
	"github.com/felixgeelhaar/cohort/internal/runtime"
)

type Server struct {
	orch       *orchestrate.Orchestrator
	curriculum *curriculum.Curriculum
	library    *curriculum.Library
	states     *runtime.StateManager
	hub        *Hub
	obs        *observe.Observer
	cfg        config.WebConfig
	version    string
	startedAt  time.Time
}

func NewServer(orch *orchestrate.Orchestrator, cur *curriculum.Curriculum, lib *curriculum.Library, cfg config.WebConfig, obs *observe.Observer, version string) *Server {
	if obs == nil {
		obs = observe.Discard()
	}
	if cur == nil {
		cur = curriculum.Default()
	}
	s := &Server{
		orch:       orch,
		curriculum: cur,
		library:    lib,
		states:     runtime.NewStateManager(),
		hub:        NewHub(obs),
		obs:        obs,
		cfg:        cfg,
		version:    version,
		startedAt:  time.Now(),
	}
	s.states.Track(orch.Bus())
	s.subscribeEvents()
	return s
}

// Handler returns the API routes wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerAPI(mux)
	mux.HandleFunc("GET /api/events", s.handleWebSocket)
	return s.withMiddleware(mux)
}

func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	s.obs.Log().Info().Str("addr", addr).Msg("web server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// subscribeEvents forwards every orchestrator event to websocket clients.
func (s *Server) subscribeEvents() {
	s.orch.Bus().SubscribeAll(func(e runtime.Event) {
		s.hub.Broadcast(Event{Type: string(e.Type), Payload: e})
	})
}
