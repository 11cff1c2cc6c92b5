// Package server exposes the engine over HTTP: time updates from the primary
// stream integration, session inspection, the embedded player and metrics.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/vodsync/vodsync/constant"
	"github.com/vodsync/vodsync/engine"
	"github.com/vodsync/vodsync/log"
	"github.com/vodsync/vodsync/player"
	"github.com/vodsync/vodsync/session"
)

//go:embed assets
var assets embed.FS

var playerPage = template.Must(template.ParseFS(assets, "assets/player.html"))

// Options tune a Server.
type Options struct {
	Addr string
	// RatePerMinute limits requests per client address. Zero disables the limit.
	RatePerMinute int
	// CorsOrigins are allowed to call the API from a browser page.
	CorsOrigins []string
}

// Server routes HTTP requests to an engine and a player hub.
type Server struct {
	engine *engine.Engine
	hub    *player.Hub
	opts   Options
	http   *http.Server
}

// New returns a server. Call ListenAndServe to start it.
func New(e *engine.Engine, hub *player.Hub, opts Options) *Server {
	s := &Server{engine: e, hub: hub, opts: opts}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CorsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/player/{id}", s.playerPage)
	r.Get("/ws/{id}", s.websocket)

	r.Route("/sessions", func(r chi.Router) {
		if s.opts.RatePerMinute > 0 {
			r.Use(httprate.LimitByIP(s.opts.RatePerMinute, time.Minute))
		}

		r.Get("/", s.listSessions)
		r.Get("/{id}", s.getSession)
		r.Delete("/{id}", s.closeSession)
		r.Post("/{id}/time", s.timeUpdate)
		r.Get("/{id}/tracks", s.tracks)
	})

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Infof("server: listening on %s", s.opts.Addr)
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	if serveErr := <-errc; !errors.Is(serveErr, http.ErrServerClosed) && serveErr != nil {
		return serveErr
	}
	return err
}

type timeUpdateRequest struct {
	Platform     string  `json:"platform"`
	VODID        string  `json:"vodId"`
	CurrentTime  float64 `json:"currentTime"`
	IsPaused     bool    `json:"isPaused"`
	PlaybackRate float64 `json:"playbackRate"`
}

func (req timeUpdateRequest) validate() error {
	switch {
	case !lo.Contains(constant.Platforms, req.Platform):
		return errors.New("unknown platform")
	case req.VODID == "":
		return errors.New("vodId is required")
	case req.CurrentTime < 0:
		return errors.New("currentTime must not be negative")
	case req.PlaybackRate < 0:
		return errors.New("playbackRate must not be negative")
	}
	return nil
}

func (s *Server) timeUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req timeUpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rate := req.PlaybackRate
	if rate == 0 {
		rate = 1
	}

	err := s.engine.TimeUpdate(id, engine.Update{
		Platform: req.Platform,
		VODID:    req.VODID,
		Primary: session.Primary{
			Time:   req.CurrentTime,
			Paused: req.IsPaused,
			Rate:   rate,
		},
	})

	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, engine.ErrNoLog):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrFetch):
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, engine.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Views())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	view, ok := s.engine.View(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown session")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Close(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) tracks(w http.ResponseWriter, r *http.Request) {
	tracks, ok := s.engine.Tracks(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown session")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.hub.Serve(w, r, id); err != nil {
		log.Session(id).Warnf("websocket upgrade: %v", err)
	}
}

func (s *Server) playerPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := playerPage.Execute(w, struct{ Session string }{chi.URLParam(r, "id")}); err != nil {
		log.Warnf("server: render player page: %v", err)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  constant.Version,
		"sessions": s.engine.Len(),
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("server: encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.With(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
			"request":  chimiddleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}
