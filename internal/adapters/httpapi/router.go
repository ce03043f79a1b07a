package httpapi

import (
	"PushProbe/internal/core/ports"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
)

// Deps are the collaborators behind the HTTP API.
type Deps struct {
	Recorder ports.EventRecorder
	Runner   TestRunner
	Devices  DeviceInspector
	Runs     ports.TestRunRepository
}

// NewRouter builds the HTTP routes. Runs started over HTTP are bound to runCtx.
func NewRouter(runCtx context.Context, deps Deps, baseLogger *zerolog.Logger) *chi.Mux {
	h := &handlers{
		runCtx:   runCtx,
		recorder: deps.Recorder,
		runner:   deps.Runner,
		devices:  deps.Devices,
		runs:     deps.Runs,
		log:      baseLogger.With().Str("component", "http_api").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(h.log))

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", h.recordEvent)
		r.Post("/runs", h.startRun)
		r.Get("/runs/{id}", h.getRun)
		r.Get("/device", h.getDevice)
	})
	return r
}

func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l := log.Debug()
			if status/100 == 5 {
				l = log.Error()
			}
			l.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Str("request_id", middleware.GetReqID(r.Context())).
				Dur("took", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
