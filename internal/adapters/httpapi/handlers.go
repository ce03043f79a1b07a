package httpapi

import (
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"PushProbe/internal/core/probe"
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TestRunner starts push test runs.
type TestRunner interface {
	BeginPushTests(ctx context.Context) (*domain.TestRun, error)
	ExecutePushTests(ctx context.Context, run *domain.TestRun)
}

// DeviceInspector exposes the local device.
type DeviceInspector interface {
	LocalDevice(ctx context.Context) (*domain.Device, error)
}

type handlers struct {
	// runCtx outlives requests; background runs are bound to it.
	runCtx   context.Context
	recorder ports.EventRecorder
	runner   TestRunner
	devices  DeviceInspector
	runs     ports.TestRunRepository
	log      zerolog.Logger
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, &ErrorResponse{Error: msg})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *handlers) recordEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Kind == "" || req.RunID == "" {
		writeError(w, r, http.StatusBadRequest, "kind and runId are required")
		return
	}

	var eventErr error
	if req.Error != "" {
		eventErr = errors.New(req.Error)
	}
	h.recorder.Record(req.Kind, req.RunID, req.Payload, eventErr)
	h.log.Info().Str("kind", string(req.Kind)).Str("run_id", req.RunID).Msg("Event recorded over HTTP")

	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) startRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runner.BeginPushTests(r.Context())
	if errors.Is(err, probe.ErrRunInProgress) {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	if errors.Is(err, probe.ErrConsoleClosed) {
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to start push test run")
		writeError(w, r, http.StatusInternalServerError, "failed to start run")
		return
	}

	go h.runner.ExecutePushTests(h.runCtx, run)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, &RunStartedResponse{ID: run.ID})
}

func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("test_run_id", id.String()).Msg("Failed to load test run")
		writeError(w, r, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		writeError(w, r, http.StatusNotFound, "run not found")
		return
	}
	render.JSON(w, r, newRunResponse(run))
}

func (h *handlers) getDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.devices.LocalDevice(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load local device")
		writeError(w, r, http.StatusInternalServerError, "failed to load device")
		return
	}
	render.JSON(w, r, newDeviceResponse(device))
}
