// Package server exposes the bridge's HTTP surface: a JWT-protected
// command API mirroring the dispatcher operations, the current
// snapshot, recorded history, health and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/config"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/database"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/dispatcher"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
	"github.com/dsetareh/homeassistant-nanokvm/pkg/hasher"
)

type commandDispatcher interface {
	PushButton(ctx context.Context, button model.ButtonType, durationMs int) error
	PasteText(ctx context.Context, text string) error
	SetMouseJiggler(ctx context.Context, mode string) error
	SetToggle(ctx context.Context, target model.ToggleTarget, desired bool) error
	Reboot(ctx context.Context) error
	ResetHDMI(ctx context.Context) error
	ResetHID(ctx context.Context) error
	UpdateApplication(ctx context.Context) error
	WakeOnLan(ctx context.Context, mac string) error
}

type statePoller interface {
	Snapshot() *model.Snapshot
	Available() bool
}

type historyStore interface {
	GetLatestStateChanges(ctx context.Context, identifier string) (database.StateChanges, error)
}

type Server struct {
	dispatcher commandDispatcher
	poller     statePoller
	history    historyStore
	device     *model.Device
	logger     *zap.Logger

	username     string
	passwordHash string
	signingKey   string
	authEnabled  bool
}

func New(d commandDispatcher, p statePoller, history historyStore, device *model.Device, cfg *config.ServerConfig) (*Server, error) {
	s := &Server{
		dispatcher: d,
		poller:     p,
		history:    history,
		device:     device,
		logger:     zap.L(),
		username:   cfg.Username,
	}
	if cfg.Password != "" {
		hash, err := hasher.HashPassword([]byte(cfg.Password))
		if err != nil {
			return nil, err
		}
		s.passwordHash = hash
		s.authEnabled = true

		s.signingKey = cfg.SigningKey
		if s.signingKey == "" {
			key, err := hasher.GenerateToken(32)
			if err != nil {
				return nil, err
			}
			s.signingKey = key
		}
	}
	return s, nil
}

// Router builds the route table. metricsHandler serves /metrics and is
// injected so the registry stays owned by cmd.
func (s *Server) Router(metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)

	r.HandleFunc("/healthz", s.getHealth).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}
	r.HandleFunc("/api/login", s.postLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/snapshot", s.getSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/history", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/button/{type}", s.postButton).Methods(http.MethodPost)
	api.HandleFunc("/paste", s.postPaste).Methods(http.MethodPost)
	api.HandleFunc("/jiggler", s.postJiggler).Methods(http.MethodPost)
	api.HandleFunc("/toggle/{target}", s.postToggle).Methods(http.MethodPost)
	api.HandleFunc("/reboot", s.postReboot).Methods(http.MethodPost)
	api.HandleFunc("/hdmi/reset", s.postResetHDMI).Methods(http.MethodPost)
	api.HandleFunc("/hid/reset", s.postResetHID).Methods(http.MethodPost)
	api.HandleFunc("/update", s.postUpdate).Methods(http.MethodPost)
	api.HandleFunc("/wol", s.postWakeOnLan).Methods(http.MethodPost)
	return r
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		DeviceAvailable: s.poller.Available(),
	})
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := s.poller.Snapshot()
	if snapshot == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history store not configured")
		return
	}
	changes, err := s.history.GetLatestStateChanges(r.Context(), s.device.ID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func (s *Server) postButton(w http.ResponseWriter, r *http.Request) {
	buttonType, ok := model.ParseButtonType(mux.Vars(r)["type"])
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown button type")
		return
	}
	req, err := unmarshalPayload[pushButtonPayload](r)
	if err != nil {
		handleError(w, err)
		return
	}
	duration := req.DurationMs
	if duration == 0 {
		duration = dispatcher.DefaultButtonDurationMs
	}
	if err := s.dispatcher.PushButton(r.Context(), buttonType, duration); err != nil {
		handleError(w, err)
		return
	}
	s.logger.Info("button pushed", zap.String("button", buttonType.String()), zap.Int("duration_ms", duration))
	writeSuccess(w)
}

func (s *Server) postPaste(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[pastePayload](r)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := s.dispatcher.PasteText(r.Context(), req.Text); err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) postJiggler(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[jigglerPayload](r)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := s.dispatcher.SetMouseJiggler(r.Context(), req.Mode); err != nil {
		handleError(w, err)
		return
	}
	s.logger.Info("mouse jiggler switched", zap.String("mode", req.Mode))
	writeSuccess(w)
}

func (s *Server) postToggle(w http.ResponseWriter, r *http.Request) {
	target, ok := model.ParseToggleTarget(mux.Vars(r)["target"])
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown toggle target")
		return
	}
	req, err := unmarshalPayload[togglePayload](r)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := s.dispatcher.SetToggle(r.Context(), target, req.Enabled); err != nil {
		handleError(w, err)
		return
	}
	s.logger.Info("toggle switched", zap.String("target", target.String()), zap.Bool("enabled", req.Enabled))
	writeSuccess(w)
}

func (s *Server) postReboot(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.Reboot(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) postResetHDMI(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.ResetHDMI(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) postResetHID(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.ResetHID(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) postUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.UpdateApplication(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) postWakeOnLan(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[wakeOnLanPayload](r)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := s.dispatcher.WakeOnLan(r.Context(), req.MAC); err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w)
}

func unmarshalPayload[T any](r *http.Request) (*T, error) {
	var out T
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func writeSuccess(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("success"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleError maps the core error taxonomy onto HTTP statuses.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrUnsupportedOperation):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrBusy):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, model.ErrAuthenticationFailed), errors.Is(err, model.ErrDeviceUnreachable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
