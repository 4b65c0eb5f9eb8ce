package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/adwski/fourseat/backend/model"
	store "github.com/adwski/fourseat/backend/storage/memory"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline = 10 * time.Second
	defaultMaxBodySize      = 4096
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

type SessionService interface {
	CreateSession(timers model.Timers) (string, error)
	GetSession(id string) (*model.SessionInfo, error)
}

// CreateRequest overrides the default clock template. Zero values keep the defaults.
type CreateRequest struct {
	GraceMS    int64 `json:"grace_ms"`
	TimeBankMS int64 `json:"time_bank_ms"`
}

type CreateResponse struct {
	SessionID string `json:"session_id"`
}

type GenericResponse struct {
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Server struct {
	logger zerolog.Logger
	svc    SessionService
	*http.Server
}

type Config struct {
	Logger         *zerolog.Logger
	SessionService SessionService
	ListenAddr     string
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "api-server").Logger(),
		svc:    cfg.SessionService,
	}

	srv.Server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Routes(),
	}
	return srv
}

// Routes returns the API routes wrapped with CORS handling.
func (srv *Server) Routes() http.Handler {
	r := http.NewServeMux()
	r.HandleFunc("POST /api/session", srv.createSession)
	r.HandleFunc("GET /api/session/{sessionID}", srv.getSession)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:         86400,
	}).Handler(r)
}

func (srv *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, defaultMaxBodySize))
	defer func() {
		_ = r.Body.Close()
	}()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err = json.Unmarshal(body, &req); err != nil {
			srv.writeJSON(w, http.StatusBadRequest, &GenericResponse{Error: "malformed request"})
			return
		}
	}

	srv.logger.Trace().Any("request", req).Msg("got create request")

	id, err := srv.svc.CreateSession(model.Timers{
		Grace:     time.Duration(req.GraceMS) * time.Millisecond,
		Remaining: time.Duration(req.TimeBankMS) * time.Millisecond,
	})
	if err != nil {
		srv.writeJSON(w, http.StatusBadRequest, &GenericResponse{Error: err.Error()})
		return
	}
	srv.writeJSON(w, http.StatusCreated, &GenericResponse{
		Message: "OK",
		Data:    CreateResponse{SessionID: id},
	})
}

func (srv *Server) getSession(w http.ResponseWriter, r *http.Request) {
	info, err := srv.svc.GetSession(r.PathValue("sessionID"))
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, store.ErrSessionNotFound) {
			code = http.StatusNotFound
		}
		srv.writeJSON(w, code, &GenericResponse{Error: err.Error()})
		return
	}
	srv.writeJSON(w, http.StatusOK, &GenericResponse{Message: "OK", Data: info})
}

func (srv *Server) writeJSON(w http.ResponseWriter, code int, resp *GenericResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		srv.logger.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	if _, err = w.Write(b); err != nil {
		srv.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	hErr := make(chan error)
	go func() {
		hErr <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-hErr:
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Join(ErrUnexpected, err)
		}
	case <-ctx.Done():
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			srv.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
}
