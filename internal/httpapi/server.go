package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/joelkehle/propertylead/internal/intake"
	"github.com/joelkehle/propertylead/internal/leads"
)

const maxBodyBytes = 1 << 20

// Intake is the slice of intake.Service the HTTP layer needs.
type Intake interface {
	Submit(ctx context.Context, payload map[string]any) (intake.Receipt, error)
	Recent(ctx context.Context, limit int) ([]leads.Lead, error)
}

type Server struct {
	intake Intake
	logger *zap.Logger
}

func NewServer(svc Intake, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{intake: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(allowCrossOrigin)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/submitForm", s.handleSubmit)
		r.Post("/submit-form", s.handleSubmit)
		r.Get("/leads/probe", s.handleProbe)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(blob))) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	blob, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(blob, &payload); err != nil || payload == nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	rcpt, err := s.intake.Submit(r.Context(), payload)
	if err != nil {
		var ie *intake.Error
		if errors.As(err, &ie) {
			writeError(w, ie.Status, ie.Message)
			return
		}
		s.logger.Error("submit failed", zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Form submitted successfully",
		"lead_id": rcpt.LeadID,
	})
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	rows, err := s.intake.Recent(r.Context(), 1)
	if err != nil {
		s.logger.Warn("lead probe failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []leads.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// allowCrossOrigin lets the public site post the form from another origin.
func allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
