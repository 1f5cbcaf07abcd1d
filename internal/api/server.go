package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/formrelay/internal/service"
)

const (
	errInvalidJSONBody = "invalid JSON body"

	maxBodyBytes = 1 << 20
)

// Server holds all dependencies for the REST API handlers.
type Server struct {
	relaySvc service.RelayService
	logger   *slog.Logger
}

// New creates a new API Server backed by the relay service.
func New(relaySvc service.RelayService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{relaySvc: relaySvc, logger: logger}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/whatsapp-status", s.handleWhatsAppStatus)

	// Tour website forms
	r.Post("/dm-tors/contactform", s.handleContactForm)
	r.Post("/dm-tors/lead", s.handleLead)

	// Juice bar
	r.Post("/juiceBar/placeOrder", s.handlePlaceOrder)
	r.Post("/juiceBar/orderComplete", s.handleOrderComplete)

	r.Post("/sendWhatsAppMessage", s.handleSendMessage)
	r.Get("/test", s.handleTest)
	r.Post("/test", s.handleTest)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

type errorResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: msg, Error: detail})
}

// decodeBody decodes the JSON request body into v. An empty body leaves v at
// its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, errInvalidJSONBody, err.Error())
	return false
}

// writeServiceError maps service errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	var vf *service.VerificationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message, "Missing required fields")
	case errors.As(err, &vf):
		writeError(w, http.StatusBadRequest, "reCAPTCHA verification failed", vf.Reason)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func requestMeta(r *http.Request) service.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.RequestMeta{RemoteIP: ip, UserAgent: r.UserAgent()}
}
