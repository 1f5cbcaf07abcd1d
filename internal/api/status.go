package api

import (
	"net/http"
	"time"

	"github.com/shaharia-lab/formrelay/internal/build"
)

// endpoints is listed by the root handler.
var endpoints = []string{
	"GET /health",
	"GET /version",
	"GET /whatsapp-status",
	"GET /metrics",
	"POST /dm-tors/contactform",
	"POST /dm-tors/lead",
	"POST /juiceBar/placeOrder",
	"POST /juiceBar/orderComplete",
	"POST /sendWhatsAppMessage",
	"GET /test",
	"POST /test",
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      build.Name,
		"message":   "formrelay API is running",
		"version":   build.Version,
		"endpoints": endpoints,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":       build.Name,
		"version":    build.Version,
		"commit":     build.CommitSHA,
		"build_date": build.BuildDate,
	})
}

func (s *Server) handleWhatsAppStatus(w http.ResponseWriter, _ *http.Request) {
	info := s.relaySvc.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "OK",
		"whatsappReady": info.Ready,
		"whatsappInfo":  info,
		"timestamp":     time.Now().UTC().Format(time.RFC3339Nano),
	})
}
