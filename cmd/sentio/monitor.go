package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"sentio/internal/auth"
	"sentio/internal/database"
	"sentio/internal/middleware"
	"sentio/internal/report"
	"sentio/internal/ws"
)

// monitorServer exposes the live monitoring surface: JWT login, a
// WebSocket feed of per-frame results, the latest finished report and
// the session archive (when a database is configured).
type monitorServer struct {
	server        *http.Server
	hub           *ws.Hub
	authenticator *auth.Authenticator
	db            *database.Database
	logger        *log.Logger

	mu     sync.RWMutex
	latest *report.Report
}

func newMonitorServer(addr, sessionID string, hub *ws.Hub, db *database.Database, logger *log.Logger) *monitorServer {
	m := &monitorServer{
		hub:           hub,
		authenticator: auth.NewAuthenticator(),
		db:            db,
		logger:        logger,
	}

	protect := middleware.Auth(m.authenticator)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", m.handleLogin)
	mux.Handle("/ws/sessions/", ws.NewHandler(hub))
	mux.Handle("/report/latest", protect(http.HandlerFunc(m.handleLatestReport)))
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
	})
	if db != nil {
		mux.Handle("/sessions", protect(http.HandlerFunc(m.handleListSessions)))
		mux.Handle("/sessions/", protect(http.HandlerFunc(m.handleSessionDetail)))
	}

	m.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return m
}

func (m *monitorServer) start() {
	go func() {
		m.logger.Printf("monitor server listening on %s", m.server.Addr)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Printf("monitor server error: %v", err)
		}
	}()
}

func (m *monitorServer) shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}

func (m *monitorServer) setLatestReport(rep *report.Report) {
	m.mu.Lock()
	m.latest = rep
	m.mu.Unlock()
}

func (m *monitorServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, expiresAt, err := m.authenticator.Authenticate(creds.Username, creds.Password)
	switch {
	case errors.Is(err, auth.ErrAuthDisabled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "authentication is disabled"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate token"})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"token":      token,
			"expires_at": expiresAt,
		})
	}
}

func (m *monitorServer) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	if claims := middleware.UserFromContext(r.Context()); claims != nil {
		m.logger.Printf("report requested by %s", claims.Username)
	}

	m.mu.RLock()
	rep := m.latest
	m.mu.RUnlock()

	if rep == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report available yet"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleListSessions serves the archived sessions, newest first.
// GET /sessions?limit=N
func (m *monitorServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	sessions, err := m.db.ListSessions(limit)
	if err != nil {
		m.logger.Printf("failed to list sessions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleSessionDetail serves one archived session or its anomaly log.
// GET /sessions/{id} and GET /sessions/{id}/anomalies
func (m *monitorServer) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id required"})
		return
	}
	id := parts[0]

	if len(parts) == 2 && parts[1] == "anomalies" {
		records, err := m.db.ListAnomalies(id)
		if err != nil {
			m.logger.Printf("failed to list anomalies for %s: %v", id, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list anomalies"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session_id": id,
			"count":      len(records),
			"anomalies":  records,
		})
		return
	}
	if len(parts) != 1 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	rec, err := m.db.GetSession(id)
	if err != nil {
		m.logger.Printf("failed to get session %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get session"})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
