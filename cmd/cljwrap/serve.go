package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caffeineduck/cljwrap/language"
	"github.com/caffeineduck/cljwrap/language/clojure"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for code wrapping",
	Long: `Start an HTTP server that prepares code for REPL evaluation.

Endpoints:
  POST   /wrap                 Wrap code {"code","lang","ns"}
  GET    /bootstrap            Session bootstrap snippet
  POST   /sessions             Create session {"lang","ns"}, returns {"session_id":"..."}
  POST   /sessions/{id}/wrap   Wrap code with the session's language and namespace
  DELETE /sessions/{id}        Close session
  GET    /health               Health check`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Duration("session-ttl", 15*time.Minute, "Idle time before a session is dropped")
	rootCmd.AddCommand(serveCmd)
}

type sessionManager struct {
	sessions map[string]*serverSession
	mu       sync.RWMutex
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type serverSession struct {
	tag      string
	ns       string
	lang     language.Language
	lastUsed time.Time
}

func newSessionManager(ttl time.Duration) *sessionManager {
	sm := &sessionManager{
		sessions: make(map[string]*serverSession),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go sm.cleanup()
	return sm
}

func (sm *sessionManager) create(tag, ns string) (string, error) {
	if ns == "" {
		ns = clojure.DefaultNamespace
	}
	lang, err := language.Resolve(tag, ns)
	if err != nil {
		return "", err
	}

	id := generateSessionID()
	sm.mu.Lock()
	sm.sessions[id] = &serverSession{
		tag:      lang.Name(),
		ns:       ns,
		lang:     lang,
		lastUsed: time.Now(),
	}
	sm.mu.Unlock()
	return id, nil
}

// wrap prepares code for session id. A non-empty ns switches the session's
// namespace before wrapping.
func (sm *sessionManager) wrap(id, code, ns string) (string, bool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ss, ok := sm.sessions[id]
	if !ok {
		return "", false, nil
	}
	ss.lastUsed = time.Now()

	if ns != "" && ns != ss.ns {
		lang, err := language.Resolve(ss.tag, ns)
		if err != nil {
			return "", true, err
		}
		ss.ns, ss.lang = ns, lang
	}
	return ss.lang.WrapCode(code), true, nil
}

func (sm *sessionManager) get(id string) (serverSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ss, ok := sm.sessions[id]
	if !ok {
		return serverSession{}, false
	}
	return *ss, true
}

func (sm *sessionManager) close(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, ok := sm.sessions[id]
	delete(sm.sessions, id)
	return ok
}

func (sm *sessionManager) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case now := <-ticker.C:
			sm.evictIdle(now)
		}
	}
}

func (sm *sessionManager) evictIdle(now time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	n := 0
	for id, ss := range sm.sessions {
		if now.Sub(ss.lastUsed) > sm.ttl {
			delete(sm.sessions, id)
			n++
		}
	}
	return n
}

func (sm *sessionManager) closeAll() {
	sm.stopOnce.Do(func() { close(sm.stop) })
	sm.mu.Lock()
	for id := range sm.sessions {
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
}

func generateSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

type wrapRequest struct {
	Code string `json:"code"`
	Lang string `json:"lang,omitempty"`
	NS   string `json:"ns,omitempty"`
}

type wrapResponse struct {
	Code string `json:"code"`
	Lang string `json:"lang"`
	NS   string `json:"ns"`
}

type bootstrapResponse struct {
	Code string `json:"code"`
}

type createSessionRequest struct {
	Lang string `json:"lang,omitempty"`
	NS   string `json:"ns,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type sessionWrapRequest struct {
	Code string `json:"code"`
	NS   string `json:"ns,omitempty"`
}

type server struct {
	defaultLang string
	defaultNS   string
	sessions    *sessionManager
	log         *zap.Logger
}

func (s *server) withDefaults(tag, ns string) (string, string) {
	if tag == "" {
		tag = s.defaultLang
	}
	if ns == "" {
		ns = s.defaultNS
	}
	return tag, ns
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/wrap", s.handleWrap)
	mux.HandleFunc("/bootstrap", s.handleBootstrap)
	mux.HandleFunc("/sessions", s.handleCreateSession)
	mux.HandleFunc("/sessions/", s.handleSession)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *server) handleWrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req wrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if req.Code == "" {
		http.Error(w, "code required", http.StatusBadRequest)
		return
	}

	tag, ns := s.withDefaults(req.Lang, req.NS)
	lang, err := getLanguage(tag, "", ns)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.log.Debug("Wrapping code", zap.String("lang", tag), zap.String("ns", ns), zap.Int("bytes", len(req.Code)))
	writeJSON(w, wrapResponse{Code: lang.WrapCode(req.Code), Lang: lang.Name(), NS: ns})
}

func (s *server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Same text for both dialects; no session needed.
	writeJSON(w, bootstrapResponse{Code: clojure.Bootstrap()})
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	tag, ns := s.withDefaults(req.Lang, req.NS)
	if tag == "" {
		http.Error(w, "lang required", http.StatusBadRequest)
		return
	}

	sessionID, err := s.sessions.create(tag, ns)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.log.Info("Session created", zap.String("session_id", sessionID), zap.String("lang", tag), zap.String("ns", ns))
	writeJSON(w, createSessionResponse{SessionID: sessionID})
}

func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.SplitN(path, "/", 2)
	sessionID := parts[0]

	if sessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodDelete && len(parts) == 1 {
		if s.sessions.close(sessionID) {
			s.log.Info("Session closed", zap.String("session_id", sessionID))
			w.WriteHeader(http.StatusNoContent)
		} else {
			http.Error(w, "session not found", http.StatusNotFound)
		}
		return
	}

	if r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "wrap" {
		var req sessionWrapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if req.Code == "" {
			http.Error(w, "code required", http.StatusBadRequest)
			return
		}

		code, ok, err := s.sessions.wrap(sessionID, req.Code, req.NS)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ss, _ := s.sessions.get(sessionID)
		writeJSON(w, wrapResponse{Code: code, Lang: ss.tag, NS: ss.ns})
		return
	}

	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	ttl, _ := cmd.Flags().GetDuration("session-ttl")

	defaultLang := cfg.GetString("lang")
	defaultNS := cfg.GetString("ns")
	if defaultLang != "" {
		// Fail at startup rather than on every request.
		if _, err := getLanguage(defaultLang, "", defaultNS); err != nil {
			return err
		}
	}

	sessions := newSessionManager(ttl)
	defer sessions.closeAll()

	srv := &server{
		defaultLang: defaultLang,
		defaultNS:   defaultNS,
		sessions:    sessions,
		log:         logger,
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	logger.Info("cljwrap server listening", zap.String("addr", httpServer.Addr), zap.String("lang", defaultLang), zap.String("ns", defaultNS))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("Shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
