package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	kerrors "github.com/shrinedev/shrine/internal/errors"
	logger "github.com/shrinedev/shrine/internal/logging"
	"github.com/shrinedev/shrine/internal/shrine"
)

// Agent file names inside the runtime directory.
func SocketPath(runtimeDir string) string { return filepath.Join(runtimeDir, "agent.sock") }
func PidPath(runtimeDir string) string    { return filepath.Join(runtimeDir, "agent.pid") }
func LogPath(runtimeDir string) string    { return filepath.Join(runtimeDir, "agent.log") }

// Stable error codes carried in JSON error responses.
const (
	codeBadPassword    = "bad password"
	codeSessionExpired = "session expired"
	codeShrineNotFound = "shrine not found"
	codeSecretNotFound = "secret not found"
	codeConcurrent     = "concurrent modification"
)

// Wire messages.
type unlockRequest struct {
	Folder   string `json:"folder"`
	Password string `json:"password"`
}

type setRequest struct {
	Folder string `json:"folder"`
	Key    string `json:"key"`
	Value  []byte `json:"value"`
}

type valueResponse struct {
	Value []byte `json:"value"`
}

type listResponse struct {
	Total int      `json:"total"`
	Keys  []string `json:"keys"`
}

type pidResponse struct {
	Pid      int `json:"pid"`
	Sessions int `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the session agent: a long-lived process caching derived keys
// behind an owner-only unix socket. Requests are served one at a time; the
// handler mutex is the only concurrency control the store needs.
type Server struct {
	mu       sync.Mutex
	sessions *sessionStore
	ttl      time.Duration
	log      logger.Logger

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewServer creates an agent server with the given fixed session TTL.
func NewServer(ttl time.Duration, log logger.Logger) *Server {
	return &Server{
		sessions: newSessionStore(),
		ttl:      ttl,
		log:      log,
		shutdown: make(chan struct{}),
	}
}

// Serve listens on the agent socket inside runtimeDir and blocks until the
// agent is stopped by a client, a signal, or a listener error. The socket is
// chmodded to owner-only before any request is served.
func (s *Server) Serve(runtimeDir string) error {
	socketPath := SocketPath(runtimeDir)
	pidPath := PidPath(runtimeDir)

	// A previous agent may have crashed without cleaning up.
	_ = os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on agent socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to restrict agent socket permissions: %w", err)
	}

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to write pidfile: %w", err)
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 1s", s.sweepExpired); err != nil {
		listener.Close()
		return fmt.Errorf("failed to schedule session sweeper: %w", err)
	}
	sweeper.Start()

	server := &http.Server{Handler: s.routes()}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-signals:
			s.log.Infof("received %v, shutting down", sig)
		case <-s.shutdown:
			s.log.Infof("stop requested, shutting down")
		}
		// Graceful: the stop request's own response is still in flight.
		_ = server.Shutdown(context.Background())
	}()

	s.log.Infof("agent listening on %s (session ttl %s)", socketPath, s.ttl)

	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	signal.Stop(signals)
	<-sweeper.Stop().Done()
	s.sessions.clearAll()
	_ = os.Remove(socketPath)
	_ = os.Remove(pidPath)

	return err
}

// Stop asks a running Serve to shut down.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

func (s *Server) sweepExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cleared := s.sessions.sweep(time.Now()); cleared > 0 {
		s.log.Infof("cleared %d expired session(s)", cleared)
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /pid", s.handlePid)
	mux.HandleFunc("DELETE /{$}", s.handleStop)
	mux.HandleFunc("PUT /sessions", s.handleUnlock)
	mux.HandleFunc("DELETE /sessions", s.handleLock)
	mux.HandleFunc("GET /keys", s.handleList)
	mux.HandleFunc("GET /key", s.handleGet)
	mux.HandleFunc("PUT /key", s.handleSet)
	mux.HandleFunc("DELETE /key", s.handleRemove)

	// One outstanding request at a time: the protocol serializes every
	// request, including unlocks, behind a single mutex.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func (s *Server) handlePid(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, pidResponse{Pid: os.Getpid(), Sessions: s.sessions.count()})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
	s.Stop()
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "undecodable request")
		return
	}

	repo, err := shrine.Open(req.Folder, []byte(req.Password))
	switch {
	case errors.Is(err, kerrors.ErrIntegrity):
		writeError(w, http.StatusUnauthorized, codeBadPassword)
		return
	case errors.Is(err, kerrors.ErrShrineNotFound):
		writeError(w, http.StatusNotFound, codeShrineNotFound)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	key := append([]byte(nil), repo.Key()...)
	id := repo.UUID()
	repo.Close()

	expiresAt := time.Now().Add(s.ttl)
	s.sessions.put(req.Folder, id, key, expiresAt)
	shrine.Bytes(key).Wipe()

	s.log.Infof("unlocked shrine %s until %s", id, expiresAt.Format(time.RFC3339))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	if folder == "" {
		s.sessions.clearAll()
	} else {
		s.sessions.clear(folder)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	repo, ok := s.openSession(w, folder)
	if !ok {
		return
	}
	defer repo.Close()

	keys, err := repo.List(r.URL.Query().Get("pattern"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Total: len(keys), Keys: keys})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	repo, ok := s.openSession(w, folder)
	if !ok {
		return
	}
	defer repo.Close()

	value, err := repo.Get(r.URL.Query().Get("key"))
	if errors.Is(err, kerrors.ErrSecretNotFound) {
		writeError(w, http.StatusNotFound, codeSecretNotFound)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Value: value})
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "undecodable request")
		return
	}

	repo, ok := s.openSession(w, req.Folder)
	if !ok {
		return
	}
	defer repo.Close()

	if err := repo.Set(req.Key, req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.save(w, repo) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	repo, ok := s.openSession(w, folder)
	if !ok {
		return
	}
	defer repo.Close()

	if err := repo.Remove(r.URL.Query().Get("key")); err != nil {
		writeError(w, http.StatusNotFound, codeSecretNotFound)
		return
	}
	if !s.save(w, repo) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// openSession opens the shrine with the cached session key. A missing or
// expired session, and a cached key that no longer opens the shrine (the
// shrine was re-keyed behind the agent's back), both tear the session down
// and report it as expired so the client falls back to the cold path.
func (s *Server) openSession(w http.ResponseWriter, folder string) (*shrine.Repository, bool) {
	session := s.sessions.get(folder, time.Now())
	if session == nil {
		writeError(w, http.StatusUnauthorized, codeSessionExpired)
		return nil, false
	}

	key := session.Key()
	defer shrine.Bytes(key).Wipe()

	repo, err := shrine.OpenWithKey(folder, append([]byte(nil), key...))
	switch {
	case errors.Is(err, kerrors.ErrIntegrity):
		s.sessions.clear(folder)
		writeError(w, http.StatusUnauthorized, codeSessionExpired)
		return nil, false
	case errors.Is(err, kerrors.ErrShrineNotFound):
		s.sessions.clear(folder)
		writeError(w, http.StatusNotFound, codeShrineNotFound)
		return nil, false
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}

	repo.Logger = s.log
	return repo, true
}

func (s *Server) save(w http.ResponseWriter, repo *shrine.Repository) bool {
	err := repo.Save()
	switch {
	case errors.Is(err, kerrors.ErrConcurrentModification):
		writeError(w, http.StatusConflict, codeConcurrent)
		return false
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}
