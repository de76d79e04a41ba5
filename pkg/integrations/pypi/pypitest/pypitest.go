// Package pypitest provides a fake package index for tests.
//
// The server speaks the subset of the PyPI JSON API the updater uses:
// GET /{name}/json. Failures, delays and rate limiting can be injected
// per package, and the server records how many requests it served and
// how many were in flight at once.
package pypitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pypi-updater/pkg/deps"
)

// Server is a fake index backed by an in-memory version table.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	versions map[string]string
	failures map[string][]int
	delays   map[string]time.Duration
	hits     map[string]int
	inFlight int
	peak     int
}

// NewServer starts a fake index serving versions, keyed by project name.
// Names are normalized, so "Django" and "django" are the same project.
// Call Close when done.
func NewServer(versions map[string]string) *Server {
	s := &Server{
		versions: make(map[string]string, len(versions)),
		failures: make(map[string][]int),
		delays:   make(map[string]time.Duration),
		hits:     make(map[string]int),
	}
	for name, v := range versions {
		s.versions[deps.Normalize(name)] = v
	}

	r := chi.NewRouter()
	r.Get("/{name}/json", s.serveProject)
	s.Server = httptest.NewServer(r)
	return s
}

// SetVersion publishes version as the latest release of name.
func (s *Server) SetVersion(name, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[deps.Normalize(name)] = version
}

// Fail makes the next len(statuses) requests for name answer with the
// given status codes, in order. 429 responses carry "Retry-After: 0".
func (s *Server) Fail(name string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := deps.Normalize(name)
	s.failures[key] = append(s.failures[key], statuses...)
}

// Delay holds every response for name by d. Use "*" for all projects.
func (s *Server) Delay(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "*" {
		name = deps.Normalize(name)
	}
	s.delays[name] = d
}

// Hits returns how many requests were made for name.
func (s *Server) Hits(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[deps.Normalize(name)]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hits {
		n += h
	}
	return n
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (s *Server) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

func (s *Server) serveProject(w http.ResponseWriter, r *http.Request) {
	name := deps.Normalize(chi.URLParam(r, "name"))

	s.mu.Lock()
	s.hits[name]++
	s.inFlight++
	s.peak = max(s.peak, s.inFlight)
	delay, ok := s.delays[name]
	if !ok {
		delay = s.delays["*"]
	}
	status := 0
	if queue := s.failures[name]; len(queue) > 0 {
		status, s.failures[name] = queue[0], queue[1:]
	}
	version, found := s.versions[name]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		w.Header().Set("Retry-After", strconv.Itoa(0))
		w.WriteHeader(status)
		return
	case status != 0:
		w.WriteHeader(status)
		return
	case !found:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"info": map[string]any{
			"name":    name,
			"version": version,
			"summary": "",
		},
	})
}
