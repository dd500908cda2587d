// Package flights is the HTTP side-channel for aircraft callsign lookups.
// Results from the upstream aviation service are memoized and concurrent
// requests for the same callsign are coalesced into one upstream call.
package flights

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bluele/gcache"
)

// Status is the tri-state of one lookup.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// LookupResult is what the endpoint returns. While an upstream call is in
// flight the status is pending and the client is expected to retry.
type LookupResult struct {
	Status  Status `json:"status"`
	Flight  any    `json:"flight,omitempty"`
	Message string `json:"error,omitempty"`
}

// LookupFunc resolves one callsign against the upstream service.
type LookupFunc func(callsign string) (any, error)

// Metrics is the instrumentation surface for lookups.
type Metrics interface {
	FlightLookup(memoHit bool)
}

// Service memoizes callsign lookups. Completed results (success or error)
// live in an LRU cache; in-flight callsigns are tracked separately so a
// burst of requests triggers a single upstream call.
type Service struct {
	lookup  LookupFunc
	cache   gcache.Cache
	metrics Metrics

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewService(lookup LookupFunc, m Metrics) *Service {
	return &Service{
		lookup: lookup,
		cache: gcache.New(10000).
			LRU().
			Expiration(24 * time.Hour).
			Build(),
		metrics: m,
		pending: map[string]struct{}{},
	}
}

// HTTPLookup builds a LookupFunc against a REST endpoint that appends the
// callsign as the final path segment.
func HTTPLookup(baseURL string) LookupFunc {
	client := &http.Client{Timeout: 15 * time.Second}
	return func(callsign string) (any, error) {
		resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/" + callsign)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d for callsign %s", resp.StatusCode, callsign)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var decoded any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("decode flight data: %w", err)
		}
		return decoded, nil
	}
}

// Lookup returns the memoized result for callsign, starting an upstream
// call when none exists. The first caller and everyone arriving before
// completion sees pending.
func (s *Service) Lookup(callsign string) LookupResult {
	callsign = strings.ToUpper(strings.TrimSpace(callsign))

	if cached, err := s.cache.Get(callsign); err == nil {
		if s.metrics != nil {
			s.metrics.FlightLookup(true)
		}
		return cached.(LookupResult)
	}

	s.mu.Lock()
	if _, inflight := s.pending[callsign]; inflight {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.FlightLookup(true)
		}
		return LookupResult{Status: StatusPending}
	}
	s.pending[callsign] = struct{}{}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.FlightLookup(false)
	}
	go s.resolve(callsign)
	return LookupResult{Status: StatusPending}
}

func (s *Service) resolve(callsign string) {
	flight, err := s.lookup(callsign)

	result := LookupResult{Status: StatusSuccess, Flight: flight}
	if err != nil {
		result = LookupResult{Status: StatusError, Message: err.Error()}
	}
	_ = s.cache.Set(callsign, result)

	s.mu.Lock()
	delete(s.pending, callsign)
	s.mu.Unlock()
}

// ServeHTTP answers GET ?flight=XYZ with the current lookup state.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	callsign := strings.TrimSpace(r.URL.Query().Get("flight"))
	if callsign == "" {
		http.Error(w, "missing flight parameter", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Lookup(callsign))
}
