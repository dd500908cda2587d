package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
)

// DefaultAircraftInterval is the poll cadence for the aircraft state feed.
const DefaultAircraftInterval = 3 * time.Minute

// StateVectorBatch is one raw aircraft state-vector response. States keep
// the upstream's positional-array encoding and are forwarded untouched.
type StateVectorBatch struct {
	Time   int64   `json:"time"`
	States [][]any `json:"states"`
}

// AircraftSource polls a bounding-box-parameterized REST endpoint for
// aircraft state vectors. A failed tick is logged and swallowed; the timer
// keeps running.
type AircraftSource struct {
	baseURL   string
	box       geo.BoundingBox
	interval  time.Duration
	broadcast BroadcastFunc
	metrics   Metrics

	client    *http.Client
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewAircraftSource(baseURL string, box geo.BoundingBox, interval time.Duration, broadcast BroadcastFunc, m Metrics) *AircraftSource {
	if interval <= 0 {
		interval = DefaultAircraftInterval
	}
	return &AircraftSource{
		baseURL:   baseURL,
		box:       box,
		interval:  interval,
		broadcast: broadcast,
		metrics:   m,
		client:    &http.Client{Timeout: 15 * time.Second},
		stopCh:    make(chan struct{}),
	}
}

func (s *AircraftSource) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *AircraftSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *AircraftSource) run() {
	s.poll()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *AircraftSource) poll() {
	batch, err := s.fetch()
	if err != nil {
		log.Printf("aircraft: fetch failed: %v", err)
		fetchError(s.metrics, "aircraft")
		return
	}
	fetchOK(s.metrics, "aircraft")
	select {
	case <-s.stopCh:
		// Stopped while the fetch was in flight; discard the result.
	default:
		s.broadcast(Message{Type: TypeAircraftState, Payload: batch})
	}
}

func (s *AircraftSource) fetch() (*StateVectorBatch, error) {
	url := fmt.Sprintf("%s?lamin=%f&lomin=%f&lamax=%f&lomax=%f",
		s.baseURL, s.box.MinLat, s.box.MinLng, s.box.MaxLat, s.box.MaxLng)
	resp, err := s.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, s.baseURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var batch StateVectorBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("decode state vectors: %w", err)
	}
	return &batch, nil
}
