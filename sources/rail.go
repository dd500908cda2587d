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

// DefaultRailInterval is the poll cadence for the intercity rail feed.
const DefaultRailInterval = 60 * time.Second

// RailTrain is one intercity train position record. The upstream feed is
// not bounded, so filtering to the subscribed region happens client side.
type RailTrain struct {
	TrainNum  string  `json:"trainNum"`
	RouteName string  `json:"routeName"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lon"`
	Heading   float64 `json:"heading"`
	Velocity  float64 `json:"velocity"`
}

// RailSource polls an aggregating all-trains endpoint and broadcasts only
// the trains whose coordinates fall inside the configured bounding box.
type RailSource struct {
	url       string
	box       geo.BoundingBox
	interval  time.Duration
	broadcast BroadcastFunc
	metrics   Metrics

	client    *http.Client
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewRailSource(url string, box geo.BoundingBox, interval time.Duration, broadcast BroadcastFunc, m Metrics) *RailSource {
	if interval <= 0 {
		interval = DefaultRailInterval
	}
	return &RailSource{
		url:       url,
		box:       box,
		interval:  interval,
		broadcast: broadcast,
		metrics:   m,
		client:    &http.Client{Timeout: 15 * time.Second},
		stopCh:    make(chan struct{}),
	}
}

func (s *RailSource) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *RailSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *RailSource) run() {
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

func (s *RailSource) poll() {
	trains, err := s.fetch()
	if err != nil {
		log.Printf("rail: fetch failed: %v", err)
		fetchError(s.metrics, "rail")
		return
	}
	fetchOK(s.metrics, "rail")

	inBox := make([]RailTrain, 0, len(trains))
	for _, t := range trains {
		if s.box.Contains(t.Lat, t.Lng) {
			inBox = append(inBox, t)
		}
	}

	select {
	case <-s.stopCh:
	default:
		s.broadcast(Message{Type: TypeIntercityRail, Payload: inBox})
	}
}

func (s *RailSource) fetch() ([]RailTrain, error) {
	resp, err := s.client.Get(s.url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, s.url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var trains []RailTrain
	if err := json.Unmarshal(body, &trains); err != nil {
		return nil, fmt.Errorf("decode trains: %w", err)
	}
	return trains, nil
}
