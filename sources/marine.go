package sources

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
)

// marineSubscription is the handshake sent once per connection. The stream
// emits nothing until it has been received.
type marineSubscription struct {
	APIKey             string        `json:"APIKey"`
	BoundingBoxes      [][][]float64 `json:"BoundingBoxes"`
	FilterMessageTypes []string      `json:"FilterMessageTypes"`
}

// MarineSource maintains a persistent websocket subscription to an AIS
// position stream and rebroadcasts every inbound report. A dropped
// connection is redialed with exponential backoff until Stop is called.
type MarineSource struct {
	url       string
	apiKey    string
	box       geo.BoundingBox
	broadcast BroadcastFunc
	metrics   Metrics

	mu     sync.Mutex
	conn   *websocket.Conn
	stopCh chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewMarineSource(url, apiKey string, box geo.BoundingBox, broadcast BroadcastFunc, m Metrics) *MarineSource {
	return &MarineSource{
		url:       url,
		apiKey:    apiKey,
		box:       box,
		broadcast: broadcast,
		metrics:   m,
		stopCh:    make(chan struct{}),
	}
}

func (s *MarineSource) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *MarineSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
}

func (s *MarineSource) run() {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		subscribed, err := s.connectAndRead()
		if err != nil {
			log.Printf("marine: stream error: %v", err)
			fetchError(s.metrics, "marine")
		}
		if subscribed {
			policy.Reset()
		}

		select {
		case <-s.stopCh:
			return
		case <-time.After(policy.NextBackOff()):
		}
	}
}

// connectAndRead dials, subscribes, and pumps messages until the connection
// drops or Stop closes it. It reports whether the subscription handshake
// completed, which resets the caller's backoff.
func (s *MarineSource) connectAndRead() (bool, error) {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	sub := marineSubscription{
		APIKey: s.apiKey,
		BoundingBoxes: [][][]float64{{
			{s.box.MinLat, s.box.MinLng},
			{s.box.MaxLat, s.box.MaxLng},
		}},
		FilterMessageTypes: []string{"PositionReport"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return false, err
	}
	log.Printf("marine: subscribed to %s", s.box.Key())

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
				return true, nil
			default:
				return true, err
			}
		}
		var report map[string]any
		if err := json.Unmarshal(raw, &report); err != nil {
			log.Printf("marine: skipping malformed report: %v", err)
			continue
		}
		fetchOK(s.metrics, "marine")
		s.broadcast(Message{Type: TypeMarineAIS, Payload: report})
	}
}
