package hub

import (
	"log"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
)

// DetachFunc releases one registration. It is bound to the broker instance
// the caller actually joined, so it still works after the registry has
// replaced that entry with a fresh broker under the same key.
type DetachFunc func()

// Registry maps canonical bounding-box keys to live brokers. Brokers are
// created on first registration for a key and replaced when a registration
// finds a destroyed entry.
type Registry struct {
	factory SourceFactory
	grace   time.Duration
	metrics Metrics

	mu      sync.Mutex
	brokers map[string]*RegionBroker
	closed  bool
}

func NewRegistry(factory SourceFactory, grace time.Duration, m Metrics) *Registry {
	return &Registry{
		factory: factory,
		grace:   grace,
		metrics: m,
		brokers: map[string]*RegionBroker{},
	}
}

// RegisterBounds attaches a listener to the broker for box, creating one
// when none exists or the existing one is already destroyed. The returned
// detach function is idempotent.
func (r *Registry) RegisterBounds(box geo.BoundingBox, send SendFunc) DetachFunc {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return func() {}
		}
		key := box.Key()
		broker, ok := r.brokers[key]
		if !ok || broker.CurrentState() == Destroyed {
			broker = NewRegionBroker(box, r.factory, r.grace, r.metrics)
			r.brokers[key] = broker
		}
		r.mu.Unlock()

		l := broker.AddRef(send)
		if l == nil {
			// Destroyed between lookup and attach; retry against a fresh
			// broker.
			continue
		}
		var once sync.Once
		return func() {
			once.Do(func() {
				broker.RemoveRef(l)
			})
		}
	}
}

// BrokerCount reports how many brokers the registry currently tracks,
// including any pending destruction.
func (r *Registry) BrokerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.brokers)
}

// Close destroys every broker immediately. Further registrations become
// no-ops.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	brokers := make([]*RegionBroker, 0, len(r.brokers))
	for _, b := range r.brokers {
		brokers = append(brokers, b)
	}
	r.brokers = map[string]*RegionBroker{}
	r.mu.Unlock()

	for _, b := range brokers {
		b.Destroy()
	}
	log.Printf("hub: registry closed, %d brokers destroyed", len(brokers))
}
