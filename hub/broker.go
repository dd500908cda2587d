// Package hub multiplexes upstream position feeds into per-region message
// logs with reference-counted lifecycle. One RegionBroker exists per
// distinct bounding box; clients attach as listeners and replay the log
// from the beginning before receiving live appends.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
	"github.com/theoremus-urban-solutions/livemap-hub/sources"
)

// DefaultGracePeriod is how long a broker with no listeners keeps its
// sources running before destruction, to absorb reconnect churn.
const DefaultGracePeriod = 5 * time.Minute

// State is a broker's lifecycle phase. Destroyed is terminal.
type State int

const (
	Active State = iota
	PendingDestroy
	Destroyed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case PendingDestroy:
		return "pending-destroy"
	case Destroyed:
		return "destroyed"
	}
	return "unknown"
}

// SendFunc delivers one serialized message to a listener's transport.
// A non-nil error detaches the listener.
type SendFunc func(payload []byte) error

// Metrics is the narrow instrumentation surface the hub reports to.
type Metrics interface {
	BrokerCreated()
	BrokerDestroyed()
	MessageAppended(msgType string)
	ListenerAdded()
	ListenerRemoved()
}

// Listener is one attached consumer's cursor into the broker log. The pump
// goroutine owns delivery; everything else is guarded by the broker mutex.
type Listener struct {
	send     SendFunc
	cursor   int
	detached bool
	wake     chan struct{}
}

// RegionBroker owns the upstream sources and the append-only message log
// for one bounding box. Messages are serialized once on append; every
// listener replays the log in index order through its own pump goroutine,
// so delivery to any one listener is strictly in append order.
type RegionBroker struct {
	Box geo.BoundingBox

	srcs    []sources.Source
	grace   time.Duration
	metrics Metrics

	mu        sync.Mutex
	state     State
	refs      int
	log       [][]byte
	listeners []*Listener
	zeroGen   uint64
}

// SourceFactory builds the upstream sources for one region. The broadcast
// callback appends to the owning broker's log.
type SourceFactory func(box geo.BoundingBox, broadcast sources.BroadcastFunc) []sources.Source

// NewRegionBroker constructs a broker and starts its sources.
func NewRegionBroker(box geo.BoundingBox, factory SourceFactory, grace time.Duration, m Metrics) *RegionBroker {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	b := &RegionBroker{
		Box:     box,
		grace:   grace,
		metrics: m,
		state:   Active,
	}
	b.srcs = factory(box, b.Append)
	for _, src := range b.srcs {
		src.Start()
	}
	if m != nil {
		m.BrokerCreated()
	}
	log.Printf("hub: broker %s created with %d sources", box.Key(), len(b.srcs))
	return b
}

// Append serializes a source message onto the log and wakes every attached
// listener. Messages arriving after destruction are dropped.
func (b *RegionBroker) Append(msg sources.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("hub: dropping unserializable %s message: %v", msg.Type, err)
		return
	}

	b.mu.Lock()
	if b.state == Destroyed {
		b.mu.Unlock()
		return
	}
	b.log = append(b.log, payload)
	for _, l := range b.listeners {
		if l != nil && !l.detached {
			l.notify()
		}
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.MessageAppended(string(msg.Type))
	}
}

// AddRef attaches a listener at cursor 0 and schedules replay of the whole
// buffered log. Attaching to a PendingDestroy broker cancels the pending
// destruction. Returns nil if the broker is already Destroyed.
func (b *RegionBroker) AddRef(send SendFunc) *Listener {
	b.mu.Lock()
	if b.state == Destroyed {
		b.mu.Unlock()
		return nil
	}
	if b.state == PendingDestroy {
		b.state = Active
	}
	b.refs++
	l := &Listener{
		send: send,
		wake: make(chan struct{}, 1),
	}
	b.listeners = append(b.listeners, l)
	l.notify()
	b.mu.Unlock()

	go b.pump(l)
	if b.metrics != nil {
		b.metrics.ListenerAdded()
	}
	return l
}

// RemoveRef detaches a listener. The listener's slot is nulled, not
// removed, so other listeners keep their positions. When the last
// reference goes, destruction is scheduled after the grace period; a
// timer made stale by a later ref cycle is a no-op.
func (b *RegionBroker) RemoveRef(l *Listener) {
	b.mu.Lock()
	if b.state == Destroyed || l == nil || l.detached {
		b.mu.Unlock()
		return
	}
	l.detached = true
	close(l.wake)
	for i, cur := range b.listeners {
		if cur == l {
			b.listeners[i] = nil
			break
		}
	}
	b.refs--
	if b.refs > 0 {
		b.mu.Unlock()
		if b.metrics != nil {
			b.metrics.ListenerRemoved()
		}
		return
	}
	b.zeroGen++
	gen := b.zeroGen
	b.state = PendingDestroy
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.ListenerRemoved()
	}
	log.Printf("hub: broker %s idle, destruction in %s", b.Box.Key(), b.grace)
	time.AfterFunc(b.grace, func() {
		b.destroyIfStale(gen)
	})
}

func (b *RegionBroker) destroyIfStale(gen uint64) {
	b.mu.Lock()
	if b.state != PendingDestroy || b.zeroGen != gen {
		b.mu.Unlock()
		return
	}
	b.destroyLocked()
	b.mu.Unlock()
}

// Destroy stops the sources and closes every remaining listener
// immediately. A destroyed broker is never reused.
func (b *RegionBroker) Destroy() {
	b.mu.Lock()
	if b.state == Destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyLocked()
	b.mu.Unlock()
}

func (b *RegionBroker) destroyLocked() {
	b.state = Destroyed
	for i, l := range b.listeners {
		if l != nil && !l.detached {
			l.detached = true
			close(l.wake)
			if b.metrics != nil {
				b.metrics.ListenerRemoved()
			}
		}
		b.listeners[i] = nil
	}
	for _, src := range b.srcs {
		src.Stop()
	}
	if b.metrics != nil {
		b.metrics.BrokerDestroyed()
	}
	log.Printf("hub: broker %s destroyed after %d messages", b.Box.Key(), len(b.log))
}

// CurrentState reports the broker's lifecycle phase.
func (b *RegionBroker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// LogLen reports the number of appended messages.
func (b *RegionBroker) LogLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.log)
}

// notify wakes the pump without blocking; a pending wakeup already covers
// any number of unread entries.
func (l *Listener) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// pump delivers log entries to one listener in cursor order. It is the
// only goroutine that advances the cursor, so delivery never skips or
// reorders. A send error detaches the listener silently; transport-level
// cleanup calls RemoveRef.
func (b *RegionBroker) pump(l *Listener) {
	for range l.wake {
		for {
			b.mu.Lock()
			if l.detached || b.state == Destroyed {
				b.mu.Unlock()
				return
			}
			if l.cursor >= len(b.log) {
				b.mu.Unlock()
				break
			}
			payload := b.log[l.cursor]
			l.cursor++
			b.mu.Unlock()

			if err := l.send(payload); err != nil {
				// The transport is broken; its read loop will observe the
				// same failure and call RemoveRef.
				return
			}
		}
	}
}
