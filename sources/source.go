// Package sources owns the connection and polling lifecycle to the external
// vehicle feeds. Each source variant emits tagged messages through a
// caller-supplied broadcast callback; none returns data from a call.
package sources

// MessageType identifies which feed family a tagged message carries.
type MessageType string

const (
	TypeMarineAIS     MessageType = "AIS"
	TypeAircraftState MessageType = "Aircraft"
	TypeIntercityRail MessageType = "Rail"
	TypeTransitRail   MessageType = "Transit"
)

// Message is one tagged batch emitted by a source. The payload union is
// keyed by Type: a raw AIS report, a StateVectorBatch, a []RailTrain or a
// []TrainPosition.
type Message struct {
	Type    MessageType `json:"t"`
	Payload any         `json:"msg"`
}

// BroadcastFunc receives every message a source emits, in emission order.
type BroadcastFunc func(Message)

// Source is one upstream feed connection. Start begins emission and Stop
// terminates it and releases all resources; both are idempotent, and Stop
// is safe to call while a fetch or connect is in flight (the in-flight
// operation completes and its result is discarded).
type Source interface {
	Start()
	Stop()
}

// Metrics is the instrumentation subset the sources report into. A nil
// Metrics disables reporting.
type Metrics interface {
	SourceFetchOK(source string)
	SourceFetchError(source string)
}

func fetchOK(m Metrics, source string) {
	if m != nil {
		m.SourceFetchOK(source)
	}
}

func fetchError(m Metrics, source string) {
	if m != nil {
		m.SourceFetchError(source)
	}
}
