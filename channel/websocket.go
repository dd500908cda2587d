// Package channel is the client-facing websocket transport. Each connection
// subscribes to exactly one bounding box and then receives the region
// broker's log as a stream of typed messages.
package channel

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
	"github.com/theoremus-urban-solutions/livemap-hub/hub"
)

// boundsReadTimeout bounds how long a fresh connection may sit without
// sending its subscription box.
const boundsReadTimeout = 30 * time.Second

type controlMessage struct {
	Type string `json:"t"`
	Msg  any    `json:"msg"`
}

// Handler upgrades websocket connections and bridges them to the broker
// registry. The protocol per connection:
//
//	server -> client  {"t":"START","msg":"connection established"}
//	client -> server  one BoundingBox object
//	server -> client  {"t":"Bounds","msg":<box in effect>}
//	server -> client  {"t":<type>,"msg":<payload>} for every log entry
//
// Either side closing the connection detaches the listener.
type Handler struct {
	registry *hub.Registry
	upgrader websocket.Upgrader
}

func NewHandler(registry *hub.Registry) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("channel: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(controlMessage{Type: "START", Msg: "connection established"}); err != nil {
		return
	}

	box, err := readBounds(conn)
	if err != nil {
		log.Printf("channel: rejecting %s: %v", r.RemoteAddr, err)
		_ = conn.WriteJSON(controlMessage{Type: "Error", Msg: err.Error()})
		return
	}

	// Bounds goes out before the listener attaches so the client sees it
	// ahead of any replayed log entries.
	if err := conn.WriteJSON(controlMessage{Type: "Bounds", Msg: box}); err != nil {
		return
	}

	detach := h.registry.RegisterBounds(box, func(payload []byte) error {
		return conn.WriteMessage(websocket.TextMessage, payload)
	})
	defer detach()
	log.Printf("channel: %s subscribed to %s", r.RemoteAddr, box.Key())

	// The client sends nothing further; the read loop exists to observe
	// disconnection and control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func readBounds(conn *websocket.Conn) (geo.BoundingBox, error) {
	var box geo.BoundingBox
	_ = conn.SetReadDeadline(time.Now().Add(boundsReadTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return box, &BoundsError{"no bounding box received"}
	}
	_ = conn.SetReadDeadline(time.Time{})
	if err := json.Unmarshal(raw, &box); err != nil {
		return box, &BoundsError{"malformed bounding box"}
	}
	if !box.Valid() {
		return box, &BoundsError{"invalid bounding box"}
	}
	return box, nil
}

// BoundsError describes a rejected subscription payload.
type BoundsError struct {
	reason string
}

func (e *BoundsError) Error() string { return e.reason }
