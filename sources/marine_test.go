package sources

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestMarineSourceSubscribesAndForwardsReports(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subs := make(chan marineSubscription, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub marineSubscription
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscription: %v", err)
			return
		}
		subs <- sub

		_ = conn.WriteJSON(map[string]any{
			"MessageType": "PositionReport",
			"Message": map[string]any{
				"PositionReport": map[string]any{"Latitude": 40.6, "Longitude": -74.0},
			},
		})
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	msgs := make(chan Message, 1)
	src := NewMarineSource(wsURL, "test-key", testBox, func(m Message) { msgs <- m }, nil)
	src.Start()
	defer src.Stop()

	select {
	case sub := <-subs:
		if sub.APIKey != "test-key" {
			t.Errorf("APIKey = %q, want test-key", sub.APIKey)
		}
		if len(sub.BoundingBoxes) != 1 || len(sub.BoundingBoxes[0]) != 2 {
			t.Fatalf("unexpected box shape: %+v", sub.BoundingBoxes)
		}
		if sub.BoundingBoxes[0][0][0] != testBox.MinLat || sub.BoundingBoxes[0][1][1] != testBox.MaxLng {
			t.Errorf("box corners = %+v", sub.BoundingBoxes[0])
		}
		if len(sub.FilterMessageTypes) != 1 || sub.FilterMessageTypes[0] != "PositionReport" {
			t.Errorf("filter = %+v", sub.FilterMessageTypes)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription handshake received")
	}

	msg := collectOne(t, 2*time.Second, msgs)
	if msg.Type != TypeMarineAIS {
		t.Fatalf("message type = %q, want %q", msg.Type, TypeMarineAIS)
	}
	report := msg.Payload.(map[string]any)
	if report["MessageType"] != "PositionReport" {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestMarineSourceReconnectsAfterDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	dials := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		dials <- struct{}{}
		// Accept the handshake, then drop the connection immediately.
		var sub marineSubscription
		_ = conn.ReadJSON(&sub)
		conn.Close()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	src := NewMarineSource(wsURL, "test-key", testBox, func(Message) {}, nil)
	src.Start()
	defer src.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-dials:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d dials before timeout, want at least 2", i)
		}
	}
}
