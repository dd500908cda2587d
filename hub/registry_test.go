package hub

import (
	"testing"
	"time"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
)

func TestRegistrySharesBrokerPerCanonicalKey(t *testing.T) {
	factory := &fakeFactory{}
	r := NewRegistry(factory.build, time.Minute, nil)
	defer r.Close()

	detach1 := r.RegisterBounds(testBox, (&recorder{}).send)
	defer detach1()

	// Equivalent at 6-decimal precision, so the same broker serves it.
	sameBox := geo.BoundingBox{MinLat: 40.0000001, MaxLat: 41.0, MinLng: -74.5, MaxLng: -73.5}
	detach2 := r.RegisterBounds(sameBox, (&recorder{}).send)
	defer detach2()

	if factory.calls() != 1 {
		t.Fatalf("factory called %d times for one key, want 1", factory.calls())
	}
	if r.BrokerCount() != 1 {
		t.Fatalf("broker count = %d, want 1", r.BrokerCount())
	}

	other := geo.BoundingBox{MinLat: 50.0, MaxLat: 51.0, MinLng: 10.0, MaxLng: 11.0}
	detach3 := r.RegisterBounds(other, (&recorder{}).send)
	defer detach3()

	if factory.calls() != 2 {
		t.Fatalf("factory called %d times for two keys, want 2", factory.calls())
	}
}

func TestRegistryReplacesDestroyedBroker(t *testing.T) {
	factory := &fakeFactory{}
	r := NewRegistry(factory.build, 50*time.Millisecond, nil)
	defer r.Close()

	detach := r.RegisterBounds(testBox, (&recorder{}).send)
	detach()

	waitFor(t, 2*time.Second, func() bool {
		_, stopped := factory.sources[0].counts()
		return stopped == 1
	})

	detach2 := r.RegisterBounds(testBox, (&recorder{}).send)
	defer detach2()

	if factory.calls() != 2 {
		t.Fatalf("factory called %d times, want fresh broker after destruction", factory.calls())
	}
	if r.BrokerCount() != 1 {
		t.Fatalf("broker count = %d, want 1 after replacement", r.BrokerCount())
	}
}

func TestDetachIsBoundToJoinedBrokerInstance(t *testing.T) {
	factory := &fakeFactory{}
	r := NewRegistry(factory.build, 50*time.Millisecond, nil)
	defer r.Close()

	staleDetach := r.RegisterBounds(testBox, (&recorder{}).send)
	staleDetach()
	waitFor(t, 2*time.Second, func() bool {
		_, stopped := factory.sources[0].counts()
		return stopped == 1
	})

	// A fresh broker now holds the key. Invoking the old detach again must
	// not touch it.
	liveDetach := r.RegisterBounds(testBox, (&recorder{}).send)
	defer liveDetach()

	staleDetach()
	time.Sleep(100 * time.Millisecond)
	if _, stopped := factory.sources[1].counts(); stopped != 0 {
		t.Fatal("stale detach tore down the replacement broker")
	}
}

func TestRegistryCloseDestroysEverything(t *testing.T) {
	factory := &fakeFactory{}
	r := NewRegistry(factory.build, time.Minute, nil)

	r.RegisterBounds(testBox, (&recorder{}).send)
	r.RegisterBounds(geo.BoundingBox{MinLat: 50, MaxLat: 51, MinLng: 10, MaxLng: 11}, (&recorder{}).send)

	r.Close()
	for i, src := range factory.sources {
		if _, stopped := src.counts(); stopped != 1 {
			t.Errorf("source %d not stopped on close", i)
		}
	}

	// Registrations after close are inert.
	detach := r.RegisterBounds(testBox, (&recorder{}).send)
	detach()
	if factory.calls() != 2 {
		t.Fatalf("factory called %d times, registration after close built a broker", factory.calls())
	}
}
