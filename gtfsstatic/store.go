package gtfsstatic

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store loads and caches ScheduleData per feed family. The cache and the
// in-flight load tracking are shared across every region broker in the
// process so a feed family is downloaded and parsed at most once.
type Store struct {
	dataDir     string
	archiveURLs map[Family]string

	mu       sync.Mutex
	loaded   map[Family]*ScheduleData
	inflight map[Family]*loadCall
}

// loadCall is one in-flight load; concurrent callers for the same family
// wait on done instead of starting a duplicate load.
type loadCall struct {
	done chan struct{}
	data *ScheduleData
	err  error
}

// NewStore creates a Store rooted at dataDir. Archive URLs default to the
// published feeds; overrides replaces the URL for the given families.
func NewStore(dataDir string, overrides map[Family]string) *Store {
	urls := make(map[Family]string, len(defaultArchiveURLs))
	for fam, url := range defaultArchiveURLs {
		urls[fam] = url
	}
	for fam, url := range overrides {
		urls[fam] = url
	}
	return &Store{
		dataDir:     dataDir,
		archiveURLs: urls,
		loaded:      map[Family]*ScheduleData{},
		inflight:    map[Family]*loadCall{},
	}
}

// Load returns the schedule data for a feed family, loading it on first use.
// Concurrent calls during an in-flight load share that load's result.
func (s *Store) Load(family Family) (*ScheduleData, error) {
	s.mu.Lock()
	if data, ok := s.loaded[family]; ok {
		s.mu.Unlock()
		return data, nil
	}
	if call, ok := s.inflight[family]; ok {
		s.mu.Unlock()
		<-call.done
		return call.data, call.err
	}
	call := &loadCall{done: make(chan struct{})}
	s.inflight[family] = call
	s.mu.Unlock()

	call.data, call.err = s.load(family)

	s.mu.Lock()
	if call.err == nil {
		s.loaded[family] = call.data
	}
	delete(s.inflight, family)
	s.mu.Unlock()
	close(call.done)
	return call.data, call.err
}

func (s *Store) load(family Family) (*ScheduleData, error) {
	start := time.Now()
	dir := filepath.Join(s.dataDir, string(family))
	if err := s.ensureFiles(family, dir); err != nil {
		return nil, err
	}

	data := &ScheduleData{Family: family}
	var err error
	if data.Stops, err = parseFile(dir, "stops.txt", parseStops); err != nil {
		return nil, err
	}
	if data.Shapes, err = parseFile(dir, "shapes.txt", parseShapes); err != nil {
		return nil, err
	}
	if data.StopTimes, err = parseFile(dir, "stop_times.txt", parseStopTimes); err != nil {
		return nil, err
	}
	if data.Trips, err = parseFile(dir, "trips.txt", parseTrips); err != nil {
		return nil, err
	}
	if data.Routes, err = parseFile(dir, "routes.txt", parseRoutes); err != nil {
		return nil, err
	}

	log.Printf("gtfsstatic: loaded %s (%d stops, %d shapes, %d trips, %d routes) in %s",
		family, len(data.Stops), len(data.Shapes), len(data.Trips), len(data.Routes), time.Since(start).Round(time.Millisecond))
	return data, nil
}

func parseFile[T any](dir, name string, parse func(r io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()
	out, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("parse %s: %w", name, err)
	}
	return out, nil
}
