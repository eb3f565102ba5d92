// Package series holds the in-memory time series shared between the sampler
// and the dashboard.
package series

import "sync"

// Sample is one correlated measurement produced by a sampling cycle.
type Sample struct {
	LatencyMs    float64
	UploadMbps   float64
	DownloadMbps float64

	// Reachable is false when the latency probe got no reply and LatencyMs
	// was recorded as 0.
	Reachable bool
}

// Store keeps four parallel, append-only sequences. It has exactly one
// writer (the sampler) and any number of readers.
type Store struct {
	mutex sync.RWMutex

	index    []int
	latency  []float64
	upload   []float64
	download []float64

	lastReachable bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds one sample and its 1-based position to all sequences as a
// single unit and returns the position.
func (s *Store) Append(sample Sample) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.latency = append(s.latency, sample.LatencyMs)
	s.upload = append(s.upload, sample.UploadMbps)
	s.download = append(s.download, sample.DownloadMbps)
	s.index = append(s.index, len(s.latency))
	s.lastReachable = sample.Reachable

	return len(s.latency)
}

// Len returns the number of stored samples.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.index)
}

// Snapshot returns a read-only view of the current sequences. The returned
// slices share memory with the store but are capped at their length, so later
// appends never become visible through them.
func (s *Store) Snapshot() Series {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return Series{
		Index:         s.index[:len(s.index):len(s.index)],
		Latency:       s.latency[:len(s.latency):len(s.latency)],
		Upload:        s.upload[:len(s.upload):len(s.upload)],
		Download:      s.download[:len(s.download):len(s.download)],
		LastReachable: s.lastReachable,
	}
}
