package series

// Series is a view of the four sequences at one point in time. Callers must
// not modify the slices.
type Series struct {
	Index    []int
	Latency  []float64
	Upload   []float64
	Download []float64

	LastReachable bool
}

// Len returns the number of complete samples in the view. Sequences of
// unequal length (a torn read) are clamped to the shortest one.
func (s Series) Len() int {
	n := len(s.Index)
	for _, l := range []int{len(s.Latency), len(s.Upload), len(s.Download)} {
		if l < n {
			n = l
		}
	}

	return n
}

// Clamp returns a view in which every sequence has exactly Len() elements.
func (s Series) Clamp() Series {
	n := s.Len()

	return Series{
		Index:         s.Index[:n:n],
		Latency:       s.Latency[:n:n],
		Upload:        s.Upload[:n:n],
		Download:      s.Download[:n:n],
		LastReachable: s.LastReachable,
	}
}

// Latest returns the most recent complete sample. ok is false when the view
// is empty.
func (s Series) Latest() (sample Sample, ok bool) {
	n := s.Len()
	if n == 0 {
		return Sample{}, false
	}

	return Sample{
		LatencyMs:    s.Latency[n-1],
		UploadMbps:   s.Upload[n-1],
		DownloadMbps: s.Download[n-1],
		Reachable:    s.LastReachable,
	}, true
}
