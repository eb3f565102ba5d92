// Package sampler runs the background task that periodically measures
// latency and throughput and appends the results to a series.Store.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/czerwonk/netperf_monitor/probe"
	"github.com/czerwonk/netperf_monitor/series"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultInterval is the pause between two sampling cycles.
	DefaultInterval = 5 * time.Second

	// DefaultTimeout bounds every single measurement call.
	DefaultTimeout = 60 * time.Second
)

// UnreachablePolicy decides what to do with a cycle whose latency probe got
// no reply.
type UnreachablePolicy int

const (
	// RecordZero stores the sample with a latency of 0.
	RecordZero UnreachablePolicy = iota

	// SkipSample discards the cycle like any other measurement failure.
	SkipSample
)

// PolicyFromString parses "zero" or "skip".
func PolicyFromString(s string) (UnreachablePolicy, error) {
	switch s {
	case "", "zero":
		return RecordZero, nil
	case "skip":
		return SkipSample, nil
	default:
		return RecordZero, fmt.Errorf("invalid unreachable policy %q", s)
	}
}

// Stats counts the outcome of sampling cycles.
type Stats struct {
	Samples  uint64
	Failures uint64
}

// Sampler is the sole writer of a series.Store.
type Sampler struct {
	store      *series.Store
	latency    probe.LatencyProber
	throughput probe.ThroughputMeter

	interval atomic.Int64
	timeout  time.Duration
	policy   UnreachablePolicy

	samples  atomic.Uint64
	failures atomic.Uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
	started  atomic.Bool
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithInterval sets the pause between cycles.
func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		s.SetInterval(d)
	}
}

// WithTimeout sets the timeout of every measurement call.
func WithTimeout(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithUnreachablePolicy sets the handling of unanswered latency probes.
func WithUnreachablePolicy(p UnreachablePolicy) Option {
	return func(s *Sampler) {
		s.policy = p
	}
}

// New creates a sampler. It does not start sampling.
func New(store *series.Store, latency probe.LatencyProber, throughput probe.ThroughputMeter, opts ...Option) *Sampler {
	s := &Sampler{
		store:      store,
		latency:    latency,
		throughput: throughput,
		timeout:    DefaultTimeout,
		policy:     RecordZero,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	s.interval.Store(int64(DefaultInterval))

	for _, o := range opts {
		o(s)
	}

	return s
}

// SetInterval changes the pause between cycles, effective from the next one.
func (s *Sampler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}

	s.interval.Store(int64(d))
}

// Interval returns the current pause between cycles.
func (s *Sampler) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// Stats returns the number of successful and failed cycles so far.
func (s *Sampler) Stats() Stats {
	return Stats{
		Samples:  s.samples.Load(),
		Failures: s.failures.Load(),
	}
}

// Start runs the sampling loop in its own goroutine. Calling Start or Run
// more than once has no effect.
func (s *Sampler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	go s.loop()
}

// Stop requests the loop to terminate. A measurement in flight is not
// interrupted; the loop exits once it completed.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Wait blocks until the loop has returned. It returns immediately if the
// sampler was never started.
func (s *Sampler) Wait() {
	if !s.started.Load() {
		return
	}

	<-s.done
}

// Run executes the sampling loop in the calling goroutine until Stop is
// called. It returns immediately if the loop is already running or has run.
func (s *Sampler) Run() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	s.loop()
}

func (s *Sampler) loop() {
	defer close(s.done)

	log.Infof("Starting sampler (interval=%s, timeout=%s)", s.Interval(), s.timeout)
	for cycle := 1; !s.stopped(); cycle++ {
		s.runCycle(cycle)

		if !s.sleep(s.Interval()) {
			break
		}
	}
	log.Infoln("Sampler stopped")
}

func (s *Sampler) runCycle(cycle int) {
	sample, err := s.measure()
	if err != nil {
		s.failures.Add(1)
		fields := log.Fields{"cycle": cycle}
		var se *stageError
		if errors.As(err, &se) {
			fields["stage"] = se.stage
			err = se.err
		}
		log.WithFields(fields).Warnf("Error collecting data: %v", err)
		return
	}

	pos := s.store.Append(sample)
	s.samples.Add(1)
	log.WithFields(log.Fields{
		"cycle":    cycle,
		"index":    pos,
		"latency":  sample.LatencyMs,
		"upload":   sample.UploadMbps,
		"download": sample.DownloadMbps,
	}).Debugln("sample recorded")
}

// measure runs one full measurement. Any error discards the whole sample.
func (s *Sampler) measure() (series.Sample, error) {
	lat, err := s.probeLatency()
	if err != nil {
		return series.Sample{}, &stageError{stage: "latency", err: err}
	}
	if !lat.Reachable && s.policy == SkipSample {
		return series.Sample{}, &stageError{stage: "latency", err: errUnreachable}
	}

	if err := s.call(s.throughput.SelectServer); err != nil {
		return series.Sample{}, &stageError{stage: "server selection", err: err}
	}

	down, err := s.rate(s.throughput.Download)
	if err != nil {
		return series.Sample{}, &stageError{stage: "download", err: err}
	}

	up, err := s.rate(s.throughput.Upload)
	if err != nil {
		return series.Sample{}, &stageError{stage: "upload", err: err}
	}

	return series.Sample{
		LatencyMs:    lat.Millis(),
		UploadMbps:   probe.Mbps(up),
		DownloadMbps: probe.Mbps(down),
		Reachable:    lat.Reachable,
	}, nil
}

func (s *Sampler) probeLatency() (probe.LatencyResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.latency.ProbeLatency(ctx)
}

func (s *Sampler) call(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return fn(ctx)
}

func (s *Sampler) rate(fn func(context.Context) (float64, error)) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return fn(ctx)
}

func (s *Sampler) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// sleep waits for d and reports whether the loop should continue.
func (s *Sampler) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-s.stop:
		return false
	}
}
