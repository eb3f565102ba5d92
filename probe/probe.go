// Package probe measures latency and throughput. Both measurements are
// delegated to external libraries; this package only adapts them to small
// interfaces and normalizes units.
package probe

import (
	"context"
	"errors"
	"time"
)

// DefaultTarget is the host the latency probe sends echo requests to.
const DefaultTarget = "8.8.8.8"

var (
	// ErrNoServer is returned by throughput measurements issued before a
	// server was selected.
	ErrNoServer = errors.New("no speedtest server selected")

	// ErrNoAddress is returned when a target resolves to no usable address.
	ErrNoAddress = errors.New("no usable address for target")
)

// LatencyResult is the outcome of one echo probe. An unanswered probe is not
// an error: Reachable is false and RTT is zero.
type LatencyResult struct {
	RTT       time.Duration
	Reachable bool
}

// Millis returns the round trip time in milliseconds, 0 when unreachable.
func (r LatencyResult) Millis() float64 {
	if !r.Reachable {
		return 0
	}

	return Millis(r.RTT)
}

// LatencyProber measures round trip time to a fixed host.
type LatencyProber interface {
	// ProbeLatency sends one echo request. It returns an error only if the
	// probe could not be issued at all.
	ProbeLatency(ctx context.Context) (LatencyResult, error)
}

// ThroughputMeter measures upload and download throughput against a
// measurement server.
type ThroughputMeter interface {
	// SelectServer picks the best available server for the following
	// measurements.
	SelectServer(ctx context.Context) error

	// Download returns the measured download throughput in bits per second.
	Download(ctx context.Context) (float64, error)

	// Upload returns the measured upload throughput in bits per second.
	Upload(ctx context.Context) (float64, error)
}

// Millis converts a duration to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return d.Seconds() * 1000
}

// Mbps converts bits per second to megabits per second.
func Mbps(bitsPerSecond float64) float64 {
	return bitsPerSecond / 1_000_000
}
