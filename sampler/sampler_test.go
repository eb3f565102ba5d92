package sampler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/czerwonk/netperf_monitor/probe"
	"github.com/czerwonk/netperf_monitor/series"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	mutex  sync.Mutex
	calls  int
	result probe.LatencyResult
	err    error
}

func (p *fakeProber) ProbeLatency(ctx context.Context) (probe.LatencyResult, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.calls++
	return p.result, p.err
}

func (p *fakeProber) callCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.calls
}

// fakeMeter reports fixed rates. failOn decides per upload call whether the
// cycle fails; afterUpload runs after every upload call.
type fakeMeter struct {
	down, up    float64
	uploads     int
	failOn      func(n int) bool
	afterUpload func(n int)
}

func (m *fakeMeter) SelectServer(ctx context.Context) error {
	return nil
}

func (m *fakeMeter) Download(ctx context.Context) (float64, error) {
	return m.down, nil
}

func (m *fakeMeter) Upload(ctx context.Context) (float64, error) {
	m.uploads++
	n := m.uploads
	if m.afterUpload != nil {
		defer m.afterUpload(n)
	}

	if m.failOn != nil && m.failOn(n) {
		return 0, errors.New("connection reset by peer")
	}

	return m.up, nil
}

func reachable(ms float64) probe.LatencyResult {
	return probe.LatencyResult{RTT: time.Duration(ms * float64(time.Millisecond)), Reachable: true}
}

func TestSamplerSuccessfulCycles(t *testing.T) {
	const cycles = 7

	store := series.NewStore()
	meter := &fakeMeter{down: 120_400_000, up: 50_100_000}
	s := New(store, &fakeProber{result: reachable(12)}, meter, WithInterval(time.Millisecond))
	meter.afterUpload = func(n int) {
		if n == cycles {
			s.Stop()
		}
	}

	s.Run()

	snap := store.Snapshot()
	require.Equal(t, cycles, snap.Len())
	assert.Len(t, snap.Index, cycles)
	assert.Len(t, snap.Latency, cycles)
	assert.Len(t, snap.Upload, cycles)
	assert.Len(t, snap.Download, cycles)
	for i := 0; i < cycles; i++ {
		assert.Equal(t, i+1, snap.Index[i])
		assert.InDelta(t, 12.0, snap.Latency[i], 1e-9)
		assert.InDelta(t, 50.1, snap.Upload[i], 1e-9)
		assert.InDelta(t, 120.4, snap.Download[i], 1e-9)
	}
	assert.Equal(t, Stats{Samples: cycles}, s.Stats())
}

func TestSamplerFailureAppendsNothing(t *testing.T) {
	store := series.NewStore()
	meter := &fakeMeter{
		down:   1_000_000,
		up:     1_000_000,
		failOn: func(n int) bool { return n%2 == 0 },
	}
	s := New(store, &fakeProber{result: reachable(5)}, meter, WithInterval(time.Millisecond))
	meter.afterUpload = func(n int) {
		if n == 6 {
			s.Stop()
		}
	}

	assert.NotPanics(t, s.Run)

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, Stats{Samples: 3, Failures: 3}, s.Stats())
	assert.Equal(t, []int{1, 2, 3}, store.Snapshot().Index)
}

func TestSamplerLatencyErrorSkipsThroughput(t *testing.T) {
	store := series.NewStore()
	meter := &fakeMeter{}
	prober := &fakeProber{err: errors.New("socket: operation not permitted")}
	s := New(store, prober, meter, WithInterval(time.Millisecond))

	go func() {
		assert.Eventually(t, func() bool { return prober.callCount() >= 3 }, time.Second, time.Millisecond)
		s.Stop()
	}()
	s.Run()

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, meter.uploads)
	assert.GreaterOrEqual(t, s.Stats().Failures, uint64(3))
}

func TestSamplerUnreachablePolicy(t *testing.T) {
	tests := []struct {
		name        string
		policy      UnreachablePolicy
		wantSamples int
	}{
		{
			name:        "zero",
			policy:      RecordZero,
			wantSamples: 4,
		},
		{
			name:        "skip",
			policy:      SkipSample,
			wantSamples: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := series.NewStore()
			meter := &fakeMeter{down: 2_000_000, up: 1_000_000}
			prober := &fakeProber{result: probe.LatencyResult{}}
			s := New(store, prober, meter, WithInterval(time.Millisecond), WithUnreachablePolicy(tt.policy))

			if tt.policy == SkipSample {
				go func() {
					assert.Eventually(t, func() bool { return prober.callCount() >= 4 }, time.Second, time.Millisecond)
					s.Stop()
				}()
			} else {
				meter.afterUpload = func(n int) {
					if n == 4 {
						s.Stop()
					}
				}
			}
			s.Run()

			snap := store.Snapshot()
			require.Equal(t, tt.wantSamples, snap.Len())
			for _, l := range snap.Latency {
				assert.Equal(t, 0.0, l)
			}
			if tt.wantSamples > 0 {
				last, ok := snap.Latest()
				require.True(t, ok)
				assert.False(t, last.Reachable)
				assert.InDelta(t, 2.0, last.DownloadMbps, 1e-9)
			}
		})
	}
}

func TestSamplerStopBeforeStart(t *testing.T) {
	store := series.NewStore()
	prober := &fakeProber{result: reachable(1)}
	s := New(store, prober, &fakeMeter{}, WithInterval(time.Hour))

	s.Stop()
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not terminate")
	}

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, prober.callCount())
}

func TestSamplerStopDuringSleep(t *testing.T) {
	store := series.NewStore()
	s := New(store, &fakeProber{result: reachable(1)}, &fakeMeter{up: 1, down: 1}, WithInterval(time.Hour))

	s.Start()
	s.Start()
	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not terminate while sleeping")
	}
	assert.Equal(t, 1, store.Len())
}

func TestSamplerWaitWithoutStart(t *testing.T) {
	s := New(series.NewStore(), &fakeProber{}, &fakeMeter{})
	s.Wait()
}

func TestSamplerSetInterval(t *testing.T) {
	s := New(series.NewStore(), &fakeProber{}, &fakeMeter{})
	assert.Equal(t, DefaultInterval, s.Interval())

	s.SetInterval(0)
	assert.Equal(t, DefaultInterval, s.Interval())

	s.SetInterval(time.Minute)
	assert.Equal(t, time.Minute, s.Interval())
}

func TestPolicyFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    UnreachablePolicy
		wantErr bool
	}{
		{"", RecordZero, false},
		{"zero", RecordZero, false},
		{"skip", SkipSample, false},
		{"marker", RecordZero, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := PolicyFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStageError(t *testing.T) {
	err := error(&stageError{stage: "upload", err: probe.ErrNoServer})

	assert.EqualError(t, err, "upload: no speedtest server selected")
	assert.ErrorIs(t, err, probe.ErrNoServer)
}

func TestSamplerRunOnlyOnce(t *testing.T) {
	store := series.NewStore()
	meter := &fakeMeter{up: 1, down: 1}
	s := New(store, &fakeProber{result: reachable(1)}, meter, WithInterval(time.Millisecond))
	meter.afterUpload = func(n int) {
		if n == 2 {
			s.Stop()
		}
	}

	s.Start()
	s.Wait()

	assert.NotPanics(t, s.Run)
	assert.NotPanics(t, s.Run)
	s.Start()
	s.Wait()

	assert.Equal(t, 2, store.Len())
}

func TestSamplerRunThenStart(t *testing.T) {
	store := series.NewStore()
	s := New(store, &fakeProber{result: reachable(1)}, &fakeMeter{}, WithInterval(time.Millisecond))

	s.Stop()
	assert.NotPanics(t, s.Run)
	assert.NotPanics(t, s.Start)
	s.Wait()

	assert.Equal(t, 0, store.Len())
}

func TestSamplerLogsFailedStage(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	meter := &fakeMeter{failOn: func(n int) bool { return true }}
	s := New(series.NewStore(), &fakeProber{result: reachable(1)}, meter, WithInterval(time.Millisecond))
	meter.afterUpload = func(n int) {
		s.Stop()
	}
	s.Run()

	var failures []*log.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel {
			failures = append(failures, e)
		}
	}

	require.Len(t, failures, 1)
	assert.Equal(t, "upload", failures[0].Data["stage"])
	assert.Equal(t, 1, failures[0].Data["cycle"])
	assert.Equal(t, "Error collecting data: connection reset by peer", failures[0].Message)
}
