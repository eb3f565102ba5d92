package probe

import (
	"context"
	"fmt"
	"sync"

	"github.com/showwin/speedtest-go/speedtest"
	log "github.com/sirupsen/logrus"
)

// SpeedtestMeter measures throughput against speedtest.net servers.
type SpeedtestMeter struct {
	candidates int

	// fetch returns the server list sorted by distance, ping measures the
	// latency of one server into its Latency field.
	fetch func(ctx context.Context) (speedtest.Servers, error)
	ping  func(ctx context.Context, s *speedtest.Server) error

	mutex  sync.Mutex
	server *speedtest.Server
}

// NewSpeedtestMeter returns a meter which pings the candidates nearest
// servers when selecting the best one.
func NewSpeedtestMeter(candidates int) *SpeedtestMeter {
	if candidates < 1 {
		candidates = 1
	}

	client := speedtest.New()

	return &SpeedtestMeter{
		candidates: candidates,
		fetch:      client.FetchServerListContext,
		ping: func(ctx context.Context, s *speedtest.Server) error {
			return s.PingTestContext(ctx, nil)
		},
	}
}

// SelectServer implements ThroughputMeter. It pings the nearest candidates
// and keeps the one with the lowest latency.
func (m *SpeedtestMeter) SelectServer(ctx context.Context) error {
	servers, err := m.fetch(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch speedtest servers: %w", err)
	}

	var best *speedtest.Server
	for _, s := range servers[:min(m.candidates, len(servers))] {
		if err := m.ping(ctx, s); err != nil {
			log.Debugf("skipping speedtest server %s (%s): %v", s.Name, s.Sponsor, err)
			continue
		}

		if best == nil || s.Latency < best.Latency {
			best = s
		}
	}

	if best == nil {
		return ErrNoServer
	}

	log.Debugf("selected speedtest server %s (%s, %s) latency=%s", best.Name, best.Sponsor, best.Country, best.Latency)

	m.mutex.Lock()
	m.server = best
	m.mutex.Unlock()

	return nil
}

// Download implements ThroughputMeter.
func (m *SpeedtestMeter) Download(ctx context.Context) (float64, error) {
	s, err := m.selected()
	if err != nil {
		return 0, err
	}
	defer s.Context.Reset()

	if err := s.DownloadTestContext(ctx); err != nil {
		return 0, fmt.Errorf("download test against %s failed: %w", s.Host, err)
	}

	return float64(s.DLSpeed) * 8, nil
}

// Upload implements ThroughputMeter.
func (m *SpeedtestMeter) Upload(ctx context.Context) (float64, error) {
	s, err := m.selected()
	if err != nil {
		return 0, err
	}
	defer s.Context.Reset()

	if err := s.UploadTestContext(ctx); err != nil {
		return 0, fmt.Errorf("upload test against %s failed: %w", s.Host, err)
	}

	return float64(s.ULSpeed) * 8, nil
}

func (m *SpeedtestMeter) selected() (*speedtest.Server, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.server == nil {
		return nil, ErrNoServer
	}

	return m.server, nil
}
