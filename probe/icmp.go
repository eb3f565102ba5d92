package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	ping "github.com/digineo/go-ping"
	log "github.com/sirupsen/logrus"
)

// pinger is the subset of *ping.Pinger used by ICMPProber.
type pinger interface {
	PingContext(ctx context.Context, destination *net.IPAddr) (time.Duration, error)
	Close()
}

// ICMPProber measures latency with a single ICMP echo request per probe.
type ICMPProber struct {
	pinger  pinger
	target  *target
	timeout time.Duration
}

// ICMPOptions configures an ICMPProber.
type ICMPOptions struct {
	Host        string
	Timeout     time.Duration
	PayloadSize uint16
	Resolver    Resolver
}

// NewICMPProber opens the raw ICMP sockets for every IP version available on
// this host. The caller must Close the prober.
func NewICMPProber(opts ICMPOptions) (*ICMPProber, error) {
	var bind4, bind6 string
	if ln, err := net.Listen("tcp4", "127.0.0.1:0"); err == nil {
		// ipv4 enabled
		ln.Close()
		bind4 = "0.0.0.0"
	}
	if ln, err := net.Listen("tcp6", "[::1]:0"); err == nil {
		// ipv6 enabled
		ln.Close()
		bind6 = "::"
	}

	p, err := ping.New(bind4, bind6)
	if err != nil {
		return nil, fmt.Errorf("cannot open icmp sockets: %w", err)
	}

	if opts.PayloadSize > 0 && p.PayloadSize() != opts.PayloadSize {
		p.SetPayloadSize(opts.PayloadSize)
	}

	log.Infof("Created ICMP prober (target=%s, timeout=%s, size=%d)", opts.Host, opts.Timeout, p.PayloadSize())

	return newICMPProber(p, opts, bind4 != "", bind6 != ""), nil
}

func newICMPProber(p pinger, opts ICMPOptions, v4, v6 bool) *ICMPProber {
	if opts.Host == "" {
		opts.Host = DefaultTarget
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}

	return &ICMPProber{
		pinger:  p,
		timeout: opts.Timeout,
		target: &target{
			host:     opts.Host,
			resolver: opts.Resolver,
			v4:       v4,
			v6:       v6,
		},
	}
}

// ProbeLatency implements LatencyProber.
func (p *ICMPProber) ProbeLatency(ctx context.Context) (LatencyResult, error) {
	addr, err := p.target.address(ctx)
	if err != nil {
		return LatencyResult{}, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	rtt, err := p.pinger.PingContext(ctx, addr)
	if err != nil {
		if isTimeout(err) {
			log.Debugf("no echo reply from %s (%v)", p.target.host, addr)
			return LatencyResult{}, nil
		}

		return LatencyResult{}, fmt.Errorf("could not ping %s: %w", p.target.host, err)
	}

	return LatencyResult{RTT: rtt, Reachable: true}, nil
}

// Close releases the ICMP sockets.
func (p *ICMPProber) Close() {
	p.pinger.Close()
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
