package probe

import (
	"context"
	"fmt"
	"net"
)

// Resolver resolves a host to its IP addresses.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

type ipVersion uint8

const (
	ipv4 ipVersion = 4
	ipv6 ipVersion = 6
)

func (ipv ipVersion) String() string {
	return fmt.Sprintf("%d", ipv)
}

func getIPVersion(addr net.IPAddr) ipVersion {
	if addr.IP.To4() == nil {
		return ipv6
	}

	return ipv4
}

// target resolves the probed host to the address echo requests are sent to.
type target struct {
	host     string
	resolver Resolver

	// enabled IP versions, depending on which sockets could be bound
	v4, v6 bool
}

// address returns the first resolved address of an enabled IP version,
// preferring IPv4.
func (t *target) address(ctx context.Context) (*net.IPAddr, error) {
	addrs, err := t.resolver.LookupIPAddr(ctx, t.host)
	if err != nil {
		return nil, fmt.Errorf("error resolving target %s: %w", t.host, err)
	}

	return pickAddress(addrs, t.v4, t.v6, t.host)
}

func pickAddress(addrs []net.IPAddr, v4, v6 bool, host string) (*net.IPAddr, error) {
	var fallback *net.IPAddr
	for i := range addrs {
		switch getIPVersion(addrs[i]) {
		case ipv4:
			if v4 {
				return &addrs[i], nil
			}
		case ipv6:
			if v6 && fallback == nil {
				fallback = &addrs[i]
			}
		}
	}

	if fallback != nil {
		return fallback, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoAddress, host)
}

// NewResolver returns the default resolver, or one that sends all queries to
// nameserver if it is set.
func NewResolver(nameserver string) *net.Resolver {
	if nameserver == "" {
		return net.DefaultResolver
	}

	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		nameserver = net.JoinHostPort(nameserver, "53")
	}
	dialer := func(ctx context.Context, network, address string) (net.Conn, error) {
		d := net.Dialer{}

		return d.DialContext(ctx, "udp", nameserver)
	}

	return &net.Resolver{PreferGo: true, Dial: dialer}
}
