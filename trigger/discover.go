package trigger

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// Resolver finds the device address.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(ctx context.Context) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context) (string, error) { return f(ctx) }

// MDNSResolver finds <Hostname>.local by browsing Service over mDNS and
// falls back to the system resolver.
type MDNSResolver struct {
	Hostname string
	Service  string
	Timeout  time.Duration

	query  func(*mdns.QueryParam) error
	lookup func(ctx context.Context, host string) ([]string, error)
}

// NewMDNSResolver returns a resolver for hostname.local advertising HTTP.
func NewMDNSResolver(hostname string, timeout time.Duration) *MDNSResolver {
	return &MDNSResolver{
		Hostname: hostname,
		Service:  "_http._tcp",
		Timeout:  timeout,
		query:    mdns.Query,
		lookup:   net.DefaultResolver.LookupHost,
	}
}

func (r *MDNSResolver) host() string {
	return strings.TrimSuffix(r.Hostname, ".local") + ".local"
}

// Resolve returns the device IP, preferring IPv4.
func (r *MDNSResolver) Resolve(ctx context.Context) (string, error) {
	host := r.host()

	if ip := r.browse(host); ip != nil {
		return ip.String(), nil
	}

	addrs, err := r.lookup(ctx, host)
	if err != nil {
		return "", fmt.Errorf("failed to find a QTShock on the network: %w", err)
	}
	if ip := preferV4(addrs); ip != "" {
		return ip, nil
	}
	return "", fmt.Errorf("failed to find a QTShock on the network: no address for %s", host)
}

func (r *MDNSResolver) browse(host string) net.IP {
	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(chan net.IP, 1)

	go func() {
		var ip net.IP
		for e := range entries {
			if ip == nil {
				ip = matchEntry(e, host)
			}
		}
		found <- ip
	}()

	params := mdns.DefaultParams(r.Service)
	params.Entries = entries
	if r.Timeout > 0 {
		params.Timeout = r.Timeout
	}
	_ = r.query(params)
	close(entries)

	return <-found
}

func matchEntry(e *mdns.ServiceEntry, host string) net.IP {
	if !strings.EqualFold(strings.TrimSuffix(e.Host, "."), host) {
		return nil
	}
	if e.AddrV4 != nil {
		return e.AddrV4
	}
	return e.AddrV6
}

func preferV4(addrs []string) string {
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a
		}
	}
	if len(addrs) > 0 {
		return addrs[0]
	}
	return ""
}
