package trigger

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func testResolver(entries []*mdns.ServiceEntry, lookup func(context.Context, string) ([]string, error)) *MDNSResolver {
	r := NewMDNSResolver("qtshock", 0)
	r.query = func(p *mdns.QueryParam) error {
		for _, e := range entries {
			p.Entries <- e
		}
		return nil
	}
	r.lookup = lookup
	return r
}

func noLookup(t *testing.T) func(context.Context, string) ([]string, error) {
	return func(context.Context, string) ([]string, error) {
		t.Error("unexpected system lookup")
		return nil, errors.New("unexpected")
	}
}

func TestMDNSResolverBrowse(t *testing.T) {
	entries := []*mdns.ServiceEntry{
		{Host: "printer.local.", AddrV4: net.IPv4(192, 168, 1, 9)},
		{Host: "QTShock.local.", AddrV4: net.IPv4(192, 168, 1, 40)},
	}
	r := testResolver(entries, noLookup(t))

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "192.168.1.40" {
		t.Errorf("Resolve() = %q, want 192.168.1.40", got)
	}
}

func TestMDNSResolverFallback(t *testing.T) {
	var asked string
	r := testResolver(nil, func(_ context.Context, host string) ([]string, error) {
		asked = host
		return []string{"fe80::1", "192.168.1.41"}, nil
	})

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if asked != "qtshock.local" {
		t.Errorf("looked up %q, want qtshock.local", asked)
	}
	if got != "192.168.1.41" {
		t.Errorf("Resolve() = %q, want the IPv4 address", got)
	}
}

func TestMDNSResolverNotFound(t *testing.T) {
	r := testResolver(nil, func(context.Context, string) ([]string, error) {
		return nil, errors.New("no such host")
	})
	if _, err := r.Resolve(context.Background()); err == nil {
		t.Error("Resolve() succeeded, want error")
	}
}
