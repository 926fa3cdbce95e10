package trigger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qtshock/qtshockd/config"
	"github.com/qtshock/qtshockd/internal/metrics"
)

// ErrNoDevice is returned when no device address is known.
var ErrNoDevice = errors.New("no QTShock device address")

// DeviceClient posts commands to the device's HTTP control API.
type DeviceClient struct {
	// Address returns the device host, e.g. "192.168.1.40".
	Address func(ctx context.Context) (string, error)
	Client  *http.Client
}

// NewDeviceClient returns a client for the address held in state,
// discovering it with resolver when state has none. resolver may be nil.
func NewDeviceClient(state *config.State, resolver Resolver, timeout time.Duration) *DeviceClient {
	return &DeviceClient{
		Address: func(ctx context.Context) (string, error) {
			if addr := state.DeviceAddress(); addr != "" {
				return addr, nil
			}
			if resolver == nil {
				return "", ErrNoDevice
			}
			addr, err := resolver.Resolve(ctx)
			if err != nil {
				return "", err
			}
			state.SetDeviceAddress(addr)
			return addr, nil
		},
		Client: &http.Client{Timeout: timeout},
	}
}

// Shock shocks at strength (1..99).
func (c *DeviceClient) Shock(ctx context.Context, shocker, strength int) error {
	return c.send(ctx, Shock, shocker, strength)
}

// Vibrate vibrates at strength (1..99).
func (c *DeviceClient) Vibrate(ctx context.Context, shocker, strength int) error {
	return c.send(ctx, Vibrate, shocker, strength)
}

// Beep beeps.
func (c *DeviceClient) Beep(ctx context.Context, shocker int) error {
	return c.send(ctx, Beep, shocker, 0)
}

func (c *DeviceClient) send(ctx context.Context, in Interaction, shocker, strength int) (err error) {
	defer func() {
		metrics.TriggerCallsTotal.WithLabelValues(in.String(), metrics.Outcome(err)).Inc()
	}()

	form := url.Values{"shocker": {strconv.Itoa(shocker)}}
	if in != Beep {
		if err := config.ValidateStrength(strength); err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
		form.Set("strength", strconv.Itoa(strength))
	}

	addr, err := c.Address(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deviceURL(addr, in.String()),
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: device answered %s", in, resp.Status)
	}
	return nil
}

// deviceURL builds the control URL for addr, which is a host name or an
// IPv4 or IPv6 address, optionally with a port. Bare IPv6 addresses are
// bracketed.
func deviceURL(addr, path string) string {
	host := addr
	if ip, err := netip.ParseAddr(strings.Trim(addr, "[]")); err == nil && ip.Is6() && !ip.Is4In6() {
		host = "[" + ip.String() + "]"
	}
	return (&url.URL{Scheme: "http", Host: host, Path: "/" + path}).String()
}
