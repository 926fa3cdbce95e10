package trigger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/qtshock/qtshockd/config"
	"github.com/qtshock/qtshockd/internal/metrics"
)

type deviceRequest struct {
	Path     string
	Shocker  string
	Strength string
}

type fakeDevice struct {
	*httptest.Server
	mu       sync.Mutex
	requests []deviceRequest
	status   int
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	d := &fakeDevice{status: http.StatusOK}
	d.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		d.mu.Lock()
		d.requests = append(d.requests, deviceRequest{r.URL.Path, r.PostForm.Get("shocker"), r.PostForm.Get("strength")})
		status := d.status
		d.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(d.Close)
	return d
}

func (d *fakeDevice) Host() string {
	return strings.TrimPrefix(d.URL, "http://")
}

func (d *fakeDevice) Requests() []deviceRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]deviceRequest(nil), d.requests...)
}

func TestDeviceClientCommands(t *testing.T) {
	dev := newFakeDevice(t)
	state := config.NewState()
	state.SetDeviceAddress(dev.Host())
	c := NewDeviceClient(state, nil, time.Second)
	ctx := context.Background()

	if err := c.Shock(ctx, 0, 10); err != nil {
		t.Fatalf("Shock() error = %v", err)
	}
	if err := c.Vibrate(ctx, 1, 80); err != nil {
		t.Fatalf("Vibrate() error = %v", err)
	}
	if err := c.Beep(ctx, 2); err != nil {
		t.Fatalf("Beep() error = %v", err)
	}

	want := []deviceRequest{
		{"/shock", "0", "10"},
		{"/vibrate", "1", "80"},
		{"/beep", "2", ""},
	}
	got := dev.Requests()
	if len(got) != len(want) {
		t.Fatalf("got %d requests, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDeviceURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.168.1.40", "http://192.168.1.40/shock"},
		{"192.168.1.40:8080", "http://192.168.1.40:8080/shock"},
		{"qtshock.local", "http://qtshock.local/shock"},
		{"fd00::40", "http://[fd00::40]/shock"},
		{"[fd00::40]", "http://[fd00::40]/shock"},
		{"[fd00::40]:8080", "http://[fd00::40]:8080/shock"},
		{"fe80::1%eth0", "http://[fe80::1%25eth0]/shock"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := deviceURL(tt.addr, "shock"); got != tt.want {
				t.Errorf("deviceURL(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}

// hostRecorder answers every request and keeps the URL hosts it saw.
type hostRecorder struct {
	mu    sync.Mutex
	hosts []string
}

func (h *hostRecorder) RoundTrip(r *http.Request) (*http.Response, error) {
	h.mu.Lock()
	h.hosts = append(h.hosts, r.URL.Host)
	h.mu.Unlock()
	return &http.Response{StatusCode: http.StatusOK, Status: "200 OK", Body: http.NoBody, Request: r}, nil
}

func TestDeviceClientIPv6Address(t *testing.T) {
	rt := &hostRecorder{}
	c := &DeviceClient{
		Address: func(context.Context) (string, error) { return "fd00::40", nil },
		Client:  &http.Client{Transport: rt},
	}

	if err := c.Beep(context.Background(), 0); err != nil {
		t.Fatalf("Beep() error = %v", err)
	}
	if len(rt.hosts) != 1 || rt.hosts[0] != "[fd00::40]" {
		t.Errorf("request hosts = %v, want [[fd00::40]]", rt.hosts)
	}
}

func TestDeviceClientStrengthRange(t *testing.T) {
	dev := newFakeDevice(t)
	state := config.NewState()
	state.SetDeviceAddress(dev.Host())
	c := NewDeviceClient(state, nil, time.Second)

	for _, strength := range []int{0, 100, -1} {
		if err := c.Shock(context.Background(), 0, strength); err == nil {
			t.Errorf("Shock(strength=%d) succeeded, want error", strength)
		}
	}
	if n := len(dev.Requests()); n != 0 {
		t.Errorf("%d requests sent for invalid strengths", n)
	}
}

func TestDeviceClientErrorStatus(t *testing.T) {
	dev := newFakeDevice(t)
	dev.status = http.StatusInternalServerError
	state := config.NewState()
	state.SetDeviceAddress(dev.Host())
	c := NewDeviceClient(state, nil, time.Second)

	failedBefore := testutil.ToFloat64(metrics.TriggerCallsTotal.WithLabelValues("beep", "failed"))
	err := c.Beep(context.Background(), 0)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("Beep() error = %v, want status error", err)
	}
	if got := testutil.ToFloat64(metrics.TriggerCallsTotal.WithLabelValues("beep", "failed")); got != failedBefore+1 {
		t.Errorf("failed beep counter = %v, want %v", got, failedBefore+1)
	}
}

func TestDeviceClientResolvesAddress(t *testing.T) {
	dev := newFakeDevice(t)
	state := config.NewState()
	calls := 0
	resolver := ResolverFunc(func(context.Context) (string, error) {
		calls++
		return dev.Host(), nil
	})
	c := NewDeviceClient(state, resolver, time.Second)

	for i := 0; i < 2; i++ {
		if err := c.Beep(context.Background(), 0); err != nil {
			t.Fatalf("Beep() error = %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("resolver called %d times, want 1", calls)
	}
	if state.DeviceAddress() != dev.Host() {
		t.Errorf("address not cached: %q", state.DeviceAddress())
	}
}

func TestDeviceClientNoAddress(t *testing.T) {
	c := NewDeviceClient(config.NewState(), nil, time.Second)
	if err := c.Beep(context.Background(), 0); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Beep() error = %v, want ErrNoDevice", err)
	}
}

type call struct {
	Shocker     int
	Interaction Interaction
	Strength    int
}

// recordingDevice implements Device and Triggerer.
type recordingDevice struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (d *recordingDevice) record(c call) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, c)
	return d.err
}

func (d *recordingDevice) Shock(_ context.Context, shocker, strength int) error {
	return d.record(call{shocker, Shock, strength})
}

func (d *recordingDevice) Vibrate(_ context.Context, shocker, strength int) error {
	return d.record(call{shocker, Vibrate, strength})
}

func (d *recordingDevice) Beep(_ context.Context, shocker int) error {
	return d.record(call{shocker, Beep, 0})
}

func (d *recordingDevice) Trigger(_ context.Context, shocker int, in Interaction) error {
	return d.record(call{Shocker: shocker, Interaction: in})
}

func (d *recordingDevice) Calls() []call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]call(nil), d.calls...)
}

func TestDispatcherUsesConfiguredStrengths(t *testing.T) {
	dev := &recordingDevice{}
	state := config.NewState()
	state.SetShockStrength(25)
	state.SetVibrateStrength(60)
	d := &Dispatcher{Device: dev, State: state}
	ctx := context.Background()

	for _, in := range []Interaction{Shock, Vibrate, Beep} {
		if err := d.Trigger(ctx, 1, in); err != nil {
			t.Fatalf("Trigger(%s) error = %v", in, err)
		}
	}

	want := []call{{1, Shock, 25}, {1, Vibrate, 60}, {1, Beep, 0}}
	got := dev.Calls()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseInteraction(t *testing.T) {
	for _, s := range []string{"shock", "SHOCK", "Vibrate", "beep"} {
		if _, err := ParseInteraction(s); err != nil {
			t.Errorf("ParseInteraction(%q) error = %v", s, err)
		}
	}
	if _, err := ParseInteraction("zap"); err == nil {
		t.Error("ParseInteraction(zap) succeeded")
	}
}
