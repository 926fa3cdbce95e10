package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qtshock/qtshockd/config"
	"github.com/qtshock/qtshockd/pkg/log"
	"github.com/qtshock/qtshockd/pkg/options"
	"github.com/qtshock/qtshockd/progress"
	"github.com/qtshock/qtshockd/trigger"
)

type fakeFlasher struct {
	mu       sync.Mutex
	endpoint string
	source   string
	ctxErr   error
	panics   bool
}

func (f *fakeFlasher) ListUSBEndpoints() string {
	return `<option value="COM3">COM3 - CP2102 (10C4:EA60)</option>`
}

func (f *fakeFlasher) FlashDeviceFirmware(ctx context.Context, endpoint, source string) string {
	if f.panics {
		panic("flasher exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoint, f.source, f.ctxErr = endpoint, source, ctx.Err()
	return "<g>Successfully flashed firmware!</g>"
}

func (f *fakeFlasher) Got() (endpoint, source string, ctxErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoint, f.source, f.ctxErr
}

type call struct {
	shocker int
	in      trigger.Interaction
}

type fakeTrigger struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeTrigger) Trigger(_ context.Context, shocker int, in trigger.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{shocker, in})
	return f.err
}

func (f *fakeTrigger) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeTrigger) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fixture struct {
	srv     *httptest.Server
	flasher *fakeFlasher
	trigger *fakeTrigger
	state   *config.State
	broker  *progress.Broker
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		flasher: &fakeFlasher{},
		trigger: &fakeTrigger{},
		state:   config.NewState(),
		broker:  progress.NewBroker(8),
		logs:    logs,
	}
	s := New(options.NewHTTPOptions(), Config{
		Flasher: f.flasher,
		Broker:  f.broker,
		Trigger: f.trigger,
		State:   f.state,
		Logger:  log.New(zap.New(core)),
	})
	f.srv = httptest.NewServer(s.Handler)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(b)
}

func TestEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/endpoints", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(body, `value="COM3"`) {
		t.Errorf("body = %q", body)
	}
}

func TestFlash(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/flash", `{"endpoint":"COM3","source":"local"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var out FlashResponse
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatal(err)
	}
	if out.Message != "<g>Successfully flashed firmware!</g>" {
		t.Errorf("message = %q", out.Message)
	}
	if ep, src, ctxErr := f.flasher.Got(); ep != "COM3" || src != "local" || ctxErr != nil {
		t.Errorf("flasher got %q, %q, %v", ep, src, ctxErr)
	}
}

func TestFlashBadBody(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/flash", `{"endpoint":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, `"error"`) {
		t.Errorf("body = %q", body)
	}
	if ep, _, _ := f.flasher.Got(); ep != "" {
		t.Error("flasher was called")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/api/flash"},
		{http.MethodPost, "/api/state"},
		{http.MethodGet, "/api/strength/vibrate"},
		{http.MethodDelete, "/api/endpoints"},
	} {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, body := f.do(t, tt.method, tt.path, "")
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", resp.StatusCode)
			}
			if !strings.Contains(body, `"error"`) {
				t.Errorf("body = %q", body)
			}
		})
	}
	if ep, _, _ := f.flasher.Got(); ep != "" {
		t.Error("flasher was called")
	}

	resp, _ := f.do(t, http.MethodGet, "/api/nothing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", resp.StatusCode)
	}
}

func TestStrength(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		status  int
		shock   int
		vibrate int
	}{
		{"shock", "/api/strength/shock", `{"strength":25}`, http.StatusOK, 25, 80},
		{"vibrate", "/api/strength/vibrate", `{"strength":99}`, http.StatusOK, 10, 99},
		{"too low", "/api/strength/shock", `{"strength":0}`, http.StatusBadRequest, 10, 80},
		{"too high", "/api/strength/vibrate", `{"strength":100}`, http.StatusBadRequest, 10, 80},
		{"unknown kind", "/api/strength/beep", `{"strength":20}`, http.StatusBadRequest, 10, 80},
		{"bad body", "/api/strength/shock", `nope`, http.StatusBadRequest, 10, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			resp, body := f.do(t, http.MethodPut, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d: %s", resp.StatusCode, body)
			}
			if got := f.state.ShockStrength(); got != tt.shock {
				t.Errorf("shock = %d, want %d", got, tt.shock)
			}
			if got := f.state.VibrateStrength(); got != tt.vibrate {
				t.Errorf("vibrate = %d, want %d", got, tt.vibrate)
			}
		})
	}
}

func TestState(t *testing.T) {
	f := newFixture(t)
	f.state.SetDeviceAddress("192.168.1.40")

	_, body := f.do(t, http.MethodGet, "/api/state", "")
	var snap config.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		t.Fatal(err)
	}
	want := config.Snapshot{ShockStrength: 10, VibrateStrength: 80, DeviceAddress: "192.168.1.40"}
	if snap != want {
		t.Errorf("snapshot = %+v, want %+v", snap, want)
	}
}

func TestTrigger(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/trigger/vibrate?shocker=2", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	resp, _ = f.do(t, http.MethodPost, "/api/trigger/Beep", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	want := []call{{2, trigger.Vibrate}, {0, trigger.Beep}}
	if diff := cmp.Diff(want, f.trigger.Calls(), cmp.AllowUnexported(call{})); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestTriggerErrors(t *testing.T) {
	f := newFixture(t)

	if resp, _ := f.do(t, http.MethodPost, "/api/trigger/tickle", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown interaction status = %d", resp.StatusCode)
	}
	if resp, _ := f.do(t, http.MethodPost, "/api/trigger/shock?shocker=-1", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad shocker status = %d", resp.StatusCode)
	}
	if calls := f.trigger.Calls(); len(calls) != 0 {
		t.Errorf("calls = %+v", calls)
	}

	f.trigger.Fail(errors.New("device answered 500 Internal Server Error"))
	resp, body := f.do(t, http.MethodPost, "/api/trigger/shock", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "device answered 500") {
		t.Errorf("body = %q", body)
	}
}

func TestCORS(t *testing.T) {
	f := newFixture(t)

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/api/state", nil)
	req.Header.Set("Origin", "http://localhost:1420")
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRecovery(t *testing.T) {
	f := newFixture(t)
	f.flasher.panics = true

	resp, _ := f.do(t, http.MethodPost, "/api/flash", `{"endpoint":"COM3","source":"server"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if f.logs.FilterMessage("Recovered from panic").Len() != 1 {
		t.Error("panic not logged")
	}
}

func TestAccessLog(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/api/state", "")
	entries := f.logs.Filter(func(e observer.LoggedEntry) bool {
		return e.LoggerName == "http.access"
	}).All()
	if len(entries) != 1 || !strings.Contains(entries[0].Message, `"GET /api/state HTTP/1.1" 200`) {
		t.Errorf("access log = %+v", entries)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "qtshockd_flash_in_flight") {
		t.Error("flash gauge missing from /metrics")
	}
}

func TestEvents(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/api/events", nil)
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.broker.Subscribers() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	n := &progress.EventNotifier{Emitter: f.broker, RunID: "run-1"}
	n.Stage("<y>Set up flasher!</y>", 55)

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() && len(lines) < 2 {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "event: "+progress.EventName {
		t.Errorf("event line = %q", lines[0])
	}

	var e progress.Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &e); err != nil {
		t.Fatal(err)
	}
	if e.RunID != "run-1" || e.Payload.Progress != 55 || e.Payload.Message != "<y>Set up flasher!</y>" {
		t.Errorf("event = %+v", e)
	}

	cancel()
	deadline = time.Now().Add(2 * time.Second)
	for f.broker.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream did not unsubscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(options.NewHTTPOptions(), Config{
		Flasher: &fakeFlasher{},
		State:   config.NewState(),
		Logger:  log.NewNopLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() = %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestOptionalRoutes(t *testing.T) {
	s := New(options.NewHTTPOptions(), Config{
		Flasher: &fakeFlasher{},
		State:   config.NewState(),
		Logger:  log.NewNopLogger(),
	})
	srv := httptest.NewServer(s.Handler)
	defer srv.Close()

	for _, p := range []string{"/api/events", "/api/trigger/shock"} {
		resp, err := http.Post(srv.URL+p, "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s status = %d", p, resp.StatusCode)
		}
	}
}
