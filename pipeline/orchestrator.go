package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qtshock/qtshockd/acquire"
	"github.com/qtshock/qtshockd/config"
	"github.com/qtshock/qtshockd/firmware"
	"github.com/qtshock/qtshockd/flasher"
	"github.com/qtshock/qtshockd/internal/metrics"
	"github.com/qtshock/qtshockd/pkg/log"
	"github.com/qtshock/qtshockd/progress"
	"github.com/qtshock/qtshockd/transport"
)

// Partition layout of QTShock firmware.
const (
	PartitionTableOffset = firmware.DefaultPartitionTableOffset
	AppPartition         = "app0"
)

// Transport finds and opens serial endpoints.
type Transport interface {
	ListUSB() ([]*transport.Endpoint, error)
	Resolve(name string) (*transport.Endpoint, error)
	Open(ep *transport.Endpoint) (*transport.SerialPort, error)
}

// Orchestrator runs flash pipelines. Runs against different endpoints may
// proceed concurrently; a second run against a busy endpoint is refused.
type Orchestrator struct {
	transport Transport
	acquirer  *acquire.Acquirer
	emitter   progress.Emitter
	state     *config.State
	settings  firmware.FlashSettings
	session   []flasher.Option
	logger    log.Logger

	mu       sync.Mutex
	inFlight map[string]string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTransport replaces the system serial transport.
func WithTransport(t Transport) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.transport = t
		}
	}
}

// WithAcquirer replaces the default acquirer.
func WithAcquirer(a *acquire.Acquirer) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.acquirer = a
		}
	}
}

// WithEmitter sets where progress events are published.
func WithEmitter(e progress.Emitter) Option {
	return func(o *Orchestrator) {
		o.emitter = e
	}
}

// WithState shares runtime state. A successful flash clears the cached
// device address since the device rejoins the network after reboot.
func WithState(s *config.State) Option {
	return func(o *Orchestrator) {
		o.state = s
	}
}

// WithSessionOptions passes options to every flasher.Connect.
func WithSessionOptions(opts ...flasher.Option) Option {
	return func(o *Orchestrator) {
		o.session = append(o.session, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns an Orchestrator using the system serial ports and the
// QTShock download server.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport: transport.Default,
		acquirer:  acquire.New(),
		settings:  firmware.DefaultSettings(),
		logger:    log.Std(),
		inFlight:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ListUSBEndpoints renders the USB endpoints as <option> markup. An
// enumeration failure renders the placeholder.
func (o *Orchestrator) ListUSBEndpoints() string {
	eps, err := o.transport.ListUSB()
	if err != nil {
		o.logger.Error(err, "Failed to enumerate serial ports")
		return NoDevicesOption
	}
	return Options(eps)
}

// FlashDeviceFirmware flashes the device on endpoint with binaries from
// source ("local" or "server") and returns the tagged outcome message.
func (o *Orchestrator) FlashDeviceFirmware(ctx context.Context, endpoint, source string) string {
	return Message(o.Flash(ctx, endpoint, source))
}

// Flash is FlashDeviceFirmware returning the error instead of a message.
func (o *Orchestrator) Flash(ctx context.Context, endpoint, source string) error {
	runID := uuid.NewString()
	logger := o.logger.WithValues("run", runID, "endpoint", endpoint, "source", source)

	if err := o.claim(endpoint, runID); err != nil {
		logger.Warn("Endpoint busy", "error", err)
		metrics.FlashRunsTotal.WithLabelValues(metrics.Outcome(err), "claim").Inc()
		return err
	}
	defer o.release(endpoint)

	r := &run{
		o:        o,
		id:       runID,
		endpoint: endpoint,
		source:   source,
		logger:   logger,
		notifier: progress.OrNop(o.notifier(runID)),
		stage:    "acquire",
	}

	start := time.Now()
	metrics.FlashInFlight.Inc()
	err := r.execute(ctx)
	metrics.FlashInFlight.Dec()

	outcome := metrics.Outcome(err)
	metrics.FlashRunsTotal.WithLabelValues(outcome, r.stage).Inc()
	metrics.FlashDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Error(err, "Flash failed", "stage", r.stage)
		return err
	}
	if o.state != nil {
		o.state.SetDeviceAddress("")
	}
	logger.Info("Flash finished", "elapsed", time.Since(start))
	return nil
}

func (o *Orchestrator) notifier(runID string) progress.Notifier {
	if o.emitter == nil {
		return nil
	}
	return &progress.EventNotifier{Emitter: o.emitter, RunID: runID}
}

func (o *Orchestrator) claim(endpoint, runID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if owner, ok := o.inFlight[endpoint]; ok {
		return &busyError{endpoint: endpoint, runID: owner}
	}
	o.inFlight[endpoint] = runID
	return nil
}

func (o *Orchestrator) release(endpoint string) {
	o.mu.Lock()
	delete(o.inFlight, endpoint)
	o.mu.Unlock()
}

// run is the state of one pipeline invocation.
type run struct {
	o        *Orchestrator
	id       string
	endpoint string
	source   string
	logger   log.Logger
	notifier progress.Notifier

	// stage is the step in progress, reported in metrics on failure.
	stage string
}

func (r *run) execute(ctx context.Context) error {
	images, err := r.o.acquirer.Acquire(ctx, r.source, r.notifier)
	if err != nil {
		return err
	}
	defer func() {
		if err := images.Close(); err != nil {
			r.logger.Error(err, "Failed to remove scratch directory", "dir", images.Dir)
		}
	}()

	// Validated before the port is touched so bad artifacts never
	// reach an erase.
	r.stage = "flash data"
	data, err := firmware.ParseFlashData(images.Bootloader, images.Partitions,
		PartitionTableOffset, AppPartition, r.o.settings)
	if err != nil {
		return err
	}

	r.stage = "resolve"
	ep, err := r.o.transport.Resolve(r.endpoint)
	if err != nil {
		return err
	}
	r.notifier.Stage(fmt.Sprintf(MsgFoundPort, ep.Name), 20)

	r.stage = "open"
	port, err := r.o.transport.Open(ep)
	if err != nil {
		return err
	}
	r.notifier.Stage(fmt.Sprintf(MsgOpenedPort, ep.Name), 40)

	r.stage = "connect"
	r.notifier.Stage(MsgConnecting, 45)
	opts := append([]flasher.Option{
		flasher.WithLogger(log.Adapt(r.logger.WithName("flasher"))),
		flasher.WithFlashSettings(r.o.settings),
	}, r.o.session...)
	session, err := flasher.Connect(ctx, port, usbInfo(ep), opts...)
	if err != nil {
		port.Close()
		return err
	}
	defer func() {
		metrics.FlashBytesWritten.Add(float64(session.BytesWritten()))
		if err := session.Close(); err != nil {
			r.logger.Error(err, "Failed to close serial port")
		}
	}()
	r.notifier.Stage(MsgConnected, 55)

	r.stage = "erase"
	r.notifier.Stage(MsgErasing, 65)
	if err := session.EraseFlash(ctx); err != nil {
		return err
	}
	r.notifier.Stage(MsgErased, 70)

	r.notifier.Stage(MsgFlashData, 85)

	r.stage = "crystal"
	xtal, err := session.CrystalFrequency(ctx)
	if err != nil {
		return err
	}
	r.notifier.Stage(MsgCrystal, 100)

	r.stage = "program"
	if err := session.LoadElfToFlash(ctx, images.Application, data, progress.NewReporter(r.notifier), xtal); err != nil {
		return err
	}

	r.stage = "done"
	return nil
}

func usbInfo(ep *transport.Endpoint) *flasher.USBInfo {
	if ep.USB == nil {
		return nil
	}
	return &flasher.USBInfo{VendorID: ep.USB.VendorID, ProductID: ep.USB.ProductID}
}
