package app

import (
	"context"
	"net"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/qtshock/qtshockd/cmd/qtshockd/app/options"
	"github.com/qtshock/qtshockd/config"
	"github.com/qtshock/qtshockd/pipeline"
	"github.com/qtshock/qtshockd/pkg/log"
	"github.com/qtshock/qtshockd/progress"
	"github.com/qtshock/qtshockd/server"
	"github.com/qtshock/qtshockd/trigger"
)

// feedbackAddr is the OSC input port of the VR client.
const feedbackAddr = "127.0.0.1:9000"

func newServeCommand(opts *options.Options, tr pipeline.Transport, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the game and VR triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts, tr, v)
		},
	}
}

func serve(ctx context.Context, opts *options.Options, tr pipeline.Transport, v *viper.Viper) error {
	logger := log.WithName("serve")

	state, err := opts.State()
	if err != nil {
		return err
	}
	acq, err := opts.Acquirer(logger.WithName("acquire"))
	if err != nil {
		return err
	}

	broker := progress.NewBroker(64)
	orch := pipeline.New(
		pipeline.WithTransport(tr),
		pipeline.WithAcquirer(acq),
		pipeline.WithEmitter(broker),
		pipeline.WithState(state),
		pipeline.WithSessionOptions(opts.SessionOptions()...),
		pipeline.WithLogger(logger.WithName("pipeline")),
	)

	resolver := trigger.NewMDNSResolver(opts.Device.Hostname, opts.Device.Timeout)
	dispatcher := &trigger.Dispatcher{
		Device: trigger.NewDeviceClient(state, resolver, opts.Device.Timeout),
		State:  state,
		Logger: logger.WithName("trigger"),
	}

	if opts.ConfigFile != "" {
		watchStrengths(v, state, logger)
	}

	srv := server.New(opts.HTTP, server.Config{
		Flasher: orch,
		Broker:  broker,
		Trigger: dispatcher,
		State:   state,
		Logger:  logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if opts.Trigger.EnableGSI {
		h := &trigger.GSIHandler{
			Counter: &trigger.DeathCounter{},
			Trigger: dispatcher,
			Logger:  logger.WithName("gsi"),
		}
		g.Go(func() error {
			// A busy port only disables the receiver; the UI is told through
			// the broker.
			if err := trigger.ServeGSI(ctx, opts.Trigger.GSIAddr, h, broker); err != nil {
				logger.Error(err, "Game-state receiver stopped")
			}
			return nil
		})
	}
	if opts.Trigger.EnableOSC {
		gate := &trigger.VRGate{Trigger: dispatcher, Emitter: broker}
		g.Go(func() error {
			if err := trigger.ServeOSC(ctx, opts.Trigger.OSCAddr, gate); err != nil {
				logger.Error(err, "VR listener stopped")
			}
			return nil
		})
		stop, err := sendStrengthFeedback(state, logger)
		if err != nil {
			logger.Error(err, "Strength feedback disabled")
		} else {
			defer stop()
		}
	}
	return g.Wait()
}

// watchStrengths applies strength edits of the config file while serving.
func watchStrengths(v *viper.Viper, state *config.State, logger log.Logger) {
	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config changed", "file", e.Name, "op", e.Op.String())
		if v.IsSet("device.shock-strength") {
			if err := state.SetShockStrength(v.GetInt("device.shock-strength")); err != nil {
				logger.Error(err, "Ignoring shock strength")
			}
		}
		if v.IsSet("device.vibrate-strength") {
			if err := state.SetVibrateStrength(v.GetInt("device.vibrate-strength")); err != nil {
				logger.Error(err, "Ignoring vibrate strength")
			}
		}
	})
	v.WatchConfig()
}

// sendStrengthFeedback mirrors strength changes to the VR client's avatar
// parameters. The returned function closes the socket.
func sendStrengthFeedback(state *config.State, logger log.Logger) (func(), error) {
	to, err := net.ResolveUDPAddr("udp", feedbackAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	fb := &trigger.FeedbackSender{Conn: conn, To: to}
	state.OnChange(func(s config.Snapshot) {
		if err := fb.SendStrength(trigger.Shock, s.ShockStrength); err != nil {
			logger.Debug("Strength feedback failed", "error", err.Error())
			return
		}
		_ = fb.SendStrength(trigger.Vibrate, s.VibrateStrength)
	})
	return func() { conn.Close() }, nil
}
