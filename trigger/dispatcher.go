package trigger

import (
	"context"

	"github.com/qtshock/qtshockd/config"
	"github.com/qtshock/qtshockd/pkg/log"
)

// Device is the set of device actions a Dispatcher needs.
type Device interface {
	Shock(ctx context.Context, shocker, strength int) error
	Vibrate(ctx context.Context, shocker, strength int) error
	Beep(ctx context.Context, shocker int) error
}

// Dispatcher triggers interactions at the strengths held in State.
type Dispatcher struct {
	Device Device
	State  *config.State
	Logger log.Logger
}

// Trigger runs in on shocker.
func (d *Dispatcher) Trigger(ctx context.Context, shocker int, in Interaction) error {
	var err error
	switch in {
	case Shock:
		err = d.Device.Shock(ctx, shocker, d.State.ShockStrength())
	case Vibrate:
		err = d.Device.Vibrate(ctx, shocker, d.State.VibrateStrength())
	default:
		err = d.Device.Beep(ctx, shocker)
	}

	logger := d.Logger
	if logger == nil {
		logger = log.Std()
	}
	if err != nil {
		logger.Error(err, "Trigger failed", "interaction", in, "shocker", shocker)
		return err
	}
	logger.Debug("Triggered", "interaction", in, "shocker", shocker)
	return nil
}
