// Package config holds the runtime state shared by the flash pipeline and
// the trigger dispatcher.
package config

import (
	"fmt"
	"slices"
	"sync"
)

// Strength limits accepted by the device.
const (
	MinStrength = 1
	MaxStrength = 99

	DefaultShockStrength   = 10
	DefaultVibrateStrength = 80
)

// State is the mutable configuration of a running backend. It is safe for
// concurrent use.
type State struct {
	mu      sync.RWMutex
	shock   int
	vibrate int
	address string
	watch   []func(Snapshot)
}

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	ShockStrength   int    `json:"shock_strength"`
	VibrateStrength int    `json:"vibrate_strength"`
	DeviceAddress   string `json:"device_address"`
}

// NewState returns a State with the default strengths and no device address.
func NewState() *State {
	return &State{shock: DefaultShockStrength, vibrate: DefaultVibrateStrength}
}

// ValidateStrength reports whether v is within MinStrength..MaxStrength.
func ValidateStrength(v int) error {
	if v < MinStrength || v > MaxStrength {
		return fmt.Errorf("strength %d out of range %d..%d", v, MinStrength, MaxStrength)
	}
	return nil
}

func (s *State) ShockStrength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shock
}

func (s *State) VibrateStrength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vibrate
}

func (s *State) DeviceAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// SetShockStrength updates the shock strength.
func (s *State) SetShockStrength(v int) error {
	if err := ValidateStrength(v); err != nil {
		return err
	}
	s.update(func() { s.shock = v })
	return nil
}

// SetVibrateStrength updates the vibrate strength.
func (s *State) SetVibrateStrength(v int) error {
	if err := ValidateStrength(v); err != nil {
		return err
	}
	s.update(func() { s.vibrate = v })
	return nil
}

// SetDeviceAddress records the device IP or host.
func (s *State) SetDeviceAddress(addr string) {
	s.update(func() { s.address = addr })
}

// Snapshot returns a copy of the current values.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// OnChange registers fn to run after every change. fn runs outside the lock.
func (s *State) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.watch = append(s.watch, fn)
	s.mu.Unlock()
}

func (s *State) snapshot() Snapshot {
	return Snapshot{ShockStrength: s.shock, VibrateStrength: s.vibrate, DeviceAddress: s.address}
}

func (s *State) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshot()
	watch := slices.Clone(s.watch)
	s.mu.Unlock()

	for _, w := range watch {
		w(snap)
	}
}
