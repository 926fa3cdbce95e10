// Package trigger drives the QTShock device from game events.
//
// DeviceClient talks to the device's HTTP control API. Dispatcher applies
// the configured strengths. DeathCounter and GSIHandler turn game-state
// updates into shocks, and VRGate turns VR avatar parameters received over
// OSC into shocks, vibrations and beeps.
package trigger
