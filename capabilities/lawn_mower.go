package capabilities

import (
	"context"
	"github.com/shimmeringbee/da"
)

// LawnMowerFlag identifies the lawn mower capability. It lives outside of the range used by the standard da
// capabilities.
const LawnMowerFlag = da.Capability(0x1000)

var StandardNames = map[da.Capability]string{
	LawnMowerFlag: "LawnMower",
}

// LawnMower is the contract every lawn mower exposed by the adapter must implement.
type LawnMower interface {
	// Activity returns the current activity of the mower. The boolean is false if the activity is unknown, such as
	// when the device does not expose an activity data point, or has not reported a value yet.
	Activity(context.Context) (Activity, bool, error)
	// SupportedFeatures returns the commands the mower advertises support for.
	SupportedFeatures(context.Context) (Features, error)

	StartMowing(context.Context) error
	Pause(context.Context) error
	Dock(context.Context) error
	Resume(context.Context) error
	Cancel(context.Context) error
	FixedMowing(context.Context) error
}

// LawnMowerActivityUpdate is emitted when the activity reported by a mower changes.
type LawnMowerActivityUpdate struct {
	Device   da.Device
	Activity Activity
}

// WithAttributes is implemented by mowers that expose additional data points of their entity, such as battery level
// or error codes, keyed by role name.
type WithAttributes interface {
	Attributes(context.Context) (map[string]any, error)
}
