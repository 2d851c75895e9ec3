package implcaps

import (
	"context"
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/tda/datapoint"
)

const (
	// DataKeyDataPoints holds the bindings of the enumerated entity, keyed by role name.
	DataKeyDataPoints = "DataPoints"
	// DataKeyEntity holds the index of the enumerated entity within the device configuration.
	DataKeyEntity = "Entity"
)

type DetachType int

const (
	// DeviceRemoved is used when a device has been removed from the adapter, this has already occurred, and it should
	// be assumed that no communication is possible.
	DeviceRemoved DetachType = iota
	// NoLongerEnumerated is used when the enumeration of the device no longer results in this capability existing, or
	// it's being replaced by a different implementation.
	NoLongerEnumerated
	// FailedAttach is used when an Enumerate or Load failed.
	FailedAttach
)

type TDACapability interface {
	// BasicCapability functions should also be present.
	da.BasicCapability
	// Init is used upon creation of the capability to provide persistence.
	Init(da.Device, persistence.Section)
	// Load is used upon load of the capability from persistence at start up.
	Load(context.Context) (bool, error)
	// Enumerate is used to enumerate or re-enumerate a device. It should return true if the capability should be
	// attached, or false if it should not. A return value of true and error is possible, and the capability should
	// attach.
	Enumerate(context.Context, map[string]any) (bool, error)
	// Detach is called when a capability is removed from a device. This will be called after an Enumerate that
	// returned false, even if it was a new enumeration.
	Detach(context.Context, DetachType) error
	// ImplName returns the implementation name of the capability.
	ImplName() string
}

type TDAInterface interface {
	// Logger returns the logger of the adapter.
	Logger() logwrap.Logger
	// SendEvent allows a capability to publish event messages.
	SendEvent(any)
	// DataPoint finds a configured data point of an entity on a device by its id, used to restore bindings after a load.
	DataPoint(da.Device, int, string) (datapoint.DataPoint, bool)
	// Subscribe registers a function to be called when data points on a device change.
	Subscribe(da.Device, func(context.Context, datapoint.Updated) error) bool
}
