package tda

import (
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/tda/datapoint"
	"github.com/shimmeringbee/tda/devicecfg"
	"github.com/shimmeringbee/tda/implcaps"
	"sort"
	"sync"
)

// Identifier is the Tuya device id, used as the da identifier.
type Identifier string

func (i Identifier) String() string {
	return string(i)
}

var _ da.Device = baseDevice{}

// baseDevice is the da.Device handed out by the gateway, a snapshot of the device's capabilities at creation.
type baseDevice struct {
	gw           *Gateway
	identifier   Identifier
	capabilities []da.Capability
}

func (b baseDevice) Gateway() da.Gateway {
	return b.gw
}

func (b baseDevice) Identifier() da.Identifier {
	return b.identifier
}

func (b baseDevice) Capabilities() []da.Capability {
	return b.capabilities
}

func (b baseDevice) Capability(c da.Capability) da.BasicCapability {
	if b.gw == nil {
		return nil
	}

	if bc, ok := b.gw.Capability(b, c).(da.BasicCapability); ok {
		return bc
	}

	return nil
}

type device struct {
	// Immutable, no locking required.
	id        string
	productID string
	config    *devicecfg.Device
	dp        *datapoint.Device
	// Bindings per entity, in configuration order, keyed by role name. Entities may share a data point id.
	dataPoints []map[string]datapoint.DataPoint

	m *sync.RWMutex
	// Mutable, locking must be obtained first.
	capabilities map[da.Capability]implcaps.TDACapability
}

func (g *Gateway) deviceRef(id string) baseDevice {
	return baseDevice{gw: g, identifier: Identifier(id)}
}

func (g *Gateway) toDevice(d *device) da.Device {
	d.m.RLock()
	defer d.m.RUnlock()

	return g._toDevice(d)
}

// _toDevice must be called with the device lock held.
func (g *Gateway) _toDevice(d *device) da.Device {
	var caps []da.Capability

	for c := range d.capabilities {
		caps = append(caps, c)
	}

	sort.Slice(caps, func(i, j int) bool {
		return caps[i] < caps[j]
	})

	b := g.deviceRef(d.id)
	b.capabilities = caps
	return b
}

// entityDataPoints returns a copy of the bindings of an entity, keyed by role name.
func (d *device) entityDataPoints(entity int) map[string]datapoint.DataPoint {
	if entity < 0 || entity >= len(d.dataPoints) {
		return map[string]datapoint.DataPoint{}
	}

	dps := make(map[string]datapoint.DataPoint, len(d.dataPoints[entity]))

	for role, dp := range d.dataPoints[entity] {
		dps[role] = dp
	}

	return dps
}

func (d *device) dataPoint(entity int, id string) (datapoint.DataPoint, bool) {
	if entity < 0 || entity >= len(d.dataPoints) {
		return nil, false
	}

	for _, dp := range d.dataPoints[entity] {
		if dp.ID() == id {
			return dp, true
		}
	}

	return nil, false
}
