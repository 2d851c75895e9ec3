package tda

import (
	"context"
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/tda/datapoint"
	"github.com/shimmeringbee/tda/devicecfg"
	"github.com/shimmeringbee/tda/implcaps"
	"sync"
)

func (g *Gateway) createDevice(id string, productID string, cfg *devicecfg.Device, t datapoint.Transport) (*device, bool) {
	g.deviceLock.Lock()
	defer g.deviceLock.Unlock()

	if _, found := g.device[id]; found {
		return nil, false
	}

	s := g.sectionForDevice(id)

	if persistedProductID, ok := s.String(productKey); ok && persistedProductID != productID {
		s.Delete(capabilitySection)
		s.Delete(dataPointSection)
	}

	s.Set(productKey, productID)

	d := &device{
		id:           id,
		productID:    productID,
		config:       cfg,
		dp:           datapoint.NewDevice(t, s.Section(dataPointSection), g.logger),
		m:            &sync.RWMutex{},
		capabilities: make(map[da.Capability]implcaps.TDACapability),
	}

	for _, e := range cfg.Entities() {
		d.dataPoints = append(d.dataPoints, e.Bind(d.dp))
	}

	g.device[id] = d
	g.sendEvent(da.DeviceAdded{Device: g.toDevice(d)})

	return d, true
}

func (g *Gateway) getDevice(id string) *device {
	g.deviceLock.RLock()
	defer g.deviceLock.RUnlock()

	return g.device[id]
}

func (g *Gateway) getDevices() []*device {
	g.deviceLock.RLock()
	defer g.deviceLock.RUnlock()

	var devices []*device

	for _, d := range g.device {
		devices = append(devices, d)
	}

	return devices
}

func (g *Gateway) removeDevice(ctx context.Context, id string) bool {
	g.deviceLock.Lock()
	d, found := g.device[id]
	delete(g.device, id)
	g.deviceLock.Unlock()

	if !found {
		return false
	}

	d.m.Lock()
	for cf, impl := range d.capabilities {
		g.logger.LogInfo(ctx, "Detaching capability from removed device.", logwrap.Datum("Capability", impl.Name()), logwrap.Datum("CapabilityImplementation", impl.ImplName()))
		if err := impl.Detach(ctx, implcaps.DeviceRemoved); err != nil {
			g.logger.LogWarn(ctx, "Error thrown while detaching capability.", logwrap.Datum("Capability", impl.Name()), logwrap.Datum("CapabilityImplementation", impl.ImplName()), logwrap.Err(err))
		}

		delete(d.capabilities, cf)
		g.sendEvent(da.CapabilityRemoved{Device: g.deviceRef(d.id), Capability: cf})
	}
	d.m.Unlock()

	g.sendEvent(da.DeviceRemoved{Device: g.toDevice(d)})
	g.sectionRemoveDevice(id)
	g.metrics.lastSuccess.DeleteLabelValues(id)

	return true
}

// attachCapabilityToDevice must be called with the device lock held.
func (g *Gateway) attachCapabilityToDevice(d *device, c implcaps.TDACapability) {
	cF := c.Capability()

	d.capabilities[cF] = c
	g.sectionForDevice(d.id).Section(capabilitySection, c.Name()).Set(implementationKey, c.ImplName())
	g.sendEvent(da.CapabilityAdded{Device: g.deviceRef(d.id), Capability: cF})
}

// detachCapabilityFromDevice must be called with the device lock held.
func (g *Gateway) detachCapabilityFromDevice(d *device, c implcaps.TDACapability) {
	cF := c.Capability()

	if existing, found := d.capabilities[cF]; found && existing == c {
		g.sendEvent(da.CapabilityRemoved{Device: g.deviceRef(d.id), Capability: cF})
		delete(d.capabilities, cF)
	}

	g.sectionForDevice(d.id).Section(capabilitySection).Delete(c.Name())
}
