package tda

import (
	"context"
	"errors"
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/tda/datapoint"
	"github.com/shimmeringbee/tda/devicecfg"
	"github.com/shimmeringbee/tda/implcaps"
	"github.com/shimmeringbee/tda/implcaps/factory"
	"github.com/shimmeringbee/tda/rules"
	"sort"
	"sync"
	"time"
)

const DefaultPollInterval = 30 * time.Second
const eventBacklog = 0xffff
const selfIdentifier = "tda"

var _ da.Gateway = (*Gateway)(nil)

var ErrDeviceExists = errors.New("device already added to gateway")
var ErrUnknownDevice = errors.New("device not known to gateway")
var ErrUnknownProduct = errors.New("no device configuration for product")

// Gateway adapts devices speaking the Tuya data point model into da capabilities.
type Gateway struct {
	ctx       context.Context
	ctxCancel context.CancelFunc

	section    persistence.Section
	library    *devicecfg.Library
	ruleEngine *rules.Engine
	logger     logwrap.Logger

	events chan any

	deviceLock *sync.RWMutex
	device     map[string]*device

	poller       *poller
	metrics      *metrics
	tdaInterface implcaps.TDAInterface
	pollInterval time.Duration
}

func New(baseCtx context.Context, s persistence.Section, l *devicecfg.Library, r *rules.Engine) *Gateway {
	ctx, cancel := context.WithCancel(baseCtx)

	gw := &Gateway{
		ctx:       ctx,
		ctxCancel: cancel,

		section:    s,
		library:    l,
		ruleEngine: r,
		logger:     logwrap.New(discard.Discard()),

		events: make(chan any, eventBacklog),

		deviceLock: &sync.RWMutex{},
		device:     make(map[string]*device),

		pollInterval: DefaultPollInterval,
	}

	gw.tdaInterface = tdaInterface{gw: gw}
	gw.poller = newPoller(ctx, gw)
	gw.metrics = newMetrics(gw)

	return gw
}

// WithPollInterval changes how often devices are refreshed, it must be called before devices are added.
func (g *Gateway) WithPollInterval(d time.Duration) {
	g.pollInterval = d
}

func (g *Gateway) Start(ctx context.Context) error {
	g.logger.LogInfo(ctx, "Starting tuya device adapter.", logwrap.Datum("PersistedDevices", len(g.PersistedDevices())))
	g.poller.Start()
	return nil
}

func (g *Gateway) Stop(ctx context.Context) error {
	g.logger.LogInfo(ctx, "Stopping tuya device adapter.")
	g.poller.Stop()
	g.ctxCancel()
	return nil
}

// AddDevice registers a physical device with the gateway. If the device has been seen before its capabilities are
// loaded from persistence, otherwise the device is enumerated using the device configuration and rules.
func (g *Gateway) AddDevice(pctx context.Context, id string, productID string, t datapoint.Transport) (da.Device, error) {
	ctx, end := g.logger.Segment(pctx, "Adding device.", logwrap.Datum("Identifier", id), logwrap.Datum("ProductID", productID))
	defer end()

	cfg, found := g.library.Lookup(productID)
	if !found {
		g.logger.LogError(ctx, "No device configuration for product.")
		return nil, ErrUnknownProduct
	}

	d, created := g.createDevice(id, productID, cfg, t)
	if !created {
		return nil, ErrDeviceExists
	}

	if g.hasPersistedCapabilities(d) {
		g.loadDevice(ctx, d)
	} else if err := g.enumerateDevice(ctx, d); err != nil {
		g.logger.LogError(ctx, "Failed to enumerate device.", logwrap.Err(err))
	}

	g.poller.Add(d, g.pollInterval, g.refreshDevice)

	return g.toDevice(d), nil
}

func (g *Gateway) RemoveDevice(ctx context.Context, id string) error {
	if !g.removeDevice(ctx, id) {
		return ErrUnknownDevice
	}

	return nil
}

// Enumerate reruns capability selection against a device, attaching and detaching capabilities as required.
func (g *Gateway) Enumerate(ctx context.Context, dd da.Device) error {
	d := g.getDevice(dd.Identifier().String())
	if d == nil {
		return ErrUnknownDevice
	}

	return g.enumerateDevice(ctx, d)
}

// Refresh reads all data points from a device now, rather than waiting for the next poll.
func (g *Gateway) Refresh(ctx context.Context, dd da.Device) error {
	d := g.getDevice(dd.Identifier().String())
	if d == nil {
		return ErrUnknownDevice
	}

	return d.dp.Refresh(ctx)
}

// Capabilities returns every capability an implementation exists for.
func (g *Gateway) Capabilities() []da.Capability {
	seen := map[da.Capability]bool{}
	var caps []da.Capability

	for _, c := range factory.Mapping {
		if !seen[c] {
			seen[c] = true
			caps = append(caps, c)
		}
	}

	sort.Slice(caps, func(i, j int) bool {
		return caps[i] < caps[j]
	})

	return caps
}

// Self returns a device representing the gateway, it has no capabilities and is not listed by Devices.
func (g *Gateway) Self() da.Device {
	return g.deviceRef(selfIdentifier)
}

func (g *Gateway) Devices() []da.Device {
	var devices []da.Device

	for _, d := range g.getDevices() {
		devices = append(devices, g.toDevice(d))
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Identifier().String() < devices[j].Identifier().String()
	})

	return devices
}

// Capability returns the implementation of a capability on a device, or nil if the device does not have it.
func (g *Gateway) Capability(dd da.Device, c da.Capability) any {
	d := g.getDevice(dd.Identifier().String())
	if d == nil {
		return nil
	}

	d.m.RLock()
	defer d.m.RUnlock()

	if impl, found := d.capabilities[c]; found {
		return impl
	}

	return nil
}

func (g *Gateway) refreshDevice(ctx context.Context, d *device) bool {
	if err := d.dp.Refresh(ctx); err != nil {
		if errors.Is(err, datapoint.ErrRefreshInProgress) {
			g.logger.LogDebug(ctx, "Skipped poll, refresh already in progress.", logwrap.Datum("Identifier", d.id))
			g.metrics.polls.WithLabelValues(pollResultSkipped).Inc()
		} else {
			g.logger.LogWarn(ctx, "Failed to poll device.", logwrap.Datum("Identifier", d.id), logwrap.Err(err))
			g.metrics.polls.WithLabelValues(pollResultFailure).Inc()
		}
	} else {
		g.metrics.polls.WithLabelValues(pollResultSuccess).Inc()
		g.metrics.lastSuccess.WithLabelValues(d.id).SetToCurrentTime()
	}

	return true
}
