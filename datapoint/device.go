package datapoint

import (
	"context"
	"errors"
	"github.com/shimmeringbee/callbacks"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/retry"
	"golang.org/x/sync/semaphore"
	"sort"
	"sync"
	"time"
)

const DefaultNetworkTimeout = 3000 * time.Millisecond
const DefaultNetworkRetries = 5

var ErrRefreshInProgress = errors.New("data point refresh already in progress")

// Transport performs the I/O with a physical device, it is provided by the user of the adapter.
type Transport interface {
	// Status reads the current value of every data point on the device, keyed by data point id.
	Status(context.Context) (map[string]any, error)
	// Set writes the provided data point values to the device.
	Set(context.Context, map[string]any) error
}

// Updated is passed to subscribers when the cached value of one or more data points has changed.
type Updated struct {
	Changed []string
}

func (u Updated) Contains(id string) bool {
	for _, c := range u.Changed {
		if c == id {
			return true
		}
	}

	return false
}

// Device caches the raw data point values of a single physical device.
type Device struct {
	transport Transport
	logger    logwrap.Logger
	section   persistence.Section
	callbacks callbacks.AdderCaller

	refreshSem *semaphore.Weighted

	m      *sync.RWMutex
	values map[string]any
}

func NewDevice(t Transport, s persistence.Section, l logwrap.Logger) *Device {
	d := &Device{
		transport:  t,
		logger:     l,
		section:    s,
		callbacks:  callbacks.Create(),
		refreshSem: semaphore.NewWeighted(1),
		m:          &sync.RWMutex{},
		values:     map[string]any{},
	}

	d.restore()

	return d
}

func (d *Device) restore() {
	for _, k := range d.section.Keys() {
		if v, ok := d.section.Bool(k); ok {
			d.values[k] = v
		} else if v, ok := d.section.Int(k); ok {
			d.values[k] = v
		} else if v, ok := d.section.UInt(k); ok {
			d.values[k] = v
		} else if v, ok := d.section.Float(k); ok {
			d.values[k] = v
		} else if v, ok := d.section.String(k); ok {
			d.values[k] = v
		}
	}
}

// Subscribe registers a function to be called when data point values change.
func (d *Device) Subscribe(f func(context.Context, Updated) error) {
	d.callbacks.Add(f)
}

// Get returns the last known raw value of a data point.
func (d *Device) Get(id string) (any, bool) {
	d.m.RLock()
	defer d.m.RUnlock()

	v, found := d.values[id]
	return v, found
}

// Set writes raw values to the device, updating the cache once the transport has accepted them.
func (d *Device) Set(pctx context.Context, values map[string]any) error {
	ctx, end := d.logger.Segment(pctx, "Setting data points.", logwrap.Datum("DataPoints", sortedKeys(values)))
	defer end()

	if err := retry.Retry(ctx, DefaultNetworkTimeout, DefaultNetworkRetries, func(ctx context.Context) error {
		return d.transport.Set(ctx, values)
	}); err != nil {
		d.logger.LogError(ctx, "Failed to set data points.", logwrap.Err(err))
		return err
	}

	d.merge(ctx, values)
	return nil
}

// Refresh reads every data point from the device. Only one refresh may be in flight for a device at a time.
func (d *Device) Refresh(pctx context.Context) error {
	if !d.refreshSem.TryAcquire(1) {
		return ErrRefreshInProgress
	}
	defer d.refreshSem.Release(1)

	ctx, end := d.logger.Segment(pctx, "Refreshing data points.")
	defer end()

	var status map[string]any

	if err := retry.Retry(ctx, DefaultNetworkTimeout, DefaultNetworkRetries, func(ctx context.Context) error {
		s, err := d.transport.Status(ctx)
		if err == nil {
			status = s
		}
		return err
	}); err != nil {
		d.logger.LogWarn(ctx, "Failed to read data points from device.", logwrap.Err(err))
		return err
	}

	d.merge(ctx, status)
	return nil
}

func (d *Device) merge(ctx context.Context, values map[string]any) {
	var changed []string

	d.m.Lock()
	for k, v := range values {
		if existing, found := d.values[k]; !found || !equal(existing, v) {
			d.values[k] = v
			d.persist(k, v)
			changed = append(changed, k)
		}
	}
	d.m.Unlock()

	if len(changed) == 0 {
		return
	}

	sort.Strings(changed)
	d.logger.LogDebug(ctx, "Data points changed.", logwrap.Datum("Changed", changed))

	if err := d.callbacks.Call(ctx, Updated{Changed: changed}); err != nil {
		d.logger.LogWarn(ctx, "Data point subscriber returned an error.", logwrap.Err(err))
	}
}

func (d *Device) persist(k string, v any) {
	switch tv := normalise(v).(type) {
	case bool, int64, uint64, float64, string:
		d.section.Set(k, tv)
	default:
		d.section.Delete(k)
	}
}

func sortedKeys(m map[string]any) []string {
	var keys []string

	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}
