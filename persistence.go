package tda

import (
	"github.com/shimmeringbee/persistence"
	"sort"
)

const (
	deviceSection     = "device"
	capabilitySection = "capability"
	dataPointSection  = "datapoint"
	dataSection       = "data"
	productKey        = "product"
	implementationKey = "implementation"
)

func (g *Gateway) sectionForDevice(id string) persistence.Section {
	return g.section.Section(deviceSection, id)
}

func (g *Gateway) sectionRemoveDevice(id string) bool {
	return g.section.Section(deviceSection).Delete(id)
}

// PersistedDevices returns the identifiers of every device held in persistence, which the user should add again
// with its transport after a restart.
func (g *Gateway) PersistedDevices() []string {
	ids := g.section.Section(deviceSection).Keys()
	sort.Strings(ids)
	return ids
}

// PersistedProduct returns the product id a device was last added with.
func (g *Gateway) PersistedProduct(id string) (string, bool) {
	if !g.section.Section(deviceSection).Exists(id) {
		return "", false
	}

	return g.sectionForDevice(id).String(productKey)
}

func (g *Gateway) hasPersistedCapabilities(d *device) bool {
	return len(g.sectionForDevice(d.id).Section(capabilitySection).Keys()) > 0
}
