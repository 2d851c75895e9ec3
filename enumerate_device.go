package tda

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/tda/devicecfg"
	"github.com/shimmeringbee/tda/implcaps"
	"github.com/shimmeringbee/tda/implcaps/factory"
	"github.com/shimmeringbee/tda/rules"
	"sort"
)

type enumeratedCapability struct {
	index    int
	entity   devicecfg.Entity
	settings rules.Settings
}

func (g *Gateway) enumerateDevice(pctx context.Context, d *device) error {
	ctx, end := g.logger.Segment(pctx, "Device enumeration.", logwrap.Datum("Identifier", d.id))
	defer end()

	desired, err := g.selectCapabilities(ctx, d)
	if err != nil {
		return err
	}

	d.m.Lock()
	defer d.m.Unlock()

	for _, impl := range d.capabilities {
		if _, found := desired[impl.ImplName()]; !found {
			g.logger.LogInfo(ctx, "Detaching capability no longer enumerated.", logwrap.Datum("CapabilityImplementation", impl.ImplName()))
			if err := impl.Detach(ctx, implcaps.NoLongerEnumerated); err != nil {
				g.logger.LogWarn(ctx, "Error thrown while detaching capability.", logwrap.Datum("CapabilityImplementation", impl.ImplName()), logwrap.Err(err))
			}

			g.detachCapabilityFromDevice(d, impl)
		}
	}

	var names []string
	for name := range desired {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ec := desired[name]
		cctx, cend := g.logger.Segment(ctx, "Enumerating capability.", logwrap.Datum("CapabilityImplementation", name), logwrap.Datum("Entity", ec.entity.Entity))

		impl := g.findOrCreateCapability(d, name)
		if impl == nil {
			g.logger.LogError(cctx, "Could not find capability implementation.")
			cend()
			continue
		}

		settings := ec.settings.
			With(implcaps.DataKeyDataPoints, d.entityDataPoints(ec.index)).
			With(implcaps.DataKeyEntity, ec.index)

		attached, err := impl.Enumerate(cctx, settings)
		if err != nil {
			g.logger.LogWarn(cctx, "Error while enumerating capability.", logwrap.Err(err))
		}

		if attached {
			g.attachCapabilityToDevice(d, impl)
			g.logger.LogInfo(cctx, "Attached capability.")
		} else {
			g.logger.LogInfo(cctx, "Capability rejected attachment.")
			if err := impl.Detach(cctx, implcaps.FailedAttach); err != nil {
				g.logger.LogWarn(cctx, "Error thrown while detaching capability.", logwrap.Err(err))
			}
			g.detachCapabilityFromDevice(d, impl)
		}

		cend()
	}

	return nil
}

// selectCapabilities runs the rules against every entity of a device, the first entity to select an implementation
// provides its settings.
func (g *Gateway) selectCapabilities(ctx context.Context, d *device) (map[string]enumeratedCapability, error) {
	product, _ := d.config.Product(d.productID)
	desired := map[string]enumeratedCapability{}

	for idx, e := range d.config.Entities() {
		var roles []string
		for _, dp := range e.DataPoints {
			roles = append(roles, dp.Name)
		}

		input := rules.Input{
			Product: rules.InputProduct{
				ID:           product.ID,
				Name:         d.config.Name,
				Manufacturer: product.Manufacturer,
				Model:        product.Model,
			},
			Entity: rules.InputEntity{
				Type:       e.Entity,
				Name:       e.Name,
				DataPoints: roles,
				Values:     e.Values(),
			},
		}

		out, err := g.ruleEngine.Execute(input)
		if err != nil {
			g.logger.LogError(ctx, "Failed to execute rules against entity.", logwrap.Datum("Entity", e.Entity), logwrap.Err(err))
			return nil, fmt.Errorf("rule execution: %s: %w", e.Entity, err)
		}

		g.logger.LogDebug(ctx, "Rules selected capability implementations.", logwrap.Datum("Entity", e.Entity), logwrap.Datum("Implementations", out.Implementations()))

		for _, name := range out.Implementations() {
			if _, found := desired[name]; !found {
				desired[name] = enumeratedCapability{index: idx, entity: e, settings: out.Capabilities[name]}
			}
		}
	}

	return desired, nil
}

// findOrCreateCapability must be called with the device lock held. A capability with the same implementation is
// reused so that it can re-enumerate, any other implementation of the same capability is replaced.
func (g *Gateway) findOrCreateCapability(d *device, name string) implcaps.TDACapability {
	if cF, found := factory.Mapping[name]; found {
		if existing, found := d.capabilities[cF]; found {
			if existing.ImplName() == name {
				return existing
			}

			if err := existing.Detach(g.ctx, implcaps.NoLongerEnumerated); err != nil {
				g.logger.LogWarn(g.ctx, "Error thrown while detaching replaced capability.", logwrap.Datum("CapabilityImplementation", existing.ImplName()), logwrap.Err(err))
			}
			g.detachCapabilityFromDevice(d, existing)
		}
	}

	impl := factory.Create(name, g.tdaInterface)
	if impl == nil {
		return nil
	}

	impl.Init(g._toDevice(d), g.sectionForDevice(d.id).Section(capabilitySection, impl.Name(), dataSection))
	return impl
}
