package tda

import (
	"context"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/tda/implcaps"
	"github.com/shimmeringbee/tda/implcaps/factory"
)

func (g *Gateway) loadDevice(pctx context.Context, d *device) {
	ctx, end := g.logger.Segment(pctx, "Loading device data.", logwrap.Datum("Identifier", d.id))
	defer end()

	capSection := g.sectionForDevice(d.id).Section(capabilitySection)

	d.m.Lock()
	defer d.m.Unlock()

	for _, cName := range capSection.Keys() {
		cctx, cend := g.logger.Segment(ctx, "Loading capability data.", logwrap.Datum("Capability", cName))

		cSection := capSection.Section(cName)

		if capImpl, ok := cSection.String(implementationKey); ok {
			if capI := factory.Create(capImpl, g.tdaInterface); capI == nil {
				g.logger.LogError(cctx, "Could not find capability implementation.", logwrap.Datum("CapabilityImplementation", capImpl))
			} else {
				g.logger.LogInfo(cctx, "Constructed capability implementation.", logwrap.Datum("CapabilityImplementation", capImpl))
				capI.Init(g._toDevice(d), cSection.Section(dataSection))
				attached, err := capI.Load(cctx)

				if err != nil {
					g.logger.LogError(cctx, "Error while loading from persistence.", logwrap.Err(err), logwrap.Datum("CapabilityImplementation", capImpl))
				}

				if attached {
					g.attachCapabilityToDevice(d, capI)
					g.logger.LogInfo(cctx, "Attached capability from persistence.", logwrap.Datum("CapabilityImplementation", capImpl))
				} else {
					g.logger.LogWarn(cctx, "Rejected capability attach from persistence.", logwrap.Datum("CapabilityImplementation", capImpl))
					if err := capI.Detach(cctx, implcaps.FailedAttach); err != nil {
						g.logger.LogWarn(cctx, "Error thrown while detaching capability.", logwrap.Err(err))
					}
				}
			}
		}

		cend()
	}
}
