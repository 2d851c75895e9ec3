package tda

import (
	"context"
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/tda/datapoint"
	"github.com/shimmeringbee/tda/implcaps"
)

var _ implcaps.TDAInterface = (*tdaInterface)(nil)

type tdaInterface struct {
	gw *Gateway
}

func (t tdaInterface) Logger() logwrap.Logger {
	return t.gw.logger
}

func (t tdaInterface) SendEvent(a any) {
	t.gw.sendEvent(a)
}

func (t tdaInterface) DataPoint(dd da.Device, entity int, id string) (datapoint.DataPoint, bool) {
	d := t.gw.getDevice(dd.Identifier().String())
	if d == nil {
		return nil, false
	}

	return d.dataPoint(entity, id)
}

func (t tdaInterface) Subscribe(dd da.Device, f func(context.Context, datapoint.Updated) error) bool {
	d := t.gw.getDevice(dd.Identifier().String())
	if d == nil {
		return false
	}

	d.dp.Subscribe(f)
	return true
}
