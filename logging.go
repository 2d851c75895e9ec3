package tda

import (
	"github.com/shimmeringbee/logwrap"
	lwlogrus "github.com/shimmeringbee/logwrap/impl/logrus"
	"github.com/sirupsen/logrus"
)

// WithLogrusLogger and WithLogWrapLogger must be called before devices are added.
func (g *Gateway) WithLogrusLogger(parentLogger *logrus.Logger) {
	g.WithLogWrapLogger(logwrap.New(lwlogrus.Wrap(parentLogger)))
}

func (g *Gateway) WithLogWrapLogger(lw logwrap.Logger) {
	g.logger = lw
}
