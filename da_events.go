package tda

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/logwrap"
)

func (g *Gateway) sendEvent(e any) {
	select {
	case g.events <- e:
	default:
		g.logger.LogWarn(g.ctx, "Could not send event, buffer full.", logwrap.Datum("Event", fmt.Sprintf("%T", e)))
	}
}

// ReadEvent blocks until an event is available, or the context expires.
func (g *Gateway) ReadEvent(ctx context.Context) (any, error) {
	select {
	case e := <-g.events:
		return e, nil
	case <-ctx.Done():
		return nil, context.DeadlineExceeded
	}
}
