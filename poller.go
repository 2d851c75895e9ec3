package tda

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const pollerBacklog = 200
const pollerWorkers = 4
const workerMaximumJobDuration = 15 * time.Second

type poller struct {
	ctx context.Context
	gw  *Gateway

	pollerWork chan pollerWork
	pollerStop chan bool

	randLock *sync.Mutex
	rand     *rand.Rand
}

type pollerWork struct {
	device   *device
	interval time.Duration
	fn       func(context.Context, *device) bool
}

func newPoller(ctx context.Context, gw *Gateway) *poller {
	return &poller{
		ctx:        ctx,
		gw:         gw,
		pollerWork: make(chan pollerWork, pollerBacklog),
		pollerStop: make(chan bool, pollerWorkers),
		randLock:   &sync.Mutex{},
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *poller) Start() {
	for i := 0; i < pollerWorkers; i++ {
		go p.worker()
	}
}

func (p *poller) Stop() {
	for i := 0; i < pollerWorkers; i++ {
		p.pollerStop <- true
	}
}

// Add schedules fn to be called against a device every interval, after a random initial wait so that devices added
// together are not polled together. Work ceases once the device is removed, replaced by a device of the same
// identifier, or fn returns false.
func (p *poller) Add(d *device, interval time.Duration, fn func(context.Context, *device) bool) {
	p.randLock.Lock()
	initialWait := time.Duration(float64(interval) * p.rand.Float64())
	p.randLock.Unlock()

	p.schedule(initialWait, pollerWork{
		device:   d,
		interval: interval,
		fn:       fn,
	})
}

func (p *poller) schedule(wait time.Duration, work pollerWork) {
	time.AfterFunc(wait, func() {
		select {
		case p.pollerWork <- work:
		case <-p.ctx.Done():
		}
	})
}

func (p *poller) worker() {
	for {
		select {
		case work := <-p.pollerWork:
			if p.gw.getDevice(work.device.id) == work.device {
				ctx, cancel := context.WithTimeout(p.ctx, workerMaximumJobDuration)

				if work.fn(ctx, work.device) {
					p.schedule(work.interval, work)
				}

				cancel()
			}
		case <-p.pollerStop:
			return
		}
	}
}
