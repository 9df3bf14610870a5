package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// typeCounters holds one delivered and one dropped counter per event type.
// The map is filled at construction and only read afterwards.
type typeCounters struct {
	delivered map[string]*atomic.Uint64
	dropped   map[string]*atomic.Uint64
}

func newTypeCounters() typeCounters {
	tc := typeCounters{
		delivered: make(map[string]*atomic.Uint64, len(EventTypes)+1),
		dropped:   make(map[string]*atomic.Uint64, len(EventTypes)+1),
	}
	for _, name := range append(append([]string(nil), EventTypes...), EventOther) {
		tc.delivered[name] = new(atomic.Uint64)
		tc.dropped[name] = new(atomic.Uint64)
	}
	return tc
}

func (tc typeCounters) key(eventType string) string {
	if _, ok := tc.dropped[eventType]; ok {
		return eventType
	}
	return EventOther
}

func snapshot(m map[string]*atomic.Uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v.Load()
	}
	return out
}

func total(m map[string]*atomic.Uint64) uint64 {
	var n uint64
	for _, v := range m {
		n += v.Load()
	}
	return n
}

// Dispatcher forwards relay audit events to a sink on its own goroutine and
// counts deliveries and drops per event type.
type Dispatcher struct {
	cfg    Config
	sink   Sink
	now    func() time.Time
	queue  chan Event
	stop   chan struct{}
	wg     sync.WaitGroup
	counts typeCounters

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. It returns nil when auditing is
// disabled; a nil Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		now:    time.Now,
		queue:  make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		counts: newTypeCounters(),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	d.sink.Emit(context.Background(), ev)
	d.counts.delivered[d.counts.key(ev.EventType)].Add(1)
}

func (d *Dispatcher) drop(ev Event) {
	d.counts.dropped[d.counts.key(ev.EventType)].Add(1)
}

// Emit queues ev, stamping its timestamp when unset. With DropIfFull a full
// queue drops ev at once; otherwise Emit waits until there is room or ctx ends.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = d.now().UTC()
	}

	var wait <-chan struct{}
	if !d.cfg.DropIfFull {
		wait = ctx.Done()
	}

	select {
	case d.queue <- ev:
		return
	case <-d.stop:
		return
	default:
	}
	if wait == nil {
		d.drop(ev)
		return
	}

	select {
	case d.queue <- ev:
	case <-d.stop:
	case <-wait:
		d.drop(ev)
	}
}

// Close drains queued events and stops delivery.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped counts events lost to backpressure or cancellation.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return total(d.counts.dropped)
}

// DroppedByType splits Dropped by event type. Unknown types are counted under
// EventOther. A nil Dispatcher returns nil.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	if d == nil {
		return nil
	}
	return snapshot(d.counts.dropped)
}

// Emitted counts events handed to the sink.
func (d *Dispatcher) Emitted() uint64 {
	if d == nil {
		return 0
	}
	return total(d.counts.delivered)
}

// EmittedByType splits Emitted by event type.
func (d *Dispatcher) EmittedByType() map[string]uint64 {
	if d == nil {
		return nil
	}
	return snapshot(d.counts.delivered)
}
