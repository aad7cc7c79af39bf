package watcher

import (
	"sync"
	"time"
)

// coalescer delivers one event per event type once that type has been
// quiet for delay. A burst of writes to refs/ yields a single
// branches-updated, whatever the index is doing meanwhile.
type coalescer struct {
	delay time.Duration
	fire  func(Event)

	mu      sync.Mutex
	pending map[EventType]Event
	gen     map[EventType]uint64
	timers  map[EventType]*time.Timer
	stopped bool
}

func newCoalescer(delay time.Duration, fire func(Event)) *coalescer {
	return &coalescer{
		delay:   delay,
		fire:    fire,
		pending: make(map[EventType]Event),
		gen:     make(map[EventType]uint64),
		timers:  make(map[EventType]*time.Timer),
	}
}

// Add records ev as the newest event of its type and restarts that type's
// quiet period.
func (c *coalescer) Add(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	c.pending[ev.Type] = ev
	c.gen[ev.Type]++
	gen := c.gen[ev.Type]
	if t := c.timers[ev.Type]; t != nil {
		t.Stop()
	}
	c.timers[ev.Type] = time.AfterFunc(c.delay, func() { c.expire(ev.Type, gen) })
}

func (c *coalescer) expire(t EventType, gen uint64) {
	c.mu.Lock()
	// A timer that lost the race with a later Add is stale.
	if c.stopped || c.gen[t] != gen {
		c.mu.Unlock()
		return
	}
	ev, ok := c.pending[t]
	delete(c.pending, t)
	delete(c.timers, t)
	c.mu.Unlock()

	if ok {
		ev.Timestamp = time.Now()
		c.fire(ev)
	}
}

// Stop drops pending events. Nothing fires afterwards.
func (c *coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for t, timer := range c.timers {
		timer.Stop()
		delete(c.timers, t)
	}
	c.pending = make(map[EventType]Event)
}

// Batch gathers the events of one repository and emits them together once
// the repository has been quiet for delay. Events of the same type collapse
// into the newest, in order of first arrival.
type Batch struct {
	delay time.Duration
	emit  func([]Event)

	mu     sync.Mutex
	events []Event
	gen    uint64
	timer  *time.Timer
}

// NewBatch returns a Batch calling emit with each collected set.
func NewBatch(delay time.Duration, emit func([]Event)) *Batch {
	return &Batch{delay: delay, emit: emit}
}

// Add adds ev to the pending set and restarts the quiet period.
func (b *Batch) Add(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	merged := false
	for i := range b.events {
		if b.events[i].Type == ev.Type {
			b.events[i] = ev
			merged = true
			break
		}
	}
	if !merged {
		b.events = append(b.events, ev)
	}

	b.gen++
	gen := b.gen
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, func() { b.expire(gen) })
}

func (b *Batch) expire(gen uint64) {
	b.mu.Lock()
	if b.gen != gen || len(b.events) == 0 {
		b.mu.Unlock()
		return
	}
	events := b.events
	b.events = nil
	b.timer = nil
	b.mu.Unlock()

	b.emit(events)
}

// Cancel drops the pending set. Used when the caller is about to read the
// repository anyway.
func (b *Batch) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.events = nil
}
