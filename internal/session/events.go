package session

import (
	"fmt"
	"math/rand"
	"time"
)

// EventKind classifies a decorative log event. Events never influence
// progress or the accrued reward.
type EventKind string

const (
	EventInfo   EventKind = "info"
	EventShare  EventKind = "share"
	EventBlock  EventKind = "block"
	EventReward EventKind = "reward"
)

// Event is one entry in the session's decorative log stream.
type Event struct {
	Kind      EventKind `json:"kind"`
	Message   string    `json:"message"`
	Timestamp int64     `json:"timestamp"` // Unix millis
}

// EventGenerator produces decorative events and hashrate jitter. Tests
// inject a deterministic implementation to pin down event ordering.
type EventGenerator interface {
	// Next proposes the next event. ok=false means nothing this tick.
	Next(now time.Time, hashrate float64) (ev Event, ok bool)
	// Jitter is a multiplicative factor applied to the displayed hashrate.
	Jitter() float64
}

// maxEvents bounds the in-memory log; older entries are dropped.
const maxEvents = 200

// EmitEvent asks the generator for an event and appends it to the session
// log. A share event is only logged after at least one block event has
// occurred since the session started; early shares are dropped.
func (e *Engine) EmitEvent() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateMining {
		return
	}

	ev, ok := e.gen.Next(e.now(), e.displayHashrateLocked())
	if !ok {
		return
	}
	if ev.Kind == EventShare && !e.blockSeen {
		return
	}
	if ev.Kind == EventBlock {
		e.blockSeen = true
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = e.now().UnixMilli()
	}
	e.appendEventLocked(ev)
}

// Events returns a copy of the decorative log, oldest first.
func (e *Engine) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}

func (e *Engine) appendEventLocked(ev Event) {
	e.events = append(e.events, ev)
	if len(e.events) > maxEvents {
		e.events = e.events[len(e.events)-maxEvents:]
	}
}

// RandomEventGenerator is the default weighted-random event source.
type RandomEventGenerator struct {
	rng *rand.Rand
}

// NewRandomEventGenerator creates a generator with the given seed.
func NewRandomEventGenerator(seed int64) *RandomEventGenerator {
	return &RandomEventGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *RandomEventGenerator) Next(now time.Time, hashrate float64) (Event, bool) {
	roll := g.rng.Float64()
	ts := now.UnixMilli()
	switch {
	case roll < 0.45:
		return Event{Kind: EventInfo, Message: fmt.Sprintf("Hashrate %.1f MH/s", hashrate), Timestamp: ts}, true
	case roll < 0.75:
		return Event{Kind: EventShare, Message: fmt.Sprintf("Share accepted (diff %d)", 1+g.rng.Intn(64)), Timestamp: ts}, true
	case roll < 0.90:
		return Event{Kind: EventBlock, Message: fmt.Sprintf("Block candidate #%d found", 1000+g.rng.Intn(9000)), Timestamp: ts}, true
	case roll < 0.95:
		return Event{Kind: EventReward, Message: "Reward accrual on schedule", Timestamp: ts}, true
	default:
		return Event{}, false
	}
}

func (g *RandomEventGenerator) Jitter() float64 {
	// ±6% around nominal
	return 0.94 + g.rng.Float64()*0.12
}
