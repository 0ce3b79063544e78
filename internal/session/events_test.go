package session

import (
	"testing"
	"time"
)

// scriptedGenerator replays a fixed event sequence for deterministic tests.
type scriptedGenerator struct {
	script []Event
	i      int
}

func (g *scriptedGenerator) Next(now time.Time, hashrate float64) (Event, bool) {
	if g.i >= len(g.script) {
		return Event{}, false
	}
	ev := g.script[g.i]
	g.i++
	return ev, true
}

func (g *scriptedGenerator) Jitter() float64 { return 1 }

func TestSharesDroppedUntilFirstBlock(t *testing.T) {
	e, _ := newTestEngine(t, &stubClaimer{})
	e.SetEventGenerator(&scriptedGenerator{script: []Event{
		{Kind: EventShare, Message: "early share"},
		{Kind: EventInfo, Message: "hashrate"},
		{Kind: EventShare, Message: "still early"},
		{Kind: EventBlock, Message: "block found"},
		{Kind: EventShare, Message: "share ok"},
	}})

	if err := e.Start([]Device{DeviceLow}, 1000); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 5; i++ {
		e.EmitEvent()
	}

	// Start appends its own info event, then the script minus dropped shares.
	want := []EventKind{EventInfo, EventInfo, EventBlock, EventShare}
	got := e.Events()
	if len(got) != len(want) {
		t.Fatalf("events = %d, want %d: %+v", len(got), len(want), got)
	}
	for i, kind := range want {
		if got[i].Kind != kind {
			t.Errorf("event[%d].Kind = %s, want %s", i, got[i].Kind, kind)
		}
	}
}

func TestShareGateResetsPerSession(t *testing.T) {
	e, _ := newTestEngine(t, &stubClaimer{})
	e.SetEventGenerator(&scriptedGenerator{script: []Event{
		{Kind: EventBlock, Message: "block"},
		{Kind: EventShare, Message: "share"},
	}})

	if err := e.Start([]Device{DeviceLow}, 1000); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.EmitEvent()
	e.EmitEvent()

	if err := e.RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	if err := e.ConfirmStop(); err != nil {
		t.Fatalf("ConfirmStop: %v", err)
	}

	// New session, generator opens with a share: the gate must hold again.
	e.SetEventGenerator(&scriptedGenerator{script: []Event{
		{Kind: EventShare, Message: "orphan share"},
	}})
	if err := e.Start([]Device{DeviceLow}, 1000); err != nil {
		t.Fatalf("restart: %v", err)
	}
	e.EmitEvent()

	for _, ev := range e.Events() {
		if ev.Kind == EventShare {
			t.Errorf("share leaked through a fresh session before any block: %+v", ev)
		}
	}
}

func TestEventsIgnoredOutsideMining(t *testing.T) {
	e, _ := newTestEngine(t, &stubClaimer{})
	e.SetEventGenerator(&scriptedGenerator{script: []Event{
		{Kind: EventInfo, Message: "should not appear"},
	}})

	e.EmitEvent()
	if got := e.Events(); len(got) != 0 {
		t.Errorf("events while idle = %+v, want none", got)
	}
}

func TestEventsDoNotAffectReward(t *testing.T) {
	e, clock := newTestEngine(t, &stubClaimer{})
	e.SetEventGenerator(&scriptedGenerator{script: []Event{
		{Kind: EventBlock, Message: "block"},
		{Kind: EventReward, Message: "reward event"},
		{Kind: EventShare, Message: "share"},
	}})

	if err := e.Start([]Device{DeviceHigh}, 1000); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clock.advance(time.Minute)
	before := e.AccruedReward()

	for i := 0; i < 3; i++ {
		e.EmitEvent()
	}

	if after := e.AccruedReward(); after != before {
		t.Errorf("reward changed from %f to %f after events", before, after)
	}
}

func TestEventLogBounded(t *testing.T) {
	e, _ := newTestEngine(t, &stubClaimer{})

	script := make([]Event, maxEvents+50)
	for i := range script {
		script[i] = Event{Kind: EventInfo, Message: "filler"}
	}
	e.SetEventGenerator(&scriptedGenerator{script: script})

	if err := e.Start([]Device{DeviceLow}, 1000); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < len(script); i++ {
		e.EmitEvent()
	}

	if got := len(e.Events()); got != maxEvents {
		t.Errorf("event log length = %d, want %d", got, maxEvents)
	}
}

func TestRandomGeneratorJitterRange(t *testing.T) {
	g := NewRandomEventGenerator(1)
	for i := 0; i < 1000; i++ {
		j := g.Jitter()
		if j < 0.94 || j > 1.06 {
			t.Fatalf("jitter %f out of range", j)
		}
	}
}
