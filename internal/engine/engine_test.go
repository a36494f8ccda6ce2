// internal/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ManiacDC/receiver-power-sync/internal/iscp"
	"github.com/ManiacDC/receiver-power-sync/internal/receiver"
	"github.com/ManiacDC/receiver-power-sync/internal/status"
)

// ---- fake transport ----

type fakeTransport struct {
	connected   bool
	failConnect bool
	failSend    bool
	queryState  iscp.State

	connects int
	closes   int
	sent     []iscp.State
	queries  int
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connects++
	if f.failConnect {
		return errors.New("fake: connect refused")
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.closes++
	f.connected = false
	return nil
}

func (f *fakeTransport) Connected() bool { return f.connected }

func (f *fakeTransport) SendPower(s iscp.State) error {
	if f.failSend {
		f.connected = false
		return errors.New("fake: broken pipe")
	}
	f.sent = append(f.sent, s)
	return nil
}

func (f *fakeTransport) QueryPower(ctx context.Context) (iscp.State, error) {
	f.queries++
	return f.queryState, nil
}

// newTestEngine wires an engine around fake transports, one primary
// and one per secondary.
func newTestEngine(primary *fakeTransport, secondaries ...*fakeTransport) *Engine {
	e := &Engine{
		primary: receiver.NewHandle("primary", primary),
		events:  make(chan iscp.State, 1),
		tracker: status.NewTracker(),
		resync:  10 * time.Millisecond,
	}
	for i, f := range secondaries {
		name := fmt.Sprintf("secondary-%d", i+1)
		e.secondaries = append(e.secondaries, receiver.NewHandle(name, f))
	}
	return e
}

// ---- tests ----

func TestMirror_UpdatesAllSecondaries(t *testing.T) {
	p := &fakeTransport{connected: true}
	s1 := &fakeTransport{connected: true}
	s2 := &fakeTransport{connected: true}
	e := newTestEngine(p, s1, s2)

	e.mirror(context.Background(), iscp.On)

	for i, f := range []*fakeTransport{s1, s2} {
		if len(f.sent) != 1 || f.sent[0] != iscp.On {
			t.Fatalf("secondary %d sent = %v", i+1, f.sent)
		}
	}
	for i, h := range e.secondaries {
		if h.LastKnown() != iscp.On {
			t.Fatalf("secondary %d LastKnown = %v", i+1, h.LastKnown())
		}
	}
	if e.primary.LastKnown() != iscp.On {
		t.Fatalf("primary LastKnown = %v", e.primary.LastKnown())
	}
}

func TestMirror_UnknownIsNeverPropagated(t *testing.T) {
	p := &fakeTransport{connected: true}
	s1 := &fakeTransport{connected: true}
	e := newTestEngine(p, s1)

	e.mirror(context.Background(), iscp.Unknown)

	if len(s1.sent) != 0 {
		t.Fatalf("sent = %v", s1.sent)
	}
}

func TestMirror_FailedSecondaryDoesNotBlockOthers(t *testing.T) {
	p := &fakeTransport{connected: true}
	s1 := &fakeTransport{connected: true, failSend: true}
	s2 := &fakeTransport{connected: true}
	e := newTestEngine(p, s1, s2)

	e.mirror(context.Background(), iscp.On)

	if len(s1.sent) != 0 {
		t.Fatalf("failed secondary sent = %v", s1.sent)
	}
	if len(s2.sent) != 1 || s2.sent[0] != iscp.On {
		t.Fatalf("healthy secondary sent = %v", s2.sent)
	}
	if e.secondaries[0].LastKnown() != iscp.Unknown {
		t.Fatalf("failed secondary LastKnown = %v", e.secondaries[0].LastKnown())
	}
	if e.secondaries[1].LastKnown() != iscp.On {
		t.Fatalf("healthy secondary LastKnown = %v", e.secondaries[1].LastKnown())
	}
}

func TestResync_IdempotentSecondPass(t *testing.T) {
	p := &fakeTransport{connected: true, queryState: iscp.On}
	s1 := &fakeTransport{connected: true}
	s2 := &fakeTransport{connected: true}
	e := newTestEngine(p, s1, s2)

	e.resyncOnce(context.Background())
	e.resyncOnce(context.Background())

	// The second pass finds every cache matching and sends nothing.
	if len(s1.sent) != 1 || len(s2.sent) != 1 {
		t.Fatalf("sent = %v / %v, want one command each", s1.sent, s2.sent)
	}
}

func TestResync_UnknownPrimarySkipsPass(t *testing.T) {
	p := &fakeTransport{connected: true, queryState: iscp.Unknown}
	s1 := &fakeTransport{connected: true}
	e := newTestEngine(p, s1)

	e.resyncOnce(context.Background())

	if len(s1.sent) != 0 {
		t.Fatalf("sent = %v, want none on unknown primary", s1.sent)
	}
}

func TestScenario_FailedSecondaryRecoversOnNextTick(t *testing.T) {
	p := &fakeTransport{connected: true, queryState: iscp.On}
	s1 := &fakeTransport{connected: true}
	s2 := &fakeTransport{connected: true, failSend: true}
	e := newTestEngine(p, s1, s2)
	ctx := context.Background()

	// Primary reports ON; s2's send fails and its link drops.
	e.mirror(ctx, iscp.On)

	if len(s1.sent) != 1 || s1.sent[0] != iscp.On {
		t.Fatalf("s1 sent = %v", s1.sent)
	}
	if e.secondaries[1].Connected() {
		t.Fatalf("s2 should be disconnected after failed send")
	}

	// Next tick: s2 is reachable again, reconnects and catches up,
	// s1 is already in sync and stays quiet.
	s2.failSend = false
	e.resyncOnce(ctx)

	if len(s2.sent) != 1 || s2.sent[0] != iscp.On {
		t.Fatalf("s2 sent = %v", s2.sent)
	}
	if len(s1.sent) != 1 {
		t.Fatalf("s1 sent = %v, want no redundant command", s1.sent)
	}
	if e.secondaries[1].LastKnown() != iscp.On {
		t.Fatalf("s2 LastKnown = %v", e.secondaries[1].LastKnown())
	}
}

func TestScenario_PrimaryOutageThreeTicks(t *testing.T) {
	p := &fakeTransport{failConnect: true}
	s1 := &fakeTransport{connected: true}
	s2 := &fakeTransport{connected: true}
	e := newTestEngine(p, s1, s2)
	ctx := context.Background()

	// Pre-existing states: s1 already off, s2 on.
	e.secondaries[0].NotePower(iscp.Off)
	e.secondaries[1].NotePower(iscp.On)

	for i := 0; i < 3; i++ {
		e.resyncOnce(ctx)
	}

	if len(s1.sent) != 0 || len(s2.sent) != 0 {
		t.Fatalf("sent during outage = %v / %v", s1.sent, s2.sent)
	}

	// 4th tick: primary is back and reports OFF. The matching
	// secondary stays quiet, the mismatched one is corrected.
	p.failConnect = false
	p.queryState = iscp.Off
	e.resyncOnce(ctx)

	if len(s1.sent) != 0 {
		t.Fatalf("s1 sent = %v, want none (already off)", s1.sent)
	}
	if len(s2.sent) != 1 || s2.sent[0] != iscp.Off {
		t.Fatalf("s2 sent = %v", s2.sent)
	}
}

func TestNotify_LastWriterWins(t *testing.T) {
	e := newTestEngine(&fakeTransport{})

	e.notify(iscp.On)
	e.notify(iscp.Off) // queue is full; the stale event is replaced

	select {
	case s := <-e.events:
		if s != iscp.Off {
			t.Fatalf("event = %v, want Off", s)
		}
	default:
		t.Fatalf("no event queued")
	}
}

func TestRun_ShutdownClosesAllHandles(t *testing.T) {
	p := &fakeTransport{}
	s1 := &fakeTransport{}
	e := newTestEngine(p, s1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run err=%v", err)
	}

	if p.closes != 1 || s1.closes != 1 {
		t.Fatalf("closes = %d / %d, want 1 each", p.closes, s1.closes)
	}
}

func TestRun_EventDrivesMirror(t *testing.T) {
	p := &fakeTransport{connected: true}
	s1 := &fakeTransport{connected: true}
	e := newTestEngine(p, s1)
	e.resync = time.Hour // keep the ticker out of this test

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	e.notify(iscp.On)

	deadline := time.Now().Add(2 * time.Second)
	for e.secondaries[0].LastKnown() != iscp.On {
		if time.Now().After(deadline) {
			t.Fatalf("secondary never mirrored the event")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run err=%v", err)
	}
}
