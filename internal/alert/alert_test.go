package alert

import (
	"testing"
	"time"

	"github.com/example/med-dispatch/internal/models"
)

type recordingSink struct{ msgs []Message }

func (r *recordingSink) Push(msg Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestOfferRaisesPromptWithCues(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(nil, sink)

	d.OfferAssignment(models.Assignment{ID: "A1", PatientName: "J. Doe"})

	if d.Pending() != "A1" {
		t.Fatalf("expected pending prompt for A1, got %q", d.Pending())
	}
	d.Close()
	if len(sink.msgs) != 1 || sink.msgs[0].Type != TypeAssignmentOffer {
		t.Fatalf("unexpected messages: %+v", sink.msgs)
	}
	if len(sink.msgs[0].VibratePattern) == 0 || sink.msgs[0].Sound == "" {
		t.Fatal("offer must carry device cue hints")
	}
}

func TestResolveIsIdempotentPerPrompt(t *testing.T) {
	d := NewDispatcher(nil)
	d.OfferAssignment(models.Assignment{ID: "A1"})

	if !d.Resolve("A1") {
		t.Fatal("first decision must resolve the prompt")
	}
	if d.Resolve("A1") {
		t.Fatal("duplicate decision must be ignored")
	}
	if d.Pending() != "" {
		t.Fatal("no prompt must remain pending")
	}
}

func TestResolveWrongIDLeavesPromptOpen(t *testing.T) {
	d := NewDispatcher(nil)
	d.OfferAssignment(models.Assignment{ID: "A2"})
	if d.Resolve("A1") {
		t.Fatal("a stale decision must not resolve the open prompt")
	}
	if d.Pending() != "A2" {
		t.Fatal("prompt must stay open until its own decision")
	}
}

func TestWithdrawnClearsPendingPrompt(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(nil, sink)
	d.OfferAssignment(models.Assignment{ID: "A1"})

	d.AssignmentWithdrawn("A1")
	if d.Pending() != "" {
		t.Fatal("withdrawal must clear the pending prompt")
	}
	d.Close()
	last := sink.msgs[len(sink.msgs)-1]
	if last.Type != TypeAssignmentWithdrawn || last.Assignment.ID != "A1" {
		t.Fatalf("expected withdrawal notice, got %+v", last)
	}
}

// blockingSink holds every delivery until released, standing in for a
// stalled shell connection or webhook endpoint.
type blockingSink struct {
	release   chan struct{}
	delivered chan Message
}

func (b *blockingSink) Push(msg Message) error {
	<-b.release
	b.delivered <- msg
	return nil
}

func TestPushDoesNotBlockOnSlowSink(t *testing.T) {
	b := &blockingSink{release: make(chan struct{}), delivered: make(chan Message, 4)}
	d := NewDispatcher(nil, b)

	done := make(chan struct{})
	go func() {
		d.StateChanged(models.StateView{Status: models.StatusEnRoute})
		d.SurfaceError("token expired")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher calls must return while the sink is stalled")
	}

	close(b.release)
	d.Close()
	if len(b.delivered) != 2 {
		t.Fatalf("expected both messages delivered after unblocking, got %d", len(b.delivered))
	}
}
