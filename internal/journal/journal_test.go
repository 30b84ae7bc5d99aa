package journal

import (
	"testing"
	"time"

	"github.com/example/med-dispatch/internal/models"
)

func TestMemoryLogRecordsInOrder(t *testing.T) {
	l := NewMemoryLog()
	first := &models.TransportRecord{AssignmentID: "a1", Outcome: models.OutcomeCompleted, EndedAt: time.Now()}
	second := &models.TransportRecord{AssignmentID: "a2", Outcome: models.OutcomeRejected, EndedAt: time.Now()}
	if err := l.Record(first); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Record(second); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := l.Records()
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].AssignmentID != "a1" || got[1].AssignmentID != "a2" {
		t.Fatalf("unexpected order: %s, %s", got[0].AssignmentID, got[1].AssignmentID)
	}
}

func TestMemoryLogReturnsCopy(t *testing.T) {
	l := NewMemoryLog()
	_ = l.Record(&models.TransportRecord{AssignmentID: "a1"})
	got := l.Records()
	got[0] = nil
	if l.Records()[0] == nil {
		t.Fatal("Records must not expose internal slice")
	}
}
