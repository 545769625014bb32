package analytics

import (
	"testing"
	"time"
)

func TestSink_EmitAndSnapshot(t *testing.T) {
	sink := NewSink(0)
	sink.Emit("export.created", map[string]any{"project_id": "proj-1"})
	sink.Emit("export.completed", nil)

	events := sink.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Name != "export.created" {
		t.Errorf("first event = %q, want export.created", events[0].Name)
	}
	if events[0].Props["project_id"] != "proj-1" {
		t.Errorf("props not recorded: %v", events[0].Props)
	}
}

func TestSink_DropsOldestWhenFull(t *testing.T) {
	sink := NewSink(2)
	sink.Emit("first", nil)
	sink.Emit("second", nil)
	sink.Emit("third", nil)

	events := sink.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Name != "second" || events[1].Name != "third" {
		t.Errorf("oldest event should be dropped, got %q, %q", events[0].Name, events[1].Name)
	}
}

func TestSink_ClearBefore(t *testing.T) {
	sink := NewSink(0)
	stamp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sink.SetClock(func() time.Time { return stamp })
	sink.Emit("old", nil)
	stamp = stamp.AddDate(0, 6, 0)
	sink.Emit("recent", nil)

	removed := sink.ClearBefore(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if sink.Len() != 1 || sink.Snapshot()[0].Name != "recent" {
		t.Error("only the recent event should remain")
	}
}
