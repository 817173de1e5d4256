package output_test

import (
	"bytes"
	"testing"
	"time"

	"tasksync/internal/engine"
	"tasksync/internal/output"
	"tasksync/internal/projection"
	"tasksync/internal/service"
	"tasksync/internal/testutil"
)

func sampleView() projection.View {
	st := engine.State{Entries: []engine.Entry{
		{Task: service.Task{ID: "local-1", Title: "Water plants", Description: "Balcony too", Priority: service.PriorityLow}, Pending: engine.PendingCreating, Seq: 3},
		{Task: service.Task{ID: "a2", Title: "Call mom", Description: "About the\ntrip", Priority: service.PriorityHigh, Completed: true, CreatedAt: testutil.T0.Add(time.Minute)}, Pending: engine.PendingUpdating, Seq: 2},
		{Task: service.Task{ID: "a1", Title: "Buy milk", Description: "2% organic", Priority: service.PriorityMedium, CreatedAt: testutil.T0}, Seq: 1},
	}}
	return projection.Project(st, projection.Filter{})
}

func TestFormatView(t *testing.T) {
	var buf bytes.Buffer
	output.FormatView(&buf, sampleView())
	testutil.Golden(t, "view", buf.Bytes())
}

func TestFormatSummary(t *testing.T) {
	var buf bytes.Buffer
	output.FormatSummary(&buf, sampleView())
	testutil.GoldenString(t, "summary", buf.String())
}

func TestFormatItem_Untitled(t *testing.T) {
	var buf bytes.Buffer
	output.FormatItem(&buf, projection.Item{Number: 12, Task: service.Task{Title: " \n"}})

	expected := "  12  [ ] (untitled) (medium)\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestFormatStale(t *testing.T) {
	var buf bytes.Buffer
	output.FormatStale(&buf, 3)

	expected := "warning: store unreachable, showing 3 cached tasks\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}
