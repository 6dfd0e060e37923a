package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	verdant "github.com/verdanthq/verdant"
)

func testGarden() []verdant.GardenItem {
	watered := time.Date(2026, 4, 12, 9, 30, 0, 0, time.UTC)
	scheduleID := int64(7)
	return []verdant.GardenItem{
		{
			ID:                1,
			PlantName:         "Tomato",
			Nickname:          "Tom",
			Location:          "balcony",
			Quantity:          2,
			LastWatered:       &watered,
			CurrentScheduleID: &scheduleID,
		},
		{
			ID:        2,
			PlantName: "Basil",
			Quantity:  1,
		},
	}
}

func TestOutputGarden_JSON(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatJSON, &out, &errBuf)

	if err := f.OutputGarden(testGarden()); err != nil {
		t.Fatalf("OutputGarden failed: %v", err)
	}

	var decoded []verdant.GardenItem
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d items, want 2", len(decoded))
	}
	if decoded[0].PlantName != "Tomato" {
		t.Errorf("plant name = %q, want Tomato", decoded[0].PlantName)
	}
}

func TestOutputGarden_Text(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatText, &out, &errBuf)

	if err := f.OutputGarden(testGarden()); err != nil {
		t.Fatalf("OutputGarden failed: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "plant=Tomato") {
		t.Errorf("missing plant field: %q", text)
	}
	if !strings.Contains(text, "schedule=7") {
		t.Errorf("missing schedule ID: %q", text)
	}
	if !strings.Contains(text, "schedule=-") {
		t.Errorf("missing placeholder for unscheduled item: %q", text)
	}
}

func TestOutputGarden_Human(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	if err := f.OutputGarden(testGarden()); err != nil {
		t.Fatalf("OutputGarden failed: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Garden (2 items)") {
		t.Errorf("missing header: %q", text)
	}
	if !strings.Contains(text, `"Tom"`) {
		t.Errorf("missing nickname: %q", text)
	}
}

func TestOutputGarden_HumanEmpty(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	if err := f.OutputGarden(nil); err != nil {
		t.Fatalf("OutputGarden failed: %v", err)
	}
	if !strings.Contains(out.String(), "empty") {
		t.Errorf("expected empty-garden message, got %q", out.String())
	}
}

func TestOutputScheduleResult_Human(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	result := &verdant.ScheduleResult{
		ScheduleID: 3,
		Days: []verdant.ScheduleDay{
			{Day: 1, Tasks: []string{"Water deeply", "Check for pests"}},
			{Day: 2, Tasks: []string{"Mist leaves"}},
		},
		Degraded: true,
	}
	if err := f.OutputScheduleResult(result); err != nil {
		t.Fatalf("OutputScheduleResult failed: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Schedule 3: 2 days") {
		t.Errorf("missing summary line: %q", text)
	}
	if !strings.Contains(text, "plan length differs") {
		t.Errorf("missing degraded note: %q", text)
	}
	if !strings.Contains(text, "- Water deeply") {
		t.Errorf("missing task line: %q", text)
	}
}

func TestOutputScheduleResult_NoOp(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	if err := f.OutputScheduleResult(&verdant.ScheduleResult{ScheduleID: 3, NoOp: true}); err != nil {
		t.Fatalf("OutputScheduleResult failed: %v", err)
	}
	if !strings.Contains(out.String(), "already covers") {
		t.Errorf("expected no-op message, got %q", out.String())
	}
}

func TestOutputScheduleResult_JSON(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatJSON, &out, &errBuf)

	result := &verdant.ScheduleResult{ScheduleID: 5, AIText: true}
	if err := f.OutputScheduleResult(result); err != nil {
		t.Fatalf("OutputScheduleResult failed: %v", err)
	}

	var decoded verdant.ScheduleResult
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if decoded.ScheduleID != 5 || !decoded.AIText {
		t.Errorf("unexpected result: %+v", decoded)
	}
}

func TestOutputNotifications_Human(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	notifs := []verdant.Notification{
		{ID: 1, Message: "Pending - Day 4: Water the tomato", URL: "/garden/schedule/3#day-4"},
	}
	if err := f.OutputNotifications(notifs); err != nil {
		t.Fatalf("OutputNotifications failed: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Pending - Day 4") {
		t.Errorf("missing message: %q", text)
	}
	if !strings.Contains(text, "/garden/schedule/3#day-4") {
		t.Errorf("missing URL: %q", text)
	}
}

func TestOutputNotifications_HumanEmpty(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	if err := f.OutputNotifications(nil); err != nil {
		t.Fatalf("OutputNotifications failed: %v", err)
	}
	if !strings.Contains(out.String(), "No notifications") {
		t.Errorf("expected empty message, got %q", out.String())
	}
}

func TestOutputScanResult_Text(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatText, &out, &errBuf)

	result := &verdant.ScanResult{SchedulesScanned: 4, Ensured: 2, Completed: 1}
	if err := f.OutputScanResult(result); err != nil {
		t.Fatalf("OutputScanResult failed: %v", err)
	}
	if !strings.Contains(out.String(), "schedules=4") {
		t.Errorf("missing scan counts: %q", out.String())
	}
}

func TestOutputJournals_Human(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	latest := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	journals := []verdant.Journal{
		{ID: 1, Title: "Tomato log", EntryCount: 3, LatestEntryDate: &latest},
	}
	if err := f.OutputJournals(journals); err != nil {
		t.Fatalf("OutputJournals failed: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Tomato log") || !strings.Contains(text, "3 entries") {
		t.Errorf("missing journal summary: %q", text)
	}
	if !strings.Contains(text, "May 1, 2026") {
		t.Errorf("missing latest entry date: %q", text)
	}
}

func TestOutputDetection_Human(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	det := &verdant.Detection{Kind: "weed", ResultName: "dandelion", ConfidenceDisplay: "92%"}
	if err := f.OutputDetection(det); err != nil {
		t.Fatalf("OutputDetection failed: %v", err)
	}
	if !strings.Contains(out.String(), "dandelion (confidence 92%)") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestUnknownFormat(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(Format("xml"), &out, &errBuf)

	if err := f.OutputGarden(testGarden()); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestErrorAndWarning(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	f.Error("could not open %s", "verdant.db")
	f.Warning("schedule %d is stale", 9)

	text := errBuf.String()
	if !strings.Contains(text, "could not open verdant.db") {
		t.Errorf("missing error output: %q", text)
	}
	if !strings.Contains(text, "Warning: schedule 9 is stale") {
		t.Errorf("missing warning output: %q", text)
	}
	if out.Len() != 0 {
		t.Errorf("stderr messages leaked to stdout: %q", out.String())
	}
}
