package schedule

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verdanthq/verdant/internal/ai"
	"github.com/verdanthq/verdant/internal/storage"
)

type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func (s *scriptedCompleter) Model() string { return "scripted" }

type recordingNotifier struct {
	recorded  []string
	ensured   []string
	completed []string
	fail      bool
}

func (n *recordingNotifier) Record(userID, scheduleID int64, day int, message, url string) error {
	if n.fail {
		return errors.New("notifier down")
	}
	n.recorded = append(n.recorded, message)
	return nil
}

func (n *recordingNotifier) EnsurePending(userID, scheduleID int64, day int, taskText, url string) error {
	if n.fail {
		return errors.New("notifier down")
	}
	n.ensured = append(n.ensured, taskText)
	return nil
}

func (n *recordingNotifier) CompletePending(userID, scheduleID int64, day int, taskText string) error {
	if n.fail {
		return errors.New("notifier down")
	}
	n.completed = append(n.completed, taskText)
	return nil
}

func dayArrayJSON(n int) string {
	var b strings.Builder
	b.WriteString("[")
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"day":%d,"tasks":["Water plant %d","Check soil"]}`, i, i)
	}
	b.WriteString("]")
	return b.String()
}

type testWorld struct {
	store  *storage.Store
	userID int64
	itemID int64
}

func newTestWorld(t *testing.T, durationDays int) *testWorld {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	userID, err := store.CreateUser("marisol", "user", false)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	plant := &storage.Plant{Name: "Tomato", Type: "vegetable"}
	if durationDays > 0 {
		plant.DurationDays = &durationDays
	}
	plantID, err := store.AddPlant(plant)
	if err != nil {
		t.Fatalf("AddPlant failed: %v", err)
	}
	itemID, err := store.AddGardenItem(&storage.GardenItem{UserID: userID, PlantID: plantID, Quantity: 1})
	if err != nil {
		t.Fatalf("AddGardenItem failed: %v", err)
	}
	return &testWorld{store: store, userID: userID, itemID: itemID}
}

func TestCreateExactSchedule(t *testing.T) {
	w := newTestWorld(t, 3)
	c := &scriptedCompleter{responses: []string{dayArrayJSON(3)}}
	p := NewPlanner(w.store, c, nil, 0.4)

	result, err := p.Create(context.Background(), w.userID, w.itemID, "seed")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if result.Degraded || result.AIText {
		t.Errorf("Expected clean result, got %+v", result)
	}
	if len(result.Days) != 3 {
		t.Fatalf("Expected 3 days, got %d", len(result.Days))
	}
	if c.calls != 1 {
		t.Errorf("Expected 1 model call, got %d", c.calls)
	}
	if !strings.Contains(c.prompts[0], "exactly 3") {
		t.Errorf("Prompt should demand exactly 3 entries:\n%s", c.prompts[0])
	}
	if !strings.Contains(c.prompts[0], "sowing") {
		t.Errorf("Seed-stage prompt should require sowing on day 1")
	}

	tasks, err := w.store.GetScheduleTasks(result.ScheduleID)
	if err != nil {
		t.Fatalf("GetScheduleTasks failed: %v", err)
	}
	if len(tasks) != 6 {
		t.Fatalf("Expected 6 task rows, got %d", len(tasks))
	}
	if tasks[0].Day != 1 || tasks[0].TaskIndex != 0 || tasks[0].TaskText != "Water plant 1" {
		t.Errorf("Unexpected first task row: %+v", tasks[0])
	}
}

func TestCreateUnknownStageDefaultsToSeed(t *testing.T) {
	w := newTestWorld(t, 2)
	c := &scriptedCompleter{responses: []string{dayArrayJSON(2)}}
	p := NewPlanner(w.store, c, nil, 0.4)

	if _, err := p.Create(context.Background(), w.userID, w.itemID, "blooming"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.Contains(c.prompts[0], "growth stage: seed") {
		t.Errorf("Unknown stage should fall back to seed:\n%s", c.prompts[0])
	}
}

func TestCreateDurationCap(t *testing.T) {
	w := newTestWorld(t, 90)
	c := &scriptedCompleter{responses: []string{dayArrayJSON(60)}}
	p := NewPlanner(w.store, c, nil, 0.4)

	result, err := p.Create(context.Background(), w.userID, w.itemID, "seedling")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(result.Days) != 60 {
		t.Errorf("Expected 60-day cap, got %d days", len(result.Days))
	}
	if !strings.Contains(c.prompts[0], "exactly 60") {
		t.Errorf("Prompt should cap at 60 days")
	}
}

func TestCreateCorrectiveRetry(t *testing.T) {
	w := newTestWorld(t, 3)
	c := &scriptedCompleter{responses: []string{
		dayArrayJSON(2), // wrong length
		dayArrayJSON(3), // corrected
	}}
	p := NewPlanner(w.store, c, nil, 0.4)

	result, err := p.Create(context.Background(), w.userID, w.itemID, "seed")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if result.Degraded {
		t.Error("Corrected result should not be degraded")
	}
	if len(result.Days) != 3 {
		t.Errorf("Expected 3 days, got %d", len(result.Days))
	}
	if c.calls != 2 {
		t.Fatalf("Expected 2 model calls, got %d", c.calls)
	}
	if !strings.Contains(c.prompts[1], "exactly 3") {
		t.Errorf("Correction prompt should restate the exact count:\n%s", c.prompts[1])
	}
	if !strings.Contains(c.prompts[1], "growth stage: seed") {
		t.Errorf("Correction prompt should restate the stage:\n%s", c.prompts[1])
	}
	if !strings.Contains(c.prompts[1], "sowing") {
		t.Errorf("Seed-stage correction should restate the Day 1 sowing rule:\n%s", c.prompts[1])
	}
}

func TestCorrectionPromptStageRule(t *testing.T) {
	p := buildCorrectionPrompt(StageFlowering, 5, 3)
	if !strings.Contains(p, "growth stage: flowering") {
		t.Errorf("Expected flowering stage restated:\n%s", p)
	}
	if strings.Contains(p, "sowing") {
		t.Errorf("Non-seed correction must not carry the sowing rule:\n%s", p)
	}
}

func TestCreateDegradedAcceptance(t *testing.T) {
	w := newTestWorld(t, 5)
	// Every attempt returns the wrong length; the correction budget is two,
	// after which the last parseable array is accepted as degraded.
	c := &scriptedCompleter{responses: []string{dayArrayJSON(3)}}
	p := NewPlanner(w.store, c, nil, 0.4)

	result, err := p.Create(context.Background(), w.userID, w.itemID, "seed")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !result.Degraded {
		t.Error("Wrong-length acceptance should be flagged degraded")
	}
	if len(result.Days) != 3 {
		t.Errorf("Expected the 3-day array to be kept, got %d days", len(result.Days))
	}
	if c.calls != 3 {
		t.Errorf("Expected initial call plus 2 corrections, got %d", c.calls)
	}

	sc, err := w.store.GetSchedule(result.ScheduleID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	days, err := ParseDays(sc.ScheduleJSON)
	if err != nil {
		t.Fatalf("Persisted blob should parse: %v", err)
	}
	if len(days) != 3 {
		t.Errorf("Persisted blob mismatch: %d days", len(days))
	}
}

func TestCreateAITextFallback(t *testing.T) {
	w := newTestWorld(t, 3)
	c := &scriptedCompleter{responses: []string{"I'm sorry, I cannot produce a schedule right now."}}
	p := NewPlanner(w.store, c, nil, 0.4)

	result, err := p.Create(context.Background(), w.userID, w.itemID, "seed")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !result.AIText {
		t.Fatal("Expected raw-text fallback")
	}

	sc, _ := w.store.GetSchedule(result.ScheduleID)
	if !strings.Contains(sc.ScheduleJSON, `"ai_text"`) {
		t.Errorf("Fallback blob should wrap raw text: %s", sc.ScheduleJSON)
	}
	tasks, _ := w.store.GetScheduleTasks(result.ScheduleID)
	if len(tasks) != 0 {
		t.Errorf("Fallback schedule should have no task rows, got %d", len(tasks))
	}
}

func TestCreateClientErrorIsFatal(t *testing.T) {
	w := newTestWorld(t, 3)
	c := &scriptedCompleter{
		responses: []string{""},
		errs:      []error{&ai.ClientError{StatusCode: 403, Message: "quota"}},
	}
	p := NewPlanner(w.store, c, nil, 0.4)

	_, err := p.Create(context.Background(), w.userID, w.itemID, "seed")
	if !ai.IsClientError(err) {
		t.Fatalf("Expected client error, got %v", err)
	}
	if c.calls != 1 {
		t.Errorf("Client errors must not be retried, got %d calls", c.calls)
	}
}

func TestCreateNotOwner(t *testing.T) {
	w := newTestWorld(t, 3)
	other, _ := w.store.CreateUser("intruder", "user", false)
	p := NewPlanner(w.store, &scriptedCompleter{responses: []string{dayArrayJSON(3)}}, nil, 0.4)

	_, err := p.Create(context.Background(), other, w.itemID, "seed")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Expected ErrNotAuthorized, got %v", err)
	}
}

func TestExtendAppends(t *testing.T) {
	w := newTestWorld(t, 5)

	// Seed a 3-day schedule against a 5-day duration by hand.
	scheduleID, err := w.store.CreateSchedule(w.itemID, w.userID, dayArrayJSON(3))
	if err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	extend := &scriptedCompleter{responses: []string{
		`[{"day":4,"tasks":["Fertilize"]},{"day":5,"tasks":["Harvest"]}]`,
	}}
	p := NewPlanner(w.store, extend, nil, 0.4)

	result, err := p.Extend(context.Background(), w.userID, scheduleID)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if result.NoOp {
		t.Fatal("Expected a real extension")
	}
	if len(result.Days) != 5 {
		t.Fatalf("Expected 5 combined days, got %d", len(result.Days))
	}
	if !strings.Contains(extend.prompts[0], "days 4 through 5") {
		t.Errorf("Extend prompt should target days 4-5:\n%s", extend.prompts[0])
	}

	tasks, _ := w.store.GetScheduleTasks(scheduleID)
	// Only the new days materialize task rows here.
	for _, task := range tasks {
		if task.Day < 4 {
			t.Errorf("Extension should only upsert new days, saw day %d", task.Day)
		}
	}
}

func TestExtendRejectsWrongLength(t *testing.T) {
	w := newTestWorld(t, 10)
	original := dayArrayJSON(3)
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID, original)

	// Always returns 2 days instead of the required 7.
	extend := &scriptedCompleter{responses: []string{dayArrayJSON(2)}}
	p := NewPlanner(w.store, extend, nil, 0.4)

	_, err := p.Extend(context.Background(), w.userID, scheduleID)
	if !errors.Is(err, ErrExtensionRejected) {
		t.Fatalf("Expected ErrExtensionRejected, got %v", err)
	}

	sc, _ := w.store.GetSchedule(scheduleID)
	if sc.ScheduleJSON != original {
		t.Error("Rejected extension must leave the stored blob untouched")
	}
}

func TestExtendNoOp(t *testing.T) {
	w := newTestWorld(t, 3)
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID, dayArrayJSON(3))

	c := &scriptedCompleter{responses: []string{dayArrayJSON(1)}}
	p := NewPlanner(w.store, c, nil, 0.4)

	result, err := p.Extend(context.Background(), w.userID, scheduleID)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if !result.NoOp {
		t.Fatal("Expected no-op when the duration is already covered")
	}
	if c.calls != 0 {
		t.Errorf("No-op extension must not call the model, got %d calls", c.calls)
	}
}

func TestExtendRejectsAITextBlob(t *testing.T) {
	w := newTestWorld(t, 10)
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID, `{"ai_text":"free-form text"}`)

	p := NewPlanner(w.store, &scriptedCompleter{responses: []string{dayArrayJSON(7)}}, nil, 0.4)
	_, err := p.Extend(context.Background(), w.userID, scheduleID)
	if !errors.Is(err, ErrExtensionRejected) {
		t.Fatalf("Expected ErrExtensionRejected, got %v", err)
	}
}

func TestToggleExistingTask(t *testing.T) {
	w := newTestWorld(t, 3)
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID, dayArrayJSON(3))
	w.store.UpsertScheduleTask(scheduleID, 2, 0, "Water plant 2")

	n := &recordingNotifier{}
	p := NewPlanner(w.store, nil, n, 0.4)

	result, err := p.Toggle(context.Background(), w.userID, scheduleID, 2, 0, true)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if result.Message != "Task completed for Day 2: Water plant 2" {
		t.Errorf("Message mismatch: %q", result.Message)
	}
	if result.URL != fmt.Sprintf("/garden/schedule/%d#day-2", scheduleID) {
		t.Errorf("URL mismatch: %q", result.URL)
	}
	if len(n.completed) != 1 || n.completed[0] != "Water plant 2" {
		t.Errorf("Expected pending completion for the task, got %v", n.completed)
	}
	if len(n.recorded) != 1 {
		t.Errorf("Expected an ad-hoc notification, got %d", len(n.recorded))
	}
}

func TestToggleDerivesRowFromBlob(t *testing.T) {
	w := newTestWorld(t, 3)
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID, dayArrayJSON(3))

	p := NewPlanner(w.store, nil, nil, 0.4)

	// No task rows exist yet; the text comes from the blob's day entry.
	result, err := p.Toggle(context.Background(), w.userID, scheduleID, 3, 1, true)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if result.TaskText != "Check soil" {
		t.Errorf("Expected blob-derived text, got %q", result.TaskText)
	}

	tasks, _ := w.store.GetTasksForDay(scheduleID, 3)
	if len(tasks) != 1 || !tasks[0].Completed {
		t.Fatalf("Expected a materialized completed row, got %+v", tasks)
	}
}

func TestToggleResolvesPositionalBlob(t *testing.T) {
	w := newTestWorld(t, 3)
	// Entries without day fields resolve by their position in the array.
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID,
		`[{"tasks":["Sow"]},{"tasks":["Thin seedlings","Water"]}]`)

	p := NewPlanner(w.store, nil, nil, 0.4)
	result, err := p.Toggle(context.Background(), w.userID, scheduleID, 2, 1, true)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if result.TaskText != "Water" {
		t.Errorf("Expected positional resolution to Water, got %q", result.TaskText)
	}

	tasks, _ := w.store.GetTasksForDay(scheduleID, 2)
	if len(tasks) != 1 || !tasks[0].Completed || tasks[0].TaskText != "Water" {
		t.Fatalf("Expected a completed materialized row for Water, got %+v", tasks)
	}
}

func TestTogglePlaceholderText(t *testing.T) {
	w := newTestWorld(t, 3)
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID, `[]`)

	p := NewPlanner(w.store, nil, nil, 0.4)
	result, err := p.Toggle(context.Background(), w.userID, scheduleID, 7, 2, false)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if result.TaskText != "Task 3" {
		t.Errorf("Expected placeholder Task 3, got %q", result.TaskText)
	}
	if result.Message != "Task unmarked for Day 7: Task 3" {
		t.Errorf("Message mismatch: %q", result.Message)
	}
}

func TestToggleNotOwner(t *testing.T) {
	w := newTestWorld(t, 3)
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID, dayArrayJSON(3))
	other, _ := w.store.CreateUser("intruder", "user", false)

	p := NewPlanner(w.store, nil, nil, 0.4)
	_, err := p.Toggle(context.Background(), other, scheduleID, 1, 0, true)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Expected ErrNotAuthorized, got %v", err)
	}
}

func TestToggleSwallowsNotifierFailure(t *testing.T) {
	w := newTestWorld(t, 3)
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID, dayArrayJSON(3))

	n := &recordingNotifier{fail: true}
	p := NewPlanner(w.store, nil, n, 0.4)

	result, err := p.Toggle(context.Background(), w.userID, scheduleID, 1, 0, true)
	if err != nil {
		t.Fatalf("Toggle must not fail on notifier errors: %v", err)
	}
	if result.TaskText == "" {
		t.Error("Expected a resolved task text")
	}
}

func TestToggleUnmarkEnsuresPending(t *testing.T) {
	w := newTestWorld(t, 3)
	scheduleID, _ := w.store.CreateSchedule(w.itemID, w.userID, dayArrayJSON(3))
	w.store.UpsertScheduleTaskCompleted(scheduleID, 1, 0, "Water plant 1", true)

	n := &recordingNotifier{}
	p := NewPlanner(w.store, nil, n, 0.4)

	if _, err := p.Toggle(context.Background(), w.userID, scheduleID, 1, 0, false); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if len(n.ensured) != 1 || n.ensured[0] != "Water plant 1" {
		t.Errorf("Unmarking should re-ensure the pending slot, got %v", n.ensured)
	}
}

func TestDayNumberFallback(t *testing.T) {
	days := []Day{{Day: 5, Tasks: []string{"a"}}, {Tasks: []string{"b"}}}
	if n := DayNumber(days[0], 0); n != 5 {
		t.Errorf("Expected day field to win, got %d", n)
	}
	if n := DayNumber(days[1], 1); n != 2 {
		t.Errorf("Expected positional fallback, got %d", n)
	}
}
