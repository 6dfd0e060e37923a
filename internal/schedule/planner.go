package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/verdanthq/verdant/internal/ai"
	"github.com/verdanthq/verdant/internal/storage"
)

var (
	// ErrNotFound is returned when a schedule or garden item does not exist.
	ErrNotFound = errors.New("schedule not found")
	// ErrNotAuthorized is returned when a user does not own the target.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrExtensionRejected is returned when an extension response fails the
	// exact-length requirement. The stored schedule is left untouched.
	ErrExtensionRejected = errors.New("schedule extension rejected")
)

const (
	maxBlockDays    = 60
	defaultDuration = 30
	maxCorrections  = 2
)

// Store is the storage surface the planner needs.
type Store interface {
	GetGardenItem(itemID int64) (*storage.GardenItem, error)
	GetSchedule(scheduleID int64) (*storage.Schedule, error)
	CreateSchedule(gardenItemID, userID int64, scheduleJSON string) (int64, error)
	UpdateScheduleJSON(scheduleID int64, scheduleJSON string) error
	UpsertScheduleTask(scheduleID int64, day, taskIndex int, taskText string) error
	UpsertScheduleTaskCompleted(scheduleID int64, day, taskIndex int, taskText string, completed bool) error
	SetTaskCompletion(scheduleID int64, day, taskIndex int, completed bool) (bool, string, error)
}

// Notifier receives notification side effects from task toggles. Failures
// are logged and never fail the toggle itself.
type Notifier interface {
	Record(userID, scheduleID int64, day int, message, url string) error
	EnsurePending(userID, scheduleID int64, day int, taskText, url string) error
	CompletePending(userID, scheduleID int64, day int, taskText string) error
}

// Planner drives schedule generation and task state transitions.
type Planner struct {
	store       Store
	completer   ai.Completer
	notifier    Notifier
	temperature float64
}

// NewPlanner creates a planner. The notifier may be nil.
func NewPlanner(store Store, completer ai.Completer, notifier Notifier, temperature float64) *Planner {
	return &Planner{
		store:       store,
		completer:   completer,
		notifier:    notifier,
		temperature: temperature,
	}
}

// Result reports the outcome of a schedule generation.
type Result struct {
	ScheduleID int64
	Days       []Day
	// Degraded is set when the accepted day array did not match the
	// requested length.
	Degraded bool
	// AIText is set when the model output could not be parsed at all and
	// was stored as a raw-text blob.
	AIText bool
	// NoOp is set when an extension had no remaining days to cover.
	NoOp bool
}

// Create generates and persists a new care schedule for a garden item.
func (p *Planner) Create(ctx context.Context, userID, gardenItemID int64, stage string) (*Result, error) {
	item, err := p.store.GetGardenItem(gardenItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("garden item %d: %w", gardenItemID, ErrNotFound)
	}
	if item.UserID != userID {
		return nil, ErrNotAuthorized
	}

	stage = NormalizeStage(stage)
	target := defaultDuration
	if item.DurationDays != nil && *item.DurationDays > 0 {
		target = *item.DurationDays
		if target > maxBlockDays {
			target = maxBlockDays
		}
	}

	prompt := buildCreatePrompt(item.PlantName, item.PlantType, stage, target)
	days, raw, exact, err := p.generateDays(ctx, prompt, stage, target)
	if err != nil {
		return nil, err
	}

	if days == nil {
		// Nothing parseable came back; keep the raw text so the user still
		// sees what the model produced.
		blob, merr := json.Marshal(AITextFallback{AIText: raw})
		if merr != nil {
			return nil, fmt.Errorf("failed to marshal fallback blob: %w", merr)
		}
		id, cerr := p.store.CreateSchedule(gardenItemID, userID, string(blob))
		if cerr != nil {
			return nil, cerr
		}
		return &Result{ScheduleID: id, AIText: true}, nil
	}

	blob, err := MarshalDays(days)
	if err != nil {
		return nil, err
	}
	id, err := p.store.CreateSchedule(gardenItemID, userID, blob)
	if err != nil {
		return nil, err
	}
	if err := p.upsertTasks(id, days, 0); err != nil {
		return nil, err
	}
	return &Result{ScheduleID: id, Days: days, Degraded: !exact}, nil
}

// Extend appends the next block of days to an existing schedule. Unlike
// Create, an extension that fails the exact-length requirement is rejected
// outright and the stored blob stays byte-for-byte unchanged.
func (p *Planner) Extend(ctx context.Context, userID, scheduleID int64) (*Result, error) {
	sc, err := p.store.GetSchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("schedule %d: %w", scheduleID, ErrNotFound)
	}
	if sc.UserID != userID {
		return nil, ErrNotAuthorized
	}

	existing, perr := ParseDays(sc.ScheduleJSON)
	if perr != nil {
		return nil, fmt.Errorf("%w: stored schedule has no day array", ErrExtensionRejected)
	}

	item, err := p.store.GetGardenItem(sc.GardenItemID)
	if err != nil {
		return nil, err
	}

	duration := defaultDuration
	if item != nil && item.DurationDays != nil && *item.DurationDays > 0 {
		duration = *item.DurationDays
	}
	block := duration - len(existing)
	if block > maxBlockDays {
		block = maxBlockDays
	}
	if block <= 0 {
		return &Result{ScheduleID: sc.ID, Days: existing, NoOp: true}, nil
	}

	plantName := "your plant"
	if item != nil {
		plantName = item.PlantName
	}
	start := len(existing) + 1
	prompt := buildExtendPrompt(plantName, StageVegetative, start, block)
	days, _, exact, err := p.generateDays(ctx, prompt, StageVegetative, block)
	if err != nil {
		return nil, err
	}
	if !exact {
		return nil, fmt.Errorf("%w: expected %d days", ErrExtensionRejected, block)
	}

	for i := range days {
		if days[i].Day <= 0 {
			days[i].Day = start + i
		}
	}
	combined := append(existing, days...)
	blob, err := MarshalDays(combined)
	if err != nil {
		return nil, err
	}
	if err := p.store.UpdateScheduleJSON(sc.ID, blob); err != nil {
		return nil, err
	}
	if err := p.upsertTasks(sc.ID, days, len(existing)); err != nil {
		return nil, err
	}
	return &Result{ScheduleID: sc.ID, Days: combined}, nil
}

// ToggleResult reports a task state transition.
type ToggleResult struct {
	TaskText string
	Message  string
	URL      string
}

// Toggle flips a task's completion state, deriving the task row from the
// stored blob when it was never materialized.
func (p *Planner) Toggle(ctx context.Context, userID, scheduleID int64, day, taskIndex int, completed bool) (*ToggleResult, error) {
	sc, err := p.store.GetSchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("schedule %d: %w", scheduleID, ErrNotFound)
	}
	if sc.UserID != userID {
		return nil, ErrNotAuthorized
	}

	ok, taskText, err := p.store.SetTaskCompletion(scheduleID, day, taskIndex, completed)
	if err != nil {
		return nil, err
	}
	if !ok {
		days, _ := ParseDays(sc.ScheduleJSON)
		taskText = TaskText(days, day, taskIndex)
		if err := p.store.UpsertScheduleTaskCompleted(scheduleID, day, taskIndex, taskText, completed); err != nil {
			return nil, err
		}
	}

	verb := "completed"
	if !completed {
		verb = "unmarked"
	}
	message := fmt.Sprintf("Task %s for Day %d: %s", verb, day, taskText)
	url := fmt.Sprintf("/garden/schedule/%d#day-%d", scheduleID, day)

	if p.notifier != nil {
		if err := p.notifier.Record(userID, scheduleID, day, message, url); err != nil {
			log.Printf("verdant: toggle notification failed: %v", err)
		}
		if completed {
			if err := p.notifier.CompletePending(userID, scheduleID, day, taskText); err != nil {
				log.Printf("verdant: complete pending failed: %v", err)
			}
		} else {
			if err := p.notifier.EnsurePending(userID, scheduleID, day, taskText, url); err != nil {
				log.Printf("verdant: ensure pending failed: %v", err)
			}
		}
	}

	return &ToggleResult{TaskText: taskText, Message: message, URL: url}, nil
}

// generateDays asks the model for a day array of the requested length,
// issuing up to two corrective follow-ups. It returns the best parse it
// saw, the last raw response, and whether the length matched exactly.
// The error is non-nil only when the model itself could not be reached.
func (p *Planner) generateDays(ctx context.Context, prompt, stage string, want int) ([]Day, string, bool, error) {
	raw, err := ai.CompleteWithRetry(ctx, p.completer, ai.Request{Prompt: prompt, Temperature: p.temperature})
	if err != nil {
		return nil, "", false, err
	}

	var best []Day
	haveParse := false
	for correction := 0; ; correction++ {
		days, perr := ParseDays(ai.ExtractJSONArray(raw))
		if perr == nil {
			if len(days) == want {
				return days, raw, true, nil
			}
			best, haveParse = days, true
		}
		if correction >= maxCorrections {
			break
		}

		got := 0
		if perr == nil {
			got = len(days)
		}
		next, cerr := ai.CompleteWithRetry(ctx, p.completer, ai.Request{
			Prompt:      buildCorrectionPrompt(stage, want, got),
			Temperature: p.temperature,
		})
		if cerr != nil {
			break
		}
		raw = next
	}

	if haveParse {
		return best, raw, false, nil
	}
	return nil, raw, false, nil
}

func (p *Planner) upsertTasks(scheduleID int64, days []Day, offset int) error {
	for i, d := range days {
		dayNum := d.Day
		if dayNum <= 0 {
			dayNum = offset + i + 1
		}
		for ti, task := range d.Tasks {
			if err := p.store.UpsertScheduleTask(scheduleID, dayNum, ti, task); err != nil {
				return err
			}
		}
	}
	return nil
}
