package schedule

import (
	"encoding/json"
	"fmt"
)

// Day is one entry of a schedule blob.
type Day struct {
	Day   int      `json:"day"`
	Tasks []string `json:"tasks"`
}

// AITextFallback is the degraded blob shape stored when a model response
// could not be parsed as a day array.
type AITextFallback struct {
	AIText string `json:"ai_text"`
}

// ParseDays decodes a schedule blob into its day array. Degraded ai_text
// blobs and malformed JSON return an error.
func ParseDays(blob string) ([]Day, error) {
	var days []Day
	if err := json.Unmarshal([]byte(blob), &days); err != nil {
		return nil, fmt.Errorf("schedule blob is not a day array: %w", err)
	}
	return days, nil
}

// MarshalDays encodes a day array into the canonical blob form.
func MarshalDays(days []Day) (string, error) {
	b, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("failed to marshal days: %w", err)
	}
	return string(b), nil
}

// DayNumber resolves the day number for an entry: the entry's own day field
// when positive, otherwise its 1-based position in the array.
func DayNumber(d Day, index int) int {
	if d.Day > 0 {
		return d.Day
	}
	return index + 1
}

// TaskText resolves the text for a task slot from a day array. It tries an
// exact day-field match first, then positional lookup, then falls back to a
// numbered placeholder.
func TaskText(days []Day, day, taskIndex int) string {
	for _, d := range days {
		if d.Day == day {
			if taskIndex >= 0 && taskIndex < len(d.Tasks) {
				return d.Tasks[taskIndex]
			}
			break
		}
	}
	if day >= 1 && day <= len(days) {
		d := days[day-1]
		if taskIndex >= 0 && taskIndex < len(d.Tasks) {
			return d.Tasks[taskIndex]
		}
	}
	return fmt.Sprintf("Task %d", taskIndex+1)
}
