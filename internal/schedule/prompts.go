package schedule

import (
	"fmt"
	"strings"
)

func buildCreatePrompt(plantName, plantType, stage string, targetDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a gardening assistant. Create a day-by-day care schedule for a plant.

Plant: %s`, plantName)
	if plantType != "" {
		fmt.Fprintf(&b, " (%s)", plantType)
	}
	fmt.Fprintf(&b, `
Current growth stage: %s

Respond ONLY with a valid JSON array of exactly %d objects, one per day, in this exact format:
[{"day": 1, "tasks": ["<task>", "<task>"]}, {"day": 2, "tasks": ["<task>"]}]

Rules:
- The array must contain exactly %d entries, for days 1 through %d.
- Each entry has a "day" number and a "tasks" array of short, concrete care tasks.
- Do not include any text outside the JSON array.`, stage, targetDays, targetDays, targetDays)

	if stage == StageSeed {
		b.WriteString(`
- Day 1 must include sowing the seeds and an initial watering task.`)
	}
	return b.String()
}

func buildExtendPrompt(plantName, stage string, startDay, count int) string {
	endDay := startDay + count - 1
	return fmt.Sprintf(`You are a gardening assistant. Continue an existing day-by-day care schedule for a plant.

Plant: %s
Current growth stage: %s

The schedule already covers days 1 through %d. Generate the continuation for days %d through %d.

Respond ONLY with a valid JSON array of exactly %d objects, one per day, in this exact format:
[{"day": %d, "tasks": ["<task>", "<task>"]}]

Rules:
- The array must contain exactly %d entries, numbered from day %d.
- Each entry has a "day" number and a "tasks" array of short, concrete care tasks.
- Do not include any text outside the JSON array.`,
		plantName, stage, startDay-1, startDay, endDay, count, startDay, count, startDay)
}

func buildCorrectionPrompt(stage string, expected int, got int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Your previous response did not contain exactly %d day entries (it had %d). Respond again with ONLY a valid JSON array of exactly %d objects in the format [{"day": 1, "tasks": ["<task>"]}]. No other text.
Current growth stage: %s.`, expected, got, expected, stage)
	if stage == StageSeed {
		b.WriteString(` Day 1 must include sowing the seeds and an initial watering task.`)
	}
	return b.String()
}
