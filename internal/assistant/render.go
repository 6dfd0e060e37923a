package assistant

import (
	"fmt"
	"strings"
)

// ChatLine is one turn of prior conversation passed to the renderer.
type ChatLine struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

const preamble = `You are a friendly gardening assistant.
Follow these rules in every reply:
- Answer only with short bullet points.
- Use between 6 and 12 bullets, never more.
- Keep the language simple, easy enough for a 12-year-old to follow.
- Base your advice only on the gardening context you are given.
- If you do not know, say so in one bullet instead of guessing.`

const (
	renderGarden      = 5
	renderSchedules   = 5
	renderJournals    = 3
	renderDetections  = 3
	renderAlerts      = 3
	renderInsights    = 4
	renderPreferences = 3
)

// RenderPrompt serializes a snapshot, prior conversation, and the user's
// message into the final prompt. Deterministic: fixed section order, empty
// sections omitted entirely, no content invented.
func RenderPrompt(snap *Snapshot, history []ChatLine, userMessage string) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")

	context := renderContext(snap)
	if context != "" {
		b.WriteString("Gardening context:\n")
		b.WriteString(context)
		b.WriteString("\n")
	}

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, line := range history {
			fmt.Fprintf(&b, "%s: %s\n", line.Role, line.Message)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\nAssistant:", userMessage)
	return b.String()
}

func renderContext(snap *Snapshot) string {
	if snap == nil {
		return ""
	}
	var b strings.Builder

	if snap.Profile.Username != "" {
		pro := ""
		if snap.Profile.IsPro {
			pro = ", pro member"
		}
		fmt.Fprintf(&b, "Gardener: %s (%s%s)\n", snap.Profile.Username, snap.Profile.Role, pro)
	}

	if len(snap.Garden) > 0 {
		b.WriteString("Garden:\n")
		for _, item := range capGarden(snap.Garden, renderGarden) {
			fmt.Fprintf(&b, "- %s", item.PlantName)
			if item.Nickname != "" {
				fmt.Fprintf(&b, " %q", item.Nickname)
			}
			if item.Quantity > 1 {
				fmt.Fprintf(&b, " x%d", item.Quantity)
			}
			if item.Location != "" {
				fmt.Fprintf(&b, " in %s", item.Location)
			}
			b.WriteString("\n")
		}
	}

	if len(snap.Schedules) > 0 {
		b.WriteString("Care schedules:\n")
		for i, sc := range snap.Schedules {
			if i >= renderSchedules {
				break
			}
			if sc.Complete {
				fmt.Fprintf(&b, "- %s: schedule complete (%d/%d tasks)\n",
					sc.PlantName, sc.TasksCompleted, sc.TasksTotal)
			} else {
				fmt.Fprintf(&b, "- %s: next Day %d - %s (%d/%d tasks done)\n",
					sc.PlantName, sc.NextTaskDay, sc.NextTask, sc.TasksCompleted, sc.TasksTotal)
			}
		}
	}

	if len(snap.Journals) > 0 {
		b.WriteString("Journal highlights:\n")
		for i, j := range snap.Journals {
			if i >= renderJournals {
				break
			}
			fmt.Fprintf(&b, "- %s (%d entries)", j.Title, j.EntryCount)
			if j.LatestPreview != "" {
				fmt.Fprintf(&b, ": %s", j.LatestPreview)
			}
			b.WriteString("\n")
		}
	}

	if len(snap.Detections) > 0 {
		b.WriteString("Recent detections:\n")
		for i, d := range snap.Detections {
			if i >= renderDetections {
				break
			}
			fmt.Fprintf(&b, "- %s: %s (%s)\n", d.Kind, d.ResultName, d.ConfidenceDisplay)
		}
	}

	if len(snap.Alerts) > 0 {
		b.WriteString("Alerts:\n")
		for i, alert := range snap.Alerts {
			if i >= renderAlerts {
				break
			}
			fmt.Fprintf(&b, "- %s\n", alert.Message)
		}
	}

	if len(snap.Insights) > 0 {
		b.WriteString("Insights:\n")
		for i, insight := range snap.Insights {
			if i >= renderInsights {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s\n", insight.Priority, insight.Message)
		}
	}

	if len(snap.Preferences) > 0 {
		b.WriteString("Preferences:\n")
		for i, pref := range snap.Preferences {
			if i >= renderPreferences {
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", pref.Key, pref.Value)
		}
	}

	if snap.Chat.MessageCount > 0 {
		fmt.Fprintf(&b, "Chat activity: %d messages", snap.Chat.MessageCount)
		if snap.Chat.LastAt != nil {
			fmt.Fprintf(&b, ", last at %s", snap.Chat.LastAt.Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func capGarden(items []GardenItem, limit int) []GardenItem {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
