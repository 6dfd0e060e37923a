package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PreviewLimit bounds every free-text field pulled into a snapshot.
const PreviewLimit = 180

// Shorten collapses whitespace and truncates to limit runes with an
// ellipsis terminator.
func Shorten(text string, limit int) string {
	s := strings.Join(strings.Fields(text), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// ConfidenceDisplay normalizes a detection result's confidence into a
// percentage string. Values above 1 are treated as percentages already,
// values in [0,1] as fractions. Anything unreadable renders as "?".
func ConfidenceDisplay(resultJSON string) string {
	var payload map[string]any
	if err := json.Unmarshal([]byte(resultJSON), &payload); err != nil {
		return "?"
	}
	raw, ok := payload["confidence"]
	if !ok {
		return "?"
	}
	val, ok := raw.(float64)
	if !ok {
		return "?"
	}
	if val > 1 {
		return fmt.Sprintf("%.0f%%", val)
	}
	return fmt.Sprintf("%.0f%%", val*100)
}
