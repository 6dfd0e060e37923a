package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	verdant "github.com/verdanthq/verdant"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatHuman Format = "human"
)

type Formatter struct {
	format Format
	out    io.Writer
	err    io.Writer
}

// NewFormatter creates a new output formatter
func NewFormatter(format Format) *Formatter {
	return &Formatter{
		format: format,
		out:    os.Stdout,
		err:    os.Stderr,
	}
}

// NewFormatterWithWriters creates a formatter with custom output writers for testability
func NewFormatterWithWriters(format Format, out, errW io.Writer) *Formatter {
	return &Formatter{
		format: format,
		out:    out,
		err:    errW,
	}
}

// OutputGarden outputs a user's garden items
func (f *Formatter) OutputGarden(items []verdant.GardenItem) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(items)
	case FormatText:
		for _, it := range items {
			fmt.Fprintf(f.out, "id=%d\tplant=%s\tnickname=%s\tlocation=%s\tqty=%d\tschedule=%s\n",
				it.ID, it.PlantName, it.Nickname, it.Location, it.Quantity, formatID(it.CurrentScheduleID))
		}
		return nil
	case FormatHuman:
		if len(items) == 0 {
			fmt.Fprintln(f.out, "Your garden is empty")
			return nil
		}
		fmt.Fprintf(f.out, "Garden (%d items):\n\n", len(items))
		for _, it := range items {
			fmt.Fprintf(f.out, "ID: %d\n", it.ID)
			fmt.Fprintf(f.out, "Plant: %s", it.PlantName)
			if it.Nickname != "" {
				fmt.Fprintf(f.out, " (%q)", it.Nickname)
			}
			fmt.Fprintln(f.out, "")
			if it.Location != "" {
				fmt.Fprintf(f.out, "Location: %s\n", it.Location)
			}
			if it.CurrentScheduleID != nil {
				fmt.Fprintf(f.out, "Schedule: %d\n", *it.CurrentScheduleID)
			}
			if it.LastWatered != nil {
				fmt.Fprintf(f.out, "Last watered: %s\n", it.LastWatered.Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(f.out, "---")
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputScheduleResult outputs the result of a schedule create or extend
func (f *Formatter) OutputScheduleResult(result *verdant.ScheduleResult) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(result)
	case FormatText:
		fmt.Fprintf(f.out, "schedule_id=%d\tdays=%d\tdegraded=%v\tai_text=%v\tno_op=%v\n",
			result.ScheduleID, len(result.Days), result.Degraded, result.AIText, result.NoOp)
		return nil
	case FormatHuman:
		if result.NoOp {
			fmt.Fprintln(f.out, "Schedule already covers the full growing period")
			return nil
		}
		if result.AIText {
			fmt.Fprintf(f.out, "Schedule %d saved as free text (the model did not return a day plan)\n", result.ScheduleID)
			return nil
		}
		fmt.Fprintf(f.out, "Schedule %d: %d days\n", result.ScheduleID, len(result.Days))
		if result.Degraded {
			fmt.Fprintln(f.out, "Note: the plan length differs from the requested duration")
		}
		return f.OutputScheduleDays(result.Days)
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputScheduleDays outputs a day-by-day care plan
func (f *Formatter) OutputScheduleDays(days []verdant.ScheduleDay) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(days)
	case FormatText:
		for _, d := range days {
			fmt.Fprintf(f.out, "day=%d\ttasks=%s\n", d.Day, strings.Join(d.Tasks, "; "))
		}
		return nil
	case FormatHuman:
		for _, d := range days {
			fmt.Fprintf(f.out, "Day %d:\n", d.Day)
			for _, task := range d.Tasks {
				fmt.Fprintf(f.out, "  - %s\n", task)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputNotifications outputs a notification feed
func (f *Formatter) OutputNotifications(notifs []verdant.Notification) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(notifs)
	case FormatText:
		for _, n := range notifs {
			fmt.Fprintf(f.out, "id=%d\tkind=%s\tmessage=%s\turl=%s\tcreated=%s\n",
				n.ID, n.Kind, n.Message, n.URL, n.CreatedAt.Format(time.RFC3339))
		}
		return nil
	case FormatHuman:
		if len(notifs) == 0 {
			fmt.Fprintln(f.out, "No notifications")
			return nil
		}
		for _, n := range notifs {
			fmt.Fprintf(f.out, "🔔 %s\n", n.Message)
			if n.URL != "" {
				fmt.Fprintf(f.out, "   %s\n", n.URL)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputScanResult outputs the result of a due-today scan
func (f *Formatter) OutputScanResult(result *verdant.ScanResult) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(result)
	case FormatText:
		fmt.Fprintf(f.out, "schedules=%d\tensured=%d\tcompleted=%d\n",
			result.SchedulesScanned, result.Ensured, result.Completed)
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Scanned %d schedules: %d tasks due, %d already done\n",
			result.SchedulesScanned, result.Ensured, result.Completed)
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputChatReply outputs an assistant reply
func (f *Formatter) OutputChatReply(reply string) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(map[string]string{"reply": reply})
	case FormatText, FormatHuman:
		fmt.Fprintln(f.out, reply)
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputJournals outputs a user's journals
func (f *Formatter) OutputJournals(journals []verdant.Journal) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(journals)
	case FormatText:
		for _, j := range journals {
			fmt.Fprintf(f.out, "id=%d\ttitle=%s\tentries=%d\tlatest=%s\n",
				j.ID, j.Title, j.EntryCount, formatTime(j.LatestEntryDate))
		}
		return nil
	case FormatHuman:
		if len(journals) == 0 {
			fmt.Fprintln(f.out, "No journals yet")
			return nil
		}
		for _, j := range journals {
			fmt.Fprintf(f.out, "📓 %s (%d entries", j.Title, j.EntryCount)
			if j.LatestEntryDate != nil {
				fmt.Fprintf(f.out, ", last %s", j.LatestEntryDate.Format("Jan 2, 2006"))
			}
			fmt.Fprintln(f.out, ")")
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputMemories outputs remembered preference entries
func (f *Formatter) OutputMemories(entries []verdant.MemoryEntry) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(entries)
	case FormatText:
		for _, m := range entries {
			fmt.Fprintf(f.out, "key=%s\tvalue=%s\n", m.Key, m.Value)
		}
		return nil
	case FormatHuman:
		if len(entries) == 0 {
			fmt.Fprintln(f.out, "Nothing remembered yet")
			return nil
		}
		for _, m := range entries {
			fmt.Fprintf(f.out, "%s: %s\n", m.Key, m.Value)
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputDetection outputs a detection result
func (f *Formatter) OutputDetection(det *verdant.Detection) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(det)
	case FormatText:
		fmt.Fprintf(f.out, "kind=%s\tresult=%s\tconfidence=%s\n",
			det.Kind, det.ResultName, det.ConfidenceDisplay)
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Detected %s: %s (confidence %s)\n",
			det.Kind, det.ResultName, det.ConfidenceDisplay)
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputContext outputs an assistant context snapshot
func (f *Formatter) OutputContext(snap *verdant.ContextSnapshot) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(snap)
	case FormatText, FormatHuman:
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// Error outputs an error message to stderr
func (f *Formatter) Error(format string, args ...interface{}) {
	fmt.Fprintf(f.err, format+"\n", args...)
}

// Warning outputs a warning message to stderr
func (f *Formatter) Warning(format string, args ...interface{}) {
	fmt.Fprintf(f.err, "Warning: "+format+"\n", args...)
}

// formatTime formats a time pointer for output
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// formatID formats an optional ID for text output
func formatID(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}
