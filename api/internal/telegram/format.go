package telegram

import (
	"encoding/json"
	"strings"

	"pylon/api/internal/flyer"
)

// FormatInfo renders an extraction result as a chat reply.
// Anything that does not decode into event fields is shown verbatim.
func FormatInfo(raw json.RawMessage) string {
	var info flyer.Info
	if err := json.Unmarshal(raw, &info); err != nil || info == (flyer.Info{}) {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return "Could not read event details:\n\n" + s
		}
		return "Could not read event details:\n\n" + string(raw)
	}

	var b strings.Builder
	line := func(label, v string) {
		if v = strings.TrimSpace(v); v == "" {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteByte('\n')
	}
	line("Event", info.EventName)
	line("Date", info.Date)
	line("Time", info.Time)
	line("Location", info.Location)
	line("Tickets", info.TicketInfo)
	if d := strings.TrimSpace(info.Description); d != "" {
		b.WriteString("\n")
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
