package traceevent

import (
	"encoding/json"
	"fmt"
	"strconv"

	"trace-hotspots/internal/span"
)

// flexInt decodes a Chrome-Trace-Event-Format timestamp or duration,
// which the format allows to appear as either a JSON number or a
// numeric string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("flexInt: %w", err)
		}
		*f = flexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// rawEvent is the on-the-wire shape of one trace event. args is kept
// as a raw message: only a handful of its keys matter, and most events
// never reach the places that need them, so a second full unmarshal is
// avoided in favor of targeted field extraction in args.go.
type rawEvent struct {
	Phase    string          `json:"ph"`
	Time     flexInt         `json:"ts"`
	Duration flexInt         `json:"dur"`
	Name     string          `json:"name"`
	Category string          `json:"cat"`
	Args     json.RawMessage `json:"args"`
}

func (e rawEvent) toEvent() span.Event {
	return span.Event{
		Phase:    e.Phase,
		Time:     span.Micros(e.Time),
		Duration: span.Micros(e.Duration),
		Name:     e.Name,
		Category: e.Category,
		Args:     extractArgs(e.Name, e.Args),
	}
}
