package traceevent

import (
	"github.com/buger/jsonparser"

	"trace-hotspots/internal/span"
)

// extractArgs pulls the handful of keys this system ever reads out of
// an event's opaque args object, picking which keys to look for based
// on the event's name rather than unmarshaling the whole object. raw
// may be nil (no args present at all).
func extractArgs(name string, raw []byte) span.Args {
	var a span.Args
	if len(raw) == 0 {
		return a
	}

	switch name {
	case "checkSourceFile":
		if v, err := jsonparser.GetString(raw, "path"); err == nil {
			a.Path = v
		}
	case "structuredTypeRelatedTo":
		if v, err := jsonparser.GetString(raw, "sourceId"); err == nil {
			a.SourceID = v
		}
		if v, err := jsonparser.GetString(raw, "targetId"); err == nil {
			a.TargetID = v
		}
	default:
		if v, err := jsonparser.GetInt(raw, "pos"); err == nil {
			a.Pos = &v
		}
		if v, err := jsonparser.GetInt(raw, "end"); err == nil {
			a.End = &v
		}
	}
	return a
}
