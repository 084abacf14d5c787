// Package traceevent streams a Chrome-Trace-Event-Format JSON array
// and reconstructs closed spans from its B/E/X events.
package traceevent

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	multierror "github.com/hashicorp/go-multierror"

	"trace-hotspots/internal/span"
)

// ParseResult is the output of Ingest: the observed time range, the
// spans that closed and met minDuration, and the begin-events still
// open when the stream ended.
type ParseResult struct {
	MinTime       span.Micros
	MaxTime       span.Micros
	Spans         []*span.Span
	UnclosedStack []*span.Span
	Warnings      *multierror.Error
}

// Ingest consumes r as a single top-level JSON array of event objects.
// Only objects at the array's top level are delivered to the handler;
// the decoder's own nesting tracking keeps nested arrays/objects
// (i.e. args) opaque and un-buffered beyond the single event.
func Ingest(r io.Reader, minDuration span.Micros, logger log.Logger) (*ParseResult, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return nil, fmt.Errorf("reading trace: expected top-level array, got %v", tok)
	}

	result := &ParseResult{}
	firstObserved := false
	observe := func(start, end span.Micros) {
		if !firstObserved {
			result.MinTime, result.MaxTime = start, end
			firstObserved = true
			return
		}
		if start < result.MinTime {
			result.MinTime = start
		}
		if end > result.MaxTime {
			result.MaxTime = end
		}
	}

	var open []*span.Span

	for dec.More() {
		var raw rawEvent
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding trace event: %w", err)
		}
		ev := raw.toEvent()

		switch ev.Phase {
		case "M", "i", "I":
			// metadata and instant events carry no duration; dropped.
			continue
		case "B":
			begin := &span.Span{Start: ev.Time, Event: ev}
			open = append(open, begin)
			observe(ev.Time, ev.Time)
		case "E":
			if len(open) == 0 {
				level.Warn(logger).Log("msg", "E event with no matching B", "name", ev.Name, "ts", ev.Time)
				result.Warnings = multierror.Append(result.Warnings, fmt.Errorf("unmatched E event %q at ts=%d", ev.Name, ev.Time))
				continue
			}
			begin := open[len(open)-1]
			open = open[:len(open)-1]
			begin.End = ev.Time
			observe(begin.Start, begin.End)
			if begin.End-begin.Start >= minDuration {
				result.Spans = append(result.Spans, begin)
			}
		case "X":
			s := &span.Span{Start: ev.Time, End: ev.Time + ev.Duration, Event: ev}
			observe(s.Start, s.End)
			if s.End-s.Start >= minDuration {
				result.Spans = append(result.Spans, s)
			}
		default:
			level.Warn(logger).Log("msg", "unknown event phase", "phase", ev.Phase, "name", ev.Name)
			result.Warnings = multierror.Append(result.Warnings, fmt.Errorf("unknown phase %q for event %q", ev.Phase, ev.Name))
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading trace: expected closing ']': %w", err)
	}

	for _, begin := range open {
		level.Warn(logger).Log("msg", "unclosed begin event at end of stream", "name", begin.Event.Name, "start", begin.Start)
		result.Warnings = multierror.Append(result.Warnings, fmt.Errorf("unclosed begin event %q starting at ts=%d", begin.Event.Name, begin.Start))
	}
	result.UnclosedStack = open

	return result, nil
}
