package position

import (
	"encoding/json"

	"trace-hotspots/internal/span"
)

// Requests is the per-file raw positions gathered from a span tree,
// ready to hand to Normalize one file at a time.
type Requests map[string][]Raw

// Collect walks the span tree once: it tracks the current source file
// (set by checkSourceFile spans) and, for every check-category span
// under it, records args.pos and args.end; it also walks every
// attached type-tree's location fields regardless of the current
// file, since a location carries its own path.
func Collect(root *span.Span) Requests {
	reqs := Requests{}
	add := func(path string, r Raw) {
		if path == "" {
			return
		}
		reqs[path] = append(reqs[path], r)
	}

	var walk func(s *span.Span, currentFile string)
	walk = func(s *span.Span, currentFile string) {
		if s.Event.Name == "checkSourceFile" && s.Event.Args.Path != "" {
			currentFile = s.Event.Args.Path
		}

		if s.Event.Category == "check" && currentFile != "" {
			if s.Event.Args.Pos != nil {
				add(currentFile, Raw{IsOffset: true, Offset: *s.Event.Args.Pos})
			}
			if s.Event.Args.End != nil {
				add(currentFile, Raw{IsOffset: true, Offset: -*s.Event.Args.End})
			}
		}

		if s.TypeTree != nil {
			CollectLocations(s.TypeTree, reqs)
		}

		for _, child := range s.Children {
			walk(child, currentFile)
		}
	}
	walk(root, "")

	return reqs
}

// CollectLocations recursively gathers (line, column) raw positions
// from every location a type-tree's descriptors carry, keyed by the
// location's own path. The type-tree's keys are JSON-encoded
// descriptors; locationOf decodes each key's optional location.
func CollectLocations(tree span.TypeTree, into Requests) {
	for key, sub := range tree {
		if loc, ok := locationOf(key); ok {
			into[loc.Path] = append(into[loc.Path], Raw{Line: loc.Line, Column: loc.Column})
		}
		CollectLocations(sub, into)
	}
}

// locationOf decodes a type-tree key's optional embedded location.
// Keys are opaque JSON-encoded type descriptors; most carry no
// location at all, which decodes to the zero value and ok=false.
func locationOf(key string) (span.Location, bool) {
	var descriptor struct {
		Location *span.Location `json:"location"`
	}
	if err := json.Unmarshal([]byte(key), &descriptor); err != nil || descriptor.Location == nil {
		return span.Location{}, false
	}
	return *descriptor.Location, true
}
