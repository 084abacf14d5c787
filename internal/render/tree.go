// Package render consumes an annotated span tree plus a position map
// and produces a presentable tree of hot spots.
package render

import (
	"fmt"
	"sort"

	"trace-hotspots/internal/position"
	"trace-hotspots/internal/span"
)

// Location names a file and the resolved (line, column) a raw offset
// bound to, the shape carried by a printable node's Start/End.
type Location struct {
	File   string
	Offset int64
	Line   int
	Column int
}

// Node is one entry in the printable tree: a kind tag, a message pair,
// a rounded duration, optional resolved endpoints, and children
// ordered by descending duration.
type Node struct {
	Kind         string
	Message      string
	TerseMessage string
	Milliseconds int64
	Start        *Location
	End          *Location
	Children     []*Node
}

// Build walks the annotated span tree and the resolved position map,
// producing the printable tree. Every span below the root gets a node:
// spans whose event does not map to a recognized kind, and are not
// check-category, become a "generic" node named after their event.
func Build(root *span.Span, positions position.Map) []*Node {
	var build func(s *span.Span, currentFile string) *Node
	build = func(s *span.Span, currentFile string) *Node {
		if s.Event.Name == "checkSourceFile" && s.Event.Args.Path != "" {
			currentFile = s.Event.Args.Path
		}

		node := nodeFor(s, currentFile, positions)

		var children []*Node
		for _, child := range s.Children {
			if n := build(child, currentFile); n != nil {
				children = append(children, n)
			}
		}
		sort.SliceStable(children, func(i, j int) bool {
			return children[i].Milliseconds > children[j].Milliseconds
		})

		if node == nil {
			// an elided span's children are dropped along with it; the
			// contract explicitly permits this rather than hoisting.
			return nil
		}
		node.Children = children
		return node
	}

	var roots []*Node
	for _, child := range root.Children {
		if n := build(child, ""); n != nil {
			roots = append(roots, n)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Milliseconds > roots[j].Milliseconds
	})
	return roots
}

func nodeFor(s *span.Span, currentFile string, positions position.Map) *Node {
	ms := (int64(s.Duration()) + 500) / 1000

	switch {
	case s.Event.Name == "checkSourceFile":
		return &Node{
			Kind:         "checkSourceFile",
			Message:      fmt.Sprintf("check source file %s", s.Event.Args.Path),
			TerseMessage: s.Event.Args.Path,
			Milliseconds: ms,
		}
	case s.Event.Name == "structuredTypeRelatedTo":
		return &Node{
			Kind:         "structuredTypeRelatedTo",
			Message:      fmt.Sprintf("compare types %s -> %s", s.Event.Args.SourceID, s.Event.Args.TargetID),
			TerseMessage: "structuredTypeRelatedTo",
			Milliseconds: ms,
		}
	case s.Event.Name == "getVariancesWorker":
		return &Node{
			Kind:         "getVariancesWorker",
			Message:      "compute type parameter variances",
			TerseMessage: "getVariancesWorker",
			Milliseconds: ms,
		}
	case s.Event.Category == "check":
		start := resolveOffset(currentFile, s.Event.Args.Pos, positions)
		end := resolveOffset(currentFile, s.Event.Args.End, positions)
		return &Node{
			Kind:         "check",
			Message:      checkMessage(s.Event.Name, start, end),
			TerseMessage: s.Event.Name,
			Milliseconds: ms,
			Start:        start,
			End:          end,
		}
	default:
		// a promoted span whose event matches none of the named kinds
		// still reached the hot-spot tree on its own merits, so it gets
		// a generic node rather than being dropped silently.
		return &Node{
			Kind:         "generic",
			Message:      s.Event.Name,
			TerseMessage: s.Event.Name,
			Milliseconds: ms,
		}
	}
}

// resolveOffset looks up a raw offset's normalized position, returning
// an unresolved Location (line/column zero) if currentFile is unknown
// or the file's positions could not be read.
func resolveOffset(currentFile string, raw *int64, positions position.Map) *Location {
	if raw == nil {
		return nil
	}
	loc := &Location{File: currentFile, Offset: *raw}
	key := position.Raw{IsOffset: true, Offset: *raw}.Key()
	if byFile, ok := positions[currentFile]; ok {
		if resolved, ok := byFile[key]; ok {
			loc.Line, loc.Column = resolved.Line, resolved.Column
		}
	}
	return loc
}

func checkMessage(name string, start, end *Location) string {
	if start == nil {
		return name
	}
	if end == nil || end.Line == 0 {
		if start.Line == 0 {
			return fmt.Sprintf("%s at offset %d", name, start.Offset)
		}
		return fmt.Sprintf("%s at %d:%d", name, start.Line, start.Column)
	}
	return fmt.Sprintf("%s %d:%d-%d:%d", name, start.Line, start.Column, end.Line, end.Column)
}
