// Package spantree turns a flat span list plus unclosed begin-events
// into a rooted hot-spot tree under a duration-and-dominance policy.
package spantree

import (
	"sort"

	"trace-hotspots/internal/span"
	"trace-hotspots/internal/traceevent"
)

// Params bounds which spans are promoted into the tree.
type Params struct {
	ThresholdDuration span.Micros
	MinPercentage     float64
}

// Build synthesizes closing spans for any still-open begin-events at
// result.MaxTime, sorts every span by start time (stably, so arrival
// order survives ties), and sweeps them against an ancestor stack
// rooted at [result.MinTime, result.MaxTime], promoting a span to a
// child of its nearest open ancestor only when it is long enough on
// its own or dominant enough relative to that ancestor.
func Build(result *traceevent.ParseResult, params Params) *span.Span {
	root := span.NewRoot(result.MinTime, result.MaxTime)

	spans := make([]*span.Span, 0, len(result.Spans)+len(result.UnclosedStack))
	spans = append(spans, result.Spans...)
	for _, begin := range result.UnclosedStack {
		begin.End = result.MaxTime
		spans = append(spans, begin)
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})

	ancestors := []*span.Span{root}
	for _, s := range spans {
		for len(ancestors) > 1 && ancestors[len(ancestors)-1].End <= s.Start {
			ancestors = ancestors[:len(ancestors)-1]
		}
		parent := ancestors[len(ancestors)-1]

		duration := s.Duration()
		parentDuration := parent.Duration()

		promote := duration >= params.ThresholdDuration ||
			(parentDuration > 0 && float64(duration) >= params.MinPercentage*float64(parentDuration))
		if !promote {
			continue
		}

		parent.Children = append(parent.Children, s)
		ancestors = append(ancestors, s)
	}

	return root
}
