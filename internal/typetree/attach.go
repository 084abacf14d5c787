// Package typetree attaches type-comparison context to leaf spans
// that report a structured type relation check.
package typetree

import (
	"trace-hotspots/internal/span"
)

// Provider resolves a type id to its type-tree. Implementations are
// expected to memoize: Attach consults the same id at most once per
// call via its own cache, but a Provider backing multiple analyses
// in one run (the MCP server holds several loaded traces) benefits
// from caching too.
type Provider interface {
	TypeTree(id string) (span.TypeTree, bool)
}

// Attach walks root and, for every leaf span named
// structuredTypeRelatedTo, fetches the type-trees rooted at its
// sourceId and targetId and merges them onto the span as TypeTree.
// Lookups are cached for the duration of this call so a type id
// repeated across many relation checks is resolved once.
func Attach(root *span.Span, provider Provider) {
	cache := map[string]span.TypeTree{}
	resolve := func(id string) span.TypeTree {
		if id == "" {
			return nil
		}
		if cached, ok := cache[id]; ok {
			return cached
		}
		tree, ok := provider.TypeTree(id)
		if !ok {
			tree = span.TypeTree{}
		}
		cache[id] = tree
		return tree
	}

	var walk func(s *span.Span)
	walk = func(s *span.Span) {
		for _, child := range s.Children {
			walk(child)
		}
		if !s.IsLeaf() || s.Event.Name != "structuredTypeRelatedTo" {
			return
		}
		merged := span.TypeTree{}
		for k, v := range resolve(s.Event.Args.SourceID) {
			merged[k] = v
		}
		for k, v := range resolve(s.Event.Args.TargetID) {
			merged[k] = v
		}
		s.TypeTree = merged
	}
	walk(root)
}
