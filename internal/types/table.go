// Package types loads the external types table referenced by
// structuredTypeRelatedTo spans and exposes it as a
// typetree.Provider. Only the shape of the data flowing into the
// attacher matters here, not a particular parsing strategy, so this
// loader is deliberately thin.
package types

import (
	"encoding/json"
	"fmt"
	"io"

	"trace-hotspots/internal/span"
)

// descriptor is one entry of the types JSON array: a type identified
// by id, optionally located in a source file, with nested component
// types.
type descriptor struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Location *span.Location `json:"location,omitempty"`
	Children []descriptor   `json:"children,omitempty"`
}

// key renders the descriptor's own name and location as the
// JSON-encoded string the type-tree uses as a map key; id and
// children are excluded since they are this loader's bookkeeping, not
// part of the descriptor a consumer inspects.
func (d descriptor) key() string {
	shape := struct {
		Name     string         `json:"name"`
		Location *span.Location `json:"location,omitempty"`
	}{Name: d.Name, Location: d.Location}
	b, err := json.Marshal(shape)
	if err != nil {
		return fmt.Sprintf(`{"name":%q}`, d.Name)
	}
	return string(b)
}

func (d descriptor) typeTree() span.TypeTree {
	tree := span.TypeTree{}
	for _, child := range d.Children {
		tree[child.key()] = child.typeTree()
	}
	return tree
}

// Table indexes every descriptor in a types file by id, satisfying
// internal/typetree.Provider.
type Table struct {
	byID map[string]span.TypeTree
}

// Load reads a types JSON array from r and indexes it by id. A
// malformed types file yields an empty, non-nil Table and an error;
// callers are expected to log the error and use the table anyway,
// continuing without type-comparison context rather than failing.
func Load(r io.Reader) (*Table, error) {
	var descriptors []descriptor
	if err := json.NewDecoder(r).Decode(&descriptors); err != nil {
		return &Table{byID: map[string]span.TypeTree{}}, fmt.Errorf("decoding types file: %w", err)
	}

	t := &Table{byID: make(map[string]span.TypeTree, len(descriptors))}
	for _, d := range descriptors {
		if d.ID == "" {
			continue
		}
		t.byID[d.ID] = d.typeTree()
	}
	return t, nil
}

// TypeTree implements internal/typetree.Provider.
func (t *Table) TypeTree(id string) (span.TypeTree, bool) {
	tree, ok := t.byID[id]
	return tree, ok
}
