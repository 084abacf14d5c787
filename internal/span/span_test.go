package span

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	s := &Span{Start: 100, End: 350}
	assert.Equal(t, Micros(250), s.Duration())
}

func TestIsLeaf(t *testing.T) {
	leaf := &Span{}
	assert.True(t, leaf.IsLeaf())

	parent := &Span{Children: []*Span{leaf}}
	assert.False(t, parent.IsLeaf())
}

func TestNewRoot(t *testing.T) {
	root := NewRoot(10, 1000)
	assert.Equal(t, Micros(10), root.Start)
	assert.Equal(t, Micros(1000), root.End)
	assert.Equal(t, "root", root.Event.Name)
	assert.True(t, root.IsLeaf())
}
