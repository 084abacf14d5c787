// Package span defines the closed time-interval types shared by the
// ingester, tree builder, type attacher, and position collector.
package span

// Micros is a trace timestamp or duration in microseconds.
type Micros int64

// Event is a single lifted trace record. Only B, E and X phases ever
// become a Span; M and i/I are dropped before reaching this package.
type Event struct {
	Phase    string
	Time     Micros
	Duration Micros
	Name     string
	Category string
	Args     Args
}

// Args is the subset of an event's opaque args object this system
// reads. Fields are populated selectively depending on event.Name;
// zero-value/empty means "not present" for whichever fields a given
// event kind doesn't carry.
type Args struct {
	Path     string
	Pos      *int64
	End      *int64
	SourceID string
	TargetID string
}

// TypeTree is a recursive mapping whose keys are JSON-encoded type
// descriptors and whose values are sub-type-trees. It is defined here,
// rather than in its own package, so both the type-tree attacher and
// the position collector can depend on span without a cycle between
// them.
type TypeTree map[string]TypeTree

// Location is the {path, line, column} a type descriptor may carry.
// Line and Column are 1-based and pre-normalization. The position
// normalizer does not rewrite them: their resolved positions are
// stored only in the position Map, keyed by "line,col".
type Location struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Span is a closed interval [Start, End) owning its children in
// start-time order.
type Span struct {
	Start    Micros
	End      Micros
	Event    Event
	Children []*Span
	TypeTree TypeTree
}

// Duration returns End - Start. The root span and any synthesized
// span from an unclosed begin-event may have Duration() == 0.
func (s *Span) Duration() Micros {
	return s.End - s.Start
}

// IsLeaf reports whether s has no children, the condition the type-tree
// attacher uses to decide whether a structuredTypeRelatedTo span is
// eligible for attachment.
func (s *Span) IsLeaf() bool {
	return len(s.Children) == 0
}

// NewRoot synthesizes the span-tree root [minTime, maxTime] that owns
// every top-level promoted span.
func NewRoot(minTime, maxTime Micros) *Span {
	return &Span{
		Start: minTime,
		End:   maxTime,
		Event: Event{Name: "root", Category: "root"},
	}
}
