package traceevent

import (
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trace-hotspots/internal/span"
)

func discardLogger() log.Logger {
	return log.NewNopLogger()
}

func TestIngestEmptyTrace(t *testing.T) {
	result, err := Ingest(strings.NewReader("[]"), 0, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, result.Spans)
	assert.Empty(t, result.UnclosedStack)
}

func TestIngestSingleXSpan(t *testing.T) {
	trace := `[{"ph":"X","ts":1000,"dur":600000,"name":"root","cat":"x"}]`
	result, err := Ingest(strings.NewReader(trace), 0, discardLogger())
	require.NoError(t, err)
	require.Len(t, result.Spans, 1)

	s := result.Spans[0]
	assert.Equal(t, span.Micros(1000), s.Start)
	assert.Equal(t, span.Micros(601000), s.End)
	assert.Equal(t, span.Micros(1000), result.MinTime)
	assert.Equal(t, span.Micros(601000), result.MaxTime)
}

func TestIngestStringTimestamps(t *testing.T) {
	trace := `[{"ph":"X","ts":"1000","dur":"500","name":"checkSourceFile","cat":"check","args":{"path":"a.ts"}}]`
	result, err := Ingest(strings.NewReader(trace), 0, discardLogger())
	require.NoError(t, err)
	require.Len(t, result.Spans, 1)
	assert.Equal(t, "a.ts", result.Spans[0].Event.Args.Path)
}

func TestIngestBeginEndPair(t *testing.T) {
	trace := `[
		{"ph":"B","ts":100,"name":"outer","cat":"check"},
		{"ph":"E","ts":900,"name":"outer","cat":"check"}
	]`
	result, err := Ingest(strings.NewReader(trace), 0, discardLogger())
	require.NoError(t, err)
	require.Len(t, result.Spans, 1)
	assert.Equal(t, span.Micros(800), result.Spans[0].Duration())
}

func TestIngestMinDurationFilter(t *testing.T) {
	trace := `[{"ph":"X","ts":0,"dur":10,"name":"tiny","cat":"check"}]`
	result, err := Ingest(strings.NewReader(trace), 100, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, result.Spans)
}

func TestIngestUnclosedBeginAtEOF(t *testing.T) {
	trace := `[{"ph":"B","ts":0,"name":"leak","cat":"check"}]`
	result, err := Ingest(strings.NewReader(trace), 0, discardLogger())
	require.NoError(t, err)
	require.Len(t, result.UnclosedStack, 1)
	assert.NotNil(t, result.Warnings)
}

func TestIngestUnknownPhaseWarns(t *testing.T) {
	trace := `[{"ph":"Z","ts":0,"name":"mystery","cat":"check"}]`
	result, err := Ingest(strings.NewReader(trace), 0, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, result.Warnings)
	assert.Empty(t, result.Spans)
}

func TestIngestMetadataEventsDropped(t *testing.T) {
	trace := `[{"ph":"M","ts":0,"name":"process_name","cat":"__metadata"}]`
	result, err := Ingest(strings.NewReader(trace), 0, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, result.Spans)
	assert.Nil(t, result.Warnings)
}

func TestIngestMalformedTopLevelErrors(t *testing.T) {
	_, err := Ingest(strings.NewReader(`{"not":"an array"}`), 0, discardLogger())
	assert.Error(t, err)
}

func TestIngestUnmatchedEndWarns(t *testing.T) {
	trace := `[{"ph":"E","ts":0,"name":"orphan","cat":"check"}]`
	result, err := Ingest(strings.NewReader(trace), 0, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, result.Warnings)
}
