package position

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/go-kit/log"
)

func discardLogger() log.Logger {
	return log.NewNopLogger()
}

func stringOpener(contents string) Opener {
	return func(path string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(contents)), nil
	}
}

func TestNormalizeSkipsLineComment(t *testing.T) {
	src := "// a comment\nfoo"
	idx := strings.Index(src, "foo")
	reqs := Requests{"f.ts": {{IsOffset: true, Offset: int64(idx)}}}

	result, warnings := Normalize(reqs, stringOpener(src), discardLogger())
	if warnings != nil {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	got := result["f.ts"][Raw{IsOffset: true, Offset: int64(idx)}.Key()]
	if got.Line != 2 || got.Column != 1 {
		t.Fatalf("resolved position = %+v, want line 2 col 1", got)
	}
}

func TestNormalizeSkipsBlockComment(t *testing.T) {
	src := "/* block\ncomment */bar"
	idx := strings.Index(src, "bar")
	reqs := Requests{"f.ts": {{IsOffset: true, Offset: int64(idx)}}}

	result, warnings := Normalize(reqs, stringOpener(src), discardLogger())
	if warnings != nil {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	got := result["f.ts"][Raw{IsOffset: true, Offset: int64(idx)}.Key()]
	if got.Line != 2 {
		t.Fatalf("resolved line = %d, want 2", got.Line)
	}
}

func TestNormalizeSkipsShebangOnlyAtOffsetZero(t *testing.T) {
	src := "#!/usr/bin/env node\nconst x = 1;"
	idx := strings.Index(src, "const")
	reqs := Requests{"f.ts": {{IsOffset: true, Offset: int64(idx)}}}

	result, warnings := Normalize(reqs, stringOpener(src), discardLogger())
	if warnings != nil {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	got := result["f.ts"][Raw{IsOffset: true, Offset: int64(idx)}.Key()]
	if got.Line != 2 || got.Column != 1 {
		t.Fatalf("resolved position = %+v, want line 2 col 1", got)
	}
}

func TestNormalizeTemplateHoleIsScannedAsCode(t *testing.T) {
	// the hole's contents (`b`) are ordinary code, not template text,
	// and the character right after the hole closes resumes template
	// scanning.
	src := "const s = `a${b}c`;"
	holeVarIdx := strings.Index(src, "b}")
	reqs := Requests{"f.ts": {{IsOffset: true, Offset: int64(holeVarIdx)}}}

	result, _ := Normalize(reqs, stringOpener(src), discardLogger())
	got, ok := result["f.ts"][Raw{IsOffset: true, Offset: int64(holeVarIdx)}.Key()]
	if !ok {
		t.Fatal("expected the hole variable's offset to resolve")
	}
	if got.Offset != int64(holeVarIdx) {
		t.Fatalf("resolved offset = %d, want %d", got.Offset, holeVarIdx)
	}
}

func TestNormalizeNestedBracesInsideHole(t *testing.T) {
	src := "`a${ {x:1} }b`"
	afterHole := strings.LastIndex(src, "b")
	reqs := Requests{"f.ts": {{IsOffset: true, Offset: int64(afterHole)}}}

	result, _ := Normalize(reqs, stringOpener(src), discardLogger())
	got, ok := result["f.ts"][Raw{IsOffset: true, Offset: int64(afterHole)}.Key()]
	if !ok {
		t.Fatal("expected the post-hole template character to resolve")
	}
	if got.Offset != int64(afterHole) {
		t.Fatalf("resolved offset = %d, want %d", got.Offset, afterHole)
	}
}

func TestNormalizeWhitespaceIsTriviaInsideStringLiteral(t *testing.T) {
	// per the trivia rule, whitespace is trivia even inside a string
	// literal, so a position on the space binds to the literal's next
	// non-space character.
	src := `"a b"x`
	idx := strings.Index(src, " ")
	want := strings.Index(src, "b")
	reqs := Requests{"f.ts": {{IsOffset: true, Offset: int64(idx)}}}

	result, _ := Normalize(reqs, stringOpener(src), discardLogger())
	got, ok := result["f.ts"][Raw{IsOffset: true, Offset: int64(idx)}.Key()]
	if !ok || got.Offset != int64(want) {
		t.Fatalf("expected offset %d to resolve to %d, got %+v (ok=%v)", idx, want, got, ok)
	}
}

func TestNormalizeCRLFAdvancesLineOnce(t *testing.T) {
	src := "a\r\nb"
	idx := strings.Index(src, "b")
	reqs := Requests{"f.ts": {{IsOffset: true, Offset: int64(idx)}}}

	result, _ := Normalize(reqs, stringOpener(src), discardLogger())
	got := result["f.ts"][Raw{IsOffset: true, Offset: int64(idx)}.Key()]
	if got.Line != 2 || got.Column != 1 {
		t.Fatalf("resolved position = %+v, want line 2 col 1", got)
	}
}

func TestNormalizeEndOffsetBindsByAbsoluteValue(t *testing.T) {
	src := "abcdef"
	reqs := Requests{"f.ts": {{IsOffset: true, Offset: -3}}}
	result, _ := Normalize(reqs, stringOpener(src), discardLogger())
	got, ok := result["f.ts"][Raw{IsOffset: true, Offset: -3}.Key()]
	if !ok {
		t.Fatal("expected the negative end offset to resolve")
	}
	if got.Offset != 3 {
		t.Fatalf("resolved offset = %d, want 3", got.Offset)
	}
}

func TestNormalizeUnreadableFileSkippedWithWarning(t *testing.T) {
	reqs := Requests{"missing.ts": {{IsOffset: true, Offset: 0}}}
	opener := func(path string) (io.ReadCloser, error) {
		return nil, errors.New("no such file")
	}
	result, warnings := Normalize(reqs, opener, discardLogger())
	if warnings == nil {
		t.Fatal("expected a warning for the unreadable file")
	}
	if _, ok := result["missing.ts"]; ok {
		t.Fatal("unreadable file should not appear in the result map")
	}
}

type erroringReader struct {
	data []byte
	read int
}

func (e *erroringReader) Read(p []byte) (int, error) {
	if e.read >= len(e.data) {
		return 0, errors.New("boom")
	}
	n := copy(p, e.data[e.read:])
	e.read += n
	return n, nil
}

func TestNormalizeFileReadErrorLeavesBoundPositionsStanding(t *testing.T) {
	src := []byte("ab")
	reqs := []Raw{{IsOffset: true, Offset: 0}, {IsOffset: true, Offset: 1}}

	result, err := normalizeFile(&erroringReader{data: src}, reqs)
	if err == nil {
		t.Fatal("expected a read error")
	}
	if _, ok := result[Raw{IsOffset: true, Offset: 0}.Key()]; !ok {
		t.Fatal("position bound before the read error should stand")
	}
}
