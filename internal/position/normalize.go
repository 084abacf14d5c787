package position

import (
	"bufio"
	"io"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	multierror "github.com/hashicorp/go-multierror"
)

// Map is per source path, a mapping from a raw position's canonical
// key to its normalized resolution.
type Map map[string]map[string]Resolved

// Opener retrieves a readable stream for a source path. Production
// callers pass os.Open; tests pass an in-memory fixture.
type Opener func(path string) (io.ReadCloser, error)

// Normalize resolves every raw position gathered for each file in
// reqs against that file's contents, read once per file via open. A
// file that cannot be opened is skipped: its positions are absent from
// the returned Map, and the reason is recorded as a warning rather than
// aborting the run. A read error partway through a file is also
// recorded as a warning; the positions bound before it are kept.
func Normalize(reqs Requests, open Opener, logger log.Logger) (Map, *multierror.Error) {
	result := Map{}
	var warnings *multierror.Error

	for path, raws := range reqs {
		rc, err := open(path)
		if err != nil {
			level.Warn(logger).Log("msg", "source file unreadable, skipping its positions", "path", path, "err", err)
			warnings = multierror.Append(warnings, err)
			continue
		}
		resolved, err := normalizeFile(rc, raws)
		closeErr := rc.Close()
		if err != nil {
			level.Warn(logger).Log("msg", "error reading source file, bound positions stand", "path", path, "err", err)
			warnings = multierror.Append(warnings, err)
		}
		if closeErr != nil {
			warnings = multierror.Append(warnings, closeErr)
		}
		if len(resolved) > 0 {
			result[path] = resolved
		}
	}

	return result, warnings
}

type offsetRequest struct {
	abs int64
	key string
}

type pairRequest struct {
	line, col int
	key       string
}

// normalizeFile scans r once, binding every raw position in raws to
// the (line, column) of the nearest following non-trivia character.
// A non-nil error means the stream ended early; positions already
// bound before the error stand and the rest are left unresolved.
func normalizeFile(r io.Reader, raws []Raw) (map[string]Resolved, error) {
	var offsets []offsetRequest
	var pairs []pairRequest
	for _, raw := range raws {
		if raw.IsOffset {
			abs := raw.Offset
			if abs < 0 {
				abs = -abs
			}
			offsets = append(offsets, offsetRequest{abs, raw.Key()})
		} else {
			pairs = append(pairs, pairRequest{raw.Line, raw.Column, raw.Key()})
		}
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i].abs < offsets[j].abs })
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].line != pairs[j].line {
			return pairs[i].line < pairs[j].line
		}
		return pairs[i].col < pairs[j].col
	})

	result := make(map[string]Resolved, len(offsets)+len(pairs))
	oi, pi := 0, 0
	cur := cursor{offset: 0, line: 1, column: 1}
	bind := func() {
		for oi < len(offsets) && offsets[oi].abs <= cur.offset {
			result[offsets[oi].key] = Resolved{Line: cur.line, Column: cur.column, Offset: cur.offset}
			oi++
		}
		for pi < len(pairs) && (pairs[pi].line < cur.line || (pairs[pi].line == cur.line && pairs[pi].col <= cur.column)) {
			result[pairs[pi].key] = Resolved{Line: cur.line, Column: cur.column, Offset: cur.offset}
			pi++
		}
	}

	br := bufio.NewReader(r)
	peek := func() (rune, bool) {
		next, _, err := br.ReadRune()
		if err != nil {
			return 0, false
		}
		_ = br.UnreadRune()
		return next, true
	}

	sc := newScanner()
	var readErr error
readLoop:
	for {
		ch, size, err := br.ReadRune()
		if err != nil {
			if err != io.EOF {
				readErr = err
			}
			break readLoop
		}

		crlf := false
		if ch == '\r' {
			if next, ok := peek(); ok && next == '\n' {
				crlf = true
			}
		}

		trivia := classify(sc, ch, cur.offset == 0, peek)
		if !trivia {
			bind()
		}

		cur.offset += int64(size)
		switch {
		case ch == '\n':
			cur.line++
			cur.column = 1
		case ch == '\r' && !crlf:
			cur.line++
			cur.column = 1
		case ch == '\r' && crlf:
			// swallowed half of a CRLF pair; the following \n advances
			// the line.
		default:
			cur.column++
		}
	}

	// On a clean EOF, any positions past the last character bind to
	// the post-last-character cursor. On a read error, bound positions
	// stand and the rest are left unbound.
	if readErr == nil {
		eof := Resolved{Line: cur.line, Column: cur.column, Offset: cur.offset}
		for ; oi < len(offsets); oi++ {
			result[offsets[oi].key] = eof
		}
		for ; pi < len(pairs); pi++ {
			result[pairs[pi].key] = eof
		}
	}
	return result, readErr
}

// classify decides whether ch is trivia and drives the scanner's state
// transition for it, resolving the two ambiguous single-character
// openers (`/` and an offset-0 `#`) via a one-rune lookahead that never
// consumes the peeked rune.
func classify(sc *scanner, ch rune, atOffsetZero bool, peek func() (rune, bool)) bool {
	if sc.state == stateDefault {
		if ch == '/' {
			switch next, ok := peek(); {
			case ok && next == '/':
				sc.enterLineComment()
				return true
			case ok && next == '*':
				sc.enterBlockComment()
				return true
			default:
				sc.enterRegex()
				return false
			}
		}
		if ch == '#' && atOffsetZero {
			if next, ok := peek(); ok && next == '!' {
				sc.enterShebang()
				return true
			}
		}
	}
	return sc.step(ch)
}
