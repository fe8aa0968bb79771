package compile

import (
	"bufio"
	"io"

	"github.com/tapeforge/brains/instr"
)

// Filter yields one recognized source character at a time from r,
// silently discarding everything else, and tracking line/column for
// error reporting. Once it observes EOF (natural or via a translated
// '!'), every subsequent call returns EOF.
type Filter struct {
	r    *bufio.Reader
	file string
	pos  Pos
	eof  bool
	bang bool
}

// NewFilter wraps r for the named file.
func NewFilter(r io.Reader, file string) *Filter {
	return &Filter{
		r:    bufio.NewReader(r),
		file: file,
		pos:  Pos{File: file, Line: 1, Col: 1},
	}
}

func isRecognized(r rune) bool {
	switch r {
	case '+', '-', '<', '>', '.', ',', '[', ']', '{', '}', '(', '|', ')',
		':', ';', '$', '`', '\'', '^', '_', '%', '&', '#', '~', '*', '@', '=', '!':
		return true
	}
	return instr.ProcID(r) >= 0
}

// Next returns the next recognized character and the position it was
// read at, or ok=false at permanent EOF. A '!' is translated to '@' and
// latches Bang.
func (f *Filter) Next() (rune, Pos, bool) {
	if f.eof {
		return 0, f.pos, false
	}
	for {
		r, _, err := f.r.ReadRune()
		if err != nil {
			f.eof = true
			return 0, f.pos, false
		}
		at := f.pos
		f.advance(r)
		if !isRecognized(r) {
			continue
		}
		if r == '!' {
			f.bang = true
			f.eof = true
			return '@', at, true
		}
		return r, at, true
	}
}

func (f *Filter) advance(r rune) {
	if r == '\n' {
		f.pos.Line++
		f.pos.Col = 1
	} else {
		f.pos.Col++
	}
}

// Bang reports whether this filter has seen and translated a '!'.
func (f *Filter) Bang() bool {
	return f.bang
}

// Residual returns the underlying reader, positioned wherever filtering
// stopped: right after a translated '!' if Bang is true, or at EOF
// otherwise. Its remaining bytes are program input for ',' per spec.
func (f *Filter) Residual() io.Reader {
	return f.r
}
