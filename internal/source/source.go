package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

// ErrNonMonotonic is returned when a sample's time goes backwards.
var ErrNonMonotonic = errors.New("source: sample time went backwards")

// #region reader

// Reader decodes one JSON sample per line:
//
//	{"fingers":[1,2],"x":0.4,"y":0.5,"z":0.1,"angle":0.3,"velocity":0.2,"t":1.25}
//
// Blank lines and lines starting with '#' are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	lastT   float64
	started bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: sc}
}

// Next returns the next sample, or io.EOF at the end of input.
func (r *Reader) Next() (note.Sample, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var s note.Sample
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return note.Sample{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		if r.started && s.T < r.lastT {
			return note.Sample{}, fmt.Errorf("line %d: t=%.4f after %.4f: %w", r.line, s.T, r.lastT, ErrNonMonotonic)
		}
		r.started = true
		r.lastT = s.T
		return s, nil
	}
	if err := r.scanner.Err(); err != nil {
		return note.Sample{}, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return note.Sample{}, io.EOF
}

// ReadAll decodes every remaining sample.
func (r *Reader) ReadAll() ([]note.Sample, error) {
	var out []note.Sample
	for {
		s, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
}

// #endregion reader

// #region stream

// Stream calls fn for every sample until EOF, an error, or ctx is done.
// It returns the time of the last sample delivered.
func Stream(ctx context.Context, r io.Reader, fn func(note.Sample) error) (float64, error) {
	rd := NewReader(r)
	var last float64
	for {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		s, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return last, nil
		}
		if err != nil {
			return last, err
		}
		if err := fn(s); err != nil {
			return last, err
		}
		last = s.T
	}
}

// #endregion stream
