// Package jsonl reads events and writes results as JSON lines.
package jsonl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/okian/ntag/internal/domain/model"
)

const maxLineBytes = 64 << 20

// Reader decodes one event per line. Blank lines are skipped.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), maxLineBytes)
	return &Reader{sc: sc}
}

// Next returns the next event, or io.EOF after the last one. Events without
// an ID get a random one.
func (r *Reader) Next() (model.Event, error) {
	for r.sc.Scan() {
		r.line++
		b := bytes.TrimSpace(r.sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var e model.Event
		if err := json.Unmarshal(b, &e); err != nil {
			return model.Event{}, fmt.Errorf("%w: line %d: %w", ErrDecode, r.line, err)
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		return e, nil
	}
	if err := r.sc.Err(); err != nil {
		return model.Event{}, err
	}
	return model.Event{}, io.EOF
}

// ReadAll drains r into a slice.
func ReadAll(r io.Reader) ([]model.Event, error) {
	rd := NewReader(r)
	var out []model.Event
	for {
		e, err := rd.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}
