package jsonl

import "errors"

// ErrDecode marks a line that is not a valid record.
var ErrDecode = errors.New("decode jsonl record")
