package internal

import "errors"

var (
	ErrEmptyGrid         = errors.New("empty grid")
	ErrUnsupportedSource = errors.New("unsupported source")
)
