package chunk

import "errors"

var (
	ErrEmptyDocument = errors.New("document has no segments")
	ErrEmptyText     = errors.New("segment has empty text")
)
