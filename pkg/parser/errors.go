package parser

import "errors"

// ErrInvalidBatchSize is returned by SingleStateParser when the batch it
// was invoked on does not contain exactly one member (spec.md §4.2).
var ErrInvalidBatchSize = errors.New("parser: invalid batch size for single-state parser")
