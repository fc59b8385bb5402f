package storage

import "errors"

// ErrNotFound is returned when no store holds the requested record.
var ErrNotFound = errors.New("not found")
