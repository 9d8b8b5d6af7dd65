package storage

import "errors"

var (
	// ErrStorageUnavailable means the store could not be reached within the retry budget
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSchema means schema creation failed for a reason other than connectivity
	ErrSchema = errors.New("schema error")

	ErrInvalidTable  = errors.New("invalid table name")
	ErrUnknownDriver = errors.New("unknown database driver")
)
