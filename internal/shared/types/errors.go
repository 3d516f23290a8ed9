package types

import "errors"

var (
	// ErrParse marks a malformed snapshot line; the line is skipped
	ErrParse = errors.New("malformed snapshot line")
	// ErrBinaryEntry marks a binary snapshot entry, which is never registered
	ErrBinaryEntry = errors.New("binary snapshot entry")
	// ErrUnsupportedTable marks a table that is neither inline nor external
	ErrUnsupportedTable = errors.New("unsupported table kind")
	// ErrUnknownFilter marks a table that names a filter nobody registered
	ErrUnknownFilter = errors.New("unknown table filter")
	// ErrHookFailure marks a lifecycle hook that returned an error or panicked
	ErrHookFailure = errors.New("application hook failed")
	// ErrResourceLoad marks a script, style or image that could not be loaded
	ErrResourceLoad = errors.New("resource load failed")
	// ErrAppNotFound is returned for ids that were never registered
	ErrAppNotFound = errors.New("application not registered")
	// ErrNoActiveApp is returned when an operation needs an active application
	ErrNoActiveApp = errors.New("no active application")
)
