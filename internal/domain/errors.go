package domain

import "errors"

// Static load errors.
var (
	ErrNotFound   = errors.New("static source not found")
	ErrEmptyInput = errors.New("static source is empty")
	ErrParse      = errors.New("static source is malformed")
	ErrSchema     = errors.New("static schema violation")
)

// Live fetch errors.
var (
	ErrTransport = errors.New("feed transport failure")
	ErrDecode    = errors.New("feed body is not valid JSON")
	ErrShape     = errors.New("unusable table shape")
)

// Merge errors.
var (
	ErrKeySchema = errors.New("merge key column missing")
	ErrKeyType   = errors.New("invalid merge key")
)
