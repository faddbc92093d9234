package repository

import "errors"

// Sentinel kinds for draft board errors.
var (
	ErrNotFound     = errors.New("player not on the board")
	ErrInvalidLimit = errors.New("invalid board limit")
	ErrInvalidDraft = errors.New("draft budget and slots must be positive")
)
