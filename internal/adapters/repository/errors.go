package repository

import "errors"

// Sentinel kinds for rating store errors.
var (
	ErrNotFound      = errors.New("competitor not found")
	ErrAlreadyExists = errors.New("competitor already exists")
)
