package broker

import "errors"

// Sentinel kinds for broker errors.
var (
	ErrClosed = errors.New("broker closed")
)
