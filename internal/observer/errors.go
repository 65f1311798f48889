package observer

import "errors"

// Sentinel kinds for observer-side errors.
var (
	// ErrUnreachable marks transport-level failures talking to the
	// ranking service.
	ErrUnreachable = errors.New("service unreachable")
	// ErrStreamClosed marks an event stream that ended; the connection
	// is terminal, a fresh View must be started to resume.
	ErrStreamClosed = errors.New("event stream closed")
	// ErrAlreadyExists mirrors a 409 from POST /competitor.
	ErrAlreadyExists = errors.New("competitor already exists")
	// ErrUnknownCompetitor mirrors a 422 from POST /match.
	ErrUnknownCompetitor = errors.New("unknown competitor")
	// ErrBadRequest mirrors a 400 from the service.
	ErrBadRequest = errors.New("bad request")
)
