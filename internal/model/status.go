package model

// Status represents the processing state of an attempt.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// transitions is the allowed state transition table. Retry from error or
// timeout means a fresh attempt re-enters at queued; success has no
// outgoing transitions.
var transitions = map[Status][]Status{
	StatusQueued:  {StatusRunning, StatusError},
	StatusRunning: {StatusSuccess, StatusPartial, StatusError, StatusTimeout},
	StatusPartial: {StatusSuccess, StatusError, StatusTimeout},
	StatusError:   {StatusQueued},
	StatusTimeout: {StatusQueued},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusSuccess, StatusPartial, StatusError, StatusTimeout:
		return true
	}
	return false
}

// Terminal reports whether no further automatic transition occurs from s.
// Error and timeout are terminal except for explicit client retry, which is
// a new attempt rather than a resurrection of the old record.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusTimeout:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
