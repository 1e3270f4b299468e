package model

import "testing"

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusRunning, StatusSuccess, StatusPartial, StatusError, StatusTimeout} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if Status("banana").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusQueued:  false,
		StatusRunning: false,
		StatusPartial: false,
		StatusSuccess: true,
		StatusError:   true,
		StatusTimeout: true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestStatus_TransitionTable(t *testing.T) {
	allowed := map[Status][]Status{
		StatusQueued:  {StatusRunning, StatusError},
		StatusRunning: {StatusSuccess, StatusPartial, StatusError, StatusTimeout},
		StatusPartial: {StatusSuccess, StatusError, StatusTimeout},
		StatusError:   {StatusQueued},
		StatusTimeout: {StatusQueued},
	}
	all := []Status{StatusQueued, StatusRunning, StatusSuccess, StatusPartial, StatusError, StatusTimeout}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatus_SuccessHasNoOutgoingTransitions(t *testing.T) {
	for _, to := range []Status{StatusQueued, StatusRunning, StatusSuccess, StatusPartial, StatusError, StatusTimeout} {
		if StatusSuccess.CanTransition(to) {
			t.Errorf("success must be terminal, but transition to %s allowed", to)
		}
	}
}

func TestStatus_NoDirectReturnToQueued(t *testing.T) {
	// Running and partial must pass through error/timeout before a retry
	// can re-enter at queued.
	if StatusRunning.CanTransition(StatusQueued) {
		t.Error("running -> queued must be rejected")
	}
	if StatusPartial.CanTransition(StatusQueued) {
		t.Error("partial -> queued must be rejected")
	}
}
