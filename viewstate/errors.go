package viewstate

import "fmt"

// ValidationError reports filter or transition input rejected before any
// request is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransitionError reports a state machine transition that is not allowed from
// the current state. The machine stays in its prior state.
type TransitionError struct {
	Machine string
	From    string
	Reason  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot leave %q: %s", e.Machine, e.From, e.Reason)
}
