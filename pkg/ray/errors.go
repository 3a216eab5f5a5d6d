package ray

import "errors"

var (
	// ErrEndpointUnreachable is returned when the job endpoint never
	// accepted a connection within the attempt budget. The endpoint's
	// listener starts asynchronously relative to the tunnel, so a bounded
	// retry loop is the only synchronization between "tunnel up" and
	// "service ready".
	ErrEndpointUnreachable = errors.New("job endpoint unreachable")

	// ErrPrematureStreamEnd is an invariant violation: the log stream was
	// exhausted while the job still reports a non-terminal status.
	ErrPrematureStreamEnd = errors.New("log stream ended before job reached a terminal status")
)
