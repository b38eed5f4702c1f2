package model

// statusTransitions is the booking lifecycle graph. Every status
// mutation checks this table; anything outside it is rejected.
var statusTransitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusRejected:   {},
	StatusCancelled:  {},
}

// CanTransition reports whether moving a booking from one status to
// another is allowed by the lifecycle graph.
func CanTransition(from, to string) bool {
	targets, ok := statusTransitions[from]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions are possible.
func IsTerminalStatus(status string) bool {
	targets, ok := statusTransitions[status]
	return ok && len(targets) == 0
}

// IsValidStatus reports whether status is a known booking status.
func IsValidStatus(status string) bool {
	_, ok := statusTransitions[status]
	return ok
}
