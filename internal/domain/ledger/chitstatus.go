package ledger

import "time"

// ChitStatus is the lifecycle state of a chit scheme.
type ChitStatus string

const (
	ChitUpcoming  ChitStatus = "Upcoming"
	ChitOngoing   ChitStatus = "Ongoing"
	ChitActive    ChitStatus = "Active"
	ChitClosed    ChitStatus = "Closed"
	ChitCompleted ChitStatus = "Completed"
)

// ChitStatuses lists every chit state.
var ChitStatuses = []ChitStatus{ChitUpcoming, ChitOngoing, ChitActive, ChitClosed, ChitCompleted}

// ValidChitStatus reports whether s is one of the known chit states.
func ValidChitStatus(s ChitStatus) bool {
	for _, v := range ChitStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a sticky state that is never recomputed.
func (s ChitStatus) Terminal() bool {
	return s == ChitClosed || s == ChitCompleted
}

// ComputeChitStatus returns the status a chit should carry at now.
// Closed and Completed are kept as-is; otherwise the start date decides
// between Upcoming and Ongoing.
func ComputeChitStatus(start, now time.Time, current ChitStatus) ChitStatus {
	if current.Terminal() {
		return current
	}
	if start.After(now) {
		return ChitUpcoming
	}
	return ChitOngoing
}
