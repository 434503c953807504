// Job lifecycle state machine.
//
// Valid status graph:
//
//	ACTIVE ──► CHECKING ──► ACTIVE
//	   │           │
//	   │           └──► REMOVED
//	   ├──► REMOVED
//	   └──► EXPIRED
//
// REMOVED and EXPIRED are terminal states. Jobs are never hard-deleted;
// expiry and removal are status flips.
package model

import "fmt"

// Status values mirror the job_status enum in PostgreSQL.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusChecking Status = "CHECKING"
	StatusRemoved  Status = "REMOVED"
	StatusExpired  Status = "EXPIRED"
)

// validStatusTransitions lists every allowed (from → to) pair.
var validStatusTransitions = map[Status][]Status{
	StatusActive:   {StatusChecking, StatusRemoved, StatusExpired},
	StatusChecking: {StatusActive, StatusRemoved},
	// REMOVED and EXPIRED are terminal — no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusActive, StatusChecking, StatusRemoved, StatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := validStatusTransitions[from]
	if !ok {
		return false // terminal state — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no outgoing transition exists for s.
func IsTerminal(s Status) bool {
	_, ok := validStatusTransitions[s]
	return !ok
}
