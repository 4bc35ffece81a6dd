// Package domain provides core business rules for the test orders bounded context.
package domain

import "fmt"

// Status is the lifecycle state of a test order. The pipeline only ever
// moves an order forward: Pending → ReviewedByAI → Completed. Cancelled
// and Ongoing are set by upstream order entry and are tolerated as
// starting states, but no pipeline transition leads into or out of them.
type Status string

const (
	StatusPending      Status = "Pending"
	StatusReviewedByAI Status = "ReviewedByAI"
	StatusCompleted    Status = "Completed"
	StatusCancelled    Status = "Cancelled"
	StatusOngoing      Status = "Ongoing"
)

// legalTransitions declares every transition the pipeline may perform.
var legalTransitions = map[Status][]Status{
	StatusPending:      {StatusReviewedByAI},
	StatusReviewedByAI: {StatusCompleted},
}

// ParseStatus validates a raw status string read from storage.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusReviewedByAI, StatusCompleted, StatusCancelled, StatusOngoing:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsKnown reports whether the status is one of the declared values.
func (s Status) IsKnown() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}
