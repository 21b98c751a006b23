package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event describes a committed status transition. It is emitted after the
// transaction commits; delivery is best-effort and never affects the
// transition itself.
type Event struct {
	RequestID      uuid.UUID `json:"request_id"`
	RequestNumber  string    `json:"request_number"`
	Title          string    `json:"title"`
	FromStatus     string    `json:"from_status"`
	ToStatus       string    `json:"to_status"`
	ActorID        uuid.UUID `json:"actor_id"`
	ActorName      string    `json:"actor_name"`
	Reason         string    `json:"reason,omitempty"`
	RequesterEmail string    `json:"requester_email,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Subject builds the notification subject line for the transition.
func (e Event) Subject() string {
	switch e.ToStatus {
	case "SUBMITTED":
		return fmt.Sprintf("[%s] Your request has been submitted", e.RequestNumber)
	case "VERIFIED":
		return fmt.Sprintf("[%s] Your request has been verified", e.RequestNumber)
	case "APPROVED":
		return fmt.Sprintf("[%s] Your request has been approved", e.RequestNumber)
	case "REJECTED":
		return fmt.Sprintf("[%s] Your request was rejected", e.RequestNumber)
	case "IN_PROCUREMENT":
		return fmt.Sprintf("[%s] Procurement has started", e.RequestNumber)
	case "READY":
		return fmt.Sprintf("[%s] Items are ready for pickup", e.RequestNumber)
	case "COMPLETED":
		return fmt.Sprintf("[%s] Request completed", e.RequestNumber)
	default:
		return fmt.Sprintf("[%s] Status updated: %s", e.RequestNumber, e.ToStatus)
	}
}

// Body builds the notification body text.
func (e Event) Body() string {
	body := fmt.Sprintf("Request %s (%s)\nStatus: %s -> %s\nChanged by: %s\n",
		e.RequestNumber, e.Title, e.FromStatus, e.ToStatus, e.ActorName)
	if e.Reason != "" {
		body += "Reason: " + e.Reason + "\n"
	}
	return body
}
