package models

import "time"

// Decision is one audited routing outcome: what came in, how it
// scored, and where it went.
type Decision struct {
	ID             string    `json:"id"`
	SubmissionType string    `json:"submission_type"`
	Source         string    `json:"source"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	Relevance      float64   `json:"relevance"`
	Completeness   float64   `json:"completeness"`
	Credibility    float64   `json:"credibility"`
	Composite      float64   `json:"composite"`
	StoredID       string    `json:"stored_id,omitempty"`
	PendingID      string    `json:"pending_id,omitempty"`
	DuplicateCount int       `json:"duplicate_count"`
	CreatedAt      time.Time `json:"created_at"`
}
