package domain

import "time"

// JobStatus enumerates bulk job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ItemOutcome records the result of one product inside a bulk job.
type ItemOutcome struct {
	ProductID   string                `json:"product_id"`
	Success     bool                  `json:"success"`
	Description *GeneratedDescription `json:"description,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// BulkJob tracks the lifecycle of a bulk generation request. Counts are
// monotonic until the job reaches a terminal status, and
// successful+failed <= total holds at all times, with equality only once the
// job is terminal and every item was attempted.
type BulkJob struct {
	ID              string
	MerchantID      string
	ProductIDs      []string
	Options         GenerationOptions
	Status          JobStatus
	Total           int
	Processed       int
	Successful      int
	Failed          int
	Outcomes        []ItemOutcome
	CancelRequested bool
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Progress returns the percentage of items attempted so far.
func (j *BulkJob) Progress() int {
	if j.Total <= 0 {
		return 0
	}
	return j.Processed * 100 / j.Total
}
