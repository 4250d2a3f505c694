package jobs

import "time"

// Status tracks the lifecycle of a generation job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	// StatusDegraded means the job finished but returned the unmodified source.
	StatusDegraded Status = "degraded"
	// StatusRejected means the inputs were unusable (missing files, no face, bad audio).
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusDegraded:  {},
	StatusRejected:  {},
	StatusFailed:    {},
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Job is one persisted generation request.
type Job struct {
	ID           string
	AvatarID     string
	AvatarPath   string
	AudioPath    string
	OutputPath   string
	Status       Status
	Tier         string
	Attempts     int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// Duration returns how long a finished job ran.
func (j *Job) Duration() time.Duration {
	if j == nil || j.FinishedAt == nil || j.CreatedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.CreatedAt)
}

// Summary aggregates job counts by lifecycle group.
type Summary struct {
	Total     int
	Active    int
	Completed int
	Degraded  int
	Rejected  int
	Failed    int
}
