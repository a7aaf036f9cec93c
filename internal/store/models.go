package store

import "time"

// JobRun records one execution of a scheduled generation job
type JobRun struct {
	ID         int64     `json:"id"`
	JobName    string    `json:"job_name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Artifacts  int       `json:"artifacts"`
	Error      string    `json:"error,omitempty"`
}
