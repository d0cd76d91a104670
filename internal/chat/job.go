package chat

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is a send request queued for the worker.
type Job struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	UserID    uint64 `gorm:"index;not null;index:uniq_job_user_idempo,unique,priority:1" json:"-"`
	SessionID string `gorm:"size:26;index;not null" json:"sessionId"`

	Content string `gorm:"type:text;not null" json:"-"`
	System  string `gorm:"type:text" json:"-"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_job_user_idempo,unique,priority:2" json:"idempotencyKey,omitempty"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when succeeded
	ResultMessageID *string `gorm:"size:26;index" json:"resultMessageId,omitempty"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Job) TableName() string { return "chat_jobs" }
