// Package task tracks server-side translation jobs from submission to a
// terminal state by polling the translation service.
package task

import (
	"context"
	"errors"
	"time"

	"github.com/yangguang01/vibesub/internal/remote"
	"github.com/yangguang01/vibesub/internal/store"
)

// Status represents the current state of a task
type Status string

const (
	StatusPending         Status = "pending"
	StatusProcessing      Status = "processing"
	StatusStrategiesReady Status = "strategies_ready"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// Terminal reports whether no further status changes are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FailReason distinguishes why a task ended in StatusFailed.
type FailReason string

const (
	FailNone         FailReason = ""
	FailServer       FailReason = "server"       // the service reported the job failed
	FailTimeout      FailReason = "timeout"      // poll ceiling reached
	FailConnectivity FailReason = "connectivity" // too many consecutive transport errors
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownTask    = errors.New("unknown task")
)

// Task is the poller's record of one server-side job.
type Task struct {
	TaskID            string     `json:"task_id"`
	VideoID           string     `json:"video_id"`
	Status            Status     `json:"status"`
	Progress          float64    `json:"progress"`
	ErrorCount        int        `json:"error_count"`
	PollCount         int        `json:"poll_count"`
	StrategiesFetched bool       `json:"strategies_fetched"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	FailReason        FailReason `json:"fail_reason,omitempty"`
	Polling           bool       `json:"polling"`
	StartedAt         time.Time  `json:"started_at"`
	LastCheck         *time.Time `json:"last_check,omitempty"`
}

// State is the persisted projection of the task.
func (t Task) State() store.TaskState {
	return store.TaskState{
		TaskID:       t.TaskID,
		Status:       string(t.Status),
		Progress:     t.Progress,
		ErrorMessage: t.ErrorMessage,
		FailReason:   string(t.FailReason),
		CreatedAt:    t.StartedAt,
	}
}

// Event is published on every observable change of a task.
type Event struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"taskId"`
	VideoID    string    `json:"videoId"`
	Status     Status    `json:"status"`
	Progress   float64   `json:"progress"`
	Message    string    `json:"errorMessage,omitempty"`
	IsError    bool      `json:"isError,omitempty"`
	Strategies []string  `json:"translationStrategies,omitempty"`
	Time       time.Time `json:"time"`
}

// Service is the subset of the translation service the package needs.
type Service interface {
	CreateTask(ctx context.Context, req remote.CreateTaskRequest) (string, error)
	TaskStatus(ctx context.Context, taskID string) (*remote.TaskStatus, error)
	Strategies(ctx context.Context, taskID string) (*remote.Strategies, error)
	Subtitle(ctx context.Context, taskID string) (string, error)
}

// Store persists task state keyed by video id.
type Store interface {
	SaveTaskState(ctx context.Context, videoID string, st store.TaskState) error
	TaskState(ctx context.Context, videoID string) (*store.TaskState, error)
	SaveSubtitle(ctx context.Context, videoID, srt string) error
	Subtitle(ctx context.Context, videoID string) (string, error)
	SaveStrategies(ctx context.Context, videoID string, st store.Strategies) error
	Setting(ctx context.Context, name, defaultVal string) string
	SetSetting(ctx context.Context, name, value string) error
}

// EventSink receives task events. Publish must not block.
type EventSink interface {
	Publish(Event)
}
