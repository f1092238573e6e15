// Package command routes extension requests to the task engine. Each kind
// has a typed request and response, and the Dispatcher maps kinds to
// handlers through a lookup table.
package command

import (
	"errors"
	"fmt"

	"github.com/yangguang01/vibesub/internal/subtitle"
	"github.com/yangguang01/vibesub/internal/task"
)

// Kind names a command on the wire.
type Kind string

const (
	KindSubmit          Kind = "submit"
	KindPollStatus      Kind = "poll-status"
	KindStartPoll       Kind = "start-poll"
	KindStopPoll        Kind = "stop-poll"
	KindFetchStrategies Kind = "fetch-strategies"
	KindApplySubtitles  Kind = "apply-subtitles"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidPayload = errors.New("invalid command payload")
)

// Command is implemented by every request type.
type Command interface {
	Kind() Kind
}

// Submit asks the service to translate a video.
type Submit task.SubmitRequest

func (Submit) Kind() Kind { return KindSubmit }

// PollStatus reads the latest state of a task, by task id or video id.
type PollStatus struct {
	TaskID  string `json:"task_id"`
	VideoID string `json:"video_id"`
}

func (PollStatus) Kind() Kind { return KindPollStatus }

// StartPoll resumes tracking a task, e.g. after a restart.
type StartPoll struct {
	TaskID  string `json:"task_id"`
	VideoID string `json:"video_id"`
}

func (StartPoll) Kind() Kind { return KindStartPoll }

type StopPoll struct {
	TaskID string `json:"task_id"`
}

func (StopPoll) Kind() Kind { return KindStopPoll }

// FetchStrategies re-requests the translation strategies of a task.
type FetchStrategies struct {
	TaskID  string `json:"task_id"`
	VideoID string `json:"video_id"`
}

func (FetchStrategies) Kind() Kind { return KindFetchStrategies }

// ApplySubtitles returns the parsed subtitle of a video.
type ApplySubtitles struct {
	VideoID string `json:"video_id"`
}

func (ApplySubtitles) Kind() Kind { return KindApplySubtitles }

type StartPollResponse struct {
	Started bool `json:"started"`
}

type StopPollResponse struct {
	Stopped bool `json:"stopped"`
}

type StrategiesResponse struct {
	TaskID     string   `json:"task_id"`
	Strategies []string `json:"strategies"`
}

type SubtitlesResponse struct {
	VideoID string         `json:"video_id"`
	SRT     string         `json:"srt"`
	Cues    []subtitle.Cue `json:"cues"`
	Skipped int            `json:"skipped"`
}

func required(name, val string) error {
	if val == "" {
		return fmt.Errorf("%s is required: %w", name, task.ErrInvalidRequest)
	}
	return nil
}
