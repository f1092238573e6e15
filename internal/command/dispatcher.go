package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/yangguang01/vibesub/internal/metrics"
	"github.com/yangguang01/vibesub/internal/task"
)

// Tasks is the task-level half of the engine.
type Tasks interface {
	Submit(ctx context.Context, req task.SubmitRequest) (*task.SubmitResult, error)
	Status(ctx context.Context, taskID, videoID string) (task.Task, error)
	ApplySubtitles(ctx context.Context, videoID string) (*task.Subtitles, error)
}

// Polls controls the polling loop directly.
type Polls interface {
	StartPolling(taskID, videoID string) bool
	StopPolling(taskID string) bool
	FetchStrategies(ctx context.Context, taskID, videoID string) ([]string, error)
}

type entry struct {
	decode func(raw json.RawMessage) (Command, error)
	handle func(ctx context.Context, cmd Command) (any, error)
}

// Dispatcher maps each Kind to its decoder and handler.
type Dispatcher struct {
	table map[Kind]entry
}

func NewDispatcher(tasks Tasks, polls Polls) *Dispatcher {
	d := &Dispatcher{table: make(map[Kind]entry)}

	register(d, func(ctx context.Context, c Submit) (*task.SubmitResult, error) {
		return tasks.Submit(ctx, task.SubmitRequest(c))
	})

	register(d, func(ctx context.Context, c PollStatus) (task.Task, error) {
		if c.TaskID == "" && c.VideoID == "" {
			return task.Task{}, required("task_id or video_id", "")
		}
		return tasks.Status(ctx, c.TaskID, c.VideoID)
	})

	register(d, func(_ context.Context, c StartPoll) (StartPollResponse, error) {
		if err := required("task_id", c.TaskID); err != nil {
			return StartPollResponse{}, err
		}
		if err := required("video_id", c.VideoID); err != nil {
			return StartPollResponse{}, err
		}
		return StartPollResponse{Started: polls.StartPolling(c.TaskID, c.VideoID)}, nil
	})

	register(d, func(_ context.Context, c StopPoll) (StopPollResponse, error) {
		if err := required("task_id", c.TaskID); err != nil {
			return StopPollResponse{}, err
		}
		return StopPollResponse{Stopped: polls.StopPolling(c.TaskID)}, nil
	})

	register(d, func(ctx context.Context, c FetchStrategies) (StrategiesResponse, error) {
		if err := required("task_id", c.TaskID); err != nil {
			return StrategiesResponse{}, err
		}
		list, err := polls.FetchStrategies(ctx, c.TaskID, c.VideoID)
		if err != nil {
			return StrategiesResponse{}, err
		}
		return StrategiesResponse{TaskID: c.TaskID, Strategies: list}, nil
	})

	register(d, func(ctx context.Context, c ApplySubtitles) (SubtitlesResponse, error) {
		if err := required("video_id", c.VideoID); err != nil {
			return SubtitlesResponse{}, err
		}
		subs, err := tasks.ApplySubtitles(ctx, c.VideoID)
		if err != nil {
			return SubtitlesResponse{}, err
		}
		return SubtitlesResponse{
			VideoID: subs.VideoID,
			SRT:     subs.SRT,
			Cues:    subs.Cues,
			Skipped: len(subs.Skipped),
		}, nil
	})

	return d
}

// register adds the handler for C's kind to the table.
func register[C Command, R any](d *Dispatcher, h func(context.Context, C) (R, error)) {
	var zero C
	kind := zero.Kind()
	d.table[kind] = entry{
		decode: func(raw json.RawMessage) (Command, error) {
			var c C
			if len(raw) > 0 && string(raw) != "null" {
				if err := json.Unmarshal(raw, &c); err != nil {
					return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, kind, err)
				}
			}
			return c, nil
		},
		handle: func(ctx context.Context, cmd Command) (any, error) {
			c, ok := cmd.(C)
			if !ok {
				return nil, fmt.Errorf("%w: %T is not a %s command", ErrInvalidPayload, cmd, kind)
			}
			return h(ctx, c)
		},
	}
}

// Kinds lists the registered command kinds in sorted order.
func (d *Dispatcher) Kinds() []Kind {
	kinds := make([]Kind, 0, len(d.table))
	for k := range d.table {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Dispatch decodes raw as a command of the given kind and runs it.
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind, raw json.RawMessage) (any, error) {
	e, ok := d.table[kind]
	if !ok {
		metrics.Commands.WithLabelValues("unknown", "error").Inc()
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, kind)
	}
	cmd, err := e.decode(raw)
	if err != nil {
		metrics.Commands.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}
	return d.run(ctx, e, cmd)
}

// Execute runs an already typed command.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (any, error) {
	e, ok := d.table[cmd.Kind()]
	if !ok {
		metrics.Commands.WithLabelValues("unknown", "error").Inc()
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind())
	}
	return d.run(ctx, e, cmd)
}

func (d *Dispatcher) run(ctx context.Context, e entry, cmd Command) (any, error) {
	kind := string(cmd.Kind())
	resp, err := e.handle(ctx, cmd)
	if err != nil {
		metrics.Commands.WithLabelValues(kind, "error").Inc()
		log.Printf("[command] %s failed: %v", kind, err)
		return nil, err
	}
	metrics.Commands.WithLabelValues(kind, "ok").Inc()
	return resp, nil
}
