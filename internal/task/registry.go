package task

import (
	"sort"
	"sync"

	"github.com/yangguang01/vibesub/internal/clock"
)

// record is the registry entry for one task. Fields are guarded by the
// owning Registry's mutex.
type record struct {
	task  Task
	timer clock.Timer
}

// Registry maps task ids to their records. A Poller owns one; records are
// kept after polling stops so callers can read the last known state.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*record
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*record)}
}

// current reports whether rec is still the live, polling record for its
// task. Caller holds mu.
func (r *Registry) current(rec *record) bool {
	return r.tasks[rec.task.TaskID] == rec && rec.task.Polling
}

// Get returns a copy of the task record.
func (r *Registry) Get(taskID string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tasks[taskID]
	if !ok {
		return Task{}, false
	}
	return rec.task, true
}

// FindByVideo returns the most recently started task for videoID.
func (r *Registry) FindByVideo(videoID string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *record
	for _, rec := range r.tasks {
		if rec.task.VideoID != videoID {
			continue
		}
		if best == nil || rec.task.StartedAt.After(best.task.StartedAt) {
			best = rec
		}
	}
	if best == nil {
		return Task{}, false
	}
	return best.task, true
}

// List returns copies of all records, oldest first. With onlyPolling set,
// finished tasks are left out.
func (r *Registry) List(onlyPolling bool) []Task {
	r.mu.Lock()
	out := make([]Task, 0, len(r.tasks))
	for _, rec := range r.tasks {
		if onlyPolling && !rec.task.Polling {
			continue
		}
		out = append(out, rec.task)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
