package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yangguang01/vibesub/internal/task"
)

// TaskRegistry exposes the poller's view of tracked tasks.
type TaskRegistry interface {
	Active() []task.Task
	Tasks() []task.Task
	Snapshot(taskID string) (task.Task, bool)
	StopPolling(taskID string) bool
}

type TaskHandler struct {
	tasks TaskRegistry
}

func NewTaskHandler(tasks TaskRegistry) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// ListTasks returns the tasks still being polled, or every known task
// when all=true.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var list []task.Task
	if r.URL.Query().Get("all") == "true" {
		list = h.tasks.Tasks()
	} else {
		list = h.tasks.Active()
	}
	if list == nil {
		list = []task.Task{}
	}
	jsonResponse(w, list, http.StatusOK)
}

// GetTask returns a single task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing task ID", http.StatusBadRequest)
		return
	}

	t, ok := h.tasks.Snapshot(id)
	if !ok {
		jsonError(w, "task not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, t, http.StatusOK)
}

// StopTask stops polling a task. The server-side job is left alone.
func (h *TaskHandler) StopTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing task ID", http.StatusBadRequest)
		return
	}

	if !h.tasks.StopPolling(id) {
		jsonError(w, "task is not being polled", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
