package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yangguang01/vibesub/internal/clock"
	"github.com/yangguang01/vibesub/internal/metrics"
	"github.com/yangguang01/vibesub/internal/remote"
	"github.com/yangguang01/vibesub/internal/store"
)

// Config bounds the polling loop. Zero fields take the DefaultConfig value.
type Config struct {
	FirstCheckDelay time.Duration
	Interval        time.Duration
	MaxPolls        int
	MaxErrors       int
	RequestTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		FirstCheckDelay: 10 * time.Second,
		Interval:        15 * time.Second,
		MaxPolls:        240,
		MaxErrors:       5,
		RequestTimeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FirstCheckDelay <= 0 {
		c.FirstCheckDelay = d.FirstCheckDelay
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = d.MaxPolls
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = d.MaxErrors
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

type discardSink struct{}

func (discardSink) Publish(Event) {}

// Poller runs one repeating status check per task. The next check is armed
// only after the previous one returns, so checks for a task never overlap.
type Poller struct {
	cfg    Config
	reg    *Registry
	svc    Service
	store  Store
	events EventSink
	sched  clock.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPoller wires a poller. events may be nil.
func NewPoller(cfg Config, reg *Registry, svc Service, st Store, events EventSink, sched clock.Scheduler) *Poller {
	if events == nil {
		events = discardSink{}
	}
	if sched == nil {
		sched = clock.Real{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		cfg:    cfg.withDefaults(),
		reg:    reg,
		svc:    svc,
		store:  st,
		events: events,
		sched:  sched,
		ctx:    ctx,
		cancel: cancel,
	}
}

// StartPolling begins tracking taskID. It returns false, and changes
// nothing, when the task is already being polled.
func (p *Poller) StartPolling(taskID, videoID string) bool {
	if taskID == "" {
		return false
	}

	p.reg.mu.Lock()
	defer p.reg.mu.Unlock()

	if rec, ok := p.reg.tasks[taskID]; ok && rec.task.Polling {
		log.Printf("[poller] task %s is already polling", taskID)
		return false
	}

	rec := &record{task: Task{
		TaskID:    taskID,
		VideoID:   videoID,
		Status:    StatusPending,
		Polling:   true,
		StartedAt: p.sched.Now(),
	}}
	p.reg.tasks[taskID] = rec
	rec.timer = clock.Repeat(p.sched, p.cfg.FirstCheckDelay, p.cfg.Interval, func() { p.check(rec) })
	metrics.ActivePolls.Inc()

	log.Printf("[poller] polling task %s (video %s), first check in %s", taskID, videoID, p.cfg.FirstCheckDelay)
	return true
}

// StopPolling cancels the task's timer. The record is kept as last known
// state. It reports whether a live poll was stopped.
func (p *Poller) StopPolling(taskID string) bool {
	p.reg.mu.Lock()
	defer p.reg.mu.Unlock()

	rec, ok := p.reg.tasks[taskID]
	if !ok {
		return false
	}
	if !p.stopLocked(rec) {
		return false
	}
	log.Printf("[poller] stopped polling task %s", taskID)
	return true
}

// Snapshot returns the last known state of taskID.
func (p *Poller) Snapshot(taskID string) (Task, bool) {
	return p.reg.Get(taskID)
}

// Active lists tasks that are still being polled.
func (p *Poller) Active() []Task {
	return p.reg.List(true)
}

// Tasks lists every known task, including finished ones.
func (p *Poller) Tasks() []Task {
	return p.reg.List(false)
}

// Shutdown stops every timer and cancels in-flight requests.
func (p *Poller) Shutdown() {
	p.reg.mu.Lock()
	n := 0
	for _, rec := range p.reg.tasks {
		if p.stopLocked(rec) {
			n++
		}
	}
	p.reg.mu.Unlock()
	p.cancel()
	if n > 0 {
		log.Printf("[poller] shutdown stopped %d polls", n)
	}
}

// FetchStrategies requests the strategies of taskID directly, stores them
// under videoID and publishes them. A tracked task is marked as fetched.
func (p *Poller) FetchStrategies(ctx context.Context, taskID, videoID string) ([]string, error) {
	res, err := p.svc.Strategies(ctx, taskID)
	if err != nil {
		metrics.StrategyFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch strategies: %w", err)
	}
	metrics.StrategyFetches.WithLabelValues("ok").Inc()

	p.reg.mu.Lock()
	snap := Task{TaskID: taskID, VideoID: videoID, Status: StatusStrategiesReady}
	if rec, ok := p.reg.tasks[taskID]; ok {
		rec.task.StrategiesFetched = true
		snap = rec.task
		if videoID != "" {
			snap.VideoID = videoID
		}
	}
	p.reg.mu.Unlock()

	p.publishStrategies(snap, res.Strategies)
	return res.Strategies, nil
}

// check runs one status check for rec.
func (p *Poller) check(rec *record) {
	now := p.sched.Now()

	p.reg.mu.Lock()
	if !p.reg.current(rec) {
		p.reg.mu.Unlock()
		return
	}
	rec.task.PollCount++
	rec.task.LastCheck = &now
	if rec.task.PollCount > p.cfg.MaxPolls {
		msg := fmt.Sprintf("translation timed out after %d status checks", p.cfg.MaxPolls)
		snap := p.failLocked(rec, FailTimeout, msg)
		p.reg.mu.Unlock()
		p.finish(snap)
		return
	}
	taskID := rec.task.TaskID
	p.reg.mu.Unlock()

	metrics.StatusChecks.Inc()
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
	st, err := p.svc.TaskStatus(ctx, taskID)
	cancel()

	p.reg.mu.Lock()
	if !p.reg.current(rec) {
		p.reg.mu.Unlock()
		log.Printf("[poller] task %s: polling stopped during status check, result discarded", taskID)
		return
	}

	if err != nil {
		rec.task.ErrorCount++
		msg, kind := transportMessage(err)
		metrics.TransportErrors.WithLabelValues(kind).Inc()
		log.Printf("[poller] task %s: status check failed (%d/%d): %v", taskID, rec.task.ErrorCount, p.cfg.MaxErrors, err)

		warn := p.event(rec.task, msg, true)
		var failed *Task
		if rec.task.ErrorCount > p.cfg.MaxErrors {
			snap := p.failLocked(rec, FailConnectivity, msg)
			failed = &snap
		}
		p.reg.mu.Unlock()

		p.events.Publish(warn)
		if failed != nil {
			p.finish(*failed)
		}
		return
	}

	rec.task.ErrorCount = 0
	if st.Status != "" {
		rec.task.Status = Status(st.Status)
	}
	rec.task.Progress = clampProgress(st.Progress)

	switch rec.task.Status {
	case StatusFailed:
		msg := st.Error
		if msg == "" {
			msg = "translation failed"
		}
		snap := p.failLocked(rec, FailServer, msg)
		p.reg.mu.Unlock()
		p.finish(snap)

	case StatusCompleted:
		p.reg.mu.Unlock()
		p.completed(rec, taskID)

	case StatusStrategiesReady:
		fetch := !rec.task.StrategiesFetched
		snap := rec.task
		p.reg.mu.Unlock()
		p.persist(snap)
		p.events.Publish(p.event(snap, "", false))
		if fetch {
			p.fetchStrategies(rec, taskID)
		}

	default:
		snap := rec.task
		p.reg.mu.Unlock()
		p.persist(snap)
		p.events.Publish(p.event(snap, "", false))
	}
}

// completed downloads the subtitle payload and stops polling. The
// completed state is persisted once the payload is stored, so a reader that
// sees it can load the subtitle right away.
func (p *Poller) completed(rec *record, taskID string) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
	defer cancel()
	srt, err := p.svc.Subtitle(ctx, taskID)

	p.reg.mu.Lock()
	if !p.reg.current(rec) {
		p.reg.mu.Unlock()
		log.Printf("[poller] task %s: polling stopped during subtitle download, result discarded", taskID)
		return
	}
	p.stopLocked(rec)
	snap := rec.task
	p.reg.mu.Unlock()

	metrics.TasksFinished.WithLabelValues(string(StatusCompleted), "").Inc()
	if err != nil {
		metrics.SubtitleDownloads.WithLabelValues("error").Inc()
		log.Printf("[poller] task %s completed but subtitle download failed: %v", taskID, err)
		p.persist(snap)
		p.events.Publish(p.event(snap, "subtitle download failed: "+err.Error(), true))
		return
	}
	metrics.SubtitleDownloads.WithLabelValues("ok").Inc()

	if err := p.store.SaveSubtitle(ctx, snap.VideoID, srt); err != nil {
		log.Printf("[poller] task %s: failed to store subtitle: %v", taskID, err)
	}
	p.persist(snap)
	p.events.Publish(p.event(snap, "", false))
	log.Printf("[poller] task %s completed, subtitle stored for video %s", taskID, snap.VideoID)
}

// fetchStrategies fetches strategies once per task. A failure leaves the
// task unmarked so the next strategies_ready check retries.
func (p *Poller) fetchStrategies(rec *record, taskID string) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
	res, err := p.svc.Strategies(ctx, taskID)
	cancel()

	p.reg.mu.Lock()
	if !p.reg.current(rec) {
		p.reg.mu.Unlock()
		log.Printf("[poller] task %s: polling stopped during strategies fetch, result discarded", taskID)
		return
	}
	if err != nil {
		snap := rec.task
		p.reg.mu.Unlock()
		metrics.StrategyFetches.WithLabelValues("error").Inc()
		log.Printf("[poller] task %s: strategies fetch failed: %v", taskID, err)
		p.events.Publish(p.event(snap, "failed to fetch translation strategies", true))
		return
	}
	rec.task.StrategiesFetched = true
	snap := rec.task
	p.reg.mu.Unlock()

	metrics.StrategyFetches.WithLabelValues("ok").Inc()
	p.publishStrategies(snap, res.Strategies)
}

func (p *Poller) publishStrategies(t Task, list []string) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
	defer cancel()
	if err := p.store.SaveStrategies(ctx, t.VideoID, store.Strategies{Strategies: list}); err != nil {
		log.Printf("[poller] task %s: failed to store strategies: %v", t.TaskID, err)
	}
	ev := p.event(t, "", false)
	ev.Status = StatusStrategiesReady
	ev.Strategies = list
	p.events.Publish(ev)
	log.Printf("[poller] task %s: %d translation strategies stored", t.TaskID, len(list))
}

// failLocked moves rec to StatusFailed and stops it. Caller holds reg.mu.
func (p *Poller) failLocked(rec *record, reason FailReason, msg string) Task {
	rec.task.Status = StatusFailed
	rec.task.FailReason = reason
	rec.task.ErrorMessage = msg
	p.stopLocked(rec)
	return rec.task
}

// stopLocked cancels rec's timer. Caller holds reg.mu.
func (p *Poller) stopLocked(rec *record) bool {
	if !rec.task.Polling {
		return false
	}
	rec.task.Polling = false
	if rec.timer != nil {
		rec.timer.Stop()
	}
	metrics.ActivePolls.Dec()
	return true
}

// finish persists and announces a failed task.
func (p *Poller) finish(t Task) {
	metrics.TasksFinished.WithLabelValues(string(t.Status), string(t.FailReason)).Inc()
	log.Printf("[poller] task %s failed (%s): %s", t.TaskID, t.FailReason, t.ErrorMessage)
	p.persist(t)
	p.events.Publish(p.event(t, t.ErrorMessage, false))
}

func (p *Poller) persist(t Task) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
	defer cancel()
	st := t.State()
	st.UpdatedAt = p.sched.Now()
	if err := p.store.SaveTaskState(ctx, t.VideoID, st); err != nil {
		log.Printf("[poller] task %s: failed to persist state: %v", t.TaskID, err)
	}
}

func (p *Poller) event(t Task, msg string, isErr bool) Event {
	return Event{
		ID:       uuid.NewString(),
		TaskID:   t.TaskID,
		VideoID:  t.VideoID,
		Status:   t.Status,
		Progress: t.Progress,
		Message:  msg,
		IsError:  isErr,
		Time:     p.sched.Now(),
	}
}

// transportMessage turns a failed status check into the user-facing
// message and the metrics label.
func transportMessage(err error) (string, string) {
	var se *remote.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("server connection error (%d)", se.StatusCode), "status"
	}
	if errors.Is(err, remote.ErrUnauthorized) {
		return "server connection error (401)", "status"
	}
	return "network error", "network"
}

func clampProgress(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
