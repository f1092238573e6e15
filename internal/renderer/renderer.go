// Package renderer keeps a subtitle overlay in sync with a video's playback
// clock and lets the user drag the overlay to a new position.
package renderer

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/yangguang01/vibesub/internal/clock"
	"github.com/yangguang01/vibesub/internal/metrics"
	"github.com/yangguang01/vibesub/internal/subtitle"
)

// DefaultInterval is how often the playback clock is sampled.
const DefaultInterval = 100 * time.Millisecond

var (
	ErrNoVideo   = errors.New("no video element")
	ErrNoOverlay = errors.New("no overlay")
	ErrNoCues    = errors.New("no subtitle cues")
)

// Video exposes the playback clock in seconds.
type Video interface {
	CurrentTime() float64
}

// Offset is the overlay displacement in pixels from its default anchor, in
// screen axes: positive Y moves the overlay down.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	DoubleClick
)

type PointerEvent struct {
	Kind PointerKind
	X, Y float64
}

type PointerHandler func(PointerEvent)

// Overlay is the surface cues are drawn on.
type Overlay interface {
	Show(text string)
	Clear()
	Move(o Offset)
	// Listen registers h for pointer input and returns a func that
	// unregisters it. unlisten must not wait for a running handler.
	Listen(h PointerHandler) (unlisten func())
}

// PositionStore persists the overlay offset across sessions.
type PositionStore interface {
	LoadPosition(ctx context.Context) (x, y float64, err error)
	SavePosition(ctx context.Context, x, y float64) error
}

// Renderer shows the cue under the playback position. One Renderer drives
// one overlay at a time.
type Renderer struct {
	sched     clock.Scheduler
	positions PositionStore
	interval  time.Duration

	mu       sync.Mutex
	running  bool
	gen      uint64
	video    Video
	overlay  Overlay
	cues     []subtitle.Cue
	maxEnd   []float64
	active   int
	timer    clock.Timer
	unlisten func()

	offset   Offset
	dragging bool
	anchor   Offset
}

// New creates a renderer. positions may be nil, in which case the offset
// is not persisted.
func New(sched clock.Scheduler, positions PositionStore, interval time.Duration) *Renderer {
	if sched == nil {
		sched = clock.Real{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Renderer{
		sched:     sched,
		positions: positions,
		interval:  interval,
		active:    -1,
	}
}

// Start attaches the overlay and begins sampling video. A running renderer
// is stopped first.
func (r *Renderer) Start(video Video, overlay Overlay, cues []subtitle.Cue) error {
	if video == nil {
		return ErrNoVideo
	}
	if overlay == nil {
		return ErrNoOverlay
	}
	if len(cues) == 0 {
		return ErrNoCues
	}

	sorted := make([]subtitle.Cue, len(cues))
	copy(sorted, cues)
	if !sort.SliceIsSorted(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start }) {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	}

	offset := r.loadOffset()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		r.stopLocked()
	}

	r.gen++
	gen := r.gen
	r.running = true
	r.video = video
	r.overlay = overlay
	r.cues = sorted
	r.maxEnd = prefixMaxEnd(sorted)
	r.active = -1
	r.offset = offset

	overlay.Move(offset)
	r.unlisten = overlay.Listen(r.handlePointer)
	r.timer = clock.Repeat(r.sched, r.interval, r.interval, func() { r.tick(gen) })

	log.Printf("[renderer] started with %d cues, offset (%.0f, %.0f)", len(sorted), offset.X, offset.Y)
	return nil
}

// Stop detaches from the overlay. Calling it when stopped is a no-op.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.stopLocked()
	log.Printf("[renderer] stopped")
}

func (r *Renderer) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.unlisten != nil {
		r.unlisten()
		r.unlisten = nil
	}
	r.overlay.Clear()
	r.dragging = false
	r.active = -1
	r.cues = nil
	r.maxEnd = nil
	r.video = nil
	r.overlay = nil
	r.running = false
	r.gen++
}

// Running reports whether the renderer is attached.
func (r *Renderer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Offset returns the current overlay offset.
func (r *Renderer) Offset() Offset {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offset
}

// Active returns the cue currently displayed.
func (r *Renderer) Active() (subtitle.Cue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active < 0 {
		return subtitle.Cue{}, false
	}
	return r.cues[r.active], true
}

func (r *Renderer) tick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running || gen != r.gen {
		return
	}

	i := findCue(r.cues, r.maxEnd, r.video.CurrentTime())
	if i == r.active {
		return
	}
	if i < 0 {
		r.overlay.Clear()
	} else if r.active < 0 || r.cues[r.active].Text != r.cues[i].Text {
		r.overlay.Show(r.cues[i].Text)
	}
	r.active = i
	metrics.CueSwaps.Inc()
}

func (r *Renderer) handlePointer(ev PointerEvent) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}

	switch ev.Kind {
	case PointerDown:
		r.dragging = true
		r.anchor = Offset{X: ev.X - r.offset.X, Y: ev.Y - r.offset.Y}
		r.mu.Unlock()

	case PointerMove:
		if !r.dragging {
			r.mu.Unlock()
			return
		}
		r.offset = Offset{X: ev.X - r.anchor.X, Y: ev.Y - r.anchor.Y}
		r.overlay.Move(r.offset)
		r.mu.Unlock()

	case PointerUp:
		if !r.dragging {
			r.mu.Unlock()
			return
		}
		r.dragging = false
		offset := r.offset
		r.mu.Unlock()
		r.saveOffset(offset)

	case DoubleClick:
		r.dragging = false
		r.offset = Offset{}
		r.overlay.Move(r.offset)
		r.mu.Unlock()
		r.saveOffset(Offset{})

	default:
		r.mu.Unlock()
	}
}

func (r *Renderer) loadOffset() Offset {
	if r.positions == nil {
		return Offset{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	x, y, err := r.positions.LoadPosition(ctx)
	if err != nil {
		log.Printf("[renderer] failed to load overlay position: %v", err)
		return Offset{}
	}
	return Offset{X: x, Y: y}
}

func (r *Renderer) saveOffset(o Offset) {
	if r.positions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.positions.SavePosition(ctx, o.X, o.Y); err != nil {
		log.Printf("[renderer] failed to save overlay position: %v", err)
	}
}

// prefixMaxEnd returns m where m[i] is the largest End among cues[:i+1].
func prefixMaxEnd(cues []subtitle.Cue) []float64 {
	m := make([]float64, len(cues))
	for i, c := range cues {
		m[i] = c.End
		if i > 0 && m[i-1] > m[i] {
			m[i] = m[i-1]
		}
	}
	return m
}

// findCue returns the index of the earliest-starting cue containing t, or
// -1. cues must be sorted by Start and maxEnd built by prefixMaxEnd.
func findCue(cues []subtitle.Cue, maxEnd []float64, t float64) int {
	// The first cue whose running max End reaches t is the first one that
	// ends at or after t.
	i := sort.Search(len(maxEnd), func(i int) bool { return maxEnd[i] >= t })
	if i == len(cues) || cues[i].Start > t {
		return -1
	}
	return i
}
