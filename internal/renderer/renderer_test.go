package renderer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yangguang01/vibesub/internal/clock"
	"github.com/yangguang01/vibesub/internal/subtitle"
)

type fakeVideo struct {
	mu sync.Mutex
	t  float64
}

func (v *fakeVideo) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.t
}

func (v *fakeVideo) seek(t float64) {
	v.mu.Lock()
	v.t = t
	v.mu.Unlock()
}

type fakeOverlay struct {
	mu        sync.Mutex
	text      string
	shows     int
	clears    int
	moves     []Offset
	handler   PointerHandler
	unlistens int
}

func (o *fakeOverlay) Show(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.text = text
	o.shows++
}

func (o *fakeOverlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.text = ""
	o.clears++
}

func (o *fakeOverlay) Move(off Offset) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moves = append(o.moves, off)
}

func (o *fakeOverlay) Listen(h PointerHandler) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handler = h
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.handler = nil
		o.unlistens++
	}
}

// pointer delivers an event the way a UI thread would.
func (o *fakeOverlay) pointer(kind PointerKind, x, y float64) {
	o.mu.Lock()
	h := o.handler
	o.mu.Unlock()
	if h != nil {
		h(PointerEvent{Kind: kind, X: x, Y: y})
	}
}

func (o *fakeOverlay) shown() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.text
}

type fakePositions struct {
	mu      sync.Mutex
	x, y    float64
	saves   int
	loadErr error
}

func (p *fakePositions) LoadPosition(context.Context) (float64, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y, p.loadErr
}

func (p *fakePositions) SavePosition(_ context.Context, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.x, p.y = x, y
	p.saves++
	return nil
}

var abCues = []subtitle.Cue{
	{Start: 0, End: 2, Text: "A"},
	{Start: 2, End: 4, Text: "B"},
}

func newTestRenderer(pos PositionStore) (*Renderer, *clock.Fake) {
	clk := clock.NewFake(time.Unix(0, 0))
	return New(clk, pos, DefaultInterval), clk
}

func TestRenderer_ShowsCueUnderPlayhead(t *testing.T) {
	r, clk := newTestRenderer(nil)
	video := &fakeVideo{}
	overlay := &fakeOverlay{}
	if err := r.Start(video, overlay, abCues); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	tests := []struct {
		at   float64
		want string
	}{
		{1, "A"},
		{3, "B"},
		{5, ""},
	}
	for _, tt := range tests {
		video.seek(tt.at)
		clk.Advance(DefaultInterval)
		if got := overlay.shown(); got != tt.want {
			t.Errorf("t=%v: shown %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestRenderer_StartRejectsMissingInputs(t *testing.T) {
	r, clk := newTestRenderer(nil)
	overlay := &fakeOverlay{}

	if err := r.Start(nil, overlay, abCues); !errors.Is(err, ErrNoVideo) {
		t.Errorf("nil video: err = %v", err)
	}
	if err := r.Start(&fakeVideo{}, overlay, nil); !errors.Is(err, ErrNoCues) {
		t.Errorf("no cues: err = %v", err)
	}
	if err := r.Start(&fakeVideo{}, nil, abCues); !errors.Is(err, ErrNoOverlay) {
		t.Errorf("nil overlay: err = %v", err)
	}
	if clk.Pending() != 0 || len(overlay.moves) != 0 || overlay.handler != nil || r.Running() {
		t.Error("rejected Start had side effects")
	}
}

func TestRenderer_NoRedundantUpdates(t *testing.T) {
	r, clk := newTestRenderer(nil)
	video := &fakeVideo{t: 0.5}
	overlay := &fakeOverlay{}
	r.Start(video, overlay, abCues)
	defer r.Stop()

	clk.Advance(time.Second) // ten ticks inside cue A
	if overlay.shows != 1 {
		t.Errorf("shows = %d, want 1", overlay.shows)
	}

	video.seek(10)
	clk.Advance(time.Second)
	if overlay.clears != 1 {
		t.Errorf("clears = %d, want 1", overlay.clears)
	}
}

func TestFindCue(t *testing.T) {
	cues := []subtitle.Cue{
		{Start: 0, End: 10, Text: "long"},
		{Start: 1, End: 2, Text: "short"},
		{Start: 5, End: 6, Text: "mid"},
		{Start: 12, End: 13, Text: "late"},
	}
	maxEnd := prefixMaxEnd(cues)

	tests := []struct {
		t    float64
		want int
	}{
		{-1, -1},
		{0, 0},
		{1.5, 0}, // overlap: earliest start wins
		{10, 0},
		{11, -1},
		{12, 3},
		{13, 3},
		{13.001, -1},
	}
	for _, tt := range tests {
		if got := findCue(cues, maxEnd, tt.t); got != tt.want {
			t.Errorf("findCue(%v) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestRenderer_Drag(t *testing.T) {
	pos := &fakePositions{}
	r, _ := newTestRenderer(pos)
	overlay := &fakeOverlay{}
	r.Start(&fakeVideo{}, overlay, abCues)
	defer r.Stop()

	// Moves without a press are ignored.
	overlay.pointer(PointerMove, 50, 50)
	if got := r.Offset(); got != (Offset{}) {
		t.Fatalf("offset after stray move = %+v", got)
	}

	overlay.pointer(PointerDown, 100, 100)
	overlay.pointer(PointerMove, 130, 90)
	overlay.pointer(PointerMove, 160, 70)
	if got := r.Offset(); got != (Offset{X: 60, Y: -30}) {
		t.Errorf("offset while dragging = %+v", got)
	}
	if pos.saves != 0 {
		t.Error("position saved before release")
	}

	overlay.pointer(PointerUp, 160, 70)
	if pos.saves != 1 || pos.x != 60 || pos.y != -30 {
		t.Errorf("saved = (%v,%v) x%d", pos.x, pos.y, pos.saves)
	}

	// A second drag continues from the current offset.
	overlay.pointer(PointerDown, 0, 0)
	overlay.pointer(PointerMove, 10, 10)
	overlay.pointer(PointerUp, 10, 10)
	if got := r.Offset(); got != (Offset{X: 70, Y: -20}) {
		t.Errorf("offset after second drag = %+v", got)
	}

	overlay.pointer(DoubleClick, 0, 0)
	if got := r.Offset(); got != (Offset{}) {
		t.Errorf("offset after double click = %+v", got)
	}
	if pos.x != 0 || pos.y != 0 || pos.saves != 3 {
		t.Errorf("saved after reset = (%v,%v) x%d", pos.x, pos.y, pos.saves)
	}
	if last := overlay.moves[len(overlay.moves)-1]; last != (Offset{}) {
		t.Errorf("last move = %+v", last)
	}
}

func TestRenderer_AppliesStoredPosition(t *testing.T) {
	pos := &fakePositions{x: -12, y: 40}
	r, _ := newTestRenderer(pos)
	overlay := &fakeOverlay{}
	r.Start(&fakeVideo{}, overlay, abCues)
	defer r.Stop()

	if len(overlay.moves) != 1 || overlay.moves[0] != (Offset{X: -12, Y: 40}) {
		t.Errorf("moves = %+v", overlay.moves)
	}

	pos.loadErr = errors.New("disk gone")
	r.Start(&fakeVideo{}, overlay, abCues)
	if got := r.Offset(); got != (Offset{}) {
		t.Errorf("offset after load failure = %+v", got)
	}
}

func TestRenderer_StopIsIdempotent(t *testing.T) {
	pos := &fakePositions{}
	r, clk := newTestRenderer(pos)
	video := &fakeVideo{t: 1}
	overlay := &fakeOverlay{}
	r.Start(video, overlay, abCues)
	clk.Advance(DefaultInterval)

	overlay.pointer(PointerDown, 0, 0)
	r.Stop()
	r.Stop()

	if overlay.shown() != "" || overlay.unlistens != 1 {
		t.Errorf("after stop: text %q, unlistens %d", overlay.shown(), overlay.unlistens)
	}
	if clk.Pending() != 0 {
		t.Errorf("pending timers = %d", clk.Pending())
	}
	if _, ok := r.Active(); ok {
		t.Error("active cue kept after stop")
	}

	shows := overlay.shows
	video.seek(3)
	clk.Advance(time.Second)
	if overlay.shows != shows {
		t.Error("overlay updated after stop")
	}
	if pos.saves != 0 {
		t.Error("aborted drag was persisted")
	}
}

func TestRenderer_RestartKeepsOneTimer(t *testing.T) {
	r, clk := newTestRenderer(nil)
	first := &fakeOverlay{}
	second := &fakeOverlay{}
	video := &fakeVideo{t: 1}

	r.Start(video, first, abCues)
	r.Start(video, second, []subtitle.Cue{{Start: 0, End: 5, Text: "other"}})
	if clk.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", clk.Pending())
	}
	if first.unlistens != 1 || first.clears != 1 {
		t.Errorf("first overlay not detached: %+v", first)
	}

	clk.Advance(DefaultInterval)
	if second.shown() != "other" || first.shows != 0 {
		t.Errorf("second %q, first shows %d", second.shown(), first.shows)
	}
	r.Stop()
}

func TestSession_VideoSwitchStopsRenderer(t *testing.T) {
	r, clk := newTestRenderer(nil)
	s := NewSession(r)
	overlay := &fakeOverlay{}

	if err := s.Load("v1", &fakeVideo{t: 1}, overlay, abCues); err != nil {
		t.Fatal(err)
	}
	clk.Advance(DefaultInterval)
	if overlay.shown() != "A" {
		t.Fatalf("shown %q", overlay.shown())
	}

	if s.Navigate("v1") {
		t.Error("same video reported as a change")
	}
	if !r.Running() {
		t.Fatal("renderer stopped on same-video navigation")
	}

	if !s.Navigate("v2") {
		t.Error("new video not reported as a change")
	}
	if r.Running() || overlay.shown() != "" {
		t.Error("renderer still attached after video change")
	}
	if s.VideoID() != "v2" {
		t.Errorf("video id = %q", s.VideoID())
	}
	s.Close()
}

func TestTerminalOverlay(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	video := NewWallClockVideo(clk, 61, 1)
	var buf bytes.Buffer
	o := NewTerminalOverlay(&buf, video)

	clk.Advance(1500 * time.Millisecond)
	o.Move(Offset{X: 20})
	o.Show("hello\nworld")

	out := buf.String()
	if !strings.HasPrefix(out, "[00:01:02,500]   hello\n") {
		t.Errorf("output = %q", out)
	}
	// 15 columns of stamp plus 2 of indent.
	if !strings.Contains(out, "\n"+strings.Repeat(" ", 17)+"world\n") {
		t.Errorf("continuation line = %q", out)
	}
}
