package renderer

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/yangguang01/vibesub/internal/clock"
	"github.com/yangguang01/vibesub/internal/subtitle"
)

// TerminalOverlay prints cues as lines of text, stamped with the playback
// time when a video is attached. The X offset indents the text one column
// per 10 pixels.
type TerminalOverlay struct {
	mu     sync.Mutex
	w      io.Writer
	video  Video
	offset Offset
	shown  bool
}

func NewTerminalOverlay(w io.Writer, video Video) *TerminalOverlay {
	return &TerminalOverlay{w: w, video: video}
}

func (o *TerminalOverlay) Show(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	indent := ""
	if o.offset.X > 0 {
		indent = strings.Repeat(" ", int(o.offset.X/10))
	}
	stamp := ""
	if o.video != nil {
		stamp = "[" + subtitle.FormatTimestamp(o.video.CurrentTime()) + "] "
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i == 0 {
			fmt.Fprintf(o.w, "%s%s%s\n", stamp, indent, line)
			continue
		}
		fmt.Fprintf(o.w, "%s%s%s\n", strings.Repeat(" ", len(stamp)), indent, line)
	}
	o.shown = true
}

func (o *TerminalOverlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shown = false
}

func (o *TerminalOverlay) Move(off Offset) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.offset = off
}

// Listen is a no-op; a terminal has no pointer input.
func (o *TerminalOverlay) Listen(PointerHandler) func() {
	return func() {}
}

// WallClockVideo is a video whose playhead advances with the scheduler
// clock from a starting position.
type WallClockVideo struct {
	sched   clock.Scheduler
	startAt time.Time
	from    float64
	rate    float64
}

// NewWallClockVideo starts playback at from seconds, at the given rate
// (1 is normal speed).
func NewWallClockVideo(sched clock.Scheduler, from, rate float64) *WallClockVideo {
	if rate <= 0 {
		rate = 1
	}
	return &WallClockVideo{sched: sched, startAt: sched.Now(), from: from, rate: rate}
}

func (v *WallClockVideo) CurrentTime() float64 {
	return v.from + v.sched.Now().Sub(v.startAt).Seconds()*v.rate
}
