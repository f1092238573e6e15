package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/yangguang01/vibesub/internal/task"
)

// ─── Progress Bar ───────────────────────────────────────────────────────────
// Shows: [████████████░░░░░░░░░░░░░░░░░░]  42% │ processing

const barWidth = 30 // Characters for the progress bar

type progressBar struct {
	w io.Writer
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w}
}

func (p *progressBar) update(ev task.Event) {
	switch {
	case ev.IsError && !ev.Status.Terminal():
		p.clearLine()
		fmt.Fprintf(p.w, "[warn] %s\n", ev.Message)
	case ev.Status == task.StatusFailed:
		p.clearLine()
		fmt.Fprintf(p.w, "[failed] %s\n", ev.Message)
	case ev.Status == task.StatusCompleted && ev.IsError:
		p.clearLine()
		fmt.Fprintf(p.w, "[done] %s, retrying download\n", ev.Message)
	case ev.Status == task.StatusCompleted:
		p.clearLine()
		fmt.Fprintf(p.w, "[done] %s\n", bar(1))
	case len(ev.Strategies) > 0:
		p.clearLine()
		fmt.Fprintf(p.w, "[strategies] %s\n", strings.Join(ev.Strategies, "; "))
	default:
		p.clearLine()
		fmt.Fprintf(p.w, "%s │ %s", bar(ev.Progress), ev.Status)
	}
}

func (p *progressBar) clearLine() {
	fmt.Fprint(p.w, "\r\033[K")
}

func bar(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * barWidth)
	return fmt.Sprintf("[%s%s] %3.0f%%",
		strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled), progress*100)
}
