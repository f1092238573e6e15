// Package subtitle parses SubRip (SRT) text into timed cues and renders cues
// back to SRT or WebVTT.
package subtitle

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Cue is a single timed subtitle entry. Times are in seconds.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Contains reports whether t falls inside the cue, bounds inclusive.
func (c Cue) Contains(t float64) bool {
	return c.Start <= t && t <= c.End
}

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidRange     = errors.New("cue ends before it starts")
	ErrMissingTiming    = errors.New("timing line has no end time")
)

// ParseError describes a malformed cue block.
type ParseError struct {
	Line int    // 1-based line number of the timing line
	Text string // offending line
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("srt line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse converts SRT text into cues sorted by start time. The first
// malformed timing line aborts parsing with a *ParseError.
func Parse(source string) ([]Cue, error) {
	cues, errs := parse(source, true)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return cues, nil
}

// ParseLenient skips blocks with malformed timing and returns them as
// errors next to the cues that did parse.
func ParseLenient(source string) ([]Cue, []*ParseError) {
	return parse(source, false)
}

type block struct {
	cue    Cue
	timed  bool
	broken bool
}

func parse(source string, strict bool) ([]Cue, []*ParseError) {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")

	var (
		cues []Cue
		errs []*ParseError
		cur  *block
	)

	flush := func() {
		if cur != nil && cur.timed && !cur.broken && cur.cue.Text != "" {
			cues = append(cues, cur.cue)
		}
		cur = nil
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		// A leading BOM would otherwise hide the first sequence number.
		if i == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if line == "" {
			flush()
			continue
		}

		if cur == nil {
			cur = &block{}
		}

		if !cur.timed {
			if strings.Contains(line, "-->") {
				start, end, err := parseTiming(line)
				cur.timed = true
				if err != nil {
					perr := &ParseError{Line: i + 1, Text: line, Err: err}
					if strict {
						return nil, []*ParseError{perr}
					}
					errs = append(errs, perr)
					cur.broken = true
					continue
				}
				cur.cue.Start, cur.cue.End = start, end
				continue
			}
			// Sequence numbers, and stray text with no timing to attach to.
			continue
		}

		if cur.cue.Text != "" {
			cur.cue.Text += "\n"
		}
		cur.cue.Text += line
	}
	flush()

	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
	return cues, errs
}

func parseTiming(line string) (float64, float64, error) {
	parts := strings.SplitN(line, "-->", 2)
	left := strings.TrimSpace(parts[0])
	right := strings.TrimSpace(parts[1])
	if right == "" {
		return 0, 0, ErrMissingTiming
	}
	// Position hints ("X1:... Y1:...") may trail the end time.
	if f := strings.Fields(right); len(f) > 0 {
		right = f[0]
	}

	start, err := ParseTimestamp(left)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(right)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, ErrInvalidRange
	}
	return start, end, nil
}

// maxHours bounds the hour field so every accepted timestamp formats back
// to the same text.
const maxHours = 9999

// ParseTimestamp converts "HH:MM:SS,mmm" (or "HH:MM:SS.mmm") to seconds.
func ParseTimestamp(ts string) (float64, error) {
	fields := strings.Split(strings.Replace(strings.TrimSpace(ts), ",", ".", 1), ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
	}

	h, err := strconv.Atoi(fields[0])
	if err != nil || h < 0 || h > maxHours {
		return 0, fmt.Errorf("%w: hours in %q", ErrInvalidTimestamp, ts)
	}
	m, err := strconv.Atoi(fields[1])
	if err != nil || m < 0 || m >= 60 {
		return 0, fmt.Errorf("%w: minutes in %q", ErrInvalidTimestamp, ts)
	}
	if !isDecimal(fields[2]) {
		return 0, fmt.Errorf("%w: seconds in %q", ErrInvalidTimestamp, ts)
	}
	s, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || s < 0 || s >= 60 {
		return 0, fmt.Errorf("%w: seconds in %q", ErrInvalidTimestamp, ts)
	}

	return float64(h)*3600 + float64(m)*60 + s, nil
}

// FormatTimestamp renders seconds as "HH:MM:SS,mmm", rounding to the
// nearest millisecond.
func FormatTimestamp(seconds float64) string {
	return formatTimestamp(seconds, ',')
}

func formatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(seconds*1000 + 0.5)
	h := totalMs / 3600000
	totalMs %= 3600000
	m := totalMs / 60000
	totalMs %= 60000
	s := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

// Format renders cues as SRT, numbering them from 1.
func Format(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", FormatTimestamp(cue.Start), FormatTimestamp(cue.End))
		sb.WriteString(cue.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// isDecimal accepts digits with at most one '.', rejecting forms such as
// "NaN", "Inf" or exponents that strconv.ParseFloat would allow.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}
