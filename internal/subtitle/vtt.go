package subtitle

import (
	"fmt"
	"regexp"
	"strings"
)

var vttTimestampRe = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}[.,]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[.,]\d{3})`)

// ToVTT converts cues to WebVTT so the overlay can also be served as a
// native text track.
func ToVTT(cues []Cue) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, cue := range cues {
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", formatTimestamp(cue.Start, '.'), formatTimestamp(cue.End, '.')))
		sb.WriteString(cue.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// ParseVTT reads WebVTT content. Cue settings after the end time and NOTE
// blocks are ignored; timing lines that do not match are skipped.
func ParseVTT(content string) []Cue {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var cues []Cue
	var current *Cue
	inNote := false

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" {
			if current != nil && current.Text != "" {
				cues = append(cues, *current)
			}
			current = nil
			inNote = false
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") || inNote {
			continue
		}
		if strings.HasPrefix(line, "NOTE") && current == nil {
			inNote = true
			continue
		}

		if matches := vttTimestampRe.FindStringSubmatch(line); len(matches) == 3 && current == nil {
			start, err1 := ParseTimestamp(matches[1])
			end, err2 := ParseTimestamp(matches[2])
			if err1 != nil || err2 != nil || end < start {
				continue
			}
			current = &Cue{Start: start, End: end}
			continue
		}

		if current != nil {
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += line
		}
	}

	if current != nil && current.Text != "" {
		cues = append(cues, *current)
	}

	return cues
}
