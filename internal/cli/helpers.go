package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yangguang01/vibesub/internal/subtitle"
)

// readCues loads a subtitle file. .vtt files are read as WebVTT, anything
// else as SRT. In lenient mode malformed SRT blocks are returned as
// skipped instead of failing the read.
func readCues(path string, lenient bool) ([]subtitle.Cue, []*subtitle.ParseError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".vtt") {
		return subtitle.ParseVTT(string(data)), nil, nil
	}
	if lenient {
		cues, skipped := subtitle.ParseLenient(string(data))
		return cues, skipped, nil
	}
	cues, err := subtitle.Parse(string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return cues, nil, nil
}

// oneLine joins a multi-line cue for table output.
func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " / ")
}
