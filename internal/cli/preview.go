package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yangguang01/vibesub/internal/clock"
	"github.com/yangguang01/vibesub/internal/daemon"
	"github.com/yangguang01/vibesub/internal/renderer"
	"github.com/yangguang01/vibesub/internal/subtitle"
)

func init() {
	previewCmd.Flags().StringVar(&previewVideoID, "video-id", "", "Play the stored subtitle of this video instead of a file")
	previewCmd.Flags().Float64Var(&previewFrom, "from", 0, "Start position in seconds")
	previewCmd.Flags().Float64Var(&previewRate, "rate", 1, "Playback rate")
	previewCmd.Flags().DurationVar(&previewInterval, "interval", 0, "Sampling interval (default render.interval from config)")
	rootCmd.AddCommand(previewCmd)
}

var (
	previewVideoID  string
	previewFrom     float64
	previewRate     float64
	previewInterval time.Duration
)

var previewCmd = &cobra.Command{
	Use:   "preview [file.srt]",
	Short: "Play subtitles in the terminal in real time",
	Long: `Play a subtitle file, or the stored subtitle of a video, against a
simulated playhead. Each cue is printed when it becomes active.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var (
		videoID   string
		cues      []subtitle.Cue
		positions renderer.PositionStore
	)
	switch {
	case len(args) == 1:
		var skipped []*subtitle.ParseError
		cues, skipped, err = readCues(args[0], true)
		if err != nil {
			return err
		}
		if len(cues) == 0 && len(skipped) > 0 {
			return fmt.Errorf("%s: %w", args[0], skipped[0])
		}
		videoID = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	case previewVideoID != "":
		d, err := daemon.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()
		subs, err := d.Manager.ApplySubtitles(ctx, previewVideoID)
		if err != nil {
			return err
		}
		videoID, cues, positions = previewVideoID, subs.Cues, d.Store
	default:
		return errors.New("give a subtitle file or --video-id")
	}
	if len(cues) == 0 {
		return fmt.Errorf("%s has no cues", videoID)
	}

	interval := previewTick(previewInterval, cfg.Render.Interval)
	sched := clock.Real{}
	video := renderer.NewWallClockVideo(sched, previewFrom, previewRate)
	overlay := renderer.NewTerminalOverlay(cmd.OutOrStdout(), video)
	session := renderer.NewSession(renderer.New(sched, positions, interval))
	if err := session.Load(videoID, video, overlay, cues); err != nil {
		return err
	}
	defer session.Close()

	last := lastEnd(cues)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for video.CurrentTime() <= last {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// previewTick picks the sampling interval: the flag when positive, then the
// configured render interval, then the renderer default.
func previewTick(flag, configured time.Duration) time.Duration {
	switch {
	case flag > 0:
		return flag
	case configured > 0:
		return configured
	}
	return renderer.DefaultInterval
}

func lastEnd(cues []subtitle.Cue) float64 {
	var end float64
	for _, c := range cues {
		if c.End > end {
			end = c.End
		}
	}
	return end
}
