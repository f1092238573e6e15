package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yangguang01/vibesub/internal/command"
	"github.com/yangguang01/vibesub/internal/daemon"
	"github.com/yangguang01/vibesub/internal/task"
)

func init() {
	submitCmd.Flags().StringVar(&submitURL, "url", "", "Video URL (required)")
	submitCmd.Flags().StringVar(&submitVideoID, "video-id", "", "Video id (derived from the URL when omitted)")
	submitCmd.Flags().StringVar(&submitLanguage, "language", "", "Target language (default from settings)")
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "Video title sent as context")
	submitCmd.Flags().StringVar(&submitChannel, "channel", "", "Channel name sent as context")
	submitCmd.Flags().StringVarP(&submitOut, "output", "o", "", "Write the finished SRT to this file")
	submitCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(submitCmd)
}

var (
	submitURL      string
	submitVideoID  string
	submitLanguage string
	submitTitle    string
	submitChannel  string
	submitOut      string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a video for translation and wait for the subtitles",
	Args:  cobra.NoArgs,
	RunE:  runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := daemon.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	events, cancel := d.Hub.Subscribe(64)
	defer cancel()

	resp, err := d.Dispatcher.Execute(ctx, command.Submit{
		YoutubeURL:  submitURL,
		VideoID:     submitVideoID,
		Language:    submitLanguage,
		ContentName: submitTitle,
		ChannelName: submitChannel,
	})
	if err != nil {
		return err
	}
	res := resp.(*task.SubmitResult)
	fmt.Fprintf(cmd.ErrOrStderr(), "task %s submitted for video %s\n", res.TaskID, res.VideoID)

	final, err := follow(ctx, events, res.TaskID, newProgressBar(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	if final.Status == task.StatusFailed {
		return fmt.Errorf("task %s: %s", final.TaskID, final.Message)
	}

	// A completed task whose download failed is fetched again here.

	subs, err := d.Manager.ApplySubtitles(ctx, res.VideoID)
	if err != nil {
		return err
	}
	if submitOut != "" {
		if err := os.WriteFile(submitOut, []byte(subs.SRT), 0o644); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d cues ready for video %s\n", len(subs.Cues), res.VideoID)
	return nil
}

// follow consumes events for taskID until it reaches a terminal status.
// Warnings are shown but do not end the wait.
func follow(ctx context.Context, events <-chan task.Event, taskID string, pb *progressBar) (task.Event, error) {
	for {
		select {
		case <-ctx.Done():
			return task.Event{}, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return task.Event{}, fmt.Errorf("event stream closed")
			}
			if ev.TaskID != taskID {
				continue
			}
			pb.update(ev)
			if ev.Status.Terminal() {
				return ev, nil
			}
		}
	}
}
