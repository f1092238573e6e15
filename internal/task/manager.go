package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/yangguang01/vibesub/internal/remote"
	"github.com/yangguang01/vibesub/internal/store"
	"github.com/yangguang01/vibesub/internal/subtitle"
)

// Settings that fill in submission fields the caller leaves empty.
const (
	SettingLanguage     = "language"
	SettingCustomPrompt = "custom_prompt"
	SettingSpecialTerms = "special_terms"
	SettingNeedRelogin  = "need_relogin"

	// SettingSessionCookie holds the translation service credential.
	SettingSessionCookie = "session_cookie"
)

// SubmitRequest describes a video to translate.
type SubmitRequest struct {
	YoutubeURL   string `json:"youtube_url"`
	VideoID      string `json:"video_id"`
	ContentName  string `json:"content_name"`
	ChannelName  string `json:"channel_name"`
	CustomPrompt string `json:"custom_prompt"`
	SpecialTerms string `json:"special_terms"`
	Language     string `json:"language"`
}

// SubmitResult is returned once the service accepted the job.
type SubmitResult struct {
	TaskID  string `json:"task_id"`
	VideoID string `json:"video_id"`
	Polling bool   `json:"polling"`
}

// Subtitles is the parsed payload for a video.
type Subtitles struct {
	VideoID string                 `json:"video_id"`
	SRT     string                 `json:"srt"`
	Cues    []subtitle.Cue         `json:"cues"`
	Skipped []*subtitle.ParseError `json:"-"`
}

// Manager submits jobs and answers questions about them, combining the
// live registry with persisted state.
type Manager struct {
	poller          *Poller
	svc             Service
	store           Store
	defaultLanguage string
}

func NewManager(p *Poller, svc Service, st Store, defaultLanguage string) *Manager {
	if defaultLanguage == "" {
		defaultLanguage = "zh-CN"
	}
	return &Manager{poller: p, svc: svc, store: st, defaultLanguage: defaultLanguage}
}

func (m *Manager) Poller() *Poller {
	return m.poller
}

// Submit creates a job on the translation service, records it as
// processing and starts polling. A 401 from the service is returned as
// remote.ErrUnauthorized and raises the need_relogin setting.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	if req.Language == "" {
		req.Language = m.store.Setting(ctx, SettingLanguage, m.defaultLanguage)
	}
	if req.CustomPrompt == "" {
		req.CustomPrompt = m.store.Setting(ctx, SettingCustomPrompt, "")
	}
	if req.SpecialTerms == "" {
		req.SpecialTerms = m.store.Setting(ctx, SettingSpecialTerms, "")
	}

	taskID, err := m.svc.CreateTask(ctx, remote.CreateTaskRequest{
		YoutubeURL:   req.YoutubeURL,
		ContentName:  req.ContentName,
		ChannelName:  req.ChannelName,
		CustomPrompt: req.CustomPrompt,
		SpecialTerms: req.SpecialTerms,
		Language:     req.Language,
	})
	if err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			log.Printf("[task] submit for video %s rejected: session expired", req.VideoID)
			if serr := m.store.SetSetting(ctx, SettingNeedRelogin, "true"); serr != nil {
				log.Printf("[task] failed to flag relogin: %v", serr)
			}
		}
		return nil, err
	}
	if err := m.store.SetSetting(ctx, SettingNeedRelogin, ""); err != nil {
		log.Printf("[task] failed to clear relogin flag: %v", err)
	}

	state := store.TaskState{
		TaskID:    taskID,
		Status:    string(StatusProcessing),
		Progress:  0,
		CreatedAt: m.poller.sched.Now(),
		UpdatedAt: m.poller.sched.Now(),
	}
	if err := m.store.SaveTaskState(ctx, req.VideoID, state); err != nil {
		log.Printf("[task] failed to persist new task %s: %v", taskID, err)
	}

	polling := m.poller.StartPolling(taskID, req.VideoID)
	log.Printf("[task] submitted video %s as task %s (language %s)", req.VideoID, taskID, req.Language)
	return &SubmitResult{TaskID: taskID, VideoID: req.VideoID, Polling: polling}, nil
}

// Status returns the live record of taskID, or failing that the latest
// known state for videoID.
func (m *Manager) Status(ctx context.Context, taskID, videoID string) (Task, error) {
	if taskID != "" {
		if t, ok := m.poller.Snapshot(taskID); ok {
			return t, nil
		}
	}
	if videoID == "" {
		return Task{}, fmt.Errorf("task %q: %w", taskID, ErrUnknownTask)
	}
	if t, ok := m.poller.reg.FindByVideo(videoID); ok && (taskID == "" || t.TaskID == taskID) {
		return t, nil
	}

	st, err := m.store.TaskState(ctx, videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Task{}, fmt.Errorf("video %q: %w", videoID, ErrUnknownTask)
		}
		return Task{}, err
	}
	return Task{
		TaskID:       st.TaskID,
		VideoID:      videoID,
		Status:       Status(st.Status),
		Progress:     st.Progress,
		ErrorMessage: st.ErrorMessage,
		FailReason:   FailReason(st.FailReason),
		StartedAt:    st.CreatedAt,
	}, nil
}

// ApplySubtitles loads the stored subtitle of videoID and parses it. When
// the stored task is completed but the payload is missing it is downloaded
// again. Malformed blocks are skipped and reported in Skipped.
func (m *Manager) ApplySubtitles(ctx context.Context, videoID string) (*Subtitles, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video_id is required: %w", ErrInvalidRequest)
	}

	srt, err := m.store.Subtitle(ctx, videoID)
	if errors.Is(err, store.ErrNotFound) {
		srt, err = m.redownload(ctx, videoID)
	}
	if err != nil {
		return nil, err
	}

	cues, skipped := subtitle.ParseLenient(srt)
	if len(cues) == 0 && len(skipped) > 0 {
		return nil, skipped[0]
	}
	for _, pe := range skipped {
		log.Printf("[task] video %s: skipped subtitle block: %v", videoID, pe)
	}
	return &Subtitles{VideoID: videoID, SRT: srt, Cues: cues, Skipped: skipped}, nil
}

func (m *Manager) redownload(ctx context.Context, videoID string) (string, error) {
	st, err := m.store.TaskState(ctx, videoID)
	if err != nil || Status(st.Status) != StatusCompleted {
		return "", fmt.Errorf("no subtitles for video %s: %w", videoID, store.ErrNotFound)
	}
	srt, err := m.svc.Subtitle(ctx, st.TaskID)
	if err != nil {
		return "", fmt.Errorf("download subtitle: %w", err)
	}
	if err := m.store.SaveSubtitle(ctx, videoID, srt); err != nil {
		log.Printf("[task] failed to store subtitle for video %s: %v", videoID, err)
	}
	log.Printf("[task] re-downloaded subtitle of task %s for video %s", st.TaskID, videoID)
	return srt, nil
}

// normalize trims the request, derives the video id from a watch URL when
// it is missing and validates the required fields.
func (r *SubmitRequest) normalize() error {
	r.YoutubeURL = strings.TrimSpace(r.YoutubeURL)
	r.VideoID = strings.TrimSpace(r.VideoID)
	if r.YoutubeURL == "" {
		return fmt.Errorf("youtube_url is required: %w", ErrInvalidRequest)
	}
	u, err := url.Parse(r.YoutubeURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("youtube_url %q is not a valid URL: %w", r.YoutubeURL, ErrInvalidRequest)
	}
	if r.VideoID == "" {
		r.VideoID = u.Query().Get("v")
	}
	if r.VideoID == "" {
		return fmt.Errorf("video_id is required: %w", ErrInvalidRequest)
	}
	return nil
}
