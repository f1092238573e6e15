// Package store persists task, subtitle and overlay state keyed by video id.
// Values are JSON documents stored in a pluggable key-value backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by KV backends and Store getters for missing keys.
var ErrNotFound = errors.New("not found")

// KV is the minimal key-value contract every backend implements.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// TaskState is the persisted mirror of a task, read by the popup to restore
// progress after it is reopened.
type TaskState struct {
	TaskID       string    `json:"taskId"`
	Status       string    `json:"status"`
	Progress     float64   `json:"progress"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	FailReason   string    `json:"failReason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Strategies is the translation-guidance payload returned once per task.
type Strategies struct {
	Strategies []string `json:"strategies"`
}

// Position is the user's overlay offset in pixels from the default anchor.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const (
	positionKey = "subtitlePosition"
)

func taskStatusKey(videoID string) string    { return "task_status_" + videoID }
func subtitleKey(videoID string) string      { return "subtitle_" + videoID }
func strategiesKey(videoID string) string    { return "translation_strategies_" + videoID }
func hasStrategiesKey(videoID string) string { return "has_translation_strategies_" + videoID }
func settingKey(name string) string          { return "settings_" + name }

// Store is the typed view over a KV backend.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SaveTaskState records the latest known state of the task for videoID.
func (s *Store) SaveTaskState(ctx context.Context, videoID string, st TaskState) error {
	if videoID == "" {
		return nil
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	return s.putJSON(ctx, taskStatusKey(videoID), st)
}

// TaskState returns the stored state for videoID or ErrNotFound.
func (s *Store) TaskState(ctx context.Context, videoID string) (*TaskState, error) {
	var st TaskState
	if err := s.getJSON(ctx, taskStatusKey(videoID), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveSubtitle stores the raw SRT text downloaded for videoID.
func (s *Store) SaveSubtitle(ctx context.Context, videoID, srt string) error {
	if videoID == "" {
		return nil
	}
	if err := s.kv.Set(ctx, subtitleKey(videoID), srt); err != nil {
		return fmt.Errorf("set subtitle: %w", err)
	}
	return nil
}

// Subtitle returns the stored SRT text for videoID or ErrNotFound.
func (s *Store) Subtitle(ctx context.Context, videoID string) (string, error) {
	return s.kv.Get(ctx, subtitleKey(videoID))
}

// SaveStrategies stores the strategies payload and raises the
// has-strategies flag for videoID.
func (s *Store) SaveStrategies(ctx context.Context, videoID string, st Strategies) error {
	if videoID == "" {
		return nil
	}
	if err := s.putJSON(ctx, strategiesKey(videoID), st); err != nil {
		return err
	}
	return s.putJSON(ctx, hasStrategiesKey(videoID), true)
}

// Strategies returns the stored strategies and whether the flag is set.
func (s *Store) Strategies(ctx context.Context, videoID string) (*Strategies, bool, error) {
	var has bool
	if err := s.getJSON(ctx, hasStrategiesKey(videoID), &has); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	var st Strategies
	if err := s.getJSON(ctx, strategiesKey(videoID), &st); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &st, true, nil
}

// ForgetVideo removes everything stored for videoID.
func (s *Store) ForgetVideo(ctx context.Context, videoID string) error {
	for _, key := range []string{taskStatusKey(videoID), subtitleKey(videoID), strategiesKey(videoID), hasStrategiesKey(videoID)} {
		if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// LoadPosition returns the saved overlay offset, (0,0) when none is stored.
func (s *Store) LoadPosition(ctx context.Context) (float64, float64, error) {
	var p Position
	if err := s.getJSON(ctx, positionKey, &p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return p.X, p.Y, nil
}

// SavePosition persists the overlay offset.
func (s *Store) SavePosition(ctx context.Context, x, y float64) error {
	return s.putJSON(ctx, positionKey, Position{X: x, Y: y})
}

// Setting returns a stored preference, or defaultVal if it is not set.
func (s *Store) Setting(ctx context.Context, name, defaultVal string) string {
	v, err := s.kv.Get(ctx, settingKey(name))
	if err != nil || v == "" {
		return defaultVal
	}
	return v
}

// SetSetting stores a preference; an empty value clears it.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	if value == "" {
		if err := s.kv.Delete(ctx, settingKey(name)); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	}
	return s.kv.Set(ctx, settingKey(name), value)
}
