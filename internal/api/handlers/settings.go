package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/yangguang01/vibesub/internal/task"
)

const mask = "••••••••"

// settingsKeys defines which keys are allowed and their display metadata
var settingsKeys = []SettingDef{
	{Key: task.SettingLanguage, Label: "Target Language", Group: "translation", Placeholder: "zh-CN"},
	{Key: task.SettingCustomPrompt, Label: "Custom Prompt", Group: "translation", Placeholder: "Keep a casual tone"},
	{Key: task.SettingSpecialTerms, Label: "Special Terms", Group: "translation", Placeholder: "GPT, LLM"},
	{Key: task.SettingSessionCookie, Label: "Session Cookie", Group: "account", Placeholder: "session=...", Secret: true},
	{Key: task.SettingNeedRelogin, Label: "Login Required", Group: "account", ReadOnly: true},
}

type SettingDef struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Group       string `json:"group"`
	Placeholder string `json:"placeholder"`
	Secret      bool   `json:"secret"`
	ReadOnly    bool   `json:"read_only,omitempty"`
}

// SettingsStore reads and writes named preferences.
type SettingsStore interface {
	Setting(ctx context.Context, name, defaultVal string) string
	SetSetting(ctx context.Context, name, value string) error
}

type SettingsHandler struct {
	store    SettingsStore
	onChange func(key, value string)
}

// NewSettingsHandler creates the handler. onChange, if set, runs after each
// stored update so live components pick up the new value.
func NewSettingsHandler(st SettingsStore, onChange func(key, value string)) *SettingsHandler {
	return &SettingsHandler{store: st, onChange: onChange}
}

// GetSettings returns all settings (secrets are masked)
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	type SettingResponse struct {
		SettingDef
		Value    string `json:"value"`
		HasValue bool   `json:"has_value"`
	}

	result := make([]SettingResponse, 0, len(settingsKeys))
	for _, def := range settingsKeys {
		val := h.store.Setting(r.Context(), def.Key, "")
		masked := val
		hasValue := val != ""
		if def.Secret && hasValue {
			// Show only last 4 chars
			if len(val) > 4 {
				masked = mask + val[len(val)-4:]
			} else {
				masked = mask
			}
		}
		result = append(result, SettingResponse{
			SettingDef: def,
			Value:      masked,
			HasValue:   hasValue,
		})
	}

	jsonResponse(w, result, http.StatusOK)
}

// UpdateSettings saves settings from the request body. Unknown and
// read-only keys are ignored; an empty value clears the setting.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	defs := make(map[string]SettingDef, len(settingsKeys))
	for _, def := range settingsKeys {
		defs[def.Key] = def
	}

	for key, value := range updates {
		def, ok := defs[key]
		if !ok || def.ReadOnly {
			continue
		}
		// A masked value echoed back by the form means "unchanged".
		if def.Secret && strings.HasPrefix(value, mask) {
			continue
		}
		value = strings.TrimSpace(value)
		if err := h.store.SetSetting(r.Context(), key, value); err != nil {
			jsonError(w, "failed to save setting: "+key, http.StatusInternalServerError)
			return
		}
		if key == task.SettingSessionCookie && value != "" {
			// A fresh credential resolves a pending relogin.
			if err := h.store.SetSetting(r.Context(), task.SettingNeedRelogin, ""); err != nil {
				log.Printf("[api] clear %s: %v", task.SettingNeedRelogin, err)
			}
		}
		if h.onChange != nil {
			h.onChange(key, value)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
