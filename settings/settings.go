// Package settings persists the small amount of application state that
// outlives a session: currently the last-used directory for file dialogs.
// Loaded once at startup, saved on every successful document load.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	appDir       = "takeoffkit"
	settingsFile = "settings.json"
)

// Settings is the persisted application state.
type Settings struct {
	LastDir string `json:"last_dir"`

	path string
}

// Load reads settings from the user config directory, returning defaults
// when the file does not exist or cannot be parsed.
func Load() *Settings {
	s := &Settings{}
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	s.path = filepath.Join(configDir, appDir, settingsFile)

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s
	}
	_ = json.Unmarshal(data, s)
	return s
}

// LoadFrom reads settings from an explicit path. Used by tests.
func LoadFrom(path string) *Settings {
	s := &Settings{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	_ = json.Unmarshal(data, s)
	return s
}

// Save writes the settings to disk, creating the config directory if
// needed.
func (s *Settings) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// RememberDir records the directory of a successfully loaded document and
// saves immediately. Save errors are ignored; losing the hint is harmless.
func (s *Settings) RememberDir(documentPath string) {
	s.LastDir = filepath.Dir(documentPath)
	_ = s.Save()
}
