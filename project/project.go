// Package project persists an audiosync session — tracks, config, and
// the last analysis result — as a versioned JSON file.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/audiosync/audiosync"
)

// Version is the project file schema version written by this binary.
// Loading a file with a newer version is rejected.
const Version = 2

// AppVersion identifies the engine build that wrote a project file.
var AppVersion = "dev"

// File is the top-level structure serialized to a project file.
type File struct {
	Version    int                   `json:"version"`
	AppVersion string                `json:"app_version"`
	SavedAt    string                `json:"saved_at"`
	Tracks     []*audiosync.Track    `json:"tracks"`
	Config     audiosync.SyncConfig  `json:"config"`
	Result     *audiosync.SyncResult `json:"result,omitempty"`
}

// New builds a File from the current session state. SavedAt is an
// RFC 3339 timestamp.
func New(tracks []*audiosync.Track, config audiosync.SyncConfig, result *audiosync.SyncResult) *File {
	return &File{
		Version:    Version,
		AppVersion: AppVersion,
		SavedAt:    time.Now().UTC().Format(time.RFC3339),
		Tracks:     tracks,
		Config:     config,
		Result:     result,
	}
}

// Save writes tracks/config/result to path as indented JSON.
func Save(path string, tracks []*audiosync.Track, config audiosync.SyncConfig, result *audiosync.SyncResult) error {
	file := New(tracks, config, result)

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("project: failed to serialize project: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("project: failed to write %s: %w", path, err)
	}

	return nil
}

// Load reads and parses a project file, rejecting any schema version
// newer than Version.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: cannot read %s: %w", path, err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("project: failed to parse %s: %w", path, err)
	}

	if file.Version > Version {
		return nil, fmt.Errorf("project: file version %d is newer than supported version %d, please update",
			file.Version, Version)
	}

	return &file, nil
}

// DefaultProjectsDir returns the platform's preferred directory for
// storing project files, falling back to the working directory when
// neither a documents nor a home directory can be resolved.
func DefaultProjectsDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, "Documents", "AudioSync Pro")
	}
	return "."
}
