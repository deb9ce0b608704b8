package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/audiosync/audiosync"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	tracks := []*audiosync.Track{audiosync.NewTrack("Test")}
	config := audiosync.DefaultSyncConfig()

	path := filepath.Join(t.TempDir(), "project.json")
	if err := Save(path, tracks, config, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Version != Version {
		t.Fatalf("expected version %d, got %d", Version, loaded.Version)
	}
	if len(loaded.Tracks) != 1 || loaded.Tracks[0].Name != "Test" {
		t.Fatalf("expected one track named Test, got %+v", loaded.Tracks)
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.json")
	data := []byte(`{"version": 999, "tracks": [], "config": {}}`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for newer project version")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
