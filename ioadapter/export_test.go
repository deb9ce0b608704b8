package ioadapter

import (
	"path/filepath"
	"testing"

	"github.com/cwbudde/audiosync/audiosync"
)

func TestExportTrackNoSyncedAudio(t *testing.T) {
	e := NewExporter("")
	track := audiosync.NewTrack("Cam")
	_, err := e.ExportTrack(track, filepath.Join(t.TempDir(), "out.wav"), audiosync.DefaultSyncConfig())
	if err == nil {
		t.Fatal("expected error when SyncedAudio is unset")
	}
}

func TestExportTrackWAV(t *testing.T) {
	e := NewExporter("")
	track := audiosync.NewTrack("Cam")
	track.SyncedAudio = []float64{0.1, -0.1, 0.5, -0.5}

	sr := 44100
	config := audiosync.DefaultSyncConfig()
	config.ExportSR = &sr

	out := filepath.Join(t.TempDir(), "sub", "out.wav")
	path, err := e.ExportTrack(track, out, config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != out {
		t.Fatalf("expected path %q, got %q", out, path)
	}

	decoded, sr2, ch, err := decodeWAV(out)
	if err != nil {
		t.Fatalf("decodeWAV failed: %v", err)
	}
	if sr2 != 44100 || ch != 1 {
		t.Fatalf("unexpected format sr=%d ch=%d", sr2, ch)
	}
	if len(decoded) != len(track.SyncedAudio) {
		t.Fatalf("expected %d samples, got %d", len(track.SyncedAudio), len(decoded))
	}
}

func TestClamp(t *testing.T) {
	if clamp(2.0, -1, 1) != 1 {
		t.Fatal("expected clamp to upper bound")
	}
	if clamp(-2.0, -1, 1) != -1 {
		t.Fatal("expected clamp to lower bound")
	}
	if clamp(0.5, -1, 1) != 0.5 {
		t.Fatal("expected value within bounds unchanged")
	}
}
