package ioadapter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	samples := make([]float64, 1000)
	for i := range samples {
		samples[i] = 0.25
	}

	if err := exportWAV(samples, path, 16000, 16); err != nil {
		t.Fatalf("exportWAV failed: %v", err)
	}

	decoded, sr, ch, err := decodeWAV(path)
	if err != nil {
		t.Fatalf("decodeWAV failed: %v", err)
	}
	if sr != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", sr)
	}
	if ch != 1 {
		t.Fatalf("expected mono, got %d channels", ch)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}
	if diff := decoded[0] - 0.25; diff > 0.01 || diff < -0.01 {
		t.Fatalf("expected ~0.25, got %f", decoded[0])
	}
}

func TestMixToMonoStereo(t *testing.T) {
	interleaved := []float64{1.0, 0.0, 0.0, 1.0}
	mono := mixToMono(interleaved, 2)
	if len(mono) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(mono))
	}
	if mono[0] != 0.5 || mono[1] != 0.5 {
		t.Fatalf("expected averaged channels, got %v", mono)
	}
}

func TestIsVideoFile(t *testing.T) {
	cases := map[string]bool{
		"clip.mp4":  true,
		"clip.MOV":  true,
		"clip.wav":  false,
		"clip.flac": false,
	}
	for name, want := range cases {
		if got := isVideoFile(name); got != want {
			t.Fatalf("isVideoFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestResampleFloat64Identity(t *testing.T) {
	in := []float64{1, 2, 3}
	out, err := resampleFloat64(in, 8000, 8000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected identity length %d, got %d", len(in), len(out))
	}
}

func TestLoadClipMissingFile(t *testing.T) {
	l := NewLoader("")
	_, err := l.LoadClip(filepath.Join(os.TempDir(), "does-not-exist-audiosync.wav"), nil)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
