package ioadapter

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	wavcodec "github.com/cwbudde/wav"
	"github.com/go-audio/audio"
	"github.com/google/uuid"

	"github.com/cwbudde/audiosync/audiosync"
)

// Exporter writes a track's synced audio to disk in the configured
// export format. WAV is written directly; every other format (aiff,
// flac, mp3) is produced by transcoding a temporary WAV through ffmpeg.
type Exporter struct {
	FFmpegPath string
}

// NewExporter creates an Exporter. An empty ffmpegPath resolves to "ffmpeg" on PATH.
func NewExporter(ffmpegPath string) *Exporter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Exporter{FFmpegPath: ffmpegPath}
}

// ExportTrack writes track.SyncedAudio to outputPath per config,
// creating parent directories as needed, and returns the resolved
// path actually written.
func (e *Exporter) ExportTrack(track *audiosync.Track, outputPath string, config audiosync.SyncConfig) (string, error) {
	if track.SyncedAudio == nil {
		return "", fmt.Errorf("audiosync: track %q has no synced audio — run Sync first", track.Name)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", err
	}

	sampleRate := 48000
	if config.ExportSR != nil {
		sampleRate = *config.ExportSR
	}

	if f := strings.ToLower(config.ExportFormat); f != "" && f != "wav" {
		if err := e.exportViaFFmpeg(track.SyncedAudio, outputPath, sampleRate, config); err != nil {
			return "", &audiosync.ExportFailureError{Path: outputPath, Cause: err}
		}
		return outputPath, nil
	}

	if err := exportWAV(track.SyncedAudio, outputPath, sampleRate, config.ExportBitDepth); err != nil {
		return "", &audiosync.ExportFailureError{Path: outputPath, Cause: err}
	}
	return outputPath, nil
}

// exportWAV writes mono float64 audio as an integer PCM WAV at the
// requested bit depth (16, 24 or 32; anything else writes 24). Samples
// are clamped to [-1, 1] and scaled to integers; 32-bit output is
// integer PCM, not IEEE float.
func exportWAV(audioData []float64, path string, sampleRate, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 32 {
		bitDepth = 24
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wavcodec.NewEncoder(f, sampleRate, bitDepth, 1, 1)
	defer enc.Close()

	data := make([]int, len(audioData))
	switch bitDepth {
	case 32:
		// Written through the encoder's integer PCM path, scaled by
		// 2^31.
		scale := float64(int64(1) << 31)
		for i, s := range audioData {
			data[i] = int(clamp(s, -1, 1) * scale)
		}
	case 16:
		scale := float64(1 << 15)
		for i, s := range audioData {
			data[i] = int(clamp(s, -1, 1) * (scale - 1))
		}
	default: // 24
		scale := float64(1 << 23)
		for i, s := range audioData {
			data[i] = int(clamp(s, -1, 1) * (scale - 1))
		}
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	return enc.Write(buf)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// exportViaFFmpeg writes a temporary 24-bit WAV and transcodes it with
// ffmpeg, which picks the output format from outputPath's extension.
// The output's sample format is ffmpeg's default for that format, not
// config.ExportBitDepth; mp3 output uses config.ExportBitrateKbps.
func (e *Exporter) exportViaFFmpeg(audioData []float64, outputPath string, sampleRate int, config audiosync.SyncConfig) error {
	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("audiosync_export_%s.wav", uuid.New().String()))
	defer os.Remove(tempPath)

	if err := exportWAV(audioData, tempPath, sampleRate, 24); err != nil {
		return err
	}

	args := []string{"-y", "-i", tempPath}
	if config.ExportFormat == "mp3" {
		args = append(args, "-b:a", fmt.Sprintf("%dk", config.ExportBitrateKbps))
	}
	args = append(args, outputPath)

	cmd := exec.Command(e.FFmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg export failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
