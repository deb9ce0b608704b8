// Package ioadapter is the audiosync engine's I/O collaborator: it
// decodes clips into analysis-rate samples for correlation, and
// re-reads them at full resolution for stitching. WAV decodes
// directly; AIFF, video and other containers are demuxed by shelling out to
// an external ffmpeg binary, matching how the original implementation
// keeps a full demuxer out of the core.
package ioadapter

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	wavcodec "github.com/cwbudde/wav"
	"github.com/google/uuid"

	"github.com/cwbudde/audiosync/audiosync"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
	".m4v":  true,
}

var directDecodeExtensions = map[string]bool{
	".wav":  true,
	".wave": true,
}

// Loader decodes clips from disk. FFmpegPath defaults to "ffmpeg" (resolved via PATH).
type Loader struct {
	FFmpegPath string
}

// NewLoader creates a Loader. An empty ffmpegPath resolves to "ffmpeg" on PATH.
func NewLoader(ffmpegPath string) *Loader {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Loader{FFmpegPath: ffmpegPath}
}

// isVideoFile reports whether path's extension names a video container.
func isVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// LoadClip decodes path into a Clip with Samples filled at
// audiosync.AnalysisSampleRate, mono. CreationTime is seeded from the
// file's modification time as a best-effort substitute for the
// container-metadata probe the pipeline treats as an external
// concern; callers with a real metadata source should overwrite it.
func (l *Loader) LoadClip(path string, cancel *audiosync.CancelToken) (*audiosync.Clip, error) {
	if cancel.Cancelled() {
		return nil, audiosync.ErrCancelled
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := filepath.Base(abs)
	isVideo := isVideoFile(abs)

	samples, fileSR, channels, err := l.decodeAt(abs, isVideo, audiosync.AnalysisSampleRate, cancel)
	if err != nil {
		return nil, &audiosync.DecodeFailureError{Path: path, Cause: err}
	}

	mono := mixToMono(samples, channels)
	analysisSamples, err := resampleFloat64ToFloat32(mono, fileSR, audiosync.AnalysisSampleRate)
	if err != nil {
		return nil, &audiosync.DecodeFailureError{Path: path, Cause: err}
	}

	clip := audiosync.NewClip(abs, name, fileSR, channels)
	clip.IsVideo = isVideo
	clip.Samples = analysisSamples
	clip.DurationS = float64(len(mono)) / float64(fileSR)

	if info, err := os.Stat(abs); err == nil {
		ct := float64(info.ModTime().Unix())
		clip.CreationTime = &ct
	}

	return clip, nil
}

// ReadFullRes implements audiosync.ClipReader: it re-decodes the clip
// at its native resolution and resamples to targetSR, mono float64,
// for stitching.
func (l *Loader) ReadFullRes(clip *audiosync.Clip, targetSR int, cancel *audiosync.CancelToken) ([]float64, error) {
	if cancel.Cancelled() {
		return nil, audiosync.ErrCancelled
	}

	samples, fileSR, channels, err := l.decodeAt(clip.FilePath, clip.IsVideo, targetSR, cancel)
	if err != nil {
		return nil, &audiosync.DecodeFailureError{Path: clip.FilePath, Cause: err}
	}

	mono := mixToMono(samples, channels)
	if fileSR == targetSR {
		return mono, nil
	}
	return resampleFloat64(mono, fileSR, targetSR)
}

// decodeAt returns raw interleaved samples for path. Video containers
// (or anything ffmpeg must demux) are extracted to a scoped temporary
// WAV first; everything else decodes straight from the source file.
// targetSR only affects the ffmpeg extraction rate — direct decode
// always returns the file's native rate, left to the caller to
// resample.
func (l *Loader) decodeAt(path string, isVideo bool, targetSR int, cancel *audiosync.CancelToken) ([]float64, int, int, error) {
	if !isVideo && directDecodeExtensions[strings.ToLower(filepath.Ext(path))] {
		return decodeWAV(path)
	}

	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("audiosync_%s.wav", uuid.New().String()))
	defer os.Remove(tempPath)

	if err := l.extractAudio(path, tempPath, targetSR, cancel); err != nil {
		return nil, 0, 0, err
	}
	return decodeWAV(tempPath)
}

// extractAudio shells out to ffmpeg to demux/transcode path's audio
// track into a mono WAV at sr.
func (l *Loader) extractAudio(srcPath, dstPath string, sr int, cancel *audiosync.CancelToken) error {
	if cancel.Cancelled() {
		return audiosync.ErrCancelled
	}
	cmd := exec.Command(l.FFmpegPath,
		"-y",
		"-i", srcPath,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sr),
		"-vn",
		dstPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extraction failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// decodeWAV reads a PCM WAV file into float64 samples normalized to
// [-1, 1], returning (samples, sampleRate, channels).
func decodeWAV(path string) ([]float64, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	dec := wavcodec.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid wav file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}

	scale := fullScale(buf.SourceBitDepth)
	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float64(v) / scale
	}

	return out, buf.Format.SampleRate, buf.Format.NumChannels, nil
}

func fullScale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float64(int64(1) << uint(bitDepth-1))
}

func mixToMono(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

func resampleFloat64(in []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate == toRate {
		out := make([]float64, len(in))
		copy(out, in)
		return out, nil
	}
	r, err := dspresample.NewForRates(float64(fromRate), float64(toRate), dspresample.WithQuality(dspresample.QualityBest))
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

func resampleFloat64ToFloat32(in []float64, fromRate, toRate int) ([]float32, error) {
	out, err := resampleFloat64(in, fromRate, toRate)
	if err != nil {
		return nil, err
	}
	f32 := make([]float32, len(out))
	for i, v := range out {
		f32[i] = float32(v)
	}
	return f32, nil
}
