// Package audiosync aligns recordings of the same event captured on
// multiple independent devices onto a single timeline and stitches
// per-device audio at a chosen export rate.
package audiosync

import (
	"sort"
	"sync/atomic"
)

// AnalysisSampleRate is the fixed rate (mono, Hz) at which all
// correlation and drift math runs, regardless of a clip's native rate.
const AnalysisSampleRate = 8000

// ConfidenceThreshold is the minimum peak/mean correlation ratio for a
// clip to be considered well placed.
const ConfidenceThreshold = 3.0

// MinDriftOverlapS is the minimum clip duration (seconds) required
// before a drift measurement is attempted.
const MinDriftOverlapS = 60.0

// MinDriftWindows is the minimum number of correlation windows needed
// for a reliable drift regression.
const MinDriftWindows = 3

const (
	driftWindowS = 30.0
	driftStrideS = 15.0
)

// Clip is one imported file within a device's Track.
type Clip struct {
	FilePath string
	Name     string

	// Samples are mono float32 samples at AnalysisSampleRate, used only
	// for correlation. Never serialized.
	Samples []float32 `json:"-"`

	OriginalSR       int
	OriginalChannels int
	DurationS        float64
	IsVideo          bool

	// CreationTime is wall-clock seconds since epoch, if known.
	CreationTime *float64

	TimelineOffsetSamples int64
	TimelineOffsetS       float64
	Confidence            float64
	Analyzed              bool

	DriftPPM        float64
	DriftConfidence float64
	DriftCorrected  bool
}

// NewClip creates a Clip with analysis defaults.
func NewClip(filePath, name string, originalSR, originalChannels int) *Clip {
	return &Clip{
		FilePath:         filePath,
		Name:             name,
		OriginalSR:       originalSR,
		OriginalChannels: originalChannels,
	}
}

// LengthSamples is the clip's length in analysis-rate samples.
func (c *Clip) LengthSamples() int {
	return len(c.Samples)
}

// EndSamples is the clip's placement end, in analysis-rate samples.
func (c *Clip) EndSamples() int64 {
	return c.TimelineOffsetSamples + int64(len(c.Samples))
}

// TimelineOffsetAtSR converts the clip's analysis-rate offset to a
// target sample rate.
func (c *Clip) TimelineOffsetAtSR(targetSR int) int64 {
	if targetSR == AnalysisSampleRate {
		return c.TimelineOffsetSamples
	}
	return int64(round(c.TimelineOffsetS * float64(targetSR)))
}

// LengthAtSR is the clip's native-duration length at a target sample rate.
func (c *Clip) LengthAtSR(targetSR int) int {
	return int(round(c.DurationS * float64(targetSR)))
}

// Track is an ordered collection of clips captured by one device.
type Track struct {
	Name        string
	Clips       []*Clip
	IsReference bool

	// SyncedAudio is produced by the stitcher; never serialized.
	SyncedAudio []float64 `json:"-"`
}

// NewTrack creates an empty track.
func NewTrack(name string) *Track {
	return &Track{Name: name}
}

// ClipCount is the number of clips in the track.
func (t *Track) ClipCount() int {
	return len(t.Clips)
}

// TotalDurationS sums the native-rate duration of every clip.
func (t *Track) TotalDurationS() float64 {
	var sum float64
	for _, c := range t.Clips {
		sum += c.DurationS
	}
	return sum
}

// SortClipsByTime orders clips by creation time, breaking ties by name.
// Clips with unknown creation time sort as if at time zero.
func (t *Track) SortClipsByTime() {
	sort.SliceStable(t.Clips, func(i, j int) bool {
		ta, tb := 0.0, 0.0
		if t.Clips[i].CreationTime != nil {
			ta = *t.Clips[i].CreationTime
		}
		if t.Clips[j].CreationTime != nil {
			tb = *t.Clips[j].CreationTime
		}
		if ta != tb {
			return ta < tb
		}
		return t.Clips[i].Name < t.Clips[j].Name
	})
}

// SyncConfig holds engine options recognized by the synchronization
// pipeline and the stitcher.
type SyncConfig struct {
	// MaxOffsetS bounds the correlation search window; nil means
	// unbounded.
	MaxOffsetS *float64

	ExportFormat      string // "wav", "aiff", "flac", "mp3"
	ExportBitDepth    int    // 16, 24, 32
	ExportBitrateKbps int    // lossy formats only

	// ExportSR is the stitching output rate; nil means auto-detect as
	// the maximum native rate across all clips.
	ExportSR *int

	CrossfadeMs       float64
	DriftCorrection   bool
	DriftThresholdPPM float64
}

// DefaultSyncConfig returns the engine's default configuration.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		ExportFormat:      "wav",
		ExportBitDepth:    24,
		ExportBitrateKbps: 320,
		CrossfadeMs:       50.0,
		DriftCorrection:   true,
		DriftThresholdPPM: 0.3,
	}
}

// IsLossy reports whether the configured export format is lossy.
func (c SyncConfig) IsLossy() bool {
	return c.ExportFormat == "mp3"
}

// Subtype names the PCM subtype for the configured export bit depth.
func (c SyncConfig) Subtype() string {
	switch c.ExportBitDepth {
	case 16:
		return "PCM_16"
	case 32:
		return "FLOAT"
	default:
		return "PCM_24"
	}
}

// SyncResult is produced by Analyze.
type SyncResult struct {
	ReferenceTrackIndex  int
	TotalTimelineSamples int64
	TotalTimelineS       float64
	SampleRate           int
	ClipOffsets          map[string]int64
	AvgConfidence        float64
	DriftDetected        bool
	Warnings             []string
}

// CancelToken is a cooperative cancellation flag, safe to read or set
// from any goroutine.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken creates an unset cancellation token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel sets the flag. Safe to call from any goroutine, any number of
// times.
func (c *CancelToken) Cancel() {
	c.flag.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (c *CancelToken) Cancelled() bool {
	if c == nil {
		return false
	}
	return c.flag.Load()
}

// ProgressFunc reports pipeline progress. Implementations must be safe
// to call from a worker goroutine.
type ProgressFunc func(step, total int, message string)

func round(x float64) float64 {
	if x >= 0 {
		return float64(int64(x + 0.5))
	}
	return float64(int64(x - 0.5))
}
