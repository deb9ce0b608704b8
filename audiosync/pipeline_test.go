package audiosync

import (
	"errors"
	"math"
	"testing"
)

func TestAnalyzeEmptyTracks(t *testing.T) {
	_, err := Analyze(nil, DefaultSyncConfig(), nil, nil)
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}

func TestAnalyzeNoClipsLoaded(t *testing.T) {
	tracks := []*Track{NewTrack("Cam")}
	_, err := Analyze(tracks, DefaultSyncConfig(), nil, nil)
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}

func TestAnalyzeSingleTrackSingleClip(t *testing.T) {
	track := NewTrack("Cam")
	clip := NewClip("test.wav", "test.wav", 48000, 1)
	clip.DurationS = 2.0
	clip.Samples = make([]float32, 16000)
	for i := range clip.Samples {
		clip.Samples[i] = float32(math.Sin(float64(i) * 0.05))
	}
	track.Clips = append(track.Clips, clip)

	result, err := Analyze([]*Track{track}, DefaultSyncConfig(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReferenceTrackIndex != 0 {
		t.Fatalf("expected reference index 0, got %d", result.ReferenceTrackIndex)
	}
	if !track.IsReference {
		t.Fatal("expected track to be marked reference")
	}
	if !track.Clips[0].Analyzed {
		t.Fatal("expected clip to be analyzed")
	}
	if track.Clips[0].TimelineOffsetSamples != 0 {
		t.Fatalf("expected offset 0, got %d", track.Clips[0].TimelineOffsetSamples)
	}
}

func TestAnalyzeTwoTracksSynthetic(t *testing.T) {
	sr := AnalysisSampleRate
	length := 32000
	delaySamples := int64(800)

	signal := make([]float32, length+int(delaySamples))
	for i := range signal {
		tt := float32(i) / float32(sr)
		signal[i] = float32(math.Sin(float64(tt)*440.0*2*math.Pi)) +
			0.5*float32(math.Sin(float64(tt)*1100.0*2*math.Pi)) +
			0.3*float32(math.Cos(float64(tt)*2200.0*2*math.Pi))
	}

	refSamples := make([]float32, len(signal))
	copy(refSamples, signal)
	tgtSamples := make([]float32, len(signal)-int(delaySamples))
	copy(tgtSamples, signal[delaySamples:])

	refTrack := NewTrack("RefDev")
	refClip := NewClip("ref.wav", "ref.wav", 48000, 1)
	refClip.DurationS = float64(len(refSamples)) / float64(sr)
	refClip.Samples = refSamples
	refTrack.Clips = append(refTrack.Clips, refClip)

	tgtTrack := NewTrack("Target")
	tgtClip := NewClip("tgt.wav", "tgt.wav", 48000, 1)
	tgtClip.DurationS = float64(len(tgtSamples)) / float64(sr)
	tgtClip.Samples = tgtSamples
	tgtTrack.Clips = append(tgtTrack.Clips, tgtClip)

	result, err := Analyze([]*Track{refTrack, tgtTrack}, DefaultSyncConfig(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReferenceTrackIndex != 0 {
		t.Fatalf("expected reference track 0, got %d", result.ReferenceTrackIndex)
	}

	offset := tgtTrack.Clips[0].TimelineOffsetSamples
	if diff := absI64(offset - delaySamples); diff > 2 {
		t.Fatalf("expected offset ~%d, got %d", delaySamples, offset)
	}
	if tgtTrack.Clips[0].Confidence <= 2.0 {
		t.Fatalf("confidence %f too low", tgtTrack.Clips[0].Confidence)
	}
}

func TestAnalyzeCancellation(t *testing.T) {
	track := NewTrack("Test")
	clip := NewClip("t.wav", "t.wav", 48000, 1)
	clip.DurationS = 1.0
	clip.Samples = make([]float32, 8000)
	track.Clips = append(track.Clips, clip)

	cancel := NewCancelToken()
	cancel.Cancel()

	_, err := Analyze([]*Track{track}, DefaultSyncConfig(), nil, cancel)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestSelectReferenceIndexByDuration(t *testing.T) {
	short := NewTrack("Short")
	c1 := NewClip("a.wav", "a.wav", 48000, 1)
	c1.DurationS = 5.0
	c1.Samples = make([]float32, 40000)
	short.Clips = append(short.Clips, c1)

	long := NewTrack("Long")
	c2 := NewClip("b.wav", "b.wav", 48000, 1)
	c2.DurationS = 60.0
	c2.Samples = make([]float32, 480000)
	long.Clips = append(long.Clips, c2)

	idx := selectReferenceIndex([]*Track{short, long})
	if idx != 1 {
		t.Fatalf("expected longer track to be reference, got %d", idx)
	}
}

func TestSelectReferenceUserOverride(t *testing.T) {
	short := NewTrack("Short")
	short.IsReference = true
	c1 := NewClip("a.wav", "a.wav", 48000, 1)
	c1.DurationS = 5.0
	short.Clips = append(short.Clips, c1)

	long := NewTrack("Long")
	c2 := NewClip("b.wav", "b.wav", 48000, 1)
	c2.DurationS = 60.0
	long.Clips = append(long.Clips, c2)

	idx := selectReferenceIndex([]*Track{short, long})
	if idx != 0 {
		t.Fatalf("expected user override to win, got %d", idx)
	}
}
