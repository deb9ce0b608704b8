package audiosync

import "testing"

type fakeReader struct {
	data map[string][]float64
}

func (f *fakeReader) ReadFullRes(clip *Clip, targetSR int, cancel *CancelToken) ([]float64, error) {
	return f.data[clip.FilePath], nil
}

func TestSyncBasicPlacement(t *testing.T) {
	track := NewTrack("Cam")
	clip := NewClip("a.wav", "a.wav", 48000, 1)
	clip.TimelineOffsetSamples = 0
	clip.TimelineOffsetS = 0
	track.Clips = append(track.Clips, clip)

	result := &SyncResult{TotalTimelineS: 1.0, SampleRate: AnalysisSampleRate}
	sr := 48000
	config := DefaultSyncConfig()
	config.ExportSR = &sr
	config.DriftCorrection = false

	reader := &fakeReader{data: map[string][]float64{
		"a.wav": make([]float64, 48000),
	}}
	for i := range reader.data["a.wav"] {
		reader.data["a.wav"][i] = 0.5
	}

	err := Sync([]*Track{track}, result, &config, reader, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(track.SyncedAudio) != 48000 {
		t.Fatalf("expected 48000 samples, got %d", len(track.SyncedAudio))
	}
	if track.SyncedAudio[0] != 0.5 {
		t.Fatalf("expected 0.5 at start, got %f", track.SyncedAudio[0])
	}
}

func TestSyncEmptyTrack(t *testing.T) {
	track := NewTrack("Empty")
	result := &SyncResult{TotalTimelineS: 1.0}
	sr := 48000
	config := DefaultSyncConfig()
	config.ExportSR = &sr

	reader := &fakeReader{data: map[string][]float64{}}
	err := Sync([]*Track{track}, result, &config, reader, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(track.SyncedAudio) != 48000 {
		t.Fatalf("expected 48000 zero samples, got %d", len(track.SyncedAudio))
	}
}

func TestSyncCancellation(t *testing.T) {
	track := NewTrack("Cam")
	clip := NewClip("a.wav", "a.wav", 48000, 1)
	track.Clips = append(track.Clips, clip)

	result := &SyncResult{TotalTimelineS: 1.0}
	sr := 48000
	config := DefaultSyncConfig()
	config.ExportSR = &sr

	cancel := NewCancelToken()
	cancel.Cancel()

	reader := &fakeReader{data: map[string][]float64{"a.wav": make([]float64, 48000)}}
	err := Sync([]*Track{track}, result, &config, reader, nil, cancel)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestDetectProjectSampleRateEmpty(t *testing.T) {
	if sr := detectProjectSampleRate(nil); sr != 44100 {
		t.Fatalf("expected 44100 for empty project, got %d", sr)
	}
}

func TestDetectProjectSampleRateMax(t *testing.T) {
	track := NewTrack("Cam")
	c1 := NewClip("a.wav", "a", 48000, 1)
	c2 := NewClip("b.wav", "b", 96000, 1)
	track.Clips = append(track.Clips, c1, c2)

	if sr := detectProjectSampleRate([]*Track{track}); sr != 96000 {
		t.Fatalf("expected 96000, got %d", sr)
	}
}
