package audiosync

import "testing"

func TestParabolicPeakInterior(t *testing.T) {
	data := []float32{0.0, 0.5, 1.0, 0.8, 0.2}
	peak := parabolicPeak(data, 2)
	if peak <= 1.5 || peak >= 2.5 {
		t.Fatalf("subsample peak = %f, expected within (1.5, 2.5)", peak)
	}
}

func TestParabolicPeakEdgeCases(t *testing.T) {
	single := []float32{1.0}
	if peak := parabolicPeak(single, 0); peak != 0.0 {
		t.Fatalf("expected 0.0 for single-element input, got %f", peak)
	}

	atEnd := []float32{0.5, 1.0}
	if peak := parabolicPeak(atEnd, 1); peak != 1.0 {
		t.Fatalf("expected 1.0 at boundary, got %f", peak)
	}
}

func TestApplyDriftCorrectionIdentity(t *testing.T) {
	audio := []float64{1, 2, 3, 4, 5}
	result := applyDriftCorrection(audio, 0.0)
	if len(result) != len(audio) {
		t.Fatalf("expected length %d, got %d", len(audio), len(result))
	}
}

func TestApplyDriftCorrectionPositive(t *testing.T) {
	audio := make([]float64, 10000)
	for i := range audio {
		audio[i] = float64(i) * 0.01
	}
	result := applyDriftCorrection(audio, 100.0)
	if len(result) >= len(audio) {
		t.Fatalf("expected shorter output, got %d vs %d", len(result), len(audio))
	}
	if len(result) <= len(audio)-10 {
		t.Fatalf("expected close to original length, got %d", len(result))
	}
}

func TestApplyDriftCorrectionNegative(t *testing.T) {
	audio := make([]float64, 10000)
	for i := range audio {
		audio[i] = float64(i) * 0.01
	}
	result := applyDriftCorrection(audio, -100.0)
	if len(result) <= len(audio) {
		t.Fatalf("expected longer output, got %d vs %d", len(result), len(audio))
	}
	if len(result) >= len(audio)+10 {
		t.Fatalf("expected close to original length, got %d", len(result))
	}
}

func TestMeasureDriftInsufficientOverlap(t *testing.T) {
	sr := 8000
	refTimeline := make([]float32, sr*10)
	clip := make([]float32, sr*5)
	ppm, r2 := measureDrift(refTimeline, clip, 0, sr)
	if ppm != 0 || r2 != 0 {
		t.Fatalf("expected zero result for short overlap, got ppm=%f r2=%f", ppm, r2)
	}
}
