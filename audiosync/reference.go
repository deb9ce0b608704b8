package audiosync

import "fmt"

// buildReferenceFromMetadata lays a reference track's clips end to
// end using wall-clock creation-time gaps, assigning each clip its
// timeline placement as a side effect, and returns the stitched
// analysis-rate audio.
//
// A single clip is placed trivially at offset zero. With multiple
// clips, each clip after the first is placed using the gap between
// its creation time and the end of the previous clip; an unknown gap
// (either clip missing creation metadata) defaults to half a second.
func buildReferenceFromMetadata(track *Track, sr int) ([]float32, error) {
	clips := track.Clips
	if len(clips) == 0 {
		return nil, fmt.Errorf("audiosync: reference track %q has no clips: %w", track.Name, ErrNoReferenceAudio)
	}

	clips[0].TimelineOffsetSamples = 0
	clips[0].TimelineOffsetS = 0.0
	clips[0].Confidence = 100.0
	clips[0].Analyzed = true

	if len(clips) == 1 {
		out := make([]float32, len(clips[0].Samples))
		copy(out, clips[0].Samples)
		return out, nil
	}

	for i := 1; i < len(clips); i++ {
		prev := clips[i-1]
		curr := clips[i]

		gapS := 0.5
		if prev.CreationTime != nil && curr.CreationTime != nil {
			gap := *curr.CreationTime - (*prev.CreationTime + prev.DurationS)
			if gap < 0 {
				gap = 0
			}
			gapS = gap
		}

		offset := prev.TimelineOffsetSamples + int64(prev.LengthSamples()) + int64(gapS*float64(sr))
		curr.TimelineOffsetSamples = offset
		curr.TimelineOffsetS = float64(offset) / float64(sr)
		curr.Confidence = 100.0
		curr.Analyzed = true
	}

	var maxEnd int64
	for _, c := range clips {
		if e := c.EndSamples(); e > maxEnd {
			maxEnd = e
		}
	}

	refAudio := make([]float32, maxEnd)
	for _, c := range clips {
		start := c.TimelineOffsetSamples
		if start < 0 || start >= maxEnd {
			continue
		}
		segLen := int64(len(c.Samples))
		if start+segLen > maxEnd {
			segLen = maxEnd - start
		}
		copy(refAudio[start:start+segLen], c.Samples[:segLen])
	}

	return refAudio, nil
}

// placedClip identifies one clip by its position within tracks.
type placedClip struct {
	trackIdx int
	clipIdx  int
}

// stitchEnhancedTimeline overlays the placed (high-confidence)
// non-reference clips onto a copy of the reference audio, growing the
// buffer as needed. Overlapping samples are averaged; non-overlapping
// regions are overwritten outright. Used to give low-confidence clips
// a second, richer correlation target.
func stitchEnhancedTimeline(refAudio []float32, tracks []*Track, placed []placedClip) []float32 {
	if len(placed) == 0 {
		out := make([]float32, len(refAudio))
		copy(out, refAudio)
		return out
	}

	maxEnd := int64(len(refAudio))
	for _, p := range placed {
		if e := tracks[p.trackIdx].Clips[p.clipIdx].EndSamples(); e > maxEnd {
			maxEnd = e
		}
	}

	enhanced := make([]float32, maxEnd)
	copy(enhanced, refAudio)

	for _, p := range placed {
		clip := tracks[p.trackIdx].Clips[p.clipIdx]
		start := clip.TimelineOffsetSamples
		if start < 0 {
			start = 0
		}
		segLen := int64(len(clip.Samples))
		if start+segLen > maxEnd {
			segLen = maxEnd - start
		}
		if segLen <= 0 {
			continue
		}

		for j := int64(0); j < segLen; j++ {
			existing := enhanced[start+j]
			newVal := clip.Samples[j]
			if absF32(existing) < 1e-10 {
				enhanced[start+j] = newVal
			} else {
				enhanced[start+j] = (existing + newVal) / 2.0
			}
		}
	}

	return enhanced
}
