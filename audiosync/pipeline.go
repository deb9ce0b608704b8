package audiosync

import (
	"fmt"
	"strings"
)

// Analyze runs the full alignment pipeline over tracks: it sorts each
// track's clips by creation time, selects a reference track, builds
// the reference timeline, cross-correlates every other clip against
// it (twice — once against the raw reference, once against a
// timeline enhanced with already-placed clips), falls back to
// metadata placement for anything still unmatched, repairs
// intra-device overlaps, normalizes the timeline to start at zero,
// and measures per-clip clock drift.
//
// progress and cancel may be nil. tracks is mutated in place; the
// returned SyncResult summarizes the run.
func Analyze(tracks []*Track, config SyncConfig, progress ProgressFunc, cancel *CancelToken) (*SyncResult, error) {
	if len(tracks) == 0 {
		return nil, ErrNoInput
	}

	totalClips := 0
	for _, t := range tracks {
		totalClips += t.ClipCount()
	}
	if totalClips == 0 {
		return nil, ErrNoInput
	}

	sr := AnalysisSampleRate
	totalSteps := totalClips + 4

	report := func(step int, msg string) {
		if progress != nil {
			progress(step, totalSteps, msg)
		}
	}

	report(0, "Sorting clips by creation time...")
	if cancel.Cancelled() {
		return nil, ErrCancelled
	}
	for _, t := range tracks {
		t.SortClipsByTime()
	}

	report(1, "Selecting reference track...")
	if cancel.Cancelled() {
		return nil, ErrCancelled
	}
	refIdx := selectReferenceIndex(tracks)
	tracks[refIdx].IsReference = true
	logger.Info("reference track selected", "name", tracks[refIdx].Name, "index", refIdx, "clips", tracks[refIdx].ClipCount())

	report(2, fmt.Sprintf("Building timeline from %q metadata...", tracks[refIdx].Name))
	if cancel.Cancelled() {
		return nil, ErrCancelled
	}
	refAudio, err := buildReferenceFromMetadata(tracks[refIdx], sr)
	if err != nil {
		return nil, err
	}
	logger.Info("reference timeline built", "seconds", float64(len(refAudio))/float64(sr), "samples", len(refAudio))

	var warnings []string
	var confidences []float64
	clipOffsets := make(map[string]int64)
	var placed []placedClip
	var unplaced []placedClip

	for _, c := range tracks[refIdx].Clips {
		clipOffsets[c.FilePath] = c.TimelineOffsetSamples
		confidences = append(confidences, c.Confidence)
	}

	step := 2
	for ti, t := range tracks {
		if ti == refIdx {
			continue
		}
		for ci, c := range t.Clips {
			step++
			report(step, fmt.Sprintf("Pass 1: correlating %q...", c.Name))
			if cancel.Cancelled() {
				return nil, ErrCancelled
			}

			delay, conf := computeDelay(refAudio, c.Samples, sr, config.MaxOffsetS)

			c.TimelineOffsetSamples = delay
			c.TimelineOffsetS = float64(delay) / float64(sr)
			c.Confidence = conf
			c.Analyzed = true

			clipOffsets[c.FilePath] = delay
			confidences = append(confidences, conf)

			if conf >= ConfidenceThreshold {
				placed = append(placed, placedClip{ti, ci})
			} else {
				unplaced = append(unplaced, placedClip{ti, ci})
				msg := fmt.Sprintf("Low confidence (%.1f) for %q", conf, c.Name)
				warnings = append(warnings, msg)
				logger.Warn(msg)
			}
		}
	}

	if cancel.Cancelled() {
		return nil, ErrCancelled
	}

	if len(unplaced) > 0 {
		report(step+1, "Pass 2: building enhanced timeline...")
		if cancel.Cancelled() {
			return nil, ErrCancelled
		}

		enhanced := stitchEnhancedTimeline(refAudio, tracks, placed)

		for _, p := range unplaced {
			c := tracks[p.trackIdx].Clips[p.clipIdx]
			step++
			report(step, fmt.Sprintf("Pass 2: retrying %q...", c.Name))
			if cancel.Cancelled() {
				return nil, ErrCancelled
			}

			delay, conf := computeDelay(enhanced, c.Samples, sr, config.MaxOffsetS)

			if conf > c.Confidence {
				c.TimelineOffsetSamples = delay
				c.TimelineOffsetS = float64(delay) / float64(sr)
				c.Confidence = conf
				clipOffsets[c.FilePath] = delay

				if conf >= ConfidenceThreshold {
					logger.Info("pass 2 improved clip", "name", c.Name, "confidence", conf)
					warnings = removeWarningsMentioning(warnings, c.Name)
				}
			}
		}
	}

	if cancel.Cancelled() {
		return nil, ErrCancelled
	}

	refOrigin := trackTimeOrigin(tracks[refIdx])
	for _, p := range unplaced {
		c := tracks[p.trackIdx].Clips[p.clipIdx]
		if c.Confidence >= ConfidenceThreshold {
			continue
		}
		if c.CreationTime == nil || refOrigin == nil {
			continue
		}
		timeDiff := *c.CreationTime - *refOrigin
		estimatedOffset := int64(timeDiff * float64(sr))
		if estimatedOffset < 0 {
			continue
		}
		c.TimelineOffsetSamples = estimatedOffset
		c.TimelineOffsetS = float64(estimatedOffset) / float64(sr)
		clipOffsets[c.FilePath] = estimatedOffset
		msg := fmt.Sprintf("%q placed via metadata fallback (confidence %.1f)", c.Name, c.Confidence)
		warnings = append(warnings, msg)
		logger.Warn(msg)
	}

	if cancel.Cancelled() {
		return nil, ErrCancelled
	}
	for ti, t := range tracks {
		if ti == refIdx {
			continue
		}
		fixIntraTrackOverlaps(t, sr, clipOffsets, &warnings)
	}

	report(totalSteps-1, "Normalizing timeline...")
	if cancel.Cancelled() {
		return nil, ErrCancelled
	}

	var minOffset int64
	var maxEnd int64
	for _, t := range tracks {
		for _, c := range t.Clips {
			if c.TimelineOffsetSamples < minOffset {
				minOffset = c.TimelineOffsetSamples
			}
			if e := c.EndSamples(); e > maxEnd {
				maxEnd = e
			}
		}
	}

	if minOffset < 0 {
		shift := -minOffset
		for _, t := range tracks {
			for _, c := range t.Clips {
				c.TimelineOffsetSamples += shift
				c.TimelineOffsetS = float64(c.TimelineOffsetSamples) / float64(sr)
				clipOffsets[c.FilePath] = c.TimelineOffsetSamples
			}
		}
		maxEnd += shift
	}

	var avgConf float64
	if len(confidences) > 0 {
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		avgConf = sum / float64(len(confidences))
	}

	report(totalSteps-1, "Measuring clock drift...")
	if cancel.Cancelled() {
		return nil, ErrCancelled
	}

	refAudioNorm, err := buildReferenceFromMetadata(tracks[refIdx], sr)
	if err != nil {
		return nil, err
	}

	driftDetected := false
	for ti, t := range tracks {
		if ti == refIdx {
			continue
		}
		for _, c := range t.Clips {
			if !c.Analyzed || c.DurationS < MinDriftOverlapS {
				continue
			}

			driftPPM, r2 := measureDrift(refAudioNorm, c.Samples, c.TimelineOffsetSamples, sr)
			if r2 > 0.5 && absF64(driftPPM) > config.DriftThresholdPPM {
				c.DriftPPM = driftPPM
				c.DriftConfidence = r2
				driftDetected = true
				logger.Info("drift detected", "name", c.Name, "ppm", driftPPM, "r2", r2)
			}
		}
	}

	if driftDetected {
		inheritDriftForShortClips(tracks, refIdx)
	}

	result := &SyncResult{
		ReferenceTrackIndex:  refIdx,
		TotalTimelineSamples: maxEnd,
		TotalTimelineS:       float64(maxEnd) / float64(sr),
		SampleRate:           sr,
		ClipOffsets:          clipOffsets,
		AvgConfidence:        avgConf,
		DriftDetected:        driftDetected,
		Warnings:             warnings,
	}

	report(totalSteps, "Analysis complete.")
	logger.Info("analysis complete",
		"clips", totalClips,
		"timeline_s", result.TotalTimelineS,
		"avg_confidence", avgConf,
		"drift", driftDetected)

	return result, nil
}

// selectReferenceIndex picks the track that should anchor the
// timeline: a user-marked reference wins outright, otherwise the
// track with the widest metadata coverage span, falling back to the
// longest total duration if no track carries creation-time metadata.
func selectReferenceIndex(tracks []*Track) int {
	for i, t := range tracks {
		if t.IsReference {
			return i
		}
	}

	bestIdx := 0
	bestSpan := 0.0
	for i, t := range tracks {
		if span := coverageSpan(t); span > bestSpan {
			bestSpan = span
			bestIdx = i
		}
	}

	if bestSpan <= 0.0 {
		bestDur := 0.0
		for i, t := range tracks {
			if dur := t.TotalDurationS(); dur > bestDur {
				bestDur = dur
				bestIdx = i
			}
		}
	}

	return bestIdx
}

// coverageSpan is the wall-clock duration spanned by a track's clips,
// from the earliest creation time to the latest clip end. Zero if no
// clip carries creation-time metadata.
func coverageSpan(t *Track) float64 {
	earliest := 0.0
	latest := 0.0
	have := false
	for _, c := range t.Clips {
		if c.CreationTime == nil {
			continue
		}
		end := *c.CreationTime + c.DurationS
		if !have || *c.CreationTime < earliest {
			earliest = *c.CreationTime
		}
		if !have || end > latest {
			latest = end
		}
		have = true
	}
	if !have {
		return 0.0
	}
	return latest - earliest
}

// trackTimeOrigin is the earliest known creation time among a
// track's clips, or nil if none carry creation-time metadata.
func trackTimeOrigin(t *Track) *float64 {
	var origin *float64
	for _, c := range t.Clips {
		if c.CreationTime == nil {
			continue
		}
		if origin == nil || *c.CreationTime < *origin {
			v := *c.CreationTime
			origin = &v
		}
	}
	return origin
}

// fixIntraTrackOverlaps enforces the physical constraint that a
// single device cannot record two clips at once. If the clips placed
// by correlation overlap, the track is re-sequenced around its
// highest-confidence clip using metadata gaps, walking forward then
// backward from that anchor.
func fixIntraTrackOverlaps(t *Track, sr int, clipOffsets map[string]int64, warnings *[]string) {
	if len(t.Clips) < 2 {
		return
	}

	t.SortClipsByTime()

	hasOverlap := false
	for i := 0; i < len(t.Clips)-1; i++ {
		endI := t.Clips[i].TimelineOffsetSamples + int64(t.Clips[i].LengthSamples())
		if endI > t.Clips[i+1].TimelineOffsetSamples {
			hasOverlap = true
			break
		}
	}
	if !hasOverlap {
		return
	}

	anchorIdx := 0
	bestConf := t.Clips[0].Confidence
	for i, c := range t.Clips {
		if c.Confidence > bestConf {
			bestConf = c.Confidence
			anchorIdx = i
		}
	}

	msg := fmt.Sprintf("Track %q: overlap detected — re-sequencing using %q as anchor", t.Name, t.Clips[anchorIdx].Name)
	*warnings = append(*warnings, msg)
	logger.Warn(msg)

	for i := anchorIdx + 1; i < len(t.Clips); i++ {
		prev, curr := t.Clips[i-1], t.Clips[i]
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
		clipOffsets[curr.FilePath] = offset
	}

	// Backward pass intentionally reuses each clip's own length (not
	// the neighbor's) when stepping left from the anchor, matching
	// the forward pass's "offset = prev end + gap" shape mirrored in
	// reverse.
	for i := anchorIdx - 1; i >= 0; i-- {
		curr, next := t.Clips[i], t.Clips[i+1]
		gapS := 0.5
		if curr.CreationTime != nil && next.CreationTime != nil {
			gap := *next.CreationTime - (*curr.CreationTime + curr.DurationS)
			if gap < 0 {
				gap = 0
			}
			gapS = gap
		}
		offset := next.TimelineOffsetSamples - int64(curr.LengthSamples()) - int64(gapS*float64(sr))
		curr.TimelineOffsetSamples = offset
		curr.TimelineOffsetS = float64(offset) / float64(sr)
		clipOffsets[curr.FilePath] = offset
	}

	logger.Info("track re-sequenced", "name", t.Name, "clips", len(t.Clips), "anchor", t.Clips[anchorIdx].Name)
}

// inheritDriftForShortClips propagates a track's best-measured drift
// to clips within the same track that were too short to measure
// drift on their own.
func inheritDriftForShortClips(tracks []*Track, refIdx int) {
	for ti, t := range tracks {
		if ti == refIdx {
			continue
		}

		var bestPPM, bestConf float64
		found := false
		for _, c := range t.Clips {
			if absF64(c.DriftPPM) <= 1e-6 || c.DriftConfidence <= 0.5 {
				continue
			}
			if !found || c.DriftConfidence > bestConf {
				bestPPM = c.DriftPPM
				bestConf = c.DriftConfidence
				found = true
			}
		}
		if !found {
			continue
		}

		for _, c := range t.Clips {
			if absF64(c.DriftPPM) < 1e-6 && c.DriftConfidence == 0.0 {
				c.DriftPPM = bestPPM
				c.DriftConfidence = bestConf
				logger.Debug("inherited drift for short clip", "name", c.Name, "ppm", bestPPM)
			}
		}
	}
}

func removeWarningsMentioning(warnings []string, name string) []string {
	out := warnings[:0:0]
	for _, w := range warnings {
		if !strings.Contains(w, name) {
			out = append(out, w)
		}
	}
	return out
}
