package audiosync

// measureDrift estimates the clock drift of a clip relative to the
// reference timeline, in parts per million, by correlating a sequence
// of overlapping windows and fitting a line through the resulting
// (window time, sub-sample offset) pairs.
//
// refTimeline is the full reference-track audio at sr. clipSamples and
// clipOffset are the clip's own analysis-rate samples and its already
// resolved timeline placement.
//
// Returns (ppm, r2). Both are zero when there isn't enough overlap or
// too few usable windows to trust a regression.
func measureDrift(refTimeline []float32, clipSamples []float32, clipOffset int64, sr int) (float64, float64) {
	winSamples := int(driftWindowS * float64(sr))
	strideSamples := int(driftStrideS * float64(sr))

	clipEnd := clipOffset + int64(len(clipSamples))
	refLen := int64(len(refTimeline))

	overlapStart := clipOffset
	if overlapStart < 0 {
		overlapStart = 0
	}
	overlapEnd := clipEnd
	if overlapEnd > refLen {
		overlapEnd = refLen
	}
	overlapLen := int64(0)
	if overlapEnd > overlapStart {
		overlapLen = overlapEnd - overlapStart
	}
	if overlapLen < int64(winSamples)*2 {
		return 0, 0
	}

	var times, offsets []float64

	for pos := overlapStart; pos+int64(winSamples) <= overlapEnd; pos += int64(strideSamples) {
		refWin := refTimeline[pos : pos+int64(winSamples)]

		clipLocal := pos - clipOffset
		if clipLocal < 0 || clipLocal+int64(winSamples) > int64(len(clipSamples)) {
			continue
		}
		clipWin := clipSamples[clipLocal : clipLocal+int64(winSamples)]

		if isSilent(refWin) || isSilent(clipWin) {
			continue
		}

		offset := windowedOffset(refWin, clipWin)
		timeS := float64(pos-overlapStart) / float64(sr)
		times = append(times, timeS)
		offsets = append(offsets, offset)
	}

	if len(times) < MinDriftWindows {
		return 0, 0
	}

	n := float64(len(times))
	var sumT, sumO, sumTT, sumTO float64
	for i := range times {
		sumT += times[i]
		sumO += offsets[i]
		sumTT += times[i] * times[i]
		sumTO += times[i] * offsets[i]
	}

	denom := n*sumTT - sumT*sumT
	if absF64(denom) < 1e-30 {
		return 0, 0
	}
	slope := (n*sumTO - sumT*sumO) / denom
	intercept := (sumO - slope*sumT) / n

	meanO := sumO / n
	var ssRes, ssTot float64
	for i := range times {
		predicted := slope*times[i] + intercept
		ssRes += (offsets[i] - predicted) * (offsets[i] - predicted)
		ssTot += (offsets[i] - meanO) * (offsets[i] - meanO)
	}
	r2 := 1.0 - ssRes/(ssTot+1e-30)
	if r2 < 0 {
		r2 = 0
	}
	if r2 > 1 {
		r2 = 1
	}

	ppm := (slope / float64(sr)) * 1e6
	return ppm, r2
}

// windowedOffset returns the sub-sample cross-correlation offset of
// clipWin relative to refWin, both the same length.
func windowedOffset(refWin, clipWin []float32) float64 {
	r := peakNormalize(refWin)
	c := peakNormalize(clipWin)

	corr, ok := fftCorrelate(r, c)
	if !ok {
		return 0
	}

	peakIdx := 0
	peakAbs := float32(0)
	for i, v := range corr {
		if a := absF32(v); a > peakAbs {
			peakAbs = a
			peakIdx = i
		}
	}

	refined := parabolicPeak(corr, peakIdx)
	return refined - (float64(len(c)) - 1.0)
}

// parabolicPeak refines an integer correlation peak to sub-sample
// precision by fitting a parabola through the peak and its two
// neighbors. Falls back to the integer index at the buffer edges or
// when the fit is degenerate.
func parabolicPeak(corr []float32, peakIdx int) float64 {
	if peakIdx <= 0 || peakIdx >= len(corr)-1 {
		return float64(peakIdx)
	}
	alpha := float64(absF32(corr[peakIdx-1]))
	beta := float64(absF32(corr[peakIdx]))
	gamma := float64(absF32(corr[peakIdx+1]))

	denom := alpha - 2*beta + gamma
	if absF64(denom) < 1e-30 {
		return float64(peakIdx)
	}
	adjustment := 0.5 * (alpha - gamma) / denom
	return float64(peakIdx) + adjustment
}

// applyDriftCorrection resamples audio by linear interpolation so
// that a clip recorded at drift_ppm parts-per-million relative to the
// reference clock plays back in sync with it. A near-zero drift is a
// no-op.
func applyDriftCorrection(audio []float64, driftPPM float64) []float64 {
	if absF64(driftPPM) < 1e-6 {
		out := make([]float64, len(audio))
		copy(out, audio)
		return out
	}

	originalLen := len(audio)
	correctedLen := int(round(float64(originalLen) / (1.0 + driftPPM*1e-6)))
	if correctedLen == originalLen || correctedLen < 1 {
		out := make([]float64, len(audio))
		copy(out, audio)
		return out
	}

	ratio := float64(originalLen) / float64(correctedLen)
	result := make([]float64, 0, correctedLen)
	for i := 0; i < correctedLen; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		if idx+1 < originalLen {
			result = append(result, audio[idx]*(1.0-frac)+audio[idx+1]*frac)
		} else if idx < originalLen {
			result = append(result, audio[idx])
		}
	}
	return result
}

// isSilent reports whether a window carries no usable signal for
// correlation.
func isSilent(x []float32) bool {
	var maxAbs float32
	for _, v := range x {
		if a := absF32(v); a > maxAbs {
			maxAbs = a
		}
	}
	return maxAbs < 1e-6
}

func absF64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
