package audiosync

import "errors"

// ClipReader re-reads a clip's audio at full resolution, resampled to
// targetSR, mono float64. Implemented by the ioadapter package; kept
// as an interface here so the core engine never imports a concrete
// decoder.
type ClipReader interface {
	ReadFullRes(clip *Clip, targetSR int, cancel *CancelToken) ([]float64, error)
}

// Sync stitches every track's clips into one continuous audio buffer
// at the configured (or auto-detected) export sample rate, applying
// drift correction where measured and warranted, and mixing
// overlapping placements by averaging. Populates each Track's
// SyncedAudio field in place. A clip whose audio cannot be read is
// logged and skipped; its span stays silent.
//
// config.ExportSR is filled in with the auto-detected rate when nil,
// so callers can read back what was actually used.
func Sync(tracks []*Track, result *SyncResult, config *SyncConfig, reader ClipReader, progress ProgressFunc, cancel *CancelToken) error {
	exportSR := 0
	if config.ExportSR != nil {
		exportSR = *config.ExportSR
	} else {
		exportSR = detectProjectSampleRate(tracks)
		config.ExportSR = &exportSR
	}

	totalLen := int(round(result.TotalTimelineS * float64(exportSR)))

	totalSteps := 0
	for _, t := range tracks {
		totalSteps += t.ClipCount()
	}
	step := 0

	report := func(msg string) {
		if progress != nil {
			progress(step, totalSteps, msg)
		}
	}

	for _, t := range tracks {
		if cancel.Cancelled() {
			return ErrCancelled
		}

		if len(t.Clips) == 0 {
			t.SyncedAudio = make([]float64, totalLen)
			continue
		}

		output := make([]float64, totalLen)

		for _, c := range t.Clips {
			step++
			report("Stitching " + c.Name + "...")
			if cancel.Cancelled() {
				return ErrCancelled
			}

			audio, err := reader.ReadFullRes(c, exportSR, cancel)
			if err != nil {
				if errors.Is(err, ErrCancelled) {
					return ErrCancelled
				}
				logger.Warn("skipping clip that failed to decode", "path", c.FilePath, "err", err)
				continue
			}

			if config.DriftCorrection && absF64(c.DriftPPM) >= config.DriftThresholdPPM && c.DriftConfidence > 0.5 {
				report("Correcting drift for " + c.Name + "...")
				audio = applyDriftCorrection(audio, c.DriftPPM)
				c.DriftCorrected = true
				logger.Info("drift correction applied", "name", c.Name, "ppm", c.DriftPPM)
			}

			start := c.TimelineOffsetAtSR(exportSR)
			if start < 0 {
				start = 0
			}
			if int(start) >= totalLen {
				continue
			}
			end := int(start) + len(audio)
			if end > totalLen {
				end = totalLen
			}
			segLen := end - int(start)
			if segLen <= 0 {
				continue
			}

			for i := 0; i < segLen; i++ {
				idx := int(start) + i
				existing := output[idx]
				newVal := audio[i]
				if absF64(existing) > 1e-10 {
					output[idx] = (existing + newVal) / 2.0
				} else {
					output[idx] = newVal
				}
			}
		}

		t.SyncedAudio = output
	}

	logger.Info("sync complete", "tracks", len(tracks), "sample_rate", exportSR)
	return nil
}

// detectProjectSampleRate picks the export rate when none was
// configured: the highest native sample rate across all loaded
// clips, or 44100 for an empty project.
func detectProjectSampleRate(tracks []*Track) int {
	maxSR := 0
	for _, t := range tracks {
		for _, c := range t.Clips {
			if c.OriginalSR > maxSR {
				maxSR = c.OriginalSR
			}
		}
	}
	if maxSR == 0 {
		return 44100
	}
	return maxSR
}
