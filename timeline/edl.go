package timeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/audiosync/audiosync"
)

const edlFPS = 29.97

// ExportEDL writes tracks as a CMX-3600 edit decision list to
// outputPath and returns the path written. title defaults to
// "AudioSync Pro" when empty. Clips with measurable drift carry a
// trailing "* DRIFT:" comment.
func ExportEDL(tracks []*audiosync.Track, outputPath, title string) (string, error) {
	if title == "" {
		title = "AudioSync Pro"
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("TITLE: %s", title))
	lines = append(lines, "FCM: NON-DROP FRAME")
	lines = append(lines, "")

	eventNum := 1
	for _, t := range tracks {
		for _, c := range t.Clips {
			srcIn := "00:00:00:00"
			srcOut := secondsToTimecode(c.DurationS, edlFPS)
			recIn := secondsToTimecode(c.TimelineOffsetS, edlFPS)
			recOut := secondsToTimecode(c.TimelineOffsetS+c.DurationS, edlFPS)

			lines = append(lines, fmt.Sprintf("%03d  %s AA/V  C        %s %s %s %s",
				eventNum, sanitizeEDLReel(c.Name), srcIn, srcOut, recIn, recOut))
			lines = append(lines, fmt.Sprintf("* FROM CLIP NAME: %s", c.Name))
			lines = append(lines, fmt.Sprintf("* SOURCE FILE: %s", c.FilePath))

			if absF64(c.DriftPPM) > 0.1 {
				lines = append(lines, fmt.Sprintf("* DRIFT: %.2f ppm (R²=%.3f)", c.DriftPPM, c.DriftConfidence))
			}

			lines = append(lines, "")
			eventNum++
		}
	}

	content := strings.Join(lines, "\n")
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", err
	}
	return outputPath, nil
}

func secondsToTimecode(seconds, fps float64) string {
	fpsRounded := uint64(fps + 0.5)
	totalFrames := uint64(seconds*fps + 0.5)
	frames := totalFrames % fpsRounded
	totalSeconds := totalFrames / fpsRounded
	secs := totalSeconds % 60
	mins := (totalSeconds / 60) % 60
	hours := totalSeconds / 3600
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, mins, secs, frames)
}

func sanitizeEDLReel(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() >= 8 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "AX"
	}
	return b.String()
}

func absF64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
