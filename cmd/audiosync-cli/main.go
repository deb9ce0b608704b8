// Command audiosync-cli aligns clips captured by multiple devices onto
// a shared timeline and stitches per-device audio for export.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwbudde/audiosync/audiosync"
	"github.com/cwbudde/audiosync/grouping"
	"github.com/cwbudde/audiosync/ioadapter"
	"github.com/cwbudde/audiosync/project"
	"github.com/cwbudde/audiosync/timeline"
)

func main() {
	inputGlob := flag.String("input", "", "Glob pattern selecting clip files to import (required)")
	outputDir := flag.String("output", "synced", "Directory to write stitched audio into")
	exportFormat := flag.String("format", "wav", "Export format: wav, aiff, flac, mp3")
	exportBitDepth := flag.Int("bit-depth", 24, "Export bit depth: 16, 24, 32")
	exportSR := flag.Int("sample-rate", 0, "Export sample rate in Hz; 0 = auto-detect")
	maxOffsetS := flag.Float64("max-offset", 0, "Bound the correlation search window in seconds; 0 = unbounded")
	driftCorrection := flag.Bool("drift-correction", true, "Apply measured clock drift correction when stitching")
	driftThresholdPPM := flag.Float64("drift-threshold", 0.3, "Minimum drift (ppm) worth correcting")
	fcpxmlOut := flag.String("fcpxml", "", "Optional FCPXML output path")
	edlOut := flag.String("edl", "", "Optional EDL output path")
	projectOut := flag.String("project", "", "Optional project JSON output path")
	ffmpegPath := flag.String("ffmpeg", "", "Path to the ffmpeg binary; empty resolves via PATH")
	jsonOut := flag.Bool("json", false, "Print the analysis result as JSON instead of a progress log")
	flag.Parse()

	if *inputGlob == "" {
		die("missing required -input glob")
	}

	paths, err := filepath.Glob(*inputGlob)
	if err != nil {
		die("invalid -input glob: %v", err)
	}
	if len(paths) == 0 {
		die("no files matched -input glob %q", *inputGlob)
	}

	loader := ioadapter.NewLoader(*ffmpegPath)
	tracks, err := loadTracks(loader, paths)
	if err != nil {
		die("failed to load clips: %v", err)
	}

	config := audiosync.DefaultSyncConfig()
	config.ExportFormat = *exportFormat
	config.ExportBitDepth = *exportBitDepth
	config.DriftCorrection = *driftCorrection
	config.DriftThresholdPPM = *driftThresholdPPM
	if *maxOffsetS > 0 {
		config.MaxOffsetS = maxOffsetS
	}
	if *exportSR > 0 {
		config.ExportSR = exportSR
	}

	progress := func(step, total int, message string) {
		if !*jsonOut {
			fmt.Printf("[%d/%d] %s\n", step, total, message)
		}
	}

	result, err := audiosync.Analyze(tracks, config, progress, nil)
	if err != nil {
		die("analysis failed: %v", err)
	}

	if err := audiosync.Sync(tracks, result, &config, loader, progress, nil); err != nil {
		die("sync failed: %v", err)
	}

	exporter := ioadapter.NewExporter(*ffmpegPath)
	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		die("failed to create output directory: %v", err)
	}
	for _, t := range tracks {
		outPath := filepath.Join(*outputDir, sanitizeFilename(t.Name)+"."+config.ExportFormat)
		if _, err := exporter.ExportTrack(t, outPath, config); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to export track %q: %v", t.Name, err))
		}
	}

	if *fcpxmlOut != "" {
		if _, err := timeline.ExportFCPXML(tracks, result, *fcpxmlOut, ""); err != nil {
			die("failed to export FCPXML: %v", err)
		}
	}
	if *edlOut != "" {
		if _, err := timeline.ExportEDL(tracks, *edlOut, ""); err != nil {
			die("failed to export EDL: %v", err)
		}
	}
	if *projectOut != "" {
		if err := project.Save(*projectOut, tracks, config, result); err != nil {
			die("failed to save project: %v", err)
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}

	fmt.Printf("Reference track:  %d\n", result.ReferenceTrackIndex)
	fmt.Printf("Timeline length:  %.2f s\n", result.TotalTimelineS)
	fmt.Printf("Average confidence: %.2f\n", result.AvgConfidence)
	fmt.Printf("Drift detected:   %v\n", result.DriftDetected)
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}

// loadTracks groups paths by inferred device and loads each group's
// clips into its own track. A file that fails to load is skipped with a
// warning on stderr.
func loadTracks(loader *ioadapter.Loader, paths []string) ([]*audiosync.Track, error) {
	groups := grouping.GroupFilesByDevice(paths)

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}

	var tracks []*audiosync.Track
	for _, name := range names {
		track := audiosync.NewTrack(name)
		for _, path := range groups[name] {
			clip, err := loader.LoadClip(path, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", path, err)
				continue
			}
			track.Clips = append(track.Clips, clip)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "track"
	}
	return string(out)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
