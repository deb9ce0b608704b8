// Package timeline exports analyzed tracks into NLE-readable timeline
// formats: FCPXML for Final Cut Pro / DaVinci Resolve, and CMX-3600
// EDL for anything that still reads the old format.
package timeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cwbudde/audiosync/audiosync"
)

// ExportFCPXML writes tracks as FCPXML v1.11 to outputPath and
// returns the path written. projectName defaults to "AudioSync Pro"
// when empty. The primary storyline (lane 0, the first track) is
// gap-filled so NLEs that require contiguous coverage import cleanly;
// every other track's clips ride along as lane>0 connected clips at
// their analyzed offset.
func ExportFCPXML(tracks []*audiosync.Track, result *audiosync.SyncResult, outputPath, projectName string) (string, error) {
	if projectName == "" {
		projectName = "AudioSync Pro"
	}
	const fpsNum = 30000
	const fpsDen = 1001

	var xml strings.Builder
	xml.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	xml.WriteString("<!DOCTYPE fcpxml>\n")
	xml.WriteString("<fcpxml version=\"1.11\">\n")
	xml.WriteString("  <resources>\n")

	fmt.Fprintf(&xml, "    <format id=\"r1\" name=\"FFVideoFormatRateUndefined\" frameDuration=\"%d/%ds\" width=\"1920\" height=\"1080\"/>\n", fpsDen, fpsNum)

	type assetKey struct{ trackIdx, clipIdx int }
	assetIDs := make(map[assetKey]int)
	assetID := 1
	for ti, t := range tracks {
		for ci, c := range t.Clips {
			assetID++
			fmt.Fprintf(&xml, "    <asset id=\"r%d\" name=\"%s\" src=\"file://%s\" start=\"0s\" duration=\"%.6fs\" hasAudio=\"1\"/>\n",
				assetID, escapeXML(c.Name), escapeXML(c.FilePath), c.DurationS)
			assetIDs[assetKey{ti, ci}] = assetID
		}
	}

	xml.WriteString("  </resources>\n")
	xml.WriteString("  <library>\n")
	fmt.Fprintf(&xml, "    <event name=\"%s\">\n", escapeXML(projectName))
	fmt.Fprintf(&xml, "      <project name=\"%s\">\n", escapeXML(projectName))
	fmt.Fprintf(&xml, "        <sequence format=\"r1\" duration=\"%.6fs\" tcStart=\"0s\" tcFormat=\"NDF\">\n", result.TotalTimelineS)
	xml.WriteString("          <spine>\n")

	type placedClip struct {
		lane          int
		offsetS, durS float64
		assetID       int
		name          string
	}

	var primary, connected []placedClip
	for ti, t := range tracks {
		for ci, c := range t.Clips {
			pc := placedClip{
				lane:    ti,
				offsetS: c.TimelineOffsetS,
				durS:    c.DurationS,
				assetID: assetIDs[assetKey{ti, ci}],
				name:    c.Name,
			}
			if ti == 0 {
				primary = append(primary, pc)
			} else {
				connected = append(connected, pc)
			}
		}
	}

	sort.Slice(primary, func(i, j int) bool { return primary[i].offsetS < primary[j].offsetS })

	cursor := 0.0
	for _, pc := range primary {
		if pc.offsetS > cursor+0.001 {
			gapDur := pc.offsetS - cursor
			fmt.Fprintf(&xml, "            <gap name=\"Gap\" offset=\"%.6fs\" duration=\"%.6fs\" start=\"3600s\"/>\n", cursor, gapDur)
		}
		fmt.Fprintf(&xml, "            <asset-clip ref=\"r%d\" name=\"%s\" offset=\"%.6fs\" duration=\"%.6fs\" start=\"0s\"/>\n",
			pc.assetID, escapeXML(pc.name), pc.offsetS, pc.durS)
		cursor = pc.offsetS + pc.durS
	}

	if cursor < result.TotalTimelineS-0.001 {
		gapDur := result.TotalTimelineS - cursor
		fmt.Fprintf(&xml, "            <gap name=\"Gap\" offset=\"%.6fs\" duration=\"%.6fs\" start=\"3600s\"/>\n", cursor, gapDur)
	}

	for _, cc := range connected {
		fmt.Fprintf(&xml, "            <asset-clip ref=\"r%d\" name=\"%s\" offset=\"%.6fs\" duration=\"%.6fs\" start=\"0s\" lane=\"%d\"/>\n",
			cc.assetID, escapeXML(cc.name), cc.offsetS, cc.durS, cc.lane)
	}

	xml.WriteString("          </spine>\n")
	xml.WriteString("        </sequence>\n")
	xml.WriteString("      </project>\n")
	xml.WriteString("    </event>\n")
	xml.WriteString("  </library>\n")
	xml.WriteString("</fcpxml>\n")

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outputPath, []byte(xml.String()), 0o644); err != nil {
		return "", err
	}
	return outputPath, nil
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
