package timeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/audiosync/audiosync"
)

func TestExportFCPXMLWritesFile(t *testing.T) {
	track := audiosync.NewTrack("Cam")
	clip := audiosync.NewClip("a.wav", "a.wav", 48000, 1)
	clip.DurationS = 2.0
	clip.TimelineOffsetS = 1.0
	track.Clips = append(track.Clips, clip)

	result := &audiosync.SyncResult{TotalTimelineS: 3.0}

	path := filepath.Join(t.TempDir(), "out.fcpxml")
	written, err := ExportFCPXML([]*audiosync.Track{track}, result, path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read exported file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "<gap") {
		t.Fatal("expected leading gap before the first clip")
	}
	if !strings.Contains(content, "asset-clip") {
		t.Fatal("expected at least one asset-clip element")
	}
}

func TestEscapeXML(t *testing.T) {
	if got := escapeXML("a<b>c&d"); got != "a&lt;b&gt;c&amp;d" {
		t.Fatalf("unexpected escape result: %s", got)
	}
	if got := escapeXML(`say "hi"`); got != "say &quot;hi&quot;" {
		t.Fatalf("unexpected quote escape: %s", got)
	}
}
