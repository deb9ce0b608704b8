package audiosync

import (
	"io"

	"github.com/charmbracelet/log"
)

// logger is package-level so the engine can log phase transitions and
// drift detections the way its hosting application wants them
// surfaced, without every caller threading a logger through Analyze
// and Sync. Discards by default; call SetLogger to attach a sink.
var logger = log.NewWithOptions(io.Discard, log.Options{ReportTimestamp: false})

// SetLogger attaches the engine's logging output to w. Pass nil to go
// back to discarding. Safe to call once before Analyze/Sync run; not
// safe to call concurrently with a running pipeline.
func SetLogger(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	logger = log.NewWithOptions(w, log.Options{ReportTimestamp: false})
}
