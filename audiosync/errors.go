package audiosync

import "errors"

// Fatal error kinds. These abort the run; everything else (low
// confidence, overlap repair, export failure for a single track) is
// accumulated into SyncResult.Warnings instead and the run continues.
var (
	// ErrNoInput means there are no tracks, or every track is empty.
	ErrNoInput = errors.New("audiosync: no tracks to analyze")

	// ErrCancelled means the cancellation token was observed set.
	// Clip fields may already be partially mutated; the Track graph
	// should be treated as undefined after this error.
	ErrCancelled = errors.New("audiosync: operation cancelled")

	// ErrNoReferenceAudio means the selected reference track has no
	// clips once loading completes.
	ErrNoReferenceAudio = errors.New("audiosync: reference track has no clips")
)

// DecodeFailureError wraps a single clip's decode failure. The
// pipeline continues without that clip.
type DecodeFailureError struct {
	Path  string
	Cause error
}

func (e *DecodeFailureError) Error() string {
	return "audiosync: decode failed for " + e.Path + ": " + e.Cause.Error()
}

func (e *DecodeFailureError) Unwrap() error { return e.Cause }

// ExportFailureError wraps a single track's export failure. The
// remaining tracks still export.
type ExportFailureError struct {
	Path  string
	Cause error
}

func (e *ExportFailureError) Error() string {
	return "audiosync: export failed for " + e.Path + ": " + e.Cause.Error()
}

func (e *ExportFailureError) Unwrap() error { return e.Cause }
