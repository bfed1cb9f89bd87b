package app

import "errors"

// Fatal error classes. Everything else in the pipeline is recovered locally
// and counted in the manifest.
var (
	// ErrZeroOutput means the operation would write no records. Maps to
	// exit code 2.
	ErrZeroOutput = errors.New("no records to write")

	// ErrStoreCorrupt means the dedup store could not be opened for
	// writing. Maps to exit code 1.
	ErrStoreCorrupt = errors.New("dedup store unusable")
)

// Version is stamped into manifests. Overridden at release time via
// -ldflags "-X github.com/corey/mixdown/internal/app.Version=...".
var Version = "dev"
