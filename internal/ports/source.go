package ports

import (
	"context"
	"errors"
)

// ErrParse marks a single malformed input line. Sources return it from Next
// and keep going; the pipeline counts it and continues. A source never aborts
// on a bad line.
var ErrParse = errors.New("malformed record line")

// Source is a lazy iterator of raw records. Memory use must be independent of
// the source's size. Next returns io.EOF when the source is exhausted and
// ErrParse (wrapped) for a skippable malformed line.
type Source interface {
	Next() (RawRecord, error)
	Close() error
}

// SourceDescriptor names one origin of records. Exactly one of Path or
// Dataset is set: Path is a filesystem path or glob, Dataset is a hosted
// dataset id resolved through a Provider.
type SourceDescriptor struct {
	Label string `yaml:"label"`

	Path string `yaml:"path,omitempty"`

	Dataset         string `yaml:"dataset,omitempty"`
	Config          string `yaml:"config,omitempty"`
	Split           string `yaml:"split,omitempty"`
	TrustRemoteCode bool   `yaml:"trust_remote_code,omitempty"`

	// BucketOverride pins every record from this source to one bucket.
	// Empty or "auto" leaves assignment to the classifier.
	BucketOverride Bucket `yaml:"bucket,omitempty"`

	// MaxExamples caps how many records are drawn through this descriptor.
	// Zero means unlimited.
	MaxExamples int `yaml:"max_examples,omitempty"`

	// Priority orders sources within a profile when labels tie. Lower first.
	Priority int `yaml:"priority,omitempty"`

	// WrapRawText wraps bare-text records ("text" only, no output) into an
	// analysis prompt. A per-source data-cleaning choice, off by default.
	WrapRawText bool `yaml:"wrap_raw_text,omitempty"`
}

// Remote reports whether the descriptor resolves through a Provider.
func (d SourceDescriptor) Remote() bool {
	return d.Dataset != ""
}

// Provider opens one hosted dataset split as a lazy record stream. Provider
// failures surface as a single source_load_failed outcome for the descriptor,
// never a process abort.
type Provider interface {
	Open(ctx context.Context, dataset, config, split string, trustRemoteCode bool) (Source, error)
}

// Watcher monitors a directory tree and reports changed files. Used by the
// merge-all watch mode to re-merge when new corpus files land.
type Watcher interface {
	Watch(root string, onChange func(path string)) error
	Stop() error
}
