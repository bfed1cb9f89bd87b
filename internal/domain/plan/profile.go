// Package plan holds the profile model and the mix planner. A profile is
// data, not code: a YAML document naming bucket weights, source descriptors,
// and optional per-source oversampling weights. The planner turns a profile
// plus a total budget into per-bucket target counts.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"

	"github.com/corey/mixdown/internal/ports"
	"gopkg.in/yaml.v3"
)

// weightTolerance is how far from 1.0 a profile's weight sum may stray.
const weightTolerance = 1e-6

// Profile is a named corpus recipe.
type Profile struct {
	Name        string                    `yaml:"name"`
	Description string                    `yaml:"description,omitempty"`
	Weights     map[ports.Bucket]float64  `yaml:"weights"`
	Sources     []ports.SourceDescriptor  `yaml:"sources"`
	Oversample  map[string]float64        `yaml:"oversample,omitempty"`
}

// Parse unmarshals and validates one YAML profile document.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFS loads every *.yaml profile from fsys, keyed by profile name.
// Files load in sorted order; duplicate names are an error.
func LoadFS(fsys fs.FS) (map[string]*Profile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	profiles := make(map[string]*Profile)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		p, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if _, dup := profiles[p.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate profile name %q", entry.Name(), p.Name)
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// Validate checks the profile invariants: a name, weights over known buckets
// summing to 1.0, at least one well-formed source, positive oversample
// weights referring to known source labels.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile missing name")
	}
	if len(p.Weights) == 0 {
		return fmt.Errorf("profile %q has no bucket weights", p.Name)
	}

	var sum float64
	for bucket, w := range p.Weights {
		if !bucket.Valid() {
			return fmt.Errorf("profile %q: unknown bucket %q", p.Name, bucket)
		}
		if w < 0 {
			return fmt.Errorf("profile %q: negative weight for %q", p.Name, bucket)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("profile %q: weights sum to %.6f, want 1.0", p.Name, sum)
	}

	if len(p.Sources) == 0 {
		return fmt.Errorf("profile %q has no sources", p.Name)
	}
	labels := make(map[string]bool, len(p.Sources))
	for i, src := range p.Sources {
		if src.Label == "" {
			return fmt.Errorf("profile %q: source %d missing label", p.Name, i)
		}
		if labels[src.Label] {
			return fmt.Errorf("profile %q: duplicate source label %q", p.Name, src.Label)
		}
		labels[src.Label] = true
		if (src.Path == "") == (src.Dataset == "") {
			return fmt.Errorf("profile %q: source %q needs exactly one of path or dataset", p.Name, src.Label)
		}
		if src.BucketOverride != "" && src.BucketOverride != ports.BucketAuto && !src.BucketOverride.Valid() {
			return fmt.Errorf("profile %q: source %q: unknown bucket override %q", p.Name, src.Label, src.BucketOverride)
		}
		if src.MaxExamples < 0 {
			return fmt.Errorf("profile %q: source %q: negative max_examples", p.Name, src.Label)
		}
	}

	for label, w := range p.Oversample {
		if !labels[label] {
			return fmt.Errorf("profile %q: oversample for unknown source %q", p.Name, label)
		}
		if w <= 0 {
			return fmt.Errorf("profile %q: oversample weight for %q must be positive", p.Name, label)
		}
	}
	return nil
}

// OversampleWeight returns the oversampling weight for a source label.
// Sources without an entry run at weight 1 (no oversampling).
func (p *Profile) OversampleWeight(label string) float64 {
	if w, ok := p.Oversample[label]; ok {
		return w
	}
	return 1
}

// Hash returns a stable hex digest of the profile definition, recorded in the
// manifest so a corpus can be traced back to the exact recipe that built it.
// JSON is the hashing vehicle because its map keys encode sorted.
func (p *Profile) Hash() string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
