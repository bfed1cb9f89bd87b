// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// RawRecord is an untyped record as yielded by a source. Many key variants
// coexist (instruction/prompt/question, output/response/answer, conversations,
// messages). Raw records never leak past the normalizer.
type RawRecord map[string]any

// Bucket is one capability category from the closed taxonomy. Records are
// mixed in controlled per-bucket proportions.
type Bucket string

// Taxonomy bucket constants.
const (
	BucketInstruction    Bucket = "instruction"
	BucketToolUse        Bucket = "tool_use"
	BucketCode           Bucket = "code"
	BucketCodeDebugging  Bucket = "code_debugging"
	BucketCotMath        Bucket = "cot_math"
	BucketAnalytical     Bucket = "analytical"
	BucketReasoningTrace Bucket = "reasoning_trace"
	BucketCreative       Bucket = "creative"
	BucketFactual        Bucket = "factual"
	BucketMultiturn      Bucket = "multiturn_dialog"
	BucketPsychology     Bucket = "psychology_emotional"
	BucketAdversarial    Bucket = "adversarial_moral"
	BucketRedTeam        Bucket = "red_team"
	BucketSymbolic       Bucket = "symbolic_reasoning"
	BucketPhilosophical  Bucket = "philosophical"
	BucketDarkProtector  Bucket = "dark_protector"
	BucketDarkHumor      Bucket = "dark_humor"
	BucketDarkPhilosophy Bucket = "dark_philosophy"
	BucketEsoteric       Bucket = "esoteric"
	BucketUnknown        Bucket = "unknown"
)

// BucketAuto is the sentinel override meaning "let the classifier decide".
// It is not a taxonomy value.
const BucketAuto Bucket = "auto"

// AllBuckets returns the full taxonomy in canonical order. The order is part
// of the sampler contract: bucket draws and shortfall top-ups iterate it.
func AllBuckets() []Bucket {
	return []Bucket{
		BucketInstruction,
		BucketToolUse,
		BucketCode,
		BucketCodeDebugging,
		BucketCotMath,
		BucketAnalytical,
		BucketReasoningTrace,
		BucketCreative,
		BucketFactual,
		BucketMultiturn,
		BucketPsychology,
		BucketAdversarial,
		BucketRedTeam,
		BucketSymbolic,
		BucketPhilosophical,
		BucketDarkProtector,
		BucketDarkHumor,
		BucketDarkPhilosophy,
		BucketEsoteric,
		BucketUnknown,
	}
}

var bucketSet = func() map[Bucket]bool {
	m := make(map[Bucket]bool)
	for _, b := range AllBuckets() {
		m[b] = true
	}
	return m
}()

// Valid reports whether b is a taxonomy value. BucketAuto is not valid.
func (b Bucket) Valid() bool {
	return bucketSet[b]
}

// Record is the canonical record shape. Everything past the normalizer flows
// as a Record; everything before it is a RawRecord.
type Record struct {
	Instruction string
	Input       string
	Output      string
	Source      string
	Category    Bucket

	// Meta holds preserved underscore-prefixed passthrough fields
	// (_persona, _traits, _safety, _turns, _verified, _is_dpo, ...).
	// _category and _source are carried in the typed fields above,
	// never in Meta. Nil when the record has no extra metadata.
	Meta map[string]any
}

// Clone returns a deep copy of r. Meta maps are never shared.
func (r *Record) Clone() *Record {
	out := *r
	if r.Meta != nil {
		out.Meta = make(map[string]any, len(r.Meta))
		for k, v := range r.Meta {
			out.Meta[k] = v
		}
	}
	return &out
}
