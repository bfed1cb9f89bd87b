// Package classify assigns each canonical record one capability bucket.
// Explicit category tags win, then an ordered keyword rule list, then a
// sentence-length fallback. The rule order is canonical: classifier output
// feeds the manifest and the mix, so reordering rules changes corpora.
package classify

import (
	"strings"

	"github.com/corey/mixdown/internal/ports"
)

// Marker lists for the keyword rules, applied in this priority order.
var (
	refusalMarkers = []string{"i cannot", "i can't", "cannot assist", "inappropriate"}

	toolMarkers = []string{"<tool>", "functioncall", "tool_use:", "<functioncall>", `"parameters":`}

	codeMarkers = []string{
		"```python", "```go", "```javascript", "```typescript", "```java",
		"```c", "```cpp", "```rust", "```ruby", "```sql", "```bash", "```sh",
		"def ", "class ", "import ", "function (",
	}
	debugMarkers = []string{"bug", "debug", "error", "fix"}

	cotMarkers  = []string{"let's think", "step 1", "step 2", "<thinking>"}
	mathMarkers = []string{"solve", "equation", "math", "calculate"}

	creativeMarkers = []string{"story", "poem", "imagine", "narrative"}

	factualMarkers = []string{"according to", "wikipedia", "research shows"}
)

// Mean-sentence-length thresholds for the last-resort heuristic.
const (
	verboseWordsPerSentence = 25
	briefWordsPerSentence   = 10
)

// Classify returns the bucket for rec. override pins the bucket when it is a
// taxonomy value; BucketAuto (or empty) defers to the record's own category
// tag, then the keyword rules. Never returns BucketUnknown: a record that
// survived normalization always lands somewhere, if only in instruction.
//
// The length fallback annotates rec with a "verbose" or "brief" trait.
func Classify(rec *ports.Record, override ports.Bucket) ports.Bucket {
	if override.Valid() {
		return override
	}
	if rec.Category.Valid() {
		return rec.Category
	}

	text := strings.ToLower(rec.Instruction + " " + rec.Output)

	if containsAny(text, refusalMarkers) {
		return ports.BucketRedTeam
	}
	if containsAny(text, toolMarkers) {
		return ports.BucketToolUse
	}
	if containsAny(text, codeMarkers) {
		if containsAny(text, debugMarkers) {
			return ports.BucketCodeDebugging
		}
		return ports.BucketCode
	}
	if containsAny(text, cotMarkers) {
		if containsAny(text, mathMarkers) {
			return ports.BucketCotMath
		}
		return ports.BucketAnalytical
	}
	if containsAny(text, creativeMarkers) {
		return ports.BucketCreative
	}
	if containsAny(text, factualMarkers) {
		return ports.BucketFactual
	}

	switch mean := meanSentenceWords(rec.Output); {
	case mean > verboseWordsPerSentence:
		addTrait(rec, "verbose")
	case mean > 0 && mean < briefWordsPerSentence:
		addTrait(rec, "brief")
	}
	return ports.BucketInstruction
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// meanSentenceWords returns the mean word count per sentence of text.
// Sentences split on . ! ? — empty fragments don't count.
func meanSentenceWords(text string) float64 {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	words, count := 0, 0
	for _, s := range sentences {
		n := len(strings.Fields(s))
		if n == 0 {
			continue
		}
		words += n
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(words) / float64(count)
}

// addTrait appends a trait to the record's _traits metadata, creating the
// list when absent. Existing traits are kept; duplicates are not added.
func addTrait(rec *ports.Record, trait string) {
	if rec.Meta == nil {
		rec.Meta = make(map[string]any)
	}
	switch existing := rec.Meta["_traits"].(type) {
	case nil:
		rec.Meta["_traits"] = []any{trait}
	case []any:
		for _, t := range existing {
			if t == trait {
				return
			}
		}
		rec.Meta["_traits"] = append(existing, trait)
	case string:
		if existing != trait {
			rec.Meta["_traits"] = []any{existing, trait}
		}
	}
}
