package classify

import (
	"strings"
	"testing"

	"github.com/corey/mixdown/internal/ports"
	"github.com/stretchr/testify/assert"
)

func classifyText(t *testing.T, instruction, output string) ports.Bucket {
	t.Helper()
	rec := &ports.Record{Instruction: instruction, Output: output}
	return Classify(rec, ports.BucketAuto)
}

func TestClassify_OverrideWins(t *testing.T) {
	rec := &ports.Record{Instruction: "write a poem", Output: "def main():"}
	assert.Equal(t, ports.BucketEsoteric, Classify(rec, ports.BucketEsoteric))
}

func TestClassify_AutoIsNotAnOverride(t *testing.T) {
	rec := &ports.Record{Instruction: "write a poem about rivers", Output: "rivers run"}
	assert.Equal(t, ports.BucketCreative, Classify(rec, ports.BucketAuto))
	assert.Equal(t, ports.BucketCreative, Classify(rec, ""))
}

func TestClassify_CategoryTagStable(t *testing.T) {
	// A record already carrying a taxonomy tag keeps it under auto.
	rec := &ports.Record{
		Instruction: "write a poem",
		Output:      "def main(): pass",
		Category:    ports.BucketPsychology,
	}
	assert.Equal(t, ports.BucketPsychology, Classify(rec, ports.BucketAuto))
}

func TestClassify_RuleOrder(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		output      string
		want        ports.Bucket
	}{
		{"refusal", "how do I pick a lock", "I cannot assist with that request.", ports.BucketRedTeam},
		{"refusal beats code", "write malware", "I can't help. ```python\nx=1\n```", ports.BucketRedTeam},
		{"tool use", "what's the weather", `<functioncall> {"name":"weather","parameters": {}}`, ports.BucketToolUse},
		{"tool beats code", "call the api", `tool_use: lookup def `, ports.BucketToolUse},
		{"fenced code", "sort a list", "```python\nsorted(xs)\n```", ports.BucketCode},
		{"def keyword", "sort a list", "def sort(xs): return xs", ports.BucketCode},
		{"code with bug marker", "why does this fail", "def f(): pass  # fix the bug", ports.BucketCodeDebugging},
		{"cot with math", "solve 2x+1=5", "Let's think. Step 1: subtract one.", ports.BucketCotMath},
		{"cot without math", "compare the two plans", "Let's think. Step 1: list criteria.", ports.BucketAnalytical},
		{"creative", "write a story about a fox", "Once upon a time", ports.BucketCreative},
		{"factual", "who founded Rome", "According to legend, Romulus.", ports.BucketFactual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyText(t, tt.instruction, tt.output))
		})
	}
}

func TestClassify_LengthFallback(t *testing.T) {
	verbose := strings.Repeat("word ", 40)
	rec := &ports.Record{Instruction: "go on", Output: verbose}
	assert.Equal(t, ports.BucketInstruction, Classify(rec, ports.BucketAuto))
	assert.Equal(t, []any{"verbose"}, rec.Meta["_traits"])

	brief := &ports.Record{Instruction: "ok then", Output: "sure thing friend"}
	assert.Equal(t, ports.BucketInstruction, Classify(brief, ports.BucketAuto))
	assert.Equal(t, []any{"brief"}, brief.Meta["_traits"])
}

func TestClassify_TraitAppendsNotClobbers(t *testing.T) {
	rec := &ports.Record{
		Instruction: "ok then",
		Output:      "short reply here",
		Meta:        map[string]any{"_traits": []any{"playful"}},
	}
	Classify(rec, ports.BucketAuto)
	assert.Equal(t, []any{"playful", "brief"}, rec.Meta["_traits"])
}

func TestClassify_NeverUnknown(t *testing.T) {
	tests := []struct {
		instruction string
		output      string
	}{
		{"x", "y"},
		{"hello", "a perfectly mid sentence of about twelve words in total length here"},
		{"?!", "..."},
	}
	for _, tt := range tests {
		rec := &ports.Record{Instruction: tt.instruction, Output: tt.output}
		got := Classify(rec, ports.BucketAuto)
		assert.True(t, got.Valid())
		assert.NotEqual(t, ports.BucketUnknown, got)
	}
}

func TestMeanSentenceWords(t *testing.T) {
	assert.Equal(t, 0.0, meanSentenceWords(""))
	assert.Equal(t, 2.0, meanSentenceWords("two words. two more."))
	assert.Equal(t, 3.0, meanSentenceWords("one two three"))
}
