// Package record implements the canonical record model: extraction of the
// instruction/input/output triple from the many raw shapes sources emit,
// metadata passthrough, and the deduplication fingerprint.
package record

import (
	"encoding/json"
	"strings"

	"github.com/corey/mixdown/internal/ports"
)

// Key variants tried in order for each primary field.
var (
	instructionKeys = []string{"instruction", "prompt", "question", "query", "text"}
	outputKeys      = []string{"output", "response", "answer", "completion", "code", "solution"}
	inputKeys       = []string{"input", "context"}
)

// Conversational role spellings.
var (
	userRoles      = map[string]bool{"human": true, "user": true}
	assistantRoles = map[string]bool{"gpt": true, "assistant": true, "model": true, "bot": true}
)

// Canonicalize reduces a raw record to the canonical shape. Returns false when
// no non-empty instruction and output can be extracted; such records count as
// missing_instruction_or_output upstream.
func Canonicalize(raw ports.RawRecord) (*ports.Record, bool) {
	if raw == nil {
		return nil, false
	}

	instruction := firstNonEmpty(raw, instructionKeys)
	output := firstNonEmpty(raw, outputKeys)
	input := firstNonEmpty(raw, inputKeys)

	// Conversational shapes are only consulted when the flat keys gave
	// neither an instruction nor an output.
	if instruction == "" && output == "" {
		if turns, ok := conversationTurns(raw, "conversations", "from", "value"); ok {
			instruction, output = firstAndLast(turns)
		} else if turns, ok := conversationTurns(raw, "messages", "role", "content"); ok {
			instruction, output = firstAndLast(turns)
		}
	}

	if instruction == "" || output == "" {
		return nil, false
	}

	rec := &ports.Record{
		Instruction: instruction,
		Input:       input,
		Output:      output,
	}

	// Preserve underscore-prefixed metadata. _category and _source map onto
	// the typed fields; everything else rides along in Meta.
	for k, v := range raw {
		if !strings.HasPrefix(k, "_") {
			continue
		}
		switch k {
		case "_category":
			if b := ports.Bucket(coerce(v)); b.Valid() {
				rec.Category = b
			}
		case "_source":
			rec.Source = strings.TrimSpace(coerce(v))
		default:
			if rec.Meta == nil {
				rec.Meta = make(map[string]any)
			}
			rec.Meta[k] = v
		}
	}

	return rec, true
}

// firstNonEmpty returns the first key in keys whose coerced, trimmed value is
// non-empty.
func firstNonEmpty(raw ports.RawRecord, keys []string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(coerce(v)); s != "" {
			return s
		}
	}
	return ""
}

// coerce renders any value as a string. Non-string values get a stable JSON
// encoding so structured prompts survive canonicalization deterministically.
func coerce(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// turn is one side of a conversational record.
type turn struct {
	user bool
	text string
}

// conversationTurns extracts ordered turns from a list-shaped field.
// roleKey/textKey name the per-entry keys ("from"/"value" for ShareGPT style
// conversations, "role"/"content" for chat messages). The fallback keys are
// accepted either way since both spellings appear in the wild.
func conversationTurns(raw ports.RawRecord, field, roleKey, textKey string) ([]turn, bool) {
	v, ok := raw[field]
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}

	var turns []turn
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role := strings.ToLower(strings.TrimSpace(coerce(pick(entry, roleKey, "role", "from"))))
		text := strings.TrimSpace(coerce(pick(entry, textKey, "content", "value")))
		if text == "" {
			continue
		}
		switch {
		case userRoles[role]:
			turns = append(turns, turn{user: true, text: text})
		case assistantRoles[role]:
			turns = append(turns, turn{user: false, text: text})
		}
	}
	if len(turns) == 0 {
		return nil, false
	}
	return turns, true
}

// pick returns the first present key's value.
func pick(entry map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := entry[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// firstAndLast returns the first user-side turn and the last assistant-side
// turn. Either may be empty when the conversation has only one side.
func firstAndLast(turns []turn) (instruction, output string) {
	for _, t := range turns {
		if t.user {
			instruction = t.text
			break
		}
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if !turns[i].user {
			output = turns[i].text
			break
		}
	}
	return instruction, output
}
