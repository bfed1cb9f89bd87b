package record

import (
	"encoding/json"
	"strings"

	"github.com/corey/mixdown/internal/ports"
)

// EncodeLine renders a canonical record as one output JSONL line (without the
// trailing newline). Keys are sorted within the record so diffs are stable;
// encoding/json already sorts map keys, so a map is the encoding vehicle.
//
// The emitted fields are exactly: instruction, input, output, _category,
// _source, plus any preserved underscore metadata.
func EncodeLine(rec *ports.Record) ([]byte, error) {
	m := make(map[string]any, 5+len(rec.Meta))
	m["instruction"] = rec.Instruction
	m["input"] = rec.Input
	m["output"] = rec.Output
	m["_category"] = string(rec.Category)
	m["_source"] = rec.Source
	for k, v := range rec.Meta {
		if !strings.HasPrefix(k, "_") || k == "_category" || k == "_source" {
			continue
		}
		m[k] = v
	}
	return json.Marshal(m)
}

// DecodeLine parses one JSONL line back into a raw record. Used when an
// existing consolidated corpus is fed back through the pipeline.
func DecodeLine(line []byte) (ports.RawRecord, error) {
	var raw ports.RawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
