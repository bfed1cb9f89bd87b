package record

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/corey/mixdown/internal/ports"
)

// tripleJSON is the canonical serialization for fingerprinting: the three
// content fields with keys in ascending order. Metadata is deliberately
// excluded — two records with identical triples are duplicates no matter
// where they came from.
type tripleJSON struct {
	Input       string `json:"input"`
	Instruction string `json:"instruction"`
	Output      string `json:"output"`
}

// Fingerprint computes the dedup fingerprint of a canonical record: SHA-256
// over the sorted-key JSON encoding of {input, instruction, output}. The hash
// choice is fixed for the life of a dedup store; changing it invalidates
// every existing store.
func Fingerprint(rec *ports.Record) ports.Fingerprint {
	b, err := json.Marshal(tripleJSON{
		Input:       rec.Input,
		Instruction: rec.Instruction,
		Output:      rec.Output,
	})
	if err != nil {
		// Marshalling three strings cannot fail; keep the signature clean.
		panic("record: fingerprint marshal: " + err.Error())
	}
	return sha256.Sum256(b)
}
