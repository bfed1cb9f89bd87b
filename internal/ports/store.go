package ports

// FingerprintSize is the byte width of a record fingerprint (SHA-256).
const FingerprintSize = 32

// Fingerprint is the deterministic hash of a record's instruction/input/output
// triple. Two records with identical triples share a fingerprint; the hash
// choice is fixed for the life of a dedup store.
type Fingerprint [FingerprintSize]byte

// DedupStore is a persistent key-only set of fingerprints. It is the only
// shared mutable state in the pipeline; writes are serialized by the adapter.
//
// Crash safety: a store must not corrupt previously committed data on a crash
// mid-run. A store that cannot guarantee partial-run durability may instead
// stage writes and commit atomically on Close.
type DedupStore interface {
	// AddIfAbsent inserts fp and returns true exactly when fp was not
	// previously present. Safe to call hundreds of millions of times per run.
	AddIfAbsent(fp Fingerprint) (bool, error)

	// Contains reports presence for a batch of fingerprints, positionally.
	Contains(fps []Fingerprint) ([]bool, error)

	// Len returns the number of fingerprints in the store.
	Len() (int, error)

	// Close flushes and releases the store.
	Close() error
}
