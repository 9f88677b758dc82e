package token

// Store abstracts persistence of the stage token cache across sessions.
// Implementations follow last-writer-wins semantics; there is no
// concurrent-writer protocol because each process owns its stage entry.
type Store interface {
	// Load reads the full stage token cache. A missing or unparsable
	// backing record yields an empty store, not an error.
	Load() (StageTokens, error)
	// Save replaces the full stage token cache.
	Save(tokens StageTokens) error
	// Clear resets every stage entry to unset.
	Clear() error
}
