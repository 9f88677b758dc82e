package token

// MemoryStore keeps the stage token cache in a caller-owned map, enabling
// session-scoped caching without filesystem access. The caller retains the
// map reference; Save mutates it in place so the session cache survives the
// manager.
type MemoryStore struct {
	tokens StageTokens
}

// NewMemoryStore wraps the provided map as a store backend. A nil map is
// allocated on demand.
func NewMemoryStore(tokens StageTokens) *MemoryStore {
	if tokens == nil {
		tokens = NewStageTokens()
	}
	tokens.Normalize()
	return &MemoryStore{tokens: tokens}
}

// Load returns a deep copy so read-modify-write cycles mirror the file
// backend's behavior.
func (s *MemoryStore) Load() (StageTokens, error) {
	return s.tokens.Clone(), nil
}

// Save replaces every entry in the caller's map with the provided values.
func (s *MemoryStore) Save(tokens StageTokens) error {
	tokens.Normalize()
	for stage, pair := range tokens {
		s.tokens[stage] = pair.Clone()
	}
	return nil
}

// Clear resets every stage entry in the caller's map to unset.
func (s *MemoryStore) Clear() error {
	return s.Save(NewStageTokens())
}
