package security

import "strings"

// Hasher pairs a resolved algorithm implementation with its cost policy
// behind one stable hash/verify contract. Callers depend on the facade
// only, so switching algorithms is a configuration change, not a code
// change. A Hasher holds no mutable state and may be shared across
// goroutines without synchronization.
//
// Hashing and verification are intentionally slow, CPU- and memory-bound
// operations; callers must treat them as blocking work and keep them off
// latency-critical coordination paths.
type Hasher struct {
	algorithm string
	impl      Algorithm
}

// NewHasher resolves name through the registry and wraps the constructed
// implementation. An unregistered name fails with ErrUnsupportedAlgorithm.
func NewHasher(reg *Registry, name string, policy CostPolicy) (*Hasher, error) {
	ctor, err := reg.Resolve(name)
	if err != nil {
		return nil, err
	}
	impl, err := ctor(policy)
	if err != nil {
		return nil, err
	}
	return &Hasher{
		algorithm: strings.ToLower(name),
		impl:      impl,
	}, nil
}

// Hash produces a stored credential blob for password.
func (h *Hasher) Hash(password string) (string, error) {
	return h.impl.Hash(password)
}

// Verify reports whether password matches the stored blob.
func (h *Hasher) Verify(stored, password string) bool {
	return h.impl.Verify(stored, password)
}

// Algorithm returns the registry name the facade was built from.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}
