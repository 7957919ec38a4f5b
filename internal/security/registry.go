package security

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Constructor builds an Algorithm instance bound to a cost policy.
type Constructor func(policy CostPolicy) (Algorithm, error)

// Registry maps case-insensitive algorithm names to constructors. It is
// populated once during single-threaded startup and read-only afterwards,
// so lookups need no locking. Registration on a live serving path is not
// supported.
type Registry struct {
	log     *zap.Logger
	entries map[string]Constructor
}

// NewRegistry returns an empty registry. Overwrite warnings go to log.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		log:     log,
		entries: make(map[string]Constructor),
	}
}

// Register stores ctor under the case-folded name. Registering an existing
// name overwrites the previous entry: last registration wins, with a
// warning.
func (r *Registry) Register(name string, ctor Constructor) {
	key := strings.ToLower(name)
	if _, ok := r.entries[key]; ok {
		r.log.Warn("algorithm registration overwrites an existing entry",
			zap.String("name", key))
	}
	r.entries[key] = ctor
}

// Resolve returns the constructor registered under name (case-folded).
// An unregistered name is a hard error, never silently defaulted.
func (r *Registry) Resolve(name string) (Constructor, error) {
	ctor, ok := r.entries[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, name)
	}
	return ctor, nil
}

// Names returns the registered algorithm names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins registers every built-in algorithm implementation.
// Called once from bootstrap so registration never depends on import-time
// side effects.
func RegisterBuiltins(r *Registry) {
	r.Register(AlgorithmArgon2, NewArgon2)
}
