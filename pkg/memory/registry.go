package memory

import "sync"

// ResolverRegistry is the ordered list of path resolvers consulted before
// the default resolver. Build it once at startup, Seal it, and share it
// between state managers.
type ResolverRegistry struct {
	mu        sync.RWMutex
	resolvers []PathResolver
	sealed    bool
}

// NewResolverRegistry creates an empty registry.
func NewResolverRegistry() *ResolverRegistry {
	return &ResolverRegistry{}
}

// StandardRegistry returns an unsealed registry with the built-in aliases:
//
//	$name  -> dialog.name on the parent dialog
//	@name  -> turn.recognized.entities.name
//	#name  -> turn.recognized.intents.name
//	%name  -> class.name
func StandardRegistry() *ResolverRegistry {
	r := NewResolverRegistry()
	r.resolvers = append(r.resolvers,
		NewParentStateResolver("$"),
		NewPrefixAlias("@", "turn.recognized.entities."),
		NewPrefixAlias("#", "turn.recognized.intents."),
		NewPrefixAlias("%", ScopeClass+"."),
	)
	return r
}

// Add appends a resolver. Resolvers are tried in the order added.
func (r *ResolverRegistry) Add(resolver PathResolver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistrySealed
	}
	r.resolvers = append(r.resolvers, resolver)
	return nil
}

// Seal prevents further additions.
func (r *ResolverRegistry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *ResolverRegistry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Resolvers returns a snapshot of the registered resolvers.
func (r *ResolverRegistry) Resolvers() []PathResolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PathResolver, len(r.resolvers))
	copy(out, r.resolvers)
	return out
}

// match returns the first resolver claiming path, or nil.
func (r *ResolverRegistry) match(path string) PathResolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.resolvers {
		if res.Matched(path) {
			return res
		}
	}
	return nil
}
