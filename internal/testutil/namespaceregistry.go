package testutil

import "sync"

// FakeNamespaceRegistry is an in-memory bidirectional prefix<->URI
// mapping.
type FakeNamespaceRegistry struct {
	mu       sync.RWMutex
	uriByPfx map[string]string
	pfxByURI map[string]string
}

// NewFakeNamespaceRegistry creates a registry pre-populated with the
// standard jcr/nt/mix prefixes, mirroring the bootstrap namespaces a
// real registry ships with.
func NewFakeNamespaceRegistry() *FakeNamespaceRegistry {
	r := &FakeNamespaceRegistry{
		uriByPfx: make(map[string]string),
		pfxByURI: make(map[string]string),
	}
	r.Register("jcr", "http://www.jcp.org/jcr/1.0")
	r.Register("nt", "http://www.jcp.org/jcr/nt/1.0")
	r.Register("mix", "http://www.jcp.org/jcr/mix/1.0")
	r.Register("", "")
	return r
}

// Register adds (or overwrites) a prefix<->URI mapping.
func (r *FakeNamespaceRegistry) Register(prefix, uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uriByPfx[prefix] = uri
	r.pfxByURI[uri] = prefix
}

// URIForPrefix implements hierarchy.NamespaceRegistry.
func (r *FakeNamespaceRegistry) URIForPrefix(prefix string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uri, ok := r.uriByPfx[prefix]
	return uri, ok
}

// PrefixForURI implements hierarchy.NamespaceRegistry.
func (r *FakeNamespaceRegistry) PrefixForURI(uri string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefix, ok := r.pfxByURI[uri]
	return prefix, ok
}
