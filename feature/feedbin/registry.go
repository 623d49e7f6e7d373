package feedbin

import "sync"

// Registry caches one live client per distinct credential identity,
// amortizing connection and auth setup across sync invocations. The key is
// a stable identity derived from the credentials (the username).
//
// The registry is an explicit, injectable object rather than a package
// global: callers receive it via dependency composition and clear entries
// when credentials are invalidated.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*Client
}

// NewRegistry creates an empty client registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Client)}
}

// Get returns the cached client for the identity key, building and caching
// it if absent. The build runs under the registry lock, so concurrent calls
// for the same key construct at most one instance.
func (r *Registry) Get(key string, build func() (*Client, error)) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.instances[key]; ok {
		return client, nil
	}

	client, err := build()
	if err != nil {
		return nil, err
	}
	r.instances[key] = client
	return client, nil
}

// Remove evicts the client for one identity key. The next Get rebuilds it
// with fresh credentials.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, key)
}

// Clear evicts every cached client.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]*Client)
}

// Len returns the number of cached clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
