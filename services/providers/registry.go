package providers

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrClientNotFound is returned when no client is registered for a backend
var ErrClientNotFound = errors.New("client not found")

// Registry maps backend family names to their clients.
// Registration happens during wiring; lookups are concurrent-safe.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry creates an empty client registry
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds a client under its backend family name
func (r *Registry) Register(client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.Name()] = client
}

// Get returns the client for a backend family
func (r *Registry) Get(backend string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, backend)
	}
	return client, nil
}

// List returns the registered backend family names, sorted for determinism
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
