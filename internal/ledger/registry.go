package ledger

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the named ledgers served by one process
type Registry struct {
	mu      sync.RWMutex
	ledgers map[string]*Ledger
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		ledgers: make(map[string]*Ledger),
	}
}

// Register adds a ledger under name, replacing any previous one
func (r *Registry) Register(name string, l *Ledger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledgers[name] = l
}

// Get returns the ledger registered under name
func (r *Registry) Get(name string) (*Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.ledgers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLedger, name)
	}
	return l, nil
}

// Names returns the registered ledger names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ledgers))
	for name := range r.ledgers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
