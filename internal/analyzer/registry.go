package analyzer

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

// ErrUnknownTagger is the cause of lookups for names that were never registered.
var ErrUnknownTagger = errors.New("unknown tagger")

var validName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Entry is a named tagger.
type Entry struct {
	Name   string
	Tagger Tagger
}

// Registry maps tagger names to taggers in registration order.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	taggers map[string]Tagger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{taggers: make(map[string]Tagger)}
}

// ValidateName rejects names that cannot be used as a column suffix.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return apperrors.NewConfigurationError(fmt.Sprintf("invalid tagger name %q", name), nil)
	}
	return nil
}

// Register adds or replaces the tagger for name.
func (r *Registry) Register(name string, t Tagger) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if t == nil {
		return apperrors.NewConfigurationError(fmt.Sprintf("nil tagger for %q", name), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.taggers[name]; !ok {
		r.names = append(r.names, name)
	}
	r.taggers[name] = t
	return nil
}

// Get returns the tagger registered under name.
func (r *Registry) Get(name string) (Tagger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.taggers[name]
	return t, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Entries returns a snapshot of every registered tagger.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, Entry{Name: name, Tagger: r.taggers[name]})
	}
	return out
}

// Select returns the entries for names, failing on the first unknown one.
func (r *Registry) Select(names ...string) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		t, ok := r.taggers[name]
		if !ok {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown tagger %q", name), ErrUnknownTagger)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Entry{Name: name, Tagger: t})
	}
	return out, nil
}

// Len returns the number of registered taggers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
