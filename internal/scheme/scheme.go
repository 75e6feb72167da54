// Package scheme resolves encoding scheme identifiers to tokenizers.
//
// A scheme is anything with an Encode/Decode pair. Built-in schemes are the
// OpenAI tiktoken encodings; additional schemes can be registered from
// HuggingFace tokenizer.json files or supplied directly by callers.
package scheme

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/samcharles93/refgen/internal/tokenizer"
)

// Scheme is a named encoding capability.
type Scheme = tokenizer.Tokenizer

var (
	ErrUnknownScheme = errors.New("unknown encoding scheme")
	ErrUnknownModel  = errors.New("unknown model")
	ErrDuplicate     = errors.New("scheme already registered")
)

// Registry maps scheme identifiers to schemes. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemes map[string]Scheme
}

func NewRegistry() *Registry {
	return &Registry{schemes: make(map[string]Scheme)}
}

// Register adds a scheme under name. Names are unique.
func (r *Registry) Register(name string, s Scheme) error {
	if name == "" {
		return errors.New("scheme name is empty")
	}
	if s == nil {
		return fmt.Errorf("scheme %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemes[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	r.schemes[name] = s
	return nil
}

// RegisterBPEFile registers a tokenizer.json backed scheme. The file is read
// on first use.
func (r *Registry) RegisterBPEFile(name, path string) error {
	return r.Register(name, newLazy(name, func() (Scheme, error) {
		return tokenizer.LoadBPEFile(path)
	}))
}

// Get returns the scheme registered under name.
func (r *Registry) Get(name string) (Scheme, error) {
	r.mu.RLock()
	s, ok := r.schemes[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
	return s, nil
}

// Names lists registered scheme identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.schemes))
}

// ForModel resolves a model name to its scheme identifier and scheme.
func (r *Registry) ForModel(model string) (string, Scheme, error) {
	name, err := SchemeForModel(model)
	if err != nil {
		return "", nil, err
	}
	s, err := r.Get(name)
	if err != nil {
		return "", nil, err
	}
	return name, s, nil
}

// lazyScheme defers loading until the first Encode or Decode call. A failed
// load is remembered and returned on every later call.
type lazyScheme struct {
	name string
	load func() (Scheme, error)

	once   sync.Once
	scheme Scheme
	err    error
}

func newLazy(name string, load func() (Scheme, error)) *lazyScheme {
	return &lazyScheme{name: name, load: load}
}

func (l *lazyScheme) resolve() (Scheme, error) {
	l.once.Do(func() {
		l.scheme, l.err = l.load()
		if l.err != nil {
			l.err = fmt.Errorf("load scheme %q: %w", l.name, l.err)
		}
	})
	return l.scheme, l.err
}

func (l *lazyScheme) Encode(text string) ([]int, error) {
	s, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return s.Encode(text)
}

func (l *lazyScheme) Decode(ids []int) (string, error) {
	s, err := l.resolve()
	if err != nil {
		return "", err
	}
	return s.Decode(ids)
}
