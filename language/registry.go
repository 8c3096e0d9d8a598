// Package language keeps one tree-sitter grammar handle per grammar
// name for the whole process. Handles are obtained lazily on first use
// and reused for every later request; there is no teardown beyond
// process exit.
package language

import (
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

var (
	mu      sync.Mutex
	loaders = map[string]func() *sitter.Language{
		"go":         golang.GetLanguage,
		"javascript": javascript.GetLanguage,
		"python":     python.GetLanguage,
	}
	cache = map[string]*sitter.Language{}
)

// Register makes a grammar available under name. load is called at most
// once, on the first Get for that name. Generated grammar modules call
// Register from their RegisterAll hook; registering a name twice is an
// error so two grammars can never silently shadow each other.
func Register(name string, load func() *sitter.Language) error {
	if name == "" {
		return fmt.Errorf("language: register: empty grammar name")
	}
	if load == nil {
		return fmt.Errorf("language: register %q: nil loader", name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := loaders[name]; exists {
		return fmt.Errorf("language: register %q: already registered", name)
	}
	loaders[name] = load
	return nil
}

// Get returns the process-wide grammar handle for name, loading it on
// first use. Safe for concurrent use.
func Get(name string) (*sitter.Language, error) {
	mu.Lock()
	defer mu.Unlock()
	if lang, ok := cache[name]; ok {
		return lang, nil
	}
	load, ok := loaders[name]
	if !ok {
		return nil, fmt.Errorf("language: unknown grammar %q", name)
	}
	lang := load()
	if lang == nil {
		return nil, fmt.Errorf("language: grammar %q loaded as nil", name)
	}
	cache[name] = lang
	return lang, nil
}

// Names returns the registered grammar names in sorted order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(loaders))
	for name := range loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
