// Package genmod generates per-grammar build modules from a YAML
// manifest. Each grammar becomes a standalone cgo package bundling the
// grammar's C sources with a Go accessor that obtains the language
// handle once per process and reuses it, plus a RegisterAll hook wiring
// every generated grammar into the language registry.
package genmod

import (
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Manifest describes a set of grammars to generate build modules for.
type Manifest struct {
	// Package is the Go package name of the output root, which holds
	// the RegisterAll hook. Defaults to "grammars".
	Package string `yaml:"package"`

	// ImportBase is the import path of the output directory, used for
	// the per-grammar imports in RegisterAll.
	ImportBase string `yaml:"import_base"`

	Grammars []Grammar `yaml:"grammars"`
}

// Grammar describes one grammar: where its C sources live and which C
// symbol yields its TSLanguage.
type Grammar struct {
	// Name is the grammar name, which doubles as the generated package
	// name and the registry key. Lowercase identifier.
	Name string `yaml:"name"`

	// Symbol is the C function returning the grammar's TSLanguage.
	// Defaults to tree_sitter_<name>.
	Symbol string `yaml:"symbol"`

	// SrcDir is the directory holding the grammar's generated C
	// sources, relative to the manifest file.
	SrcDir string `yaml:"srcdir"`

	// Sources are C files copied into the package root, relative to
	// SrcDir. Typically parser.c plus an optional scanner.c.
	Sources []string `yaml:"sources"`

	// Headers are header files copied into the package preserving
	// their relative path, so includes like "tree_sitter/parser.h"
	// keep resolving. Relative to SrcDir.
	Headers []string `yaml:"headers"`

	// CFlags, when set, is emitted as a #cgo CFLAGS directive.
	CFlags string `yaml:"cflags"`
}

var grammarName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Package == "" {
		m.Package = "grammars"
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.ImportBase == "" {
		return fmt.Errorf("import_base is required")
	}
	if len(m.Grammars) == 0 {
		return fmt.Errorf("no grammars declared")
	}
	seen := make(map[string]bool, len(m.Grammars))
	for i := range m.Grammars {
		g := &m.Grammars[i]
		if !grammarName.MatchString(g.Name) {
			return fmt.Errorf("grammar %q: name must be a lowercase identifier", g.Name)
		}
		if seen[g.Name] {
			return fmt.Errorf("grammar %q: declared twice", g.Name)
		}
		seen[g.Name] = true
		if len(g.Sources) == 0 {
			return fmt.Errorf("grammar %q: no sources declared", g.Name)
		}
		if g.Symbol == "" {
			g.Symbol = "tree_sitter_" + g.Name
		}
	}
	return nil
}

// Generate writes one build module per grammar under outDir, plus the
// RegisterAll hook at the output root. baseDir anchors the manifest's
// relative srcdir paths, normally the manifest file's directory.
func Generate(m *Manifest, baseDir, outDir string) error {
	for _, g := range m.Grammars {
		if err := generateGrammar(g, baseDir, outDir); err != nil {
			return fmt.Errorf("grammar %q: %w", g.Name, err)
		}
	}
	if err := writeRegisterFile(m, outDir); err != nil {
		return fmt.Errorf("register hook: %w", err)
	}
	return nil
}

func generateGrammar(g Grammar, baseDir, outDir string) error {
	pkgDir := filepath.Join(outDir, g.Name)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", pkgDir, err)
	}

	// Copy the C sources into the package root so cgo picks them up.
	for _, src := range g.Sources {
		from := filepath.Join(baseDir, g.SrcDir, filepath.FromSlash(src))
		to := filepath.Join(pkgDir, filepath.Base(src))
		if err := copyFile(from, to); err != nil {
			return err
		}
	}

	// Headers keep their relative path so the sources' includes resolve.
	for _, hdr := range g.Headers {
		from := filepath.Join(baseDir, g.SrcDir, filepath.FromSlash(hdr))
		to := filepath.Join(pkgDir, filepath.FromSlash(hdr))
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(to), err)
		}
		if err := copyFile(from, to); err != nil {
			return err
		}
	}

	binding, err := renderBinding(g)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(pkgDir, "binding.go"), binding)
}

func copyFile(from, to string) error {
	data, err := os.ReadFile(from)
	if err != nil {
		return fmt.Errorf("read %s: %w", from, err)
	}
	return writeFile(to, data)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeRegisterFile(m *Manifest, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}
	data, err := renderRegister(m)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(outDir, "register.go"), data)
}

// ManifestDir returns the directory of a manifest path, the anchor for
// its relative srcdir entries.
func ManifestDir(manifestPath string) string {
	dir := filepath.Dir(manifestPath)
	if dir == "" {
		return "."
	}
	return dir
}

// GrammarNames returns the declared grammar names in manifest order.
func (m *Manifest) GrammarNames() []string {
	names := make([]string, len(m.Grammars))
	for i, g := range m.Grammars {
		names[i] = g.Name
	}
	return names
}

// packageName returns the Go package name for a generated grammar
// module. A grammar name that is a Go keyword cannot be a package name:
// "go" maps to "golang", the upstream binding convention, and other
// keywords get a grammar suffix.
func packageName(name string) string {
	if name == "go" {
		return "golang"
	}
	if token.IsKeyword(name) {
		return name + "grammar"
	}
	return name
}

// importAlias returns the alias used when importing a generated grammar
// package from the register hook. Names that would clash with the
// registry import or with a Go keyword get remapped.
func importAlias(name string) string {
	if name == "language" {
		return name + "grammar"
	}
	return packageName(name)
}
