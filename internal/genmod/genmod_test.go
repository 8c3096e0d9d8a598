package genmod

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestManifest lays out a manifest plus fake grammar sources and
// returns the manifest path.
func writeTestManifest(t *testing.T, dir, manifest string) string {
	t.Helper()

	srcDir := filepath.Join(dir, "vendor-grammars", "lua", "src")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "tree_sitter"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "parser.c"), []byte("/* parser */\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "scanner.c"), []byte("/* scanner */\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "tree_sitter", "parser.h"), []byte("/* header */\n"), 0o644))

	path := filepath.Join(dir, "grammars.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	return path
}

const validManifest = `package: grammars
import_base: example.com/app/grammars
grammars:
  - name: lua
    srcdir: vendor-grammars/lua/src
    sources: [parser.c, scanner.c]
    headers: [tree_sitter/parser.h]
    cflags: -std=c11
`

// =============================================================================
// Load & validation
// =============================================================================

func TestLoad_Valid(t *testing.T) {
	t.Parallel()
	path := writeTestManifest(t, t.TempDir(), validManifest)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "grammars", m.Package)
	assert.Equal(t, "example.com/app/grammars", m.ImportBase)
	require.Len(t, m.Grammars, 1)
	assert.Equal(t, "lua", m.Grammars[0].Name)
	// Symbol defaults to tree_sitter_<name>.
	assert.Equal(t, "tree_sitter_lua", m.Grammars[0].Symbol)
	assert.Equal(t, []string{"lua"}, m.GrammarNames())
}

func TestLoad_DefaultsPackage(t *testing.T) {
	t.Parallel()
	path := writeTestManifest(t, t.TempDir(), `import_base: example.com/g
grammars:
  - name: lua
    srcdir: vendor-grammars/lua/src
    sources: [parser.c]
`)
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "grammars", m.Package)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		manifest string
		wantMsg  string
	}{
		{
			name:     "missing import base",
			manifest: "grammars:\n  - name: lua\n    sources: [parser.c]\n",
			wantMsg:  "import_base is required",
		},
		{
			name:     "no grammars",
			manifest: "import_base: example.com/g\n",
			wantMsg:  "no grammars",
		},
		{
			name:     "bad name",
			manifest: "import_base: example.com/g\ngrammars:\n  - name: Tree-Sitter\n    sources: [parser.c]\n",
			wantMsg:  "lowercase identifier",
		},
		{
			name:     "duplicate name",
			manifest: "import_base: example.com/g\ngrammars:\n  - name: lua\n    sources: [parser.c]\n  - name: lua\n    sources: [parser.c]\n",
			wantMsg:  "declared twice",
		},
		{
			name:     "no sources",
			manifest: "import_base: example.com/g\ngrammars:\n  - name: lua\n",
			wantMsg:  "no sources",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeTestManifest(t, t.TempDir(), tc.manifest)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// =============================================================================
// Generate
// =============================================================================

func TestGenerate_Layout(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTestManifest(t, dir, validManifest)
	m, err := Load(path)
	require.NoError(t, err)

	out := filepath.Join(dir, "out")
	require.NoError(t, Generate(m, dir, out))

	// C sources land in the package root, headers keep their relative
	// path so includes resolve.
	assert.FileExists(t, filepath.Join(out, "lua", "parser.c"))
	assert.FileExists(t, filepath.Join(out, "lua", "scanner.c"))
	assert.FileExists(t, filepath.Join(out, "lua", "tree_sitter", "parser.h"))

	binding, err := os.ReadFile(filepath.Join(out, "lua", "binding.go"))
	require.NoError(t, err)
	for _, want := range []string{
		"// Code generated by understory generate; DO NOT EDIT.",
		"package lua",
		"//#cgo CFLAGS: -std=c11",
		"const TSLanguage *tree_sitter_lua(void);",
		"func GetLanguage() *sitter.Language",
		"sync.OnceValue",
	} {
		assert.Contains(t, string(binding), want)
	}

	register, err := os.ReadFile(filepath.Join(out, "register.go"))
	require.NoError(t, err)
	for _, want := range []string{
		"package grammars",
		`lua "example.com/app/grammars/lua"`,
		"func RegisterAll() error",
		`language.Register("lua", lua.GetLanguage)`,
	} {
		assert.Contains(t, string(register), want)
	}
}

func TestGenerate_NoCFlagsDirectiveWhenUnset(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTestManifest(t, dir, `import_base: example.com/g
grammars:
  - name: lua
    srcdir: vendor-grammars/lua/src
    sources: [parser.c]
`)
	m, err := Load(path)
	require.NoError(t, err)

	out := filepath.Join(dir, "out")
	require.NoError(t, Generate(m, dir, out))

	binding, err := os.ReadFile(filepath.Join(out, "lua", "binding.go"))
	require.NoError(t, err)
	assert.NotContains(t, string(binding), "#cgo CFLAGS")
}

func TestGenerate_MissingSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTestManifest(t, dir, `import_base: example.com/g
grammars:
  - name: lua
    srcdir: vendor-grammars/lua/src
    sources: [parser.c, missing.c]
`)
	m, err := Load(path)
	require.NoError(t, err)

	err = Generate(m, dir, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `grammar "lua"`)
}

func TestGenerate_KeywordGrammarName(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// "go" is both the canonical grammar name and a Go keyword; the
	// generated package and import alias must sidestep it.
	path := writeTestManifest(t, dir, `import_base: example.com/g
grammars:
  - name: go
    srcdir: vendor-grammars/lua/src
    sources: [parser.c]
`)
	m, err := Load(path)
	require.NoError(t, err)

	out := filepath.Join(dir, "out")
	require.NoError(t, Generate(m, dir, out))

	binding, err := os.ReadFile(filepath.Join(out, "go", "binding.go"))
	require.NoError(t, err)
	assert.Contains(t, string(binding), "package golang")
	requireParses(t, "binding.go", binding)

	register, err := os.ReadFile(filepath.Join(out, "register.go"))
	require.NoError(t, err)
	assert.Contains(t, string(register), `golang "example.com/g/go"`)
	assert.Contains(t, string(register), `language.Register("go", golang.GetLanguage)`)
	requireParses(t, "register.go", register)
}

// requireParses feeds generated source through the Go parser; a keyword
// leaking into a package clause or import alias fails here.
func requireParses(t *testing.T, name string, src []byte) {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), name, src, parser.AllErrors)
	require.NoError(t, err)
}

func TestPackageName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "lua", packageName("lua"))
	assert.Equal(t, "golang", packageName("go"))
	assert.Equal(t, "mapgrammar", packageName("map"))
	assert.Equal(t, "funcgrammar", packageName("func"))
}

func TestImportAlias(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "lua", importAlias("lua"))
	assert.Equal(t, "languagegrammar", importAlias("language"))
	assert.Equal(t, "golang", importAlias("go"))
}

func TestManifestDir(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("a", "b"), ManifestDir(filepath.Join("a", "b", "grammars.yaml")))
	assert.Equal(t, ".", ManifestDir("grammars.yaml"))
}
