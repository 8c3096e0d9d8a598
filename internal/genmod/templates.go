package genmod

import (
	"bytes"
	"fmt"
	"text/template"
)

// bindingTemplate is the per-grammar build module: cgo directives as
// the build description, the C symbol declaration as the bridge, and a
// once-cached accessor as the process-wide singleton the session layer
// depends on.
const bindingTemplate = `// Code generated by understory generate; DO NOT EDIT.

// Package {{pkg .Name}} bundles the {{.Name}} tree-sitter grammar as a
// standalone build module.
package {{pkg .Name}}

{{if .CFlags}}//#cgo CFLAGS: {{.CFlags}}
{{end}}//#include "tree_sitter/parser.h"
//const TSLanguage *{{.Symbol}}(void);
import "C"

import (
	"sync"
	"unsafe"

	sitter "github.com/smacker/go-tree-sitter"
)

var language = sync.OnceValue(func() *sitter.Language {
	return sitter.NewLanguage(unsafe.Pointer(C.{{.Symbol}}()))
})

// GetLanguage returns the {{.Name}} grammar handle. The handle is
// obtained once and shared for the life of the process.
func GetLanguage() *sitter.Language {
	return language()
}
`

const registerTemplate = `// Code generated by understory generate; DO NOT EDIT.

// Package {{.Package}} holds the generated grammar build modules.
package {{.Package}}

import (
{{- range .Grammars}}
	{{alias .Name}} "{{$.ImportBase}}/{{.Name}}"
{{- end}}

	"github.com/jmills/understory/language"
)

// RegisterAll wires every generated grammar into the process-wide
// language registry. Call it once during program initialization.
func RegisterAll() error {
{{- range .Grammars}}
	if err := language.Register("{{.Name}}", {{alias .Name}}.GetLanguage); err != nil {
		return err
	}
{{- end}}
	return nil
}
`

var templateFuncs = template.FuncMap{
	"alias": importAlias,
	"pkg":   packageName,
}

func renderBinding(g Grammar) ([]byte, error) {
	return render("binding", bindingTemplate, g)
}

func renderRegister(m *Manifest) ([]byte, error) {
	return render("register", registerTemplate, m)
}

func render(name, text string, data any) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
