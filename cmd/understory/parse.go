package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmills/understory"
	"github.com/jmills/understory/language"
	"github.com/spf13/cobra"
)

var (
	flagLanguage string
	flagTimeout  uint64
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a source file and print its syntax tree",
	Long:  "Reads the file into a text buffer, parses it through a session, and prints the root node's S-expression.",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&flagLanguage, "language", "", "grammar name (default: detect from file extension)")
	parseCmd.Flags().Uint64Var(&flagTimeout, "timeout-micros", 0, "engine parse budget in microseconds (0 = unlimited)")
}

// extToLanguage maps common file extensions to registered grammar names.
var extToLanguage = map[string]string{
	".go": "go",
	".js": "javascript",
	".py": "python",
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]

	name := flagLanguage
	if name == "" {
		ext := strings.ToLower(filepath.Ext(path))
		detected, ok := extToLanguage[ext]
		if !ok {
			return fmt.Errorf("cannot detect language for %q, pass --language", path)
		}
		name = detected
	}

	lang, err := language.Get(name)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	session := understory.NewSession()
	defer session.Close()
	if err := session.SetLanguage(lang); err != nil {
		return err
	}
	if flagTimeout > 0 {
		if err := session.SetTimeoutMicros(flagTimeout); err != nil {
			return err
		}
	}

	buf := understory.NewBufferString(string(content))

	start := time.Now()
	tree, err := session.Parse(context.Background(), nil, buf)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if tree == nil {
		return fmt.Errorf("parse of %s was cancelled before completion", path)
	}

	fmt.Fprintln(cmd.OutOrStdout(), tree.RootNode().String())
	fmt.Fprintf(os.Stderr, "Parsed %s (%d code units, %d bytes) as %s in %s\n",
		path, buf.Len(), len(content), name, time.Since(start).Round(time.Microsecond))
	return nil
}
