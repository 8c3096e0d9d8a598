package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jmills/understory/internal/genmod"
	"github.com/spf13/cobra"
)

var (
	flagManifest string
	flagOut      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate grammar build modules from a manifest",
	Long:  "Reads a YAML manifest of grammars and emits one cgo build module per grammar, plus a RegisterAll hook wiring them into the language registry.",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&flagManifest, "manifest", "grammars.yaml", "grammar manifest file")
	generateCmd.Flags().StringVar(&flagOut, "out", "grammars", "output directory for generated modules")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	m, err := genmod.Load(flagManifest)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	if err := genmod.Generate(m, genmod.ManifestDir(flagManifest), flagOut); err != nil {
		return fmt.Errorf("generating modules: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Generated %d grammar module(s) in %s: %s\n",
		len(m.Grammars), flagOut, strings.Join(m.GrammarNames(), ", "))
	return nil
}
