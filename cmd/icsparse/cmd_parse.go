package main

import (
	"io"

	"github.com/luxifer/ics"
	"github.com/luxifer/ics/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var parseCmd = &cobra.Command{
	Use:     "parse [flags] [file...]",
	Example: "$ icsparse parse --format yaml calendar.ics",
	Short:   "Parse documents and show their tree",
	Long: `
The parse command parses each document given on the command line, or stdin
when there is none, and prints the resulting tree of components, properties
and parameters. Folded lines are shown unfolded.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ParseDocuments(cmd.OutOrStdout(), inputs(args))
	},
}

var outputFormat string

func init() {
	RootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format, tree or yaml (default from config)")
}

// ParseDocuments parses and prints every named document. It stops at the
// first one that fails.
func ParseDocuments(w io.Writer, names []string) error {
	format := cfg.Format
	if outputFormat != "" {
		format = outputFormat
	}

	for _, name := range names {
		V("parsing %v\n", name)

		data, err := readInput(name)
		if err != nil {
			return err
		}

		doc, err := ics.ParseBytes(data, parserOptions()...)
		if err != nil {
			return errors.WithMessage(err, name)
		}

		if err = writeDocument(w, doc, format); err != nil {
			return err
		}
	}

	return nil
}

func writeDocument(w io.Writer, doc *ics.Document, format string) error {
	switch format {
	case config.FormatTree:
		return ics.Fprint(w, doc)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(documentView(doc)); err != nil {
			return err
		}
		return enc.Close()
	}

	return errors.Errorf("unknown format %q", format)
}
