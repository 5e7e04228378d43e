package main

import (
	"fmt"
	"os"

	"github.com/luxifer/ics"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// RootCmd is the base command when no other command has been specified.
var RootCmd = &cobra.Command{
	Use:   "icsparse",
	Short: "parse iCalendar documents",
	Long: `
icsparse reads iCalendar-style documents, unfolds their long lines and parses
them into a tree of components and properties. It shows the tree or reports
exactly where a document stops being well-formed.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: parseConfig,
}

func main() {
	if cmd, err := RootCmd.ExecuteC(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		if showUsage(err) {
			cmd.Usage()
		}
		os.Exit(1)
	}
}

// showUsage reports whether err is a usage problem rather than a document
// that failed to parse.
func showUsage(err error) bool {
	if _, ok := err.(failedError); ok {
		return false
	}
	var perr *ics.ParseError
	return !errors.As(err, &perr)
}
