package main

import (
	"fmt"
	"io"
	"os"

	"github.com/luxifer/ics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var version = "compiled manually"
var compiledAt = "unknown time"

var (
	verboseOutput bool
	debugOutput   bool
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verboseOutput,
		"verbose", "v", false, "be verbose")
	RootCmd.PersistentFlags().BoolVar(&debugOutput,
		"debug", false, "trace the parser on stderr")
}

// V prints the message when verbose is active.
func V(format string, args ...interface{}) {
	if !verboseOutput {
		return
	}

	fmt.Fprintf(os.Stderr, format, args...)
}

// D prints the message when debug is active.
func D(format string, args ...interface{}) {
	if !debugOutput {
		return
	}

	fmt.Fprintf(os.Stderr, format, args...)
}

// parserOptions returns the options for every parse, including a debug
// logger when --debug is set.
func parserOptions() []ics.Option {
	opts := cfg.Options()
	if !debugOutput {
		return opts
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create debug logger: %v\n", err)
		return opts
	}
	return append(opts, ics.WithLogger(logger))
}

// readInput returns the content of the named file, or of stdin for "-".
func readInput(name string) ([]byte, error) {
	if name == "-" {
		b, err := io.ReadAll(os.Stdin)
		return b, errors.Wrap(err, "read stdin")
	}

	b, err := os.ReadFile(name)
	return b, errors.Wrapf(err, "read %s", name)
}

// inputs returns the file names to process; no arguments means stdin.
func inputs(args []string) []string {
	if len(args) == 0 {
		return []string{"-"}
	}
	return args
}

// failedError reports that some inputs were processed but did not parse.
type failedError struct {
	failed, total int
}

func (e failedError) Error() string {
	return fmt.Sprintf("%d of %d documents failed to parse", e.failed, e.total)
}
