package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/luxifer/ics"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:     "check [flags] [file...]",
	Example: "$ icsparse check ~/calendars/*.ics",
	Short:   "Check that documents are well-formed",
	Long: `
The check command parses every document given on the command line, or stdin
when there is none. It prints "ok" for each document that parses. For the
others it prints the position of the furthest point the parser reached, the
alternatives it expected there and the offending source line.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return CheckDocuments(cmd.OutOrStdout(), inputs(args))
	},
}

func init() {
	RootCmd.AddCommand(checkCmd)
}

var (
	printOK       = color.New(color.FgGreen).FprintfFunc()
	printFailure  = color.New(color.FgHiRed, color.Bold).FprintfFunc()
	printLocation = color.New(color.Bold).FprintfFunc()
	printCaret    = color.New(color.FgHiRed).FprintfFunc()
)

// CheckDocuments parses every named document and reports the result of
// each, including documents that cannot be read. It returns a failedError
// when at least one did not parse.
func CheckDocuments(w io.Writer, names []string) error {
	failed := 0
	for _, name := range names {
		data, err := readInput(name)
		if err != nil {
			failed++
			reportFailure(w, name, "", err)
			continue
		}

		doc, err := ics.ParseBytes(data, parserOptions()...)
		if err != nil {
			failed++
			reportFailure(w, name, string(data), err)
			continue
		}

		printLocation(w, "%s", name)
		printOK(w, ": ok")
		fmt.Fprintf(w, " (%d components)\n", len(doc.Components))
	}

	if failed > 0 {
		return failedError{failed: failed, total: len(names)}
	}
	return nil
}

// reportFailure prints err in the form
//
//	name:line:column: error: message
//	    source line
//	        ^
func reportFailure(w io.Writer, name, input string, err error) {
	perr, ok := err.(*ics.ParseError)
	if !ok {
		printLocation(w, "%s: ", name)
		printFailure(w, "error: ")
		fmt.Fprintf(w, "%v\n", err)
		return
	}

	printLocation(w, "%s:%d:%d: ", name, perr.Pos.Line, perr.Pos.Column)
	printFailure(w, "error: ")
	fmt.Fprintf(w, "%s\n", message(perr))

	line := sourceLine(input, perr.Pos.Offset)
	fmt.Fprintf(w, "    %s\n", line)
	fmt.Fprintf(w, "    %s", caretIndent(line, perr.Pos.Column))
	printCaret(w, "^")
	fmt.Fprintln(w)
}

// message returns the error text without the leading position.
func message(perr *ics.ParseError) string {
	s := perr.Error()
	if i := strings.Index(s, ": "); i >= 0 {
		return s[i+2:]
	}
	return s
}

// sourceLine returns the line of input containing offset, without its line
// break.
func sourceLine(input string, offset int) string {
	if offset > len(input) {
		offset = len(input)
	}

	start := strings.LastIndexAny(input[:offset], "\r\n") + 1
	end := strings.IndexAny(input[start:], "\r\n")
	if end < 0 {
		return input[start:]
	}
	return input[start : start+end]
}

// caretIndent returns whitespace reaching column in line, keeping tabs so the
// caret lines up.
func caretIndent(line string, column int) string {
	var b strings.Builder
	i := 1
	for _, r := range line {
		if i >= column {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteRune(' ')
		}
		i++
	}
	for ; i < column; i++ {
		b.WriteRune(' ')
	}
	return b.String()
}
