package ics

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	// KindUnexpectedToken means the input matched none of the expected
	// alternatives.
	KindUnexpectedToken ErrorKind = iota + 1
	// KindStructuralMismatch means an END name differs from the name of the
	// enclosing BEGIN.
	KindStructuralMismatch
	// KindUnterminatedQuote means a quoted-string was not closed.
	KindUnterminatedQuote
	// KindUnexpectedEOF means the input ended inside a component or token.
	KindUnexpectedEOF
	// KindTrailingContent means something other than a component follows the
	// last complete component.
	KindTrailingContent
	// KindNestingTooDeep means components are nested beyond the configured
	// maximum depth.
	KindNestingTooDeep
)

// Sentinels for use with errors.Is. A *ParseError matches the sentinel of its
// kind.
var (
	ErrUnexpectedToken    = errors.New("unexpected token")
	ErrStructuralMismatch = errors.New("mismatched END")
	ErrUnterminatedQuote  = errors.New("unterminated quoted-string")
	ErrUnexpectedEOF      = errors.New("unexpected end of input")
	ErrTrailingContent    = errors.New("trailing content")
	ErrNestingTooDeep     = errors.New("components nested too deep")
)

var kindSentinels = map[ErrorKind]error{
	KindUnexpectedToken:    ErrUnexpectedToken,
	KindStructuralMismatch: ErrStructuralMismatch,
	KindUnterminatedQuote:  ErrUnterminatedQuote,
	KindUnexpectedEOF:      ErrUnexpectedEOF,
	KindTrailingContent:    ErrTrailingContent,
	KindNestingTooDeep:     ErrNestingTooDeep,
}

func (k ErrorKind) String() string {
	switch k {
	case KindUnexpectedToken:
		return "UnexpectedToken"
	case KindStructuralMismatch:
		return "StructuralMismatch"
	case KindUnterminatedQuote:
		return "UnterminatedQuote"
	case KindUnexpectedEOF:
		return "UnexpectedEndOfInput"
	case KindTrailingContent:
		return "TrailingContent"
	case KindNestingTooDeep:
		return "NestingTooDeep"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// A ParseError describes why a document could not be parsed. Pos is the
// furthest point the parser reached.
type ParseError struct {
	Kind ErrorKind
	Pos  Position

	// Expected lists the alternatives that were tried at Pos, sorted.
	Expected []string

	// Found is the text at Pos up to the end of its line, or the line break
	// itself. It is empty at the end of the input.
	Found string

	// Start locates the BEGIN line of a mismatched component or the opening
	// quote of an unterminated quoted-string.
	Start Position

	// Begin and End hold the component names of a structural mismatch.
	Begin, End string

	// Limit is the maximum depth that was exceeded.
	Limit int
}

func (e *ParseError) Error() string {
	var msg string
	switch e.Kind {
	case KindStructuralMismatch:
		msg = fmt.Sprintf("END:%s does not match BEGIN:%s at line %d", e.End, e.Begin, e.Start.Line)
	case KindUnterminatedQuote:
		msg = fmt.Sprintf("quoted-string opened at line %d, column %d is not terminated, found %s",
			e.Start.Line, e.Start.Column, e.found())
	case KindNestingTooDeep:
		msg = fmt.Sprintf("components nested deeper than %d", e.Limit)
	case KindTrailingContent:
		msg = fmt.Sprintf("unexpected content after the last component, found %s", e.found())
	default:
		msg = fmt.Sprintf("expected %s, found %s", e.expected(), e.found())
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, msg)
}

// Is reports whether target is the sentinel error of e's kind.
func (e *ParseError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func (e *ParseError) expected() string {
	switch len(e.Expected) {
	case 0:
		return "nothing"
	case 1:
		return e.Expected[0]
	}
	return "one of {" + strings.Join(e.Expected, ", ") + "}"
}

func (e *ParseError) found() string {
	if e.Found == "" {
		return "end of input"
	}
	if len(e.Found) > 10 {
		return fmt.Sprintf("%.10q...", e.Found)
	}
	return fmt.Sprintf("%q", e.Found)
}
