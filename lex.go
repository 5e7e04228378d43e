package ics

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const eof = -1

const (
	beginDelim = "BEGIN:"
	endDelim   = "END:"
)

// lexer holds the state of the scanner.
//
// The parser drives the lexer rule by rule: every scan function reads one
// kind of token starting at pos. Folds (a run of line breaks followed by at
// least one space or tab) are removed by skipFold, which each scan function
// calls before it looks at the next character. pos always indexes the raw
// input, so elided folds still count towards positions.
type lexer struct {
	input string // the string being scanned
	pos   int    // current position in the input
	width int    // width of last rune read from input
	lines []int  // offset of the first byte of every line
}

func newLexer(input string) *lexer {
	return &lexer{
		input: input,
		lines: lineIndex(input),
	}
}

// lineIndex records where each line of input starts. CRLF, LF and a lone CR
// all end a line.
func lineIndex(input string) []int {
	lines := []int{0}
	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '\r':
			if i+1 < len(input) && input[i+1] == '\n' {
				i++
			}
			lines = append(lines, i+1)
		case '\n':
			lines = append(lines, i+1)
		}
	}
	return lines
}

// position converts a byte offset into line and column.
func (l *lexer) position(offset int) Position {
	line := sort.Search(len(l.lines), func(i int) bool {
		return l.lines[i] > offset
	}) - 1
	start := l.lines[line]
	return Position{
		Offset: offset,
		Line:   line + 1,
		Column: utf8.RuneCountInString(l.input[start:offset]) + 1,
	}
}

// next returns the next rune in the input.
func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += l.width
	return r
}

// peek returns but does not consume the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// backup steps back one rune. Can only be called once per call of next.
func (l *lexer) backup() {
	l.pos -= l.width
	l.width = 0
}

// last returns the raw bytes of the rune most recently read by next.
func (l *lexer) last() string {
	return l.input[l.pos-l.width : l.pos]
}

func (l *lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// newlineAt returns the length of the line break at offset, or 0.
func (l *lexer) newlineAt(offset int) int {
	if offset >= len(l.input) {
		return 0
	}
	switch l.input[offset] {
	case '\n':
		return 1
	case '\r':
		if offset+1 < len(l.input) && l.input[offset+1] == '\n' {
			return 2
		}
		return 1
	}
	return 0
}

// foldAt returns the length of the fold starting at offset, or 0. A fold is
// one or more line breaks followed by one or more spaces or tabs.
func (l *lexer) foldAt(offset int) int {
	i := offset
	for n := l.newlineAt(i); n > 0; n = l.newlineAt(i) {
		i += n
	}
	if i == offset {
		return 0
	}
	j := i
	for j < len(l.input) && isSpace(l.input[j]) {
		j++
	}
	if j == i {
		return 0
	}
	return j - offset
}

// skipFold consumes every fold at the current position and reports whether
// there was one.
func (l *lexer) skipFold() bool {
	skipped := false
	for n := l.foldAt(l.pos); n > 0; n = l.foldAt(l.pos) {
		l.pos += n
		skipped = true
	}
	l.width = 0
	return skipped
}

// skipSpace consumes separator whitespace: spaces, tabs and folds.
func (l *lexer) skipSpace() {
	for {
		if l.skipFold() {
			continue
		}
		if l.pos < len(l.input) && isSpace(l.input[l.pos]) {
			l.pos++
			continue
		}
		return
	}
}

// acceptNewlines consumes one or more line breaks.
func (l *lexer) acceptNewlines() bool {
	start := l.pos
	for n := l.newlineAt(l.pos); n > 0; n = l.newlineAt(l.pos) {
		l.pos += n
	}
	return l.pos > start
}

// accept consumes c if it is the next character.
func (l *lexer) accept(c byte) bool {
	start := l.pos
	l.skipFold()
	if l.pos < len(l.input) && l.input[l.pos] == c {
		l.pos++
		return true
	}
	l.pos = start
	return false
}

// acceptLiteral consumes lit, compared without regard to ASCII case.
func (l *lexer) acceptLiteral(lit string) bool {
	start := l.pos
	if l.matchLiteral(lit) {
		return true
	}
	l.pos = start
	return false
}

// peekLiteral reports whether lit comes next without consuming it.
func (l *lexer) peekLiteral(lit string) bool {
	start := l.pos
	ok := l.matchLiteral(lit)
	l.pos = start
	return ok
}

func (l *lexer) matchLiteral(lit string) bool {
	for i := 0; i < len(lit); i++ {
		l.skipFold()
		if l.pos >= len(l.input) || upper(l.input[l.pos]) != upper(lit[i]) {
			return false
		}
		l.pos++
	}
	return true
}

// scan reads the longest run of runes accepted by valid, eliding folds.
func (l *lexer) scan(valid func(rune) bool) string {
	var b strings.Builder
	for {
		if l.skipFold() {
			continue
		}
		if !valid(l.next()) {
			l.backup()
			return b.String()
		}
		b.WriteString(l.last())
	}
}

// scanName scans a name
//
// name       = iana-token / x-name
// iana-token = 1*(ALPHA / DIGIT / "-")
func (l *lexer) scanName() string {
	return l.scan(isName)
}

// scanSafe scans an unquoted param-value
//
// paramtext = *SAFE-CHAR
// SAFE-CHAR = any character except CONTROL, DQUOTE, "`", ";", ":", ","
func (l *lexer) scanSafe() string {
	return l.scan(isSafeChar)
}

// scanQuoted scans the body of a quoted-string after its opening quote and
// consumes the closing quote. It reports false if the input ends, or a
// control character or line break shows up, before the closing quote.
//
// quoted-string = DQUOTE *QSAFE-CHAR DQUOTE
// QSAFE-CHAR    = any character except CONTROL and DQUOTE
func (l *lexer) scanQuoted() (string, bool) {
	s := l.scan(isQSafeChar)
	if l.peek() != '"' {
		return s, false
	}
	l.next()
	return s, true
}

// scanValue scans a property value: everything up to the next line break
// that is not part of a fold.
func (l *lexer) scanValue() string {
	var b strings.Builder
	for {
		if l.skipFold() {
			continue
		}
		if l.atEOF() || l.newlineAt(l.pos) > 0 {
			return b.String()
		}
		l.next()
		b.WriteString(l.last())
	}
}

// rest returns the remainder of the line at offset, at most n bytes and
// never ending inside a rune.
func (l *lexer) rest(offset, n int) string {
	end := offset
	for end < len(l.input) && end-offset < n && l.newlineAt(end) == 0 {
		end++
	}
	for end > offset && end < len(l.input) && !utf8.RuneStart(l.input[end]) {
		end--
	}
	return l.input[offset:end]
}

// rune helpers

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func isName(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-'
}

// isControl reports CONTROL characters: everything below 0x20 except
// horizontal tab, and DEL. Line breaks are control characters.
func isControl(r rune) bool {
	return r >= 0 && r < 0x20 && r != '\t' || r == 0x7f
}

func isQSafeChar(r rune) bool {
	return r != eof && !isControl(r) && r != '"'
}

func isSafeChar(r rune) bool {
	return isQSafeChar(r) && r != '`' && r != ';' && r != ':' && r != ','
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
