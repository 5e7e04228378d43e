package ics

import (
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultMaxDepth is the deepest component nesting accepted unless MaxDepth
// says otherwise.
const DefaultMaxDepth = 256

// An Option configures a single parse.
type Option func(*parser)

// MaxDepth limits how deeply components may nest. Documents that nest deeper
// fail with KindNestingTooDeep. Values below 1 are ignored.
func MaxDepth(n int) Option {
	return func(p *parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// WithLogger makes the parser trace components and failures at debug level.
// A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(p *parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

type parser struct {
	lex      *lexer
	names    []string // names of the open components, innermost last
	maxDepth int
	logger   *zap.Logger

	// furthest failure
	furthest int
	expected []string
}

// Parse reads the whole of r and parses it into a Document.
// It's up to the caller to close the io.Reader.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}
	return ParseString(string(b), opts...)
}

// ParseBytes parses b into a Document.
func ParseBytes(b []byte, opts ...Option) (*Document, error) {
	return ParseString(string(b), opts...)
}

// ParseString parses s into a Document. Errors are of type *ParseError.
func ParseString(s string, opts ...Option) (*Document, error) {
	p := &parser{
		lex:      newLexer(s),
		maxDepth: DefaultMaxDepth,
		logger:   zap.NewNop(),
		furthest: -1,
	}
	for _, opt := range opts {
		opt(p)
	}

	doc, err := p.parse()
	if err != nil {
		p.logger.Debug("parse failed", zap.Error(err))
		return nil, err
	}
	return doc, nil
}

// expect records that one of labels was tried, and failed, at the current
// position. Only the rightmost failures are kept.
func (p *parser) expect(labels ...string) {
	p.expectAt(p.lex.pos, labels...)
}

func (p *parser) expectAt(offset int, labels ...string) {
	switch {
	case offset > p.furthest:
		p.furthest = offset
		p.expected = append(p.expected[:0], labels...)
	case offset == p.furthest:
		p.expected = append(p.expected, labels...)
	}
}

// fail turns the furthest failure into an error.
func (p *parser) fail(kind ErrorKind) *ParseError {
	offset := p.furthest
	if offset < 0 {
		offset = p.lex.pos
	}
	if kind == KindUnexpectedToken && offset >= len(p.lex.input) {
		kind = KindUnexpectedEOF
	}
	return &ParseError{
		Kind:     kind,
		Pos:      p.lex.position(offset),
		Expected: dedupe(p.expected),
		Found:    p.found(offset),
	}
}

// found describes the input at offset for error messages.
func (p *parser) found(offset int) string {
	if n := p.lex.newlineAt(offset); n > 0 {
		return p.lex.input[offset : offset+n]
	}
	return p.lex.rest(offset, 20)
}

func dedupe(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	s := append([]string(nil), labels...)
	sort.Strings(s)
	out := s[:1]
	for _, label := range s[1:] {
		if label != out[len(out)-1] {
			out = append(out, label)
		}
	}
	return out
}

// parse
//
// document = *component
func (p *parser) parse() (*Document, error) {
	doc := NewDocument()
	for {
		p.skipBlank()
		if p.lex.atEOF() {
			break
		}

		if !p.lex.peekLiteral(beginDelim) {
			p.expect(beginDelim)
			if len(doc.Components) == 0 {
				return nil, p.fail(KindUnexpectedToken)
			}
			return nil, p.fail(KindTrailingContent)
		}

		c, err := p.parseComponent()
		if err != nil {
			return nil, err
		}
		doc.Components = append(doc.Components, c)
	}

	p.logger.Debug("parse complete", zap.Int("components", len(doc.Components)))
	return doc, nil
}

// skipBlank skips whitespace and empty lines between components.
func (p *parser) skipBlank() {
	for {
		p.lex.skipSpace()
		if !p.lex.acceptNewlines() {
			return
		}
	}
}

// lineEnd consumes the end of a content line: one or more line breaks, or the
// end of the input.
func (p *parser) lineEnd() error {
	p.lex.skipSpace()
	if p.lex.atEOF() || p.lex.acceptNewlines() {
		return nil
	}
	p.expect("newline")
	return p.fail(KindUnexpectedToken)
}

// push opens a component. It fails when the nesting limit is reached.
func (p *parser) push(name string, start int) error {
	if len(p.names) >= p.maxDepth {
		return &ParseError{
			Kind:  KindNestingTooDeep,
			Pos:   p.lex.position(start),
			Found: p.found(start),
			Limit: p.maxDepth,
		}
	}
	p.names = append(p.names, name)
	return nil
}

// pop closes the innermost component and returns its name.
func (p *parser) pop() string {
	name := p.names[len(p.names)-1]
	p.names = p.names[:len(p.names)-1]
	return name
}

// parseComponent parses a component and everything nested in it
//
// component = "BEGIN:" name 1*newline *(property / component) "END:" name 1*newline
func (p *parser) parseComponent() (*Component, error) {
	start := p.lex.pos
	if !p.lex.acceptLiteral(beginDelim) {
		p.expect(beginDelim)
		return nil, p.fail(KindUnexpectedToken)
	}

	p.lex.skipSpace()
	name := p.lex.scanName()
	if name == "" {
		p.expect("component name")
		return nil, p.fail(KindUnexpectedToken)
	}

	if err := p.push(name, start); err != nil {
		return nil, err
	}

	c := NewComponent(name)
	c.Pos = p.lex.position(start)
	p.logger.Debug("component begin",
		zap.String("name", name),
		zap.Int("depth", len(p.names)),
		zap.Int("line", c.Pos.Line))

	if err := p.lineEnd(); err != nil {
		return nil, err
	}

Loop:
	for {
		switch {
		case p.lex.peekLiteral(beginDelim):
			sub, err := p.parseComponent()
			if err != nil {
				return nil, err
			}
			c.Children = append(c.Children, sub)
		case p.lex.peekLiteral(endDelim):
			break Loop
		default:
			p.expect(beginDelim, endDelim)
			prop, err := p.parseProperty()
			if err != nil {
				return nil, err
			}
			c.Children = append(c.Children, prop)
		}
	}

	p.lex.acceptLiteral(endDelim)
	p.lex.skipSpace()
	endStart := p.lex.pos
	endName := p.lex.scanName()
	if endName == "" {
		p.expect("component name")
		return nil, p.fail(KindUnexpectedToken)
	}

	if begin := p.pop(); !strings.EqualFold(begin, endName) {
		return nil, &ParseError{
			Kind:  KindStructuralMismatch,
			Pos:   p.lex.position(endStart),
			Found: p.found(endStart),
			Start: c.Pos,
			Begin: begin,
			End:   endName,
		}
	}

	if err := p.lineEnd(); err != nil {
		return nil, err
	}

	p.logger.Debug("component end",
		zap.String("name", name),
		zap.Int("children", len(c.Children)))
	return c, nil
}

// parseProperty parses a content line
//
// contentline = name *(";" param ) ":" value 1*newline
func (p *parser) parseProperty() (*Property, error) {
	start := p.lex.pos
	if p.lex.peekLiteral(beginDelim) || p.lex.peekLiteral(endDelim) {
		p.expect("property name")
		return nil, p.fail(KindUnexpectedToken)
	}

	name := p.lex.scanName()
	if name == "" || strings.EqualFold(name, "BEGIN") || strings.EqualFold(name, "END") {
		p.expectAt(start, "property name")
		return nil, p.fail(KindUnexpectedToken)
	}

	prop := NewProperty(name)
	prop.Pos = p.lex.position(start)

	for {
		p.lex.skipSpace()
		if !p.lex.accept(';') {
			p.expect(`";"`)
			break
		}

		p.lex.skipSpace()
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		prop.Params = append(prop.Params, param)
	}

	if !p.lex.accept(':') {
		p.expect(`":"`)
		return nil, p.fail(KindUnexpectedToken)
	}

	prop.Value = p.lex.scanValue()

	if err := p.lineEnd(); err != nil {
		return nil, err
	}
	return prop, nil
}

// parseParam parses a param and its list of at least one value
//
// param = param-name "=" param-value *("," param-value)
func (p *parser) parseParam() (*Param, error) {
	name := p.lex.scanName()
	if name == "" {
		p.expect("parameter name")
		return nil, p.fail(KindUnexpectedToken)
	}

	param := NewParam(name)

	p.lex.skipSpace()
	if !p.lex.accept('=') {
		p.expect(`"="`)
		return nil, p.fail(KindUnexpectedToken)
	}

	for {
		p.lex.skipSpace()
		v, err := p.parseParamValue()
		if err != nil {
			return nil, err
		}
		param.Values = append(param.Values, v)

		p.lex.skipSpace()
		if !p.lex.accept(',') {
			p.expect(`","`)
			return param, nil
		}
	}
}

// parseParamValue parses a quoted-string, or failing that a paramtext
//
// param-value = quoted-string / paramtext
func (p *parser) parseParamValue() (ParamValue, error) {
	start := p.lex.pos
	if !p.lex.accept('"') {
		return ParamValue{Value: p.lex.scanSafe()}, nil
	}

	s, ok := p.lex.scanQuoted()
	if !ok {
		p.expect("closing quote")
		err := p.fail(KindUnterminatedQuote)
		err.Start = p.lex.position(start)
		return ParamValue{}, err
	}
	return ParamValue{Value: s, Quoted: true}, nil
}
