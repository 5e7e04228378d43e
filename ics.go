// Package ics implements a parser for iCalendar-style documents.
//
// The format is the content-line syntax of RFC 5545: components delimited by
// BEGIN and END lines, each holding properties with optional parameters.
// Long lines may be folded; folds are removed while the input is tokenized,
// so the positions reported in the tree and in errors refer to the original
// text.
package ics

import "strings"

// A Position is a location in the raw, folded input.
type Position struct {
	Offset int // byte offset, starting at 0
	Line   int // line number, starting at 1
	Column int // column in runes, starting at 1
}

// A Document is the result of a parse: the top-level components in input order.
type Document struct {
	Components []*Component
}

// A Node is a child of a Component, either a *Component or a *Property.
type Node interface {
	node()
}

// A Component represents a BEGIN:<name> ... END:<name> block
type Component struct {
	Name     string
	Pos      Position
	Children []Node
}

// A Property represents an unparsed content line in a component
type Property struct {
	Name   string
	Pos    Position
	Params []*Param
	Value  string
}

// A Param represents a named list of values attached to a property
type Param struct {
	Name   string
	Values []ParamValue
}

// A ParamValue is a single parameter value. Quoted reports whether it was
// written as a quoted-string; Value never includes the quotes.
type ParamValue struct {
	Value  string
	Quoted bool
}

func (*Component) node() {}
func (*Property) node()  {}

// NewDocument creates an empty Document
func NewDocument() *Document {
	d := &Document{}
	d.Components = make([]*Component, 0)
	return d
}

// NewComponent creates an empty Component
func NewComponent(name string) *Component {
	c := &Component{Name: name}
	c.Children = make([]Node, 0)
	return c
}

// NewProperty creates an empty Property
func NewProperty(name string) *Property {
	p := &Property{Name: name}
	p.Params = make([]*Param, 0)
	return p
}

// NewParam creates an empty Param
func NewParam(name string) *Param {
	p := &Param{Name: name}
	p.Values = make([]ParamValue, 0)
	return p
}

// Properties returns the properties of c in declaration order.
func (c *Component) Properties() []*Property {
	var props []*Property
	for _, n := range c.Children {
		if p, ok := n.(*Property); ok {
			props = append(props, p)
		}
	}
	return props
}

// Components returns the nested components of c in declaration order.
func (c *Component) Components() []*Component {
	var comps []*Component
	for _, n := range c.Children {
		if sub, ok := n.(*Component); ok {
			comps = append(comps, sub)
		}
	}
	return comps
}

// Property returns the first property whose name matches, ignoring case, or
// nil.
func (c *Component) Property(name string) *Property {
	for _, n := range c.Children {
		if p, ok := n.(*Property); ok && strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// PropertiesNamed returns every property whose name matches, ignoring case.
func (c *Component) PropertiesNamed(name string) []*Property {
	var props []*Property
	for _, p := range c.Properties() {
		if strings.EqualFold(p.Name, name) {
			props = append(props, p)
		}
	}
	return props
}

// ComponentsNamed returns every nested component whose name matches, ignoring
// case.
func (c *Component) ComponentsNamed(name string) []*Component {
	var comps []*Component
	for _, sub := range c.Components() {
		if strings.EqualFold(sub.Name, name) {
			comps = append(comps, sub)
		}
	}
	return comps
}

// Param returns the first parameter whose name matches, ignoring case, or nil.
func (p *Property) Param(name string) *Param {
	for _, param := range p.Params {
		if strings.EqualFold(param.Name, name) {
			return param
		}
	}
	return nil
}

// Value returns the text of the first value, or "" if there is none.
func (p *Param) Value() string {
	if len(p.Values) == 0 {
		return ""
	}
	return p.Values[0].Value
}

// Strings returns the text of every value.
func (p *Param) Strings() []string {
	s := make([]string, 0, len(p.Values))
	for _, v := range p.Values {
		s = append(s, v.Value)
	}
	return s
}
