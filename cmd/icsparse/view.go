package main

import "github.com/luxifer/ics"

// nodeView is the YAML shape of a component or a property.
type nodeView struct {
	Component string      `yaml:"component,omitempty"`
	Property  string      `yaml:"property,omitempty"`
	Line      int         `yaml:"line"`
	Params    []paramView `yaml:"params,omitempty"`
	Value     *string     `yaml:"value,omitempty"`
	Children  []nodeView  `yaml:"children,omitempty"`
}

type paramView struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values,flow"`
}

func documentView(doc *ics.Document) []nodeView {
	views := make([]nodeView, 0, len(doc.Components))
	for _, c := range doc.Components {
		views = append(views, componentView(c))
	}
	return views
}

func componentView(c *ics.Component) nodeView {
	v := nodeView{Component: c.Name, Line: c.Pos.Line}
	for _, n := range c.Children {
		switch n := n.(type) {
		case *ics.Component:
			v.Children = append(v.Children, componentView(n))
		case *ics.Property:
			v.Children = append(v.Children, propertyView(n))
		}
	}
	return v
}

func propertyView(p *ics.Property) nodeView {
	value := p.Value
	v := nodeView{Property: p.Name, Line: p.Pos.Line, Value: &value}
	for _, param := range p.Params {
		v.Params = append(v.Params, paramView{Name: param.Name, Values: param.Strings()})
	}
	return v
}
