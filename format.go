package ics

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented outline of doc to w, one node per line:
//
//	VCALENDAR 1:1
//	  VEVENT 2:1
//	    SUMMARY 3:1 = "Meeting"
//	      LANGUAGE = "en"
//
// The outline is meant for people and tests. It is not iCalendar.
func Fprint(w io.Writer, doc *Document) error {
	for _, c := range doc.Components {
		if err := formatComponent(w, c, 0); err != nil {
			return err
		}
	}
	return nil
}

func formatComponent(w io.Writer, c *Component, depth int) error {
	var buf bytes.Buffer
	indent(&buf, depth)
	buf.WriteString(c.Name)
	buf.WriteString(" ")
	formatPosition(&buf, c.Pos)
	buf.WriteString("\n")
	if _, err := buf.WriteTo(w); err != nil {
		return err
	}

	for _, n := range c.Children {
		var err error
		switch n := n.(type) {
		case *Component:
			err = formatComponent(w, n, depth+1)
		case *Property:
			err = formatProperty(w, n, depth+1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func formatProperty(w io.Writer, prop *Property, depth int) error {
	var buf bytes.Buffer
	indent(&buf, depth)
	buf.WriteString(prop.Name)
	buf.WriteString(" ")
	formatPosition(&buf, prop.Pos)
	buf.WriteString(" = ")
	buf.WriteString(strconv.Quote(prop.Value))
	buf.WriteString("\n")

	for _, param := range prop.Params {
		indent(&buf, depth+1)
		buf.WriteString(param.Name)
		buf.WriteString(" =")
		for i, v := range param.Values {
			if i > 0 {
				buf.WriteString(",")
			}
			buf.WriteString(" ")
			buf.WriteString(strconv.Quote(v.Value))
		}
		buf.WriteString("\n")
	}

	_, err := buf.WriteTo(w)
	return err
}

func formatPosition(buf *bytes.Buffer, pos Position) {
	buf.WriteString(strconv.Itoa(pos.Line))
	buf.WriteString(":")
	buf.WriteString(strconv.Itoa(pos.Column))
}

func indent(buf *bytes.Buffer, depth int) {
	buf.WriteString(strings.Repeat("  ", depth))
}
