package ics

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var calendarList = []string{"fixtures/example.ics", "fixtures/with-alarm.ics", "fixtures/with-timezone.ics"}

func TestParse(t *testing.T) {
	for _, filename := range calendarList {
		file, err := os.Open(filename)
		if err != nil {
			t.Fatal(err)
		}
		doc, err := Parse(file)
		file.Close()

		if err != nil {
			t.Errorf("%s: %v", filename, err)
			continue
		}

		if len(doc.Components) != 1 || doc.Components[0].Name != "VCALENDAR" {
			t.Errorf("%s: want a single VCALENDAR, got %d components", filename, len(doc.Components))
		}
	}
}

func TestParseFixtureContent(t *testing.T) {
	file, err := os.Open("fixtures/example.ics")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	doc, err := Parse(file)
	if err != nil {
		t.Fatal(err)
	}

	cal := doc.Components[0]
	if v := cal.Property("version"); v == nil || v.Value != "2.0" {
		t.Errorf("VERSION = %+v, want 2.0", v)
	}

	if n := len(cal.PropertiesNamed("prodid")); n != 1 {
		t.Errorf("got %d PRODID properties, want 1", n)
	}

	events := cal.ComponentsNamed("vevent")
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	attendee := events[0].Property("ATTENDEE")
	if attendee == nil {
		t.Fatal("ATTENDEE not found")
	}

	if attendee.Value != "mailto:jdoe@example.com" {
		t.Errorf("ATTENDEE value = %q", attendee.Value)
	}

	var names []string
	for _, param := range attendee.Params {
		names = append(names, param.Name)
	}
	if want := []string{"ROLE", "DELEGATED-FROM", "PARTSTAT", "CN"}; !reflect.DeepEqual(names, want) {
		t.Errorf("ATTENDEE params = %v, want %v", names, want)
	}

	from := attendee.Param("delegated-from")
	if want := []ParamValue{{Value: "mailto:bob@example.com", Quoted: true}}; !reflect.DeepEqual(from.Values, want) {
		t.Errorf("DELEGATED-FROM = %+v, want %+v", from.Values, want)
	}

	if cn := attendee.Param("CN").Value(); cn != "Jane Doe" {
		t.Errorf("CN = %q, want %q", cn, "Jane Doe")
	}

	if attendee.Pos.Line != 18 || attendee.Pos.Column != 1 {
		t.Errorf("ATTENDEE at %+v, want line 18, column 1", attendee.Pos)
	}
}

func TestParseNested(t *testing.T) {
	input := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nSUMMARY:Meeting\r\n with Bob\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

	doc, err := ParseString(input)
	if err != nil {
		t.Fatal(err)
	}

	want := &Document{
		Components: []*Component{
			{
				Name: "VCALENDAR",
				Pos:  Position{Offset: 0, Line: 1, Column: 1},
				Children: []Node{
					&Component{
						Name: "VEVENT",
						Pos:  Position{Offset: 17, Line: 2, Column: 1},
						Children: []Node{
							&Property{
								Name:   "SUMMARY",
								Pos:    Position{Offset: 31, Line: 3, Column: 1},
								Params: []*Param{},
								Value:  "Meetingwith Bob",
							},
						},
					},
				},
			},
		},
	}

	if !reflect.DeepEqual(doc, want) {
		t.Errorf("ParseString() = %s, want %s", outline(t, doc), outline(t, want))
	}
}

func TestParseDeterministic(t *testing.T) {
	input, err := os.ReadFile("fixtures/with-alarm.ics")
	if err != nil {
		t.Fatal(err)
	}

	first, err := ParseBytes(input)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		again, err := ParseBytes(input)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("parse %d differs from the first one", i+2)
		}
	}
}

var foldedPairs = []struct {
	plain, folded string
}{
	{
		"BEGIN:VEVENT\r\nEND:VEVENT\r\n",
		"BEGIN:VEV\r\n ENT\r\nEND:VEVENT\r\n",
	},
	{
		"BEGIN:VEVENT\r\nEND:VEVENT\r\n",
		"BEGIN:VEVENT\r\nEND:VE\r\n\tVENT\r\n",
	},
	{
		"BEGIN:A\r\nSUMMARY:Meeting\r\nEND:A\r\n",
		"BEGIN:A\r\nSUM\r\n  MARY:Meet\r\n\r\n ing\r\nEND:A\r\n",
	},
	{
		"BEGIN:A\r\nX;CN=Jane Doe:v\r\nEND:A\r\n",
		"BEGIN:A\r\nX;C\r\n N=Ja\r\n ne Doe:v\r\nEND:A\r\n",
	},
	{
		"BEGIN:A\r\nX;DIR=\"ldap://example.com\":v\r\nEND:A\r\n",
		"BEGIN:A\r\nX;DIR=\"ldap:\r\n //example.com\":v\r\nEND:A\r\n",
	},
	{
		"BEGIN:A\r\nX;P=a,b:v\r\nEND:A\r\n",
		"BEGIN:A\r\nX;P=a\r\n ,\r\n b:v\r\nEND:A\r\n",
	},
	{
		"BEGIN:A\r\nX:v\r\nEND:A\r\n",
		"BEGIN:A\r\nX\r\n :v\r\nEND:A\r\n",
	},
}

func TestFoldIdempotence(t *testing.T) {
	for _, test := range foldedPairs {
		plain, err := ParseString(test.plain)
		if err != nil {
			t.Errorf("ParseString(%q) = %v", test.plain, err)
			continue
		}

		folded, err := ParseString(test.folded)
		if err != nil {
			t.Errorf("ParseString(%q) = %v", test.folded, err)
			continue
		}

		clearPositions(plain)
		clearPositions(folded)
		if !reflect.DeepEqual(plain, folded) {
			t.Errorf("ParseString(%q) = %s, want %s", test.folded, outline(t, folded), outline(t, plain))
		}
	}
}

func TestParseParamValues(t *testing.T) {
	tests := []struct {
		line string
		want []ParamValue
	}{
		{`X;P="abc":v`, []ParamValue{{Value: "abc", Quoted: true}}},
		{`X;P=abc:v`, []ParamValue{{Value: "abc"}}},
		{`X;P=:v`, []ParamValue{{Value: ""}}},
		{`X;P="":v`, []ParamValue{{Value: "", Quoted: true}}},
		{`X;P="a:b;c",d,"e`+"`"+`f":v`, []ParamValue{
			{Value: "a:b;c", Quoted: true},
			{Value: "d"},
			{Value: "e`f", Quoted: true},
		}},
		{`X;P = "a" , "b":v`, []ParamValue{
			{Value: "a", Quoted: true},
			{Value: "b", Quoted: true},
		}},
	}

	for _, test := range tests {
		input := "BEGIN:A\r\n" + test.line + "\r\nEND:A\r\n"
		doc, err := ParseString(input)
		if err != nil {
			t.Errorf("ParseString(%q) = %v", test.line, err)
			continue
		}

		prop := doc.Components[0].Properties()[0]
		if len(prop.Params) != 1 {
			t.Errorf("%q: got %d params, want 1", test.line, len(prop.Params))
			continue
		}
		if got := prop.Params[0].Values; !reflect.DeepEqual(got, test.want) {
			t.Errorf("%q: values = %+v, want %+v", test.line, got, test.want)
		}
		if prop.Value != "v" {
			t.Errorf("%q: value = %q, want %q", test.line, prop.Value, "v")
		}
	}
}

func TestParseRawBytes(t *testing.T) {
	input := "BEGIN:A\r\nX;P=\xff\xfe;Q=\"\xc3\":v\xff\r\nEND:A\r\n"
	doc, err := ParseString(input)
	if err != nil {
		t.Fatalf("ParseString(%q) = %v", input, err)
	}

	prop := doc.Components[0].Properties()[0]
	want := []*Param{
		{Name: "P", Values: []ParamValue{{Value: "\xff\xfe"}}},
		{Name: "Q", Values: []ParamValue{{Value: "\xc3", Quoted: true}}},
	}
	if !reflect.DeepEqual(prop.Params, want) {
		t.Errorf("params = %+v, want %+v", prop.Params, want)
	}
	if prop.Value != "v\xff" {
		t.Errorf("value = %q, want %q", prop.Value, "v\xff")
	}
}

func TestParseErrorFoundRunes(t *testing.T) {
	// The line after the NUL is cut at twenty bytes, inside the tenth rune.
	input := "BEGIN:A\r\nX;P=a\x00" + strings.Repeat("\u00e9", 15) + "\r\nEND:A\r\n"
	_, err := ParseString(input)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("ParseString() = %v, want a *ParseError", err)
	}
	if !utf8.ValidString(perr.Found) {
		t.Errorf("Found = %q, not valid UTF-8", perr.Found)
	}
	if !utf8.ValidString(perr.Error()) {
		t.Errorf("Error() = %q, not valid UTF-8", perr.Error())
	}
}

func TestParseConcurrent(t *testing.T) {
	t.Parallel()

	inputs := make([][]byte, len(calendarList))
	wants := make([]*Document, len(calendarList))
	for i, filename := range calendarList {
		data, err := os.ReadFile(filename)
		if err != nil {
			t.Fatal(err)
		}
		inputs[i] = data
		if wants[i], err = ParseBytes(data); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan string, 8*len(inputs))
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, data := range inputs {
				doc, err := ParseBytes(data)
				if err != nil {
					errs <- calendarList[i] + ": " + err.Error()
					continue
				}
				if !reflect.DeepEqual(doc, wants[i]) {
					errs <- calendarList[i] + ": result differs from the serial parse"
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}

func TestParseProperties(t *testing.T) {
	input := "BEGIN:A\r\n" +
		"BEGINNING:one\r\n" +
		"ENDING:two\r\n" +
		"ORGANIZER;CN=Foo:mailto:foo@example.org\r\n" +
		"DESCRIPTION:\r\n" +
		"X-EMPTY-PADDING: leading space\r\n" +
		"RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=-1SU\r\n" +
		"END:A\r\n"

	doc, err := ParseString(input)
	if err != nil {
		t.Fatal(err)
	}

	want := []struct{ name, value string }{
		{"BEGINNING", "one"},
		{"ENDING", "two"},
		{"ORGANIZER", "mailto:foo@example.org"},
		{"DESCRIPTION", ""},
		{"X-EMPTY-PADDING", " leading space"},
		{"RRULE", "FREQ=YEARLY;BYMONTH=3;BYDAY=-1SU"},
	}

	props := doc.Components[0].Properties()
	if len(props) != len(want) {
		t.Fatalf("got %d properties, want %d", len(props), len(want))
	}
	for i, prop := range props {
		if prop.Name != want[i].name || prop.Value != want[i].value {
			t.Errorf("property %d = %s:%q, want %s:%q", i, prop.Name, prop.Value, want[i].name, want[i].value)
		}
	}
}

func TestParseChildrenOrder(t *testing.T) {
	input := "BEGIN:VCALENDAR\r\n" +
		"A:1\r\n" +
		"BEGIN:VTODO\r\nEND:VTODO\r\n" +
		"B:2\r\n" +
		"BEGIN:VEVENT\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n" +
		"BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"

	doc, err := ParseString(input)
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Components) != 2 {
		t.Fatalf("got %d top-level components, want 2", len(doc.Components))
	}

	var order []string
	for _, n := range doc.Components[0].Children {
		switch n := n.(type) {
		case *Component:
			order = append(order, "component "+n.Name)
		case *Property:
			order = append(order, "property "+n.Name)
		}
	}

	want := []string{"property A", "component VTODO", "property B", "component VEVENT"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("children = %v, want %v", order, want)
	}
}

func TestParseLenientInput(t *testing.T) {
	inputs := []string{
		"",
		"\r\n\r\n",
		"BEGIN:A\r\nEND:A",
		"BEGIN:A\nX:1\nEND:A\n",
		"BEGIN:A\rX:1\rEND:A\r",
		"\r\nBEGIN:A\r\n\r\nX:1\r\n\r\n\r\nEND:A\r\n\r\n",
		"begin:vevent\r\nEnd:VEVENT\r\n",
		"BEGIN: A \r\nX ;P=a:1\r\nEND: a\r\n",
	}

	for _, input := range inputs {
		if _, err := ParseString(input); err != nil {
			t.Errorf("ParseString(%q) = %v", input, err)
		}
	}
}

var errorTests = []struct {
	input        string
	kind         ErrorKind
	line, column int
	expected     []string
}{
	{
		input: "BEGIN:VEVENT\r\nEND:VTODO\r\n",
		kind:  KindStructuralMismatch, line: 2, column: 5,
	},
	{
		input: "BEGIN:A\r\nBEGIN:B\r\nEND:A\r\nEND:B\r\n",
		kind:  KindStructuralMismatch, line: 3, column: 5,
	},
	{
		input: "BEGIN:VEVENT\r\n",
		kind:  KindUnexpectedEOF, line: 2, column: 1,
		expected: []string{"BEGIN:", "END:", "property name"},
	},
	{
		input: "BEGIN:A\r\nBEGIN:B\r\nX:1\r\nEND:B\r\n",
		kind:  KindUnexpectedEOF, line: 5, column: 1,
		expected: []string{"BEGIN:", "END:", "property name"},
	},
	{
		input: "BEGIN:A\r\nSUMMARY\r\nEND:A\r\n",
		kind:  KindUnexpectedToken, line: 2, column: 8,
		expected: []string{`":"`, `";"`},
	},
	{
		input: "BEGIN:A\r\nX;P=a\"b:v\r\nEND:A\r\n",
		kind:  KindUnexpectedToken, line: 2, column: 6,
		expected: []string{`","`, `":"`, `";"`},
	},
	{
		input: "BEGIN:A\r\nX;=a:v\r\nEND:A\r\n",
		kind:  KindUnexpectedToken, line: 2, column: 3,
		expected: []string{"parameter name"},
	},
	{
		input: "BEGIN:A\r\nX;P:v\r\nEND:A\r\n",
		kind:  KindUnexpectedToken, line: 2, column: 4,
		expected: []string{`"="`},
	},
	{
		input: "BEGIN:A\r\nX;P=\"abc\r\nEND:A\r\n",
		kind:  KindUnterminatedQuote, line: 2, column: 9,
		expected: []string{"closing quote"},
	},
	{
		input: "BEGIN:A\r\nX;P=\"abc",
		kind:  KindUnterminatedQuote, line: 2, column: 9,
		expected: []string{"closing quote"},
	},
	{
		input: "BEGIN:A\r\nEND:A\r\nFOO:bar\r\n",
		kind:  KindTrailingContent, line: 3, column: 1,
		expected: []string{"BEGIN:"},
	},
	{
		input: "FOO:bar\r\n",
		kind:  KindUnexpectedToken, line: 1, column: 1,
		expected: []string{"BEGIN:"},
	},
	{
		input: "BEGIN:A\r\nBEGIN;X=1:v\r\nEND:A\r\n",
		kind:  KindUnexpectedToken, line: 2, column: 1,
		expected: []string{"BEGIN:", "END:", "property name"},
	},
	{
		input: "BEGIN:A\r\nEND:\r\n",
		kind:  KindUnexpectedToken, line: 2, column: 5,
		expected: []string{"component name"},
	},
	{
		input: "BEGIN:\r\n",
		kind:  KindUnexpectedToken, line: 1, column: 7,
		expected: []string{"component name"},
	},
	{
		input: "BEGIN:A B\r\nEND:A\r\n",
		kind:  KindUnexpectedToken, line: 1, column: 9,
		expected: []string{"newline"},
	},
	{
		input: "BEGIN:A\r\nEND:A;x\r\n",
		kind:  KindUnexpectedToken, line: 2, column: 6,
		expected: []string{"newline"},
	},
}

func TestParseErrors(t *testing.T) {
	for _, test := range errorTests {
		_, err := ParseString(test.input)
		if err == nil {
			t.Errorf("ParseString(%q) succeeded, want %v", test.input, test.kind)
			continue
		}

		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("ParseString(%q) returned %T, want *ParseError", test.input, err)
			continue
		}

		if perr.Kind != test.kind {
			t.Errorf("ParseString(%q) kind = %v, want %v (%v)", test.input, perr.Kind, test.kind, err)
		}
		if perr.Pos.Line != test.line || perr.Pos.Column != test.column {
			t.Errorf("ParseString(%q) at line %d, column %d, want line %d, column %d",
				test.input, perr.Pos.Line, perr.Pos.Column, test.line, test.column)
		}
		if test.expected != nil && !reflect.DeepEqual(perr.Expected, test.expected) {
			t.Errorf("ParseString(%q) expected = %q, want %q", test.input, perr.Expected, test.expected)
		}
	}
}

func TestParseStructuralMismatch(t *testing.T) {
	_, err := ParseString("BEGIN:VEVENT\r\nEND:VTODO\r\n")

	if !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("ParseString() = %v, want ErrStructuralMismatch", err)
	}

	perr := err.(*ParseError)
	if perr.Begin != "VEVENT" || perr.End != "VTODO" {
		t.Errorf("mismatch between %q and %q, want VEVENT and VTODO", perr.Begin, perr.End)
	}
	if perr.Start.Line != 1 {
		t.Errorf("BEGIN at line %d, want 1", perr.Start.Line)
	}
}

func TestParseMaxDepth(t *testing.T) {
	nest := func(depth int) string {
		var b strings.Builder
		for i := 0; i < depth; i++ {
			b.WriteString("BEGIN:X\r\n")
		}
		for i := 0; i < depth; i++ {
			b.WriteString("END:X\r\n")
		}
		return b.String()
	}

	if _, err := ParseString(nest(3), MaxDepth(3)); err != nil {
		t.Errorf("depth 3 with limit 3: %v", err)
	}

	_, err := ParseString(nest(4), MaxDepth(3))
	if !errors.Is(err, ErrNestingTooDeep) {
		t.Fatalf("depth 4 with limit 3: %v, want ErrNestingTooDeep", err)
	}
	if perr := err.(*ParseError); perr.Pos.Line != 4 || perr.Limit != 3 {
		t.Errorf("got line %d, limit %d, want line 4, limit 3", perr.Pos.Line, perr.Limit)
	}

	if _, err := ParseString(nest(DefaultMaxDepth + 1)); !errors.Is(err, ErrNestingTooDeep) {
		t.Errorf("depth %d with default limit: %v, want ErrNestingTooDeep", DefaultMaxDepth+1, err)
	}

	if _, err := ParseString(nest(DefaultMaxDepth)); err != nil {
		t.Errorf("depth %d with default limit: %v", DefaultMaxDepth, err)
	}
}

func TestParseLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	_, err := ParseString("BEGIN:A\r\nBEGIN:B\r\nEND:B\r\nEND:A\r\n", WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}

	var begins []string
	for _, entry := range logs.FilterMessage("component begin").All() {
		begins = append(begins, entry.ContextMap()["name"].(string))
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(begins, want) {
		t.Errorf("component begin names = %q, want %q", begins, want)
	}
	if n := logs.FilterMessage("parse complete").Len(); n != 1 {
		t.Errorf("got %d parse complete entries, want 1", n)
	}

	core, logs = observer.New(zap.DebugLevel)
	if _, err = ParseString("BEGIN:A\r\n", WithLogger(zap.New(core))); err == nil {
		t.Fatal("ParseString() succeeded on an unterminated component")
	}
	if n := logs.FilterMessage("parse failed").Len(); n != 1 {
		t.Errorf("got %d parse failed entries, want 1", n)
	}

	// nil keeps the silent default
	if _, err = ParseString("BEGIN:A\r\nEND:A\r\n", WithLogger(nil)); err != nil {
		t.Error(err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestParseReadError(t *testing.T) {
	_, err := Parse(failingReader{})
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("Parse() = %v, want the read error", err)
	}
}

func clearPositions(doc *Document) {
	var reset func(c *Component)
	reset = func(c *Component) {
		c.Pos = Position{}
		for _, n := range c.Children {
			switch n := n.(type) {
			case *Component:
				reset(n)
			case *Property:
				n.Pos = Position{}
			}
		}
	}
	for _, c := range doc.Components {
		reset(c)
	}
}

func outline(t *testing.T, doc *Document) string {
	t.Helper()
	var b strings.Builder
	if err := Fprint(&b, doc); err != nil {
		t.Fatal(err)
	}
	return "\n" + b.String()
}
