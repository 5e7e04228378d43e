package ics

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Unescape decodes the backslash escapes of a TEXT value: \n and \N become a
// line feed, \\ \; and \, stand for themselves. Any other escape, or a
// trailing backslash, is an error.
//
// The parser never unescapes; values are returned as written.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}

		i++
		if i == len(s) {
			return "", errors.New("text ends in a backslash")
		}

		switch c := s[i]; c {
		case 'n', 'N':
			b.WriteByte('\n')
		case '\\', ';', ',':
			b.WriteByte(c)
		default:
			r, _ := utf8.DecodeRuneInString(s[i:])
			return "", errors.Errorf("unexpected escape sequence \\%c", r)
		}
	}
	return b.String(), nil
}

// Text returns the value of p with TEXT escapes decoded.
func (p *Property) Text() (string, error) {
	s, err := Unescape(p.Value)
	if err != nil {
		return "", errors.WithMessagef(err, "property %s", p.Name)
	}
	return s, nil
}
