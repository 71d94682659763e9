// Package names implements the XML 1.0 (fifth edition) Name and Nmtoken
// productions and attribute value normalization.
package names

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var nameStartByteLUT = [utf8.RuneSelf]bool{
	':': true,
	'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true, 'G': true,
	'H': true, 'I': true, 'J': true, 'K': true, 'L': true, 'M': true, 'N': true,
	'O': true, 'P': true, 'Q': true, 'R': true, 'S': true, 'T': true, 'U': true,
	'V': true, 'W': true, 'X': true, 'Y': true, 'Z': true,
	'_': true,
	'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true, 'g': true,
	'h': true, 'i': true, 'j': true, 'k': true, 'l': true, 'm': true, 'n': true,
	'o': true, 'p': true, 'q': true, 'r': true, 's': true, 't': true, 'u': true,
	'v': true, 'w': true, 'x': true, 'y': true, 'z': true,
}

var nameStartTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0xC0, Hi: 0xD6, Stride: 1},
		{Lo: 0xD8, Hi: 0xF6, Stride: 1},
		{Lo: 0xF8, Hi: 0x2FF, Stride: 1},
		{Lo: 0x370, Hi: 0x37D, Stride: 1},
		{Lo: 0x37F, Hi: 0x1FFF, Stride: 1},
		{Lo: 0x200C, Hi: 0x200D, Stride: 1},
		{Lo: 0x2070, Hi: 0x218F, Stride: 1},
		{Lo: 0x2C00, Hi: 0x2FEF, Stride: 1},
		{Lo: 0x3001, Hi: 0xD7FF, Stride: 1},
		{Lo: 0xF900, Hi: 0xFDCF, Stride: 1},
		{Lo: 0xFDF0, Hi: 0xFFFD, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x10000, Hi: 0xEFFFF, Stride: 1},
	},
}

var nameCharTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0xB7, Hi: 0xB7, Stride: 1},
		{Lo: 0x300, Hi: 0x36F, Stride: 1},
		{Lo: 0x203F, Hi: 0x2040, Stride: 1},
	},
}

// IsNameStartRune reports whether r may begin a Name.
func IsNameStartRune(r rune) bool {
	if r < utf8.RuneSelf {
		return nameStartByteLUT[r]
	}
	return unicode.Is(nameStartTable, r)
}

// IsNameRune reports whether r may appear after the first rune of a Name.
func IsNameRune(r rune) bool {
	if r < utf8.RuneSelf {
		return nameStartByteLUT[r] || r == '-' || r == '.' || ('0' <= r && r <= '9')
	}
	return unicode.Is(nameStartTable, r) || unicode.Is(nameCharTable, r)
}

// IsName reports whether s matches the Name production.
func IsName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == utf8.RuneError {
			return false
		}
		if i == 0 {
			if !IsNameStartRune(r) {
				return false
			}
			continue
		}
		if !IsNameRune(r) {
			return false
		}
	}
	return true
}

// IsNmtoken reports whether s matches the Nmtoken production.
func IsNmtoken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == utf8.RuneError || !IsNameRune(r) {
			return false
		}
	}
	return true
}

// IsNames reports whether s is a space-separated list of Names.
// s must already be normalized.
func IsNames(s string) bool {
	return allFields(s, IsName)
}

// IsNmtokens reports whether s is a space-separated list of Nmtokens.
// s must already be normalized.
func IsNmtokens(s string) bool {
	return allFields(s, IsNmtoken)
}

func allFields(s string, pred func(string) bool) bool {
	if s == "" {
		return false
	}
	for _, field := range strings.Split(s, " ") {
		if !pred(field) {
			return false
		}
	}
	return true
}

// IsSpace reports whether r is XML white space.
func IsSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// IsSpaceByte reports whether b is XML white space.
func IsSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// IsWhitespace reports whether s consists only of XML white space.
func IsWhitespace(s string) bool {
	for i := 0; i < len(s); i++ {
		if !IsSpaceByte(s[i]) {
			return false
		}
	}
	return true
}

// Normalize applies the extra normalization required for tokenized
// attribute types: leading and trailing spaces are dropped and runs of
// white space collapse to a single space.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if IsSpaceByte(c) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Fields splits a normalized token list.
func Fields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, " ")
}
