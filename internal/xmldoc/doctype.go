package xmldoc

import (
	"fmt"
	"strings"

	"github.com/jacoelho/dtd/internal/names"
)

// Doctype is the document type declaration found in the prolog.
type Doctype struct {
	Name              string
	PublicID          string
	SystemID          string
	InternalSubset    string
	HasInternalSubset bool
	Line              int
}

// ParseDoctype parses the body of a <!DOCTYPE ...> directive as returned by
// encoding/xml, starting at the DOCTYPE keyword.
func ParseDoctype(directive string) (*Doctype, error) {
	s := &scanner{src: directive}
	if !s.consume("DOCTYPE") {
		return nil, fmt.Errorf("not a DOCTYPE declaration")
	}
	if !s.skipSpace() {
		return nil, fmt.Errorf("DOCTYPE: space required before name")
	}
	dt := &Doctype{Name: s.name()}
	if dt.Name == "" {
		return nil, fmt.Errorf("DOCTYPE: invalid name")
	}
	spaced := s.skipSpace()
	switch {
	case s.consume("SYSTEM"):
		if !s.skipSpace() {
			return nil, fmt.Errorf("DOCTYPE: space required after SYSTEM")
		}
		sys, err := s.literal()
		if err != nil {
			return nil, fmt.Errorf("DOCTYPE system literal: %w", err)
		}
		dt.SystemID = sys
	case s.consume("PUBLIC"):
		if !s.skipSpace() {
			return nil, fmt.Errorf("DOCTYPE: space required after PUBLIC")
		}
		pub, err := s.literal()
		if err != nil {
			return nil, fmt.Errorf("DOCTYPE public literal: %w", err)
		}
		if !s.skipSpace() {
			return nil, fmt.Errorf("DOCTYPE: space required before system literal")
		}
		sys, err := s.literal()
		if err != nil {
			return nil, fmt.Errorf("DOCTYPE system literal: %w", err)
		}
		dt.PublicID = normalizePubid(pub)
		dt.SystemID = sys
	default:
		if s.pos < len(s.src) && s.src[s.pos] != '[' && !spaced {
			return nil, fmt.Errorf("DOCTYPE: unexpected %q after name", s.src[s.pos])
		}
	}
	s.skipSpace()
	if s.pos == len(s.src) {
		return dt, nil
	}
	if s.src[s.pos] != '[' {
		return nil, fmt.Errorf("DOCTYPE: unexpected %q", s.src[s.pos:])
	}
	end := strings.LastIndexByte(s.src, ']')
	if end <= s.pos {
		return nil, fmt.Errorf("DOCTYPE: unterminated internal subset")
	}
	if rest := s.src[end+1:]; !names.IsWhitespace(rest) {
		return nil, fmt.Errorf("DOCTYPE: unexpected %q after internal subset", rest)
	}
	dt.InternalSubset = s.src[s.pos+1 : end]
	dt.HasInternalSubset = true
	return dt, nil
}

func normalizePubid(s string) string {
	return names.Normalize(s)
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) consume(word string) bool {
	if strings.HasPrefix(s.src[s.pos:], word) {
		s.pos += len(word)
		return true
	}
	return false
}

func (s *scanner) skipSpace() bool {
	start := s.pos
	for s.pos < len(s.src) && names.IsSpaceByte(s.src[s.pos]) {
		s.pos++
	}
	return s.pos > start
}

func (s *scanner) name() string {
	start := s.pos
	for i, r := range s.src[s.pos:] {
		if i == 0 && !names.IsNameStartRune(r) {
			return ""
		}
		if !names.IsNameRune(r) {
			break
		}
		s.pos = start + i + len(string(r))
	}
	return s.src[start:s.pos]
}

func (s *scanner) literal() (string, error) {
	if s.pos >= len(s.src) {
		return "", fmt.Errorf("missing literal")
	}
	quote := s.src[s.pos]
	if quote != '"' && quote != '\'' {
		return "", fmt.Errorf("literal must be quoted")
	}
	end := strings.IndexByte(s.src[s.pos+1:], quote)
	if end < 0 {
		return "", fmt.Errorf("unterminated literal")
	}
	value := s.src[s.pos+1 : s.pos+1+end]
	s.pos += end + 2
	return value, nil
}
