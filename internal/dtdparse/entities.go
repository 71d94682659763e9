package dtdparse

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jacoelho/dtd/internal/model"
	"github.com/jacoelho/dtd/internal/names"
	"github.com/jacoelho/dtd/internal/source"
	"github.com/jacoelho/dtd/internal/xmldoc"
)

var predefined = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"apos": "'",
	"quot": `"`,
}

// EntityTable returns the replacement text of every parsed general entity
// declared in d. External entities are loaded through cfg.Load; those that
// fail to load are left out, so a reference to them fails when the document
// is read.
func EntityTable(d *model.DTD, cfg Config) map[string]xmldoc.Entity {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	table := make(map[string]xmldoc.Entity, len(d.Entities))
	for name, decl := range d.Entities {
		if decl.Unparsed() {
			continue
		}
		if _, ok := predefined[name]; ok {
			continue
		}
		if !decl.External {
			table[name] = xmldoc.Entity{Text: decl.Value}
			continue
		}
		text, err := loadGeneralEntity(decl, cfg.Load)
		if err != nil {
			logger.Warn("general entity not loaded", "entity", name, "error", err)
			continue
		}
		table[name] = xmldoc.Entity{Text: text, External: true}
	}
	return table
}

// loadGeneralEntity returns the replacement text of an external parsed
// entity, or nothing when external loading is disabled.
func loadGeneralEntity(decl *model.EntityDecl, load LoadFunc) (string, error) {
	if load == nil {
		return "", nil
	}
	data, _, err := load(source.ResolveRequest{
		Kind:         source.ResolveGeneralEntity,
		PublicID:     decl.PublicID,
		SystemID:     decl.SystemID,
		BaseSystemID: decl.Base,
	})
	if err != nil {
		return "", fmt.Errorf("load entity '%s': %w", decl.Name, err)
	}
	decoded, err := xmldoc.DecodeEntity(data)
	if err != nil {
		return "", fmt.Errorf("decode entity '%s': %w", decl.Name, err)
	}
	return string(stripTextDecl(decoded)), nil
}

type expander struct {
	dtd    *model.DTD
	active map[string]bool
	limit  int
	used   int
}

// expandText replaces references in an attribute value literal.
func expandText(raw string, d *model.DTD, limit int) (string, error) {
	e := &expander{dtd: d, limit: limit}
	return e.expand(raw)
}

func (e *expander) expand(raw string) (string, error) {
	if !strings.ContainsRune(raw, '&') {
		return raw, nil
	}
	var b strings.Builder
	for i := 0; i < len(raw); {
		if raw[i] != '&' {
			b.WriteByte(raw[i])
			i++
			continue
		}
		if strings.HasPrefix(raw[i:], "&#") {
			r, n, err := scanCharRef(raw[i:])
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += n
			continue
		}
		name, n, ok := scanReference(raw[i+1:])
		if !ok {
			return "", fmt.Errorf("malformed entity reference")
		}
		i += 1 + n
		if text, ok := predefined[name]; ok {
			b.WriteString(text)
			continue
		}
		decl, ok := e.dtd.Entities[name]
		if !ok {
			return "", fmt.Errorf("entity '%s' not declared", name)
		}
		text, err := e.entity(decl)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func (e *expander) entity(decl *model.EntityDecl) (string, error) {
	switch {
	case decl.Unparsed():
		return "", fmt.Errorf("reference to unparsed entity '%s'", decl.Name)
	case decl.External:
		return "", fmt.Errorf("external entity '%s' referenced in attribute value", decl.Name)
	case e.active[decl.Name]:
		return "", fmt.Errorf("entity '%s' references itself", decl.Name)
	}
	if e.active == nil {
		e.active = make(map[string]bool)
	}
	e.active[decl.Name] = true
	defer delete(e.active, decl.Name)

	e.used += len(decl.Value)
	if e.used > e.limit {
		return "", fmt.Errorf("entity expansion exceeds limit of %d bytes", e.limit)
	}
	return e.expand(decl.Value)
}

// scanReference reads "Name;" at the start of s and returns the name and the
// number of bytes consumed.
func scanReference(s string) (string, int, bool) {
	end := strings.IndexByte(s, ';')
	if end <= 0 {
		return "", 0, false
	}
	name := s[:end]
	if !names.IsName(name) {
		return "", 0, false
	}
	return name, end + 1, true
}

// scanCharRef decodes "&#N;" or "&#xH;" at the start of s.
func scanCharRef(s string) (rune, int, error) {
	end := strings.IndexByte(s, ';')
	if end < 0 {
		return 0, 0, fmt.Errorf("unterminated character reference")
	}
	body := s[2:end]
	base := 10
	if strings.HasPrefix(body, "x") {
		body = body[1:]
		base = 16
	}
	n, err := strconv.ParseUint(body, base, 32)
	if err != nil || body == "" {
		return 0, 0, fmt.Errorf("invalid character reference %s", s[:end+1])
	}
	r := rune(n)
	if !isChar(r) {
		return 0, 0, fmt.Errorf("character reference %s is not a legal XML character", s[:end+1])
	}
	return r, end + 1, nil
}

func isChar(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	default:
		return false
	}
}
