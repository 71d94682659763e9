package xmldoc

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Entity is a parsed general entity the document may reference.
type Entity struct {
	// Text is the replacement text. References inside it are expanded where
	// the entity is used, and markup in it becomes part of the tree.
	Text     string
	External bool
}

// encoding/xml reports each entity reference as its name between these
// noncharacters, and the parser substitutes the replacement text itself.
const (
	refOpen  = "\uFDD0"
	refClose = "\uFDD1"
)

func (p *parser) declare(entities map[string]Entity) {
	p.entities = entities
	p.refs = make(map[string]string, len(entities))
	for name := range entities {
		p.refs[name] = refOpen + name + refClose
	}
	p.dec.Entity = p.refs
}

// nextRef splits s around its first entity reference.
func (p *parser) nextRef(s string) (before, name, after string, ok bool) {
	for off := 0; ; {
		i := strings.Index(s[off:], refOpen)
		if i < 0 {
			return "", "", "", false
		}
		start := off + i + len(refOpen)
		if j := strings.Index(s[start:], refClose); j >= 0 {
			name = s[start : start+j]
			if _, known := p.entities[name]; known {
				return s[:off+i], name, s[start+j+len(refClose):], true
			}
		}
		off = start
	}
}

func (p *parser) charge(n int) error {
	p.expanded += n
	if p.expanded > p.maxExpansion {
		return p.fail("entity expansion exceeds limit of %d bytes", p.maxExpansion)
	}
	return nil
}

func (p *parser) enter(name string) error {
	if p.active[name] {
		return p.fail("entity '%s' references itself", name)
	}
	if err := p.charge(len(p.entities[name].Text)); err != nil {
		return err
	}
	p.active[name] = true
	return nil
}

// include splices the replacement text of an entity referenced in content
// into the current element.
func (p *parser) include(name string) error {
	p.top().HasMarkup = true
	if err := p.enter(name); err != nil {
		return err
	}
	defer delete(p.active, name)

	text := p.entities[name].Text
	if !strings.ContainsAny(text, "<&") {
		appendText(p.top(), text)
		return nil
	}

	floor := p.floor
	p.floor = len(p.stack)
	defer func() { p.floor = floor }()

	dec := p.fragment(text)
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.fail("in entity '%s': %s", name, decodeMsg(err))
		}
		if _, ok := tok.(xml.Directive); ok {
			return p.fail("declaration in entity '%s'", name)
		}
		if err := p.token(tok); err != nil {
			return err
		}
	}
	if len(p.stack) > p.floor {
		return p.fail("element <%s> in entity '%s' not closed", p.top().Name, name)
	}
	return nil
}

// expandAttr substitutes entity references in an attribute value.
func (p *parser) expandAttr(value string) (string, error) {
	if !strings.Contains(value, refOpen) {
		return value, nil
	}
	var b strings.Builder
	for {
		before, name, after, ok := p.nextRef(value)
		if !ok {
			break
		}
		b.WriteString(before)
		text, err := p.attrEntity(name)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		value = after
	}
	b.WriteString(value)
	return b.String(), nil
}

func (p *parser) attrEntity(name string) (string, error) {
	if p.entities[name].External {
		return "", p.fail("external entity '%s' referenced in attribute value", name)
	}
	if err := p.enter(name); err != nil {
		return "", err
	}
	defer delete(p.active, name)

	text := p.entities[name].Text
	if !strings.ContainsAny(text, "<&") {
		return text, nil
	}
	var b strings.Builder
	dec := p.fragment(text)
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", p.fail("in entity '%s': %s", name, decodeMsg(err))
		}
		data, ok := tok.(xml.CharData)
		if !ok {
			return "", p.fail("entity '%s' referenced in attribute value contains markup", name)
		}
		expanded, err := p.expandAttr(string(data))
		if err != nil {
			return "", err
		}
		b.WriteString(expanded)
	}
	return b.String(), nil
}

func (p *parser) fragment(text string) *xml.Decoder {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Entity = p.refs
	return dec
}

func decodeMsg(err error) string {
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Msg
	}
	return err.Error()
}
