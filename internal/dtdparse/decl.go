package dtdparse

import (
	"strings"

	"github.com/jacoelho/dtd/internal/model"
	"github.com/jacoelho/dtd/internal/names"
)

func (p *parser) parseElementDecl() error {
	p.advance(len("<!ELEMENT"))
	if err := p.requireSpace("after <!ELEMENT"); err != nil {
		return err
	}
	name, err := p.readName()
	if err != nil {
		return err
	}
	if err := p.requireSpace("after element type name " + name); err != nil {
		return err
	}
	decl := &model.ElementDecl{Name: name, Source: p.top().system}

	c, ok := p.peek()
	switch {
	case !ok:
		return p.errorf("content specification expected for element %s", name)
	case c == '(':
		p.advance(1)
		if _, err := p.skipSpace(); err != nil {
			return err
		}
		if p.hasPrefix("#PCDATA") {
			p.advance(len("#PCDATA"))
			mixed, err := p.parseMixed()
			if err != nil {
				return err
			}
			decl.Content = model.ContentMixed
			decl.Mixed = mixed
		} else {
			group, err := p.parseGroup()
			if err != nil {
				return err
			}
			decl.Content = model.ContentChildren
			decl.Model = group
		}
	default:
		keyword, err := p.readName()
		if err != nil {
			return err
		}
		switch keyword {
		case "EMPTY":
			decl.Content = model.ContentEmpty
		case "ANY":
			decl.Content = model.ContentAny
		default:
			return p.errorf("invalid content specification %s for element %s", keyword, name)
		}
	}

	if _, err := p.skipSpace(); err != nil {
		return err
	}
	if err := p.expect('>'); err != nil {
		return err
	}
	p.dtd.AddElement(decl)
	return nil
}

// parseMixed reads the rest of a mixed content declaration after #PCDATA.
func (p *parser) parseMixed() ([]string, error) {
	var mixed []string
	for {
		if _, err := p.skipSpace(); err != nil {
			return nil, err
		}
		c, ok := p.peek()
		if !ok {
			return nil, p.errorf("unterminated mixed content declaration")
		}
		switch c {
		case ')':
			p.advance(1)
			next, ok := p.peek()
			star := ok && next == '*'
			if star {
				p.advance(1)
			}
			if len(mixed) > 0 && !star {
				return nil, p.errorf("mixed content with element types must end with )*")
			}
			return mixed, nil
		case '|':
			p.advance(1)
			if _, err := p.skipSpace(); err != nil {
				return nil, err
			}
			name, err := p.readName()
			if err != nil {
				return nil, err
			}
			mixed = append(mixed, name)
		default:
			return nil, p.errorf("unexpected %q in mixed content declaration", c)
		}
	}
}

// parseGroup reads a choice or sequence whose opening parenthesis has been
// consumed.
func (p *parser) parseGroup() (*model.Particle, error) {
	var (
		children []*model.Particle
		sep      byte
	)
	for {
		if _, err := p.skipSpace(); err != nil {
			return nil, err
		}
		cp, err := p.parseContentParticle()
		if err != nil {
			return nil, err
		}
		children = append(children, cp)
		if _, err := p.skipSpace(); err != nil {
			return nil, err
		}
		c, ok := p.peek()
		if !ok {
			return nil, p.errorf("unterminated content model group")
		}
		if c == ')' {
			p.advance(1)
			break
		}
		if c != ',' && c != '|' {
			return nil, p.errorf("expected ',' '|' or ')' in content model, got %q", c)
		}
		if sep != 0 && sep != c {
			return nil, p.errorf("content model group mixes ',' and '|'")
		}
		sep = c
		p.advance(1)
	}
	group := &model.Particle{Kind: model.ParticleSequence, Children: children}
	if sep == '|' {
		group.Kind = model.ParticleChoice
	}
	group.Occurs = p.parseOccurs()
	return group, nil
}

func (p *parser) parseContentParticle() (*model.Particle, error) {
	c, ok := p.peek()
	if !ok {
		return nil, p.errorf("content particle expected")
	}
	if c == '(' {
		p.advance(1)
		return p.parseGroup()
	}
	name, err := p.readName()
	if err != nil {
		return nil, err
	}
	return &model.Particle{Kind: model.ParticleName, Name: name, Occurs: p.parseOccurs()}, nil
}

func (p *parser) parseOccurs() model.Occurs {
	c, ok := p.peek()
	if !ok {
		return model.OccursOnce
	}
	switch c {
	case '?':
		p.advance(1)
		return model.OccursOptional
	case '*':
		p.advance(1)
		return model.OccursZeroOrMore
	case '+':
		p.advance(1)
		return model.OccursOneOrMore
	default:
		return model.OccursOnce
	}
}

var attTypes = map[string]model.AttType{
	"CDATA":    model.AttCDATA,
	"ID":       model.AttID,
	"IDREF":    model.AttIDREF,
	"IDREFS":   model.AttIDREFS,
	"ENTITY":   model.AttENTITY,
	"ENTITIES": model.AttENTITIES,
	"NMTOKEN":  model.AttNMTOKEN,
	"NMTOKENS": model.AttNMTOKENS,
	"NOTATION": model.AttNOTATION,
}

func (p *parser) parseAttlistDecl() error {
	p.advance(len("<!ATTLIST"))
	if err := p.requireSpace("after <!ATTLIST"); err != nil {
		return err
	}
	element, err := p.readName()
	if err != nil {
		return err
	}
	list := p.dtd.AttList(element)
	for {
		saw, err := p.skipSpace()
		if err != nil {
			return err
		}
		c, ok := p.peek()
		if !ok {
			return p.errorf("unterminated attribute list for element %s", element)
		}
		if c == '>' {
			p.advance(1)
			return nil
		}
		if !saw {
			return p.errorf("space required before attribute definition in <!ATTLIST %s", element)
		}
		decl, err := p.parseAttDef(element)
		if err != nil {
			return err
		}
		if !list.Add(decl) {
			p.logger.Debug("attribute redefinition ignored", "element", element, "attribute", decl.Name)
		}
	}
}

func (p *parser) parseAttDef(element string) (*model.AttributeDecl, error) {
	name, err := p.readName()
	if err != nil {
		return nil, err
	}
	decl := &model.AttributeDecl{Element: element, Name: name}
	if err := p.requireSpace("after attribute name " + name); err != nil {
		return nil, err
	}

	if c, ok := p.peek(); ok && c == '(' {
		enum, err := p.parseEnumeration(false)
		if err != nil {
			return nil, err
		}
		decl.Type = model.AttEnumeration
		decl.Enum = enum
	} else {
		keyword, err := p.readName()
		if err != nil {
			return nil, err
		}
		typ, ok := attTypes[keyword]
		if !ok {
			return nil, p.errorf("unknown attribute type %s for %s", keyword, name)
		}
		decl.Type = typ
		if typ == model.AttNOTATION {
			if err := p.requireSpace("after NOTATION"); err != nil {
				return nil, err
			}
			enum, err := p.parseEnumeration(true)
			if err != nil {
				return nil, err
			}
			decl.Enum = enum
		}
	}

	if err := p.requireSpace("before default declaration of " + name); err != nil {
		return nil, err
	}
	if c, ok := p.peek(); ok && c == '#' {
		keyword, err := p.readKeyword()
		if err != nil {
			return nil, err
		}
		switch keyword {
		case "#REQUIRED":
			decl.Default = model.DefaultRequired
			return decl, nil
		case "#IMPLIED":
			decl.Default = model.DefaultImplied
			return decl, nil
		case "#FIXED":
			decl.Default = model.DefaultFixed
			if err := p.requireSpace("after #FIXED"); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf("invalid default declaration %s for %s", keyword, name)
		}
	} else {
		decl.Default = model.DefaultValue
	}
	value, err := p.readAttValue()
	if err != nil {
		return nil, err
	}
	decl.Value = value
	return decl, nil
}

// parseEnumeration reads "(a|b|c)". Notation types list names, enumerations
// list name tokens.
func (p *parser) parseEnumeration(notation bool) ([]string, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var values []string
	for {
		if _, err := p.skipSpace(); err != nil {
			return nil, err
		}
		var (
			value string
			err   error
		)
		if notation {
			value, err = p.readName()
		} else {
			value, err = p.readNmtoken()
		}
		if err != nil {
			return nil, err
		}
		values = append(values, value)
		if _, err := p.skipSpace(); err != nil {
			return nil, err
		}
		c, ok := p.peek()
		if !ok {
			return nil, p.errorf("unterminated enumeration")
		}
		p.advance(1)
		switch c {
		case ')':
			return values, nil
		case '|':
		default:
			return nil, p.errorf("unexpected %q in enumeration", c)
		}
	}
}

// readAttValue reads a default value literal. References are replaced and
// white space characters become spaces.
func (p *parser) readAttValue() (string, error) {
	raw, err := p.readQuoted()
	if err != nil {
		return "", err
	}
	if strings.ContainsRune(raw, '<') {
		return "", p.errorf("'<' not allowed in attribute value")
	}
	expanded, err := expandText(raw, p.dtd, p.cfg.MaxExpansion)
	if err != nil {
		return "", p.errorf("%v", err)
	}
	return strings.Map(func(r rune) rune {
		if names.IsSpace(r) {
			return ' '
		}
		return r
	}, expanded), nil
}

func (p *parser) parseEntityDecl() error {
	p.advance(len("<!ENTITY"))
	if err := p.requireSpace("after <!ENTITY"); err != nil {
		return err
	}
	decl := &model.EntityDecl{Base: p.top().system}
	if c, ok := p.peek(); ok && c == '%' {
		next, _ := p.peekAt(1)
		if !names.IsSpaceByte(next) {
			return p.errorf("space required after '%%' in parameter entity declaration")
		}
		p.advance(1)
		if err := p.requireSpace("after '%'"); err != nil {
			return err
		}
		decl.Parameter = true
	}
	name, err := p.readName()
	if err != nil {
		return err
	}
	decl.Name = name
	if err := p.requireSpace("after entity name " + name); err != nil {
		return err
	}

	if c, ok := p.peek(); ok && (c == '"' || c == '\'') {
		value, err := p.readEntityValue()
		if err != nil {
			return err
		}
		decl.Value = value
	} else {
		if err := p.parseExternalID(&decl.PublicID, &decl.SystemID, false); err != nil {
			return err
		}
		decl.External = true
		saw, err := p.skipSpace()
		if err != nil {
			return err
		}
		if saw && p.hasPrefix("NDATA") {
			if decl.Parameter {
				return p.errorf("parameter entity %s cannot be unparsed", name)
			}
			p.advance(len("NDATA"))
			if err := p.requireSpace("after NDATA"); err != nil {
				return err
			}
			notation, err := p.readName()
			if err != nil {
				return err
			}
			decl.Notation = notation
		}
	}

	if _, err := p.skipSpace(); err != nil {
		return err
	}
	if err := p.expect('>'); err != nil {
		return err
	}
	if !p.dtd.AddEntity(decl) {
		p.logger.Debug("entity redeclaration ignored", "entity", name, "parameter", decl.Parameter)
	}
	return nil
}

// parseExternalID reads SYSTEM "sys" or PUBLIC "pub" "sys". Notations may
// omit the system literal after a public identifier.
func (p *parser) parseExternalID(publicID, systemID *string, optionalSystem bool) error {
	keyword, err := p.readName()
	if err != nil {
		return err
	}
	switch keyword {
	case "SYSTEM":
		if err := p.requireSpace("after SYSTEM"); err != nil {
			return err
		}
		*systemID, err = p.readQuoted()
		return err
	case "PUBLIC":
		if err := p.requireSpace("after PUBLIC"); err != nil {
			return err
		}
		pub, err := p.readQuoted()
		if err != nil {
			return err
		}
		*publicID = names.Normalize(pub)
		if optionalSystem {
			saw, err := p.skipSpace()
			if err != nil {
				return err
			}
			if c, ok := p.peek(); !saw || !ok || (c != '"' && c != '\'') {
				return nil
			}
		} else if err := p.requireSpace("after public identifier"); err != nil {
			return err
		}
		*systemID, err = p.readQuoted()
		return err
	default:
		return p.errorf("expected SYSTEM or PUBLIC, got %s", keyword)
	}
}

// readEntityValue reads an entity value literal. Parameter entity and
// character references are replaced, general entity references are kept.
func (p *parser) readEntityValue() (string, error) {
	raw, err := p.readQuoted()
	if err != nil {
		return "", err
	}
	external := p.top().external
	var b strings.Builder
	if err := p.appendEntityValue(&b, raw, external); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p *parser) appendEntityValue(b *strings.Builder, raw string, external bool) error {
	for i := 0; i < len(raw); {
		switch raw[i] {
		case '%':
			name, n, ok := scanReference(raw[i+1:])
			if !ok {
				return p.errorf("malformed parameter entity reference in entity value")
			}
			if !external {
				return p.errorf("parameter entity reference %%%s; not allowed in entity value in internal subset", name)
			}
			text, decl, err := p.parameterText(name)
			if err != nil {
				return err
			}
			if decl != nil {
				p.active[name] = true
				err = p.appendEntityValue(b, text, true)
				delete(p.active, name)
				if err != nil {
					return err
				}
			}
			i += 1 + n
		case '&':
			if strings.HasPrefix(raw[i:], "&#") {
				r, n, err := scanCharRef(raw[i:])
				if err != nil {
					return p.errorf("%v", err)
				}
				b.WriteRune(r)
				i += n
				continue
			}
			name, n, ok := scanReference(raw[i+1:])
			if !ok {
				return p.errorf("malformed entity reference in entity value")
			}
			b.WriteString("&" + name + ";")
			i += 1 + n
		default:
			b.WriteByte(raw[i])
			i++
		}
	}
	return nil
}

func (p *parser) parseNotationDecl() error {
	p.advance(len("<!NOTATION"))
	if err := p.requireSpace("after <!NOTATION"); err != nil {
		return err
	}
	name, err := p.readName()
	if err != nil {
		return err
	}
	if err := p.requireSpace("after notation name " + name); err != nil {
		return err
	}
	decl := &model.NotationDecl{Name: name}
	if err := p.parseExternalID(&decl.PublicID, &decl.SystemID, true); err != nil {
		return err
	}
	if _, err := p.skipSpace(); err != nil {
		return err
	}
	if err := p.expect('>'); err != nil {
		return err
	}
	if !p.dtd.AddNotation(decl) {
		p.logger.Debug("notation redeclaration ignored", "notation", name)
	}
	return nil
}
