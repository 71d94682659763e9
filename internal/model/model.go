// Package model holds the parsed declarations of a document type definition.
package model

import "strings"

// ContentKind identifies the content specification of an element type.
type ContentKind uint8

const (
	ContentEmpty ContentKind = iota
	ContentAny
	ContentMixed
	ContentChildren
)

func (k ContentKind) String() string {
	switch k {
	case ContentEmpty:
		return "EMPTY"
	case ContentAny:
		return "ANY"
	case ContentMixed:
		return "mixed"
	case ContentChildren:
		return "children"
	default:
		return "unknown"
	}
}

// Occurs is the occurrence indicator attached to a content particle.
type Occurs uint8

const (
	OccursOnce Occurs = iota
	OccursOptional
	OccursZeroOrMore
	OccursOneOrMore
)

// Suffix returns the DTD occurrence indicator, or "" for exactly once.
func (o Occurs) Suffix() string {
	switch o {
	case OccursOptional:
		return "?"
	case OccursZeroOrMore:
		return "*"
	case OccursOneOrMore:
		return "+"
	default:
		return ""
	}
}

// ParticleKind distinguishes element names from groups.
type ParticleKind uint8

const (
	ParticleName ParticleKind = iota
	ParticleSequence
	ParticleChoice
)

// Particle is a node of a children content model.
type Particle struct {
	Name     string
	Children []*Particle
	Kind     ParticleKind
	Occurs   Occurs
}

// String renders the particle in DTD syntax.
func (p *Particle) String() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	p.write(&b)
	return b.String()
}

func (p *Particle) write(b *strings.Builder) {
	switch p.Kind {
	case ParticleName:
		b.WriteString(p.Name)
	default:
		sep := ","
		if p.Kind == ParticleChoice {
			sep = "|"
		}
		b.WriteByte('(')
		for i, child := range p.Children {
			if i > 0 {
				b.WriteString(sep)
			}
			child.write(b)
		}
		b.WriteByte(')')
	}
	b.WriteString(p.Occurs.Suffix())
}

// ElementDecl is an <!ELEMENT> declaration.
type ElementDecl struct {
	Model   *Particle
	Name    string
	Source  string
	Mixed   []string
	Content ContentKind
}

// ContentString renders the content specification in DTD syntax.
func (d *ElementDecl) ContentString() string {
	switch d.Content {
	case ContentEmpty:
		return "EMPTY"
	case ContentAny:
		return "ANY"
	case ContentMixed:
		if len(d.Mixed) == 0 {
			return "(#PCDATA)"
		}
		return "(#PCDATA|" + strings.Join(d.Mixed, "|") + ")*"
	default:
		return d.Model.String()
	}
}

// AttType is the declared type of an attribute.
type AttType uint8

const (
	AttCDATA AttType = iota
	AttID
	AttIDREF
	AttIDREFS
	AttENTITY
	AttENTITIES
	AttNMTOKEN
	AttNMTOKENS
	AttNOTATION
	AttEnumeration
)

func (t AttType) String() string {
	switch t {
	case AttCDATA:
		return "CDATA"
	case AttID:
		return "ID"
	case AttIDREF:
		return "IDREF"
	case AttIDREFS:
		return "IDREFS"
	case AttENTITY:
		return "ENTITY"
	case AttENTITIES:
		return "ENTITIES"
	case AttNMTOKEN:
		return "NMTOKEN"
	case AttNMTOKENS:
		return "NMTOKENS"
	case AttNOTATION:
		return "NOTATION"
	case AttEnumeration:
		return "enumeration"
	default:
		return "unknown"
	}
}

// Tokenized reports whether values of this type are whitespace-normalized.
func (t AttType) Tokenized() bool {
	return t != AttCDATA
}

// DefaultKind is the default declaration of an attribute.
type DefaultKind uint8

const (
	DefaultImplied DefaultKind = iota
	DefaultRequired
	DefaultFixed
	DefaultValue
)

// AttributeDecl is a single attribute definition from an <!ATTLIST>.
type AttributeDecl struct {
	Element string
	Name    string
	Value   string
	Enum    []string
	Type    AttType
	Default DefaultKind
}

// HasDefault reports whether the declaration supplies a value when the
// attribute is absent.
func (a *AttributeDecl) HasDefault() bool {
	return a.Default == DefaultFixed || a.Default == DefaultValue
}

// AttList collects the attribute definitions of one element type.
// The first definition of an attribute name binds; later ones are ignored.
type AttList struct {
	byName  map[string]*AttributeDecl
	Element string
	Attrs   []*AttributeDecl
}

// NewAttList returns an empty attribute list for element.
func NewAttList(element string) *AttList {
	return &AttList{Element: element, byName: make(map[string]*AttributeDecl)}
}

// Add records decl unless the attribute is already defined.
func (l *AttList) Add(decl *AttributeDecl) bool {
	if _, ok := l.byName[decl.Name]; ok {
		return false
	}
	l.byName[decl.Name] = decl
	l.Attrs = append(l.Attrs, decl)
	return true
}

// Lookup returns the binding definition of name.
func (l *AttList) Lookup(name string) (*AttributeDecl, bool) {
	if l == nil {
		return nil, false
	}
	decl, ok := l.byName[name]
	return decl, ok
}

// EntityDecl is a general or parameter <!ENTITY> declaration.
type EntityDecl struct {
	Name      string
	Value     string
	PublicID  string
	SystemID  string
	Notation  string
	Base      string
	Resolved  string // canonical system ID once loaded
	Parameter bool
	External  bool
}

// Unparsed reports whether the entity carries an NDATA notation.
func (e *EntityDecl) Unparsed() bool {
	return e.Notation != ""
}

// NotationDecl is a <!NOTATION> declaration.
type NotationDecl struct {
	Name     string
	PublicID string
	SystemID string
}

// DTD is the merged internal and external subset of a document.
type DTD struct {
	Elements          map[string]*ElementDecl
	Attlists          map[string]*AttList
	Entities          map[string]*EntityDecl
	ParamEntities     map[string]*EntityDecl
	Notations         map[string]*NotationDecl
	Name              string
	PublicID          string
	SystemID          string
	ElementOrder      []string
	AttlistOrder      []string
	UnparsedOrder     []string
	DuplicateElements []*ElementDecl
}

// New returns an empty DTD for a document type name.
func New(name string) *DTD {
	return &DTD{
		Name:          name,
		Elements:      make(map[string]*ElementDecl),
		Attlists:      make(map[string]*AttList),
		Entities:      make(map[string]*EntityDecl),
		ParamEntities: make(map[string]*EntityDecl),
		Notations:     make(map[string]*NotationDecl),
	}
}

// AddElement records decl. A repeated declaration is kept aside for the
// unique-declaration check and does not replace the first one.
func (d *DTD) AddElement(decl *ElementDecl) {
	if _, ok := d.Elements[decl.Name]; ok {
		d.DuplicateElements = append(d.DuplicateElements, decl)
		return
	}
	d.Elements[decl.Name] = decl
	d.ElementOrder = append(d.ElementOrder, decl.Name)
}

// AttList returns the attribute list of element, creating it if needed.
func (d *DTD) AttList(element string) *AttList {
	if list, ok := d.Attlists[element]; ok {
		return list
	}
	list := NewAttList(element)
	d.Attlists[element] = list
	d.AttlistOrder = append(d.AttlistOrder, element)
	return list
}

// AddEntity records decl unless an entity of the same name and class exists.
func (d *DTD) AddEntity(decl *EntityDecl) bool {
	table := d.Entities
	if decl.Parameter {
		table = d.ParamEntities
	}
	if _, ok := table[decl.Name]; ok {
		return false
	}
	table[decl.Name] = decl
	if !decl.Parameter && decl.Unparsed() {
		d.UnparsedOrder = append(d.UnparsedOrder, decl.Name)
	}
	return true
}

// AddNotation records decl unless the notation is already declared.
func (d *DTD) AddNotation(decl *NotationDecl) bool {
	if _, ok := d.Notations[decl.Name]; ok {
		return false
	}
	d.Notations[decl.Name] = decl
	return true
}
