package xmldoc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jacoelho/dtd/internal/names"
)

const (
	defaultMaxDepth     = 256
	defaultMaxExpansion = 1 << 20
)

// Config controls document parsing.
type Config struct {
	// OnDoctype is called once the DOCTYPE has been read, before the root
	// element. It returns the general entities the document may reference.
	OnDoctype func(*Doctype) (map[string]Entity, error)
	MaxDepth  int

	// MaxExpansion caps the bytes of replacement text substituted for entity
	// references across the whole document.
	MaxExpansion int
}

// SyntaxError reports a document that is not well-formed.
type SyntaxError struct {
	Msg    string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

type parser struct {
	dec      *xml.Decoder
	doc      *Document
	stack    []*Element
	entities map[string]Entity
	refs     map[string]string
	active   map[string]bool

	maxDepth     int
	maxExpansion int
	expanded     int

	// floor is the stack depth below which end tags may not close elements,
	// set while the content of an entity is being read.
	floor      int
	rootClosed bool
}

// Parse builds the document tree from XML input.
func Parse(r io.Reader, cfg Config) (*Document, error) {
	if r == nil {
		return nil, fmt.Errorf("nil XML reader")
	}
	input, applied, err := sniff(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	decoder := xml.NewDecoder(input)
	decoder.CharsetReader = charsetReader(applied)

	p := &parser{
		dec:          decoder,
		doc:          &Document{},
		active:       make(map[string]bool),
		maxDepth:     cfg.MaxDepth,
		maxExpansion: cfg.MaxExpansion,
	}
	if p.maxDepth <= 0 {
		p.maxDepth = defaultMaxDepth
	}
	if p.maxExpansion <= 0 {
		p.maxExpansion = defaultMaxExpansion
	}

	for {
		tok, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				return nil, &SyntaxError{Msg: syntaxErr.Msg, Line: syntaxErr.Line}
			}
			return nil, fmt.Errorf("read document: %w", err)
		}
		if d, ok := tok.(xml.Directive); ok {
			if err := p.directive(string(d), cfg.OnDoctype); err != nil {
				return nil, err
			}
			continue
		}
		if err := p.token(tok); err != nil {
			return nil, err
		}
	}

	if top := p.top(); top != nil {
		return nil, p.fail("unexpected EOF: element <%s> not closed", top.Name)
	}
	if p.doc.Root == nil {
		return nil, p.fail("no root element")
	}
	return p.doc, nil
}

func (p *parser) fail(format string, args ...any) error {
	line, col := p.dec.InputPos()
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Line: line, Column: col}
}

func (p *parser) top() *Element {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) token(tok xml.Token) error {
	switch t := tok.(type) {
	case xml.StartElement:
		return p.startElement(t)
	case xml.EndElement:
		return p.endElement(t)
	case xml.CharData:
		return p.charData(string(t))
	case xml.Comment, xml.ProcInst:
		if top := p.top(); top != nil {
			top.HasMarkup = true
		}
	}
	return nil
}

func (p *parser) startElement(t xml.StartElement) error {
	if p.rootClosed {
		return p.fail("unexpected element %s after document end", qualified(t.Name))
	}
	if len(p.stack) >= p.maxDepth {
		return p.fail("element nesting exceeds limit %d", p.maxDepth)
	}
	line, col := p.dec.InputPos()
	elem := &Element{
		Name:   qualified(t.Name),
		Line:   line,
		Column: col,
	}
	attrs, err := p.convertAttrs(elem.Name, t.Attr)
	if err != nil {
		return err
	}
	elem.Attrs = attrs
	if parent := p.top(); parent != nil {
		parent.Content = append(parent.Content, Item{Kind: ElementItem, Element: elem})
		elem.Parent = parent
	} else {
		p.doc.Root = elem
	}
	p.stack = append(p.stack, elem)
	return nil
}

func (p *parser) endElement(t xml.EndElement) error {
	name := qualified(t.Name)
	top := p.top()
	if top == nil {
		return p.fail("unexpected end element </%s>", name)
	}
	if len(p.stack) <= p.floor {
		return p.fail("end element </%s> closes an element opened outside its entity", name)
	}
	if top.Name != name {
		return p.fail("element <%s> closed by </%s>", top.Name, name)
	}
	p.stack = p.stack[:len(p.stack)-1]
	if len(p.stack) == 0 {
		p.rootClosed = true
	}
	return nil
}

func (p *parser) charData(text string) error {
	top := p.top()
	if top == nil {
		if !isIgnorableOutsideRoot(text) {
			return p.fail("unexpected character data outside root element")
		}
		return nil
	}
	for {
		before, name, after, ok := p.nextRef(text)
		if !ok {
			break
		}
		appendText(top, before)
		if err := p.include(name); err != nil {
			return err
		}
		text = after
	}
	appendText(top, text)
	return nil
}

func (p *parser) directive(body string, onDoctype func(*Doctype) (map[string]Entity, error)) error {
	if !strings.HasPrefix(body, "DOCTYPE") {
		return p.fail("unexpected declaration <!%s>", firstWord(body))
	}
	if p.doc.Root != nil {
		return p.fail("DOCTYPE declaration after document element")
	}
	if p.doc.Doctype != nil {
		return p.fail("duplicate DOCTYPE declaration")
	}
	dt, err := ParseDoctype(body)
	if err != nil {
		return p.fail("%v", err)
	}
	dt.Line, _ = p.dec.InputPos()
	p.doc.Doctype = dt
	if onDoctype == nil {
		return nil
	}
	entities, err := onDoctype(dt)
	if err != nil {
		return err
	}
	p.declare(entities)
	return nil
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func (p *parser) convertAttrs(elem string, xmlAttrs []xml.Attr) ([]Attr, error) {
	if len(xmlAttrs) == 0 {
		return nil, nil
	}
	attrs := make([]Attr, 0, len(xmlAttrs))
	seen := make(map[string]struct{}, len(xmlAttrs))
	for _, a := range xmlAttrs {
		name := qualified(a.Name)
		if _, ok := seen[name]; ok {
			return nil, p.fail("attribute %s redefined on element %s", name, elem)
		}
		seen[name] = struct{}{}
		value, err := p.expandAttr(a.Value)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Attr{Name: name, Value: normalizeCDATA(value)})
	}
	return attrs, nil
}

// normalizeCDATA maps each white space character to a space, as attribute
// value normalization requires for every attribute type.
func normalizeCDATA(s string) string {
	if !strings.ContainsAny(s, "\t\n\r") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if names.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

func appendText(parent *Element, text string) {
	if text == "" {
		return
	}
	if n := len(parent.Content); n > 0 && parent.Content[n-1].Kind == TextItem {
		parent.Content[n-1].Text += text
		return
	}
	parent.Content = append(parent.Content, Item{Kind: TextItem, Text: text})
}

func isIgnorableOutsideRoot(data string) bool {
	for _, r := range data {
		if r == '\uFEFF' {
			continue
		}
		if !names.IsSpace(r) {
			return false
		}
	}
	return true
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
