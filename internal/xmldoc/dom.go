// Package xmldoc builds the minimal document tree used by DTD validation.
//
// Names are kept exactly as written in the document (prefix included), since
// DTDs declare qualified names rather than namespace-expanded ones.
package xmldoc

import (
	"strconv"
	"strings"

	"github.com/jacoelho/dtd/internal/names"
)

// ItemKind classifies the content items of an element.
type ItemKind uint8

const (
	// ElementItem is a child element.
	ElementItem ItemKind = iota
	// TextItem is a run of character data.
	TextItem
)

// Item is one piece of element content in document order.
type Item struct {
	Element *Element
	Text    string
	Kind    ItemKind
}

// Attr is an attribute as specified in the document.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of the parsed tree.
type Element struct {
	Parent  *Element
	Name    string
	Attrs   []Attr
	Content []Item
	Line    int
	Column  int

	// HasMarkup is set when the element directly contains a comment, a
	// processing instruction or an entity reference.
	HasMarkup bool
}

// Document is the parsed document with its type declaration.
type Document struct {
	Doctype *Doctype
	Root    *Element
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, attr := range e.Attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Children returns the child elements in document order.
func (e *Element) Children() []*Element {
	var out []*Element
	for _, item := range e.Content {
		if item.Kind == ElementItem {
			out = append(out, item.Element)
		}
	}
	return out
}

// ChildNames returns the names of the child elements in document order.
func (e *Element) ChildNames() []string {
	var out []string
	for _, item := range e.Content {
		if item.Kind == ElementItem {
			out = append(out, item.Element.Name)
		}
	}
	return out
}

// HasText reports whether the element directly contains character data
// other than white space.
func (e *Element) HasText() bool {
	for _, item := range e.Content {
		if item.Kind == TextItem && !names.IsWhitespace(item.Text) {
			return true
		}
	}
	return false
}

// Path returns an XPath-like location such as /doc/item[2].
func (e *Element) Path() string {
	var parts []string
	for cur := e; cur != nil; cur = cur.Parent {
		parts = append(parts, cur.step())
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

func (e *Element) step() string {
	if e.Parent == nil {
		return e.Name
	}
	index, total := 0, 0
	for _, sibling := range e.Parent.Children() {
		if sibling.Name != e.Name {
			continue
		}
		total++
		if sibling == e {
			index = total
		}
	}
	if total <= 1 {
		return e.Name
	}
	return e.Name + "[" + strconv.Itoa(index) + "]"
}
