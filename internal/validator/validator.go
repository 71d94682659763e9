// Package validator checks a parsed document against its DTD.
package validator

import (
	"fmt"

	"github.com/jacoelho/dtd/errors"
	"github.com/jacoelho/dtd/internal/contentmodel"
	"github.com/jacoelho/dtd/internal/model"
	"github.com/jacoelho/dtd/internal/xmldoc"
)

type idrefEntry struct {
	elem *xmldoc.Element
	ref  string
	attr string
}

type validationRun struct {
	dtd        *model.DTD
	automata   map[string]*contentmodel.Glushkov
	ids        map[string]*xmldoc.Element
	idrefs     []idrefEntry
	violations []errors.Validation
}

// Validate checks the declarations of d and then every element of doc.
// All violations are returned in declaration order followed by document
// order. A nil or empty list means the document is valid.
func Validate(doc *xmldoc.Document, d *model.DTD) errors.ValidationList {
	if doc == nil || doc.Doctype == nil || d == nil {
		return errors.ValidationList{
			errors.NewValidation(errors.ErrNoDTD, "Validation failed: no DTD found", ""),
		}
	}
	if doc.Root == nil {
		return errors.ValidationList{
			errors.NewValidation(errors.ErrNoRoot, "document has no root element", ""),
		}
	}

	r := &validationRun{
		dtd:      d,
		automata: make(map[string]*contentmodel.Glushkov),
		ids:      make(map[string]*xmldoc.Element),
	}
	r.checkDeclarations()
	if doc.Root.Name != doc.Doctype.Name {
		r.report(doc.Root, errors.ErrRootElementType,
			"Root element '%s' does not match DOCTYPE name '%s'", doc.Root.Name, doc.Doctype.Name)
	}
	r.walk(doc.Root)
	r.checkIDRefs()
	return errors.ValidationList(r.violations)
}

func (r *validationRun) add(v errors.Validation) {
	r.violations = append(r.violations, v)
}

func (r *validationRun) report(elem *xmldoc.Element, code errors.ErrorCode, format string, args ...any) *errors.Validation {
	v := errors.NewValidation(code, fmt.Sprintf(format, args...), elem.Path())
	v.Line = elem.Line
	v.Column = elem.Column
	r.violations = append(r.violations, v)
	return &r.violations[len(r.violations)-1]
}

func (r *validationRun) walk(elem *xmldoc.Element) {
	decl, ok := r.dtd.Elements[elem.Name]
	if !ok {
		r.report(elem, errors.ErrElementNotDeclared, "No declaration for element '%s'", elem.Name)
	} else {
		r.checkContent(elem, decl)
	}
	r.checkAttributes(elem)
	for _, child := range elem.Children() {
		r.walk(child)
	}
}

func (r *validationRun) checkIDRefs() {
	for _, entry := range r.idrefs {
		if _, ok := r.ids[entry.ref]; ok {
			continue
		}
		r.report(entry.elem, errors.ErrIDRefNotFound,
			"IDREF attribute '%s' references an unknown ID '%s'", entry.attr, entry.ref)
	}
}
