package validator

import (
	"slices"

	"github.com/jacoelho/dtd/errors"
	"github.com/jacoelho/dtd/internal/model"
	"github.com/jacoelho/dtd/internal/names"
	"github.com/jacoelho/dtd/internal/xmldoc"
)

func (r *validationRun) checkAttributes(elem *xmldoc.Element) {
	list := r.dtd.Attlists[elem.Name]
	for _, attr := range elem.Attrs {
		decl, ok := list.Lookup(attr.Name)
		if !ok {
			r.report(elem, errors.ErrAttributeNotDeclared,
				"No declaration for attribute '%s' of element '%s'", attr.Name, elem.Name)
			continue
		}
		value := attr.Value
		if decl.Type.Tokenized() {
			value = names.Normalize(value)
		}
		r.checkValue(elem, decl, value)
	}
	if list == nil {
		return
	}

	// absent attributes: #REQUIRED must be present, defaults still take part
	// in IDREF and ENTITY resolution.
	for _, decl := range list.Attrs {
		if _, present := elem.Attr(decl.Name); present {
			continue
		}
		switch {
		case decl.Default == model.DefaultRequired:
			r.report(elem, errors.ErrRequiredAttributeMissing,
				"Element '%s' does not carry attribute '%s'", elem.Name, decl.Name)
		case decl.HasDefault():
			value := decl.Value
			if decl.Type.Tokenized() {
				value = names.Normalize(value)
			}
			if lexicallyValid(decl.Type, value) {
				r.collectReferences(elem, decl, value)
			}
		}
	}
}

func (r *validationRun) checkValue(elem *xmldoc.Element, decl *model.AttributeDecl, value string) {
	if decl.Default == model.DefaultFixed {
		fixed := decl.Value
		if decl.Type.Tokenized() {
			fixed = names.Normalize(fixed)
		}
		if value != fixed {
			v := r.report(elem, errors.ErrAttributeFixedValue,
				"Attribute '%s' has fixed value '%s', but found '%s'", decl.Name, fixed, value)
			v.Actual = value
			v.Expected = []string{fixed}
		}
	}

	if !lexicallyValid(decl.Type, value) {
		v := r.report(elem, errors.ErrAttributeValueInvalid,
			"Value '%s' of attribute '%s' on element '%s' is not a valid %s",
			value, decl.Name, elem.Name, decl.Type)
		v.Actual = value
		return
	}

	switch decl.Type {
	case model.AttID:
		if first, dup := r.ids[value]; dup {
			r.report(elem, errors.ErrDuplicateID,
				"ID '%s' already defined at %s", value, first.Path())
		} else {
			r.ids[value] = elem
		}
	case model.AttEnumeration:
		if !slices.Contains(decl.Enum, value) {
			v := r.report(elem, errors.ErrEnumeration,
				"Value '%s' for attribute '%s' of element '%s' is not among the enumerated set",
				value, decl.Name, elem.Name)
			v.Actual = value
			v.Expected = slices.Clone(decl.Enum)
		}
	case model.AttNOTATION:
		if !slices.Contains(decl.Enum, value) {
			v := r.report(elem, errors.ErrNotationAttribute,
				"Value '%s' for attribute '%s' of element '%s' is not among the enumerated notations",
				value, decl.Name, elem.Name)
			v.Actual = value
			v.Expected = slices.Clone(decl.Enum)
		}
	default:
		r.collectReferences(elem, decl, value)
	}
}

// collectReferences records IDREF values for the end-of-document check and
// checks that ENTITY values name unparsed entities.
func (r *validationRun) collectReferences(elem *xmldoc.Element, decl *model.AttributeDecl, value string) {
	switch decl.Type {
	case model.AttIDREF:
		r.idrefs = append(r.idrefs, idrefEntry{elem: elem, ref: value, attr: decl.Name})
	case model.AttIDREFS:
		for _, ref := range names.Fields(value) {
			r.idrefs = append(r.idrefs, idrefEntry{elem: elem, ref: ref, attr: decl.Name})
		}
	case model.AttENTITY:
		r.checkEntityName(elem, decl, value)
	case model.AttENTITIES:
		for _, name := range names.Fields(value) {
			r.checkEntityName(elem, decl, name)
		}
	}
}

func (r *validationRun) checkEntityName(elem *xmldoc.Element, decl *model.AttributeDecl, name string) {
	entity, ok := r.dtd.Entities[name]
	if ok && entity.Unparsed() {
		return
	}
	v := r.report(elem, errors.ErrEntityName,
		"ENTITY attribute '%s' of element '%s' references '%s', which is not an unparsed entity",
		decl.Name, elem.Name, name)
	v.Actual = name
}
