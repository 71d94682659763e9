package validator

import (
	"slices"

	"github.com/jacoelho/dtd/errors"
	"github.com/jacoelho/dtd/internal/contentmodel"
	"github.com/jacoelho/dtd/internal/model"
	"github.com/jacoelho/dtd/internal/names"
)

// checkDeclarations applies the validity constraints that concern the DTD
// itself and compiles the children content models used by the tree walk.
func (r *validationRun) checkDeclarations() {
	for _, dup := range r.dtd.DuplicateElements {
		r.add(errors.NewValidationf(errors.ErrDuplicateElementDecl, "",
			"Element '%s' is declared more than once", dup.Name))
	}
	for _, name := range r.dtd.ElementOrder {
		r.checkElementDecl(r.dtd.Elements[name])
	}
	for _, name := range r.dtd.AttlistOrder {
		r.checkAttList(r.dtd.Attlists[name])
	}
	for _, name := range r.dtd.UnparsedOrder {
		entity := r.dtd.Entities[name]
		if _, ok := r.dtd.Notations[entity.Notation]; !ok {
			r.add(errors.NewValidationf(errors.ErrNotationNotDeclared, "",
				"Notation '%s' of unparsed entity '%s' is not declared", entity.Notation, name))
		}
	}
}

func (r *validationRun) checkElementDecl(decl *model.ElementDecl) {
	switch decl.Content {
	case model.ContentMixed:
		seen := make(map[string]bool, len(decl.Mixed))
		for _, name := range decl.Mixed {
			if seen[name] {
				r.add(errors.NewValidationf(errors.ErrDuplicateMixedType, "",
					"Element '%s' is repeated in the mixed content of '%s'", name, decl.Name))
			}
			seen[name] = true
		}
	case model.ContentChildren:
		glu, err := contentmodel.BuildGlushkov(decl.Model)
		if err != nil {
			r.add(errors.NewValidationf(errors.ErrContentModelInvalid, "",
				"Content model of element '%s' is invalid: %v", decl.Name, err))
			return
		}
		if err := contentmodel.CheckDeterminism(glu); err != nil {
			r.add(errors.NewValidationf(errors.ErrNonDeterministic, "",
				"Content model of element '%s' is not deterministic: %s", decl.Name, decl.ContentString()))
		}
		r.automata[decl.Name] = glu
	}
}

func (r *validationRun) checkAttList(list *model.AttList) {
	var idAttr, notationAttr *model.AttributeDecl
	for _, attr := range list.Attrs {
		switch attr.Type {
		case model.AttID:
			if idAttr != nil {
				r.add(errors.NewValidationf(errors.ErrMultipleIDAttr, "",
					"Element '%s' has too many ID attributes defined: '%s' and '%s'",
					list.Element, idAttr.Name, attr.Name))
			} else {
				idAttr = attr
			}
			if attr.HasDefault() {
				r.add(errors.NewValidationf(errors.ErrIDAttributeDefault, "",
					"ID attribute '%s' of element '%s' must be #IMPLIED or #REQUIRED", attr.Name, list.Element))
			}
		case model.AttNOTATION:
			if notationAttr != nil {
				r.add(errors.NewValidationf(errors.ErrMultipleNotationAttr, "",
					"Element '%s' has too many NOTATION attributes defined: '%s' and '%s'",
					list.Element, notationAttr.Name, attr.Name))
			} else {
				notationAttr = attr
			}
			if decl, ok := r.dtd.Elements[list.Element]; ok && decl.Content == model.ContentEmpty {
				r.add(errors.NewValidationf(errors.ErrNotationOnEmpty, "",
					"NOTATION attribute '%s' not allowed on EMPTY element '%s'", attr.Name, list.Element))
			}
			for _, notation := range attr.Enum {
				if _, ok := r.dtd.Notations[notation]; !ok {
					r.add(errors.NewValidationf(errors.ErrNotationNotDeclared, "",
						"Notation '%s' of attribute '%s' on element '%s' is not declared",
						notation, attr.Name, list.Element))
				}
			}
		}
		if attr.HasDefault() {
			r.checkDefault(attr)
		}
	}
}

func (r *validationRun) checkDefault(attr *model.AttributeDecl) {
	value := attr.Value
	if attr.Type.Tokenized() {
		value = names.Normalize(value)
	}
	if !lexicallyValid(attr.Type, value) {
		r.add(errors.NewValidationf(errors.ErrAttributeDefaultInvalid, "",
			"Default value '%s' of attribute '%s' on element '%s' is not a valid %s",
			attr.Value, attr.Name, attr.Element, attr.Type))
		return
	}
	if (attr.Type == model.AttEnumeration || attr.Type == model.AttNOTATION) && !slices.Contains(attr.Enum, value) {
		r.add(errors.NewValidationf(errors.ErrAttributeDefaultInvalid, "",
			"Default value '%s' of attribute '%s' on element '%s' is not among the enumerated set",
			attr.Value, attr.Name, attr.Element))
	}
}

// lexicallyValid checks a normalized value against the production of its
// attribute type.
func lexicallyValid(t model.AttType, value string) bool {
	switch t {
	case model.AttCDATA:
		return true
	case model.AttID, model.AttIDREF, model.AttENTITY, model.AttNOTATION:
		return names.IsName(value)
	case model.AttIDREFS, model.AttENTITIES:
		return names.IsNames(value)
	case model.AttNMTOKEN, model.AttEnumeration:
		return names.IsNmtoken(value)
	case model.AttNMTOKENS:
		return names.IsNmtokens(value)
	default:
		return false
	}
}
