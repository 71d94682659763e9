package validator

import (
	"slices"
	"strings"

	"github.com/jacoelho/dtd/errors"
	"github.com/jacoelho/dtd/internal/model"
	"github.com/jacoelho/dtd/internal/xmldoc"
)

func (r *validationRun) checkContent(elem *xmldoc.Element, decl *model.ElementDecl) {
	switch decl.Content {
	case model.ContentEmpty:
		if len(elem.Content) > 0 || elem.HasMarkup {
			r.report(elem, errors.ErrEmptyNotEmpty,
				"Element '%s' was declared EMPTY but has content", elem.Name)
		}
	case model.ContentAny:
	case model.ContentMixed:
		r.checkMixed(elem, decl)
	case model.ContentChildren:
		r.checkChildren(elem, decl)
	}
}

func (r *validationRun) checkMixed(elem *xmldoc.Element, decl *model.ElementDecl) {
	for _, child := range elem.Children() {
		if slices.Contains(decl.Mixed, child.Name) {
			continue
		}
		v := r.report(child, errors.ErrMixedNotAllowed,
			"Element '%s' is not allowed as a child of '%s', content is %s",
			child.Name, elem.Name, decl.ContentString())
		v.Actual = child.Name
		v.Expected = slices.Clone(decl.Mixed)
	}
}

func (r *validationRun) checkChildren(elem *xmldoc.Element, decl *model.ElementDecl) {
	if elem.HasText() {
		r.report(elem, errors.ErrTextInElementOnly,
			"Element '%s' has element-only content %s but contains character data",
			elem.Name, decl.ContentString())
	}
	glu, ok := r.automata[elem.Name]
	if !ok || glu == nil {
		return
	}
	children := elem.ChildNames()
	mismatch := glu.Match(children)
	if mismatch == nil {
		return
	}
	code := errors.ErrContentModelInvalid
	if mismatch.Incomplete {
		code = errors.ErrRequiredElementMissing
	}
	v := r.report(elem, code,
		"Element '%s' content does not follow the DTD, expecting %s, got (%s)",
		elem.Name, decl.ContentString(), strings.Join(children, " "))
	v.Actual = mismatch.Actual
	v.Expected = mismatch.Expected
}
