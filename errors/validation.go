package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode names an XML 1.0 validity constraint or a local failure code.
// See: https://www.w3.org/TR/xml/#sec-element-content
type ErrorCode string

const (
	// ErrNoDTD indicates the document has no document type declaration.
	ErrNoDTD ErrorCode = "vc-no-dtd"
	// ErrNoRoot indicates the XML document has no root element.
	ErrNoRoot ErrorCode = "xml-no-root"

	// ErrRootElementType indicates the root element does not match the DOCTYPE name.
	ErrRootElementType ErrorCode = "vc-root-element-type"
	// ErrElementNotDeclared indicates an element has no declaration.
	ErrElementNotDeclared ErrorCode = "vc-element-valid.undeclared"
	// ErrEmptyNotEmpty indicates an element declared EMPTY has content.
	ErrEmptyNotEmpty ErrorCode = "vc-element-valid.empty"
	// ErrTextInElementOnly indicates character data appeared in element-only content.
	ErrTextInElementOnly ErrorCode = "vc-element-valid.text"
	// ErrContentModelInvalid indicates children violate the content model.
	ErrContentModelInvalid ErrorCode = "vc-element-valid.children"
	// ErrRequiredElementMissing indicates the content ended before the model was satisfied.
	ErrRequiredElementMissing ErrorCode = "vc-element-valid.incomplete"
	// ErrMixedNotAllowed indicates a child of mixed content is not in the declared list.
	ErrMixedNotAllowed ErrorCode = "vc-element-valid.mixed"

	// ErrAttributeNotDeclared indicates an attribute is not declared.
	ErrAttributeNotDeclared ErrorCode = "vc-attribute-value-type"
	// ErrAttributeValueInvalid indicates a value does not match its declared type.
	ErrAttributeValueInvalid ErrorCode = "vc-attribute-value-type.lexical"
	// ErrRequiredAttributeMissing indicates a #REQUIRED attribute is missing.
	ErrRequiredAttributeMissing ErrorCode = "vc-required-attribute"
	// ErrAttributeFixedValue indicates a #FIXED attribute value was violated.
	ErrAttributeFixedValue ErrorCode = "vc-fixed-attribute-default"
	// ErrEnumeration indicates a value is not one of the enumerated tokens.
	ErrEnumeration ErrorCode = "vc-enumeration"
	// ErrNotationAttribute indicates a NOTATION attribute value is not allowed.
	ErrNotationAttribute ErrorCode = "vc-notation-attributes"
	// ErrEntityName indicates an ENTITY attribute does not name an unparsed entity.
	ErrEntityName ErrorCode = "vc-entity-name"

	// ErrDuplicateID indicates a duplicate ID value.
	ErrDuplicateID ErrorCode = "vc-id"
	// ErrIDRefNotFound indicates an IDREF was not found.
	ErrIDRefNotFound ErrorCode = "vc-idref"

	// ErrDuplicateElementDecl indicates an element type was declared more than once.
	ErrDuplicateElementDecl ErrorCode = "vc-unique-element-type-declaration"
	// ErrDuplicateMixedType indicates a name repeats in a mixed content declaration.
	ErrDuplicateMixedType ErrorCode = "vc-no-duplicate-types"
	// ErrMultipleIDAttr indicates an element type declares more than one ID attribute.
	ErrMultipleIDAttr ErrorCode = "vc-one-id-per-element-type"
	// ErrIDAttributeDefault indicates an ID attribute has a literal default.
	ErrIDAttributeDefault ErrorCode = "vc-id-attribute-default"
	// ErrMultipleNotationAttr indicates an element type declares more than one NOTATION attribute.
	ErrMultipleNotationAttr ErrorCode = "vc-one-notation-per-element-type"
	// ErrNotationOnEmpty indicates a NOTATION attribute on an EMPTY element.
	ErrNotationOnEmpty ErrorCode = "vc-no-notation-on-empty-element"
	// ErrNotationNotDeclared indicates a referenced notation is not declared.
	ErrNotationNotDeclared ErrorCode = "vc-notation-declared"
	// ErrAttributeDefaultInvalid indicates an attribute default does not match its type.
	ErrAttributeDefaultInvalid ErrorCode = "vc-attribute-default-value-syntactically-correct"
	// ErrNonDeterministic indicates an ambiguous children content model.
	ErrNonDeterministic ErrorCode = "vc-deterministic-content-model"
)

// Validation describes a DTD validation error with a validity constraint code
// and optional instance path and line/column context.
//
//nolint:errname // public API name uses the XML validity domain term.
type Validation struct {
	Code     string   `json:"code" yaml:"code"`
	Message  string   `json:"message" yaml:"message"`
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`
	Actual   string   `json:"actual,omitempty" yaml:"actual,omitempty"`
	Expected []string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
	Column   int      `json:"column,omitempty" yaml:"column,omitempty"`
}

// ValidationList is an error that wraps one or more validation errors.
type ValidationList []Validation //nolint:errname // public API name, keep for compatibility.

// Error returns a compact summary of the validation errors.
func (v ValidationList) Error() string {
	switch len(v) {
	case 0:
		return "no validation errors"
	case 1:
		return v[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", v[0].Error(), len(v)-1)
	}
}

// Error formats the validation for display, including code, message, and context.
func (v *Validation) Error() string {
	if v == nil {
		return "validation <nil>"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", v.Code, v.Message))
	if v.Path != "" {
		b.WriteString(fmt.Sprintf(" at %s", v.Path))
	}
	if v.Line > 0 && v.Column > 0 {
		if v.Path == "" {
			b.WriteString(fmt.Sprintf(" at line %d, column %d", v.Line, v.Column))
		} else {
			b.WriteString(fmt.Sprintf(" (line %d, column %d)", v.Line, v.Column))
		}
	}
	if len(v.Expected) > 0 {
		b.WriteString(fmt.Sprintf(" (expected: %s)", strings.Join(v.Expected, ", ")))
	}
	if v.Actual != "" {
		b.WriteString(fmt.Sprintf(" (actual: %s)", v.Actual))
	}
	return b.String()
}

// NewValidation builds a Validation with a code, message, and optional path.
func NewValidation(code ErrorCode, msg, path string) Validation {
	return Validation{Code: string(code), Message: msg, Path: path}
}

// NewValidationf formats a message and builds a Validation.
func NewValidationf(code ErrorCode, path, format string, args ...any) Validation {
	return NewValidation(code, fmt.Sprintf(format, args...), path)
}

// AsValidations extracts validation errors from an error returned by validation helpers.
func AsValidations(err error) ([]Validation, bool) {
	list, ok := asValidationList(err)
	if !ok {
		return nil, false
	}
	return []Validation(list), true
}

func asValidationList(err error) (ValidationList, bool) {
	if err == nil {
		return nil, false
	}
	var list ValidationList
	if errors.As(err, &list) {
		return list, true
	}

	var listPtr *ValidationList
	if errors.As(err, &listPtr) && listPtr != nil {
		return *listPtr, true
	}

	return nil, false
}
