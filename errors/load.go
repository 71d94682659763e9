package errors

import (
	"errors"
	"fmt"
)

// LoadStage identifies where document loading failed.
type LoadStage string

const (
	// StageOpen covers opening or reading the document itself.
	StageOpen LoadStage = "open"
	// StageParse covers XML well-formedness failures.
	StageParse LoadStage = "parse"
	// StageDTD covers loading or parsing the document type definition.
	StageDTD LoadStage = "dtd"
)

// LoadError reports a document that could not be loaded far enough to validate.
type LoadError struct {
	Err    error
	Path   string
	Stage  LoadStage
	Line   int
	Column int
}

// Error describes the failed stage, location, and cause.
func (e *LoadError) Error() string {
	if e == nil {
		return "load error <nil>"
	}
	where := e.Path
	if where == "" {
		where = "document"
	}
	switch {
	case e.Line > 0 && e.Column > 0:
		where = fmt.Sprintf("%s:%d:%d", where, e.Line, e.Column)
	case e.Line > 0:
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, where, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewLoadError wraps err as a load failure at stage.
func NewLoadError(stage LoadStage, path string, err error) *LoadError {
	return &LoadError{Stage: stage, Path: path, Err: err}
}

// AsLoad extracts a load error from err.
func AsLoad(err error) (*LoadError, bool) {
	if err == nil {
		return nil, false
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) && loadErr != nil {
		return loadErr, true
	}
	return nil, false
}
