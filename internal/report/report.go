// Package report turns a validation outcome into a serializable result.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jacoelho/dtd/errors"
)

// Format selects how a result is written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

// Result is the outcome of validating one document.
type Result struct {
	Document   string              `json:"document" yaml:"document"`
	Valid      bool                `json:"valid" yaml:"valid"`
	Stage      string              `json:"stage,omitempty" yaml:"stage,omitempty"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
	Line       int                 `json:"line,omitempty" yaml:"line,omitempty"`
	Column     int                 `json:"column,omitempty" yaml:"column,omitempty"`
	Violations []errors.Validation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// FromError builds the result for document given the error returned by
// validation. A nil error is a valid document.
func FromError(document string, err error) Result {
	result := Result{Document: document, Valid: err == nil}
	if err == nil {
		return result
	}
	if violations, ok := errors.AsValidations(err); ok {
		result.Violations = violations
		return result
	}
	result.Error = err.Error()
	if loadErr, ok := errors.AsLoad(err); ok {
		result.Stage = string(loadErr.Stage)
		result.Line = loadErr.Line
		result.Column = loadErr.Column
		if loadErr.Err != nil {
			result.Error = loadErr.Err.Error()
		}
	}
	return result
}

// Write serializes r in a machine-readable format.
func Write(w io.Writer, format Format, r Result) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("format %q is not serializable", format)
	}
}
