// Package dtd validates XML documents against the document type definition
// named by their DOCTYPE declaration.
//
// Validation results are reported as errors:
//   - nil means the document is valid
//   - errors.ValidationList holds every validity constraint the document breaks
//   - *errors.LoadError reports a document or DTD that could not be read or parsed
package dtd

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jacoelho/dtd/errors"
)

// Validator validates documents with a fixed set of options.
// It is safe for concurrent use by multiple goroutines.
type Validator struct {
	opts resolvedOptions
}

// New returns a validator configured by opts.
func New(opts Options) (*Validator, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("dtd options: %w", err)
	}
	return &Validator{opts: resolved}, nil
}

// Validate reads a document from r and validates it. External subsets are
// resolved relative to the working directory.
func (v *Validator) Validate(r io.Reader) error {
	if v == nil {
		return errors.NewLoadError(errors.StageOpen, "", fmt.Errorf("nil validator"))
	}
	return v.validate(r, "", "", OSResolver())
}

// ValidateFS validates the document name inside fsys. External subsets are
// resolved relative to name, within fsys.
func (v *Validator) ValidateFS(fsys fs.FS, name string) (err error) {
	if v == nil {
		return errors.NewLoadError(errors.StageOpen, name, fmt.Errorf("nil validator"))
	}
	if fsys == nil {
		return errors.NewLoadError(errors.StageOpen, name, fmt.Errorf("nil fs"))
	}
	f, err := fsys.Open(name)
	if err != nil {
		return errors.NewLoadError(errors.StageOpen, name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.NewLoadError(errors.StageOpen, name, fmt.Errorf("close: %w", closeErr))
		}
	}()
	return v.validate(f, name, name, FSResolver(fsys))
}

// ValidateFile validates the document at path. External subsets are resolved
// relative to the document's directory.
func (v *Validator) ValidateFile(path string) (err error) {
	if v == nil {
		return errors.NewLoadError(errors.StageOpen, path, fmt.Errorf("nil validator"))
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.NewLoadError(errors.StageOpen, path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.NewLoadError(errors.StageOpen, path, fmt.Errorf("close: %w", closeErr))
		}
	}()
	return v.validate(f, path, path, OSResolver())
}

// ValidateFile validates the document at path with default options.
func ValidateFile(path string) error {
	return defaultValidator().ValidateFile(path)
}

// Validate validates the document read from r with default options.
func Validate(r io.Reader) error {
	return defaultValidator().Validate(r)
}

func defaultValidator() *Validator {
	// default options always resolve
	opts, _ := NewOptions().withDefaults()
	return &Validator{opts: opts}
}
