// Package cli implements the validate command.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jacoelho/dtd"
	"github.com/jacoelho/dtd/internal/logging"
	"github.com/jacoelho/dtd/internal/report"
	"github.com/jacoelho/dtd/internal/ui"
)

// Exit codes.
const (
	ExitValid   = 0
	ExitInvalid = 1
	ExitUsage   = 2
)

const (
	usageLine   = "Usage: validate.php [xml file]\n"
	passedLine  = "Validation passed!\n"
	defaultFmt  = string(report.FormatText)
	commandName = "validate"
)

var errInvalid = errors.New("document is not valid")

type usageError struct {
	err error
}

func (e *usageError) Error() string {
	if e.err == nil {
		return "missing xml file argument"
	}
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

type flags struct {
	quiet      bool
	verbose    bool
	noColor    bool
	noExternal bool
	format     string
	maxDepth   int
}

// Run executes the command with args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	var f flags
	cmd := newCommand(&f, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return ExitValid
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		if usageErr.err != nil && !f.quiet {
			if writef(stderr, "error: %v\n", usageErr.err) != nil {
				return ExitInvalid
			}
		}
		return exitAfter(ExitUsage, stdout, "%s", usageLine)
	}
	if errors.Is(err, errInvalid) || f.quiet {
		return ExitInvalid
	}
	return exitAfter(ExitInvalid, stderr, "error: %v\n", err)
}

// exitAfter writes to w and returns code, or ExitInvalid when the write fails.
func exitAfter(code int, w io.Writer, format string, args ...any) int {
	if err := writef(w, format, args...); err != nil {
		return ExitInvalid
	}
	return code
}

func newCommand(f *flags, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   commandName + " [flags] <xml file>",
		Short: "Validate an XML document against its DTD",
		Long: `Validate an XML document against the document type definition named by its
DOCTYPE declaration. The DTD may be an internal subset, an external subset
loaded from the local filesystem, or both.

Prints "Validation passed!" on success. Diagnostics go to stderr.

Exit codes:
  0 - document is valid
  1 - document is invalid or could not be loaded
  2 - usage error`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(f, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	fl := cmd.Flags()
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "print nothing to stderr")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	fl.BoolVar(&f.noColor, "no-color", false, "disable colored diagnostics")
	fl.BoolVar(&f.noExternal, "no-external", false, "do not load external DTD subsets or entities")
	fl.StringVar(&f.format, "format", defaultFmt, "diagnostic format: text, json or yaml")
	fl.IntVar(&f.maxDepth, "max-depth", 0, "element nesting limit (0 uses the default of 256)")
	return cmd
}

func runValidate(f *flags, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return &usageError{}
	}
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return &usageError{err: err}
	}
	if f.maxDepth < 0 {
		return &usageError{err: fmt.Errorf("--max-depth must be >= 0")}
	}

	logger := logging.New(logging.Config{Writer: stderr, Verbose: f.verbose, Quiet: f.quiet})
	path := args[0]
	if len(args) > 1 {
		logger.Warn("ignoring extra arguments", "args", args[1:])
	}

	opts := dtd.NewOptions().
		WithLogger(logger).
		WithLoadExternal(!f.noExternal).
		WithMaxDepth(f.maxDepth)
	v, err := dtd.New(opts)
	if err != nil {
		return err
	}

	result := report.FromError(path, v.ValidateFile(path))
	if result.Valid {
		logger.Debug("document is valid", "path", path)
		return writef(stdout, "%s", passedLine)
	}
	if !f.quiet {
		if err := writeReport(stderr, format, f.noColor, result); err != nil {
			return err
		}
	}
	return errInvalid
}

func writeReport(stderr io.Writer, format report.Format, noColor bool, result report.Result) error {
	if format != report.FormatText {
		return report.Write(stderr, format, result)
	}
	return ui.Configure(ui.Config{ErrWriter: stderr, NoColor: noColor}).Report(result)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
