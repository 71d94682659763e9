package dtd

import (
	stderrors "errors"
	"io"

	"github.com/jacoelho/dtd/errors"
	"github.com/jacoelho/dtd/internal/dtdparse"
	"github.com/jacoelho/dtd/internal/model"
	"github.com/jacoelho/dtd/internal/source"
	"github.com/jacoelho/dtd/internal/validator"
	"github.com/jacoelho/dtd/internal/xmldoc"
)

// validate runs one document through parsing, DTD loading and validation.
// fallback is used when the options carry no resolver.
func (v *Validator) validate(r io.Reader, path, base string, fallback Resolver) error {
	logger := v.opts.logger.With("document", displayPath(path))
	resolver := v.opts.resolver
	if resolver == nil {
		resolver = fallback
	}

	cfg := dtdparse.Config{
		Logger:       logger,
		Base:         base,
		MaxExpansion: v.opts.limits.maxEntityExpansion,
	}
	if v.opts.loadExternal {
		cfg.Load = func(req source.ResolveRequest) ([]byte, string, error) {
			logger.Debug("loading external entity", "kind", req.Kind.String(), "system", req.SystemID)
			return source.ReadAll(resolver, req)
		}
	}

	var decls *model.DTD
	doc, err := xmldoc.Parse(r, xmldoc.Config{
		MaxDepth:     v.opts.limits.maxDepth,
		MaxExpansion: v.opts.limits.maxEntityExpansion,
		OnDoctype: func(dt *xmldoc.Doctype) (map[string]xmldoc.Entity, error) {
			d, err := dtdparse.Parse(dt, cfg)
			if err != nil {
				return nil, errors.NewLoadError(errors.StageDTD, path, err)
			}
			decls = d
			logger.Debug("dtd loaded",
				"name", dt.Name,
				"system", dt.SystemID,
				"elements", len(d.Elements),
				"entities", len(d.Entities),
			)
			return dtdparse.EntityTable(d, cfg), nil
		},
	})
	if err != nil {
		return classifyLoadError(path, err)
	}

	violations := validator.Validate(doc, decls)
	if len(violations) > 0 {
		logger.Debug("document invalid", "violations", len(violations))
		return violations
	}
	return nil
}

func classifyLoadError(path string, err error) error {
	if loadErr, ok := errors.AsLoad(err); ok {
		return loadErr
	}
	var syntaxErr *xmldoc.SyntaxError
	if stderrors.As(err, &syntaxErr) {
		loadErr := errors.NewLoadError(errors.StageParse, path, err)
		loadErr.Line = syntaxErr.Line
		loadErr.Column = syntaxErr.Column
		return loadErr
	}
	return errors.NewLoadError(errors.StageOpen, path, err)
}

func displayPath(path string) string {
	if path == "" {
		return "<reader>"
	}
	return path
}
