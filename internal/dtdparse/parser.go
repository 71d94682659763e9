// Package dtdparse parses the internal and external subsets of a document
// type declaration into model declarations.
package dtdparse

import (
	"bytes"
	"cmp"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jacoelho/dtd/internal/model"
	"github.com/jacoelho/dtd/internal/names"
	"github.com/jacoelho/dtd/internal/source"
	"github.com/jacoelho/dtd/internal/xmldoc"
)

const defaultMaxExpansion = 1 << 20

// LoadFunc returns the raw content of an external entity and its canonical
// system ID, which becomes the base for references made from inside it.
type LoadFunc func(source.ResolveRequest) ([]byte, string, error)

// Config controls DTD parsing.
type Config struct {
	// Load fetches external entities. A nil Load skips them.
	Load         LoadFunc
	Logger       *slog.Logger
	Base         string
	MaxExpansion int
}

// SyntaxError reports a malformed declaration.
type SyntaxError struct {
	System string
	Msg    string
	Line   int
}

func (e *SyntaxError) Error() string {
	system := e.System
	if system == "" {
		system = "internal subset"
	}
	return fmt.Sprintf("%s:%d: %s", system, e.Line, e.Msg)
}

type frame struct {
	data     string
	system   string
	entity   string
	pos      int
	external bool
	inline   bool
}

type parser struct {
	cfg      Config
	dtd      *model.DTD
	logger   *slog.Logger
	active   map[string]bool
	loaded   map[string]string
	stack    []*frame
	expanded int
}

// Parse reads the internal subset of dt followed by its external subset.
// Declarations in the internal subset take precedence.
func Parse(dt *xmldoc.Doctype, cfg Config) (*model.DTD, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil doctype")
	}
	p := newParser(dt, cfg)
	if dt.HasInternalSubset {
		p.push(&frame{data: dt.InternalSubset})
		if err := p.parseSubset(false); err != nil {
			return nil, err
		}
		p.pop()
	}
	if dt.SystemID == "" {
		return p.dtd, nil
	}
	if p.cfg.Load == nil {
		p.logger.Debug("external subset not loaded", "system", dt.SystemID)
		return p.dtd, nil
	}
	text, system, err := p.loadExternal(source.ResolveRequest{
		Kind:         source.ResolveExternalSubset,
		PublicID:     dt.PublicID,
		SystemID:     dt.SystemID,
		BaseSystemID: cfg.Base,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("parsing external subset", "system", system, "bytes", len(text))
	p.push(&frame{data: text, system: system, external: true})
	if err := p.parseSubset(false); err != nil {
		return nil, err
	}
	p.pop()
	return p.dtd, nil
}

func newParser(dt *xmldoc.Doctype, cfg Config) *parser {
	if cfg.MaxExpansion <= 0 {
		cfg.MaxExpansion = defaultMaxExpansion
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := model.New(dt.Name)
	d.PublicID = dt.PublicID
	d.SystemID = dt.SystemID
	return &parser{
		cfg:    cfg,
		dtd:    d,
		logger: logger,
		active: make(map[string]bool),
		loaded: make(map[string]string),
	}
}

func (p *parser) push(f *frame) {
	p.stack = append(p.stack, f)
}

func (p *parser) pop() {
	f := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if f.entity != "" {
		delete(p.active, f.entity)
	}
}

func (p *parser) top() *frame {
	return p.stack[len(p.stack)-1]
}

// settle drops exhausted parameter entity text that was spliced into a
// declaration, returning to the text that referenced it.
func (p *parser) settle() *frame {
	for {
		f := p.top()
		if f.pos < len(f.data) || !f.inline {
			return f
		}
		p.pop()
	}
}

func (p *parser) peek() (byte, bool) {
	f := p.settle()
	if f.pos >= len(f.data) {
		return 0, false
	}
	return f.data[f.pos], true
}

func (p *parser) peekAt(offset int) (byte, bool) {
	f := p.settle()
	if f.pos+offset >= len(f.data) {
		return 0, false
	}
	return f.data[f.pos+offset], true
}

func (p *parser) hasPrefix(s string) bool {
	f := p.settle()
	return strings.HasPrefix(f.data[f.pos:], s)
}

func (p *parser) advance(n int) {
	p.top().pos += n
}

func (p *parser) errorf(format string, args ...any) error {
	f := p.top()
	for i := len(p.stack) - 2; f.inline && i >= 0; i-- {
		// report against the text that contains the reference
		f = p.stack[i]
	}
	line := 1 + strings.Count(f.data[:min(f.pos, len(f.data))], "\n")
	return &SyntaxError{System: f.system, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// skipPlainSpace skips white space without expanding references.
func (p *parser) skipPlainSpace() {
	for {
		c, ok := p.peek()
		if !ok || !names.IsSpaceByte(c) {
			return
		}
		p.advance(1)
	}
}

// skipSpace skips white space inside a declaration. Parameter entity
// references are expanded in place, padded with a space on each side.
func (p *parser) skipSpace() (bool, error) {
	saw := false
	for {
		c, ok := p.peek()
		if !ok {
			return saw, nil
		}
		if names.IsSpaceByte(c) {
			p.advance(1)
			saw = true
			continue
		}
		if c != '%' || !p.peReferenceAhead() {
			return saw, nil
		}
		if !p.top().external {
			return saw, p.errorf("parameter entity reference not allowed inside markup declaration in internal subset")
		}
		name, err := p.readReference('%')
		if err != nil {
			return saw, err
		}
		text, decl, err := p.parameterText(name)
		if err != nil {
			return saw, err
		}
		if decl == nil {
			continue
		}
		p.active[name] = true
		p.push(&frame{
			data:     " " + text + " ",
			system:   entitySystem(decl, p.top().system),
			entity:   name,
			external: true,
			inline:   true,
		})
		saw = true
	}
}

func (p *parser) requireSpace(context string) error {
	saw, err := p.skipSpace()
	if err != nil {
		return err
	}
	if !saw {
		return p.errorf("space required %s", context)
	}
	return nil
}

func (p *parser) peReferenceAhead() bool {
	next, ok := p.peekAt(1)
	if !ok {
		return false
	}
	if next < utf8.RuneSelf {
		return names.IsNameStartRune(rune(next))
	}
	f := p.top()
	r, _ := utf8.DecodeRuneInString(f.data[f.pos+1:])
	return names.IsNameStartRune(r)
}

// readReference reads "<marker>Name;" and returns the name.
func (p *parser) readReference(marker byte) (string, error) {
	c, ok := p.peek()
	if !ok || c != marker {
		return "", p.errorf("expected %q", marker)
	}
	p.advance(1)
	name, err := p.readName()
	if err != nil {
		return "", err
	}
	c, ok = p.peek()
	if !ok || c != ';' {
		return "", p.errorf("reference %c%s not terminated by ';'", marker, name)
	}
	p.advance(1)
	return name, nil
}

func (p *parser) readName() (string, error) {
	f := p.settle()
	rest := f.data[f.pos:]
	n := 0
	for n < len(rest) {
		r, size := utf8.DecodeRuneInString(rest[n:])
		if n == 0 && !names.IsNameStartRune(r) {
			break
		}
		if !names.IsNameRune(r) {
			break
		}
		n += size
	}
	if n == 0 {
		return "", p.errorf("name expected")
	}
	f.pos += n
	return rest[:n], nil
}

func (p *parser) readNmtoken() (string, error) {
	f := p.settle()
	rest := f.data[f.pos:]
	n := 0
	for n < len(rest) {
		r, size := utf8.DecodeRuneInString(rest[n:])
		if !names.IsNameRune(r) {
			break
		}
		n += size
	}
	if n == 0 {
		return "", p.errorf("name token expected")
	}
	f.pos += n
	return rest[:n], nil
}

// readKeyword reads a keyword such as EMPTY or #REQUIRED.
func (p *parser) readKeyword() (string, error) {
	prefix := ""
	if c, ok := p.peek(); ok && c == '#' {
		p.advance(1)
		prefix = "#"
	}
	name, err := p.readName()
	if err != nil {
		return "", err
	}
	return prefix + name, nil
}

func (p *parser) expect(c byte) error {
	got, ok := p.peek()
	if !ok {
		return p.errorf("expected %q, got end of input", c)
	}
	if got != c {
		return p.errorf("expected %q, got %q", c, got)
	}
	p.advance(1)
	return nil
}

// readQuoted reads a system or public literal. No references are recognized.
func (p *parser) readQuoted() (string, error) {
	f := p.settle()
	if f.pos >= len(f.data) || (f.data[f.pos] != '"' && f.data[f.pos] != '\'') {
		return "", p.errorf("quoted literal expected")
	}
	quote := f.data[f.pos]
	end := strings.IndexByte(f.data[f.pos+1:], quote)
	if end < 0 {
		return "", p.errorf("unterminated literal")
	}
	value := f.data[f.pos+1 : f.pos+1+end]
	f.pos += end + 2
	return value, nil
}

func (p *parser) parseSubset(inConditional bool) error {
	for {
		p.skipPlainSpace()
		c, ok := p.peek()
		if !ok {
			if inConditional {
				return p.errorf("unterminated conditional section")
			}
			return nil
		}
		var err error
		switch {
		case c == '%':
			err = p.includeParameterEntity()
		case inConditional && p.hasPrefix("]]>"):
			p.advance(3)
			return nil
		case p.hasPrefix("<!--"):
			err = p.skipUntil("<!--", "-->", "comment")
		case p.hasPrefix("<?"):
			err = p.skipUntil("<?", "?>", "processing instruction")
		case p.hasPrefix("<!["):
			err = p.parseConditional()
		case p.hasPrefix("<!ELEMENT"):
			err = p.parseElementDecl()
		case p.hasPrefix("<!ATTLIST"):
			err = p.parseAttlistDecl()
		case p.hasPrefix("<!ENTITY"):
			err = p.parseEntityDecl()
		case p.hasPrefix("<!NOTATION"):
			err = p.parseNotationDecl()
		default:
			err = p.errorf("unexpected %q in DTD", snippet(p.top()))
		}
		if err != nil {
			return err
		}
	}
}

func snippet(f *frame) string {
	rest := f.data[f.pos:]
	if len(rest) > 20 {
		rest = rest[:20]
	}
	return rest
}

func (p *parser) skipUntil(open, closing, what string) error {
	f := p.settle()
	f.pos += len(open)
	end := strings.Index(f.data[f.pos:], closing)
	if end < 0 {
		return p.errorf("unterminated %s", what)
	}
	f.pos += end + len(closing)
	return nil
}

func (p *parser) includeParameterEntity() error {
	name, err := p.readReference('%')
	if err != nil {
		return err
	}
	text, decl, err := p.parameterText(name)
	if err != nil || decl == nil {
		return err
	}
	p.active[name] = true
	p.push(&frame{
		data:     text,
		system:   entitySystem(decl, p.top().system),
		entity:   name,
		external: decl.External || p.top().external,
	})
	if err := p.parseSubset(false); err != nil {
		return err
	}
	p.pop()
	return nil
}

// parameterText returns the replacement text of a parameter entity. A nil
// declaration with a nil error means the reference is skipped.
func (p *parser) parameterText(name string) (string, *model.EntityDecl, error) {
	decl, ok := p.dtd.ParamEntities[name]
	if !ok {
		p.logger.Warn("parameter entity not declared", "entity", name)
		return "", nil, nil
	}
	if p.active[name] {
		return "", nil, p.errorf("recursive reference to parameter entity %%%s;", name)
	}
	text := decl.Value
	if decl.External {
		if p.cfg.Load == nil {
			p.logger.Debug("external parameter entity not loaded", "entity", name, "system", decl.SystemID)
			return "", nil, nil
		}
		loaded, err := p.loadEntity(decl, source.ResolveParameterEntity)
		if err != nil {
			return "", nil, err
		}
		text = loaded
	}
	if err := p.charge(len(text)); err != nil {
		return "", nil, err
	}
	return text, decl, nil
}

func (p *parser) charge(n int) error {
	p.expanded += n
	if p.expanded > p.cfg.MaxExpansion {
		return p.errorf("entity expansion exceeds limit of %d bytes", p.cfg.MaxExpansion)
	}
	return nil
}

func (p *parser) loadEntity(decl *model.EntityDecl, kind source.ResolveKind) (string, error) {
	key := decl.Base + "\x00" + decl.SystemID
	if text, ok := p.loaded[key]; ok {
		return text, nil
	}
	text, system, err := p.loadExternal(source.ResolveRequest{
		Kind:         kind,
		PublicID:     decl.PublicID,
		SystemID:     decl.SystemID,
		BaseSystemID: decl.Base,
	})
	if err != nil {
		return "", err
	}
	decl.Resolved = system
	p.loaded[key] = text
	return text, nil
}

func (p *parser) loadExternal(req source.ResolveRequest) (string, string, error) {
	data, system, err := p.cfg.Load(req)
	if err != nil {
		return "", "", fmt.Errorf("load %s %q: %w", req.Kind, req.SystemID, err)
	}
	decoded, err := xmldoc.DecodeEntity(data)
	if err != nil {
		return "", "", fmt.Errorf("decode %s %q: %w", req.Kind, req.SystemID, err)
	}
	return string(stripTextDecl(decoded)), system, nil
}

func stripTextDecl(data []byte) []byte {
	if !bytes.HasPrefix(data, []byte("<?xml")) || len(data) < 6 || !names.IsSpaceByte(data[5]) {
		return data
	}
	end := bytes.Index(data, []byte("?>"))
	if end < 0 {
		return data
	}
	return data[end+2:]
}

func entitySystem(decl *model.EntityDecl, fallback string) string {
	if decl.External {
		return cmp.Or(decl.Resolved, decl.Base)
	}
	return fallback
}

func (p *parser) parseConditional() error {
	if !p.top().external {
		return p.errorf("conditional sections are not allowed in the internal subset")
	}
	p.advance(len("<!["))
	if _, err := p.skipSpace(); err != nil {
		return err
	}
	keyword, err := p.readName()
	if err != nil {
		return err
	}
	if _, err := p.skipSpace(); err != nil {
		return err
	}
	if err := p.expect('['); err != nil {
		return err
	}
	switch keyword {
	case "INCLUDE":
		return p.parseSubset(true)
	case "IGNORE":
		return p.skipIgnored()
	default:
		return p.errorf("conditional section keyword must be INCLUDE or IGNORE, got %s", keyword)
	}
}

func (p *parser) skipIgnored() error {
	f := p.settle()
	depth := 1
	for f.pos < len(f.data) {
		switch {
		case strings.HasPrefix(f.data[f.pos:], "<!["):
			depth++
			f.pos += 3
		case strings.HasPrefix(f.data[f.pos:], "]]>"):
			depth--
			f.pos += 3
			if depth == 0 {
				return nil
			}
		default:
			f.pos++
		}
	}
	return p.errorf("unterminated IGNORE section")
}
