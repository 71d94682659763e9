package dtd_test

import (
	"bytes"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacoelho/dtd"
	"github.com/jacoelho/dtd/errors"
)

func TestValidateDocuments(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantCode errors.ErrorCode
	}{
		{
			name: "empty element",
			doc:  `<!DOCTYPE a [<!ELEMENT a EMPTY>]><a/>`,
		},
		{
			name:     "missing required child",
			doc:      `<!DOCTYPE a [<!ELEMENT a (b)>]><a/>`,
			wantCode: errors.ErrRequiredElementMissing,
		},
		{
			name:     "no doctype",
			doc:      `<a/>`,
			wantCode: errors.ErrNoDTD,
		},
		{
			name:     "root mismatch",
			doc:      `<!DOCTYPE a [<!ELEMENT a EMPTY><!ELEMENT b EMPTY>]><b/>`,
			wantCode: errors.ErrRootElementType,
		},
		{
			name: "entity in content",
			doc:  `<!DOCTYPE a [<!ELEMENT a (#PCDATA)><!ENTITY who "world">]><a>hello &who;</a>`,
		},
		{
			name:     "comment in empty element",
			doc:      `<!DOCTYPE a [<!ELEMENT a EMPTY>]><a><!--c--></a>`,
			wantCode: errors.ErrEmptyNotEmpty,
		},
		{
			name:     "processing instruction in empty element",
			doc:      `<!DOCTYPE a [<!ELEMENT a EMPTY>]><a><?pi x?></a>`,
			wantCode: errors.ErrEmptyNotEmpty,
		},
		{
			name: "entity with markup",
			doc:  `<!DOCTYPE a [<!ELEMENT a (b)><!ELEMENT b EMPTY><!ENTITY e "<b/>">]><a>&e;</a>`,
		},
		{
			name: "attribute defaults and ids",
			doc: `<!DOCTYPE list [
  <!ELEMENT list (item+)>
  <!ELEMENT item EMPTY>
  <!ATTLIST item id ID #REQUIRED next IDREF #IMPLIED kind (a|b) "a">
]>
<list><item id="i1" next="i2"/><item id="i2" kind="b"/></list>`,
		},
		{
			name: "dangling idref",
			doc: `<!DOCTYPE list [
  <!ELEMENT list (item+)>
  <!ELEMENT item EMPTY>
  <!ATTLIST item id ID #REQUIRED next IDREF #IMPLIED>
]>
<list><item id="i1" next="nope"/></list>`,
			wantCode: errors.ErrIDRefNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dtd.Validate(strings.NewReader(tt.doc))
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			violations, ok := errors.AsValidations(err)
			require.True(t, ok, "expected validation errors, got %v", err)
			require.NotEmpty(t, violations)
			assert.Equal(t, string(tt.wantCode), violations[0].Code)
		})
	}
}

func TestValidateLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		stage errors.LoadStage
	}{
		{name: "not well-formed", doc: "<a>\n<b></a>", stage: errors.StageParse},
		{name: "empty input", doc: "", stage: errors.StageParse},
		{name: "bad declaration", doc: `<!DOCTYPE a [<!ELEMENT a>]><a/>`, stage: errors.StageDTD},
		{name: "recursive entity", doc: `<!DOCTYPE a [<!ELEMENT a ANY><!ENTITY % p "&#37;p;"> %p;]><a/>`, stage: errors.StageDTD},
		{name: "recursive general entity", doc: `<!DOCTYPE a [<!ELEMENT a ANY><!ENTITY e "x&e;">]><a>&e;</a>`, stage: errors.StageParse},
		{name: "unbalanced entity markup", doc: `<!DOCTYPE a [<!ELEMENT a ANY><!ENTITY e "<a>">]><a>&e;</a>`, stage: errors.StageParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dtd.Validate(strings.NewReader(tt.doc))
			loadErr, ok := errors.AsLoad(err)
			require.True(t, ok, "expected load error, got %v", err)
			assert.Equal(t, tt.stage, loadErr.Stage)
			_, isValidation := errors.AsValidations(err)
			assert.False(t, isValidation)
		})
	}
}

func TestValidateParseErrorPosition(t *testing.T) {
	err := dtd.Validate(strings.NewReader("<a>\n<b></a>"))
	loadErr, ok := errors.AsLoad(err)
	require.True(t, ok)
	assert.Equal(t, 2, loadErr.Line)
}

func TestValidateNilReader(t *testing.T) {
	err := dtd.Validate(nil)
	loadErr, ok := errors.AsLoad(err)
	require.True(t, ok)
	assert.Equal(t, errors.StageOpen, loadErr.Stage)
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"docs/book.xml": &fstest.MapFile{Data: []byte(`<?xml version="1.0"?>
<!DOCTYPE book SYSTEM "dtd/book.dtd">
<book><title>Go</title><chapter>One</chapter></book>`)},
		"docs/dtd/book.dtd": &fstest.MapFile{Data: []byte(`<?xml version="1.0" encoding="UTF-8"?>
<!ENTITY % inline "#PCDATA">
<!ELEMENT book (title, chapter*)>
<!ELEMENT title (%inline;)>
<!ENTITY % chapters SYSTEM "chapter.ent">
%chapters;`)},
		"docs/dtd/chapter.ent": &fstest.MapFile{Data: []byte(`<!ELEMENT chapter (#PCDATA)>`)},
		"docs/orphan.xml": &fstest.MapFile{Data: []byte(`<!DOCTYPE book SYSTEM "missing.dtd"><book/>`)},
		"docs/remote.xml": &fstest.MapFile{Data: []byte(`<!DOCTYPE book SYSTEM "http://example.com/book.dtd"><book/>`)},
	}
}

func TestValidateFSExternalSubset(t *testing.T) {
	v, err := dtd.New(dtd.NewOptions())
	require.NoError(t, err)
	require.NoError(t, v.ValidateFS(testFS(), "docs/book.xml"))
}

func TestValidateFSMissingExternalSubset(t *testing.T) {
	v, err := dtd.New(dtd.NewOptions())
	require.NoError(t, err)

	err = v.ValidateFS(testFS(), "docs/orphan.xml")
	loadErr, ok := errors.AsLoad(err)
	require.True(t, ok, "expected load error, got %v", err)
	assert.Equal(t, errors.StageDTD, loadErr.Stage)
	assert.Equal(t, "docs/orphan.xml", loadErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestValidateFSRefusesNetwork(t *testing.T) {
	v, err := dtd.New(dtd.NewOptions())
	require.NoError(t, err)
	err = v.ValidateFS(testFS(), "docs/remote.xml")
	assert.ErrorIs(t, err, dtd.ErrNetworkRefused)
}

func TestValidateFSMissingDocument(t *testing.T) {
	v, err := dtd.New(dtd.NewOptions())
	require.NoError(t, err)
	err = v.ValidateFS(testFS(), "docs/none.xml")
	loadErr, ok := errors.AsLoad(err)
	require.True(t, ok)
	assert.Equal(t, errors.StageOpen, loadErr.Stage)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWithLoadExternalDisabled(t *testing.T) {
	v, err := dtd.New(dtd.NewOptions().WithLoadExternal(false))
	require.NoError(t, err)

	err = v.ValidateFS(testFS(), "docs/orphan.xml")
	violations, ok := errors.AsValidations(err)
	require.True(t, ok, "expected validation errors, got %v", err)
	assert.Equal(t, string(errors.ErrElementNotDeclared), violations[0].Code)
}

type countingResolver struct {
	mu       sync.Mutex
	inner    dtd.Resolver
	requests []dtd.ResolveRequest
}

func (r *countingResolver) Resolve(req dtd.ResolveRequest) (io.ReadCloser, string, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	return r.inner.Resolve(req)
}

func TestWithResolver(t *testing.T) {
	resolver := &countingResolver{inner: dtd.FSResolver(testFS())}
	v, err := dtd.New(dtd.NewOptions().WithResolver(resolver))
	require.NoError(t, err)

	require.NoError(t, v.ValidateFS(testFS(), "docs/book.xml"))
	require.Len(t, resolver.requests, 2)
	assert.Equal(t, dtd.ResolveExternalSubset, resolver.requests[0].Kind)
	assert.Equal(t, "docs/book.xml", resolver.requests[0].BaseSystemID)
	assert.Equal(t, dtd.ResolveParameterEntity, resolver.requests[1].Kind)
	assert.Equal(t, "docs/dtd/book.dtd", resolver.requests[1].BaseSystemID)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.dtd"), []byte(`<!ELEMENT doc (#PCDATA)>`), 0o600))
	docPath := filepath.Join(dir, "doc.xml")
	require.NoError(t, os.WriteFile(docPath, []byte(`<!DOCTYPE doc SYSTEM "doc.dtd"><doc>text</doc>`), 0o600))

	require.NoError(t, dtd.ValidateFile(docPath))

	err := dtd.ValidateFile(filepath.Join(dir, "missing.xml"))
	loadErr, ok := errors.AsLoad(err)
	require.True(t, ok)
	assert.Equal(t, errors.StageOpen, loadErr.Stage)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, dtd.NewOptions().Validate())
	assert.NoError(t, dtd.NewOptions().WithMaxDepth(0).WithMaxEntityExpansion(0).Validate())
	assert.Error(t, dtd.NewOptions().WithMaxDepth(-1).Validate())
	assert.Error(t, dtd.NewOptions().WithMaxEntityExpansion(-1).Validate())

	_, err := dtd.New(dtd.NewOptions().WithMaxDepth(-1))
	assert.Error(t, err)
}

func TestWithMaxDepth(t *testing.T) {
	doc := `<!DOCTYPE a [<!ELEMENT a ANY>]><a><a><a/></a></a>`
	v, err := dtd.New(dtd.NewOptions().WithMaxDepth(2))
	require.NoError(t, err)
	loadErr, ok := errors.AsLoad(v.Validate(strings.NewReader(doc)))
	require.True(t, ok)
	assert.Equal(t, errors.StageParse, loadErr.Stage)

	v, err = dtd.New(dtd.NewOptions().WithMaxDepth(3))
	require.NoError(t, err)
	assert.NoError(t, v.Validate(strings.NewReader(doc)))
}

func TestWithMaxEntityExpansion(t *testing.T) {
	doc := `<!DOCTYPE a [
  <!ELEMENT a (#PCDATA)>
  <!ENTITY x "xxxxxxxxxx">
  <!ENTITY y "&x;&x;&x;&x;&x;&x;&x;&x;&x;&x;">
]><a>&y;</a>`
	v, err := dtd.New(dtd.NewOptions().WithMaxEntityExpansion(50))
	require.NoError(t, err)
	err = v.Validate(strings.NewReader(doc))
	_, ok := errors.AsLoad(err)
	require.True(t, ok, "expected load error, got %v", err)

	assert.NoError(t, dtd.Validate(strings.NewReader(doc)))
}

func TestWithMaxEntityExpansionCountsEveryReference(t *testing.T) {
	doc := `<!DOCTYPE a [
  <!ELEMENT a (#PCDATA)>
  <!ENTITY e "` + strings.Repeat("x", 90) + `">
]><a>` + strings.Repeat("&e;", 1000) + `</a>`

	v, err := dtd.New(dtd.NewOptions().WithMaxEntityExpansion(100))
	require.NoError(t, err)
	err = v.Validate(strings.NewReader(doc))
	loadErr, ok := errors.AsLoad(err)
	require.True(t, ok, "expected load error, got %v", err)
	assert.Equal(t, errors.StageParse, loadErr.Stage)
	assert.Contains(t, loadErr.Error(), "exceeds limit of 100 bytes")

	assert.NoError(t, dtd.Validate(strings.NewReader(doc)))
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	v, err := dtd.New(dtd.NewOptions().WithLogger(logger))
	require.NoError(t, err)

	require.NoError(t, v.ValidateFS(testFS(), "docs/book.xml"))
	assert.Contains(t, buf.String(), "dtd loaded")
	assert.Contains(t, buf.String(), "document=docs/book.xml")
}

func TestValidateIsRepeatable(t *testing.T) {
	v, err := dtd.New(dtd.NewOptions())
	require.NoError(t, err)
	doc := `<!DOCTYPE a [<!ELEMENT a (b)><!ELEMENT b EMPTY>]><a><c/></a>`

	first := v.Validate(strings.NewReader(doc))
	second := v.Validate(strings.NewReader(doc))
	require.Error(t, first)
	assert.Equal(t, first, second)
}

func TestValidatorConcurrentUse(t *testing.T) {
	v, err := dtd.New(dtd.NewOptions())
	require.NoError(t, err)
	fsys := testFS()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Go(func() {
			errs[i] = v.ValidateFS(fsys, "docs/book.xml")
		})
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestNilValidator(t *testing.T) {
	var v *dtd.Validator
	_, ok := errors.AsLoad(v.Validate(strings.NewReader("<a/>")))
	assert.True(t, ok)
}
