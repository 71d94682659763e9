package source

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSResolverRelativeToBase(t *testing.T) {
	fsys := fstest.MapFS{
		"docs/dtd/book.dtd":    &fstest.MapFile{Data: []byte("<!ELEMENT book ANY>")},
		"docs/dtd/chapter.ent": &fstest.MapFile{Data: []byte("<!ELEMENT chapter ANY>")},
	}
	r := NewFSResolver(fsys)

	data, systemID, err := ReadAll(r, ResolveRequest{SystemID: "dtd/book.dtd", BaseSystemID: "docs/book.xml"})
	require.NoError(t, err)
	assert.Equal(t, "docs/dtd/book.dtd", systemID)
	assert.Equal(t, "<!ELEMENT book ANY>", string(data))

	_, systemID, err = ReadAll(r, ResolveRequest{SystemID: "chapter.ent", BaseSystemID: systemID, Kind: ResolveParameterEntity})
	require.NoError(t, err)
	assert.Equal(t, "docs/dtd/chapter.ent", systemID)
}

func TestFSResolverRejectsUnsafeLocations(t *testing.T) {
	r := NewFSResolver(fstest.MapFS{})
	tests := []struct {
		name string
		req  ResolveRequest
	}{
		{name: "absolute", req: ResolveRequest{SystemID: "/etc/passwd"}},
		{name: "backslash", req: ResolveRequest{SystemID: `dtd\book.dtd`}},
		{name: "escape", req: ResolveRequest{SystemID: "../secret.dtd", BaseSystemID: "doc.xml"}},
		{name: "empty segment", req: ResolveRequest{SystemID: "a//b.dtd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.Resolve(tt.req)
			require.Error(t, err)
		})
	}

	_, _, err := r.Resolve(ResolveRequest{})
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolversRefuseNetwork(t *testing.T) {
	for _, r := range []Resolver{NewFSResolver(fstest.MapFS{}), NewOSResolver()} {
		for _, systemID := range []string{
			"http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd",
			"https://example.com/doc.dtd",
			"ftp://example.com/doc.dtd",
		} {
			_, _, err := r.Resolve(ResolveRequest{SystemID: systemID})
			assert.ErrorIs(t, err, ErrNetworkRefused, systemID)
		}
	}
}

func TestOSResolver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dtd"), 0o755))
	dtdPath := filepath.Join(dir, "dtd", "doc.dtd")
	require.NoError(t, os.WriteFile(dtdPath, []byte("<!ELEMENT doc EMPTY>"), 0o600))

	r := NewOSResolver()
	data, systemID, err := ReadAll(r, ResolveRequest{
		SystemID:     "dtd/doc.dtd",
		BaseSystemID: filepath.Join(dir, "doc.xml"),
	})
	require.NoError(t, err)
	assert.Equal(t, dtdPath, systemID)
	assert.Equal(t, "<!ELEMENT doc EMPTY>", string(data))

	_, systemID, err = ReadAll(r, ResolveRequest{SystemID: "file://" + filepath.ToSlash(dtdPath)})
	require.NoError(t, err)
	assert.Equal(t, dtdPath, systemID)

	_, _, err = r.Resolve(ResolveRequest{SystemID: "missing.dtd", BaseSystemID: filepath.Join(dir, "doc.xml")})
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

type stubResolver struct {
	rc  *testReadCloser
	err error
}

func (s stubResolver) Resolve(ResolveRequest) (io.ReadCloser, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.rc, "stub.dtd", nil
}

func TestReadAllClosesReader(t *testing.T) {
	rc := &testReadCloser{reader: strings.NewReader("data")}
	data, systemID, err := ReadAll(stubResolver{rc: rc}, ResolveRequest{SystemID: "stub.dtd"})
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
	assert.Equal(t, "stub.dtd", systemID)
	assert.True(t, rc.closed)
	assert.Equal(t, 1, rc.closeCount)
}

func TestReadAllCloseError(t *testing.T) {
	closeErr := errors.New("close failed")
	rc := &testReadCloser{reader: strings.NewReader("data"), closeErr: closeErr}
	_, _, err := ReadAll(stubResolver{rc: rc}, ResolveRequest{SystemID: "stub.dtd"})
	assert.ErrorIs(t, err, closeErr)
}

func TestReadAllResolveError(t *testing.T) {
	_, _, err := ReadAll(stubResolver{err: fs.ErrPermission}, ResolveRequest{SystemID: "stub.dtd"})
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestResolveKindString(t *testing.T) {
	assert.Equal(t, "external subset", ResolveExternalSubset.String())
	assert.Equal(t, "parameter entity", ResolveParameterEntity.String())
	assert.Equal(t, "general entity", ResolveGeneralEntity.String())
}
