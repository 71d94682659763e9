// Package source resolves the external entities a DTD refers to: the
// external subset, external parameter entities and external general entities.
package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNetworkRefused is returned for system identifiers that name a network
// resource. Entities are only read from local storage.
var ErrNetworkRefused = errors.New("network access refused")

// ResolveKind identifies the kind of entity resolution request.
type ResolveKind uint8

const (
	ResolveExternalSubset ResolveKind = iota
	ResolveParameterEntity
	ResolveGeneralEntity
)

func (k ResolveKind) String() string {
	switch k {
	case ResolveExternalSubset:
		return "external subset"
	case ResolveParameterEntity:
		return "parameter entity"
	case ResolveGeneralEntity:
		return "general entity"
	default:
		return "unknown"
	}
}

// ResolveRequest describes an entity resolution request.
type ResolveRequest struct {
	PublicID     string
	SystemID     string
	BaseSystemID string
	Kind         ResolveKind
}

// Resolver resolves entities into readers and canonical system IDs.
type Resolver interface {
	Resolve(req ResolveRequest) (doc io.ReadCloser, systemID string, err error)
}

// ReadAll resolves req and reads the whole entity.
func ReadAll(r Resolver, req ResolveRequest) (data []byte, systemID string, err error) {
	rc, systemID, err := r.Resolve(req)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", systemID, closeErr)
		}
	}()
	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", systemID, err)
	}
	return data, systemID, nil
}

// FSResolver resolves entities from an fs.FS with strict path validation.
type FSResolver struct {
	fsys fs.FS
}

// NewFSResolver creates a resolver backed by the provided filesystem.
func NewFSResolver(fsys fs.FS) *FSResolver {
	return &FSResolver{fsys: fsys}
}

// Resolve implements Resolver.
func (r *FSResolver) Resolve(req ResolveRequest) (io.ReadCloser, string, error) {
	if r == nil || r.fsys == nil {
		return nil, "", fmt.Errorf("no filesystem configured")
	}
	if req.SystemID == "" {
		return nil, "", fs.ErrNotExist
	}
	location, err := localLocation(req.SystemID)
	if err != nil {
		return nil, "", err
	}
	systemID, err := resolveSystemID(req.BaseSystemID, location)
	if err != nil {
		return nil, "", err
	}
	f, err := r.fsys.Open(systemID)
	if err != nil {
		return nil, "", err
	}
	return f, systemID, nil
}

// OSResolver resolves entities from the local filesystem. Relative system
// IDs are taken relative to the directory of the referencing entity, or the
// working directory when there is none.
type OSResolver struct{}

// NewOSResolver creates a resolver backed by the operating system.
func NewOSResolver() *OSResolver {
	return &OSResolver{}
}

// Resolve implements Resolver.
func (r *OSResolver) Resolve(req ResolveRequest) (io.ReadCloser, string, error) {
	if req.SystemID == "" {
		return nil, "", fs.ErrNotExist
	}
	location, err := localLocation(req.SystemID)
	if err != nil {
		return nil, "", err
	}
	location = filepath.FromSlash(location)
	if !filepath.IsAbs(location) && req.BaseSystemID != "" {
		location = filepath.Join(filepath.Dir(req.BaseSystemID), location)
	}
	systemID := filepath.Clean(location)
	f, err := os.Open(systemID)
	if err != nil {
		return nil, "", err
	}
	return f, systemID, nil
}

// localLocation turns a system identifier into a slash-separated path.
// file: URLs are accepted, any other scheme is refused.
func localLocation(systemID string) (string, error) {
	u, err := url.Parse(systemID)
	if err != nil || len(u.Scheme) <= 1 {
		// no scheme, or a Windows drive letter
		return systemID, nil
	}
	if strings.EqualFold(u.Scheme, "file") {
		if u.Path == "" {
			return "", fmt.Errorf("empty file URL %q", systemID)
		}
		return u.Path, nil
	}
	return "", fmt.Errorf("system ID %q: %w", systemID, ErrNetworkRefused)
}

func resolveSystemID(baseSystemID, location string) (string, error) {
	if strings.Contains(location, "\\") {
		return "", fmt.Errorf("system ID contains backslash: %q", location)
	}
	if strings.HasPrefix(location, "/") {
		return "", fmt.Errorf("system ID must be relative: %q", location)
	}
	if baseSystemID != "" && strings.Contains(baseSystemID, "\\") {
		return "", fmt.Errorf("base system ID contains backslash: %q", baseSystemID)
	}
	if slices.Contains(strings.Split(location, "/"), "") {
		return "", fmt.Errorf("invalid system ID segment: %q", location)
	}
	canonical := path.Clean(location)
	if canonical == "." {
		return "", fmt.Errorf("system ID is empty")
	}
	joined := canonical
	if baseDir := baseDirSystemID(baseSystemID); baseDir != "" {
		joined = path.Clean(baseDir + "/" + location)
	}
	if strings.HasPrefix(joined, "../") || joined == ".." {
		return "", fmt.Errorf("system ID escapes root: %q", location)
	}
	return joined, nil
}

func baseDirSystemID(systemID string) string {
	idx := strings.LastIndex(systemID, "/")
	if idx == -1 {
		return ""
	}
	return systemID[:idx]
}
