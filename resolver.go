package dtd

import (
	"io/fs"

	"github.com/jacoelho/dtd/internal/source"
)

// ResolveKind identifies the kind of entity resolution request.
type ResolveKind = source.ResolveKind

const (
	ResolveExternalSubset  ResolveKind = source.ResolveExternalSubset
	ResolveParameterEntity ResolveKind = source.ResolveParameterEntity
	ResolveGeneralEntity   ResolveKind = source.ResolveGeneralEntity
)

// ResolveRequest describes an entity resolution request.
type ResolveRequest = source.ResolveRequest

// Resolver resolves external entities into readers and canonical system IDs.
type Resolver = source.Resolver

// ErrNetworkRefused is returned for system identifiers naming a network resource.
var ErrNetworkRefused = source.ErrNetworkRefused

// FSResolver returns a resolver reading entities from fsys. System IDs must
// stay inside fsys.
func FSResolver(fsys fs.FS) Resolver {
	return source.NewFSResolver(fsys)
}

// OSResolver returns a resolver reading entities from the local filesystem.
func OSResolver() Resolver {
	return source.NewOSResolver()
}
