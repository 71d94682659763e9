package dtd

import (
	"cmp"
	"fmt"
)

const (
	defaultXMLMaxDepth        = 256
	defaultMaxEntityExpansion = 1 << 20
)

type xmlParseLimits struct {
	maxDepth           int
	maxEntityExpansion int
}

func resolveXMLParseLimits(maxDepth, maxEntityExpansion int) (xmlParseLimits, error) {
	if maxDepth < 0 {
		return xmlParseLimits{}, fmt.Errorf("xml max depth must be >= 0")
	}
	if maxEntityExpansion < 0 {
		return xmlParseLimits{}, fmt.Errorf("max entity expansion must be >= 0")
	}
	return xmlParseLimits{
		maxDepth:           defaultXMLLimit(maxDepth, defaultXMLMaxDepth),
		maxEntityExpansion: defaultXMLLimit(maxEntityExpansion, defaultMaxEntityExpansion),
	}, nil
}

func defaultXMLLimit(value, fallback int) int {
	return cmp.Or(value, fallback)
}
