package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func name(n string, occ Occurs) *Particle {
	return &Particle{Kind: ParticleName, Name: n, Occurs: occ}
}

func TestParticleString(t *testing.T) {
	p := &Particle{
		Kind: ParticleSequence,
		Children: []*Particle{
			name("head", OccursOnce),
			{Kind: ParticleChoice, Occurs: OccursOneOrMore, Children: []*Particle{
				name("p", OccursOnce),
				name("list", OccursOptional),
			}},
			name("foot", OccursZeroOrMore),
		},
	}
	assert.Equal(t, "(head,(p|list?)+,foot*)", p.String())
	assert.Equal(t, "", (*Particle)(nil).String())
}

func TestElementContentString(t *testing.T) {
	assert.Equal(t, "EMPTY", (&ElementDecl{Content: ContentEmpty}).ContentString())
	assert.Equal(t, "ANY", (&ElementDecl{Content: ContentAny}).ContentString())
	assert.Equal(t, "(#PCDATA)", (&ElementDecl{Content: ContentMixed}).ContentString())
	assert.Equal(t, "(#PCDATA|a|b)*", (&ElementDecl{Content: ContentMixed, Mixed: []string{"a", "b"}}).ContentString())
}

func TestAttListFirstBindingWins(t *testing.T) {
	list := NewAttList("e")
	first := &AttributeDecl{Element: "e", Name: "a", Type: AttID}
	second := &AttributeDecl{Element: "e", Name: "a", Type: AttCDATA}

	assert.True(t, list.Add(first))
	assert.False(t, list.Add(second))

	got, ok := list.Lookup("a")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Len(t, list.Attrs, 1)

	var nilList *AttList
	_, ok = nilList.Lookup("a")
	assert.False(t, ok)
}

func TestDTDDeclarations(t *testing.T) {
	d := New("doc")
	d.AddElement(&ElementDecl{Name: "doc", Content: ContentAny})
	d.AddElement(&ElementDecl{Name: "doc", Content: ContentEmpty})
	assert.Equal(t, ContentAny, d.Elements["doc"].Content)
	assert.Len(t, d.DuplicateElements, 1)
	assert.Equal(t, []string{"doc"}, d.ElementOrder)

	assert.True(t, d.AddEntity(&EntityDecl{Name: "x", Value: "1"}))
	assert.False(t, d.AddEntity(&EntityDecl{Name: "x", Value: "2"}))
	assert.True(t, d.AddEntity(&EntityDecl{Name: "x", Value: "3", Parameter: true}))
	assert.Equal(t, "1", d.Entities["x"].Value)
	assert.Equal(t, "3", d.ParamEntities["x"].Value)

	assert.True(t, d.AddEntity(&EntityDecl{Name: "pic", SystemID: "a.gif", Notation: "gif", External: true}))
	assert.Equal(t, []string{"pic"}, d.UnparsedOrder)

	assert.True(t, d.AddNotation(&NotationDecl{Name: "gif"}))
	assert.False(t, d.AddNotation(&NotationDecl{Name: "gif"}))

	assert.Same(t, d.AttList("doc"), d.AttList("doc"))
	assert.Equal(t, []string{"doc"}, d.AttlistOrder)
}
