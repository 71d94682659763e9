package contentmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacoelho/dtd/internal/model"
)

func TestGlushkovSequence(t *testing.T) {
	glu, err := BuildGlushkov(sequence(model.OccursOnce, elem("a", model.OccursOnce), elem("b", model.OccursOnce)))
	require.NoError(t, err)

	assert.False(t, glu.Nullable)
	assert.Equal(t, []string{"a", "b"}, glu.Positions)
	assert.Equal(t, []int{0}, glu.First())
	assert.Equal(t, []int{1}, glu.Last())
	assert.Equal(t, []int{1}, glu.Follow(0))
	assert.Empty(t, glu.Follow(1))
}

func TestGlushkovChoice(t *testing.T) {
	glu, err := BuildGlushkov(choice(model.OccursOnce, elem("a", model.OccursOnce), elem("b", model.OccursOnce)))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, glu.First())
	assert.Equal(t, []int{0, 1}, glu.Last())
	assert.Empty(t, glu.Follow(0))
	assert.Empty(t, glu.Follow(1))
}

func TestGlushkovNullableSequence(t *testing.T) {
	glu, err := BuildGlushkov(sequence(model.OccursOnce, elem("a", model.OccursOptional), elem("b", model.OccursOnce)))
	require.NoError(t, err)

	assert.False(t, glu.Nullable)
	assert.Equal(t, []int{0, 1}, glu.First())
	assert.Equal(t, []int{1}, glu.Last())
	assert.Equal(t, []int{1}, glu.Follow(0))
}

func TestGlushkovStar(t *testing.T) {
	glu, err := BuildGlushkov(sequence(model.OccursOnce, elem("a", model.OccursZeroOrMore)))
	require.NoError(t, err)

	assert.True(t, glu.Nullable)
	assert.Equal(t, []int{0}, glu.First())
	assert.Equal(t, []int{0}, glu.Last())
	assert.Equal(t, []int{0}, glu.Follow(0))
}

func TestGlushkovPlusGroup(t *testing.T) {
	// (a,b)+
	glu, err := BuildGlushkov(sequence(model.OccursOneOrMore, elem("a", model.OccursOnce), elem("b", model.OccursOnce)))
	require.NoError(t, err)

	assert.False(t, glu.Nullable)
	assert.Equal(t, []int{1}, glu.Follow(0))
	assert.Equal(t, []int{0}, glu.Follow(1))
	assert.Equal(t, []int{1}, glu.Last())
}

func TestGlushkovRejectsEmptyGroup(t *testing.T) {
	_, err := BuildGlushkov(&model.Particle{Kind: model.ParticleSequence})
	require.Error(t, err)
	_, err = BuildGlushkov(nil)
	require.Error(t, err)
}

func TestCheckDeterminism(t *testing.T) {
	tests := []struct {
		name     string
		particle *model.Particle
		wantErr  bool
	}{
		{
			name:     "sequence",
			particle: sequence(model.OccursOnce, elem("a", model.OccursOnce), elem("b", model.OccursOnce)),
		},
		{
			name: "factored choice",
			particle: sequence(model.OccursOnce,
				elem("a", model.OccursOnce),
				choice(model.OccursOnce, elem("b", model.OccursOnce), elem("c", model.OccursOnce)),
			),
		},
		{
			name: "ambiguous choice",
			particle: choice(model.OccursOnce,
				sequence(model.OccursOnce, elem("a", model.OccursOnce), elem("b", model.OccursOnce)),
				sequence(model.OccursOnce, elem("a", model.OccursOnce), elem("c", model.OccursOnce)),
			),
			wantErr: true,
		},
		{
			name:     "optional followed by same name",
			particle: sequence(model.OccursOnce, elem("a", model.OccursOptional), elem("a", model.OccursOnce)),
			wantErr:  true,
		},
		{
			name:     "star followed by same name",
			particle: sequence(model.OccursOnce, elem("a", model.OccursZeroOrMore), elem("a", model.OccursOnce)),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			glu, err := BuildGlushkov(tt.particle)
			require.NoError(t, err)
			err = CheckDeterminism(glu)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var detErr *DeterminismError
			require.ErrorAs(t, err, &detErr)
			assert.Equal(t, "a", detErr.Name)
		})
	}
}

func TestMatch(t *testing.T) {
	// (head,(p|list)*,foot?)
	glu, err := BuildGlushkov(sequence(model.OccursOnce,
		elem("head", model.OccursOnce),
		choice(model.OccursZeroOrMore, elem("p", model.OccursOnce), elem("list", model.OccursOnce)),
		elem("foot", model.OccursOptional),
	))
	require.NoError(t, err)

	accepted := [][]string{
		{"head"},
		{"head", "p", "list", "p"},
		{"head", "foot"},
		{"head", "list", "foot"},
	}
	for _, children := range accepted {
		assert.Nil(t, glu.Match(children), "children %v", children)
	}

	m := glu.Match(nil)
	require.NotNil(t, m)
	assert.True(t, m.Incomplete)
	assert.Equal(t, []string{"head"}, m.Expected)

	m = glu.Match([]string{"head", "foot", "p"})
	require.NotNil(t, m)
	assert.False(t, m.Incomplete)
	assert.Equal(t, 2, m.Index)
	assert.Equal(t, "p", m.Actual)
	assert.Empty(t, m.Expected)

	m = glu.Match([]string{"p"})
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Index)
	assert.Equal(t, []string{"head"}, m.Expected)
}

func TestMatchIncompleteSequence(t *testing.T) {
	glu, err := BuildGlushkov(sequence(model.OccursOnce, elem("a", model.OccursOnce), elem("b", model.OccursOnce)))
	require.NoError(t, err)

	m := glu.Match([]string{"a"})
	require.NotNil(t, m)
	assert.True(t, m.Incomplete)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, []string{"b"}, m.Expected)
}

func TestMatchNullable(t *testing.T) {
	glu, err := BuildGlushkov(choice(model.OccursZeroOrMore, elem("a", model.OccursOnce), elem("b", model.OccursOnce)))
	require.NoError(t, err)
	assert.Nil(t, glu.Match(nil))
	assert.Nil(t, glu.Match([]string{"b", "a", "b"}))
}

func elem(name string, occurs model.Occurs) *model.Particle {
	return &model.Particle{Kind: model.ParticleName, Name: name, Occurs: occurs}
}

func sequence(occurs model.Occurs, children ...*model.Particle) *model.Particle {
	return &model.Particle{Kind: model.ParticleSequence, Occurs: occurs, Children: children}
}

func choice(occurs model.Occurs, children ...*model.Particle) *model.Particle {
	return &model.Particle{Kind: model.ParticleChoice, Occurs: occurs, Children: children}
}
