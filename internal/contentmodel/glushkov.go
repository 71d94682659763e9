// Package contentmodel compiles DTD children content models into Glushkov
// automata and matches child element sequences against them.
package contentmodel

import (
	"fmt"

	"github.com/jacoelho/dtd/internal/model"
)

// Glushkov contains the compiled position sets and followpos relations.
// Position i stands for the i-th element name occurrence in the model,
// counted left to right.
type Glushkov struct {
	first     *bitset
	last      *bitset
	follow    []*bitset
	Positions []string
	Nullable  bool
}

// BuildGlushkov compiles a children content particle.
func BuildGlushkov(particle *model.Particle) (*Glushkov, error) {
	if particle == nil {
		return nil, fmt.Errorf("nil content particle")
	}
	size, err := countPositions(particle)
	if err != nil {
		return nil, err
	}
	b := &builder{
		size:      size,
		positions: make([]string, 0, size),
		follow:    make([]*bitset, size),
	}
	for i := range b.follow {
		b.follow[i] = newBitset(size)
	}

	root, err := b.buildParticle(particle)
	if err != nil {
		return nil, err
	}
	if len(b.positions) != size {
		return nil, fmt.Errorf("glushkov position count mismatch: got %d, want %d", len(b.positions), size)
	}

	b.computeFollowPos(root)
	return &Glushkov{
		Positions: b.positions,
		Nullable:  root.nullable(),
		first:     root.firstPos(),
		last:      root.lastPos(),
		follow:    b.follow,
	}, nil
}

// First returns the positions that may start the content.
func (g *Glushkov) First() []int { return g.first.positions() }

// Last returns the positions that may end the content.
func (g *Glushkov) Last() []int { return g.last.positions() }

// Follow returns the positions that may come after position pos.
func (g *Glushkov) Follow(pos int) []int { return g.follow[pos].positions() }

type builder struct {
	positions []string
	follow    []*bitset
	size      int
}

func countPositions(particle *model.Particle) (int, error) {
	switch particle.Kind {
	case model.ParticleName:
		return 1, nil
	case model.ParticleSequence, model.ParticleChoice:
		if len(particle.Children) == 0 {
			return 0, fmt.Errorf("empty content group")
		}
		total := 0
		for _, child := range particle.Children {
			count, err := countPositions(child)
			if err != nil {
				return 0, err
			}
			total += count
		}
		return total, nil
	default:
		return 0, fmt.Errorf("unsupported particle kind %d", particle.Kind)
	}
}

func (b *builder) buildParticle(particle *model.Particle) (node, error) {
	inner, err := b.buildSingle(particle)
	if err != nil {
		return nil, err
	}
	switch particle.Occurs {
	case model.OccursOptional:
		return newOpt(inner), nil
	case model.OccursZeroOrMore:
		return newStar(inner), nil
	case model.OccursOneOrMore:
		return newPlus(inner), nil
	default:
		return inner, nil
	}
}

func (b *builder) buildSingle(particle *model.Particle) (node, error) {
	switch particle.Kind {
	case model.ParticleName:
		pos := len(b.positions)
		b.positions = append(b.positions, particle.Name)
		return newLeaf(pos, b.size), nil
	case model.ParticleSequence:
		return b.buildGroup(particle.Children, func(left, right node) node {
			return newSeq(left, right, b.size)
		})
	case model.ParticleChoice:
		return b.buildGroup(particle.Children, func(left, right node) node {
			return newAlt(left, right, b.size)
		})
	default:
		return nil, fmt.Errorf("unsupported particle kind %d", particle.Kind)
	}
}

func (b *builder) buildGroup(particles []*model.Particle, join func(left, right node) node) (node, error) {
	var result node
	for _, particle := range particles {
		child, err := b.buildParticle(particle)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = child
			continue
		}
		result = join(result, child)
	}
	if result == nil {
		return nil, fmt.Errorf("empty content group")
	}
	return result, nil
}
