package contentmodel

// Mismatch describes where a child sequence left the content model.
type Mismatch struct {
	Actual     string
	Expected   []string
	Index      int
	Incomplete bool
}

// Match runs children through the automaton. It returns nil when the
// sequence is accepted. Non-deterministic models are simulated as sets of
// positions, so matching is exact even for models that fail CheckDeterminism.
func (g *Glushkov) Match(children []string) *Mismatch {
	size := len(g.Positions)
	current := newBitset(size)
	started := false

	for i, child := range children {
		candidates := g.candidates(current, started)
		next := newBitset(size)
		candidates.forEach(func(pos int) {
			if g.Positions[pos] == child {
				next.set(pos)
			}
		})
		if next.empty() {
			return &Mismatch{
				Index:    i,
				Actual:   child,
				Expected: g.names(candidates),
			}
		}
		current = next
		started = true
	}

	if !started {
		if g.Nullable {
			return nil
		}
	} else if current.intersects(g.last) {
		return nil
	}
	return &Mismatch{
		Index:      len(children),
		Expected:   g.names(g.candidates(current, started)),
		Incomplete: true,
	}
}

func (g *Glushkov) candidates(current *bitset, started bool) *bitset {
	if !started {
		return g.first
	}
	out := newBitset(len(g.Positions))
	current.forEach(func(pos int) {
		out.or(g.follow[pos])
	})
	return out
}

func (g *Glushkov) names(set *bitset) []string {
	var out []string
	seen := make(map[string]bool)
	set.forEach(func(pos int) {
		name := g.Positions[pos]
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	})
	return out
}
