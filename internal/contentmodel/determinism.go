package contentmodel

import "fmt"

// DeterminismError reports an element name that can be matched by two
// positions from the same state.
type DeterminismError struct {
	Name   string
	First  int
	Second int
}

func (e *DeterminismError) Error() string {
	return fmt.Sprintf("content model is not deterministic: element %s matches positions %d and %d", e.Name, e.First, e.Second)
}

// CheckDeterminism reports a violation if a reachable state contains two
// positions for the same element name.
func CheckDeterminism(glu *Glushkov) error {
	if glu == nil || len(glu.Positions) == 0 {
		return nil
	}
	if err := glu.checkSet(glu.first); err != nil {
		return err
	}
	for _, state := range glu.follow {
		if state == nil || state.empty() {
			continue
		}
		if err := glu.checkSet(state); err != nil {
			return err
		}
	}
	return nil
}

func (g *Glushkov) checkSet(state *bitset) error {
	seen := make(map[string]int)
	var err error
	state.forEach(func(pos int) {
		if err != nil {
			return
		}
		name := g.Positions[pos]
		if other, ok := seen[name]; ok {
			err = &DeterminismError{Name: name, First: other, Second: pos}
			return
		}
		seen[name] = pos
	})
	return err
}
