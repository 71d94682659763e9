package contentmodel

// node is the interface for syntax tree nodes used during Glushkov construction.
// Implementations compute nullable, firstPos, and lastPos lazily.
type node interface {
	nullable() bool
	firstPos() *bitset
	lastPos() *bitset
}

// leafNode represents one element name occurrence.
type leafNode struct {
	first *bitset
	pos   int
	size  int
}

func newLeaf(pos, size int) *leafNode {
	return &leafNode{pos: pos, size: size}
}

func (n *leafNode) nullable() bool { return false }

func (n *leafNode) firstPos() *bitset {
	if n.first == nil {
		n.first = newBitset(n.size)
		n.first.set(n.pos)
	}
	return n.first
}

func (n *leafNode) lastPos() *bitset {
	return n.firstPos()
}

// seqNode represents a sequence (concatenation) of two nodes.
type seqNode struct {
	left, right node
	first, last *bitset
	size        int
}

func newSeq(left, right node, size int) *seqNode {
	return &seqNode{left: left, right: right, size: size}
}

func (n *seqNode) nullable() bool {
	return n.left.nullable() && n.right.nullable()
}

func (n *seqNode) firstPos() *bitset {
	if n.first != nil {
		return n.first
	}
	n.first = newBitset(n.size)
	n.first.or(n.left.firstPos())
	if n.left.nullable() {
		n.first.or(n.right.firstPos())
	}
	return n.first
}

func (n *seqNode) lastPos() *bitset {
	if n.last != nil {
		return n.last
	}
	n.last = newBitset(n.size)
	n.last.or(n.right.lastPos())
	if n.right.nullable() {
		n.last.or(n.left.lastPos())
	}
	return n.last
}

// altNode represents a choice between two nodes.
type altNode struct {
	left, right node
	first, last *bitset
	size        int
}

func newAlt(left, right node, size int) *altNode {
	return &altNode{left: left, right: right, size: size}
}

func (n *altNode) nullable() bool {
	return n.left.nullable() || n.right.nullable()
}

func (n *altNode) firstPos() *bitset {
	if n.first != nil {
		return n.first
	}
	n.first = newBitset(n.size)
	n.first.or(n.left.firstPos())
	n.first.or(n.right.firstPos())
	return n.first
}

func (n *altNode) lastPos() *bitset {
	if n.last != nil {
		return n.last
	}
	n.last = newBitset(n.size)
	n.last.or(n.left.lastPos())
	n.last.or(n.right.lastPos())
	return n.last
}

// repeatNode covers the ?, * and + indicators. All three share the child's
// first and last positions and differ in nullability and looping.
type repeatNode struct {
	child       node
	first, last *bitset
	optional    bool
	loops       bool
}

func newOpt(child node) *repeatNode  { return &repeatNode{child: child, optional: true} }
func newStar(child node) *repeatNode { return &repeatNode{child: child, optional: true, loops: true} }
func newPlus(child node) *repeatNode { return &repeatNode{child: child, loops: true} }

func (n *repeatNode) nullable() bool {
	return n.optional || n.child.nullable()
}

func (n *repeatNode) firstPos() *bitset {
	if n.first == nil {
		n.first = n.child.firstPos().clone()
	}
	return n.first
}

func (n *repeatNode) lastPos() *bitset {
	if n.last == nil {
		n.last = n.child.lastPos().clone()
	}
	return n.last
}
