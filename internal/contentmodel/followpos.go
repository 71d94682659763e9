package contentmodel

func (b *builder) computeFollowPos(n node) {
	switch v := n.(type) {
	case *seqNode:
		b.computeFollowPos(v.left)
		b.computeFollowPos(v.right)
		v.left.lastPos().forEach(func(pos int) {
			b.follow[pos].or(v.right.firstPos())
		})
	case *altNode:
		b.computeFollowPos(v.left)
		b.computeFollowPos(v.right)
	case *repeatNode:
		b.computeFollowPos(v.child)
		if v.loops {
			v.child.lastPos().forEach(func(pos int) {
				b.follow[pos].or(v.child.firstPos())
			})
		}
	case *leafNode:
		return
	}
}
