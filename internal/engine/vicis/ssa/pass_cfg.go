package ssa

// Dominators holds the immediate dominator of each block reachable from the entry.
type Dominators struct {
	// idoms is indexed by BasicBlockID. The entry dominates itself, and
	// unreachable blocks have BasicBlockIDInvalid.
	idoms []BasicBlockID
	// rpo is indexed by BasicBlockID and holds the reverse post order number, -1 if unreachable.
	rpo []int
	// order is the reachable blocks in reverse post order.
	order []BasicBlockID
}

// ReversePostOrder returns the reachable blocks in reverse post order.
func (d *Dominators) ReversePostOrder() []BasicBlockID {
	return d.order
}

// Reachable returns true if the block is reachable from the entry.
func (d *Dominators) Reachable(blk BasicBlockID) bool {
	return d.rpo[blk] >= 0
}

// Idom returns the immediate dominator of blk. The entry block returns itself.
func (d *Dominators) Idom(blk BasicBlockID) BasicBlockID {
	return d.idoms[blk]
}

// Dominates returns true if a dominates b. Every block dominates itself.
func (d *Dominators) Dominates(a, b BasicBlockID) bool {
	if !d.Reachable(a) || !d.Reachable(b) {
		return false
	}
	for {
		if a == b {
			return true
		}
		next := d.idoms[b]
		if next == b {
			// Reached the entry.
			return false
		}
		b = next
	}
}

// CalculateDominators calculates immediate dominators for each basic block of the function.
func (f *Function) CalculateDominators() *Dominators {
	n := f.NumBlocks()
	d := &Dominators{
		idoms: make([]BasicBlockID, n),
		rpo:   make([]int, n),
	}
	for i := range d.rpo {
		d.rpo[i] = -1
		d.idoms[i] = BasicBlockIDInvalid
	}
	if f.entryBlk == nil {
		return d
	}

	// First we push blocks in postorder iteratively visit successors of the entry block.
	const visitStateUnseen, visitStateSeen, visitStateDone = 0, 1, 2
	visited := make([]byte, n)
	postOrder := make([]BasicBlockID, 0, n)
	exploreStack := []BasicBlockID{f.entryBlk.id}
	visited[f.entryBlk.id] = visitStateSeen
	for len(exploreStack) > 0 {
		tail := len(exploreStack) - 1
		blk := exploreStack[tail]
		exploreStack = exploreStack[:tail]
		switch visited[blk] {
		case visitStateSeen:
			// This is the first time to pop this block, and we have to see the successors first.
			// So push this block again to the stack.
			exploreStack = append(exploreStack, blk)
			succs := f.Block(blk).succs
			// Push in reverse so that the first successor is explored first.
			for i := len(succs) - 1; i >= 0; i-- {
				succ := succs[i]
				if visited[succ] == visitStateUnseen {
					visited[succ] = visitStateSeen
					exploreStack = append(exploreStack, succ)
				}
			}
			// Finally, we could pop this block once we pop all of its successors.
			visited[blk] = visitStateDone
		case visitStateDone:
			postOrder = append(postOrder, blk)
		}
	}
	// Reverse the postorder.
	for i := len(postOrder)/2 - 1; i >= 0; i-- {
		j := len(postOrder) - 1 - i
		postOrder[i], postOrder[j] = postOrder[j], postOrder[i]
	}
	d.order = postOrder
	for i, blk := range d.order {
		d.rpo[blk] = i
	}

	f.calculateDominators(d)
	return d
}

// calculateDominators calculates the immediate dominator of each node in the CFG.
// The algorithm is based on the one described in the paper "A Simple, Fast Dominance Algorithm"
// https://www.cs.rice.edu/~keith/EMBED/dom.pdf which is a faster/simple alternative to the well known Lengauer-Tarjan algorithm.
func (f *Function) calculateDominators(d *Dominators) {
	doms := d.idoms
	entry := d.order[0]
	doms[entry] = entry

	for changed := true; changed; {
		changed = false
		for _, blk := range d.order[1: /* skips entry point */] {
			u := BasicBlockIDInvalid
			for _, pred := range f.Block(blk).preds {
				// Skip if this pred is not reachable yet. Note that this is not described in the paper,
				// but it is necessary to handle nested loops etc.
				if doms[pred] == BasicBlockIDInvalid {
					continue
				}
				if u == BasicBlockIDInvalid {
					u = pred
				} else {
					u = intersect(doms, d.rpo, u, pred)
				}
			}
			if doms[blk] != u {
				doms[blk] = u
				changed = true
			}
		}
	}
}

// intersect returns the common dominator of blk1 and blk2.
//
// This is the `intersect` function in the paper.
func intersect(doms []BasicBlockID, rpo []int, blk1, blk2 BasicBlockID) BasicBlockID {
	finger1, finger2 := blk1, blk2
	for finger1 != finger2 {
		// Move the 'finger1' upwards to its immediate dominator.
		for rpo[finger1] > rpo[finger2] {
			finger1 = doms[finger1]
		}
		// Move the 'finger2' upwards to its immediate dominator.
		for rpo[finger2] > rpo[finger1] {
			finger2 = doms[finger2]
		}
	}
	return finger1
}
