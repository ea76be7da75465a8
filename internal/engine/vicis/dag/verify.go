package dag

import (
	"github.com/nikandfor/errors"
)

// Verify checks the structure of the graph: each block has exactly one Root,
// the chain of each block visits every side effecting node of the block once in
// program order, and the data edges stay inside the block without forming a cycle.
func (f *Function[Op]) Verify() error {
	roots := make([]int, len(f.blocks))
	for id := 0; id < f.nodes.Allocated(); id++ {
		n := f.nodes.View(id)
		if int(n.block) >= len(f.blocks) {
			return errors.New("node %s: unknown block %d", n.id, n.block)
		}
		if n.kind == NodeKindRoot {
			roots[n.block]++
			if f.blocks[n.block].root != n.id {
				return errors.New("node %s: stray root of block %s", n.id, f.blocks[n.block].name)
			}
		}
		for _, a := range n.args {
			if int(a) >= f.nodes.Allocated() {
				return errors.New("node %s: unknown arg %s", n.id, a)
			}
			if an := f.nodes.View(int(a)); an.block != n.block {
				return errors.New("node %s: arg %s belongs to another block", n.id, a)
			} else if an.kind == NodeKindRoot {
				return errors.New("node %s: root used as arg", n.id)
			}
		}
	}

	for i := range f.blocks {
		b := &f.blocks[i]
		if roots[i] != 1 {
			return errors.New("block %s: %d roots", b.name, roots[i])
		}
		if err := f.verifyChain(b); err != nil {
			return errors.Wrap(err, "block %s", b.name)
		}
	}

	return f.verifyAcyclic()
}

// verifyChain checks that the chain of the block is exactly the chained nodes of
// the side effecting instructions of its SSA block, in program order.
func (f *Function[Op]) verifyChain(b *Block) error {
	i := 0
	for instr := f.src.Block(b.src).Root(); instr != nil; instr = instr.Next() {
		if !instr.HasSideEffects() {
			continue
		}
		if i >= len(b.effects) || b.effects[i].instr != instr.ID() {
			return errors.New("instruction %d (%s) is not chained in program order", instr.ID(), instr.Opcode())
		}
		if len(b.effects[i].nodes) == 0 {
			return errors.New("instruction %d (%s) chains no node", instr.ID(), instr.Opcode())
		}
		i++
	}
	if i < len(b.effects) {
		return errors.New("instruction %d is chained without side effects", b.effects[i].instr)
	}

	var want []NodeID
	for _, e := range b.effects {
		want = append(want, e.nodes...)
	}

	seen := map[NodeID]struct{}{}
	i = 0
	for id := f.Node(b.root).chain; id.Valid(); id = f.Node(id).chain {
		if int(id) >= f.nodes.Allocated() {
			return errors.New("chain: unknown node %s", id)
		}
		n := f.Node(id)
		if n.block != b.id {
			return errors.New("chain: node %s belongs to another block", id)
		}
		if n.kind != NodeKindInst {
			return errors.New("chain: node %s is %s", id, n.kind)
		}
		if _, ok := seen[id]; ok {
			return errors.New("chain: node %s visited twice", id)
		}
		seen[id] = struct{}{}
		if i >= len(want) || want[i] != id {
			return errors.New("chain: node %s is out of program order", id)
		}
		i++
	}
	if i < len(want) {
		return errors.New("chain: node %s is missing", want[i])
	}
	return nil
}

// verifyAcyclic runs a depth first search over the data edges.
func (f *Function[Op]) verifyAcyclic() error {
	const (
		white = iota
		grey
		black
	)
	color := make([]byte, f.nodes.Allocated())

	type frame struct {
		id  NodeID
		arg int
	}
	var stack []frame
	for start := range color {
		if color[start] != white {
			continue
		}
		stack = append(stack[:0], frame{id: NodeID(start)})
		color[start] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			args := f.Node(top.id).args
			if top.arg == len(args) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			next := args[top.arg]
			top.arg++
			switch color[next] {
			case grey:
				return errors.Wrap(ErrCycle, "node %s", next)
			case white:
				color[next] = grey
				stack = append(stack, frame{id: next})
			}
		}
	}
	return nil
}
