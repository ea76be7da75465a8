package dag

import (
	"fmt"
	"strings"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
	"github.com/sksat/vicis/internal/engine/vicis/vicisapi"
)

// Block is a block of the graph, mirroring an SSA block.
type Block struct {
	id BlockID
	// src is the SSA block this block is built from.
	src   ssa.BasicBlockID
	name  string
	root  NodeID
	preds []BlockID
	succs []BlockID
	// effects lists the chained nodes of each instruction in program order.
	effects []effect
}

// effect is the chained nodes of one SSA instruction.
type effect struct {
	instr ssa.InstructionID
	nodes []NodeID
}

// ID returns the BlockID.
func (b *Block) ID() BlockID { return b.id }

// Source returns the SSA block this block is built from.
func (b *Block) Source() ssa.BasicBlockID { return b.src }

// Name returns the name of the SSA block.
func (b *Block) Name() string { return b.name }

// Root returns the Root node of this block.
func (b *Block) Root() NodeID { return b.root }

// Preds returns the predecessors in the order recorded by the SSA block.
func (b *Block) Preds() []BlockID { return b.preds }

// Succs returns the successors in the order recorded by the SSA block.
func (b *Block) Succs() []BlockID { return b.succs }

// Function is the graph of one ssa.Function.
type Function[Op fmt.Stringer] struct {
	Name string
	// VRegs, Slots and Labels are the side tables shared with the direct lowering.
	// Labels is indexed by ssa.BasicBlockID.
	VRegs  *backend.VRegTable
	Slots  *backend.SlotTable
	Labels []backend.Label

	src   *ssa.Function
	nodes vicisapi.Pool[Node[Op]]
	// blocks is indexed by BlockID, which is the layout order.
	blocks []Block
	// blockIDs is indexed by ssa.BasicBlockID.
	blockIDs []BlockID
}

func newFunction[Op fmt.Stringer](f *ssa.Function) *Function[Op] {
	ret := &Function[Op]{
		Name:     f.Name(),
		src:      f,
		nodes:    vicisapi.NewPool[Node[Op]](),
		blockIDs: make([]BlockID, f.NumBlocks()),
	}

	// Mirror the block graph under the fresh ids.
	for blk := f.EntryBlock(); blk != nil; blk = blk.Next() {
		id := BlockID(len(ret.blocks))
		ret.blockIDs[blk.ID()] = id
		ret.blocks = append(ret.blocks, Block{id: id, src: blk.ID(), name: blk.Name(), root: NodeIDInvalid})
	}
	for i := range ret.blocks {
		b := &ret.blocks[i]
		src := f.Block(b.src)
		for _, p := range src.Preds() {
			b.preds = append(b.preds, ret.blockIDs[p])
		}
		for _, s := range src.Succs() {
			b.succs = append(b.succs, ret.blockIDs[s])
		}
	}
	return ret
}

// Blocks returns the blocks in the layout order.
func (f *Function[Op]) Blocks() []*Block {
	ret := make([]*Block, len(f.blocks))
	for i := range f.blocks {
		ret[i] = &f.blocks[i]
	}
	return ret
}

// Block returns the block of the id.
func (f *Function[Op]) Block(id BlockID) *Block {
	return &f.blocks[id]
}

// BlockOf returns the block built from the SSA block.
func (f *Function[Op]) BlockOf(blk ssa.BasicBlockID) *Block {
	return &f.blocks[f.blockIDs[blk]]
}

// Node returns the node of the id.
func (f *Function[Op]) Node(id NodeID) *Node[Op] {
	if int(id) >= f.nodes.Allocated() {
		panic(fmt.Sprintf("BUG: invalid node id %d", id))
	}
	return f.nodes.View(int(id))
}

// NumNodes returns the number of nodes of all blocks.
func (f *Function[Op]) NumNodes() int {
	return f.nodes.Allocated()
}

// ChainOrder returns the nodes on the chain of the block in execution order, excluding Root.
func (f *Function[Op]) ChainOrder(id BlockID) []NodeID {
	var ret []NodeID
	for n := f.Node(f.blocks[id].root).chain; n.Valid(); n = f.Node(n).chain {
		ret = append(ret, n)
	}
	return ret
}

func (f *Function[Op]) allocateNode(kind NodeKind, blk BlockID) *Node[Op] {
	id := NodeID(f.nodes.Allocated())
	n := f.nodes.Allocate()
	n.id = id
	n.kind = kind
	n.block = blk
	n.chain = NodeIDInvalid
	return n
}

// Format renders the graph block by block. Nodes are listed in id order,
// which is the creation order, followed by the chain.
func (f *Function[Op]) Format() string {
	var sb strings.Builder
	for i := range f.blocks {
		b := &f.blocks[i]
		fmt.Fprintf(&sb, "\n%s (SSA Block: %s) preds=%v succs=%v:\n", f.Labels[b.src], b.name, b.preds, b.succs)
		for id := 0; id < f.nodes.Allocated(); id++ {
			n := f.nodes.View(id)
			if n.block != b.id {
				continue
			}
			fmt.Fprintf(&sb, "\t%s = %s\n", n.id, n)
		}
		chain := []string{b.root.String()}
		for _, n := range f.ChainOrder(b.id) {
			chain = append(chain, n.String())
		}
		fmt.Fprintf(&sb, "\tchain: %s\n", strings.Join(chain, " -> "))
	}
	return sb.String()
}
