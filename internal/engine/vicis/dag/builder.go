package dag

import (
	"context"
	"fmt"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

var (
	// ErrCycle is returned when converting an instruction requires its own result.
	ErrCycle = errors.New("cyclic operand dependency")

	// ErrNodeLimit is returned when a function builds more nodes than allowed.
	ErrNodeLimit = errors.New("node limit exceeded")
)

// Converter holds the target specific rules converting one SSA instruction into nodes.
type Converter[Op fmt.Stringer] interface {
	// Convert creates the nodes for instr through b. value is the node producing the result
	// of instr, NodeIDInvalid if none. chain lists the nodes which must be executed in
	// the given order relative to the other instructions of the block, and is not empty
	// if and only if instr has side effects.
	//
	// Unsupported shapes must be reported as *backend.UnsupportedError.
	Convert(b *Builder[Op], instr *ssa.Instruction) (value NodeID, chain []NodeID, err error)
}

type convertState byte

const (
	convertStateUnseen convertState = iota
	convertStateInProgress
	convertStateDone
)

// Builder builds Function from ssa.Function with a Converter.
//
// A Builder is not goroutine-safe; use one per goroutine.
type Builder[Op fmt.Stringer] struct {
	conv     Converter[Op]
	ctx      *backend.Context
	maxNodes int

	f      *ssa.Function
	fn     *Function[Op]
	curBlk BlockID

	// states, values and chains are indexed by ssa.InstructionID.
	states []convertState
	values []NodeID
	chains [][]NodeID
}

// NewBuilder returns a new Builder.
func NewBuilder[Op fmt.Stringer](conv Converter[Op]) *Builder[Op] {
	return &Builder[Op]{conv: conv, ctx: backend.NewContext()}
}

// SetMaxNodes bounds the number of nodes a single function may build. Zero means unlimited.
func (b *Builder[Op]) SetMaxNodes(n int) {
	b.maxNodes = n
}

// Build builds the graph of f. On error, nothing is returned for f.
func (b *Builder[Op]) Build(ctx context.Context, f *ssa.Function) (_ *Function[Op], err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "build dag", "func", f.Name())
	defer tr.Finish("err", &err)

	b.ctx.Init(f)
	b.f = f
	b.fn = newFunction[Op](f)
	b.fn.VRegs, b.fn.Slots, b.fn.Labels = b.ctx.VRegs(), b.ctx.Slots(), b.ctx.Labels()
	defer func() { b.f, b.fn = nil, nil }()

	n := f.NumInstructions()
	b.states = resize(b.states, n)
	b.values = resize(b.values, n)
	b.chains = resize(b.chains, n)
	for i := 0; i < n; i++ {
		b.states[i], b.values[i], b.chains[i] = convertStateUnseen, NodeIDInvalid, nil
	}

	for blk := f.EntryBlock(); blk != nil; blk = blk.Next() {
		if err = b.buildBlock(blk); err != nil {
			return nil, errors.Wrap(err, "block %s", blk.Name())
		}
	}

	if tr.If("dump_dag") {
		tr.Printw("dag", "func", f.Name(), "nodes", b.fn.NumNodes())
		tr.Printw(b.fn.Format())
	}
	return b.fn, nil
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}

// buildBlock converts the instructions of blk from the tail to the head, and
// threads the chain nodes of each instruction in front of the ones already threaded.
func (b *Builder[Op]) buildBlock(blk *ssa.BasicBlock) error {
	b.ctx.SetCurrentBlock(blk)
	b.curBlk = b.fn.blockIDs[blk.ID()]

	root := b.fn.allocateNode(NodeKindRoot, b.curBlk)
	b.fn.blocks[b.curBlk].root = root.id

	var effects []effect
	head := NodeIDInvalid
	for cur := blk.Tail(); cur != nil; cur = cur.Prev() {
		if _, err := b.convert(cur); err != nil {
			return err
		}
		chain := b.chains[cur.ID()]
		if cur.HasSideEffects() != (len(chain) > 0) {
			return errors.New("instruction %d (%s) chained %d nodes", cur.ID(), cur.Opcode(), len(chain))
		}
		if len(chain) > 0 {
			effects = append(effects, effect{instr: cur.ID(), nodes: chain})
		}
		for i := len(chain) - 1; i >= 0; i-- {
			n := b.fn.Node(chain[i])
			if n.kind != NodeKindInst || n.block != b.curBlk {
				return errors.New("instruction %d chained %s node %s", cur.ID(), n.kind, n.id)
			}
			if n.chain.Valid() || n.id == head {
				return errors.New("instruction %d chained node %s twice", cur.ID(), n.id)
			}
			n.chain = head
			head = n.id
		}
	}
	root.chain = head

	for i, j := 0, len(effects)-1; i < j; i, j = i+1, j-1 {
		effects[i], effects[j] = effects[j], effects[i]
	}
	b.fn.blocks[b.curBlk].effects = effects
	return nil
}

// convert converts instr at most once and returns the node producing its result.
func (b *Builder[Op]) convert(instr *ssa.Instruction) (NodeID, error) {
	id := instr.ID()
	switch b.states[id] {
	case convertStateDone:
		return b.values[id], nil
	case convertStateInProgress:
		return NodeIDInvalid, errors.Wrap(ErrCycle, "instruction %d (%s)", id, instr.Opcode())
	}

	b.states[id] = convertStateInProgress
	value, chain, err := b.conv.Convert(b, instr)
	if err != nil {
		return NodeIDInvalid, err
	}
	b.states[id] = convertStateDone
	b.values[id], b.chains[id] = value, chain
	return value, nil
}

// Context returns the lowering context of the function being built.
func (b *Builder[Op]) Context() backend.CompilationContext {
	return b.ctx
}

// Function returns the SSA function being built.
func (b *Builder[Op]) Function() *ssa.Function {
	return b.f
}

func (b *Builder[Op]) allocate(kind NodeKind) (*Node[Op], error) {
	if b.maxNodes > 0 && b.fn.NumNodes() >= b.maxNodes {
		return nil, errors.Wrap(ErrNodeLimit, "%d nodes", b.maxNodes)
	}
	return b.fn.allocateNode(kind, b.curBlk), nil
}

// Inst creates a NodeKindInst node.
func (b *Builder[Op]) Inst(op Op, args ...NodeID) (NodeID, error) {
	n, err := b.allocate(NodeKindInst)
	if err != nil {
		return NodeIDInvalid, err
	}
	n.op = op
	n.args = args
	return n.id, nil
}

// Imm creates a NodeKindImm leaf.
func (b *Builder[Op]) Imm(v int64, bits int) (NodeID, error) {
	n, err := b.allocate(NodeKindImm)
	if err != nil {
		return NodeIDInvalid, err
	}
	n.imm, n.bits = v, bits
	return n.id, nil
}

// VReg creates a NodeKindVReg leaf.
func (b *Builder[Op]) VReg(v backend.VReg) (NodeID, error) {
	n, err := b.allocate(NodeKindVReg)
	if err != nil {
		return NodeIDInvalid, err
	}
	n.vreg = v
	return n.id, nil
}

// Slot creates a NodeKindSlot leaf.
func (b *Builder[Op]) Slot(s backend.SlotID) (NodeID, error) {
	n, err := b.allocate(NodeKindSlot)
	if err != nil {
		return NodeIDInvalid, err
	}
	n.slot = s
	return n.id, nil
}

// BlockRef creates a NodeKindBlock leaf referring to the SSA block.
func (b *Builder[Op]) BlockRef(blk ssa.BasicBlockID) (NodeID, error) {
	n, err := b.allocate(NodeKindBlock)
	if err != nil {
		return NodeIDInvalid, err
	}
	n.label = b.ctx.Label(blk)
	n.target = b.fn.blockIDs[blk]
	return n.id, nil
}

// Operand returns the node producing v for an instruction of the current block.
// A value produced by another instruction of the current block is converted first
// and its node is returned. Any other value, including the address of a stack
// slot, becomes a new leaf.
func (b *Builder[Op]) Operand(v ssa.ValueID) (NodeID, error) {
	if _, ok := b.ctx.SlotOf(v); ok {
		return b.Leaf(v)
	}
	def := b.ctx.ValueDefinition(v)
	if def.IsFromInstr() && def.Instr.Block() == b.ctx.CurrentBlock().ID() {
		return b.convert(def.Instr)
	}
	return b.Leaf(v)
}

// Leaf returns a new leaf node for v without converting its producer.
// This is used for the incoming values of phis, which keeps the data edges acyclic.
func (b *Builder[Op]) Leaf(v ssa.ValueID) (NodeID, error) {
	if s, ok := b.ctx.SlotOf(v); ok {
		return b.Slot(s)
	}
	def := b.ctx.ValueDefinition(v)
	if def.IsConst() {
		return b.Imm(def.Const, b.f.Types().IntBits(b.f.ValueType(v)))
	}
	r, err := b.ctx.ValueVReg(v)
	if err != nil {
		return NodeIDInvalid, err
	}
	return b.VReg(r)
}
