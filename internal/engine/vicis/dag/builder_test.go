package dag

import (
	"context"
	"strings"
	"testing"

	"github.com/nikandfor/errors"
	"github.com/stretchr/testify/require"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

type testOp string

func (o testOp) String() string { return string(o) }

// testConverter turns every instruction into one node named after its opcode,
// and chains the ones with side effects. Calls are unsupported.
type testConverter struct{}

func (testConverter) Convert(b *Builder[testOp], instr *ssa.Instruction) (NodeID, []NodeID, error) {
	var args []NodeID
	switch instr.Opcode() {
	case ssa.OpcodeAlloca:
		return NodeIDInvalid, nil, nil
	case ssa.OpcodeCall:
		return NodeIDInvalid, nil, backend.Unsupported(b.Context(), instr, "call")
	case ssa.OpcodePhi:
		values, preds := instr.PhiData()
		for i, v := range values {
			leaf, err := b.Leaf(v)
			if err != nil {
				return NodeIDInvalid, nil, err
			}
			blk, err := b.BlockRef(preds[i])
			if err != nil {
				return NodeIDInvalid, nil, err
			}
			args = append(args, leaf, blk)
		}
	default:
		for _, v := range instr.Args(nil) {
			n, err := b.Operand(v)
			if err != nil {
				return NodeIDInvalid, nil, err
			}
			args = append(args, n)
		}
		for _, t := range instr.Targets() {
			n, err := b.BlockRef(t)
			if err != nil {
				return NodeIDInvalid, nil, err
			}
			args = append(args, n)
		}
	}

	n, err := b.Inst(testOp(instr.Opcode().String()), args...)
	if err != nil {
		return NodeIDInvalid, nil, err
	}
	if instr.HasSideEffects() {
		return n, []NodeID{n}, nil
	}
	return n, nil, nil
}

// dropChainConverter is testConverter chaining nothing for the opcode.
type dropChainConverter struct{ opcode ssa.Opcode }

func (c dropChainConverter) Convert(b *Builder[testOp], instr *ssa.Instruction) (NodeID, []NodeID, error) {
	n, chain, err := testConverter{}.Convert(b, instr)
	if instr.Opcode() == c.opcode {
		chain = nil
	}
	return n, chain, err
}

// buildLoop builds
//
//	entry:
//	  br label %head
//	head:
//	  %i = phi i32 [ 0, %entry ], [ %next, %body ]
//	  %c = icmp slt i32 %i, %a0
//	  br i1 %c, label %body, label %exit
//	body:
//	  %next = add i32 %i, 1
//	  br label %head
//	exit:
//	  ret i32 %i
func buildLoop() *ssa.Function {
	m := ssa.NewModule("test")
	i32 := m.Types.Int(32)
	f := m.NewFunction("loop", m.Types.Function(i32, []ssa.TypeID{i32}, false))

	entry := f.AllocateBasicBlock("entry")
	head := f.AllocateBasicBlock("head")
	body := f.AllocateBasicBlock("body")
	exit := f.AllocateBasicBlock("exit")

	br := f.AllocateInstruction()
	br.AsBr(head.ID())
	f.InsertInstruction(entry, br)

	phi := f.AllocateInstruction()
	next := f.AllocateInstruction()
	next.AsIntBinary(ssa.IntBinaryOpAdd, i32, phi.Result(), f.ConstInt(32, 1))
	phi.AsPhi(i32, []ssa.ValueID{f.ConstInt(32, 0), next.Result()}, []ssa.BasicBlockID{entry.ID(), body.ID()})
	f.InsertInstruction(head, phi)

	cmp := f.AllocateInstruction()
	cmp.AsIcmp(ssa.IntegerCmpCondSignedLessThan, m.Types.Int(1), phi.Result(), f.Param(0))
	f.InsertInstruction(head, cmp)

	condBr := f.AllocateInstruction()
	condBr.AsCondBr(cmp.Result(), body.ID(), exit.ID())
	f.InsertInstruction(head, condBr)

	f.InsertInstruction(body, next)
	back := f.AllocateInstruction()
	back.AsBr(head.ID())
	f.InsertInstruction(body, back)

	ret := f.AllocateInstruction()
	ret.AsRet(phi.Result())
	f.InsertInstruction(exit, ret)
	return f
}

// buildStoreLoad builds
//
//	entry:
//	  %p = alloca i32
//	  store i32 7, i32* %p
//	  %v = load i32, i32* %p
//	  ret i32 %v
func buildStoreLoad() *ssa.Function {
	m := ssa.NewModule("test")
	i32 := m.Types.Int(32)
	f := m.NewFunction("storeload", m.Types.Function(i32, nil, false))
	entry := f.AllocateBasicBlock("entry")

	alloca := f.AllocateInstruction()
	alloca.AsAlloca(m.Types.Pointer(i32), i32, 1, 4)
	f.InsertInstruction(entry, alloca)

	store := f.AllocateInstruction()
	store.AsStore(f.ConstInt(32, 7), alloca.Result())
	f.InsertInstruction(entry, store)

	load := f.AllocateInstruction()
	load.AsLoad(i32, alloca.Result())
	f.InsertInstruction(entry, load)

	ret := f.AllocateInstruction()
	ret.AsRet(load.Result())
	f.InsertInstruction(entry, ret)
	return f
}

func ops(f *Function[testOp], ids []NodeID) (ret []string) {
	for _, id := range ids {
		ret = append(ret, f.Node(id).Op().String())
	}
	return
}

func TestBuilder_Build(t *testing.T) {
	f := buildLoop()
	fn, err := NewBuilder[testOp](testConverter{}).Build(context.Background(), f)
	require.NoError(t, err)
	require.NoError(t, fn.Verify())

	blocks := fn.Blocks()
	require.Equal(t, 4, len(blocks))
	for i, blk := range blocks {
		require.Equal(t, BlockID(i), blk.ID())
		require.Equal(t, ssa.BasicBlockID(i), blk.Source())
		require.Equal(t, NodeKindRoot, fn.Node(blk.Root()).Kind())
		require.Equal(t, blk, fn.BlockOf(blk.Source()))
	}
	require.Equal(t, []BlockID{0, 2}, blocks[1].Preds())
	require.Equal(t, []BlockID{2, 3}, blocks[1].Succs())

	for _, tc := range []struct {
		blk   BlockID
		chain []string
	}{
		{blk: 0, chain: []string{"Br"}},
		{blk: 1, chain: []string{"Phi", "CondBr"}},
		{blk: 2, chain: []string{"Br"}},
		{blk: 3, chain: []string{"Ret"}},
	} {
		require.Equal(t, tc.chain, ops(fn, fn.ChainOrder(tc.blk)), blocks[tc.blk].Name())
	}

	// The compare is not chained but hangs from the conditional branch.
	head := fn.ChainOrder(1)
	phi, condBr := fn.Node(head[0]), fn.Node(head[1])
	cmp := fn.Node(condBr.Args()[0])
	require.Equal(t, testOp("Icmp"), cmp.Op())
	require.Equal(t, phi.ID(), cmp.Args()[0])
	require.Equal(t, NodeKindVReg, fn.Node(cmp.Args()[1]).Kind())
	// a0, phi, icmp and add.
	require.Equal(t, 4, fn.VRegs.Len())

	label, target := fn.Node(condBr.Args()[1]).Label()
	require.Equal(t, backend.Label(3), label)
	require.Equal(t, BlockID(2), target)

	// Incoming values of the phi are always leaves.
	require.Equal(t, 4, len(phi.Args()))
	v, bits := fn.Node(phi.Args()[0]).Imm()
	require.Equal(t, int64(0), v)
	require.Equal(t, 32, bits)
	require.Equal(t, NodeKindVReg, fn.Node(phi.Args()[2]).Kind())

	formatted := fn.Format()
	require.True(t, strings.Contains(formatted, "\nL2 (SSA Block: head) preds=[0 2] succs=[2 3]:\n"), formatted)
	require.True(t, strings.Contains(formatted, "\tchain: n"), formatted)
}

func TestBuilder_Build_storeLoad(t *testing.T) {
	f := buildStoreLoad()
	fn, err := NewBuilder[testOp](testConverter{}).Build(context.Background(), f)
	require.NoError(t, err)
	require.NoError(t, fn.Verify())

	// The load is converted first as the operand of ret, but keeps its position in the chain.
	chain := fn.ChainOrder(0)
	require.Equal(t, []string{"Store", "Load", "Ret"}, ops(fn, chain))
	store, load, ret := fn.Node(chain[0]), fn.Node(chain[1]), fn.Node(chain[2])
	require.Equal(t, load.ID(), ret.Args()[0])

	require.Equal(t, NodeKindSlot, fn.Node(load.Args()[0]).Kind())
	require.Equal(t, backend.SlotID(0), fn.Node(load.Args()[0]).Slot())
	require.Equal(t, NodeKindImm, fn.Node(store.Args()[0]).Kind())
	require.Equal(t, NodeKindSlot, fn.Node(store.Args()[1]).Kind())
	require.Equal(t, 1, fn.Slots.Len())
}

func TestBuilder_Build_errors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		m := ssa.NewModule("test")
		i32 := m.Types.Int(32)
		f := m.NewFunction("cycle", m.Types.Function(i32, nil, false))
		entry := f.AllocateBasicBlock("entry")
		a, b := f.AllocateInstruction(), f.AllocateInstruction()
		a.AsIntBinary(ssa.IntBinaryOpAdd, i32, b.Result(), f.ConstInt(32, 1))
		b.AsIntBinary(ssa.IntBinaryOpAdd, i32, a.Result(), f.ConstInt(32, 1))
		f.InsertInstruction(entry, a)
		f.InsertInstruction(entry, b)
		ret := f.AllocateInstruction()
		ret.AsRet(b.Result())
		f.InsertInstruction(entry, ret)

		_, err := NewBuilder[testOp](testConverter{}).Build(context.Background(), f)
		require.True(t, errors.Is(err, ErrCycle), "%v", err)
	})

	t.Run("unsupported", func(t *testing.T) {
		m := ssa.NewModule("test")
		i32 := m.Types.Int(32)
		f := m.NewFunction("call", m.Types.Function(i32, nil, false))
		entry := f.AllocateBasicBlock("entry")
		call := f.AllocateInstruction()
		call.AsCall(i32, "g", nil)
		f.InsertInstruction(entry, call)
		ret := f.AllocateInstruction()
		ret.AsRet(call.Result())
		f.InsertInstruction(entry, ret)

		_, err := NewBuilder[testOp](testConverter{}).Build(context.Background(), f)
		var uerr *backend.UnsupportedError
		require.True(t, errors.As(err, &uerr), "%v", err)
		require.Equal(t, ssa.OpcodeCall, uerr.Opcode)
		require.Equal(t, "call", uerr.Function)
	})

	t.Run("unchained side effect", func(t *testing.T) {
		_, err := NewBuilder[testOp](dropChainConverter{opcode: ssa.OpcodeStore}).Build(context.Background(), buildStoreLoad())
		require.Error(t, err)
		require.Contains(t, err.Error(), "instruction 1 (Store) chained 0 nodes")
	})

	t.Run("node limit", func(t *testing.T) {
		b := NewBuilder[testOp](testConverter{})
		b.SetMaxNodes(3)
		_, err := b.Build(context.Background(), buildStoreLoad())
		require.True(t, errors.Is(err, ErrNodeLimit), "%v", err)

		// The same builder is usable for the next function.
		b.SetMaxNodes(0)
		fn, err := b.Build(context.Background(), buildLoop())
		require.NoError(t, err)
		require.NoError(t, fn.Verify())
	})
}

func TestFunction_Verify(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(fn *Function[testOp])
		err   string
	}{
		{
			name: "leaf chained",
			setup: func(fn *Function[testOp]) {
				// The first arg of the store is the immediate 7.
				store := fn.Node(fn.ChainOrder(0)[0])
				store.chain = store.args[0]
			},
			err: "is imm",
		},
		{
			name: "chain loop",
			setup: func(fn *Function[testOp]) {
				chain := fn.ChainOrder(0)
				fn.Node(chain[2]).chain = chain[0]
			},
			err: "visited twice",
		},
		{
			name: "missing side effect",
			setup: func(fn *Function[testOp]) {
				chain := fn.ChainOrder(0)
				fn.Node(chain[1]).chain = NodeIDInvalid
			},
			err: "is missing",
		},
		{
			name: "skipped side effect",
			setup: func(fn *Function[testOp]) {
				chain := fn.ChainOrder(0)
				fn.Node(chain[0]).chain = chain[2]
			},
			err: "is out of program order",
		},
		{
			name: "reordered side effects",
			setup: func(fn *Function[testOp]) {
				// store, load, ret becomes load, store, ret.
				chain := fn.ChainOrder(0)
				fn.Node(fn.blocks[0].root).chain = chain[1]
				fn.Node(chain[1]).chain = chain[0]
				fn.Node(chain[0]).chain = chain[2]
			},
			err: "is out of program order",
		},
		{
			name: "unrecorded instruction",
			setup: func(fn *Function[testOp]) {
				fn.blocks[0].effects = fn.blocks[0].effects[1:]
			},
			err: "(Store) is not chained in program order",
		},
		{
			name: "data cycle",
			setup: func(fn *Function[testOp]) {
				chain := fn.ChainOrder(0)
				load := fn.Node(chain[1])
				load.args = append(load.args, chain[2])
			},
			err: "cyclic operand dependency",
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fn, err := NewBuilder[testOp](testConverter{}).Build(context.Background(), buildStoreLoad())
			require.NoError(t, err)
			tc.setup(fn)
			err = fn.Verify()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}
}
