package amd64

import (
	"context"
	"testing"

	"github.com/nikandfor/errors"
	"github.com/stretchr/testify/require"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/dag"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
	"github.com/sksat/vicis/internal/engine/vicis/testcases"
)

func chainOps(fn *dag.Function[Opcode], blk dag.BlockID) (ret []Opcode) {
	for _, n := range fn.ChainOrder(blk) {
		ret = append(ret, fn.Node(n).Op())
	}
	return
}

func TestDAGBuilder_Build(t *testing.T) {
	for _, tc := range []struct {
		tc  testcases.TestCase
		exp string
	}{
		{
			tc: testcases.Ret42,
			exp: `
L1 (SSA Block: entry) preds=[] succs=[]:
	n0 = Root
	n1 = i32 42
	n2 = RET [n1]
	chain: n0 -> n2
`,
		},
		{
			tc: testcases.StoreLoad,
			exp: `
L1 (SSA Block: entry) preds=[] succs=[]:
	n0 = Root
	n1 = slot0
	n2 = MOVrm32 [n1]
	n3 = RET [n2]
	n4 = slot0
	n5 = i32 7
	n6 = MOVmi32 [n4 n5]
	chain: n0 -> n6 -> n2 -> n3
`,
		},
	} {
		tc := tc
		t.Run(tc.tc.Name, func(t *testing.T) {
			fn, err := NewDAGBuilder().Build(context.Background(), parseTestCase(t, tc.tc))
			require.NoError(t, err)
			require.NoError(t, fn.Verify())
			require.Equal(t, tc.exp, fn.Format())
		})
	}
}

func TestDAGBuilder_Build_verify(t *testing.T) {
	for _, tc := range []testcases.TestCase{
		testcases.Ret42, testcases.StoreLoad, testcases.AddSub, testcases.StoreParam,
		testcases.Phi3, testcases.Loop, testcases.CondBr("eq"), testcases.CondBr("sge"),
	} {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			f := parseTestCase(t, tc)
			fn, err := NewDAGBuilder().Build(context.Background(), f)
			require.NoError(t, err)
			require.NoError(t, fn.Verify(), fn.Format())
			require.Equal(t, f.NumBlocks(), len(fn.Blocks()))
		})
	}
}

func TestDAGBuilder_Build_loop(t *testing.T) {
	fn, err := NewDAGBuilder().Build(context.Background(), parseTestCase(t, testcases.Loop))
	require.NoError(t, err)
	require.NoError(t, fn.Verify())

	require.Equal(t, []Opcode{JMP}, chainOps(fn, 0))
	require.Equal(t, []Opcode{PHI, JL, JMP}, chainOps(fn, 1))
	require.Equal(t, []Opcode{JMP}, chainOps(fn, 2))
	require.Equal(t, []Opcode{RET}, chainOps(fn, 3))

	head := fn.ChainOrder(1)
	phi, jl, jmp := fn.Node(head[0]), fn.Node(head[1]), fn.Node(head[2])

	// phi [0, L1], [r3?, L3]
	args := phi.Args()
	require.Len(t, args, 4)
	require.Equal(t, dag.NodeKindImm, fn.Node(args[0]).Kind())
	require.Equal(t, dag.NodeKindVReg, fn.Node(args[2]).Kind())
	require.Equal(t, backend.VReg(3), fn.Node(args[2]).VReg())
	label, target := fn.Node(args[3]).Label()
	require.Equal(t, backend.Label(3), label)
	require.Equal(t, dag.BlockID(2), target)

	// The comparison hangs from the conditional jump, and reads the phi of the same block.
	cmp := fn.Node(jl.Args()[0])
	require.Equal(t, CMPrr32, cmp.Op())
	require.Equal(t, dag.NodeIDInvalid, cmp.Chain())
	require.Equal(t, phi.ID(), cmp.Args()[0])
	require.Equal(t, backend.VReg(0), fn.Node(cmp.Args()[1]).VReg())
	label, _ = fn.Node(jl.Args()[1]).Label()
	require.Equal(t, backend.Label(3), label)
	label, _ = fn.Node(jmp.Args()[0]).Label()
	require.Equal(t, backend.Label(4), label)

	// The phi flowing out of the loop is a register in the exit block.
	ret := fn.Node(fn.ChainOrder(3)[0])
	require.Equal(t, backend.VReg(1), fn.Node(ret.Args()[0]).VReg())

	require.Equal(t, []dag.BlockID{0, 2}, fn.Block(1).Preds())
	require.Equal(t, []dag.BlockID{2, 3}, fn.Block(1).Succs())
}

func TestDAGBuilder_Build_phiPredecessorOrder(t *testing.T) {
	fn, err := NewDAGBuilder().Build(context.Background(), parseTestCase(t, testcases.PhiJoin("reversed", "[ 2, %b ], [ 1, %a ]")))
	require.NoError(t, err)
	require.NoError(t, fn.Verify())

	phi := fn.Node(fn.ChainOrder(3)[0])
	require.Equal(t, PHI, phi.Op())
	var actual []string
	for _, arg := range phi.Args() {
		actual = append(actual, fn.Node(arg).String())
	}
	require.Equal(t, []string{"i32 1", "L2", "i32 2", "L3"}, actual)
}

func TestDAGBuilder_Build_unsupported(t *testing.T) {
	for _, tc := range []struct {
		tc     testcases.TestCase
		opcode ssa.Opcode
		detail string
	}{
		{tc: testcases.CrossBlockCondition, opcode: ssa.OpcodeCondBr, detail: "condition %v2 is defined in another block"},
		{tc: testcases.CondBr("ult"), opcode: ssa.OpcodeIcmp, detail: "predicate ult"},
		{tc: testcases.Unsupported, opcode: ssa.OpcodeRet, detail: "ret without a value"},
		{tc: testcases.PhiJoin("duplicate", "[ 1, %a ], [ 2, %a ]"), opcode: ssa.OpcodePhi, detail: "2 incoming values from a"},
		{
			tc:     testcases.TestCase{Name: "mul", Func: "mul", Source: testcases.Multi.Source},
			opcode: ssa.OpcodeIntBinary,
			detail: "operation mul",
		},
	} {
		tc := tc
		t.Run(tc.tc.Name, func(t *testing.T) {
			fn, err := NewDAGBuilder().Build(context.Background(), parseTestCase(t, tc.tc))
			require.Nil(t, fn)
			uerr := requireUnsupported(t, err, tc.opcode)
			require.Equal(t, tc.detail, uerr.Detail)
		})
	}
}

func TestDAGBuilder_Build_nodeLimit(t *testing.T) {
	b := NewDAGBuilder()
	b.SetMaxNodes(2)
	fn, err := b.Build(context.Background(), parseTestCase(t, testcases.Ret42))
	require.Nil(t, fn)
	require.True(t, errors.Is(err, dag.ErrNodeLimit), "%v", err)

	b.SetMaxNodes(0)
	fn, err = b.Build(context.Background(), parseTestCase(t, testcases.Ret42))
	require.NoError(t, err)
	require.Equal(t, 3, fn.NumNodes())
}
