package amd64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/frontend"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
	"github.com/sksat/vicis/internal/engine/vicis/testcases"
)

// parseTestCase returns the function of the test case.
func parseTestCase(t *testing.T, tc testcases.TestCase) *ssa.Function {
	t.Helper()
	m, err := frontend.ParseModule(tc.Name, tc.Source)
	require.NoError(t, err)
	f := m.Function(tc.Func)
	require.NotNil(t, f)
	return f
}

// parseFunction returns the function named f in the LLVM IR text.
func parseFunction(t *testing.T, src, f string) *ssa.Function {
	return parseTestCase(t, testcases.TestCase{Name: t.Name(), Func: f, Source: src})
}

// newSetup returns a machine ready to lower the instructions of f one by one.
func newSetup(f *ssa.Function) (*machine, *backend.Context) {
	ctx := backend.NewContext()
	ctx.Init(f)
	m := NewBackend().(*machine)
	m.SetCompilationContext(ctx)
	m.StartFunction()
	return m, ctx
}

func formatInstructions(instrs []Instruction) []string {
	strs := make([]string, len(instrs))
	for i, instr := range instrs {
		strs[i] = instr.String()
	}
	return strs
}

// requireUnsupported requires err to be an *backend.UnsupportedError of the opcode.
func requireUnsupported(t *testing.T, err error, opcode ssa.Opcode) *backend.UnsupportedError {
	t.Helper()
	require.Error(t, err)
	var uerr *backend.UnsupportedError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, opcode, uerr.Opcode, uerr.Error())
	return uerr
}
