package vicis

import (
	"context"
	"testing"

	"github.com/nikandfor/errors"
	"github.com/stretchr/testify/require"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/dag"
	"github.com/sksat/vicis/internal/engine/vicis/frontend"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
	"github.com/sksat/vicis/internal/engine/vicis/testcases"
	"github.com/sksat/vicis/internal/engine/vicis/vicisapi"
)

var ctx = context.Background()

func parseModule(t *testing.T, tc testcases.TestCase) *ssa.Module {
	t.Helper()
	m, err := frontend.ParseModule(tc.Name, tc.Source)
	require.NoError(t, err)
	return m
}

func TestNewEngine(t *testing.T) {
	e := NewEngine(nil)
	require.NotNil(t, e)
	require.NotNil(t, e.config)
	require.Equal(t, uint32(0), e.CompiledModuleCount())
}

func TestEngine_CompileModule(t *testing.T) {
	for _, workers := range []int{1, 2, 8} {
		workers := workers
		t.Run("", func(t *testing.T) {
			e := NewEngine(vicisapi.NewConfig().WithWorkers(workers))
			cm, err := e.CompileModule(ctx, parseModule(t, testcases.Multi))
			require.NoError(t, err)

			// Declarations are skipped, and the rest keep the module order.
			var names []string
			for _, f := range cm.Functions {
				names = append(names, f.Name)
			}
			require.Equal(t, []string{"one", "mul", "main"}, names)

			one := cm.Function("one")
			require.NoError(t, one.Err)
			require.Equal(t, `
L1 (SSA Block: entry):
	mov eax, 1
	ret
`, one.Lowered.Format())

			// mul fails alone.
			mul := cm.Function("mul")
			require.Nil(t, mul.Lowered)
			var uerr *backend.UnsupportedError
			require.True(t, errors.As(mul.Err, &uerr), "%v", mul.Err)
			require.Equal(t, "operation mul", uerr.Detail)
			require.Contains(t, mul.Err.Error(), "func mul")

			main := cm.Function("main")
			require.NoError(t, main.Err)
			require.Len(t, main.Lowered.Instructions, 4)

			err = cm.Err()
			require.Error(t, err)
			var ferrs FunctionErrors
			require.True(t, errors.As(err, &ferrs))
			require.Len(t, ferrs, 1)
			uerr = nil
			require.True(t, errors.As(err, &uerr), "%v", err)
			require.Equal(t, mul.Err.Error(), err.Error())

			require.Nil(t, cm.Function("putchar"))
			require.Equal(t, cm, e.CompiledModule(testcases.Multi.Name))
		})
	}
}

func TestEngine_CompileModule_allSucceed(t *testing.T) {
	e := NewEngine(vicisapi.NewConfig().WithVerify(true))
	cm, err := e.CompileModule(ctx, parseModule(t, testcases.Loop))
	require.NoError(t, err)
	require.NoError(t, cm.Err())
	require.Len(t, cm.Functions, 1)
	require.Len(t, cm.Function("loop").Lowered.Instructions, 10)
}

func TestEngine_CompileModule_verify(t *testing.T) {
	src := testcases.TestCase{Name: "undominated", Func: "f", Source: `
define i32 @f(i32 %x) {
entry:
  %c = icmp eq i32 %x, 0
  br i1 %c, label %a, label %b
a:
  %y = add i32 %x, 2
  br label %b
b:
  ret i32 %y
}
`}

	e := NewEngine(vicisapi.NewConfig().WithVerify(true))
	cm, err := e.CompileModule(ctx, parseModule(t, src))
	require.NoError(t, err)
	var verr *ssa.VerifyError
	require.True(t, errors.As(cm.Function("f").Err, &verr), "%v", cm.Function("f").Err)
	require.Equal(t, "b", verr.Block)

	// Without verification, the lowering does not look at the dominance.
	e = NewEngine(vicisapi.NewConfig())
	cm, err = e.CompileModule(ctx, parseModule(t, src))
	require.NoError(t, err)
	require.NoError(t, cm.Err())
}

func TestEngine_CompileModule_maxInstructions(t *testing.T) {
	e := NewEngine(vicisapi.NewConfig().WithMaxInstructions(3))
	cm, err := e.CompileModule(ctx, parseModule(t, testcases.Loop))
	require.NoError(t, err)
	require.True(t, errors.Is(cm.Err(), backend.ErrInstructionLimit), "%v", cm.Err())
}

func TestEngine_CompileModule_cancelled(t *testing.T) {
	cctx, cancel := context.WithCancel(ctx)
	cancel()

	e := NewEngine(nil)
	cm, err := e.CompileModule(cctx, parseModule(t, testcases.Multi))
	require.Nil(t, cm)
	require.True(t, errors.Is(err, context.Canceled), "%v", err)
	require.Equal(t, uint32(0), e.CompiledModuleCount())
}

func TestEngine_CompiledModuleCount(t *testing.T) {
	e := NewEngine(nil)
	require.Equal(t, uint32(0), e.CompiledModuleCount())
	_, err := e.CompileModule(ctx, parseModule(t, testcases.Ret42))
	require.NoError(t, err)
	require.Equal(t, uint32(1), e.CompiledModuleCount())

	// Compiling under the same name replaces the module.
	_, err = e.CompileModule(ctx, parseModule(t, testcases.Ret42))
	require.NoError(t, err)
	require.Equal(t, uint32(1), e.CompiledModuleCount())
}

func TestEngine_DeleteCompiledModule(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.CompileModule(ctx, parseModule(t, testcases.Loop))
	require.NoError(t, err)
	require.Equal(t, uint32(1), e.CompiledModuleCount())
	e.DeleteCompiledModule(testcases.Loop.Name)
	require.Equal(t, uint32(0), e.CompiledModuleCount())
	require.Nil(t, e.CompiledModule(testcases.Loop.Name))
}

func TestEngine_BuildDAGs(t *testing.T) {
	e := NewEngine(vicisapi.NewConfig().WithWorkers(2))
	dm, err := e.BuildDAGs(ctx, parseModule(t, testcases.Multi))
	require.NoError(t, err)
	require.Len(t, dm.Functions, 3)

	for _, name := range []string{"one", "main"} {
		f := dm.Function(name)
		require.NoError(t, f.Err, name)
		require.NoError(t, f.DAG.Verify(), name)
	}
	require.Error(t, dm.Function("mul").Err)
	require.Error(t, dm.Err())

	// The direct engine emits the comparison at the branch, while the DAG engine
	// keeps both in one block.
	dm, err = e.BuildDAGs(ctx, parseModule(t, testcases.CrossBlockCondition))
	require.NoError(t, err)
	var uerr *backend.UnsupportedError
	require.True(t, errors.As(dm.Err(), &uerr), "%v", dm.Err())
	require.Equal(t, ssa.OpcodeCondBr, uerr.Opcode)

	cm, err := e.CompileModule(ctx, parseModule(t, testcases.CrossBlockCondition))
	require.NoError(t, err)
	require.NoError(t, cm.Err())
}

func TestEngine_BuildDAGs_nodeLimit(t *testing.T) {
	e := NewEngine(vicisapi.NewConfig().WithMaxInstructions(2))
	dm, err := e.BuildDAGs(ctx, parseModule(t, testcases.StoreLoad))
	require.NoError(t, err)
	require.True(t, errors.Is(dm.Err(), dag.ErrNodeLimit), "%v", dm.Err())
}
