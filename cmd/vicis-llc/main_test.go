package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sksat/vicis/internal/engine/vicis"
	"github.com/sksat/vicis/internal/engine/vicis/testcases"
	"github.com/sksat/vicis/internal/engine/vicis/vicisapi"
)

func writeTestCase(t *testing.T, tc testcases.TestCase) string {
	path := filepath.Join(t.TempDir(), tc.Name+".ll")
	require.NoError(t, os.WriteFile(path, []byte(tc.Source), 0o600))
	return path
}

func TestRun(t *testing.T) {
	e := vicis.NewEngine(vicisapi.NewConfig().WithWorkers(1))

	var buf bytes.Buffer
	ok, err := run(context.Background(), &buf, e, writeTestCase(t, testcases.Ret42), false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `f:
L1 (SSA Block: entry):
	mov eax, 42
	ret

`, buf.String())
	require.Equal(t, uint32(0), e.CompiledModuleCount())

	buf.Reset()
	ok, err = run(context.Background(), &buf, e, writeTestCase(t, testcases.Multi), false)
	require.NoError(t, err)
	require.False(t, ok)
	require.Contains(t, buf.String(), "one:\nL1 (SSA Block: entry):\n\tmov eax, 1\n")
	require.Contains(t, buf.String(), "; mul: func mul: ")
	require.Contains(t, buf.String(), "main:\n")
}

func TestRun_dag(t *testing.T) {
	e := vicis.NewEngine(nil)
	var buf bytes.Buffer
	ok, err := run(context.Background(), &buf, e, writeTestCase(t, testcases.Ret42), true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `f:
L1 (SSA Block: entry) preds=[] succs=[]:
	n0 = Root
	n1 = i32 42
	n2 = RET [n1]
	chain: n0 -> n2

`, buf.String())
}

func TestRun_errors(t *testing.T) {
	e := vicis.NewEngine(nil)
	_, err := run(context.Background(), &bytes.Buffer{}, e, filepath.Join(t.TempDir(), "missing.ll"), false)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.ll")
	require.NoError(t, os.WriteFile(path, []byte("define i32 @f( {"), 0o600))
	_, err = run(context.Background(), &bytes.Buffer{}, e, path, false)
	require.Error(t, err)
}
