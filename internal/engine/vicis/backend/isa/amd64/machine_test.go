package amd64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sksat/vicis/internal/engine/vicis/testcases"
)

func TestMachine_LowerInstr_discardsPending(t *testing.T) {
	f := parseTestCase(t, testcases.Unsupported)
	m, ctx := newSetup(f)
	blk := f.EntryBlock()
	ctx.SetCurrentBlock(blk)
	m.StartBlock(blk)

	m.insert(RET)
	require.Len(t, m.pendingInstructions, 1)
	require.Error(t, m.LowerInstr(blk.Root()))
	require.Empty(t, m.pendingInstructions)
	require.Empty(t, m.Instructions())
}

func TestMachine_Reset(t *testing.T) {
	f := parseTestCase(t, testcases.Ret42)
	m, ctx := newSetup(f)
	blk := f.EntryBlock()
	ctx.SetCurrentBlock(blk)
	m.StartBlock(blk)
	require.NoError(t, m.LowerInstr(blk.Root()))
	m.EndBlock()
	require.Equal(t, []string{"mov eax, 42", "ret"}, formatInstructions(m.Instructions()))

	m.Reset()
	require.Nil(t, m.ctx)
	require.Nil(t, m.currentSSABlk)
	require.Empty(t, m.Instructions())
	require.Empty(t, m.pendingInstructions)
}

func TestFramePrologueEpilogue(t *testing.T) {
	require.Equal(t, []string{"push rbp", "mov rbp, rsp"}, formatInstructions(FramePrologue()))
	require.Equal(t, []string{"mov rsp, rbp", "pop rbp"}, formatInstructions(FrameEpilogue()))

	prologue := FramePrologue()
	require.Equal(t, PUSH64, prologue[0].Opcode)
	require.Equal(t, MOVrr64, prologue[1].Opcode)
	require.Equal(t, rbpVReg, prologue[1].Defs(nil)[0])
	require.Equal(t, rspVReg, prologue[1].Uses(nil)[0])
	require.Equal(t, rbpVReg, FrameEpilogue()[1].Defs(nil)[0])
}
