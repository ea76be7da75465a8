package amd64

import (
	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// machine implements backend.Machine.
type machine struct {
	ctx           backend.CompilationContext
	currentSSABlk *ssa.BasicBlock

	// instructions are the instructions emitted since StartFunction.
	instructions []Instruction
	// pendingInstructions are the instructions of the SSA instruction being lowered.
	// They are flushed into instructions only once the lowering succeeds.
	pendingInstructions []Instruction
}

// NewBackend returns a new backend for amd64.
func NewBackend() backend.Machine[Instruction] {
	return &machine{}
}

// Reset implements backend.Machine.
func (m *machine) Reset() {
	m.ctx = nil
	m.currentSSABlk = nil
	m.instructions = m.instructions[:0]
	m.pendingInstructions = m.pendingInstructions[:0]
}

// SetCompilationContext implements backend.Machine.
func (m *machine) SetCompilationContext(ctx backend.CompilationContext) {
	m.ctx = ctx
}

// StartFunction implements backend.Machine.
func (m *machine) StartFunction() {
	m.instructions = m.instructions[:0]
}

// StartBlock implements backend.Machine.
func (m *machine) StartBlock(blk *ssa.BasicBlock) {
	m.currentSSABlk = blk
}

// EndBlock implements backend.Machine.
func (m *machine) EndBlock() {
	m.currentSSABlk = nil
}

// Instructions implements backend.Machine.
func (m *machine) Instructions() []Instruction {
	return m.instructions
}

func (m *machine) insert(op Opcode, operands ...Operand) {
	m.pendingInstructions = append(m.pendingInstructions, NewInstruction(op, operands...))
}

func (m *machine) flushPendingInstructions() {
	m.instructions = append(m.instructions, m.pendingInstructions...)
	m.pendingInstructions = m.pendingInstructions[:0]
}

func (m *machine) discardPendingInstructions() {
	m.pendingInstructions = m.pendingInstructions[:0]
}

// FramePrologue returns the instructions setting up the frame pointer, which
// are inserted at the function entry once the frame layout is known.
func FramePrologue() []Instruction {
	return []Instruction{
		NewInstruction(PUSH64, RegOperand(rbpVReg)),
		NewInstruction(MOVrr64, RegOperand(rbpVReg), RegOperand(rspVReg)),
	}
}

// FrameEpilogue returns the instructions restoring the frame pointer, which
// are inserted before each RET.
func FrameEpilogue() []Instruction {
	return []Instruction{
		NewInstruction(MOVrr64, RegOperand(rspVReg), RegOperand(rbpVReg)),
		NewInstruction(POP64, RegOperand(rbpVReg)),
	}
}
