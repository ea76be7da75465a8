package backend

import (
	"fmt"

	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

type (
	// Machine is a backend for a specific machine. I is the machine instruction type.
	Machine[I fmt.Stringer] interface {
		// SetCompilationContext sets the function-scoped context used by the following calls.
		SetCompilationContext(ctx CompilationContext)

		// StartFunction is called before the first block of a function is lowered.
		StartFunction()

		StartBlock(blk *ssa.BasicBlock)

		// LowerInstr lowers one SSA instruction. It must return an *UnsupportedError
		// for any shape it cannot lower, and must not emit anything in that case.
		LowerInstr(instr *ssa.Instruction) error

		EndBlock()

		// Instructions returns the machine instructions emitted since StartFunction.
		// The returned slice is only valid until the next call to Reset.
		Instructions() []I

		// Reset resets the machine state for the next compilation.
		Reset()
	}

	// CompilationContext is a context for a function-scoped context passed to Machine
	// to perform the lowering in the machine specific backend for the given function.
	//
	// Every SSA value is assigned its virtual register before lowering starts, so
	// that lowering never allocates one for an SSA value and the order in which
	// blocks are lowered does not affect the assignment.
	CompilationContext interface {
		// Function returns the function being lowered.
		Function() *ssa.Function

		// CurrentBlock returns the block being lowered.
		CurrentBlock() *ssa.BasicBlock

		// NewVReg allocates a fresh temporary virtual register.
		NewVReg(typ ssa.TypeID) VReg

		// OutputVRegFor returns the virtual register of the instruction result, retyping
		// it to typ if needed. It never allocates a second register for the same instruction.
		OutputVRegFor(instr *ssa.Instruction, typ ssa.TypeID) (VReg, error)

		// Materialize returns the virtual register holding the result of instr.
		Materialize(instr *ssa.Instruction) (VReg, error)

		// ValueVReg returns the virtual register holding the value, an instruction result or an argument.
		ValueVReg(v ssa.ValueID) (VReg, error)

		// ValueDefinition returns the definition of the value.
		ValueDefinition(v ssa.ValueID) *SSAValueDefinition

		// VRegType returns the type of the virtual register.
		VRegType(v VReg) ssa.TypeID

		// AllocateSlot returns the stack slot of an Alloca instruction.
		AllocateSlot(instr *ssa.Instruction) (SlotID, error)

		// SlotOf returns the stack slot of the value if it is the address produced by an Alloca.
		SlotOf(v ssa.ValueID) (SlotID, bool)

		// Label returns the label of the block.
		Label(blk ssa.BasicBlockID) Label

		// Users returns the instructions using the value.
		Users(v ssa.ValueID) []*ssa.Instruction
	}
)

// Ensures that Context implements CompilationContext.
var _ CompilationContext = (*Context)(nil)
