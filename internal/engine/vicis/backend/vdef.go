package backend

import "github.com/sksat/vicis/internal/engine/vicis/ssa"

// SSAValueDefinition represents a definition of an SSA value.
type SSAValueDefinition struct {
	// Instr is not nil if the value is an instruction result.
	Instr *ssa.Instruction
	// Arg is the parameter index if the value is a function argument, -1 otherwise.
	Arg int
	// Const is valid if both Instr is nil and Arg is negative.
	Const int64
	// VReg is the register pre-assigned to the value, VRegInvalid for constants.
	VReg VReg
	// RefCount is the number of references to the value.
	RefCount int
}

// IsFromInstr returns true if the value is an instruction result.
func (d *SSAValueDefinition) IsFromInstr() bool {
	return d.Instr != nil
}

// IsFromArg returns true if the value is a function argument.
func (d *SSAValueDefinition) IsFromArg() bool {
	return d.Instr == nil && d.Arg >= 0
}

// IsConst returns true if the value is a constant.
func (d *SSAValueDefinition) IsConst() bool {
	return d.Instr == nil && d.Arg < 0
}
