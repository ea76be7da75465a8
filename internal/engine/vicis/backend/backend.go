// Package backend must be free of ISA specific concept. It drives a Machine
// over an ssa.Function and provides the function-scoped lowering context:
// virtual registers, stack slots and block labels.
package backend

import (
	"fmt"

	"github.com/nikandfor/errors"

	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

var (
	// ErrNoResult is returned when a value which does not live in a register is materialized.
	ErrNoResult = errors.New("value has no result register")

	// ErrInstructionLimit is returned when a function lowers to more machine instructions than allowed.
	ErrInstructionLimit = errors.New("machine instruction limit exceeded")
)

// UnsupportedError is returned when an instruction or one of its operands has
// a shape that no lowering rule covers. Only the function being lowered fails.
type UnsupportedError struct {
	Function    string
	Instruction ssa.InstructionID
	Opcode      ssa.Opcode
	Detail      string
}

// Error implements error.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s (instruction %d) in %s: %s", e.Opcode, e.Instruction, e.Function, e.Detail)
}

// Unsupported returns an *UnsupportedError for instr lowered in ctx.
func Unsupported(ctx CompilationContext, instr *ssa.Instruction, format string, args ...interface{}) error {
	return &UnsupportedError{
		Function:    ctx.Function().Name(),
		Instruction: instr.ID(),
		Opcode:      instr.Opcode(),
		Detail:      fmt.Sprintf(format, args...),
	}
}
