package ssa

import "fmt"

// ValueID identifies a Value in the value table of a Function.
type ValueID uint32

// ValueInvalid is the zero ValueID, and is used where an operand is absent (e.g. `ret void`).
const ValueInvalid ValueID = 0

// Valid returns true if this is not ValueInvalid.
func (v ValueID) Valid() bool { return v != ValueInvalid }

// ValueKind is the kind of a Value.
type ValueKind byte

const (
	ValueKindInvalid ValueKind = iota
	// ValueKindInstruction is the result of an Instruction.
	ValueKindInstruction
	// ValueKindConstant is an integer constant.
	ValueKindConstant
	// ValueKindArgument is a parameter of the Function.
	ValueKindArgument
)

// String implements fmt.Stringer.
func (k ValueKind) String() string {
	switch k {
	case ValueKindInstruction:
		return "instruction"
	case ValueKindConstant:
		return "constant"
	case ValueKindArgument:
		return "argument"
	}
	return "invalid"
}

// Value is the resolved form of a ValueID. Each field has different meaning depending on Kind.
type Value struct {
	Kind ValueKind
	// Instruction is the producer of a ValueKindInstruction.
	Instruction InstructionID
	// Const is the sign-extended payload of a ValueKindConstant. The width is that of the value type.
	Const int64
	// Arg is the parameter index of a ValueKindArgument.
	Arg int

	// typ is the type of constants and arguments. Instruction results are typed by the instruction.
	typ TypeID
}

func (v Value) String() string {
	switch v.Kind {
	case ValueKindInstruction:
		return fmt.Sprintf("instr%d", v.Instruction)
	case ValueKindConstant:
		return fmt.Sprintf("%d", v.Const)
	case ValueKindArgument:
		return fmt.Sprintf("arg%d", v.Arg)
	}
	return "invalid"
}
