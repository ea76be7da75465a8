package amd64

import (
	"fmt"
	"strings"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
)

type (
	// Instruction represents either a real x86-64 instruction, or the PHI pseudo
	// instruction which is eliminated after register allocation.
	//
	// Operands carry their roles, which are fixed by Opcode. Instructions must be
	// created with NewInstruction so that the roles always agree with the opcode table.
	Instruction struct {
		Opcode   Opcode
		Operands []Operand
	}

	// Opcode is the opcode of Instruction. The suffix tells the operand forms:
	// r for a register, i for an immediate, m for a memory slot, followed by the operand width.
	Opcode byte
)

const (
	opcodeInvalid Opcode = iota
	// PHI selects one of the input values depending on the predecessor: `PHI out, (value, label)...`.
	PHI
	MOVri32
	MOVrr32
	MOVrr64
	MOVrm32
	MOVmr32
	MOVmi32
	ADDrr32
	ADDri32
	SUBrr32
	SUBri32
	CMPrr32
	CMPri32
	JMP
	JE
	JNE
	JL
	JLE
	JG
	JGE
	PUSH64
	POP64
	RET
	opcodeEnd
)

// operandSpec is the role and the allowed operand kinds of one operand position.
type operandSpec struct {
	role  Role
	kinds operandKindSet
}

type opcodeInfo struct {
	mnemonic string
	operands []operandSpec
	// variadic is true if the last two operand specs repeat.
	variadic bool
}

var (
	specRegOut   = operandSpec{role: RoleOutput, kinds: kindSet(OperandKindReg)}
	specRegIn    = operandSpec{role: RoleInput, kinds: kindSet(OperandKindReg)}
	specRegInOut = operandSpec{role: RoleInputOutput, kinds: kindSet(OperandKindReg)}
	specImmIn    = operandSpec{role: RoleInput, kinds: kindSet(OperandKindImm32)}
	specMemIn    = operandSpec{role: RoleInput, kinds: kindSet(OperandKindSlot)}
	specMemOut   = operandSpec{role: RoleOutput, kinds: kindSet(OperandKindSlot)}
	specLabelIn  = operandSpec{role: RoleInput, kinds: kindSet(OperandKindLabel)}
	specValueIn  = operandSpec{role: RoleInput, kinds: kindSet(OperandKindReg, OperandKindImm32)}
)

// opcodeTable fixes the operand roles per opcode, which the register allocator relies on
// to compute the liveness.
//
// A slot operand is an output of the store forms and an input of the load form, so that
// the slot elimination can tell the stores to a slot from the loads of it.
var opcodeTable = [opcodeEnd]opcodeInfo{
	PHI:     {mnemonic: "phi", operands: []operandSpec{specRegOut, specValueIn, specLabelIn}, variadic: true},
	MOVri32: {mnemonic: "mov", operands: []operandSpec{specRegOut, specImmIn}},
	MOVrr32: {mnemonic: "mov", operands: []operandSpec{specRegOut, specRegIn}},
	MOVrr64: {mnemonic: "mov", operands: []operandSpec{specRegOut, specRegIn}},
	MOVrm32: {mnemonic: "mov", operands: []operandSpec{specRegOut, specMemIn}},
	MOVmr32: {mnemonic: "mov", operands: []operandSpec{specMemOut, specRegIn}},
	MOVmi32: {mnemonic: "mov", operands: []operandSpec{specMemOut, specImmIn}},
	ADDrr32: {mnemonic: "add", operands: []operandSpec{specRegInOut, specRegIn}},
	ADDri32: {mnemonic: "add", operands: []operandSpec{specRegInOut, specImmIn}},
	SUBrr32: {mnemonic: "sub", operands: []operandSpec{specRegInOut, specRegIn}},
	SUBri32: {mnemonic: "sub", operands: []operandSpec{specRegInOut, specImmIn}},
	CMPrr32: {mnemonic: "cmp", operands: []operandSpec{specRegIn, specRegIn}},
	CMPri32: {mnemonic: "cmp", operands: []operandSpec{specRegIn, specImmIn}},
	JMP:     {mnemonic: "jmp", operands: []operandSpec{specLabelIn}},
	JE:      {mnemonic: "je", operands: []operandSpec{specLabelIn}},
	JNE:     {mnemonic: "jne", operands: []operandSpec{specLabelIn}},
	JL:      {mnemonic: "jl", operands: []operandSpec{specLabelIn}},
	JLE:     {mnemonic: "jle", operands: []operandSpec{specLabelIn}},
	JG:      {mnemonic: "jg", operands: []operandSpec{specLabelIn}},
	JGE:     {mnemonic: "jge", operands: []operandSpec{specLabelIn}},
	PUSH64:  {mnemonic: "push", operands: []operandSpec{specRegIn}},
	POP64:   {mnemonic: "pop", operands: []operandSpec{specRegOut}},
	RET:     {mnemonic: "ret"},
}

var opcodeNames = [opcodeEnd]string{
	PHI:     "PHI",
	MOVri32: "MOVri32",
	MOVrr32: "MOVrr32",
	MOVrr64: "MOVrr64",
	MOVrm32: "MOVrm32",
	MOVmr32: "MOVmr32",
	MOVmi32: "MOVmi32",
	ADDrr32: "ADDrr32",
	ADDri32: "ADDri32",
	SUBrr32: "SUBrr32",
	SUBri32: "SUBri32",
	CMPrr32: "CMPrr32",
	CMPri32: "CMPri32",
	JMP:     "JMP",
	JE:      "JE",
	JNE:     "JNE",
	JL:      "JL",
	JLE:     "JLE",
	JG:      "JG",
	JGE:     "JGE",
	PUSH64:  "PUSH64",
	POP64:   "POP64",
	RET:     "RET",
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	if o == opcodeInvalid || o >= opcodeEnd {
		return fmt.Sprintf("invalid(%d)", byte(o))
	}
	return opcodeNames[o]
}

// Mnemonic returns the assembly mnemonic of the opcode.
func (o Opcode) Mnemonic() string {
	return opcodeTable[o].mnemonic
}

// specAt returns the operand spec at the position i, and false if the opcode takes no operand there.
func (o Opcode) specAt(i int) (operandSpec, bool) {
	info := &opcodeTable[o]
	n := len(info.operands)
	if i < n {
		return info.operands[i], true
	}
	if !info.variadic {
		return operandSpec{}, false
	}
	// The last two specs repeat.
	return info.operands[n-2+(i-n)%2], true
}

// NewInstruction returns the instruction of the opcode with the operands,
// assigning each operand the role the opcode fixes for its position.
func NewInstruction(op Opcode, operands ...Operand) Instruction {
	if op == opcodeInvalid || op >= opcodeEnd {
		panic(fmt.Sprintf("BUG: invalid opcode %d", byte(op)))
	}
	info := &opcodeTable[op]
	if n := len(operands); n < len(info.operands) || (!info.variadic && n != len(info.operands)) ||
		(info.variadic && (n-len(info.operands))%2 != 0) {
		panic(fmt.Sprintf("BUG: %s takes %d operands, got %d", op, len(info.operands), n))
	}

	ops := make([]Operand, len(operands))
	for i, o := range operands {
		spec, _ := op.specAt(i)
		if !spec.kinds.has(o.kind) {
			panic(fmt.Sprintf("BUG: operand %d of %s must not be %s", i, op, o.kind))
		}
		o.role = spec.role
		ops[i] = o
	}
	return Instruction{Opcode: op, Operands: ops}
}

// Uses appends the registers read by this instruction to dst and returns it.
func (i Instruction) Uses(dst []backend.VReg) []backend.VReg {
	for _, o := range i.Operands {
		if o.kind == OperandKindReg && o.role&RoleInput != 0 {
			dst = append(dst, o.Reg())
		}
	}
	return dst
}

// Defs appends the registers written by this instruction to dst and returns it.
func (i Instruction) Defs(dst []backend.VReg) []backend.VReg {
	for _, o := range i.Operands {
		if o.kind == OperandKindReg && o.role&RoleOutput != 0 {
			dst = append(dst, o.Reg())
		}
	}
	return dst
}

// IsBranch returns true if this instruction transfers the control to a label.
func (i Instruction) IsBranch() bool {
	switch i.Opcode {
	case JMP, JE, JNE, JL, JLE, JG, JGE:
		return true
	}
	return false
}

// String implements fmt.Stringer in the Intel syntax.
func (i Instruction) String() string {
	switch i.Opcode {
	case RET:
		return "ret"
	case PHI:
		var sb strings.Builder
		sb.WriteString("phi ")
		sb.WriteString(i.Operands[0].String())
		for j := 1; j+1 < len(i.Operands); j += 2 {
			fmt.Fprintf(&sb, ", [%s, %s]", i.Operands[j], i.Operands[j+1])
		}
		return sb.String()
	}

	strs := make([]string, len(i.Operands))
	for j, o := range i.Operands {
		strs[j] = o.String()
	}
	return i.Opcode.Mnemonic() + " " + strings.Join(strs, ", ")
}
