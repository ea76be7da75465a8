package amd64

// This file contains the logic to "find and determine operands" for instructions.

import (
	"fmt"
	"math"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

type (
	// Operand represents an operand of an instruction whose payload is determined by the kind.
	Operand struct {
		role Role
		kind OperandKind
		data uint64
	}

	// OperandKind is the kind of the payload of Operand.
	OperandKind byte

	operandKindSet byte

	// Role tells whether an operand is read, written, or both by the instruction.
	Role byte
)

const (
	OperandKindInvalid OperandKind = iota
	// OperandKindReg is a virtual register, or a physical register bound to a VReg.
	OperandKindReg
	// OperandKindImm32 is a 32-bit immediate.
	OperandKindImm32
	// OperandKindSlot is the memory of a stack slot.
	OperandKindSlot
	// OperandKindLabel is the label of a block.
	OperandKindLabel
)

const (
	RoleInput Role = 1 << iota
	RoleOutput
	RoleInputOutput = RoleInput | RoleOutput
)

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RoleInput:
		return "in"
	case RoleOutput:
		return "out"
	case RoleInputOutput:
		return "inout"
	}
	return "invalid"
}

// String implements fmt.Stringer.
func (k OperandKind) String() string {
	switch k {
	case OperandKindReg:
		return "reg"
	case OperandKindImm32:
		return "imm32"
	case OperandKindSlot:
		return "slot"
	case OperandKindLabel:
		return "label"
	}
	return "invalid"
}

func kindSet(kinds ...OperandKind) (s operandKindSet) {
	for _, k := range kinds {
		s |= 1 << k
	}
	return
}

func (s operandKindSet) has(k OperandKind) bool {
	return s&(1<<k) != 0
}

// RegOperand encodes the register as an operand of OperandKindReg.
func RegOperand(r backend.VReg) Operand {
	return Operand{kind: OperandKindReg, data: uint64(r)}
}

// Imm32Operand encodes the immediate as an operand of OperandKindImm32.
func Imm32Operand(v int32) Operand {
	return Operand{kind: OperandKindImm32, data: uint64(uint32(v))}
}

// SlotOperand encodes the stack slot as an operand of OperandKindSlot.
func SlotOperand(s backend.SlotID) Operand {
	return Operand{kind: OperandKindSlot, data: uint64(s)}
}

// LabelOperand encodes the label as an operand of OperandKindLabel.
func LabelOperand(l backend.Label) Operand {
	return Operand{kind: OperandKindLabel, data: uint64(l)}
}

// Role returns the role of the operand in its instruction.
func (o Operand) Role() Role { return o.role }

// Kind returns the kind of the operand.
func (o Operand) Kind() OperandKind { return o.kind }

// Reg decodes the underlying register assuming the operand is of OperandKindReg.
func (o Operand) Reg() backend.VReg { return backend.VReg(o.data) }

// Imm32 decodes the underlying immediate assuming the operand is of OperandKindImm32.
func (o Operand) Imm32() int32 { return int32(uint32(o.data)) }

// Slot decodes the underlying slot assuming the operand is of OperandKindSlot.
func (o Operand) Slot() backend.SlotID { return backend.SlotID(o.data) }

// Label decodes the underlying label assuming the operand is of OperandKindLabel.
func (o Operand) Label() backend.Label { return backend.Label(o.data) }

// String implements fmt.Stringer.
func (o Operand) String() string {
	switch o.kind {
	case OperandKindReg:
		return formatVReg(o.Reg())
	case OperandKindImm32:
		return fmt.Sprintf("%d", o.Imm32())
	case OperandKindSlot:
		return fmt.Sprintf("dword ptr [%s]", o.Slot())
	case OperandKindLabel:
		return o.Label().String()
	}
	return "invalid"
}

// asImm32 returns the constant as a 32-bit immediate if it fits. Constants of
// 32 bits or less always fit, since they are truncated to their width.
func asImm32(v int64, bits int) (int32, bool) {
	if bits <= 32 {
		return int32(v), true
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}

// getOperand_Reg returns an operand of OperandKindReg holding the value v used by instr.
func (m *machine) getOperand_Reg(instr *ssa.Instruction, v ssa.ValueID) (Operand, error) {
	return getOperand_Reg(m.ctx, instr, v)
}

// getOperand_Imm32_Reg returns an operand of either OperandKindImm32 or OperandKindReg holding the value v used by instr.
func (m *machine) getOperand_Imm32_Reg(instr *ssa.Instruction, v ssa.ValueID) (Operand, error) {
	return getOperand_Imm32_Reg(m.ctx, instr, v)
}

// getOperand_Mem returns an operand of OperandKindSlot for the address addr used by instr.
func (m *machine) getOperand_Mem(instr *ssa.Instruction, addr ssa.ValueID) (Operand, error) {
	s, err := slotOf(m.ctx, instr, addr)
	if err != nil {
		return Operand{}, err
	}
	return SlotOperand(s), nil
}

func getOperand_Reg(ctx backend.CompilationContext, instr *ssa.Instruction, v ssa.ValueID) (Operand, error) {
	f := ctx.Function()
	if _, ok := ctx.SlotOf(v); ok {
		return Operand{}, backend.Unsupported(ctx, instr, "address of stack slot %s as a register", f.FormatValue(v))
	}
	if def := ctx.ValueDefinition(v); def.IsConst() {
		return Operand{}, backend.Unsupported(ctx, instr, "constant %s where a register is required", f.FormatValue(v))
	}
	r, err := ctx.ValueVReg(v)
	if err != nil {
		return Operand{}, err
	}
	return RegOperand(r), nil
}

func getOperand_Imm32_Reg(ctx backend.CompilationContext, instr *ssa.Instruction, v ssa.ValueID) (Operand, error) {
	if def := ctx.ValueDefinition(v); def.IsConst() {
		imm, err := imm32Of(ctx, instr, v)
		if err != nil {
			return Operand{}, err
		}
		return Imm32Operand(imm), nil
	}
	return getOperand_Reg(ctx, instr, v)
}

// imm32Of returns the constant v as a 32-bit immediate.
func imm32Of(ctx backend.CompilationContext, instr *ssa.Instruction, v ssa.ValueID) (int32, error) {
	f := ctx.Function()
	def := ctx.ValueDefinition(v)
	imm, ok := asImm32(def.Const, f.Types().IntBits(f.ValueType(v)))
	if !ok {
		return 0, backend.Unsupported(ctx, instr, "constant %s does not fit in 32 bits", f.FormatValue(v))
	}
	return imm, nil
}

// slotOf returns the stack slot addressed by addr.
func slotOf(ctx backend.CompilationContext, instr *ssa.Instruction, addr ssa.ValueID) (backend.SlotID, error) {
	s, ok := ctx.SlotOf(addr)
	if !ok {
		return 0, backend.Unsupported(ctx, instr, "address %s is not a stack slot", ctx.Function().FormatValue(addr))
	}
	return s, nil
}

// requireInt32 checks that the type is i32.
func requireInt32(ctx backend.CompilationContext, instr *ssa.Instruction, typ ssa.TypeID) error {
	types := ctx.Function().Types()
	if !types.IsInt(typ, 32) {
		return backend.Unsupported(ctx, instr, "type %s is not i32", types.String(typ))
	}
	return nil
}

// phiIncomings returns the incoming values of the phi in the order of the predecessors
// recorded for its block, together with those predecessors. Each predecessor must
// have exactly one incoming value.
func phiIncomings(ctx backend.CompilationContext, phi *ssa.Instruction) ([]ssa.ValueID, []ssa.BasicBlockID, error) {
	f := ctx.Function()
	preds := f.Block(phi.Block()).Preds()
	vs, from := phi.PhiData()
	if len(vs) != len(preds) {
		return nil, nil, backend.Unsupported(ctx, phi, "%d incoming values for %d predecessors", len(vs), len(preds))
	}

	values := make([]ssa.ValueID, len(preds))
	for i, p := range preds {
		n := 0
		for j, b := range from {
			if b == p {
				values[i] = vs[j]
				n++
			}
		}
		if n != 1 {
			return nil, nil, backend.Unsupported(ctx, phi, "%d incoming values from %s", n, f.Block(p).Name())
		}
	}
	return values, preds, nil
}
