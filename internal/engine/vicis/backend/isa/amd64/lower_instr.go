package amd64

import (
	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// LowerInstr implements backend.Machine.
func (m *machine) LowerInstr(instr *ssa.Instruction) (err error) {
	switch instr.Opcode() {
	case ssa.OpcodeAlloca:
		// The slot is assigned before lowering, and the address is used as a memory operand.
		_, err = m.ctx.AllocateSlot(instr)
	case ssa.OpcodePhi:
		err = m.lowerPhi(instr)
	case ssa.OpcodeLoad:
		err = m.lowerLoad(instr)
	case ssa.OpcodeStore:
		err = m.lowerStore(instr)
	case ssa.OpcodeIntBinary:
		err = m.lowerIntBinary(instr)
	case ssa.OpcodeIcmp:
		err = m.lowerIcmp(instr)
	case ssa.OpcodeBr:
		m.insert(JMP, LabelOperand(m.ctx.Label(instr.BrData())))
	case ssa.OpcodeCondBr:
		err = m.lowerCondBr(instr)
	case ssa.OpcodeRet:
		err = m.lowerRet(instr)
	default:
		err = backend.Unsupported(m.ctx, instr, "no lowering rule")
	}
	if err != nil {
		m.discardPendingInstructions()
		return err
	}
	m.flushPendingInstructions()
	return nil
}

func (m *machine) lowerPhi(instr *ssa.Instruction) error {
	typ := instr.Type()
	if backend.RegTypeOf(m.ctx.Function().Types(), typ) != backend.RegTypeInt {
		return backend.Unsupported(m.ctx, instr, "phi of type %s", m.ctx.Function().Types().String(typ))
	}
	out, err := m.ctx.OutputVRegFor(instr, typ)
	if err != nil {
		return err
	}

	values, preds, err := phiIncomings(m.ctx, instr)
	if err != nil {
		return err
	}
	operands := make([]Operand, 0, 1+2*len(values))
	operands = append(operands, RegOperand(out))
	for i, v := range values {
		op, err := m.getOperand_Imm32_Reg(instr, v)
		if err != nil {
			return err
		}
		operands = append(operands, op, LabelOperand(m.ctx.Label(preds[i])))
	}
	m.insert(PHI, operands...)
	return nil
}

func (m *machine) lowerLoad(instr *ssa.Instruction) error {
	if err := requireInt32(m.ctx, instr, instr.Type()); err != nil {
		return err
	}
	mem, err := m.getOperand_Mem(instr, instr.LoadData())
	if err != nil {
		return err
	}
	out, err := m.ctx.OutputVRegFor(instr, instr.Type())
	if err != nil {
		return err
	}
	m.insert(MOVrm32, RegOperand(out), mem)
	return nil
}

func (m *machine) lowerStore(instr *ssa.Instruction) error {
	value, addr := instr.StoreData()
	if err := requireInt32(m.ctx, instr, m.ctx.Function().ValueType(value)); err != nil {
		return err
	}
	mem, err := m.getOperand_Mem(instr, addr)
	if err != nil {
		return err
	}
	src, err := m.getOperand_Imm32_Reg(instr, value)
	if err != nil {
		return err
	}
	if src.Kind() == OperandKindImm32 {
		m.insert(MOVmi32, mem, src)
	} else {
		m.insert(MOVmr32, mem, src)
	}
	return nil
}

// lowerIntBinary copies the left hand side into the output register before the
// operation, since ADD and SUB overwrite their first operand.
func (m *machine) lowerIntBinary(instr *ssa.Instruction) error {
	op, x, y := instr.IntBinaryData()
	var rr, ri Opcode
	switch op {
	case ssa.IntBinaryOpAdd:
		rr, ri = ADDrr32, ADDri32
	case ssa.IntBinaryOpSub:
		rr, ri = SUBrr32, SUBri32
	default:
		return backend.Unsupported(m.ctx, instr, "operation %s", op)
	}
	if err := requireInt32(m.ctx, instr, instr.Type()); err != nil {
		return err
	}

	lhs, err := m.getOperand_Reg(instr, x)
	if err != nil {
		return err
	}
	rhs, err := m.getOperand_Imm32_Reg(instr, y)
	if err != nil {
		return err
	}
	out, err := m.ctx.OutputVRegFor(instr, instr.Type())
	if err != nil {
		return err
	}

	m.insert(MOVrr32, RegOperand(out), lhs)
	if rhs.Kind() == OperandKindImm32 {
		m.insert(ri, RegOperand(out), rhs)
	} else {
		m.insert(rr, RegOperand(out), rhs)
	}
	return nil
}

// lowerIcmp emits nothing, since the comparison is emitted by each conditional branch using it.
func (m *machine) lowerIcmp(instr *ssa.Instruction) error {
	for _, user := range m.ctx.Users(instr.Result()) {
		if !isConditionOf(user, instr) {
			return backend.Unsupported(m.ctx, instr, "result used as a value by %s", user.Opcode())
		}
	}
	return nil
}

func isConditionOf(user, icmp *ssa.Instruction) bool {
	if user.Opcode() != ssa.OpcodeCondBr {
		return false
	}
	cond, _, _ := user.CondBrData()
	return cond == icmp.Result()
}

func (m *machine) matchInstr(def *backend.SSAValueDefinition, opcode ssa.Opcode) bool {
	return def.IsFromInstr() && def.Instr.Opcode() == opcode
}

// lowerCondBr emits the comparison, the conditional jump to the then block,
// and the jump to the else block, in this order.
func (m *machine) lowerCondBr(instr *ssa.Instruction) error {
	c, then, els := instr.CondBrData()
	def := m.ctx.ValueDefinition(c)
	if !m.matchInstr(def, ssa.OpcodeIcmp) {
		return backend.Unsupported(m.ctx, instr, "condition %s is not an icmp", m.ctx.Function().FormatValue(c))
	}

	cmp, err := comparisonOf(m.ctx, def.Instr)
	if err != nil {
		return err
	}
	lhs, err := m.getOperand_Reg(instr, cmp.x)
	if err != nil {
		return err
	}
	rhs, err := m.getOperand_Imm32_Reg(instr, cmp.y)
	if err != nil {
		return err
	}

	if rhs.Kind() == OperandKindImm32 {
		m.insert(CMPri32, lhs, rhs)
	} else {
		m.insert(CMPrr32, lhs, rhs)
	}
	m.insert(cmp.jcc, LabelOperand(m.ctx.Label(then)))
	m.insert(JMP, LabelOperand(m.ctx.Label(els)))
	return nil
}

func (m *machine) lowerRet(instr *ssa.Instruction) error {
	v := instr.RetData()
	if !v.Valid() {
		return backend.Unsupported(m.ctx, instr, "ret without a value")
	}
	if err := requireInt32(m.ctx, instr, m.ctx.Function().ValueType(v)); err != nil {
		return err
	}

	src, err := m.getOperand_Imm32_Reg(instr, v)
	if err != nil {
		return err
	}
	if src.Kind() == OperandKindImm32 {
		m.insert(MOVri32, RegOperand(eaxVReg), src)
	} else {
		m.insert(MOVrr32, RegOperand(eaxVReg), src)
	}
	m.insert(RET)
	return nil
}
