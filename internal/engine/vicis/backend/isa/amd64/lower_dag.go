package amd64

import (
	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/dag"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// dagConverter implements dag.Converter with the same shapes as the direct lowering.
// Nodes carry the opcode only: the operands are the args, and the register of
// each node is chosen by the scheduler's selection step.
type dagConverter struct{}

// NewDAGConverter returns the dag.Converter for amd64.
func NewDAGConverter() dag.Converter[Opcode] {
	return dagConverter{}
}

var _ dag.Converter[Opcode] = dagConverter{}

// Convert implements dag.Converter.
func (dagConverter) Convert(b *dag.Builder[Opcode], instr *ssa.Instruction) (dag.NodeID, []dag.NodeID, error) {
	ctx := b.Context()
	switch instr.Opcode() {
	case ssa.OpcodeAlloca:
		// Users refer to the slot through their own Slot leaves.
		_, err := ctx.AllocateSlot(instr)
		return dag.NodeIDInvalid, nil, err
	case ssa.OpcodePhi:
		return chained(convertPhi(b, instr))
	case ssa.OpcodeLoad:
		return chained(convertLoad(b, instr))
	case ssa.OpcodeStore:
		return chained(convertStore(b, instr))
	case ssa.OpcodeIntBinary:
		n, err := convertIntBinary(b, instr)
		return n, nil, err
	case ssa.OpcodeIcmp:
		n, err := convertIcmp(b, instr)
		return n, nil, err
	case ssa.OpcodeBr:
		target, err := b.BlockRef(instr.BrData())
		if err != nil {
			return dag.NodeIDInvalid, nil, err
		}
		return chained(b.Inst(JMP, target))
	case ssa.OpcodeCondBr:
		return convertCondBr(b, instr)
	case ssa.OpcodeRet:
		return chained(convertRet(b, instr))
	}
	return dag.NodeIDInvalid, nil, backend.Unsupported(ctx, instr, "no conversion rule")
}

func chained(n dag.NodeID, err error) (dag.NodeID, []dag.NodeID, error) {
	if err != nil {
		return dag.NodeIDInvalid, nil, err
	}
	return n, []dag.NodeID{n}, nil
}

// dagValue returns the node of v, which must be either a register or a 32-bit immediate.
func dagValue(b *dag.Builder[Opcode], instr *ssa.Instruction, v ssa.ValueID, leaf bool) (dag.NodeID, bool, error) {
	ctx := b.Context()
	if _, ok := ctx.SlotOf(v); ok {
		return dag.NodeIDInvalid, false, backend.Unsupported(ctx, instr, "address of stack slot %s as a register", ctx.Function().FormatValue(v))
	}
	isConst := ctx.ValueDefinition(v).IsConst()
	if isConst {
		if _, err := imm32Of(ctx, instr, v); err != nil {
			return dag.NodeIDInvalid, false, err
		}
	}
	var n dag.NodeID
	var err error
	if leaf {
		n, err = b.Leaf(v)
	} else {
		n, err = b.Operand(v)
	}
	return n, isConst, err
}

func dagRegister(b *dag.Builder[Opcode], instr *ssa.Instruction, v ssa.ValueID) (dag.NodeID, error) {
	n, isConst, err := dagValue(b, instr, v, false)
	if err == nil && isConst {
		ctx := b.Context()
		err = backend.Unsupported(ctx, instr, "constant %s where a register is required", ctx.Function().FormatValue(v))
	}
	return n, err
}

func dagSlot(b *dag.Builder[Opcode], instr *ssa.Instruction, addr ssa.ValueID) (dag.NodeID, error) {
	if _, err := slotOf(b.Context(), instr, addr); err != nil {
		return dag.NodeIDInvalid, err
	}
	return b.Operand(addr)
}

func convertPhi(b *dag.Builder[Opcode], instr *ssa.Instruction) (dag.NodeID, error) {
	ctx := b.Context()
	types := ctx.Function().Types()
	if backend.RegTypeOf(types, instr.Type()) != backend.RegTypeInt {
		return dag.NodeIDInvalid, backend.Unsupported(ctx, instr, "phi of type %s", types.String(instr.Type()))
	}
	values, preds, err := phiIncomings(ctx, instr)
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	args := make([]dag.NodeID, 0, 2*len(values))
	for i, v := range values {
		// Incoming values are always leaves: they are defined at the end of the predecessors.
		n, _, err := dagValue(b, instr, v, true)
		if err != nil {
			return dag.NodeIDInvalid, err
		}
		blk, err := b.BlockRef(preds[i])
		if err != nil {
			return dag.NodeIDInvalid, err
		}
		args = append(args, n, blk)
	}
	return b.Inst(PHI, args...)
}

func convertLoad(b *dag.Builder[Opcode], instr *ssa.Instruction) (dag.NodeID, error) {
	if err := requireInt32(b.Context(), instr, instr.Type()); err != nil {
		return dag.NodeIDInvalid, err
	}
	mem, err := dagSlot(b, instr, instr.LoadData())
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	return b.Inst(MOVrm32, mem)
}

func convertStore(b *dag.Builder[Opcode], instr *ssa.Instruction) (dag.NodeID, error) {
	ctx := b.Context()
	v, addr := instr.StoreData()
	if err := requireInt32(ctx, instr, ctx.Function().ValueType(v)); err != nil {
		return dag.NodeIDInvalid, err
	}
	mem, err := dagSlot(b, instr, addr)
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	src, isConst, err := dagValue(b, instr, v, false)
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	if isConst {
		return b.Inst(MOVmi32, mem, src)
	}
	return b.Inst(MOVmr32, mem, src)
}

func convertIntBinary(b *dag.Builder[Opcode], instr *ssa.Instruction) (dag.NodeID, error) {
	ctx := b.Context()
	op, x, y := instr.IntBinaryData()
	var rr, ri Opcode
	switch op {
	case ssa.IntBinaryOpAdd:
		rr, ri = ADDrr32, ADDri32
	case ssa.IntBinaryOpSub:
		rr, ri = SUBrr32, SUBri32
	default:
		return dag.NodeIDInvalid, backend.Unsupported(ctx, instr, "operation %s", op)
	}
	if err := requireInt32(ctx, instr, instr.Type()); err != nil {
		return dag.NodeIDInvalid, err
	}
	lhs, err := dagRegister(b, instr, x)
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	rhs, isConst, err := dagValue(b, instr, y, false)
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	if isConst {
		return b.Inst(ri, lhs, rhs)
	}
	return b.Inst(rr, lhs, rhs)
}

func convertIcmp(b *dag.Builder[Opcode], instr *ssa.Instruction) (dag.NodeID, error) {
	cmp, err := comparisonOf(b.Context(), instr)
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	lhs, err := dagRegister(b, instr, cmp.x)
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	rhs, isConst, err := dagValue(b, instr, cmp.y, false)
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	if isConst {
		return b.Inst(CMPri32, lhs, rhs)
	}
	return b.Inst(CMPrr32, lhs, rhs)
}

// convertCondBr chains the conditional jump to the then block and the jump to the else block.
// The comparison must be in the same block, since the flags do not live across blocks.
func convertCondBr(b *dag.Builder[Opcode], instr *ssa.Instruction) (dag.NodeID, []dag.NodeID, error) {
	ctx := b.Context()
	c, then, els := instr.CondBrData()
	def := ctx.ValueDefinition(c)
	if !def.IsFromInstr() || def.Instr.Opcode() != ssa.OpcodeIcmp {
		return dag.NodeIDInvalid, nil, backend.Unsupported(ctx, instr, "condition %s is not an icmp", ctx.Function().FormatValue(c))
	}
	if def.Instr.Block() != instr.Block() {
		return dag.NodeIDInvalid, nil, backend.Unsupported(ctx, instr, "condition %s is defined in another block", ctx.Function().FormatValue(c))
	}

	cmp, err := comparisonOf(ctx, def.Instr)
	if err != nil {
		return dag.NodeIDInvalid, nil, err
	}
	flags, err := b.Operand(c)
	if err != nil {
		return dag.NodeIDInvalid, nil, err
	}
	thenBlk, err := b.BlockRef(then)
	if err != nil {
		return dag.NodeIDInvalid, nil, err
	}
	jcc, err := b.Inst(cmp.jcc, flags, thenBlk)
	if err != nil {
		return dag.NodeIDInvalid, nil, err
	}
	elseBlk, err := b.BlockRef(els)
	if err != nil {
		return dag.NodeIDInvalid, nil, err
	}
	jmp, err := b.Inst(JMP, elseBlk)
	if err != nil {
		return dag.NodeIDInvalid, nil, err
	}
	return dag.NodeIDInvalid, []dag.NodeID{jcc, jmp}, nil
}

// convertRet leaves the move into the return register to the selection step.
func convertRet(b *dag.Builder[Opcode], instr *ssa.Instruction) (dag.NodeID, error) {
	ctx := b.Context()
	v := instr.RetData()
	if !v.Valid() {
		return dag.NodeIDInvalid, backend.Unsupported(ctx, instr, "ret without a value")
	}
	if err := requireInt32(ctx, instr, ctx.Function().ValueType(v)); err != nil {
		return dag.NodeIDInvalid, err
	}
	n, _, err := dagValue(b, instr, v, false)
	if err != nil {
		return dag.NodeIDInvalid, err
	}
	return b.Inst(RET, n)
}
