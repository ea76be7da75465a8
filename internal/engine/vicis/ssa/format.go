package ssa

import (
	"fmt"
	"strings"
)

// Format renders the function in LLVM-like text. Instruction results are
// named %v<ValueID> and arguments %a<index>, so that the output only depends
// on the ids. Only used for testing and debugging.
func (f *Function) Format() string {
	var sb strings.Builder
	ret, _, variadic := f.types.Signature(f.sig)

	params := make([]string, 0, len(f.params)+1)
	for _, p := range f.params {
		params = append(params, f.formatOperand(p))
	}
	if variadic {
		params = append(params, "...")
	}
	head := "define"
	if f.IsDeclaration() {
		head = "declare"
	}
	fmt.Fprintf(&sb, "%s %s @%s(%s)", head, f.types.String(ret), f.name, strings.Join(params, ", "))
	if f.IsDeclaration() {
		sb.WriteByte('\n')
		return sb.String()
	}

	sb.WriteString(" {\n")
	for blk := f.entryBlk; blk != nil; blk = blk.next {
		if blk != f.entryBlk {
			sb.WriteByte('\n')
		}
		sb.WriteString(blk.Name() + ":")
		if len(blk.preds) > 0 {
			preds := make([]string, len(blk.preds))
			for i, p := range blk.preds {
				preds[i] = "%" + f.Block(p).Name()
			}
			sb.WriteString(" ; preds = " + strings.Join(preds, ", "))
		}
		sb.WriteByte('\n')
		for instr := blk.rootInstr; instr != nil; instr = instr.next {
			sb.WriteString("  " + f.FormatInstruction(instr) + "\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// FormatValue renders the value without its type.
func (f *Function) FormatValue(id ValueID) string {
	v := f.Value(id)
	switch v.Kind {
	case ValueKindInstruction:
		return fmt.Sprintf("%%v%d", id)
	case ValueKindArgument:
		return fmt.Sprintf("%%a%d", v.Arg)
	case ValueKindConstant:
		if f.types.IsInt(v.typ, 1) {
			if v.Const != 0 {
				return "true"
			}
			return "false"
		}
		return fmt.Sprintf("%d", v.Const)
	}
	return "invalid"
}

func (f *Function) formatOperand(id ValueID) string {
	return f.types.String(f.ValueType(id)) + " " + f.FormatValue(id)
}

func (f *Function) formatLabel(id BasicBlockID) string {
	return "label %" + f.Block(id).Name()
}

// FormatInstruction renders one instruction.
func (f *Function) FormatInstruction(i *Instruction) string {
	var instr string
	switch i.opcode {
	case OpcodeAlloca:
		elem, count, align := i.AllocaData()
		instr = "alloca " + f.types.String(elem)
		if count != 1 {
			instr += fmt.Sprintf(", i64 %d", count)
		}
		if align != 0 {
			instr += fmt.Sprintf(", align %d", align)
		}
	case OpcodePhi:
		vs, preds := i.PhiData()
		incs := make([]string, len(vs))
		for idx := range vs {
			incs[idx] = fmt.Sprintf("[ %s, %%%s ]", f.FormatValue(vs[idx]), f.Block(preds[idx]).Name())
		}
		instr = fmt.Sprintf("phi %s %s", f.types.String(i.typ), strings.Join(incs, ", "))
	case OpcodeLoad:
		instr = fmt.Sprintf("load %s, %s", f.types.String(i.typ), f.formatOperand(i.LoadData()))
	case OpcodeStore:
		v, addr := i.StoreData()
		instr = fmt.Sprintf("store %s, %s", f.formatOperand(v), f.formatOperand(addr))
	case OpcodeIntBinary:
		op, x, y := i.IntBinaryData()
		instr = fmt.Sprintf("%s %s, %s", op, f.formatOperand(x), f.FormatValue(y))
	case OpcodeIcmp:
		c, x, y := i.IcmpData()
		instr = fmt.Sprintf("icmp %s %s, %s", c, f.formatOperand(x), f.FormatValue(y))
	case OpcodeSext, OpcodeZext:
		name := "sext"
		if i.opcode == OpcodeZext {
			name = "zext"
		}
		instr = fmt.Sprintf("%s %s to %s", name, f.formatOperand(i.ExtendData()), f.types.String(i.typ))
	case OpcodeGetElementPtr:
		elem, base, indices := i.GetElementPtrData()
		ops := make([]string, 0, len(indices)+1)
		ops = append(ops, f.formatOperand(base))
		for _, idx := range indices {
			ops = append(ops, f.formatOperand(idx))
		}
		instr = fmt.Sprintf("getelementptr %s, %s", f.types.String(elem), strings.Join(ops, ", "))
	case OpcodeCall:
		callee, args := i.CallData()
		as := make([]string, len(args))
		for idx, a := range args {
			as[idx] = f.formatOperand(a)
		}
		instr = fmt.Sprintf("call %s @%s(%s)", f.types.String(i.typ), callee, strings.Join(as, ", "))
	case OpcodeBr:
		instr = "br " + f.formatLabel(i.BrData())
	case OpcodeCondBr:
		c, then, els := i.CondBrData()
		instr = fmt.Sprintf("br %s, %s, %s", f.formatOperand(c), f.formatLabel(then), f.formatLabel(els))
	case OpcodeRet:
		if v := i.RetData(); v.Valid() {
			instr = "ret " + f.formatOperand(v)
		} else {
			instr = "ret void"
		}
	default:
		panic(fmt.Sprintf("TODO: format for %s", i.opcode))
	}

	if i.HasResult() {
		return fmt.Sprintf("%s = %s", f.FormatValue(i.result), instr)
	}
	return instr
}
