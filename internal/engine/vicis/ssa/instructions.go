package ssa

import "fmt"

// Opcode represents a SSA instruction.
type Opcode uint32

// InstructionID identifies an Instruction in a Function.
type InstructionID uint32

// Instruction represents an instruction whose opcode is specified by
// Opcode. Since Go doesn't have union type, we use this flattened type
// for all instructions, and therefore each field has different meaning
// depending on Opcode.
type Instruction struct {
	id     InstructionID
	opcode Opcode
	// typ is the type of the result, TypeVoid if the instruction produces nothing.
	typ TypeID
	// aux is the allocated type of Alloca, and the source element type of GetElementPtr.
	aux    TypeID
	u64    uint64
	u32    uint32
	v, v2  ValueID
	vs     []ValueID
	blks   []BasicBlockID
	callee string

	// blk is the owning block, BasicBlockIDInvalid until inserted.
	blk        BasicBlockID
	result     ValueID
	prev, next *Instruction
}

// ID returns the InstructionID of this instruction.
func (i *Instruction) ID() InstructionID {
	return i.id
}

// Opcode returns the opcode of this instruction.
func (i *Instruction) Opcode() Opcode {
	return i.opcode
}

// Type returns the result type of this instruction.
func (i *Instruction) Type() TypeID {
	return i.typ
}

// Block returns the id of the block this instruction is inserted into.
func (i *Instruction) Block() BasicBlockID {
	return i.blk
}

// Result returns the ValueID produced by this instruction. It is allocated for every
// instruction, but only meaningful when HasResult returns true.
func (i *Instruction) Result() ValueID {
	return i.result
}

// HasResult returns true if this instruction produces a value.
func (i *Instruction) HasResult() bool {
	return i.typ != TypeVoid && i.typ != TypeInvalid
}

// Next returns the next instruction laid out next to itself.
func (i *Instruction) Next() *Instruction {
	return i.next
}

// Prev returns the previous instruction laid out prior to itself.
func (i *Instruction) Prev() *Instruction {
	return i.prev
}

// IsTerminator returns true if this instruction ends a basic block.
func (i *Instruction) IsTerminator() bool {
	switch i.opcode {
	case OpcodeBr, OpcodeCondBr, OpcodeRet:
		return true
	}
	return false
}

// HasSideEffects returns true if this instruction must not be reordered with
// other instructions having side effects. Phi is included since it is pinned
// at the head of its block.
func (i *Instruction) HasSideEffects() bool {
	switch i.opcode {
	case OpcodePhi, OpcodeLoad, OpcodeStore, OpcodeCall, OpcodeBr, OpcodeCondBr, OpcodeRet:
		return true
	}
	return false
}

const (
	opcodeInvalid Opcode = iota

	// OpcodeAlloca reserves a stack slot: `v = Alloca T, count, align`.
	OpcodeAlloca

	// OpcodePhi selects the incoming value of the predecessor the control came from:
	// `v = Phi T, [x0, b0], [x1, b1], ...`.
	OpcodePhi

	// OpcodeLoad reads a value of the result type from the address: `v = Load T, addr`.
	OpcodeLoad

	// OpcodeStore writes the value to the address: `Store x, addr`.
	OpcodeStore

	// OpcodeIntBinary performs an integer arithmetic or bitwise operation: `v = IntBinary op, x, y`.
	OpcodeIntBinary

	// OpcodeIcmp compares two integers: `v = Icmp cond, x, y`.
	OpcodeIcmp

	// OpcodeSext sign-extends the integer to the result type: `v = Sext x`.
	OpcodeSext

	// OpcodeZext zero-extends the integer to the result type: `v = Zext x`.
	OpcodeZext

	// OpcodeGetElementPtr computes an address from a base and indices: `v = GetElementPtr T, base, idx...`.
	OpcodeGetElementPtr

	// OpcodeCall calls a function by its name: `v = Call @fn, args...`.
	OpcodeCall

	// OpcodeBr unconditionally jumps to the block: `Br blk`.
	OpcodeBr

	// OpcodeCondBr jumps to the first block if the condition is true, otherwise to the second: `CondBr c, t, f`.
	OpcodeCondBr

	// OpcodeRet returns from the function with an optional value: `Ret x`.
	OpcodeRet

	opcodeEnd
)

// String implements fmt.Stringer.
func (o Opcode) String() (ret string) {
	switch o {
	case OpcodeAlloca:
		return "Alloca"
	case OpcodePhi:
		return "Phi"
	case OpcodeLoad:
		return "Load"
	case OpcodeStore:
		return "Store"
	case OpcodeIntBinary:
		return "IntBinary"
	case OpcodeIcmp:
		return "Icmp"
	case OpcodeSext:
		return "Sext"
	case OpcodeZext:
		return "Zext"
	case OpcodeGetElementPtr:
		return "GetElementPtr"
	case OpcodeCall:
		return "Call"
	case OpcodeBr:
		return "Br"
	case OpcodeCondBr:
		return "CondBr"
	case OpcodeRet:
		return "Ret"
	}
	panic(fmt.Sprintf("unknown opcode %d", o))
}

// IntBinaryOp is the operation of OpcodeIntBinary.
type IntBinaryOp byte

const (
	IntBinaryOpAdd IntBinaryOp = iota
	IntBinaryOpSub
	IntBinaryOpMul
	IntBinaryOpSDiv
	IntBinaryOpUDiv
	IntBinaryOpAnd
	IntBinaryOpOr
	IntBinaryOpXor
	IntBinaryOpShl
	IntBinaryOpLShr
	IntBinaryOpAShr
)

// String implements fmt.Stringer. The names match LLVM IR.
func (o IntBinaryOp) String() string {
	switch o {
	case IntBinaryOpAdd:
		return "add"
	case IntBinaryOpSub:
		return "sub"
	case IntBinaryOpMul:
		return "mul"
	case IntBinaryOpSDiv:
		return "sdiv"
	case IntBinaryOpUDiv:
		return "udiv"
	case IntBinaryOpAnd:
		return "and"
	case IntBinaryOpOr:
		return "or"
	case IntBinaryOpXor:
		return "xor"
	case IntBinaryOpShl:
		return "shl"
	case IntBinaryOpLShr:
		return "lshr"
	case IntBinaryOpAShr:
		return "ashr"
	}
	panic(fmt.Sprintf("unknown binary op %d", o))
}

// AsAlloca initializes this instruction as an alloca of count elements of elem. typ is the pointer result type.
func (i *Instruction) AsAlloca(typ, elem TypeID, count uint64, align uint32) {
	i.opcode = OpcodeAlloca
	i.typ = typ
	i.aux = elem
	i.u64 = count
	i.u32 = align
}

// AllocaData returns the operands of OpcodeAlloca.
func (i *Instruction) AllocaData() (elem TypeID, count uint64, align uint32) {
	return i.aux, i.u64, i.u32
}

// AsPhi initializes this instruction as a phi. values[n] flows in from preds[n].
func (i *Instruction) AsPhi(typ TypeID, values []ValueID, preds []BasicBlockID) {
	if len(values) != len(preds) {
		panic("BUG: len(values) != len(preds)")
	}
	i.opcode = OpcodePhi
	i.typ = typ
	i.vs = values
	i.blks = preds
}

// PhiData returns the incoming values and their predecessors of OpcodePhi in order.
func (i *Instruction) PhiData() (values []ValueID, preds []BasicBlockID) {
	return i.vs, i.blks
}

// AsLoad initializes this instruction as a load of typ from addr.
func (i *Instruction) AsLoad(typ TypeID, addr ValueID) {
	i.opcode = OpcodeLoad
	i.typ = typ
	i.v = addr
}

// LoadData returns the address of OpcodeLoad.
func (i *Instruction) LoadData() (addr ValueID) {
	return i.v
}

// AsStore initializes this instruction as a store of value into addr.
func (i *Instruction) AsStore(value, addr ValueID) {
	i.opcode = OpcodeStore
	i.typ = TypeVoid
	i.v = value
	i.v2 = addr
}

// StoreData returns the operands of OpcodeStore.
func (i *Instruction) StoreData() (value, addr ValueID) {
	return i.v, i.v2
}

// AsIntBinary initializes this instruction as `op x, y`.
func (i *Instruction) AsIntBinary(op IntBinaryOp, typ TypeID, x, y ValueID) {
	i.opcode = OpcodeIntBinary
	i.typ = typ
	i.u64 = uint64(op)
	i.v = x
	i.v2 = y
}

// IntBinaryData returns the operands of OpcodeIntBinary.
func (i *Instruction) IntBinaryData() (op IntBinaryOp, x, y ValueID) {
	return IntBinaryOp(i.u64), i.v, i.v2
}

// AsIcmp initializes this instruction as `icmp c, x, y`. typ is the boolean result type.
func (i *Instruction) AsIcmp(c IntegerCmpCond, typ TypeID, x, y ValueID) {
	i.opcode = OpcodeIcmp
	i.typ = typ
	i.u64 = uint64(c)
	i.v = x
	i.v2 = y
}

// IcmpData returns the operands of OpcodeIcmp.
func (i *Instruction) IcmpData() (c IntegerCmpCond, x, y ValueID) {
	return IntegerCmpCond(i.u64), i.v, i.v2
}

// AsSext initializes this instruction as a sign extension of x to typ.
func (i *Instruction) AsSext(typ TypeID, x ValueID) {
	i.opcode = OpcodeSext
	i.typ = typ
	i.v = x
}

// AsZext initializes this instruction as a zero extension of x to typ.
func (i *Instruction) AsZext(typ TypeID, x ValueID) {
	i.opcode = OpcodeZext
	i.typ = typ
	i.v = x
}

// ExtendData returns the operand of OpcodeSext and OpcodeZext.
func (i *Instruction) ExtendData() (x ValueID) {
	return i.v
}

// AsGetElementPtr initializes this instruction as an address computation on base.
func (i *Instruction) AsGetElementPtr(typ, elem TypeID, base ValueID, indices []ValueID) {
	i.opcode = OpcodeGetElementPtr
	i.typ = typ
	i.aux = elem
	i.v = base
	i.vs = indices
}

// GetElementPtrData returns the operands of OpcodeGetElementPtr.
func (i *Instruction) GetElementPtrData() (elem TypeID, base ValueID, indices []ValueID) {
	return i.aux, i.v, i.vs
}

// AsCall initializes this instruction as a direct call to callee.
func (i *Instruction) AsCall(typ TypeID, callee string, args []ValueID) {
	i.opcode = OpcodeCall
	i.typ = typ
	i.callee = callee
	i.vs = args
}

// CallData returns the operands of OpcodeCall.
func (i *Instruction) CallData() (callee string, args []ValueID) {
	return i.callee, i.vs
}

// AsBr initializes this instruction as an unconditional jump to target.
func (i *Instruction) AsBr(target BasicBlockID) {
	i.opcode = OpcodeBr
	i.typ = TypeVoid
	i.blks = []BasicBlockID{target}
}

// BrData returns the target of OpcodeBr.
func (i *Instruction) BrData() (target BasicBlockID) {
	return i.blks[0]
}

// AsCondBr initializes this instruction as a conditional jump.
func (i *Instruction) AsCondBr(cond ValueID, then, els BasicBlockID) {
	i.opcode = OpcodeCondBr
	i.typ = TypeVoid
	i.v = cond
	i.blks = []BasicBlockID{then, els}
}

// CondBrData returns the operands of OpcodeCondBr.
func (i *Instruction) CondBrData() (cond ValueID, then, els BasicBlockID) {
	return i.v, i.blks[0], i.blks[1]
}

// AsRet initializes this instruction as a return. v is ValueInvalid for `ret void`.
func (i *Instruction) AsRet(v ValueID) {
	i.opcode = OpcodeRet
	i.typ = TypeVoid
	i.v = v
}

// RetData returns the returned value of OpcodeRet, ValueInvalid if none.
func (i *Instruction) RetData() (v ValueID) {
	return i.v
}

// Args appends the value operands of this instruction to dst in operand order and returns it.
func (i *Instruction) Args(dst []ValueID) []ValueID {
	switch i.opcode {
	case OpcodeAlloca, OpcodeBr:
	case OpcodePhi, OpcodeCall:
		dst = append(dst, i.vs...)
	case OpcodeLoad, OpcodeSext, OpcodeZext, OpcodeCondBr:
		dst = append(dst, i.v)
	case OpcodeStore, OpcodeIntBinary, OpcodeIcmp:
		dst = append(dst, i.v, i.v2)
	case OpcodeGetElementPtr:
		dst = append(dst, i.v)
		dst = append(dst, i.vs...)
	case OpcodeRet:
		if i.v.Valid() {
			dst = append(dst, i.v)
		}
	default:
		panic("BUG: invalid opcode " + fmt.Sprint(uint32(i.opcode)))
	}
	return dst
}

// Targets returns the successor blocks of a terminator, or the predecessors named by a phi.
func (i *Instruction) Targets() []BasicBlockID {
	switch i.opcode {
	case OpcodeBr, OpcodeCondBr, OpcodePhi:
		return i.blks
	}
	return nil
}
