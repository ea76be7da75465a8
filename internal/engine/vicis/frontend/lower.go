package frontend

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/nikandfor/errors"

	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// lowerInstr initializes instr from the LLVM IR instruction or terminator ll.
func (c *Compiler) lowerInstr(instr *ssa.Instruction, ll interface{}) (err error) {
	switch ll := ll.(type) {
	case *ir.InstAlloca:
		return c.lowerAlloca(instr, ll)
	case *ir.InstPhi:
		return c.lowerPhi(instr, ll)
	case *ir.InstLoad:
		typ, err := c.importType(ll.ElemType)
		if err != nil {
			return err
		}
		addr, err := c.valueOf(ll.Src)
		if err != nil {
			return err
		}
		instr.AsLoad(typ, addr)
	case *ir.InstStore:
		v, err := c.valueOf(ll.Src)
		if err != nil {
			return err
		}
		addr, err := c.valueOf(ll.Dst)
		if err != nil {
			return err
		}
		instr.AsStore(v, addr)
	case *ir.InstAdd:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpAdd, ll, ll.X, ll.Y)
	case *ir.InstSub:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpSub, ll, ll.X, ll.Y)
	case *ir.InstMul:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpMul, ll, ll.X, ll.Y)
	case *ir.InstSDiv:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpSDiv, ll, ll.X, ll.Y)
	case *ir.InstUDiv:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpUDiv, ll, ll.X, ll.Y)
	case *ir.InstAnd:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpAnd, ll, ll.X, ll.Y)
	case *ir.InstOr:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpOr, ll, ll.X, ll.Y)
	case *ir.InstXor:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpXor, ll, ll.X, ll.Y)
	case *ir.InstShl:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpShl, ll, ll.X, ll.Y)
	case *ir.InstLShr:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpLShr, ll, ll.X, ll.Y)
	case *ir.InstAShr:
		return c.lowerIntBinary(instr, ssa.IntBinaryOpAShr, ll, ll.X, ll.Y)
	case *ir.InstICmp:
		return c.lowerICmp(instr, ll)
	case *ir.InstSExt:
		typ, x, err := c.extendOperands(ll.To, ll.From)
		if err != nil {
			return err
		}
		instr.AsSext(typ, x)
	case *ir.InstZExt:
		typ, x, err := c.extendOperands(ll.To, ll.From)
		if err != nil {
			return err
		}
		instr.AsZext(typ, x)
	case *ir.InstGetElementPtr:
		return c.lowerGetElementPtr(instr, ll)
	case *ir.InstCall:
		return c.lowerCall(instr, ll)
	case *ir.TermBr:
		target, err := c.blockOf(ll.Target)
		if err != nil {
			return err
		}
		instr.AsBr(target.ID())
	case *ir.TermCondBr:
		cond, err := c.valueOf(ll.Cond)
		if err != nil {
			return err
		}
		then, err := c.blockOf(ll.TargetTrue)
		if err != nil {
			return err
		}
		els, err := c.blockOf(ll.TargetFalse)
		if err != nil {
			return err
		}
		instr.AsCondBr(cond, then.ID(), els.ID())
	case *ir.TermRet:
		v := ssa.ValueInvalid
		if ll.X != nil {
			if v, err = c.valueOf(ll.X); err != nil {
				return err
			}
		}
		instr.AsRet(v)
	default:
		return errors.Wrap(ErrUnsupported, "instruction %T", ll)
	}
	return nil
}

// valueOf returns the ssa value of the operand, creating a constant if needed.
func (c *Compiler) valueOf(v value.Value) (ssa.ValueID, error) {
	switch v := v.(type) {
	case *constant.Int:
		return c.fn.ConstInt(int(v.Typ.BitSize), v.X.Int64()), nil
	case constant.Constant:
		return ssa.ValueInvalid, errors.Wrap(ErrUnsupported, "constant %v", v)
	}
	id, ok := c.values[v]
	if !ok {
		return ssa.ValueInvalid, errors.New("undefined value %v", v.Ident())
	}
	return id, nil
}

// blockOf returns the ssa block of the branch target. The target is
// taken as interface{}, since llir refers to blocks through value.Value.
func (c *Compiler) blockOf(target interface{}) (*ssa.BasicBlock, error) {
	llBlk, ok := target.(*ir.Block)
	if !ok {
		return nil, errors.Wrap(ErrUnsupported, "branch target %T", target)
	}
	blk, ok := c.blocks[llBlk]
	if !ok {
		return nil, errors.New("block %s is not in function %s", llBlk.Name(), c.llFunc.Name())
	}
	return blk, nil
}

func (c *Compiler) lowerAlloca(instr *ssa.Instruction, ll *ir.InstAlloca) error {
	typ, err := c.importType(ll.Type())
	if err != nil {
		return err
	}
	elem, err := c.importType(ll.ElemType)
	if err != nil {
		return err
	}
	count := uint64(1)
	if ll.NElems != nil {
		n, ok := ll.NElems.(*constant.Int)
		if !ok {
			return errors.Wrap(ErrUnsupported, "alloca of dynamic size")
		}
		count = n.X.Uint64()
	}
	instr.AsAlloca(typ, elem, count, uint32(ll.Align))
	return nil
}

func (c *Compiler) lowerPhi(instr *ssa.Instruction, ll *ir.InstPhi) error {
	typ, err := c.importType(ll.Type())
	if err != nil {
		return err
	}
	values := make([]ssa.ValueID, len(ll.Incs))
	preds := make([]ssa.BasicBlockID, len(ll.Incs))
	for i, inc := range ll.Incs {
		if values[i], err = c.valueOf(inc.X); err != nil {
			return err
		}
		pred, err := c.blockOf(inc.Pred)
		if err != nil {
			return err
		}
		preds[i] = pred.ID()
	}
	instr.AsPhi(typ, values, preds)
	return nil
}

func (c *Compiler) lowerIntBinary(instr *ssa.Instruction, op ssa.IntBinaryOp, ll value.Value, x, y value.Value) error {
	typ, err := c.importType(ll.Type())
	if err != nil {
		return err
	}
	vx, err := c.valueOf(x)
	if err != nil {
		return err
	}
	vy, err := c.valueOf(y)
	if err != nil {
		return err
	}
	instr.AsIntBinary(op, typ, vx, vy)
	return nil
}

var icmpConds = map[enum.IPred]ssa.IntegerCmpCond{
	enum.IPredEQ:  ssa.IntegerCmpCondEqual,
	enum.IPredNE:  ssa.IntegerCmpCondNotEqual,
	enum.IPredSLT: ssa.IntegerCmpCondSignedLessThan,
	enum.IPredSLE: ssa.IntegerCmpCondSignedLessThanOrEqual,
	enum.IPredSGT: ssa.IntegerCmpCondSignedGreaterThan,
	enum.IPredSGE: ssa.IntegerCmpCondSignedGreaterThanOrEqual,
	enum.IPredULT: ssa.IntegerCmpCondUnsignedLessThan,
	enum.IPredULE: ssa.IntegerCmpCondUnsignedLessThanOrEqual,
	enum.IPredUGT: ssa.IntegerCmpCondUnsignedGreaterThan,
	enum.IPredUGE: ssa.IntegerCmpCondUnsignedGreaterThanOrEqual,
}

func (c *Compiler) lowerICmp(instr *ssa.Instruction, ll *ir.InstICmp) error {
	cond, ok := icmpConds[ll.Pred]
	if !ok {
		return errors.Wrap(ErrUnsupported, "icmp predicate %v", ll.Pred)
	}
	typ, err := c.importType(ll.Type())
	if err != nil {
		return err
	}
	x, err := c.valueOf(ll.X)
	if err != nil {
		return err
	}
	y, err := c.valueOf(ll.Y)
	if err != nil {
		return err
	}
	instr.AsIcmp(cond, typ, x, y)
	return nil
}

func (c *Compiler) extendOperands(to types.Type, from value.Value) (ssa.TypeID, ssa.ValueID, error) {
	typ, err := c.importType(to)
	if err != nil {
		return ssa.TypeInvalid, ssa.ValueInvalid, err
	}
	x, err := c.valueOf(from)
	if err != nil {
		return ssa.TypeInvalid, ssa.ValueInvalid, err
	}
	return typ, x, nil
}

func (c *Compiler) lowerGetElementPtr(instr *ssa.Instruction, ll *ir.InstGetElementPtr) error {
	typ, err := c.importType(ll.Type())
	if err != nil {
		return err
	}
	elem, err := c.importType(ll.ElemType)
	if err != nil {
		return err
	}
	base, err := c.valueOf(ll.Src)
	if err != nil {
		return err
	}
	indices := make([]ssa.ValueID, len(ll.Indices))
	for i, idx := range ll.Indices {
		if indices[i], err = c.valueOf(idx); err != nil {
			return err
		}
	}
	instr.AsGetElementPtr(typ, elem, base, indices)
	return nil
}

func (c *Compiler) lowerCall(instr *ssa.Instruction, ll *ir.InstCall) error {
	callee, ok := ll.Callee.(*ir.Func)
	if !ok {
		return errors.Wrap(ErrUnsupported, "indirect call")
	}
	typ, err := c.importType(ll.Type())
	if err != nil {
		return err
	}
	args := make([]ssa.ValueID, len(ll.Args))
	for i, a := range ll.Args {
		if args[i], err = c.valueOf(a); err != nil {
			return err
		}
	}
	instr.AsCall(typ, callee.Name(), args)
	return nil
}
