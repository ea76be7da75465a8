package amd64

import (
	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// cond represents a condition code of the flags set by CMP.
type cond uint8

const (
	condE  cond = iota // E represents "equal"
	condNE             // NE represents "not equal"
	condL              // L represents "signed less than"
	condLE             // LE represents "signed less than or equal"
	condG              // G represents "signed greater than"
	condGE             // GE represents "signed greater than or equal"
	condB              // B represents "unsigned below"
	condBE             // BE represents "unsigned below or equal"
	condA              // A represents "unsigned above"
	condAE             // AE represents "unsigned above or equal"
)

// String implements fmt.Stringer.
func (c cond) String() string {
	switch c {
	case condE:
		return "e"
	case condNE:
		return "ne"
	case condL:
		return "l"
	case condLE:
		return "le"
	case condG:
		return "g"
	case condGE:
		return "ge"
	case condB:
		return "b"
	case condBE:
		return "be"
	case condA:
		return "a"
	case condAE:
		return "ae"
	default:
		panic(c)
	}
}

// swap returns the condition which holds for the swapped operands of the comparison.
func (c cond) swap() cond {
	switch c {
	case condE, condNE:
		return c
	case condL:
		return condG
	case condLE:
		return condGE
	case condG:
		return condL
	case condGE:
		return condLE
	case condB:
		return condA
	case condBE:
		return condAE
	case condA:
		return condB
	case condAE:
		return condBE
	default:
		panic(c)
	}
}

// jcc returns the conditional jump taken when the condition holds, and false if
// no such jump is in the opcode set.
func (c cond) jcc() (Opcode, bool) {
	switch c {
	case condE:
		return JE, true
	case condNE:
		return JNE, true
	case condL:
		return JL, true
	case condLE:
		return JLE, true
	case condG:
		return JG, true
	case condGE:
		return JGE, true
	}
	return opcodeInvalid, false
}

func condFromSSAIntegerCmpCond(c ssa.IntegerCmpCond) cond {
	switch c {
	case ssa.IntegerCmpCondEqual:
		return condE
	case ssa.IntegerCmpCondNotEqual:
		return condNE
	case ssa.IntegerCmpCondSignedLessThan:
		return condL
	case ssa.IntegerCmpCondSignedLessThanOrEqual:
		return condLE
	case ssa.IntegerCmpCondSignedGreaterThan:
		return condG
	case ssa.IntegerCmpCondSignedGreaterThanOrEqual:
		return condGE
	case ssa.IntegerCmpCondUnsignedLessThan:
		return condB
	case ssa.IntegerCmpCondUnsignedLessThanOrEqual:
		return condBE
	case ssa.IntegerCmpCondUnsignedGreaterThan:
		return condA
	case ssa.IntegerCmpCondUnsignedGreaterThanOrEqual:
		return condAE
	default:
		panic(c)
	}
}

// comparison is an icmp in the form CMP can encode: x is a register and y is a register or an immediate.
type comparison struct {
	x, y ssa.ValueID
	c    cond
	jcc  Opcode
}

// comparisonOf normalizes the icmp so that a constant comes on the right hand side.
// The predicate is checked before the operands, so that an unsupported predicate is
// reported whatever the operands are.
func comparisonOf(ctx backend.CompilationContext, icmp *ssa.Instruction) (comparison, error) {
	c, x, y := icmp.IcmpData()
	cmp := comparison{x: x, y: y, c: condFromSSAIntegerCmpCond(c)}
	jcc, ok := cmp.c.jcc()
	if !ok {
		return comparison{}, backend.Unsupported(ctx, icmp, "predicate %s", c)
	}
	cmp.jcc = jcc

	f := ctx.Function()
	if err := requireInt32(ctx, icmp, f.ValueType(x)); err != nil {
		return comparison{}, err
	}
	if ctx.ValueDefinition(x).IsConst() && !ctx.ValueDefinition(y).IsConst() {
		cmp.x, cmp.y, cmp.c = y, x, cmp.c.swap()
		cmp.jcc, _ = cmp.c.jcc()
	}
	return cmp, nil
}
