package ssa

// IntegerCmpCond is the predicate of an Icmp instruction.
type IntegerCmpCond byte

// The comments give the LLVM IR predicate of each condition.
const (
	IntegerCmpCondEqual                      IntegerCmpCond = iota // eq
	IntegerCmpCondNotEqual                                         // ne
	IntegerCmpCondSignedLessThan                                   // slt
	IntegerCmpCondSignedGreaterThanOrEqual                         // sge
	IntegerCmpCondSignedGreaterThan                                // sgt
	IntegerCmpCondSignedLessThanOrEqual                            // sle
	IntegerCmpCondUnsignedLessThan                                 // ult
	IntegerCmpCondUnsignedGreaterThanOrEqual                       // uge
	IntegerCmpCondUnsignedGreaterThan                              // ugt
	IntegerCmpCondUnsignedLessThanOrEqual                          // ule

	integerCmpCondEnd
)

var integerCmpCondNames = [integerCmpCondEnd]string{
	"eq", "ne", "slt", "sge", "sgt", "sle", "ult", "uge", "ugt", "ule",
}

// String implements fmt.Stringer and returns the LLVM IR predicate.
func (i IntegerCmpCond) String() string {
	if i >= integerCmpCondEnd {
		panic("invalid integer comparison condition")
	}
	return integerCmpCondNames[i]
}

// Signed returns true if the condition interprets its operands as signed integers.
func (i IntegerCmpCond) Signed() bool {
	return i >= IntegerCmpCondSignedLessThan && i <= IntegerCmpCondSignedLessThanOrEqual
}
