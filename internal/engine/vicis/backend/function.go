package backend

import (
	"fmt"
	"strings"
)

// Function is the lowering result of one ssa.Function, handed to the register
// allocator and the encoder.
type Function[I fmt.Stringer] struct {
	Name string
	// Instructions are the machine instructions in the block layout order.
	Instructions []I
	// Blocks delimits Instructions per SSA block.
	Blocks []Block
	VRegs  *VRegTable
	Slots  *SlotTable
	// Labels is indexed by ssa.BasicBlockID.
	Labels []Label
}

// Block is the range of the machine instructions lowered from one SSA block.
type Block struct {
	Label Label
	// Name is the name of the SSA block.
	Name       string
	Start, End int
}

// Format returns the text representation of the lowered function.
func (f *Function[I]) Format() string {
	var sb strings.Builder
	for _, blk := range f.Blocks {
		fmt.Fprintf(&sb, "\n%s (SSA Block: %s):\n", blk.Label, blk.Name)
		for _, instr := range f.Instructions[blk.Start:blk.End] {
			sb.WriteString("\t" + instr.String() + "\n")
		}
	}
	return sb.String()
}
