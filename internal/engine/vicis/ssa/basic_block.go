package ssa

import (
	"fmt"
	"math"
)

// BasicBlockID identifies a BasicBlock in a Function.
type BasicBlockID uint32

// BasicBlockIDInvalid never names a block.
const BasicBlockIDInvalid BasicBlockID = math.MaxUint32

// BasicBlock represents the Basic Block of an SSA function.
//
// Blocks are owned by the Function and laid out in a doubly linked list,
// which gives the program order independently of the allocation order.
type BasicBlock struct {
	id         BasicBlockID
	name       string
	rootInstr  *Instruction
	tailInstr  *Instruction
	preds      []BasicBlockID
	succs      []BasicBlockID
	prev, next *BasicBlock
}

// ID returns the BasicBlockID of this block.
func (bb *BasicBlock) ID() BasicBlockID {
	return bb.id
}

// Name returns the label of this block.
func (bb *BasicBlock) Name() string {
	if bb.name == "" {
		return fmt.Sprintf("blk%d", bb.id)
	}
	return bb.name
}

// Root returns the first instruction of this block.
func (bb *BasicBlock) Root() *Instruction {
	return bb.rootInstr
}

// Tail returns the last instruction of this block.
func (bb *BasicBlock) Tail() *Instruction {
	return bb.tailInstr
}

// Preds returns the predecessors in the order the branches to this block were inserted.
func (bb *BasicBlock) Preds() []BasicBlockID {
	return bb.preds
}

// Succs returns the successors in the operand order of the terminator.
func (bb *BasicBlock) Succs() []BasicBlockID {
	return bb.succs
}

// Next returns the block laid out after this one, nil if this is the last.
func (bb *BasicBlock) Next() *BasicBlock {
	return bb.next
}

// Prev returns the block laid out before this one, nil if this is the entry.
func (bb *BasicBlock) Prev() *BasicBlock {
	return bb.prev
}

// insertInstruction appends next to the tail of this block.
func (bb *BasicBlock) insertInstruction(next *Instruction) {
	current := bb.tailInstr
	if current != nil {
		current.next = next
		next.prev = current
	} else {
		bb.rootInstr = next
	}
	bb.tailInstr = next
}

func (bb *BasicBlock) addPred(id BasicBlockID) {
	for _, p := range bb.preds {
		if p == id {
			return
		}
	}
	bb.preds = append(bb.preds, id)
}

func (bb *BasicBlock) addSucc(id BasicBlockID) {
	for _, s := range bb.succs {
		if s == id {
			return
		}
	}
	bb.succs = append(bb.succs, id)
}

// String implements fmt.Stringer. Only used for debugging.
func (bb *BasicBlock) String() string {
	return fmt.Sprintf("%s <-- %v", bb.Name(), bb.preds)
}
