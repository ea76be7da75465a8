// Package dag builds per-block dependency graphs of machine operations from
// an ssa.Function. Each node has data edges to the producers of its operands
// and a chain edge to the node executed after it, so that a scheduler can
// reorder chain-adjacent nodes which do not depend on each other.
package dag

import (
	"fmt"
	"math"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
)

// NodeID identifies a Node in a Function.
type NodeID uint32

// NodeIDInvalid never names a node.
const NodeIDInvalid NodeID = math.MaxUint32

// Valid returns true if this is not NodeIDInvalid.
func (n NodeID) Valid() bool { return n != NodeIDInvalid }

// String implements fmt.Stringer.
func (n NodeID) String() string {
	if !n.Valid() {
		return "-"
	}
	return fmt.Sprintf("n%d", uint32(n))
}

// BlockID identifies a Block in a Function. BlockIDs are assigned in the layout order from zero.
type BlockID uint32

// NodeKind is the kind of Node.
type NodeKind byte

const (
	NodeKindInvalid NodeKind = iota
	// NodeKindRoot is the sentinel each block's chain starts from.
	NodeKindRoot
	// NodeKindInst is an operation with its operand producers as args.
	NodeKindInst
	// NodeKindImm is an integer constant.
	NodeKindImm
	// NodeKindVReg is a value living in a virtual register, defined out of the block.
	NodeKindVReg
	// NodeKindSlot is the address of a stack slot.
	NodeKindSlot
	// NodeKindBlock is a reference to the label of a block.
	NodeKindBlock
)

// String implements fmt.Stringer.
func (k NodeKind) String() string {
	switch k {
	case NodeKindRoot:
		return "root"
	case NodeKindInst:
		return "inst"
	case NodeKindImm:
		return "imm"
	case NodeKindVReg:
		return "vreg"
	case NodeKindSlot:
		return "slot"
	case NodeKindBlock:
		return "block"
	}
	return "invalid"
}

// Node is a node of the graph. Op is the target operation type.
// Each field has different meaning depending on kind.
type Node[Op fmt.Stringer] struct {
	id    NodeID
	kind  NodeKind
	block BlockID
	// chain is the node executed after this one, NodeIDInvalid at the end of the block.
	chain NodeID

	op   Op
	args []NodeID

	imm  int64
	bits int
	vreg backend.VReg
	slot backend.SlotID
	// label and target are the label and the block a NodeKindBlock refers to.
	label  backend.Label
	target BlockID
}

// ID returns the NodeID of this node.
func (n *Node[Op]) ID() NodeID { return n.id }

// Kind returns the kind of this node.
func (n *Node[Op]) Kind() NodeKind { return n.kind }

// Block returns the block owning this node.
func (n *Node[Op]) Block() BlockID { return n.block }

// Chain returns the node executed after this one, NodeIDInvalid if this is the last.
func (n *Node[Op]) Chain() NodeID { return n.chain }

// Op returns the operation of a NodeKindInst.
func (n *Node[Op]) Op() Op { return n.op }

// Args returns the producers of the operands of a NodeKindInst in operand order.
func (n *Node[Op]) Args() []NodeID { return n.args }

// Imm returns the constant and its width of a NodeKindImm.
func (n *Node[Op]) Imm() (v int64, bits int) { return n.imm, n.bits }

// VReg returns the register of a NodeKindVReg.
func (n *Node[Op]) VReg() backend.VReg { return n.vreg }

// Slot returns the stack slot of a NodeKindSlot.
func (n *Node[Op]) Slot() backend.SlotID { return n.slot }

// Label returns the label and the referred block of a NodeKindBlock.
func (n *Node[Op]) Label() (backend.Label, BlockID) { return n.label, n.target }

// String implements fmt.Stringer.
func (n *Node[Op]) String() string {
	switch n.kind {
	case NodeKindRoot:
		return "Root"
	case NodeKindInst:
		return fmt.Sprintf("%s %v", n.op, n.args)
	case NodeKindImm:
		return fmt.Sprintf("i%d %d", n.bits, n.imm)
	case NodeKindVReg:
		return n.vreg.String()
	case NodeKindSlot:
		return n.slot.String()
	case NodeKindBlock:
		return n.label.String()
	}
	return "invalid"
}
