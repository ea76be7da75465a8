package backend

import (
	"fmt"

	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// SlotID identifies a stack slot of a function. Slots are later replaced
// with frame relative addressing once the frame layout is known.
type SlotID uint32

// String implements fmt.Stringer.
func (s SlotID) String() string {
	return fmt.Sprintf("slot%d", s)
}

// SlotTable holds the type of every stack slot of a function.
type SlotTable struct {
	// types and counts are indexed by SlotID.
	types  []ssa.TypeID
	counts []uint64
}

// Allocate allocates a new slot for count consecutive values of the type.
func (t *SlotTable) Allocate(typ ssa.TypeID, count uint64) SlotID {
	t.types = append(t.types, typ)
	t.counts = append(t.counts, count)
	return SlotID(len(t.types) - 1)
}

// Type returns the element type stored in the slot.
func (t *SlotTable) Type(s SlotID) ssa.TypeID {
	return t.types[s]
}

// Count returns the number of elements stored in the slot.
func (t *SlotTable) Count(s SlotID) uint64 {
	return t.counts[s]
}

// Size returns the number of bytes the slot occupies.
func (t *SlotTable) Size(types *ssa.Types, s SlotID) uint64 {
	return types.Size(t.types[s]) * t.counts[s]
}

// Has returns true if the slot exists in the table.
func (t *SlotTable) Has(s SlotID) bool {
	return int(s) < len(t.types)
}

// Len returns the number of slots.
func (t *SlotTable) Len() int {
	return len(t.types)
}

// Reset clears the table for the next function.
func (t *SlotTable) Reset() {
	t.types = t.types[:0]
	t.counts = t.counts[:0]
}

// Label is the jump target of a block. Labels are numbered from 1 in the block
// layout order, and LabelInvalid is the zero value.
type Label uint32

// LabelInvalid is the invalid Label.
const LabelInvalid Label = 0

// String implements fmt.Stringer.
func (l Label) String() string {
	return fmt.Sprintf("L%d", l)
}
