package backend

import (
	"fmt"

	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// VReg represents a register which is assigned to an SSA value. This is used to represent a register in the backend.
// A VReg may or may not be a physical register, and the info of physical register can be obtained by RealReg.
type VReg uint64

// VRegID is the lower 32bit of VReg, which is the pure identifier of VReg without RealReg info.
type VRegID uint32

// RealReg returns the RealReg of this VReg.
func (v VReg) RealReg() RealReg {
	return RealReg(v >> 32)
}

// IsRealReg returns true if this VReg is bound to a physical register.
func (v VReg) IsRealReg() bool {
	return v.RealReg() != RealRegInvalid
}

// SetRealReg sets the RealReg of this VReg and returns the updated VReg.
func (v VReg) SetRealReg(r RealReg) VReg {
	return VReg(r)<<32 | v&0xffffffff
}

// ID returns the VRegID of this VReg.
func (v VReg) ID() VRegID {
	return VRegID(v & 0xffffffff)
}

// Valid returns true if this VReg is Valid.
func (v VReg) Valid() bool {
	return v.ID() != vRegIDInvalid
}

// RealReg represents a physical register.
type RealReg byte

const RealRegInvalid = RealReg(0)

const (
	vRegIDInvalid VRegID = 1 << 31
	// VRegIDReserved is the ID of the VRegs bound to a RealReg, which never
	// collides with an ID allocated by VRegTable.
	VRegIDReserved = vRegIDInvalid - 1
	// VRegInvalid is the invalid VReg.
	VRegInvalid = VReg(vRegIDInvalid)
)

// FromRealReg returns the VReg bound to the RealReg.
func FromRealReg(r RealReg) VReg {
	return VReg(VRegIDReserved).SetRealReg(r)
}

// String implements fmt.Stringer.
func (v VReg) String() string {
	if !v.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("r%d?", v.ID())
}

// RegType represents the type of a register.
type RegType byte

const (
	RegTypeInvalid RegType = iota
	RegTypeInt
)

// RegTypeOf returns the RegType of the given ssa.TypeID.
func RegTypeOf(types *ssa.Types, typ ssa.TypeID) RegType {
	switch types.Kind(typ) {
	case ssa.TypeKindInt, ssa.TypeKindPointer:
		return RegTypeInt
	default:
		return RegTypeInvalid
	}
}

// VRegTable holds the type of every virtual register allocated for a function.
type VRegTable struct {
	// types is indexed by VRegID.
	types []ssa.TypeID
}

// Allocate allocates a new virtual register of the type.
func (t *VRegTable) Allocate(typ ssa.TypeID) VReg {
	id := VRegID(len(t.types))
	if id >= VRegIDReserved {
		panic("BUG: too many virtual registers")
	}
	t.types = append(t.types, typ)
	return VReg(id)
}

// Has returns true if the virtual register was allocated by this table.
// VRegs bound to a RealReg are never in the table.
func (t *VRegTable) Has(v VReg) bool {
	return !v.IsRealReg() && int(v.ID()) < len(t.types)
}

// Type returns the type of the virtual register, ssa.TypeInvalid if the table
// does not have it.
func (t *VRegTable) Type(v VReg) ssa.TypeID {
	if !t.Has(v) {
		return ssa.TypeInvalid
	}
	return t.types[v.ID()]
}

// SetType changes the type of the virtual register.
func (t *VRegTable) SetType(v VReg, typ ssa.TypeID) {
	t.types[v.ID()] = typ
}

// Len returns the number of allocated virtual registers.
func (t *VRegTable) Len() int {
	return len(t.types)
}

// Reset clears the table for the next function.
func (t *VRegTable) Reset() {
	t.types = t.types[:0]
}
