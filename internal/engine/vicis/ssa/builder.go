// Package ssa is the target independent SSA form consumed by the backend.
// It is free of any ISA specific thing, and the blocks, instructions and values
// of a function are all stored in per-function arenas addressed by integer ids.
package ssa

import (
	"fmt"

	"github.com/sksat/vicis/internal/engine/vicis/vicisapi"
)

// Module is a set of functions sharing one Types table.
type Module struct {
	Name      string
	Types     *Types
	functions []*Function
}

// NewModule returns a new empty Module.
func NewModule(name string) *Module {
	return &Module{Name: name, Types: NewTypes()}
}

// NewFunction declares a function with the given function type and appends it to the module.
// The arguments are created from the parameter types of sig.
func (m *Module) NewFunction(name string, sig TypeID) *Function {
	f := &Function{
		name:             name,
		sig:              sig,
		types:            m.Types,
		basicBlocksPool:  vicisapi.NewPool[BasicBlock](),
		instructionsPool: vicisapi.NewPool[Instruction](),
		values:           []Value{{Kind: ValueKindInvalid}},
	}
	_, params, _ := m.Types.Signature(sig)
	for i, p := range params {
		f.params = append(f.params, f.allocateValue(Value{Kind: ValueKindArgument, Arg: i, typ: p}))
	}
	m.functions = append(m.functions, f)
	return f
}

// Functions returns the functions in declaration order.
func (m *Module) Functions() []*Function {
	return m.functions
}

// Function returns the function of the given name, nil if absent.
func (m *Module) Function(name string) *Function {
	for _, f := range m.functions {
		if f.name == name {
			return f
		}
	}
	return nil
}

// Function is an SSA function. Functions without any block are declarations.
type Function struct {
	name  string
	sig   TypeID
	types *Types

	basicBlocksPool  vicisapi.Pool[BasicBlock]
	instructionsPool vicisapi.Pool[Instruction]
	// values is indexed by ValueID.
	values []Value
	params []ValueID

	// entryBlk and tailBlk are the both ends of the block layout.
	entryBlk, tailBlk *BasicBlock
}

// Name returns the name of this function.
func (f *Function) Name() string {
	return f.name
}

// Signature returns the function type of this function.
func (f *Function) Signature() TypeID {
	return f.sig
}

// ReturnType returns the result type of this function.
func (f *Function) ReturnType() TypeID {
	ret, _, _ := f.types.Signature(f.sig)
	return ret
}

// Types returns the type table of the module this function belongs to.
func (f *Function) Types() *Types {
	return f.types
}

// IsDeclaration returns true if this function has no body.
func (f *Function) IsDeclaration() bool {
	return f.entryBlk == nil
}

// AllocateBasicBlock creates a new block and appends it to the layout.
func (f *Function) AllocateBasicBlock(name string) *BasicBlock {
	id := BasicBlockID(f.basicBlocksPool.Allocated())
	blk := f.basicBlocksPool.Allocate()
	blk.id = id
	blk.name = name
	if f.tailBlk == nil {
		f.entryBlk = blk
	} else {
		f.tailBlk.next = blk
		blk.prev = f.tailBlk
	}
	f.tailBlk = blk
	return blk
}

// AllocateInstruction returns a new Instruction together with its result ValueID.
// The instruction must be initialized by one of As* methods, and then inserted by InsertInstruction.
func (f *Function) AllocateInstruction() *Instruction {
	id := InstructionID(f.instructionsPool.Allocated())
	instr := f.instructionsPool.Allocate()
	instr.id = id
	instr.blk = BasicBlockIDInvalid
	instr.result = f.allocateValue(Value{Kind: ValueKindInstruction, Instruction: id})
	return instr
}

// InsertInstruction appends instr into the tail of blk. Inserting a branch
// records the CFG edges from blk to the branch targets.
func (f *Function) InsertInstruction(blk *BasicBlock, instr *Instruction) {
	if instr.opcode == opcodeInvalid {
		panic("BUG: inserting an uninitialized instruction")
	}
	if instr.blk != BasicBlockIDInvalid {
		panic(fmt.Sprintf("BUG: instruction %d is already inserted", instr.id))
	}
	instr.blk = blk.id
	blk.insertInstruction(instr)

	switch instr.opcode {
	case OpcodeBr, OpcodeCondBr:
		for _, target := range instr.blks {
			blk.addSucc(target)
			f.Block(target).addPred(blk.id)
		}
	}
}

// ConstInt returns a new integer constant of the given width.
func (f *Function) ConstInt(bits int, v int64) ValueID {
	return f.allocateValue(Value{Kind: ValueKindConstant, Const: v, typ: f.types.Int(bits)})
}

// Param returns the i-th argument.
func (f *Function) Param(i int) ValueID {
	return f.params[i]
}

// Params returns the arguments in order.
func (f *Function) Params() []ValueID {
	return f.params
}

func (f *Function) allocateValue(v Value) ValueID {
	id := ValueID(len(f.values))
	f.values = append(f.values, v)
	return id
}

// EntryBlock returns the first block in the layout, nil for declarations.
func (f *Function) EntryBlock() *BasicBlock {
	return f.entryBlk
}

// Blocks returns the blocks in layout order.
func (f *Function) Blocks() []*BasicBlock {
	ret := make([]*BasicBlock, 0, f.basicBlocksPool.Allocated())
	for blk := f.entryBlk; blk != nil; blk = blk.next {
		ret = append(ret, blk)
	}
	return ret
}

// Block returns the block of the given id.
func (f *Function) Block(id BasicBlockID) *BasicBlock {
	if int(id) >= f.basicBlocksPool.Allocated() {
		panic(fmt.Sprintf("BUG: invalid block id %d", id))
	}
	return f.basicBlocksPool.View(int(id))
}

// NumBlocks returns the number of allocated blocks.
func (f *Function) NumBlocks() int {
	return f.basicBlocksPool.Allocated()
}

// Instruction returns the instruction of the given id.
func (f *Function) Instruction(id InstructionID) *Instruction {
	if int(id) >= f.instructionsPool.Allocated() {
		panic(fmt.Sprintf("BUG: invalid instruction id %d", id))
	}
	return f.instructionsPool.View(int(id))
}

// NumInstructions returns the number of allocated instructions.
func (f *Function) NumInstructions() int {
	return f.instructionsPool.Allocated()
}

// NumValues returns the size of the value table. ValueIDs are below this.
func (f *Function) NumValues() int {
	return len(f.values)
}

// Value resolves the ValueID.
func (f *Function) Value(id ValueID) Value {
	if int(id) >= len(f.values) {
		panic(fmt.Sprintf("BUG: invalid value id %d", id))
	}
	return f.values[id]
}

// ValueType returns the type of the value.
func (f *Function) ValueType(id ValueID) TypeID {
	v := f.Value(id)
	if v.Kind == ValueKindInstruction {
		return f.Instruction(v.Instruction).typ
	}
	return v.typ
}

// DefiningInstruction returns the instruction producing the value, or nil if the value is not an instruction result.
func (f *Function) DefiningInstruction(id ValueID) *Instruction {
	v := f.Value(id)
	if v.Kind != ValueKindInstruction {
		return nil
	}
	return f.Instruction(v.Instruction)
}

// ValueUsers returns, for each ValueID, the inserted instructions using it
// as an operand, in layout order.
func (f *Function) ValueUsers() [][]*Instruction {
	users := make([][]*Instruction, len(f.values))
	var args []ValueID
	for blk := f.entryBlk; blk != nil; blk = blk.next {
		for instr := blk.rootInstr; instr != nil; instr = instr.next {
			args = instr.Args(args[:0])
			for _, a := range args {
				users[a] = append(users[a], instr)
			}
		}
	}
	return users
}

// ValueRefCounts returns the number of uses of each ValueID.
func (f *Function) ValueRefCounts() []int {
	counts := make([]int, len(f.values))
	for id, us := range f.ValueUsers() {
		counts[id] = len(us)
	}
	return counts
}
