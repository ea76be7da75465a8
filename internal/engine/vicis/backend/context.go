package backend

import (
	"github.com/nikandfor/errors"

	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// Context implements CompilationContext. It is shared by the direct lowering
// in Compiler and the DAG construction.
type Context struct {
	f   *ssa.Function
	cur *ssa.BasicBlock

	vregs *VRegTable
	slots *SlotTable
	// ssaValueDefinitions is indexed by ssa.ValueID.
	ssaValueDefinitions []SSAValueDefinition
	// instrSlots maps the result of each Alloca to its slot.
	instrSlots map[ssa.ValueID]SlotID
	// labels is indexed by ssa.BasicBlockID.
	labels []Label
	users  [][]*ssa.Instruction
}

// NewContext returns a new Context. Init must be called before use.
func NewContext() *Context {
	return &Context{}
}

// Init prepares the context for lowering f. It assigns a virtual register to
// every argument and every instruction result, a stack slot to every Alloca,
// and a label to every block, before any instruction is lowered.
func (c *Context) Init(f *ssa.Function) {
	c.f = f
	c.cur = nil
	// The tables are handed to the lowering result, so they are never reused.
	c.vregs = &VRegTable{}
	c.slots = &SlotTable{}
	c.instrSlots = map[ssa.ValueID]SlotID{}
	c.users = f.ValueUsers()

	c.assignVirtualRegisters()
	c.assignLabels()
}

// assignVirtualRegisters assigns a virtual register to each ssa.ValueID produced into a register.
// Arguments are assigned first in order, followed by the instruction results in the layout order.
func (c *Context) assignVirtualRegisters() {
	f := c.f
	n := f.NumValues()
	if cap(c.ssaValueDefinitions) < n {
		c.ssaValueDefinitions = make([]SSAValueDefinition, n)
	}
	c.ssaValueDefinitions = c.ssaValueDefinitions[:n]
	for i := range c.ssaValueDefinitions {
		v := f.Value(ssa.ValueID(i))
		c.ssaValueDefinitions[i] = SSAValueDefinition{
			Arg:      -1,
			Const:    v.Const,
			VReg:     VRegInvalid,
			RefCount: len(c.users[i]),
		}
	}

	for i, p := range f.Params() {
		def := &c.ssaValueDefinitions[p]
		def.Arg = i
		def.VReg = c.vregs.Allocate(f.ValueType(p))
	}

	for blk := f.EntryBlock(); blk != nil; blk = blk.Next() {
		for cur := blk.Root(); cur != nil; cur = cur.Next() {
			def := &c.ssaValueDefinitions[cur.Result()]
			def.Instr = cur
			if cur.HasResult() {
				def.VReg = c.vregs.Allocate(cur.Type())
			}
			if cur.Opcode() == ssa.OpcodeAlloca {
				elem, count, _ := cur.AllocaData()
				c.instrSlots[cur.Result()] = c.slots.Allocate(elem, count)
			}
		}
	}
}

// assignLabels numbers the blocks from 1 in the layout order.
func (c *Context) assignLabels() {
	c.labels = make([]Label, c.f.NumBlocks())
	next := Label(1)
	for blk := c.f.EntryBlock(); blk != nil; blk = blk.Next() {
		c.labels[blk.ID()] = next
		next++
	}
}

// SetCurrentBlock sets the block being lowered.
func (c *Context) SetCurrentBlock(blk *ssa.BasicBlock) {
	c.cur = blk
}

// VRegs returns the virtual register table of the function.
func (c *Context) VRegs() *VRegTable { return c.vregs }

// Slots returns the stack slot table of the function.
func (c *Context) Slots() *SlotTable { return c.slots }

// Labels returns the labels indexed by ssa.BasicBlockID.
func (c *Context) Labels() []Label { return c.labels }

// Function implements CompilationContext.Function.
func (c *Context) Function() *ssa.Function { return c.f }

// CurrentBlock implements CompilationContext.CurrentBlock.
func (c *Context) CurrentBlock() *ssa.BasicBlock { return c.cur }

// NewVReg implements CompilationContext.NewVReg.
func (c *Context) NewVReg(typ ssa.TypeID) VReg {
	return c.vregs.Allocate(typ)
}

// OutputVRegFor implements CompilationContext.OutputVRegFor.
func (c *Context) OutputVRegFor(instr *ssa.Instruction, typ ssa.TypeID) (VReg, error) {
	v, err := c.Materialize(instr)
	if err != nil {
		return VRegInvalid, err
	}
	if c.vregs.Type(v) != typ {
		c.vregs.SetType(v, typ)
	}
	return v, nil
}

// Materialize implements CompilationContext.Materialize.
func (c *Context) Materialize(instr *ssa.Instruction) (VReg, error) {
	if !instr.HasResult() {
		return VRegInvalid, errors.Wrap(ErrNoResult, "instruction %d (%s)", instr.ID(), instr.Opcode())
	}
	def := &c.ssaValueDefinitions[instr.Result()]
	if def.Instr != instr {
		// Not reachable from the layout, so the pre-pass did not see it.
		return VRegInvalid, errors.New("instruction %d is not inserted into %s", instr.ID(), c.f.Name())
	}
	return def.VReg, nil
}

// ValueVReg implements CompilationContext.ValueVReg.
func (c *Context) ValueVReg(v ssa.ValueID) (VReg, error) {
	def := &c.ssaValueDefinitions[v]
	if !def.VReg.Valid() {
		return VRegInvalid, errors.Wrap(ErrNoResult, "value %s", c.f.FormatValue(v))
	}
	return def.VReg, nil
}

// ValueDefinition implements CompilationContext.ValueDefinition.
func (c *Context) ValueDefinition(v ssa.ValueID) *SSAValueDefinition {
	return &c.ssaValueDefinitions[v]
}

// VRegType implements CompilationContext.VRegType.
func (c *Context) VRegType(v VReg) ssa.TypeID {
	return c.vregs.Type(v)
}

// AllocateSlot implements CompilationContext.AllocateSlot.
func (c *Context) AllocateSlot(instr *ssa.Instruction) (SlotID, error) {
	if instr.Opcode() != ssa.OpcodeAlloca {
		return 0, errors.New("instruction %d is %s, not Alloca", instr.ID(), instr.Opcode())
	}
	s, ok := c.instrSlots[instr.Result()]
	if !ok {
		return 0, errors.New("instruction %d is not inserted into %s", instr.ID(), c.f.Name())
	}
	return s, nil
}

// SlotOf implements CompilationContext.SlotOf.
func (c *Context) SlotOf(v ssa.ValueID) (SlotID, bool) {
	s, ok := c.instrSlots[v]
	return s, ok
}

// Label implements CompilationContext.Label.
func (c *Context) Label(blk ssa.BasicBlockID) Label {
	return c.labels[blk]
}

// Users implements CompilationContext.Users.
func (c *Context) Users(v ssa.ValueID) []*ssa.Instruction {
	return c.users[v]
}
