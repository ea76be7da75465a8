// Package frontend imports textual LLVM IR into the ssa package.
package frontend

import (
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/nikandfor/errors"

	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// ErrUnsupported is returned for LLVM IR constructs which have no counterpart in the ssa package.
var ErrUnsupported = errors.New("unsupported LLVM IR construct")

// ParseModule parses LLVM IR text and imports it as a module of the name.
func ParseModule(name, src string) (*ssa.Module, error) {
	m, err := asm.ParseString(name, src)
	if err != nil {
		return nil, errors.Wrap(err, "parse %s", name)
	}
	return Import(name, m)
}

// ParseFile parses the LLVM IR file and imports it as a module named after the path.
func ParseFile(path string) (*ssa.Module, error) {
	m, err := asm.ParseFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	return Import(path, m)
}

// Import imports every function of m, declarations included.
func Import(name string, m *ir.Module) (*ssa.Module, error) {
	out := ssa.NewModule(name)
	c := NewFrontendCompiler(m, out)
	for _, f := range m.Funcs {
		if err := c.Init(f); err != nil {
			return nil, errors.Wrap(err, "function %s", f.Name())
		}
		if err := c.LowerToSSA(); err != nil {
			return nil, errors.Wrap(err, "function %s", f.Name())
		}
	}
	return out, nil
}

// Compiler is in charge of lowering one LLVM IR function at a time into the ssa package.
type Compiler struct {
	// Per-module data that is used across all functions.
	m   *ir.Module
	out *ssa.Module

	// Followings are reset per function and prefixed by "ll" to clarify
	// they are input LLVM IR info.

	llFunc *ir.Func
	fn     *ssa.Function
	// values maps the LLVM IR instructions and params to the ssa values.
	values map[value.Value]ssa.ValueID
	blocks map[*ir.Block]*ssa.BasicBlock
}

// NewFrontendCompiler returns a frontend Compiler importing functions of m into out.
func NewFrontendCompiler(m *ir.Module, out *ssa.Module) *Compiler {
	return &Compiler{
		m:      m,
		out:    out,
		values: map[value.Value]ssa.ValueID{},
		blocks: map[*ir.Block]*ssa.BasicBlock{},
	}
}

// Init initializes the state of Compiler and makes it ready for the function f.
func (c *Compiler) Init(f *ir.Func) error {
	for k := range c.values {
		delete(c.values, k)
	}
	for k := range c.blocks {
		delete(c.blocks, k)
	}

	sig, err := c.importType(f.Sig)
	if err != nil {
		return err
	}
	c.llFunc = f
	c.fn = c.out.NewFunction(f.Name(), sig)
	for i, p := range f.Params {
		c.values[p] = c.fn.Param(i)
	}
	return nil
}

// Function returns the function being lowered.
func (c *Compiler) Function() *ssa.Function {
	return c.fn
}

// LowerToSSA lowers the current function. Blocks and instructions are allocated
// in a first pass, so that the second pass can refer to the values defined later
// in the layout, such as the incoming values of phis.
func (c *Compiler) LowerToSSA() error {
	type pending struct {
		instr *ssa.Instruction
		blk   *ssa.BasicBlock
		ll    interface{}
	}

	var todo []pending
	for _, llBlk := range c.llFunc.Blocks {
		blk := c.fn.AllocateBasicBlock(llBlk.Name())
		c.blocks[llBlk] = blk
		for _, inst := range llBlk.Insts {
			instr := c.fn.AllocateInstruction()
			if v, ok := inst.(value.Value); ok {
				c.values[v] = instr.Result()
			}
			todo = append(todo, pending{instr: instr, blk: blk, ll: inst})
		}
		if llBlk.Term == nil {
			return errors.New("block %s has no terminator", llBlk.Name())
		}
		todo = append(todo, pending{instr: c.fn.AllocateInstruction(), blk: blk, ll: llBlk.Term})
	}

	for _, p := range todo {
		if err := c.lowerInstr(p.instr, p.ll); err != nil {
			return errors.Wrap(err, "block %s", p.blk.Name())
		}
		c.fn.InsertInstruction(p.blk, p.instr)
	}
	return nil
}

func (c *Compiler) importType(t types.Type) (ssa.TypeID, error) {
	ts := c.out.Types
	switch t := t.(type) {
	case *types.VoidType:
		return ts.Void(), nil
	case *types.IntType:
		return ts.Int(int(t.BitSize)), nil
	case *types.PointerType:
		if t.ElemType == nil {
			return ts.Pointer(ssa.TypeInvalid), nil
		}
		elem, err := c.importType(t.ElemType)
		if err != nil {
			return ssa.TypeInvalid, err
		}
		return ts.Pointer(elem), nil
	case *types.ArrayType:
		elem, err := c.importType(t.ElemType)
		if err != nil {
			return ssa.TypeInvalid, err
		}
		return ts.Array(elem, t.Len), nil
	case *types.FuncType:
		ret, err := c.importType(t.RetType)
		if err != nil {
			return ssa.TypeInvalid, err
		}
		params := make([]ssa.TypeID, len(t.Params))
		for i, p := range t.Params {
			if params[i], err = c.importType(p); err != nil {
				return ssa.TypeInvalid, err
			}
		}
		return ts.Function(ret, params, t.Variadic), nil
	}
	return ssa.TypeInvalid, errors.Wrap(ErrUnsupported, "type %v", t)
}
