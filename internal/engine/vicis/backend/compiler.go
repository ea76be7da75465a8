package backend

import (
	"context"
	"fmt"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/sksat/vicis/internal/engine/vicis/ssa"
)

// NewCompiler returns a new Compiler that lowers ssa.Function into the
// machine instructions of mach.
//
// A Compiler and its Machine are not goroutine-safe; use one per goroutine.
func NewCompiler[I fmt.Stringer](mach Machine[I]) *Compiler[I] {
	return &Compiler[I]{mach: mach, ctx: NewContext()}
}

// Compiler drives a Machine over the blocks of a function in the layout order.
type Compiler[I fmt.Stringer] struct {
	mach Machine[I]
	ctx  *Context
	// maxInstructions bounds the instructions per function. Zero means unlimited.
	maxInstructions int
}

// SetMaxInstructions bounds the number of machine instructions a single function may lower to.
func (c *Compiler[I]) SetMaxInstructions(n int) {
	c.maxInstructions = n
}

// Compile lowers f. On error, nothing is returned for f, and the Compiler can be used for the next function.
func (c *Compiler[I]) Compile(ctx context.Context, f *ssa.Function) (_ *Function[I], err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lower function", "func", f.Name())
	defer tr.Finish("err", &err)

	defer c.mach.Reset()
	c.ctx.Init(f)
	c.mach.SetCompilationContext(c.ctx)
	c.mach.StartFunction()

	var blocks []Block
	for blk := f.EntryBlock(); blk != nil; blk = blk.Next() {
		start := len(c.mach.Instructions())
		if err = c.lowerBlock(blk); err != nil {
			return nil, errors.Wrap(err, "block %s", blk.Name())
		}
		end := len(c.mach.Instructions())
		blocks = append(blocks, Block{Label: c.ctx.Label(blk.ID()), Name: blk.Name(), Start: start, End: end})
	}

	instrs := c.mach.Instructions()
	ret := &Function[I]{
		Name:         f.Name(),
		Instructions: make([]I, len(instrs)),
		Blocks:       blocks,
		VRegs:        c.ctx.VRegs(),
		Slots:        c.ctx.Slots(),
		Labels:       c.ctx.Labels(),
	}
	copy(ret.Instructions, instrs)

	if tr.If("dump_lowering") {
		tr.Printw("lowered", "func", f.Name(), "instrs", len(instrs), "vregs", ret.VRegs.Len(), "slots", ret.Slots.Len())
		tr.Printw(ret.Format())
	}
	return ret, nil
}

func (c *Compiler[I]) lowerBlock(blk *ssa.BasicBlock) error {
	c.ctx.SetCurrentBlock(blk)
	c.mach.StartBlock(blk)
	for cur := blk.Root(); cur != nil; cur = cur.Next() {
		if err := c.mach.LowerInstr(cur); err != nil {
			return err
		}
		if n := len(c.mach.Instructions()); c.maxInstructions > 0 && n > c.maxInstructions {
			return errors.Wrap(ErrInstructionLimit, "%d > %d", n, c.maxInstructions)
		}
	}
	c.mach.EndBlock()
	return nil
}
