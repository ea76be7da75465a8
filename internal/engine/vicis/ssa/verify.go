package ssa

import "fmt"

// VerifyError is returned by Function.Verify for a malformed function.
type VerifyError struct {
	Function string
	Block    string
	// Instruction is the offending instruction, or -1 if the problem is the block itself.
	Instruction int
	Reason      string
}

// Error implements error.
func (e *VerifyError) Error() string {
	if e.Instruction < 0 {
		return fmt.Sprintf("verify %s: block %s: %s", e.Function, e.Block, e.Reason)
	}
	return fmt.Sprintf("verify %s: block %s: instruction %d: %s", e.Function, e.Block, e.Instruction, e.Reason)
}

// Verify checks the structural properties the backend relies on:
//
//   - every block ends with exactly one terminator,
//   - phis are at the head of blocks and have one incoming per predecessor,
//   - every operand is defined before its use, i.e. by an instruction whose block dominates the use.
//
// Declarations are always valid.
func (f *Function) Verify() error {
	if f.IsDeclaration() {
		return nil
	}

	// pos is indexed by InstructionID and holds the position within its block.
	pos := make([]int, f.NumInstructions())
	for blk := f.entryBlk; blk != nil; blk = blk.next {
		if blk.rootInstr == nil {
			return f.verifyErr(blk, nil, "empty block")
		}
		n, phis := 0, true
		for instr := blk.rootInstr; instr != nil; instr = instr.next {
			pos[instr.id] = n
			n++
			if instr.IsTerminator() && instr.next != nil {
				return f.verifyErr(blk, instr, "terminator in the middle of block")
			}
			if instr.opcode == OpcodePhi {
				if !phis {
					return f.verifyErr(blk, instr, "phi after non-phi instruction")
				}
			} else {
				phis = false
			}
		}
		if !blk.tailInstr.IsTerminator() {
			return f.verifyErr(blk, blk.tailInstr, "block does not end with a terminator")
		}
	}

	doms := f.CalculateDominators()
	var args []ValueID
	for blk := f.entryBlk; blk != nil; blk = blk.next {
		for instr := blk.rootInstr; instr != nil; instr = instr.next {
			if instr.opcode == OpcodePhi {
				if err := f.verifyPhi(blk, instr, doms); err != nil {
					return err
				}
				continue
			}
			if !doms.Reachable(blk.id) {
				continue
			}
			args = instr.Args(args[:0])
			for _, a := range args {
				def := f.DefiningInstruction(a)
				if def == nil {
					continue
				}
				if def.blk == BasicBlockIDInvalid {
					return f.verifyErr(blk, instr, fmt.Sprintf("operand %s is not inserted", f.FormatValue(a)))
				}
				if def.blk == blk.id {
					if pos[def.id] >= pos[instr.id] {
						return f.verifyErr(blk, instr, fmt.Sprintf("operand %s is used before defined", f.FormatValue(a)))
					}
				} else if !doms.Dominates(def.blk, blk.id) {
					return f.verifyErr(blk, instr, fmt.Sprintf("definition of %s does not dominate the use", f.FormatValue(a)))
				}
			}
		}
	}
	return nil
}

func (f *Function) verifyPhi(blk *BasicBlock, phi *Instruction, doms *Dominators) error {
	vs, preds := phi.PhiData()
	if len(preds) != len(blk.preds) {
		return f.verifyErr(blk, phi, fmt.Sprintf("phi has %d incoming values for %d predecessors", len(preds), len(blk.preds)))
	}
	seen := make(map[BasicBlockID]bool, len(preds))
	for i, p := range preds {
		if seen[p] {
			return f.verifyErr(blk, phi, fmt.Sprintf("more than one incoming value from %s", f.Block(p).Name()))
		}
		seen[p] = true
		found := false
		for _, bp := range blk.preds {
			if bp == p {
				found = true
				break
			}
		}
		if !found {
			return f.verifyErr(blk, phi, fmt.Sprintf("%s is not a predecessor", f.Block(p).Name()))
		}
		// The incoming value must be available at the end of the predecessor.
		if def := f.DefiningInstruction(vs[i]); def != nil && doms.Reachable(p) {
			if def.blk == BasicBlockIDInvalid || !doms.Dominates(def.blk, p) {
				return f.verifyErr(blk, phi, fmt.Sprintf("incoming %s is not available in %s", f.FormatValue(vs[i]), f.Block(p).Name()))
			}
		}
	}
	return nil
}

func (f *Function) verifyErr(blk *BasicBlock, instr *Instruction, reason string) error {
	e := &VerifyError{Function: f.name, Block: blk.Name(), Instruction: -1, Reason: reason}
	if instr != nil {
		e.Instruction = int(instr.id)
	}
	return e
}
