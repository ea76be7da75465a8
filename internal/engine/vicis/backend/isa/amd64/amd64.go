// Package amd64 lowers ssa.Function into x86-64 instructions on virtual registers,
// either directly through backend.Compiler or into per-block graphs through dag.Builder.
package amd64

import (
	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/dag"
)

// NewCompiler returns a backend.Compiler driving a new amd64 machine.
func NewCompiler() *backend.Compiler[Instruction] {
	return backend.NewCompiler[Instruction](NewBackend())
}

// NewDAGBuilder returns a dag.Builder converting with the amd64 rules.
func NewDAGBuilder() *dag.Builder[Opcode] {
	return dag.NewBuilder[Opcode](NewDAGConverter())
}

var _ backend.Machine[Instruction] = (*machine)(nil)
