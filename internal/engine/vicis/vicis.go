// Package vicis lowers every function of an ssa.Module to amd64, either directly
// into machine instructions on virtual registers or into per-block DAGs.
package vicis

import (
	"context"
	"strings"
	"sync"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/sksat/vicis/internal/engine/vicis/backend"
	"github.com/sksat/vicis/internal/engine/vicis/backend/isa/amd64"
	"github.com/sksat/vicis/internal/engine/vicis/dag"
	"github.com/sksat/vicis/internal/engine/vicis/ssa"
	"github.com/sksat/vicis/internal/engine/vicis/vicisapi"
)

type (
	// Engine lowers modules and keeps the compiled ones by module name.
	Engine struct {
		config          *vicisapi.Config
		compiledModules map[string]*CompiledModule
		mux             sync.RWMutex
	}

	// CompiledModule is the lowering result of an ssa.Module. A function which
	// fails to lower has a nil Lowered and a non-nil Err, and does not affect the others.
	CompiledModule struct {
		Name      string
		Functions []CompiledFunction
	}

	CompiledFunction struct {
		Name    string
		Lowered *backend.Function[amd64.Instruction]
		Err     error
	}

	// DAGModule is the DAG construction result of an ssa.Module.
	DAGModule struct {
		Name      string
		Functions []DAGFunction
	}

	DAGFunction struct {
		Name string
		DAG  *dag.Function[amd64.Opcode]
		Err  error
	}

	// FunctionErrors holds the errors of the functions which failed, in the module order.
	FunctionErrors []error
)

// NewEngine returns a new Engine. A nil config means vicisapi.NewConfig().
func NewEngine(config *vicisapi.Config) *Engine {
	if config == nil {
		config = vicisapi.NewConfig()
	}
	return &Engine{config: config, compiledModules: make(map[string]*CompiledModule)}
}

// CompileModule lowers every defined function of m with the direct lowering engine.
// The returned error is only about the module as a whole, such as a cancelled ctx;
// see CompiledModule.Err for the functions which failed.
func (e *Engine) CompileModule(ctx context.Context, m *ssa.Module) (_ *CompiledModule, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile module", "module", m.Name)
	defer tr.Finish("err", &err)

	results, err := lowerFunctions(ctx, e.config, m, func() lowerFunc[*backend.Function[amd64.Instruction]] {
		c := amd64.NewCompiler()
		c.SetMaxInstructions(e.config.MaxInstructions())
		return c.Compile
	})
	if err != nil {
		return nil, err
	}

	cm := &CompiledModule{Name: m.Name, Functions: make([]CompiledFunction, len(results))}
	for i, r := range results {
		cm.Functions[i] = CompiledFunction{Name: r.name, Lowered: r.out, Err: r.err}
	}
	if tr.If("dump_module") {
		tr.Printw("compiled module", "module", m.Name, "functions", len(cm.Functions), "failed", len(cm.failed()))
	}

	e.addCompiledModule(cm)
	return cm, nil
}

// BuildDAGs builds the DAG of every defined function of m.
func (e *Engine) BuildDAGs(ctx context.Context, m *ssa.Module) (_ *DAGModule, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "build module dags", "module", m.Name)
	defer tr.Finish("err", &err)

	results, err := lowerFunctions(ctx, e.config, m, func() lowerFunc[*dag.Function[amd64.Opcode]] {
		b := amd64.NewDAGBuilder()
		// The node count bound follows the instruction bound.
		b.SetMaxNodes(e.config.MaxInstructions())
		return b.Build
	})
	if err != nil {
		return nil, err
	}

	dm := &DAGModule{Name: m.Name, Functions: make([]DAGFunction, len(results))}
	for i, r := range results {
		dm.Functions[i] = DAGFunction{Name: r.name, DAG: r.out, Err: r.err}
	}
	return dm, nil
}

type lowerFunc[T any] func(ctx context.Context, f *ssa.Function) (T, error)

type lowerResult[T any] struct {
	name string
	out  T
	err  error
}

// lowerFunctions runs the functions of m through the lowerFunc of each worker.
// Workers never share a lowerFunc, and write their results to distinct indexes.
func lowerFunctions[T any](ctx context.Context, config *vicisapi.Config, m *ssa.Module, newWorker func() lowerFunc[T]) ([]lowerResult[T], error) {
	var fns []*ssa.Function
	for _, f := range m.Functions() {
		if !f.IsDeclaration() {
			fns = append(fns, f)
		}
	}

	results := make([]lowerResult[T], len(fns))
	workers := config.Workers()
	if workers > len(fns) {
		workers = len(fns)
	}

	queue := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			lower := newWorker()
			for i := range queue {
				f := fns[i]
				r := &results[i]
				r.name = f.Name()
				if r.err = ctx.Err(); r.err != nil {
					continue
				}
				if config.Verify() {
					if r.err = f.Verify(); r.err != nil {
						r.err = errors.Wrap(r.err, "func %v", f.Name())
						continue
					}
				}
				if r.out, r.err = lower(ctx, f); r.err != nil {
					r.err = errors.Wrap(r.err, "func %v", f.Name())
				}
			}
		}()
	}
	for i := range fns {
		queue <- i
	}
	close(queue)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Function returns the result of the function of the name, nil if absent.
func (cm *CompiledModule) Function(name string) *CompiledFunction {
	for i := range cm.Functions {
		if cm.Functions[i].Name == name {
			return &cm.Functions[i]
		}
	}
	return nil
}

func (cm *CompiledModule) failed() (errs FunctionErrors) {
	for _, f := range cm.Functions {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return
}

// Err returns nil if every function was lowered, and FunctionErrors otherwise.
func (cm *CompiledModule) Err() error {
	if errs := cm.failed(); len(errs) > 0 {
		return errs
	}
	return nil
}

// Function returns the result of the function of the name, nil if absent.
func (dm *DAGModule) Function(name string) *DAGFunction {
	for i := range dm.Functions {
		if dm.Functions[i].Name == name {
			return &dm.Functions[i]
		}
	}
	return nil
}

// Err returns nil if the DAG of every function was built, and FunctionErrors otherwise.
func (dm *DAGModule) Err() error {
	var errs FunctionErrors
	for _, f := range dm.Functions {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Error implements error.
func (e FunctionErrors) Error() string {
	strs := make([]string, len(e))
	for i, err := range e {
		strs[i] = err.Error()
	}
	return strings.Join(strs, "; ")
}

// Unwrap returns the errors, so that errors.Is and errors.As look into each of them.
func (e FunctionErrors) Unwrap() []error {
	return e
}

// CompiledModule returns the module compiled last under the name, nil if absent.
func (e *Engine) CompiledModule(name string) *CompiledModule {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.compiledModules[name]
}

// CompiledModuleCount returns the number of compiled modules kept by the Engine.
func (e *Engine) CompiledModuleCount() uint32 {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return uint32(len(e.compiledModules))
}

// DeleteCompiledModule drops the compiled module of the name.
func (e *Engine) DeleteCompiledModule(name string) {
	e.mux.Lock()
	defer e.mux.Unlock()
	delete(e.compiledModules, name)
}

func (e *Engine) addCompiledModule(cm *CompiledModule) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.compiledModules[cm.Name] = cm
}
