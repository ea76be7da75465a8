// vicis-llc lowers LLVM IR files to amd64 instructions on virtual registers.
//
// Usage:
//
//	vicis-llc [-dag] [-workers n] [-max-instrs n] [-verify] [-v topics] file1.ll [file2.ll ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/sksat/vicis/internal/engine/vicis"
	"github.com/sksat/vicis/internal/engine/vicis/frontend"
	"github.com/sksat/vicis/internal/engine/vicis/vicisapi"
)

func main() {
	dags := flag.Bool("dag", false, "print the DAG of each function instead of the lowered instructions")
	workers := flag.Int("workers", 0, "functions lowered concurrently (default: GOMAXPROCS)")
	maxInstrs := flag.Int("max-instrs", 0, "fail functions lowering to more instructions (DAG nodes with -dag) than this; 0 means unlimited")
	verify := flag.Bool("verify", false, "verify the SSA form of each function before lowering")
	verbosity := flag.String("v", "", "comma separated log topics, such as dump_lowering or dump_dag")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: vicis-llc [-dag] [-workers n] [-max-instrs n] [-verify] [-v topics] file1.ll [file2.ll ...]\n")
		os.Exit(1)
	}

	l := tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))
	l.SetVerbosity(*verbosity)
	tr := l.Start("vicis-llc")
	defer tr.Finish()
	ctx := tlog.ContextWithSpan(context.Background(), tr)

	config := vicisapi.NewConfig().WithMaxInstructions(*maxInstrs).WithVerify(*verify)
	if *workers > 0 {
		config = config.WithWorkers(*workers)
	}
	e := vicis.NewEngine(config)

	failed := false
	for _, path := range flag.Args() {
		ok, err := run(ctx, os.Stdout, e, path, *dags)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vicis-llc: %v\n", err)
			os.Exit(1)
		}
		failed = failed || !ok
	}
	if failed {
		os.Exit(1)
	}
}

// run lowers the file and prints the result of each function to w.
// ok is false if any function failed.
func run(ctx context.Context, w io.Writer, e *vicis.Engine, path string, dags bool) (ok bool, err error) {
	m, err := frontend.ParseFile(path)
	if err != nil {
		return false, err
	}

	if dags {
		dm, err := e.BuildDAGs(ctx, m)
		if err != nil {
			return false, errors.Wrap(err, "%s", path)
		}
		for _, f := range dm.Functions {
			if f.Err != nil {
				fmt.Fprintf(w, "; %s: %v\n", f.Name, f.Err)
				continue
			}
			fmt.Fprintf(w, "%s:%s\n", f.Name, f.DAG.Format())
		}
		return dm.Err() == nil, nil
	}

	cm, err := e.CompileModule(ctx, m)
	if err != nil {
		return false, errors.Wrap(err, "%s", path)
	}
	defer e.DeleteCompiledModule(cm.Name)
	for _, f := range cm.Functions {
		if f.Err != nil {
			fmt.Fprintf(w, "; %s: %v\n", f.Name, f.Err)
			continue
		}
		fmt.Fprintf(w, "%s:%s\n", f.Name, f.Lowered.Format())
	}
	return cm.Err() == nil, nil
}
