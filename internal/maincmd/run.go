package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/cpunch/gavelscript/internal/gavelcfg"
	"github.com/cpunch/gavelscript/internal/stdlib"
	"github.com/cpunch/gavelscript/lang/compiler"
	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/vm"
)

// Run compiles and executes each file in args, stopping at the first one
// that fails to compile or raises an uncaught Objection.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := gavelcfg.FromEnv()
	if err != nil {
		return printError(stdio, err)
	}

	for _, path := range args {
		if err := runFile(cfg, stdio, path); err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
	}
	return nil
}

func runFile(cfg gavelcfg.Config, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	heap := gc.New(cfg.HeapOptions())
	fp, err := compiler.Compile(heap, string(src))
	if err != nil {
		return err
	}

	st := vm.New(heap, cfg.Limits())
	defer st.Close()
	stdlib.Install(st)

	_, err = st.RunFunction(fp, nil)
	if err != nil {
		if st.Status() == vm.StatusRaised {
			return fmt.Errorf("%s", vm.FormatObjection(st.LastObjection()))
		}
		return err
	}
	return nil
}
