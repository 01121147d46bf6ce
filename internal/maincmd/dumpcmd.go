package maincmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mna/mainer"

	"github.com/cpunch/gavelscript/internal/gavelcfg"
	"github.com/cpunch/gavelscript/internal/stdlib"
	"github.com/cpunch/gavelscript/lang/bytecode"
	"github.com/cpunch/gavelscript/lang/compiler"
	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/vm"
)

// Dump compiles a single source file and writes its serialized bytecode to
// c.Output (default: the input path with its extension replaced by .gvc).
func (c *Cmd) Dump(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) != 1 {
		return printError(stdio, fmt.Errorf("dump: expected exactly one source file"))
	}
	cfg, err := gavelcfg.FromEnv()
	if err != nil {
		return printError(stdio, err)
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	heap := gc.New(cfg.HeapOptions())
	fp, err := compiler.Compile(heap, string(src))
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", args[0], err))
	}

	out, err := bytecode.Dump(fp)
	if err != nil {
		return printError(stdio, err)
	}

	outPath := c.Output
	if outPath == "" {
		outPath = outputPath(args[0])
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return printError(stdio, err)
	}
	return nil
}

// Undump loads a previously-dumped bytecode file and executes it.
func (c *Cmd) Undump(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := gavelcfg.FromEnv()
	if err != nil {
		return printError(stdio, err)
	}
	heap := gc.New(cfg.HeapOptions())

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}
		fp, err := bytecode.Undump(heap, data)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}

		st := vm.New(heap, cfg.Limits())
		stdlib.Install(st)
		_, err = st.RunFunction(fp, nil)
		st.Close()
		if err != nil {
			if st.Status() == vm.StatusRaised {
				return printError(stdio, fmt.Errorf("%s: %s", path, vm.FormatObjection(st.LastObjection())))
			}
			return printError(stdio, err)
		}
	}
	return nil
}

func outputPath(src string) string {
	if i := strings.LastIndexByte(src, '.'); i >= 0 {
		return src[:i] + ".gvc"
	}
	return src + ".gvc"
}
