package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/cpunch/gavelscript/internal/gavelcfg"
	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/compiler"
	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/value"
)

// Disasm compiles each file in args and prints its bytecode listing
// (recursively, for every nested function constant) without executing it.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := gavelcfg.FromEnv()
	if err != nil {
		return printError(stdio, err)
	}
	heap := gc.New(cfg.HeapOptions())

	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}
		fp, err := compiler.Compile(heap, string(src))
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		disasmFunction(stdio, fp)
	}
	return nil
}

func disasmFunction(stdio mainer.Stdio, fp *value.FunctionProto) {
	ch, ok := fp.Chunk.(*chunk.Chunk)
	if !ok {
		return
	}
	name := fp.Name
	if name == "" {
		name = "_MAIN"
	}
	chunk.Disassemble(stdio.Stdout, name, ch)
	for _, k := range ch.Constants {
		if k.Kind() == value.KObject && k.AsObj().Kind == value.OFunction {
			disasmFunction(stdio, k.AsObj().Function())
		}
	}
}
