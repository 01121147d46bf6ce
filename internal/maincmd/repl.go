package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/cpunch/gavelscript/internal/gavelcfg"
	"github.com/cpunch/gavelscript/internal/stdlib"
	"github.com/cpunch/gavelscript/lang/compiler"
	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/vm"
)

// Repl runs an interactive read-eval-print loop against stdio: every line
// (see readStatement) is compiled and executed as a fresh
// top-level program sharing one Heap and State across the whole session, so
// globals declared in one line are visible to the next.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := gavelcfg.FromEnv()
	if err != nil {
		return printError(stdio, err)
	}

	heap := gc.New(cfg.HeapOptions())
	st := vm.New(heap, cfg.Limits())
	defer st.Close()
	stdlib.Install(st)

	in := bufio.NewScanner(stdio.Stdin)
	fmt.Fprintln(stdio.Stdout, "gavel REPL -- Ctrl-D to exit")
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		line, ok := readStatement(in)
		if !ok {
			fmt.Fprintln(stdio.Stdout)
			return nil
		}
		if line == "" {
			continue
		}

		fp, err := compiler.Compile(heap, line)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
			continue
		}
		if _, err := st.RunFunction(fp, nil); err != nil {
			if st.Status() == vm.StatusRaised {
				fmt.Fprintf(stdio.Stderr, "%s\n", vm.FormatObjection(st.LastObjection()))
			} else {
				fmt.Fprintf(stdio.Stderr, "%s\n", err)
			}
		}
	}
}

// readStatement reads one line from in; it reports ok=false at EOF.
func readStatement(in *bufio.Scanner) (string, bool) {
	if !in.Scan() {
		return "", false
	}
	return in.Text(), true
}
