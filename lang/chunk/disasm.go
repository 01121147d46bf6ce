package chunk

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable listing of c to w, one line per
// instruction: address, source line (or "|" when it repeats the previous
// instruction's line), mnemonic, and decoded argument. Operands are decoded
// according to the opLayouts table.
func Disassemble(w io.Writer, name string, c *Chunk) {
	fmt.Fprintf(w, "== %s ==\n", name)
	prevLine := -1
	for pc := 0; pc < len(c.Code); pc++ {
		ins := c.Code[pc]
		op := ins.Op()
		line := c.LineAt(pc)
		lineCol := "   |"
		if line != prevLine {
			lineCol = fmt.Sprintf("%4d", line)
			prevLine = line
		}
		fmt.Fprintf(w, "%04d %s  %-14s", pc, lineCol, op.String())
		switch LayoutOf(op) {
		case LayoutIAx:
			fmt.Fprintf(w, " %d", ins.Ax())
			annotateIAx(w, c, op, int(ins.Ax()))
		case LayoutIAxs:
			fmt.Fprintf(w, " %d", ins.Axs())
		}
		fmt.Fprintln(w)
	}
}

func annotateIAx(w io.Writer, c *Chunk, op Op, a int) {
	switch op {
	case OpLoadConstant:
		if a >= 0 && a < len(c.Constants) {
			fmt.Fprintf(w, "  ; %s", c.Constants[a].String())
		}
	case OpDefineGlobal, OpGetGlobal, OpSetGlobal:
		if a >= 0 && a < len(c.Identifiers) {
			fmt.Fprintf(w, "  ; %s", c.Identifiers[a])
		}
	case OpMakeClosure:
		if a >= 0 && a < len(c.Constants) {
			fmt.Fprintf(w, "  ; %s", c.Constants[a].String())
		}
	}
}
