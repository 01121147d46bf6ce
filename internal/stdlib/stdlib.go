// Package stdlib provides the host-callable functions that the
// specification calls "peripheral glue" but requires the core to expose
// hooks for: a global binding table of CFunctions, installed into a
// vm.State's globals. It defines no Prototable binding.
package stdlib

import (
	"fmt"
	"strings"

	"github.com/cpunch/gavelscript/lang/value"
	"github.com/cpunch/gavelscript/lang/vm"
)

// Install registers every standard-library global into st.
func Install(st *vm.State) {
	st.SetGlobal("print", st.Heap.NewCFunction(print))
	st.SetGlobal("type", st.Heap.NewCFunction(typeOf))
	st.SetGlobal("len", st.Heap.NewCFunction(length))
	st.SetGlobal("tostring", st.Heap.NewCFunction(tostring))
	st.SetGlobal("tonumber", st.Heap.NewCFunction(tonumber))
	st.SetGlobal("table_insert", st.Heap.NewCFunction(tableInsert))
	st.SetGlobal("table_remove", st.Heap.NewCFunction(tableRemove))
	st.SetGlobal("table_keys", st.Heap.NewCFunction(tableKeys))
}

func print(h value.Heap, args []value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	fmt.Println(strings.Join(parts, "\t"))
	return value.Nil, nil
}

func typeOf(h value.Heap, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("type: expected 1 argument, got %d", len(args))
	}
	return h.NewString(args[0].TypeName()), nil
}

func length(h value.Heap, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("len: expected 1 argument, got %d", len(args))
	}
	v := args[0]
	if !v.IsObj() {
		return value.Nil, fmt.Errorf("len: attempt to get length of a %s value", v.TypeName())
	}
	switch v.AsObj().Kind {
	case value.OString:
		return value.Number(float64(len(v.AsObj().Str()))), nil
	case value.OTable:
		return value.Number(float64(v.AsObj().Table().Len())), nil
	default:
		return value.Nil, fmt.Errorf("len: attempt to get length of a %s value", v.AsObj().Kind.String())
	}
}

func tostring(h value.Heap, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("tostring: expected 1 argument, got %d", len(args))
	}
	return h.NewString(args[0].String()), nil
}

func tonumber(h value.Heap, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("tonumber: expected 1 argument, got %d", len(args))
	}
	v := args[0]
	if v.Kind() == value.KNumber {
		return v, nil
	}
	if v.IsObj() && v.AsObj().Kind == value.OString {
		var f float64
		if _, err := fmt.Sscanf(v.AsObj().Str(), "%g", &f); err != nil {
			return value.Nil, nil
		}
		return value.Number(f), nil
	}
	return value.Nil, nil
}

func tableInsert(h value.Heap, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Nil, fmt.Errorf("table_insert: expected 2 arguments (table, value), got %d", len(args))
	}
	t := args[0]
	if !t.IsObj() || t.AsObj().Kind != value.OTable {
		return value.Nil, fmt.Errorf("table_insert: first argument must be a table")
	}
	tbl := t.AsObj().Table()
	idx := value.Number(float64(tbl.Len()))
	tbl.Set(idx, args[1])
	return value.Nil, nil
}

func tableRemove(h value.Heap, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Nil, fmt.Errorf("table_remove: expected 2 arguments (table, key), got %d", len(args))
	}
	t := args[0]
	if !t.IsObj() || t.AsObj().Kind != value.OTable {
		return value.Nil, fmt.Errorf("table_remove: first argument must be a table")
	}
	tbl := t.AsObj().Table()
	v, ok := tbl.Get(args[1])
	if !ok {
		return value.Nil, nil
	}
	tbl.Delete(args[1])
	return v, nil
}

func tableKeys(h value.Heap, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("table_keys: expected 1 argument, got %d", len(args))
	}
	t := args[0]
	if !t.IsObj() || t.AsObj().Kind != value.OTable {
		return value.Nil, fmt.Errorf("table_keys: argument must be a table")
	}
	entries := t.AsObj().Table().Entries()
	out := h.NewTable(len(entries))
	tbl := out.AsObj().Table()
	for i, e := range entries {
		tbl.Set(value.Number(float64(i)), e.Key)
	}
	return out, nil
}
