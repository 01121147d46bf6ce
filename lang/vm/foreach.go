package vm

import "github.com/cpunch/gavelscript/lang/value"

// forEach implements the for-each opcode: it validates the iterable is a
// Table or a String, then for each (key, value) pair runs the
// compiler-generated loop-body closure with that pair bound to its two
// formal parameters. The generated Function is marked Embedded so call
// traces skip its level.
func (st *State) forEach(iterable, closureV value.Value) error {
	if !closureV.IsObj() || closureV.AsObj().Kind != value.OClosure {
		return st.raise("for-each requires a closure")
	}
	closureObj := closureV.AsObj()

	if !iterable.IsObj() {
		return st.raise("attempt to iterate a %s value", iterable.TypeName())
	}
	o := iterable.AsObj()
	switch o.Kind {
	case value.OTable:
		for _, entry := range o.Table().Entries() {
			if _, err := st.callForEachBody(closureObj, entry.Key, entry.Value); err != nil {
				return err
			}
		}
		return nil
	case value.OString:
		s := o.Str()
		for i := 0; i < len(s); i++ {
			k := value.Number(float64(i))
			v := value.Char(s[i])
			if _, err := st.callForEachBody(closureObj, k, v); err != nil {
				return err
			}
		}
		return nil
	default:
		return st.raise("attempt to iterate a %s value", o.Kind.String())
	}
}
