package vm

import "github.com/cpunch/gavelscript/lang/value"

// captureUpvalue returns an open upvalue for stack slot stackAt, sharing an
// existing entry in the sorted open-upvalue list if one already tracks that
// address, or inserting a new one (keeping the list sorted by descending
// address) otherwise.
func (st *State) captureUpvalue(stackAt int) *value.Obj {
	i := 0
	for ; i < len(st.openUpvalues); i++ {
		at := st.openUpvalues[i].Upvalue().StackAt
		if at == stackAt {
			return st.openUpvalues[i]
		}
		if at < stackAt {
			break
		}
	}
	created := st.Heap.NewOpenUpvalue(stackAt)
	st.openUpvalues = append(st.openUpvalues, nil)
	copy(st.openUpvalues[i+1:], st.openUpvalues[i:])
	st.openUpvalues[i] = created
	return created
}

// closeUpvaluesFrom closes every open upvalue tracking a stack address at or
// above from, copying the live value into the upvalue's own storage and
// retargeting it from "pointer into the frame" to "pointer into self". The
// sorted-descending order means these are always a prefix of the list.
func (st *State) closeUpvaluesFrom(from int) {
	i := 0
	for ; i < len(st.openUpvalues); i++ {
		uv := st.openUpvalues[i].Upvalue()
		if uv.StackAt < from {
			break
		}
		uv.Close(st.stack)
	}
	st.openUpvalues = st.openUpvalues[i:]
}
