// Package gc implements GavelScript's tri-color mark-and-sweep collector and
// the Heap that owns every heap-allocated Obj, the interned-string pool, and
// the allocation-threshold policy that triggers collections.
//
// Per the Design Notes' resolution of the "global mutable state" concern, a
// Heap is NOT process-wide: every embedding host constructs its own Heap (or
// shares one explicitly across a group of cooperating States), which makes
// teardown deterministic and avoids a hidden multi-State thread hazard.
package gc

import (
	"github.com/dolthub/swiss"

	"github.com/cpunch/gavelscript/lang/value"
)

// RootProvider is implemented by anything that owns GC roots beyond the
// Heap's own object list and string pool -- in practice, vm.State. A Heap
// may have several registered RootProviders (several cooperating States
// sharing one Heap).
type RootProvider interface {
	// MarkRoots must call mark once for every Value directly reachable as a
	// root: operand stack entries up to top, call-frame closures, the
	// open-upvalue list, and the globals table.
	MarkRoots(mark func(value.Value))
}

// ChunkRootProvider is implemented by anything holding a *chunk.Chunk that
// must be kept alive even though it is not (yet) wrapped in a reachable
// FunctionProto Value -- e.g. the compiler, while still building a chunk
// that contains allocated string constants. The interface only asks for
// ChunkRoots, so gc does not import package chunk; chunk's *Chunk
// satisfies it.
type ChunkRootProvider interface {
	ChunkRoots() []value.Value
}

// Options configures a Heap's trigger policy and interning behaviour. Zero
// thresholds fall back to the same defaults as internal/gavelcfg; a zero
// InternStrings leaves interning off, while gavelcfg turns it on by default.
type Options struct {
	// InitialBytesThreshold is the bytesAllocated level that triggers the
	// first collection.
	InitialBytesThreshold int
	// InitialStringsThreshold is the string-pool size that triggers a
	// collection, independent of the byte threshold. Ignored (treated as
	// unlimited) when InternStrings is false.
	InitialStringsThreshold int
	// InternStrings toggles the GSTRING_INTERN behaviour of the original
	// implementation: when false, string constants still allocate as heap
	// objects but are never added to (or deduplicated against) the pool.
	InternStrings bool
}

func (o Options) withDefaults() Options {
	if o.InitialBytesThreshold <= 0 {
		o.InitialBytesThreshold = 16 * 1024
	}
	if o.InitialStringsThreshold <= 0 {
		o.InitialStringsThreshold = 128
	}
	return o
}

// Heap owns every live Obj, reclaiming unreachable ones with a tri-color
// mark-and-sweep collection triggered by an allocation threshold.
type Heap struct {
	opts Options

	objects *value.Obj // head of the intrusive singly-linked object list
	pool    *swiss.Map[string, *value.Obj]

	bytesAllocated int
	bytesThreshold int
	stringThresh   int

	roots       []RootProvider
	chunkRoots  []ChunkRootProvider
	grey        []*value.Obj
	collections int
}

// New constructs an empty Heap.
func New(opts Options) *Heap {
	opts = opts.withDefaults()
	h := &Heap{
		opts:           opts,
		bytesThreshold: opts.InitialBytesThreshold,
		stringThresh:   opts.InitialStringsThreshold,
	}
	if opts.InternStrings {
		h.pool = swiss.NewMap[string, *value.Obj](uint32(opts.InitialStringsThreshold))
	}
	return h
}

// Register adds rp to the set of root providers consulted on every
// collection. Returns a function that deregisters it (call on State close).
func (h *Heap) Register(rp RootProvider) func() {
	h.roots = append(h.roots, rp)
	idx := len(h.roots) - 1
	return func() {
		if idx < len(h.roots) && h.roots[idx] == rp {
			h.roots = append(h.roots[:idx], h.roots[idx+1:]...)
		}
	}
}

// RegisterChunk adds cp (typically the compiler currently building a chunk)
// as an extra root provider for chunk-level constants/identifiers.
func (h *Heap) RegisterChunk(cp ChunkRootProvider) func() {
	h.chunkRoots = append(h.chunkRoots, cp)
	idx := len(h.chunkRoots)
	return func() {
		for i, c := range h.chunkRoots {
			if c == cp {
				h.chunkRoots = append(h.chunkRoots[:i], h.chunkRoots[i+1:]...)
				return
			}
		}
		_ = idx
	}
}

// BytesAllocated reports the collector's current live-byte estimate.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// Collections reports how many sweeps have run, for diagnostics/tests.
func (h *Heap) Collections() int { return h.collections }

func (h *Heap) link(o *value.Obj, size int) *value.Obj {
	o.GCNext = h.objects
	h.objects = o
	h.bytesAllocated += size
	return o
}

// estSize is a coarse per-kind size estimate used only to drive the
// threshold heuristic; it need not be exact.
func estSize(k value.ObjKind, extra int) int {
	base := 32
	return base + extra
}
