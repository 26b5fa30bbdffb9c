// Package funcmgr tracks which function names are reachable from
// translated bytecode, assigns them v-table and i-table slot indices, and
// resolves function names to the numeric function indices the emitted
// WebAssembly module uses.
//
// The compiler driver runs single-threaded (see the compiler package's driver), so
// Manager holds no lock of its own; callers that share a Manager across
// goroutines must synchronize externally.
package funcmgr

import (
	"github.com/jmccay-work/cfbc2wasm/wasmtype"
)

// noIndex is the sentinel returned by GetVTableIndex/GetITableIndex for a
// function that has not been assigned a slot, mirroring the >= 0 check the
// hierarchy scan performs before trusting an i-table index.
const noIndex = -1

// replacement is a synthetic WebAssembly function registered in place of a
// CFBC-level primitive — the callVirtual/callInterface/instanceof/cast
// routines DispatchSynthesizer builds, or a small accessor like the
// type-table memory offset function.
type replacement struct {
	body wasmtype.FuncBody
	sig  wasmtype.FuncType
}

// Manager is C2: the used-function tracker, v-table/i-table index
// assigner, and name -> numeric function index resolver.
type Manager struct {
	used        map[string]bool
	orderedUsed []string

	vtableIndex map[string]int
	itableIndex map[string]int

	funcIndex     map[string]uint32
	orderedFuncs  []string
	nextFuncIndex uint32

	replacements map[string]replacement
}

// New creates an empty Manager. baseFuncIndex is the numeric index the
// first newly-assigned function receives — callers seed it past the
// imported and user-defined functions already placed in the module.
func New(baseFuncIndex uint32) *Manager {
	return &Manager{
		used:          make(map[string]bool),
		vtableIndex:   make(map[string]int),
		itableIndex:   make(map[string]int),
		funcIndex:     make(map[string]uint32),
		replacements:  make(map[string]replacement),
		nextFuncIndex: baseFuncIndex,
	}
}

// MarkUsed marks name as reachable. Marking is idempotent.
func (m *Manager) MarkUsed(name string) {
	if m.used[name] {
		return
	}
	m.used[name] = true
	m.orderedUsed = append(m.orderedUsed, name)
}

// IsUsed reports whether name has been marked reachable.
func (m *Manager) IsUsed(name string) bool {
	return m.used[name]
}

// UsedNames returns every marked-used name in the order it was first
// marked.
func (m *Manager) UsedNames() []string {
	return append([]string(nil), m.orderedUsed...)
}

// SetVTableIndex records the v-table slot assigned to name. HierarchyScanner
// calls this with (slot + 5), since the first five slots of a type's
// metadata blob are reserved.
func (m *Manager) SetVTableIndex(name string, index int) {
	m.vtableIndex[name] = index
}

// GetVTableIndex returns the v-table slot assigned to name, or noIndex if
// none has been assigned.
func (m *Manager) GetVTableIndex(name string) int {
	if idx, ok := m.vtableIndex[name]; ok {
		return idx
	}
	return noIndex
}

// SetITableIndex records the i-table slot assigned to name. HierarchyScanner
// calls this with (current length + 1) when building an interface's method
// list, since two header slots precede per-class i-table entries.
func (m *Manager) SetITableIndex(name string, index int) {
	m.itableIndex[name] = index
}

// GetITableIndex returns the i-table slot assigned to name, or noIndex if
// none has been assigned. addOrUpdateVTable relies on this sentinel to
// decide whether an existing default-method slot may be replaced.
func (m *Manager) GetITableIndex(name string) int {
	if idx, ok := m.itableIndex[name]; ok {
		return idx
	}
	return noIndex
}

// AssignFunctionIndex gives name its numeric function index in the emitted
// module, assigning the next free index on first call and returning the
// same index on every later call for the same name.
func (m *Manager) AssignFunctionIndex(name string) uint32 {
	if idx, ok := m.funcIndex[name]; ok {
		return idx
	}
	idx := m.nextFuncIndex
	m.nextFuncIndex++
	m.funcIndex[name] = idx
	m.orderedFuncs = append(m.orderedFuncs, name)
	return idx
}

// GetFunctionIndex resolves name to its numeric function index, and
// whether name has been assigned one at all.
func (m *Manager) GetFunctionIndex(name string) (uint32, bool) {
	idx, ok := m.funcIndex[name]
	return idx, ok
}

// RegisterReplacement registers a synthetic function body as the
// implementation backing name, replacing whatever CFBC-level primitive
// name used to refer to. DispatchSynthesizer calls this once per synthetic
// routine it assembles.
func (m *Manager) RegisterReplacement(name string, body wasmtype.FuncBody, sig wasmtype.FuncType) {
	m.replacements[name] = replacement{body: body, sig: sig}
	m.MarkUsed(name)
}

// Replacement returns the synthetic body and signature registered for
// name, if any.
func (m *Manager) Replacement(name string) (wasmtype.FuncBody, wasmtype.FuncType, bool) {
	r, ok := m.replacements[name]
	return r.body, r.sig, ok
}
