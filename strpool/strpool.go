// Package strpool interns the strings that appear in type metadata —
// class names and field names — assigning each a stable integer id.
package strpool

// Pool interns strings, returning a stable id for each distinct value.
// Ids are assigned in first-insertion order starting at 0, mirroring the
// deterministic ordered-entity pattern used for v-table/i-table indices
// elsewhere in this compiler: two calls to Intern with the same string
// always return the same id, and the id never changes once assigned.
//
// A Pool is not safe for concurrent use; the compiler interns strings
// only during the single-threaded scan and emit phases.
type Pool struct {
	ids     map[string]uint32
	strings []string
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{ids: make(map[string]uint32)}
}

// Intern returns the id for s, assigning a new one if s has not been seen
// before.
func (p *Pool) Intern(s string) uint32 {
	if id, ok := p.ids[s]; ok {
		return id
	}
	id := uint32(len(p.strings))
	p.ids[s] = id
	p.strings = append(p.strings, s)
	return id
}

// Lookup returns the id previously assigned to s, and whether s has been
// interned at all.
func (p *Pool) Lookup(s string) (uint32, bool) {
	id, ok := p.ids[s]
	return id, ok
}

// String resolves an id back to the string it was assigned to, completing
// the TYPE_NAME round trip (class name -> id -> dotted class name).
func (p *Pool) String(id uint32) (string, bool) {
	if int(id) >= len(p.strings) {
		return "", false
	}
	return p.strings[id], true
}

// Len returns the number of distinct strings interned so far.
func (p *Pool) Len() int {
	return len(p.strings)
}
