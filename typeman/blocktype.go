package typeman

import "bytes"

// BlockType is C8's interning key: a control-block shape described by an
// ordered parameter list and an ordered result list. Two BlockTypes are
// equal iff both lists are element-wise equal (spec §3.5); Code is
// assigned once, at emission, and never reused.
type BlockType struct {
	Params  []byte
	Results []byte
	Code    int
}

// BlockTypeTable interns BlockTypes by structural equality.
type BlockTypeTable struct {
	entries []*BlockType
}

func newBlockTypeTable() *BlockTypeTable {
	return &BlockTypeTable{}
}

// Intern returns the existing BlockType for (params, results) if one was
// already created, or creates and registers a new one.
func (t *BlockTypeTable) Intern(params, results []byte) *BlockType {
	for _, bt := range t.entries {
		if bytes.Equal(bt.Params, params) && bytes.Equal(bt.Results, results) {
			return bt
		}
	}
	bt := &BlockType{
		Params:  append([]byte(nil), params...),
		Results: append([]byte(nil), results...),
	}
	t.entries = append(t.entries, bt)
	return bt
}

// Entries returns every interned BlockType in first-creation order, for
// MetadataEmitter to assign codes to at emission time.
func (t *BlockTypeTable) Entries() []*BlockType {
	return append([]*BlockType(nil), t.entries...)
}
