package funcmgr

import (
	"testing"

	"github.com/jmccay-work/cfbc2wasm/wasmtype"
)

func TestMarkUsed_Idempotent(t *testing.T) {
	m := New(0)
	m.MarkUsed("com/example/Widget.greet()V")
	m.MarkUsed("com/example/Widget.greet()V")

	if !m.IsUsed("com/example/Widget.greet()V") {
		t.Error("expected function to be marked used")
	}
	if got := m.UsedNames(); len(got) != 1 {
		t.Errorf("UsedNames = %v, want 1 entry", got)
	}
}

func TestIsUsed_NotMarked(t *testing.T) {
	m := New(0)
	if m.IsUsed("never/marked()V") {
		t.Error("expected IsUsed to be false for unmarked function")
	}
}

func TestVTableIndex(t *testing.T) {
	m := New(0)
	if idx := m.GetVTableIndex("A.m()V"); idx != noIndex {
		t.Errorf("GetVTableIndex before Set = %d, want %d", idx, noIndex)
	}

	m.SetVTableIndex("A.m()V", 5)
	if idx := m.GetVTableIndex("A.m()V"); idx != 5 {
		t.Errorf("GetVTableIndex = %d, want 5", idx)
	}
}

func TestITableIndex(t *testing.T) {
	m := New(0)
	if idx := m.GetITableIndex("I.f()V"); idx != noIndex {
		t.Errorf("GetITableIndex before Set = %d, want %d", idx, noIndex)
	}

	m.SetITableIndex("I.f()V", 2)
	if idx := m.GetITableIndex("I.f()V"); idx != 2 {
		t.Errorf("GetITableIndex = %d, want 2", idx)
	}
}

func TestAssignFunctionIndex_StableAndSequential(t *testing.T) {
	m := New(10)

	first := m.AssignFunctionIndex("a")
	second := m.AssignFunctionIndex("b")
	again := m.AssignFunctionIndex("a")

	if first != 10 {
		t.Errorf("first index = %d, want 10", first)
	}
	if second != 11 {
		t.Errorf("second index = %d, want 11", second)
	}
	if again != first {
		t.Errorf("re-assigning a returned %d, want %d", again, first)
	}
}

func TestGetFunctionIndex_Unassigned(t *testing.T) {
	m := New(0)
	if _, ok := m.GetFunctionIndex("nope"); ok {
		t.Error("GetFunctionIndex: expected not-found for unassigned name")
	}
}

func TestRegisterReplacement(t *testing.T) {
	m := New(0)
	body := wasmtype.FuncBody{Code: []byte{0x0b}}
	sig := wasmtype.FuncType{Results: []wasmtype.ValType{wasmtype.ValI32}}

	m.RegisterReplacement("callVirtual", body, sig)

	gotBody, gotSig, ok := m.Replacement("callVirtual")
	if !ok {
		t.Fatal("Replacement: expected registered replacement")
	}
	if len(gotBody.Code) != 1 || gotBody.Code[0] != 0x0b {
		t.Errorf("Replacement body = %v", gotBody)
	}
	if len(gotSig.Results) != 1 || gotSig.Results[0] != wasmtype.ValI32 {
		t.Errorf("Replacement sig = %v", gotSig)
	}
	if !m.IsUsed("callVirtual") {
		t.Error("RegisterReplacement should mark the name used")
	}
}

func TestReplacement_NotRegistered(t *testing.T) {
	m := New(0)
	if _, _, ok := m.Replacement("missing"); ok {
		t.Error("Replacement: expected not-found for unregistered name")
	}
}
