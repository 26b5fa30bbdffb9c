package typeman

import (
	"testing"

	"github.com/jmccay-work/cfbc2wasm/funcmgr"
)

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func vtableContains(vtable []string, suffix string) bool {
	for _, v := range vtable {
		if len(v) >= len(suffix) && v[len(v)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

// Scalar field layout: a single class with one used instance field gets an
// object header plus that field, in declaration order.
func TestScanScalarFieldLayout(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("test/A", "", nil,
		[]fieldSpec{{name: "x", descriptor: "I"}},
		nil, false, false))

	funcs := funcmgr.New(0)
	registry := NewTypeRegistry(loader)
	d, err := registry.ValueOf("test/A")
	if err != nil {
		t.Fatal(err)
	}
	d.UseField("x")

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	got := fieldNames(d.Fields)
	want := []string{FieldVTable, FieldHashCode, "x"}
	if len(got) != len(want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fields[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if d.Fields[2].ValueType.Code != wasmI32 {
		t.Errorf("x value type code = %#x, want i32", d.Fields[2].ValueType.Code)
	}
}

// An instance field never referenced by a load/store instruction is
// dropped from the layout.
func TestScanDropsUnusedFields(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("test/A", "", nil,
		[]fieldSpec{{name: "x", descriptor: "I"}, {name: "unused", descriptor: "I"}},
		nil, false, false))

	funcs := funcmgr.New(0)
	registry := NewTypeRegistry(loader)
	d, err := registry.ValueOf("test/A")
	if err != nil {
		t.Fatal(err)
	}
	d.UseField("x")

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	for _, f := range d.Fields {
		if f.Name == "unused" {
			t.Fatal("an unreferenced field should not appear in the instance layout")
		}
	}
}

// Override resolution: B extends A and overrides f(); both names resolve
// to the same v-table slot.
func TestScanOverrideResolution(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("test/A", "", nil, nil,
		[]methodSpec{{name: "f", descriptor: "()V"}}, false, false))
	loader.add(buildClass("test/B", "test/A", nil, nil,
		[]methodSpec{{name: "f", descriptor: "()V"}}, false, false))

	funcs := funcmgr.New(0)
	funcs.MarkUsed(FunctionName{Owner: "test/A", Method: "f", Signature: "()V"}.Key())

	registry := NewTypeRegistry(loader)
	d, err := registry.ValueOf("test/B")
	if err != nil {
		t.Fatal(err)
	}

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	if len(d.VTable) != 1 {
		t.Fatalf("vtable = %v, want exactly one slot", d.VTable)
	}
	if d.VTable[0] != "test/B.f()V" {
		t.Errorf("vtable[0] = %q, want the override, test/B.f()V", d.VTable[0])
	}

	aIdx := funcs.GetVTableIndex("test/A.f()V")
	bIdx := funcs.GetVTableIndex("test/B.f()V")
	if aIdx != bIdx {
		t.Errorf("override and base method resolve to different slots: %d vs %d", aIdx, bIdx)
	}
	if bIdx != VTableFirstFunctionIndex {
		t.Errorf("vtable index = %d, want %d", bIdx, VTableFirstFunctionIndex)
	}
}

// Default method: an interface default used but not overridden gets its
// own v-table slot via the interface's default-method fallback.
func TestScanDefaultMethod(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("test/I", "", nil, nil,
		[]methodSpec{{name: "f", descriptor: "()V"}}, false, true))
	loader.add(buildClass("test/C", "", []string{"test/I"}, nil, nil, false, false))

	funcs := funcmgr.New(0)
	funcs.MarkUsed(FunctionName{Owner: "test/I", Method: "f", Signature: "()V"}.Key())

	registry := NewTypeRegistry(loader)
	d, err := registry.ValueOf("test/C")
	if err != nil {
		t.Fatal(err)
	}

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	if !vtableContains(d.VTable, "test/I.f()V") {
		t.Fatalf("vtable = %v, want the default method test/I.f()V", d.VTable)
	}
	if idx := funcs.GetVTableIndex("test/I.f()V"); idx != VTableFirstFunctionIndex {
		t.Errorf("default method vtable index = %d, want %d", idx, VTableFirstFunctionIndex)
	}
}

// First-default-wins: when two unrelated interfaces contribute a default
// for the same slot, the one already backed by an i-table index is kept.
func TestScanFirstDefaultWins(t *testing.T) {
	d := &TypeDescriptor{Name: "test/C"}
	funcs := funcmgr.New(0)
	scanner := &HierarchyScanner{registry: NewTypeRegistry(newFakeLoader()), funcs: funcs}

	first := FunctionName{Owner: "test/I1", Method: "f", Signature: "()V"}
	second := FunctionName{Owner: "test/I2", Method: "f", Signature: "()V"}

	funcs.MarkUsed(first.Key())
	funcs.MarkUsed(second.Key())
	funcs.SetITableIndex(first.Key(), 1)

	scanner.addOrUpdateVTable(d, first, true)
	scanner.addOrUpdateVTable(d, second, true)

	if len(d.VTable) != 1 {
		t.Fatalf("vtable = %v, want one merged slot", d.VTable)
	}
	if d.VTable[0] != first.Key() {
		t.Errorf("vtable[0] = %q, want the first default %q to win", d.VTable[0], first.Key())
	}
}

// Interface dispatch: a class implementing an interface gets an i-table
// entry naming its concrete implementation, with an assigned i-table index.
func TestScanInterfaceDispatch(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("test/I2", "", nil, nil,
		[]methodSpec{{name: "g", descriptor: "()V"}}, false, true))
	loader.add(buildClass("test/D", "", []string{"test/I2"}, nil,
		[]methodSpec{{name: "g", descriptor: "()V"}}, false, false))

	funcs := funcmgr.New(0)
	funcs.MarkUsed(FunctionName{Owner: "test/I2", Method: "g", Signature: "()V"}.Key())

	registry := NewTypeRegistry(loader)
	d, err := registry.ValueOf("test/D")
	if err != nil {
		t.Fatal(err)
	}
	iface, err := registry.ValueOf("test/I2")
	if err != nil {
		t.Fatal(err)
	}

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	methods, ok := d.InterfaceMethodsFor(iface)
	if !ok || len(methods) != 1 || methods[0] != "test/D.g()V" {
		t.Fatalf("interface methods for I2 = %v, ok=%v, want [test/D.g()V]", methods, ok)
	}

	idx := funcs.GetITableIndex(FunctionName{Owner: "test/I2", Method: "g", Signature: "()V"}.Key())
	if idx != 2 {
		t.Errorf("i-table index = %d, want 2 (two header words precede the first method slot)", idx)
	}

	if !vtableContains(d.VTable, "test/D.g()V") {
		t.Errorf("vtable = %v, want test/D.g()V also present as a virtual slot", d.VTable)
	}
}

// Array of primitive: an int array descriptor carries a single value
// field referencing its native companion, whose own value field is the
// element type directly.
func TestScanArrayOfPrimitive(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("java/lang/Object", "", nil, nil, nil, false, false))

	funcs := funcmgr.New(0)
	registry := NewTypeRegistry(loader)
	elem, err := registry.ValueOf("int")
	if err != nil {
		t.Fatal(err)
	}
	arr, err := registry.ArrayType(elem)
	if err != nil {
		t.Fatal(err)
	}
	if arr.ComponentClassIndex != 5 {
		t.Fatalf("componentClassIndex = %d, want 5", arr.ComponentClassIndex)
	}

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	got := fieldNames(arr.Fields)
	want := []string{FieldVTable, FieldHashCode, "value"}
	if len(got) != len(want) {
		t.Fatalf("array fields = %v, want %v", got, want)
	}
	if !arr.Fields[2].ValueType.IsRef() || arr.Fields[2].ValueType.Ref != arr.NativeArrayType {
		t.Error("array's value field should reference its native companion")
	}

	native := arr.NativeArrayType
	if len(native.Fields) != 1 || native.Fields[0].Name != "value" {
		t.Fatalf("native array fields = %v, want a single value field", native.Fields)
	}
	if native.Fields[0].ValueType.Code != wasmI32 {
		t.Errorf("native array value type code = %#x, want i32", native.Fields[0].ValueType.Code)
	}
}

// A root class with no superclass emits itself exactly once in its
// instanceof set, never twice (scenario 6's {X, Object} shape, not
// {X, X, Object}).
func TestScanInstanceOfsHasNoDuplicateSelf(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("test/A", "", nil, nil, nil, false, false))

	funcs := funcmgr.New(0)
	registry := NewTypeRegistry(loader)
	d, err := registry.ValueOf("test/A")
	if err != nil {
		t.Fatal(err)
	}

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	if len(d.InstanceOFs) != 1 || d.InstanceOFs[0] != d {
		t.Fatalf("instanceOFs = %v, want exactly [self]", d.InstanceOFs)
	}
}

// Across a two-level hierarchy, instanceOFs behaves as an ordered set: one
// entry per ancestor, self first, no repeats.
func TestScanInstanceOfsIsOrderedSetAcrossHierarchy(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("test/A", "", nil, nil, nil, false, false))
	loader.add(buildClass("test/B", "test/A", nil, nil, nil, false, false))

	funcs := funcmgr.New(0)
	registry := NewTypeRegistry(loader)
	a, err := registry.ValueOf("test/A")
	if err != nil {
		t.Fatal(err)
	}
	b, err := registry.ValueOf("test/B")
	if err != nil {
		t.Fatal(err)
	}

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	want := []*TypeDescriptor{b, a}
	if len(b.InstanceOFs) != len(want) {
		t.Fatalf("instanceOFs = %v, want %v", b.InstanceOFs, want)
	}
	for i, d := range want {
		if b.InstanceOFs[i] != d {
			t.Errorf("instanceOFs[%d] = %s, want %s", i, b.InstanceOFs[i], d)
		}
	}
}

// Abstract classes do not synthesize an i-table: listInterfaces bails out
// before building method blocks for an abstract root.
func TestScanAbstractClassSkipsITable(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("test/I3", "", nil, nil,
		[]methodSpec{{name: "h", descriptor: "()V"}}, false, true))
	loader.add(buildClass("test/AbstractBase", "", []string{"test/I3"}, nil, nil, true, false))

	funcs := funcmgr.New(0)
	funcs.MarkUsed(FunctionName{Owner: "test/I3", Method: "h", Signature: "()V"}.Key())

	registry := NewTypeRegistry(loader)
	d, err := registry.ValueOf("test/AbstractBase")
	if err != nil {
		t.Fatal(err)
	}

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	if len(d.InterfaceMethods) != 0 {
		t.Errorf("interface methods = %v, want none for an abstract root", d.InterfaceMethods)
	}
}
