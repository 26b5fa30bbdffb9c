package typeman

import (
	"encoding/binary"
	"testing"

	"github.com/jmccay-work/cfbc2wasm/funcmgr"
	"github.com/jmccay-work/cfbc2wasm/strpool"
	"github.com/jmccay-work/cfbc2wasm/wasmtype"
)

func header(t *testing.T, blob []byte) (interfaceOffset, instanceofOffset, typeNameOffset, arrayTypeOffset, fieldsOffset int32) {
	t.Helper()
	if len(blob) < 20 {
		t.Fatalf("blob too short for a header: %d bytes", len(blob))
	}
	return int32(binary.LittleEndian.Uint32(blob[InterfaceOffset:])),
		int32(binary.LittleEndian.Uint32(blob[InstanceofOffset:])),
		int32(binary.LittleEndian.Uint32(blob[TypeNameOffset:])),
		int32(binary.LittleEndian.Uint32(blob[ArrayTypeOffset:])),
		int32(binary.LittleEndian.Uint32(blob[FieldsOffset:]))
}

// A type with no virtual methods and one used field lays its blob out as
// header, empty v-table, a single interface-list terminator, a one-entry
// instanceof list (itself), then the field descriptor list.
func TestWriteToStreamLayoutNoMethodsOneField(t *testing.T) {
	registry := NewTypeRegistry(newFakeLoader())
	funcs := funcmgr.New(0)
	strings := strpool.New()
	emitter := NewMetadataEmitter(registry, funcs, strings)

	d := &TypeDescriptor{
		Name:        "test/Simple",
		Kind:        KindNormal,
		ClassIndex:  10,
		Fields:      []Field{{Name: "x", ValueType: ValueType{Code: wasmI32}}},
		InstanceOFs: []*TypeDescriptor{},
	}
	d.InstanceOFs = append(d.InstanceOFs, d)

	blob, err := emitter.writeToStream(d)
	if err != nil {
		t.Fatal(err)
	}

	ifaceOff, instOff, nameOff, arrOff, fieldsOff := header(t, blob)

	if ifaceOff != VTableFirstFunctionIndex*4 {
		t.Errorf("interfaceOffset = %d, want %d (empty v-table)", ifaceOff, VTableFirstFunctionIndex*4)
	}
	if instOff != ifaceOff+4 {
		t.Errorf("instanceofOffset = %d, want %d (one terminator word after interfaceOffset)", instOff, ifaceOff+4)
	}
	if fieldsOff != instOff+4+4 {
		t.Errorf("fieldsOffset = %d, want %d (count word + one classIndex word after instanceofOffset)", fieldsOff, instOff+4+4)
	}
	if arrOff != -1 {
		t.Errorf("arrayTypeOffset = %d, want -1 for a non-array type", arrOff)
	}
	if gotName, ok := strings.String(uint32(nameOff)); !ok || gotName != "test.Simple" {
		t.Errorf("typeNameOffset round-trips to %q (ok=%v), want test.Simple", gotName, ok)
	}

	if len(blob) != int(fieldsOff)+8 {
		t.Fatalf("blob length = %d, want %d (fieldsOffset + one field's 8 bytes)", len(blob), fieldsOff+8)
	}

	fieldName, ok := strings.String(binary.LittleEndian.Uint32(blob[fieldsOff:]))
	if !ok || fieldName != "x" {
		t.Errorf("field name = %q (ok=%v), want x", fieldName, ok)
	}
	fieldCode := int32(binary.LittleEndian.Uint32(blob[fieldsOff+4:]))
	if fieldCode != wasmI32 {
		t.Errorf("field code = %#x, want i32", fieldCode)
	}
}

// Array and array_native kinds never emit a field descriptor list, even
// when they carry instance fields (the single "value" storage slot).
func TestWriteToStreamArrayKindOmitsFieldList(t *testing.T) {
	registry := NewTypeRegistry(newFakeLoader())
	funcs := funcmgr.New(0)
	strings := strpool.New()
	emitter := NewMetadataEmitter(registry, funcs, strings)

	d := &TypeDescriptor{
		Name:                "[I",
		Kind:                KindArray,
		ClassIndex:          20,
		ComponentClassIndex: 5,
		Fields:              []Field{{Name: "value", ValueType: ValueType{Code: wasmI32}}},
	}
	d.InstanceOFs = append(d.InstanceOFs, d)

	blob, err := emitter.writeToStream(d)
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, arrOff, fieldsOff := header(t, blob)
	if arrOff != 5 {
		t.Errorf("arrayTypeOffset = %d, want 5 (componentClassIndex)", arrOff)
	}
	if int(fieldsOff) != len(blob) {
		t.Errorf("blob length = %d, want exactly fieldsOffset (%d): array kinds carry no field list", len(blob), fieldsOff)
	}
}

func TestWriteToStreamInterfaceBlock(t *testing.T) {
	registry := NewTypeRegistry(newFakeLoader())
	funcs := funcmgr.New(0)
	strings := strpool.New()
	emitter := NewMetadataEmitter(registry, funcs, strings)

	iface := &TypeDescriptor{Name: "test/I", Kind: KindNormal, ClassIndex: 30}
	d := &TypeDescriptor{
		Name:       "test/D",
		Kind:       KindNormal,
		ClassIndex: 31,
		InterfaceMethods: []interfaceMethodList{
			{Interface: iface, Methods: []string{"test/D.g()V"}},
		},
	}
	d.InstanceOFs = append(d.InstanceOFs, d, iface)

	blob, err := emitter.writeToStream(d)
	if err != nil {
		t.Fatal(err)
	}
	ifaceOff, instOff, _, _, _ := header(t, blob)

	gotClassIdx := int32(binary.LittleEndian.Uint32(blob[ifaceOff:]))
	if gotClassIdx != 30 {
		t.Errorf("i-table block class index = %d, want 30", gotClassIdx)
	}
	nextBlock := int32(binary.LittleEndian.Uint32(blob[ifaceOff+4:]))
	if nextBlock != 4*(2+1) {
		t.Errorf("i-table next-block offset = %d, want %d", nextBlock, 4*(2+1))
	}
	fnIdx := binary.LittleEndian.Uint32(blob[ifaceOff+8:])
	resolved, _ := funcs.GetFunctionIndex("test/D.g()V")
	if fnIdx != resolved {
		t.Errorf("i-table method slot = %d, want the assigned function index %d", fnIdx, resolved)
	}
	terminator := int32(binary.LittleEndian.Uint32(blob[ifaceOff+12:]))
	if terminator != 0 {
		t.Errorf("i-table terminator = %d, want 0", terminator)
	}
	if int32(ifaceOff+16) != instOff {
		t.Errorf("instanceofOffset = %d, want right after the single i-table block (%d)", instOff, ifaceOff+16)
	}

	count := int32(binary.LittleEndian.Uint32(blob[instOff:]))
	if count != 2 {
		t.Errorf("instanceof count = %d, want 2 (self + the interface)", count)
	}
}

// The type table stays keyed by classIndex even once an array's
// classIndex-less native sibling has been registered in between: a
// descriptor created after the array must still land at
// table[4*classIndex], not be pushed one word off by the native.
func TestPrepareFinishTypeTableStaysClassIndexed(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("java/lang/Object", "", nil, nil, nil, false, false))
	loader.add(buildClass("test/After", "", nil, nil, nil, false, false))

	funcs := funcmgr.New(0)
	strings := strpool.New()
	registry := NewTypeRegistry(loader)

	elem, err := registry.ValueOf("int")
	if err != nil {
		t.Fatal(err)
	}
	obj, err := registry.ValueOf("java/lang/Object")
	if err != nil {
		t.Fatal(err)
	}
	arr, err := registry.ArrayType(elem) // registers a classIndex-less array_native sibling in between
	if err != nil {
		t.Fatal(err)
	}
	after, err := registry.ValueOf("test/After")
	if err != nil {
		t.Fatal(err)
	}

	scanner := NewHierarchyScanner(registry, loader, funcs)
	if err := scanner.ScanTypeHierarchy(); err != nil {
		t.Fatal(err)
	}

	emitter := NewMetadataEmitter(registry, funcs, strings)
	mod := &wasmtype.Module{}
	if err := emitter.PrepareFinish(mod); err != nil {
		t.Fatal(err)
	}

	data := mod.Data[0].Init
	tableOffset := emitter.TypeTableOffset()
	for _, d := range []*TypeDescriptor{obj, arr, after} {
		slot := tableOffset + 4*d.ClassIndex
		got := int32(binary.LittleEndian.Uint32(data[slot:]))
		if got != int32(d.VTableOffset) {
			t.Errorf("%s: type_table[4*%d] = %d, want its vtableOffset %d", d.Name, d.ClassIndex, got, d.VTableOffset)
		}
	}
}

func TestBlockTypeFuncTypeConversion(t *testing.T) {
	bt := &BlockType{Params: []byte{wasmI32, wasmF64}, Results: []byte{wasmI32}}
	ft := blockTypeFuncType(bt)
	if len(ft.Params) != 2 || ft.Params[0] != wasmtype.ValI32 || ft.Params[1] != wasmtype.ValF64 {
		t.Errorf("params = %v, want [i32 f64]", ft.Params)
	}
	if len(ft.Results) != 1 || ft.Results[0] != wasmtype.ValI32 {
		t.Errorf("results = %v, want [i32]", ft.Results)
	}
}
