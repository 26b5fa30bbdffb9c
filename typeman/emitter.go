package typeman

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmccay-work/cfbc2wasm/funcmgr"
	"github.com/jmccay-work/cfbc2wasm/strpool"
	"github.com/jmccay-work/cfbc2wasm/wasmtype"
	"github.com/jmccay-work/cfbc2wasm/watsynth"
)

// ClassConstantFunctionName is the ABI name for
// java/lang/Class.classConstant(I)Ljava/lang/Class;, a stable function
// name the translator (out of scope) calls to materialize a Class
// constant from a class index. §6.3 fixes its signature.
func ClassConstantFunctionName() FunctionName {
	return FunctionName{Owner: "java/lang/Class", Method: "classConstant", Signature: "(I)Ljava/lang/Class;"}
}

// MetadataEmitter is C7: serializes every descriptor's metadata blob
// into the linear-memory data image in the §6.1 layout, records each
// descriptor's vtableOffset, and emits the §6.2 type table.
type MetadataEmitter struct {
	registry *TypeRegistry
	funcs    *funcmgr.Manager
	strings  *strpool.Pool

	data            []byte
	typeTableOffset int
}

// NewMetadataEmitter creates an emitter over registry, resolving function
// indices through funcs and interning class/field names into strings.
func NewMetadataEmitter(registry *TypeRegistry, funcs *funcmgr.Manager, strings *strpool.Pool) *MetadataEmitter {
	return &MetadataEmitter{registry: registry, funcs: funcs, strings: strings}
}

// PrepareFinish is C7's prepareFinish: latches the registry, writes a GC
// struct TypeDef for every descriptor into mod (for reflection/tooling;
// actual field access stays linear-memory per §2.5), writes every
// descriptor's metadata blob, assigns block-type codes, and writes the
// type table. Called once by the compiler driver after HierarchyScanner
// has run.
func (e *MetadataEmitter) PrepareFinish(mod *wasmtype.Module) error {
	e.registry.Finish()

	for _, d := range e.registry.Descriptors() {
		d.Code = e.writeStructTypeDef(mod, d)
	}

	for _, d := range e.registry.Descriptors() {
		Logger().Debug("write type", zap.String("type", d.Name))
		offset := len(e.data)
		blob, err := e.writeToStream(d)
		if err != nil {
			return err
		}
		d.VTableOffset = offset
		e.data = append(e.data, blob...)
	}

	for _, bt := range e.registry.BlockTypes().Entries() {
		bt.Code = int(mod.AddType(blockTypeFuncType(bt)))
	}

	e.typeTableOffset = len(e.data)
	for _, d := range e.registry.Descriptors() {
		if d.ClassIndex < 0 {
			// array_native siblings carry no classIndex of their own (the
			// linear-memory representation never looks one up by class
			// index; see typeman.ArrayType) and must not occupy a slot,
			// or every descriptor registered after them would land one
			// word off in the classIndex-keyed table (§6.2).
			continue
		}
		e.data = append(e.data, leInt32(int32(d.VTableOffset))...)
	}

	if len(mod.Memories) == 0 {
		mod.Memories = append(mod.Memories, wasmtype.MemoryType{Limits: wasmtype.Limits{Min: 1}})
	}
	mod.Data = append(mod.Data, wasmtype.DataSegment{
		Flags:  0,
		MemIdx: 0,
		Offset: []byte{0x41, 0x00, 0x0b}, // i32.const 0, end
		Init:   e.data,
	})

	return nil
}

func blockTypeFuncType(bt *BlockType) wasmtype.FuncType {
	params := make([]wasmtype.ValType, len(bt.Params))
	for i, p := range bt.Params {
		params[i] = wasmtype.ValType(p)
	}
	results := make([]wasmtype.ValType, len(bt.Results))
	for i, r := range bt.Results {
		results[i] = wasmtype.ValType(r)
	}
	return wasmtype.FuncType{Params: params, Results: results}
}

// writeStructTypeDef records a GC struct TypeDef mirroring d's instance
// layout and returns its type-section index. Reference-typed fields are
// recorded as a nullable eqref rather than a precise heap-type index:
// resolving exact cyclic struct-type indices would require a two-pass
// emission this tooling-only metadata does not warrant (actual object
// access is linear-memory, per §2.5; this TypeDef exists only to satisfy
// "code: the WebAssembly struct-type index assigned by the module
// writer" from §3.1 for reflection/debugging consumers).
func (e *MetadataEmitter) writeStructTypeDef(mod *wasmtype.Module, d *TypeDescriptor) int {
	fields := make([]wasmtype.FieldType, 0, len(d.Fields))
	for _, f := range d.Fields {
		fields = append(fields, wasmtype.FieldType{Type: fieldStorageType(f.ValueType), Mutable: true})
	}
	mod.TypeDefs = append(mod.TypeDefs, wasmtype.TypeDef{
		Kind: wasmtype.TypeDefKindSub,
		Sub: &wasmtype.SubType{
			Final: true,
			CompType: wasmtype.CompType{
				Kind:   wasmtype.CompKindStruct,
				Struct: &wasmtype.StructType{Fields: fields},
			},
		},
	})
	return len(mod.TypeDefs) - 1
}

func fieldStorageType(v ValueType) wasmtype.StorageType {
	if v.IsRef() {
		return wasmtype.StorageType{Kind: wasmtype.StorageKindRef, RefType: wasmtype.RefType{Nullable: true, HeapType: -0x10}} // eqref
	}
	return wasmtype.StorageType{Kind: wasmtype.StorageKindVal, ValType: wasmtype.ValType(v.Code)}
}

// writeToStream serializes d's metadata blob in the §6.1 layout:
// header (5 words), v-table, i-table blocks, instanceof list, and —
// normal kind only — the field descriptor list.
func (e *MetadataEmitter) writeToStream(d *TypeDescriptor) ([]byte, error) {
	var body []byte // everything after the 20-byte header

	for _, fn := range d.VTable {
		idx := e.funcs.AssignFunctionIndex(fn)
		body = append(body, leInt32(int32(idx))...)
	}

	interfaceOffset := int32(len(body) + VTableFirstFunctionIndex*4)
	for _, entry := range d.InterfaceMethods {
		body = append(body, leInt32(int32(entry.Interface.ClassIndex))...)
		nextBlock := int32(4 * (2 + len(entry.Methods)))
		body = append(body, leInt32(nextBlock)...)
		for _, fn := range entry.Methods {
			idx := e.funcs.AssignFunctionIndex(fn)
			body = append(body, leInt32(int32(idx))...)
		}
	}
	body = append(body, leInt32(0)...) // no more interfaces

	instanceofOffset := int32(len(body) + VTableFirstFunctionIndex*4)
	body = append(body, leInt32(int32(len(d.InstanceOFs)))...)
	for _, t := range d.InstanceOFs {
		body = append(body, leInt32(int32(t.ClassIndex))...)
	}

	nameID := e.strings.Intern(dottedName(d.Name))

	fieldsOffset := int32(len(body) + VTableFirstFunctionIndex*4)
	var fieldBytes []byte
	if d.Kind == KindNormal {
		for _, f := range d.Fields {
			fid := e.strings.Intern(f.Name)
			fieldBytes = append(fieldBytes, leInt32(int32(fid))...)
			fieldBytes = append(fieldBytes, leInt32(int32(fieldTypeCode(f.ValueType)))...)
		}
	}

	header := make([]byte, 20)
	binary.LittleEndian.PutUint32(header[InterfaceOffset:], uint32(interfaceOffset))
	binary.LittleEndian.PutUint32(header[InstanceofOffset:], uint32(instanceofOffset))
	binary.LittleEndian.PutUint32(header[TypeNameOffset:], nameID)
	binary.LittleEndian.PutUint32(header[ArrayTypeOffset:], uint32(int32(arrayTypeComponentIndex(d))))
	binary.LittleEndian.PutUint32(header[FieldsOffset:], uint32(fieldsOffset))

	blob := append(header, body...)
	blob = append(blob, fieldBytes...)
	return blob, nil
}

func arrayTypeComponentIndex(d *TypeDescriptor) int {
	if d.Kind == KindArray {
		return d.ComponentClassIndex
	}
	return -1
}

func fieldTypeCode(v ValueType) int {
	if v.IsRef() {
		return wasmI32
	}
	return int(v.Code)
}

func dottedName(slashName string) string {
	out := make([]byte, len(slashName))
	for i := 0; i < len(slashName); i++ {
		if slashName[i] == '/' {
			out[i] = '.'
		} else {
			out[i] = slashName[i]
		}
	}
	return string(out)
}

func leInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// TypeTableOffset returns the byte offset of the type table within the
// data image. Valid only after PrepareFinish.
func (e *MetadataEmitter) TypeTableOffset() int { return e.typeTableOffset }

// TypeTableAccessor registers the synthetic zero-argument function
// java/lang/Class.typeTableMemoryOffset()I, whose entire body is a single
// i32.const instruction loading the type table's base address (spec
// §4.4; SPEC_FULL domain expansion item 2).
func (e *MetadataEmitter) TypeTableAccessor() error {
	body := fmt.Sprintf("i32.const %d\n\t\treturn", e.typeTableOffset)
	fb, ft, err := watsynth.CompileFunctionBody(body, nil, []wasmtype.ValType{wasmtype.ValI32})
	if err != nil {
		return fmt.Errorf("synthesizing typeTableMemoryOffset: %w", err)
	}
	name := FunctionName{Owner: "java/lang/Class", Method: "typeTableMemoryOffset", Signature: "()I"}
	e.funcs.RegisterReplacement(name.Key(), fb, ft)
	e.funcs.AssignFunctionIndex(name.Key())
	return nil
}
