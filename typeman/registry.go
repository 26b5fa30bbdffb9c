package typeman

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jmccay-work/cfbc2wasm/cmderr"
)

// TypeRegistry is C4: the canonical map from a type key to its
// TypeDescriptor. It creates primitives eagerly on first use, reference
// types on demand, and array/lambda types on demand, and enforces the
// "scan finished" latch described in spec §3.6.
type TypeRegistry struct {
	loader ClassFileLoader

	byName  map[string]*TypeDescriptor
	ordered []*TypeDescriptor

	blockTypes *BlockTypeTable

	nextClassIndex int
	isFinish       bool
}

// NewTypeRegistry creates an empty registry backed by loader.
func NewTypeRegistry(loader ClassFileLoader) *TypeRegistry {
	return &TypeRegistry{
		loader:     loader,
		byName:     make(map[string]*TypeDescriptor),
		blockTypes: newBlockTypeTable(),
	}
}

// IsFinish reports whether the scan-finish latch has been set.
func (r *TypeRegistry) IsFinish() bool { return r.isFinish }

// Finish latches the registry closed. Called once by the compiler driver
// after HierarchyScanner has run.
func (r *TypeRegistry) Finish() { r.isFinish = true }

// Size returns the count of registered descriptors (C4's size()).
func (r *TypeRegistry) Size() int { return len(r.ordered) }

// Descriptors returns every registered descriptor in creation order.
// HierarchyScanner and MetadataEmitter both iterate this order because
// classIndex assignment, the type table, and struct-type emission order
// all depend on it (spec §5, "Ordering").
func (r *TypeRegistry) Descriptors() []*TypeDescriptor {
	return append([]*TypeDescriptor(nil), r.ordered...)
}

func (r *TypeRegistry) checkOpen(newType string) error {
	if r.isFinish {
		return cmderr.LateRegistration(cmderr.PhaseRegister, newType)
	}
	return nil
}

func (r *TypeRegistry) register(d *TypeDescriptor, key string) {
	r.byName[key] = d
	r.ordered = append(r.ordered, d)
}

func (r *TypeRegistry) ensurePrimitives() {
	if len(r.ordered) != 0 {
		return
	}
	for _, name := range PrimitiveNames {
		d := &TypeDescriptor{
			Name:       name,
			Kind:       KindPrimitive,
			ClassIndex: r.nextClassIndex,
		}
		r.nextClassIndex++
		r.register(d, name)
	}
}

// ValueOf is C4's valueOf: returns the descriptor for name, creating it
// (and, on first call, the nine primitives) if it does not already exist.
// Names beginning with "[" are routed to ArrayType after resolving the
// element type.
func (r *TypeRegistry) ValueOf(name string) (*TypeDescriptor, error) {
	if strings.HasPrefix(name, "[") {
		elem, err := r.parseArrayElement(name[1:])
		if err != nil {
			return nil, err
		}
		return r.ArrayType(elem)
	}

	r.ensurePrimitives()

	if d, ok := r.byName[name]; ok {
		return d, nil
	}

	if err := r.checkOpen(name); err != nil {
		return nil, err
	}

	d := &TypeDescriptor{
		Name:       name,
		Kind:       KindNormal,
		ClassIndex: r.nextClassIndex,
	}
	r.nextClassIndex++
	r.register(d, name)
	return d, nil
}

// parseArrayElement resolves the element type named by a "[" prefixed
// type descriptor. The caller has already stripped one "[".
func (r *TypeRegistry) parseArrayElement(rest string) (*TypeDescriptor, error) {
	if strings.HasPrefix(rest, "[") {
		elem, err := r.parseArrayElement(rest[1:])
		if err != nil {
			return nil, err
		}
		return r.ArrayType(elem)
	}
	if strings.HasPrefix(rest, "L") && strings.HasSuffix(rest, ";") {
		return r.ValueOf(rest[1 : len(rest)-1])
	}
	primName, ok := primitiveFromFieldDescriptor(rest)
	if !ok {
		return nil, cmderr.UnsupportedType(cmderr.PhaseRegister, fmt.Sprintf("array element descriptor %q", rest))
	}
	return r.ValueOf(primName)
}

func primitiveFromFieldDescriptor(code string) (string, bool) {
	switch code {
	case "Z":
		return "boolean", true
	case "B":
		return "byte", true
	case "C":
		return "char", true
	case "D":
		return "double", true
	case "F":
		return "float", true
	case "I":
		return "int", true
	case "J":
		return "long", true
	case "S":
		return "short", true
	case "V":
		return "void", true
	default:
		return "", false
	}
}

// componentClassIndex maps a primitive element's registry classIndex to
// the component-class-index table in spec §4.1/original's arrayType:
// bool=0, i8=1, u16=2, f64=3, f32=4, i32=5, i64=6, i16=7. Since
// PrimitiveNames already assigns exactly those class indices in exactly
// that order (spec §3.2), a primitive's own classIndex already equals
// its component index; this function exists to make that ABI fact
// explicit and to reject primitives without a native WASM value type
// (void has none and is never a valid array element).
func componentClassIndex(elem *TypeDescriptor) (int, error) {
	if elem.Kind != KindPrimitive {
		return elem.ClassIndex, nil // object reference: the element type's own classIndex
	}
	if elem.Name == "void" {
		return 0, cmderr.UnsupportedType(cmderr.PhaseRegister, "array of void")
	}
	return elem.ClassIndex, nil
}

// ArrayType is C4's arrayType: returns or creates the array descriptor
// for elem, idempotently keyed by elem's identity.
func (r *TypeRegistry) ArrayType(elem *TypeDescriptor) (*TypeDescriptor, error) {
	r.ensurePrimitives()

	key := "[" + elem.Name
	if d, ok := r.byName[key]; ok {
		return d, nil
	}

	if err := r.checkOpen(key); err != nil {
		return nil, err
	}

	compIdx, err := componentClassIndex(elem)
	if err != nil {
		return nil, err
	}

	var valType ValueType
	if elem.Kind == KindPrimitive {
		valType = primitiveValueType(elem.Name)
	} else {
		valType = ValueType{Ref: elem}
	}

	d := &TypeDescriptor{
		Name:                key,
		Kind:                KindArray,
		ClassIndex:          r.nextClassIndex,
		ElementType:         valType,
		ComponentClassIndex: compIdx,
	}
	r.nextClassIndex++
	r.register(d, key)

	native := &TypeDescriptor{
		Name:        key + "$native",
		Kind:        KindArrayNative,
		ClassIndex:  -1,
		ElementType: valType,
	}
	r.register(native, native.Name)
	d.NativeArrayType = native

	return d, nil
}

func primitiveValueType(name string) ValueType {
	switch name {
	case "double":
		return ValueType{Code: wasmF64}
	case "float":
		return ValueType{Code: wasmF32}
	case "long":
		return ValueType{Code: wasmI64}
	default:
		return ValueType{Code: wasmI32}
	}
}

// Bring wasmtype's value-type codes into this file's scope without
// importing the whole package just for four constants used in switches
// above; avoids a cyclic-looking import for a handful of byte values.
const (
	wasmI32 = 0x7F
	wasmI64 = 0x7E
	wasmF32 = 0x7D
	wasmF64 = 0x7C
)

// BlockType is C4's blockType: interns a (params, results) pair by
// structural equality.
func (r *TypeRegistry) BlockType(params, results []byte) *BlockType {
	return r.blockTypes.Intern(params, results)
}

// BlockTypes returns the underlying table, for MetadataEmitter/C8 code
// assignment at emission time.
func (r *TypeRegistry) BlockTypes() *BlockTypeTable { return r.blockTypes }

// Get looks up an already-registered descriptor by name without creating
// one; used by the scanner when a missing entry should fall back to
// loading fields directly from a class file rather than fabricating a
// descriptor.
func (r *TypeRegistry) Get(name string) (*TypeDescriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Loader exposes the ClassFileLoader this registry was constructed with,
// for collaborators (HierarchyScanner, subtype queries) that need it.
func (r *TypeRegistry) Loader() ClassFileLoader { return r.loader }

func (r *TypeRegistry) logFields(d *TypeDescriptor) []zap.Field {
	return []zap.Field{zap.String("type", d.Name), zap.Int("classIndex", d.ClassIndex)}
}
