// Package typeman is the type and dispatch core of the compiler: it
// discovers every reference type reachable by compilation, computes each
// type's instance layout, builds v-tables, i-tables, and instanceof
// witness lists, emits the per-class runtime metadata blob, and
// synthesizes the callVirtual/callInterface/instanceof/cast dispatch
// routines as WebAssembly code.
//
// TypeRegistry (C4), HierarchyScanner (C5), DispatchSynthesizer (C6),
// MetadataEmitter (C7), and BlockTypeTable (C8) are the five collaborators
// in this package; ClassFileLoader (C1), funcmgr.Manager (C2), and
// strpool.Pool (C3) are supplied by the caller.
package typeman

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jmccay-work/cfbc2wasm/classfile"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns this package's logger instance, defaulting to a no-op.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures this package's logger. Call before scanning starts.
func SetLogger(l *zap.Logger) {
	logger = l
}

// ClassFileLoader resolves a class name to its parsed class file. It is
// the contract HierarchyScanner consults to walk superclass and interface
// chains; classfile.DirLoader satisfies it.
type ClassFileLoader interface {
	Load(className string) (*classfile.ClassFile, error)
}

// Kind distinguishes the five flavors of TypeDescriptor. A tagged-variant
// struct (one record, a Kind tag, and kind-specific fields below) stands
// in for what the original modeled as a type hierarchy.
type Kind int

const (
	KindPrimitive Kind = iota
	KindNormal
	KindArray
	KindArrayNative
	KindLambda
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindNormal:
		return "normal"
	case KindArray:
		return "array"
	case KindArrayNative:
		return "array_native"
	case KindLambda:
		return "lambda"
	default:
		return "unknown"
	}
}

// Header field names shared by every non-primitive instance layout.
const (
	FieldVTable   = ".vtable"
	FieldHashCode = ".hashcode"
)

// Metadata blob header offsets, part of the ABI: dispatch routines in
// dispatch.go hard-reference these byte positions.
const (
	InterfaceOffset  = 0
	InstanceofOffset = 4
	TypeNameOffset   = 8
	ArrayTypeOffset  = 12
	FieldsOffset     = 16
)

// VTableFirstFunctionIndex is the first virtual-method index (slot 0 of
// the v-table proper sits at byte 20, i.e. 20/4). The five header words
// preceding it are reserved.
const VTableFirstFunctionIndex = 5

// PrimitiveNames is the fixed creation order of the nine primitive types.
// This order is load-bearing: it assigns boolean=0 ... void=8, and
// arrayType's component-index table and primitive-name lookup both rely
// on it.
var PrimitiveNames = []string{
	"boolean", "byte", "char", "double", "float", "int", "long", "short", "void",
}

// Field is one (declaring class, name, WebAssembly value type) triple in
// an instance layout.
type Field struct {
	DeclaringClass string
	Name           string
	ValueType      ValueType
}

// ValueType is the WebAssembly-level storage type of a field or array
// element: an i32/i64/f32/f64 code, or a reference to another descriptor
// for object-typed fields.
type ValueType struct {
	Code byte // one of wasmtype.ValI32, ValI64, ValF32, ValF64
	Ref  *TypeDescriptor
}

// IsRef reports whether this value type is an object reference.
func (v ValueType) IsRef() bool { return v.Ref != nil }

// TypeDescriptor is the single record standing in for primitive, normal,
// array, array_native, and lambda types. Only the fields relevant to a
// descriptor's Kind are populated; see the Kind-specific comments below.
type TypeDescriptor struct {
	Name       string
	Kind       Kind
	ClassIndex int // monotonic, non-negative; -1 for array_native
	Code       int // WASM GC struct-type index; unset until emission

	NeededFields map[string]bool

	Fields           []Field
	VTable           []string // function names, slot i = virtual-method index i+5
	InstanceOFs      []*TypeDescriptor
	InterfaceMethods []interfaceMethodList

	VTableOffset int // byte offset of this descriptor's blob; set once

	// array / array_native only
	ElementType         ValueType
	ComponentClassIndex int
	NativeArrayType     *TypeDescriptor

	// lambda only
	ParamFields         []Field
	InterfaceType       *TypeDescriptor
	InterfaceMethodName string
	LambdaFunctionName  string // the synthetic wrapper registered with funcmgr
	ImplFunctionName    string // the real method the wrapper tail-calls
	ImplNeedsThis       bool
}

// interfaceMethodList pairs an interface descriptor with the ordered list
// of concrete function names realizing its used methods, preserving
// InterfaceMethods' map-like semantics with deterministic iteration.
type interfaceMethodList struct {
	Interface *TypeDescriptor
	Methods   []string
}

// AddInterfaceMethod appends fn to the method list for iface, creating the
// list if this is the first method seen for that interface.
func (d *TypeDescriptor) AddInterfaceMethod(iface *TypeDescriptor, fn string) {
	for i := range d.InterfaceMethods {
		if d.InterfaceMethods[i].Interface == iface {
			d.InterfaceMethods[i].Methods = append(d.InterfaceMethods[i].Methods, fn)
			return
		}
	}
	d.InterfaceMethods = append(d.InterfaceMethods, interfaceMethodList{Interface: iface, Methods: []string{fn}})
}

// InterfaceMethodsFor returns the method list recorded for iface, and
// whether one exists.
func (d *TypeDescriptor) InterfaceMethodsFor(iface *TypeDescriptor) ([]string, bool) {
	for i := range d.InterfaceMethods {
		if d.InterfaceMethods[i].Interface == iface {
			return d.InterfaceMethods[i].Methods, true
		}
	}
	return nil, false
}

// AddInstanceOf appends t to InstanceOFs, skipping it when already present
// so the list behaves as the ordered set spec §3.1 calls for (the
// original keeps it as a LinkedHashSet, TypeManager.java:702/784, where a
// repeat add is a no-op).
func (d *TypeDescriptor) AddInstanceOf(t *TypeDescriptor) {
	for _, existing := range d.InstanceOFs {
		if existing == t {
			return
		}
	}
	d.InstanceOFs = append(d.InstanceOFs, t)
}

// UseField marks fieldName as referenced by a load or store instruction
// compiled against this type, so the scanner includes it in the instance
// layout.
func (d *TypeDescriptor) UseField(fieldName string) {
	if d.NeededFields == nil {
		d.NeededFields = make(map[string]bool)
	}
	d.NeededFields[fieldName] = true
}

func (d *TypeDescriptor) String() string {
	return "$" + d.Name
}
