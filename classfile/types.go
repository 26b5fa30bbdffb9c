// Package classfile parses CFBC (JVM-style) class files and resolves
// constant pool references. It is the model typeman's HierarchyScanner
// walks, and the basis for the ClassFileLoader it consults through C1.
package classfile

// Access flags relevant to type-hierarchy scanning and dispatch.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
)

// ClassFile is a parsed .class file.
type ClassFile struct {
	MinorVersion     uint16
	MajorVersion     uint16
	ConstantPool     []ConstantPoolEntry
	AccessFlags      uint16
	ThisClass        uint16
	SuperClass       uint16
	Interfaces       []uint16
	Fields           []FieldInfo
	Methods          []MethodInfo
	BootstrapMethods []BootstrapMethod
}

// ClassName returns the fully qualified, slash-separated name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// SuperClassName returns the name of the superclass, or "" when this class
// is java/lang/Object (SuperClass == 0).
func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	name, err := GetClassName(cf.ConstantPool, cf.SuperClass)
	if err != nil {
		return ""
	}
	return name
}

// InterfaceNames returns the names of the interfaces this class directly
// implements.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		name, err := GetClassName(cf.ConstantPool, idx)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

// IsInterface reports whether this class file describes an interface.
func (cf *ClassFile) IsInterface() bool {
	return cf.AccessFlags&AccInterface != 0
}

// IsAbstract reports whether this class (or method, field) is abstract.
func (cf *ClassFile) IsAbstract() bool {
	return cf.AccessFlags&AccAbstract != 0
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a field by name.
func (cf *ClassFile) FindField(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name {
			return &cf.Fields[i]
		}
	}
	return nil
}

// FieldInfo is a field declared in a class file.
type FieldInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
}

// IsStatic reports whether the field is static.
func (f *FieldInfo) IsStatic() bool {
	return f.AccessFlags&AccStatic != 0
}

// MethodInfo is a method declared in a class file.
type MethodInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
	Code        *CodeAttribute
}

// IsStatic reports whether the method is static.
func (m *MethodInfo) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}

// IsAbstract reports whether the method has no body (an interface method
// with no default, or an abstract class method).
func (m *MethodInfo) IsAbstract() bool {
	return m.AccessFlags&AccAbstract != 0
}

// IsPrivate reports whether the method is private (never virtual-dispatched).
func (m *MethodInfo) IsPrivate() bool {
	return m.AccessFlags&AccPrivate != 0
}

// AttributeInfo is a raw, unparsed class-file attribute.
type AttributeInfo struct {
	Name string
	Data []byte
}

// ExceptionHandler is an entry in a method's exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// CodeAttribute is the parsed Code attribute of a method.
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals          uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
}

// BootstrapMethod is one entry of the BootstrapMethods attribute, the
// linkage site an invokedynamic instruction refers to when a lambda
// expression is compiled. lambdaType uses MethodRef to recover the
// synthetic implementation method a lambda closes over.
type BootstrapMethod struct {
	MethodRef          uint16 // index of a CONSTANT_MethodHandle in the constant pool
	BootstrapArguments []uint16
}
