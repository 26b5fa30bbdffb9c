package typeman

import "github.com/jmccay-work/cfbc2wasm/classfile"

// cpBuilder assembles a minimal constant pool for hand-built ClassFile
// fixtures, sparing every test from hand-indexing Utf8/Class entries.
type cpBuilder struct {
	pool []classfile.ConstantPoolEntry
}

func newCPBuilder() *cpBuilder {
	return &cpBuilder{pool: []classfile.ConstantPoolEntry{nil}}
}

func (b *cpBuilder) utf8(s string) uint16 {
	b.pool = append(b.pool, &classfile.ConstantUtf8{Value: s})
	return uint16(len(b.pool) - 1)
}

func (b *cpBuilder) class(name string) uint16 {
	b.pool = append(b.pool, &classfile.ConstantClass{NameIndex: b.utf8(name)})
	return uint16(len(b.pool) - 1)
}

type methodSpec struct {
	name       string
	descriptor string
	static     bool
	abstract   bool
}

type fieldSpec struct {
	name       string
	descriptor string
	static     bool
}

func buildClass(name, superName string, interfaces []string, fields []fieldSpec, methods []methodSpec, abstract, isInterface bool) *classfile.ClassFile {
	b := newCPBuilder()
	thisIdx := b.class(name)

	var superIdx uint16
	if superName != "" {
		superIdx = b.class(superName)
	}

	ifaceIdx := make([]uint16, len(interfaces))
	for i, n := range interfaces {
		ifaceIdx[i] = b.class(n)
	}

	var fieldInfos []classfile.FieldInfo
	for _, f := range fields {
		flags := uint16(0)
		if f.static {
			flags |= classfile.AccStatic
		}
		fieldInfos = append(fieldInfos, classfile.FieldInfo{AccessFlags: flags, Name: f.name, Descriptor: f.descriptor})
	}

	var methodInfos []classfile.MethodInfo
	for _, m := range methods {
		flags := uint16(0)
		if m.static {
			flags |= classfile.AccStatic
		}
		if m.abstract {
			flags |= classfile.AccAbstract
		}
		methodInfos = append(methodInfos, classfile.MethodInfo{AccessFlags: flags, Name: m.name, Descriptor: m.descriptor})
	}

	flags := uint16(0)
	if abstract {
		flags |= classfile.AccAbstract
	}
	if isInterface {
		flags |= classfile.AccInterface | classfile.AccAbstract
	}

	cf := &classfile.ClassFile{
		ConstantPool: b.pool,
		AccessFlags:  flags,
		ThisClass:    thisIdx,
		SuperClass:   superIdx,
		Fields:       fieldInfos,
		Methods:      methodInfos,
	}
	for _, idx := range ifaceIdx {
		cf.Interfaces = append(cf.Interfaces, idx)
	}
	return cf
}

// fakeLoader is an in-memory typeman.ClassFileLoader over a name-keyed
// map of pre-built ClassFiles, standing in for classfile.DirLoader in
// tests that don't want real .class files on disk.
type fakeLoader struct {
	classes map[string]*classfile.ClassFile
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{classes: make(map[string]*classfile.ClassFile)}
}

func (l *fakeLoader) add(cf *classfile.ClassFile) {
	name, err := cf.ClassName()
	if err != nil {
		panic(err)
	}
	l.classes[name] = cf
}

func (l *fakeLoader) Load(className string) (*classfile.ClassFile, error) {
	cf, ok := l.classes[className]
	if !ok {
		return nil, &notFoundError{className}
	}
	return cf, nil
}

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return "class not found: " + e.name }
