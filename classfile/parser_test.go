package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildMinimalClass assembles the bytes of a .class file for a public
// class named className with no superclass, fields, or methods.
func buildMinimalClass(t *testing.T, className string) []byte {
	t.Helper()
	var buf bytes.Buffer

	w := func(v any) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatalf("writing %v: %v", v, err)
		}
	}

	w(uint32(classMagic))
	w(uint16(0))  // minor
	w(uint16(52)) // major (Java 8)

	w(uint16(3)) // constant_pool_count (2 entries, 1-indexed)
	w(uint8(TagUtf8))
	w(uint16(len(className)))
	buf.WriteString(className)
	w(uint8(TagClass))
	w(uint16(1)) // name_index -> #1

	w(uint16(AccPublic | AccSuper)) // access_flags
	w(uint16(2))                    // this_class -> #2
	w(uint16(0))                    // super_class
	w(uint16(0))                    // interfaces_count
	w(uint16(0))                    // fields_count
	w(uint16(0))                    // methods_count
	w(uint16(0))                    // attributes_count

	return buf.Bytes()
}

func TestParse_MinimalClass(t *testing.T) {
	data := buildMinimalClass(t, "com/example/Widget")

	cf, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cf.MajorVersion != 52 {
		t.Errorf("MajorVersion = %d, want 52", cf.MajorVersion)
	}

	name, err := cf.ClassName()
	if err != nil {
		t.Fatalf("ClassName: %v", err)
	}
	if name != "com/example/Widget" {
		t.Errorf("ClassName = %q, want com/example/Widget", name)
	}

	if cf.SuperClassName() != "" {
		t.Errorf("SuperClassName = %q, want empty (java/lang/Object)", cf.SuperClassName())
	}

	if cf.IsInterface() {
		t.Error("IsInterface = true, want false")
	}

	if len(cf.Fields) != 0 || len(cf.Methods) != 0 {
		t.Errorf("expected no fields or methods, got %d fields, %d methods", len(cf.Fields), len(cf.Methods))
	}
}

func TestParse_BadMagic(t *testing.T) {
	data := buildMinimalClass(t, "Foo")
	data[0] = 0x00 // corrupt the magic number

	if _, err := Parse(bytes.NewReader(data)); err == nil {
		t.Fatal("Parse: expected error for bad magic number, got nil")
	}
}

func TestGetClassName_InvalidIndex(t *testing.T) {
	pool := []ConstantPoolEntry{nil, &ConstantUtf8{Value: "Foo"}}
	if _, err := GetClassName(pool, 5); err == nil {
		t.Error("GetClassName: expected error for out-of-range index, got nil")
	}
}

func TestResolveMethodref(t *testing.T) {
	pool := []ConstantPoolEntry{
		nil,
		&ConstantUtf8{Value: "com/example/Widget"}, // 1
		&ConstantClass{NameIndex: 1},                // 2
		&ConstantUtf8{Value: "greet"},                // 3
		&ConstantUtf8{Value: "()V"},                  // 4
		&ConstantNameAndType{NameIndex: 3, DescriptorIndex: 4}, // 5
		&ConstantMethodref{ClassIndex: 2, NameAndTypeIndex: 5}, // 6
	}

	info, err := ResolveMethodref(pool, 6)
	if err != nil {
		t.Fatalf("ResolveMethodref: %v", err)
	}
	if info.ClassName != "com/example/Widget" || info.MethodName != "greet" || info.Descriptor != "()V" {
		t.Errorf("ResolveMethodref = %+v", info)
	}
}
