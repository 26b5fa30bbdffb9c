package typeman

import "testing"

func TestLambdaTypeIsIdempotentByCallSite(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("java/util/function/Supplier", "", nil, nil,
		[]methodSpec{{name: "get", descriptor: "()Ljava/lang/Object;"}}, false, true))

	registry := NewTypeRegistry(loader)

	a, err := registry.LambdaType("test/Main", "lambda$main$0", "()V", "(I)Ljava/util/function/Supplier;", "get")
	if err != nil {
		t.Fatal(err)
	}
	b, err := registry.LambdaType("test/Main", "lambda$main$0", "()V", "(I)Ljava/util/function/Supplier;", "get")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("LambdaType should be idempotent for the same call site")
	}
	if a.Kind != KindLambda {
		t.Errorf("kind = %v, want KindLambda", a.Kind)
	}
	if len(a.ParamFields) != 1 {
		t.Fatalf("param fields = %v, want one captured int", a.ParamFields)
	}
	if a.ParamFields[0].ValueType.Code != wasmI32 {
		t.Errorf("captured param type = %#x, want i32", a.ParamFields[0].ValueType.Code)
	}
	if a.InterfaceType == nil || a.InterfaceType.Name != "java/util/function/Supplier" {
		t.Errorf("interface type = %v, want java/util/function/Supplier", a.InterfaceType)
	}
}

func TestLambdaTypeDistinctCallSitesAreDistinctDescriptors(t *testing.T) {
	loader := newFakeLoader()
	loader.add(buildClass("java/util/function/Supplier", "", nil, nil,
		[]methodSpec{{name: "get", descriptor: "()Ljava/lang/Object;"}}, false, true))

	registry := NewTypeRegistry(loader)

	a, err := registry.LambdaType("test/Main", "lambda$main$0", "()V", "()Ljava/util/function/Supplier;", "get")
	if err != nil {
		t.Fatal(err)
	}
	b, err := registry.LambdaType("test/Main", "lambda$main$0", "()V", "(I)Ljava/util/function/Supplier;", "get")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two call sites sharing owner+impl name but distinct factory signatures must get distinct descriptors")
	}
}

func TestSplitMethodDescriptor(t *testing.T) {
	params, ret, err := splitMethodDescriptor("(ILjava/lang/String;[I)Ljava/util/function/Supplier;")
	if err != nil {
		t.Fatal(err)
	}
	wantParams := []string{"I", "Ljava/lang/String;", "[I"}
	if len(params) != len(wantParams) {
		t.Fatalf("params = %v, want %v", params, wantParams)
	}
	for i := range wantParams {
		if params[i] != wantParams[i] {
			t.Errorf("params[%d] = %q, want %q", i, params[i], wantParams[i])
		}
	}
	if ret != "Ljava/util/function/Supplier;" {
		t.Errorf("ret = %q, want Ljava/util/function/Supplier;", ret)
	}
}

func TestLambdaTypeRejectsNonObjectReturn(t *testing.T) {
	registry := NewTypeRegistry(newFakeLoader())
	_, err := registry.LambdaType("test/Main", "lambda$main$0", "()V", "()I", "get")
	if err == nil {
		t.Fatal("expected an error for a factory signature that does not return an object type")
	}
}
