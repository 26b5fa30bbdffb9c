package typeman

import (
	"testing"

	"github.com/jmccay-work/cfbc2wasm/funcmgr"
	"github.com/jmccay-work/cfbc2wasm/wasmtype"
)

func TestDispatchSynthesizerRegistersAllFourRoutines(t *testing.T) {
	funcs := funcmgr.New(0)
	s := NewDispatchSynthesizer(funcs)

	cases := []struct {
		name    string
		build   func() error
		nParams int
		nResult int
	}{
		{"callVirtual", s.CallVirtual, 2, 1},
		{"callInterface", s.CallInterface, 3, 1},
		{"instanceof", s.InstanceOf, 2, 1},
		{"cast", s.Cast, 2, 1},
	}

	for _, c := range cases {
		if err := c.build(); err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		body, sig, ok := funcs.Replacement(c.name)
		if !ok {
			t.Fatalf("%s: no replacement registered", c.name)
		}
		if len(sig.Params) != c.nParams {
			t.Errorf("%s: params = %v, want %d", c.name, sig.Params, c.nParams)
		}
		if len(sig.Results) != c.nResult {
			t.Errorf("%s: results = %v, want %d", c.name, sig.Results, c.nResult)
		}
		if len(body.Code) == 0 {
			t.Errorf("%s: compiled body has no code", c.name)
		}
		if !funcs.IsUsed(c.name) {
			t.Errorf("%s: registering a replacement should mark it used", c.name)
		}
	}
}

func TestCallVirtualSignatureIsInt32InInt32OutInt32(t *testing.T) {
	funcs := funcmgr.New(0)
	s := NewDispatchSynthesizer(funcs)
	if err := s.CallVirtual(); err != nil {
		t.Fatal(err)
	}
	_, sig, _ := funcs.Replacement("callVirtual")
	want := []wasmtype.ValType{wasmtype.ValI32, wasmtype.ValI32}
	for i, p := range want {
		if sig.Params[i] != p {
			t.Errorf("param[%d] = %v, want %v", i, sig.Params[i], p)
		}
	}
	if sig.Results[0] != wasmtype.ValI32 {
		t.Errorf("result = %v, want i32", sig.Results[0])
	}
}
