package main

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/jmccay-work/cfbc2wasm/funcmgr"
	"github.com/jmccay-work/cfbc2wasm/wasmtype"
)

// withInstanceAt appends a four-byte word holding vtableOffset to data and
// returns the grown slice together with the byte address the word landed
// at, standing in for an object whose only field any dispatch routine
// reads is its .vtable pointer.
func withInstanceAt(data []byte, vtableOffset int32) ([]byte, int32) {
	addr := int32(len(data))
	word := make([]byte, 4)
	binary.LittleEndian.PutUint32(word, uint32(vtableOffset))
	return append(data, word...), addr
}

// runDispatchRoutine executes the compiled replacement for routine against
// data (a snapshot of the real metadata image, optionally extended with a
// synthetic instance) through wazero, the same compile-then-execute path
// dispatch_wazero_test.go exercises in typeman's own tests.
func runDispatchRoutine(funcs *funcmgr.Manager, routine string, data []byte, args []int32) ([]uint64, error) {
	body, sig, ok := funcs.Replacement(routine)
	if !ok {
		return nil, fmt.Errorf("no replacement registered for %q", routine)
	}
	if len(args) != len(sig.Params) {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", routine, len(sig.Params), len(args))
	}

	mod := &wasmtype.Module{
		Types:    []wasmtype.FuncType{sig},
		Funcs:    []uint32{0},
		Code:     []wasmtype.FuncBody{body},
		Memories: []wasmtype.MemoryType{{Limits: wasmtype.Limits{Min: 1}}},
		Exports: []wasmtype.Export{
			{Name: routine, Kind: wasmtype.KindFunc, Idx: 0},
		},
	}
	if len(data) > 0 {
		mod.Data = append(mod.Data, wasmtype.DataSegment{
			Flags:  0,
			MemIdx: 0,
			Offset: []byte{0x41, 0x00, 0x0b}, // i32.const 0, end
			Init:   data,
		})
	}

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	instance, err := r.Instantiate(ctx, mod.Encode())
	if err != nil {
		return nil, fmt.Errorf("instantiating %s: %w", routine, err)
	}
	fn := instance.ExportedFunction(routine)
	if fn == nil {
		return nil, fmt.Errorf("%s export missing after instantiation", routine)
	}

	callArgs := make([]uint64, len(args))
	for i, a := range args {
		callArgs[i] = uint64(uint32(a))
	}
	return fn.Call(ctx, callArgs...)
}
