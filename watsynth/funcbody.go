package watsynth

import (
	"fmt"

	"github.com/jmccay-work/cfbc2wasm/wasmtype"
)

// CompileFunctionBody compiles the body of a single function, given as WAT
// instruction text (no enclosing (func ...) form), into a wasmtype.FuncBody
// plus the wasmtype.FuncType its signature was assigned.
//
// This is the round trip DispatchSynthesizer relies on: callVirtual,
// callInterface, instanceof, and cast are each written as a WAT snippet and
// assembled by wrapping it in a throwaway module, compiling that module with
// Compile, and re-parsing the result with wasmtype.ParseModule to recover the
// FuncBody and its type, exactly as a user-authored function would be parsed.
func CompileFunctionBody(body string, params, results []wasmtype.ValType) (wasmtype.FuncBody, wasmtype.FuncType, error) {
	source := fmt.Sprintf("(module (func %s%s%s))", paramList(params), resultList(results), body)

	encoded, err := Compile(source)
	if err != nil {
		return wasmtype.FuncBody{}, wasmtype.FuncType{}, fmt.Errorf("compiling dispatch routine: %w", err)
	}

	mod, err := wasmtype.ParseModule(encoded)
	if err != nil {
		return wasmtype.FuncBody{}, wasmtype.FuncType{}, fmt.Errorf("reparsing dispatch routine: %w", err)
	}

	if len(mod.Code) != 1 {
		return wasmtype.FuncBody{}, wasmtype.FuncType{}, fmt.Errorf("expected exactly one function body, got %d", len(mod.Code))
	}

	ft := mod.GetFuncType(uint32(mod.NumImportedFuncs()))
	if ft == nil {
		return wasmtype.FuncBody{}, wasmtype.FuncType{}, fmt.Errorf("could not recover function type of dispatch routine")
	}

	return mod.Code[0], *ft, nil
}

func paramList(params []wasmtype.ValType) string {
	if len(params) == 0 {
		return ""
	}
	s := " (param"
	for _, p := range params {
		s += " " + p.String()
	}
	return s + ")"
}

func resultList(results []wasmtype.ValType) string {
	if len(results) == 0 {
		return ""
	}
	s := " (result"
	for _, r := range results {
		s += " " + r.String()
	}
	return s + ")"
}
