package typeman

import (
	"fmt"

	"github.com/jmccay-work/cfbc2wasm/funcmgr"
	"github.com/jmccay-work/cfbc2wasm/wasmtype"
	"github.com/jmccay-work/cfbc2wasm/watsynth"
)

// DispatchSynthesizer is C6: produces the four synthetic routines that
// implement dynamic dispatch and subtype testing, registering each with
// funcmgr as the replacement for the CFBC-level primitive of the same
// role (spec §4.3, §6.3).
//
// Instances are addressed as i32 byte offsets into linear memory (§2.5
// of the expanded design); every routine below is therefore a sequence
// of i32.load/i32.add operations rather than struct.get.
type DispatchSynthesizer struct {
	funcs *funcmgr.Manager
}

// NewDispatchSynthesizer creates a synthesizer that registers routines
// with funcs.
func NewDispatchSynthesizer(funcs *funcmgr.Manager) *DispatchSynthesizer {
	return &DispatchSynthesizer{funcs: funcs}
}

// CallVirtual builds callVirtual(this, vFuncIndex) -> functionIndex: load
// the v-table pointer from this's first field, add vFuncIndex as a byte
// offset, and load the 4-byte function index found there.
func (s *DispatchSynthesizer) CallVirtual() error {
	body := `
		local.get 0
		i32.load offset=0 align=4
		local.get 1
		i32.add
		i32.load offset=0 align=4
		return
	`
	return s.compileAndRegister("callVirtual", body,
		[]wasmtype.ValType{wasmtype.ValI32, wasmtype.ValI32},
		[]wasmtype.ValType{wasmtype.ValI32})
}

// CallInterface builds callInterface(this, classIndex, vFuncIndex) ->
// functionIndex: walks the linked list of i-table blocks starting at
// this.vtable + INTERFACE_OFFSET, matching on block class index.
func (s *DispatchSynthesizer) CallInterface() error {
	body := fmt.Sprintf(`
		(local i32 i32)
		local.get 0
		i32.load offset=0 align=4
		local.tee 3
		i32.load offset=%d align=4
		local.get 3
		i32.add
		local.set 3
		loop
			local.get 3
			i32.load offset=0 align=4
			local.tee 4
			local.get 1
			i32.eq
			if
				local.get 3
				local.get 2
				i32.add
				i32.load offset=0 align=4
				return
			end
			local.get 4
			i32.eqz
			if
				unreachable
			end
			local.get 3
			i32.const 4
			i32.add
			i32.load offset=0 align=4
			local.get 3
			i32.add
			local.set 3
			br 0
		end
		unreachable
	`, InterfaceOffset)
	return s.compileAndRegister("callInterface", body,
		[]wasmtype.ValType{wasmtype.ValI32, wasmtype.ValI32, wasmtype.ValI32},
		[]wasmtype.ValType{wasmtype.ValI32})
}

// InstanceOf builds instanceof(this, classIndex) -> {0,1}: a null this
// is never an instance of anything; otherwise scans the instanceof list
// located at this.vtable + INSTANCEOF_OFFSET for classIndex.
func (s *DispatchSynthesizer) InstanceOf() error {
	body := fmt.Sprintf(`
		(local i32 i32)
		local.get 0
		i32.eqz
		if
			i32.const 0
			return
		end
		local.get 0
		i32.load offset=0 align=4
		local.tee 2
		i32.load offset=%d align=4
		local.get 2
		i32.add
		local.tee 2
		i32.load offset=0 align=4
		i32.const 4
		i32.mul
		local.get 2
		i32.add
		local.set 3
		loop
			local.get 2
			local.get 3
			i32.eq
			if
				i32.const 0
				return
			end
			local.get 2
			i32.const 4
			i32.add
			local.tee 2
			i32.load offset=0 align=4
			local.get 1
			i32.ne
			br_if 0
		end
		i32.const 1
		return
	`, InstanceofOffset)
	return s.compileAndRegister("instanceof", body,
		[]wasmtype.ValType{wasmtype.ValI32, wasmtype.ValI32},
		[]wasmtype.ValType{wasmtype.ValI32})
}

// Cast builds cast(this, classIndex) -> this: a null this passes through
// unchanged; otherwise re-runs the instanceof scan and traps on mismatch
// (the CFBC-level ClassCastException has no WASM equivalent without
// exception-handling support, so this routine traps instead).
//
// The scan is inlined rather than expressed as a call to the compiled
// instanceof routine: CompileFunctionBody compiles each routine inside
// its own throwaway single-function module (§4.3's "re-parsed by the
// same parser"), so a genuine cross-function call here would encode a
// call to function index 0 of that throwaway module — itself — rather
// than to the real instanceof routine, which only has an index of its own
// in the final module; this package registers the bodies with funcmgr
// and splices neither of them into a module itself. Duplicating a dozen
// instructions avoids inventing a post-splice call-index patching step
// for a single caller.
func (s *DispatchSynthesizer) Cast() error {
	body := fmt.Sprintf(`
		(local i32 i32)
		local.get 0
		i32.eqz
		if
			local.get 0
			return
		end
		local.get 0
		i32.load offset=0 align=4
		local.tee 2
		i32.load offset=%d align=4
		local.get 2
		i32.add
		local.tee 2
		i32.load offset=0 align=4
		i32.const 4
		i32.mul
		local.get 2
		i32.add
		local.set 3
		loop
			local.get 2
			local.get 3
			i32.eq
			if
				unreachable
			end
			local.get 2
			i32.const 4
			i32.add
			local.tee 2
			i32.load offset=0 align=4
			local.get 1
			i32.ne
			br_if 0
		end
		local.get 0
		return
	`, InstanceofOffset)
	return s.compileAndRegister("cast", body,
		[]wasmtype.ValType{wasmtype.ValI32, wasmtype.ValI32},
		[]wasmtype.ValType{wasmtype.ValI32})
}

func (s *DispatchSynthesizer) compileAndRegister(name, body string, params, results []wasmtype.ValType) error {
	fb, ft, err := watsynth.CompileFunctionBody(body, params, results)
	if err != nil {
		return fmt.Errorf("synthesizing %s: %w", name, err)
	}
	s.funcs.RegisterReplacement(name, fb, ft)
	return nil
}
