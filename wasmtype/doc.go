// Package wasmtype provides WebAssembly binary format parsing and encoding.
//
// This package implements a complete parser and encoder for WebAssembly
// binary modules according to the WebAssembly 2.0 specification, with
// support for several post-2.0 proposals.
//
// # Supported Features
//
//	WebAssembly 2.0:
//	  - Core value types (i32, i64, f32, f64)
//	  - Functions, tables, memories, globals
//	  - Control flow, calls, local/global access
//	  - Memory and table operations
//	  - Import/export of all definitions
//
//	Post-2.0 Proposals:
//	  - GC (structs, arrays, typed references, heap types)
//	  - Exception handling (tags, try/catch, throw)
//	  - Tail calls (return_call, return_call_indirect)
//	  - SIMD (128-bit vector operations, v128 type)
//	  - Threads (atomic operations, shared memory)
//	  - Bulk memory (memory.copy, memory.fill, data.drop)
//	  - Reference types (funcref, externref, ref.null, ref.is_null)
//	  - Multi-memory (multiple memory instances)
//	  - Memory64 (64-bit memory addressing)
//
// # Parsing
//
// Parse a WebAssembly module from binary:
//
//	data, _ := os.ReadFile("module.wasm")
//	module, err := wasmtype.ParseModule(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Encoding
//
// Encode a module back to binary:
//
//	encoded := module.Encode()
//
// Round-trip parsing and encoding preserves module semantics:
//
//	original, _ := wasmtype.ParseModule(data)
//	roundtrip, _ := wasmtype.ParseModule(original.Encode())
//	// original and roundtrip are semantically equivalent
//
// # Module Structure
//
// A parsed module contains all sections:
//
//	module.Types      []FuncType    // Function signatures
//	module.Funcs      []uint32      // Type indices for functions
//	module.Tables     []TableType   // Table definitions
//	module.Memories   []MemoryType  // Memory definitions
//	module.Globals    []Global      // Global definitions
//	module.Imports    []Import      // Imported definitions
//	module.Exports    []Export      // Exported definitions
//	module.Code       []FuncBody    // Function bodies
//	module.Data       []DataSegment // Data segments
//	module.Elements   []Element     // Element segments
//
// # Instructions
//
// Decode instructions from bytecode:
//
//	instructions, err := wasmtype.DecodeInstructions(code)
//	for _, instr := range instructions {
//	    fmt.Printf("%#x\n", instr.Opcode)
//	}
//
// Encode instructions back to bytecode:
//
//	encoded := wasmtype.EncodeInstructions(instructions)
//
// # Validation
//
// The package has no separate validation pass. ParseModule checks only
// what it needs while reading: the magic number and version, section
// order, known section IDs and import/export kinds, element and data
// segment flags, and that limits have min <= max.
//
// # LEB128 Encoding
//
// The package provides LEB128 utilities used throughout; the readers
// take an io.ByteReader:
//
//	n, err := wasmtype.ReadLEB128u(r)  // Unsigned
//	v, err := wasmtype.ReadLEB128s(r)  // Signed
package wasmtype
