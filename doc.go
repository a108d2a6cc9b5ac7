// Package ndbridge marshals values between Go and an embedded dynamic
// interpreter that carries a native n-dimensional array extension.
//
// # Architecture Overview
//
//	ndbridge/            Root package with Memory and Allocator interfaces
//	├── runtime/         Runtime, Session and the call invoker
//	├── transcoder/      Scalar codec, structured codec and type dispatcher
//	├── cursor/          Array cursor state machine over the foreign iterator
//	├── bridge/          Foreign exception translation with merged traces
//	├── ndarray/         Host wrapper for foreign array handles
//	├── handles/         One-time cache of foreign modules, types and classes
//	├── foreign/         Interfaces of the foreign runtime, ownership and lock
//	├── interp/          Pure Go reference interpreter, heap in wazero memory
//	├── dtype/           Supported element kinds
//	├── host/            Host-side value types (Char, Pair, Slice, None)
//	├── errors/          Structured error types
//	└── cmd/ndbridge/    Command line tool and interactive cursor explorer
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	norm, err := rt.Invoke(ctx, "linalg.norm",
//	    []any{[]float64{3, 4}}, map[string]any{"foo": 1})
//	fmt.Println(norm) // 5
//
// # Thread Safety
//
// The interpreter is single-threaded. Runtime serializes access with one
// interpreter lock; every foreign operation runs inside Runtime.Exec or a
// Runtime method that acquires the lock. The lock is not re-entrant, so a
// Session must never call back into Runtime.Exec.
//
// # Memory Model
//
// Array buffers live in the interpreter's linear memory. Host wrappers hold
// one foreign reference each and should be freed explicitly; the runtime
// releases collected wrappers and reports the rest at Close. Byte views
// returned by ndarray.Array.Bytes stay valid only while the array is alive
// and the memory has not grown.
package ndbridge
