// Package interp is a small dynamic-language interpreter written in Go that
// implements the foreign runtime interfaces. It carries an n-dimensional
// array extension whose buffers live in a wazero linear memory.
//
// The interpreter exists so that the bridge can run and be tested without a
// system interpreter. It models what the bridge relies on:
//
//   - reference-counted objects addressed by handles
//   - a pending-error slot with an exception class hierarchy and tracebacks
//   - arbitrary precision integers
//   - arrays with shape, strides, views and a native iterator
//
// Modules installed at startup:
//
//	builtins        exception classes, float, int, len, str
//	sys             exit
//	traceback       extract_tb
//	numeric         array, asarray, zeros, arange, reshape, transpose, flip,
//	                sum, astype, tolist, dtype, element types, __version__
//	numeric.linalg  norm
//
// An Interpreter is not safe for concurrent use.
package interp
