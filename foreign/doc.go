// Package foreign describes the embedded interpreter as seen by the bridge.
//
// The interfaces are deliberately narrow: an object protocol, array scalar
// access, the pending-error slot, array metadata and native iterators. Any
// interpreter implementing Interpreter can back a runtime.Runtime; package
// interp provides a pure Go one.
//
// Reference ownership is explicit. A function returning a Handle hands out
// a new reference unless documented as borrowed. Ref and Scope make the
// ownership visible in code:
//
//	scope := foreign.NewScope(api)
//	defer scope.Release()
//	mod := scope.Own(api.Import("numeric"))
//	fn := scope.Own(api.GetAttr(mod, "sum"))
//
// All calls require the interpreter lock (GIL).
package foreign
