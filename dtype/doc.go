// Package dtype enumerates the array element kinds known to the bridge.
//
// Kind values follow the array extension's type numbering. The supported
// subset is closed: int8, int16, int32, int64, float32, float64, bool and
// char (one UTF-16 code unit). Every other kind is reported as "Unknown type"
// by byte-level operations.
package dtype
