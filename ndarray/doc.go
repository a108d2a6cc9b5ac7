// Package ndarray wraps foreign arrays for the host.
//
// An Array holds exactly one foreign reference, taken when it is wrapped,
// and a snapshot of the array's metadata. The reference is only given back
// by Free or FreeHeld, or by the collection-time cleanup when the factory
// has auto-free enabled. A Tracker keeps weak pointers to every wrapper a Factory created so that
// unreleased references can be reported without keeping wrappers alive.
//
// Bytes exposes the array's buffer as a zero-copy View over the
// interpreter's linear memory. A View is valid until the array is freed or
// the memory grows; growth makes View.Stale true and View.Check fail with a
// state error, after which Bytes must be called again.
package ndarray
