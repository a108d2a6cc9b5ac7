// Package host defines the Go-side value types that have no direct Go
// builtin counterpart: a single UTF-16 code unit, a pair, a slice triple and
// the none sentinel.
package host
