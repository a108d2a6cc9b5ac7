// Package handles caches the foreign objects the bridge uses on every call.
//
// Load resolves the array extension's root module, its dtype function and
// element type objects, the exception classes the bridge raises or matches,
// and traceback.extract_tb. It also checks the extension's __version__
// against a semver constraint. The Table is read-only after Load and must be
// torn down with Release before the interpreter is closed.
//
// Load and Release require the interpreter lock.
package handles
