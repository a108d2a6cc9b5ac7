// Package bridge turns pending foreign errors into host errors.
//
// Translate inspects the interpreter's error slot. When an error is pending
// it is fetched, and an *errors.Error is built with the message
// "<type>: <message>" and a trace that lists the foreign frames closest
// failure first, followed by the host frames of the translating goroutine.
// A pending SystemExit is not translated: its code is reported and the
// configured exit hook runs.
//
// Failures while building the translation are escalated as KindFatal
// errors. The foreign references taken during translation are always
// released.
package bridge
