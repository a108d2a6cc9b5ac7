// Package cursor adapts a foreign array iterator into a resumable cursor.
//
// A Cursor is a small state machine over one iterator:
//
//	fresh ──Advance──▶ started ──Advance (exhausted)──▶ finished
//	  ▲                   │                                 │
//	  └───── Reset / Seek* / SetRange / RemoveAxis ─────────┘
//
// Finished is absorbing: only Reset, the Seek methods, SetRange and the
// structural mutations leave it. A cursor over an empty range starts out
// finished. Every iterator is created read-only with multi-index and C
// index tracking, whatever flags the caller passes.
//
// All methods require the interpreter lock. Misuse (past the end, missing
// capability, bad operand index) is reported as a host error directly;
// failures inside the iterator are translated by the exception bridge.
package cursor
