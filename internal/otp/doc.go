// Package otp reconciles per-cell edit events into a single one-time-password value.
//
// # Model
//
// An OTP field is drawn as N independent single-character cells, but it behaves as
// one logical input. The host view layer forwards every platform edit callback to a
// Reconciler and never inserts characters itself:
//
//	cell[i] edit callback ──► Reconciler.HandleEdit(i, replacement, existingLen)
//	                                 │
//	               ┌─────────────────┼───────────────────┐
//	               ▼                 ▼                   ▼
//	         keystroke          bulk fill           autofill burst
//	        (1 character)     (N characters)     (buffered 1-char deliveries)
//	               │                 │                   │
//	               └──────► cells + focus ◄──────────────┘
//	                                 │
//	                  OnFocusChange / OnComplete (once per fill episode)
//
// # Provenance
//
// Platform SMS autofill on some systems announces itself with a pair of empty-string
// deliveries in quick succession, followed by the code one character at a time. Two
// empty deliveries closer than BurstGap switch the reconciler into burst mode, where
// single characters are buffered instead of placed. The buffer is flushed into the
// cells once it holds N characters, and dropped if it stalls for AbandonDelay.
//
// Full-length replacements (paste, accepted clipboard suggestions) bypass both paths
// and fill every cell at once.
//
// # Threading
//
// A Reconciler is not safe for concurrent use. All calls, and all timer callbacks it
// schedules, must run on one goroutine. Loop provides that goroutine for hosts that
// do not already have a UI thread, and LoopScheduler routes timers back onto it.
package otp
