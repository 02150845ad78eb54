// Package services defines the shared error taxonomy and context plumbing
// used across pipeline components.
//
// Errors raised by stages and gates are wrapped with one of the exported
// sentinel markers so callers can classify failures without string matching.
// Gate outcomes (approve/rewrite/reject) are NOT errors; they travel as
// decision values. The sentinels here cover programmer and I/O failures plus
// the two terminal conditions that are modeled as errors on purpose: audit
// chain corruption and rewrite-loop exhaustion.
package services
