// Package daemon owns the background process lifecycle. It claims pending
// runs from the store, hands them to the pipeline, and uses flock-based
// locking to prevent multiple daemon instances from working the same data
// directory.
package daemon
