// Package audit implements the append-only, hash-chained decision ledger.
//
// Every gate decision and terminal pipeline transition passes through the
// ledger. Events are immutable once appended: each event carries the hash of
// its predecessor, so VerifyChainIntegrity can prove after the fact that no
// event was altered or deleted. Raw stage payloads are never stored; only
// SHA-256 digests of their canonical JSON encoding, which keeps secrets out
// of the ledger while still binding each event to the data it judged.
//
// The append path (read last hash, compute new hash, insert) is a critical
// section. Log serializes it with a mutex so multiple pipeline runs can share
// one ledger without breaking the chain.
package audit
