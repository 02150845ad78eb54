// Package compliance implements the deterministic gating protocol that
// decides whether generated content may proceed: rights verification against
// the registry, numeric risk scoring with auto-block and human-review
// thresholds, and the pre-publish QA checks.
//
// Gate outcomes are decision values (APPROVE, REWRITE, REJECT), never errors.
// The rights checker is a pure function of its inputs: the same reference and
// registry state always yields the same decision, reason, and risk score. All
// decisions are recorded in the audit ledger before they are acted on.
package compliance
