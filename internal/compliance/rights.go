package compliance

import (
	"fmt"
	"strings"
	"time"

	"presswork/internal/registry"
)

// Rights check risk scores. Rejection branches carry the risk the violation
// represents; approval branches carry the residual risk of the usage type.
const (
	riskLicensedApproved   = 10
	riskLicensedNoRecord   = 95
	riskLicensedExpired    = 90
	riskLicensedScope      = 85
	riskLicensedNoProof    = 80
	riskPublicApproved     = 5
	riskPublicNoRecord     = 60
	riskPublicWrongType    = 65
	riskPublicInactive     = 70
	riskStyleApproved      = 20
	riskStyleRewrite       = 65
	riskCommentaryApproved = 30
	riskCommentaryRewrite  = 55
	riskAutoBlock          = 100
)

// RightsChecker verifies references against the rights registry. Check is a
// pure function of (reference, registry state, clock): it performs no network
// or random calls, so identical inputs always produce identical decisions.
type RightsChecker struct {
	registry *registry.Registry
	now      func() time.Time
}

// NewRightsChecker builds a checker over the supplied registry.
func NewRightsChecker(reg *registry.Registry) *RightsChecker {
	return &RightsChecker{registry: reg, now: time.Now}
}

// NewRightsCheckerAt pins the clock, used for deterministic evaluation and in
// tests.
func NewRightsCheckerAt(reg *registry.Registry, now func() time.Time) *RightsChecker {
	return &RightsChecker{registry: reg, now: now}
}

// Check dispatches on the reference type and returns the rights verdict.
func (c *RightsChecker) Check(ref Reference) RightsDecision {
	switch ref.Type {
	case ReferenceLicensedDirect:
		return c.checkLicensedDirect(ref)
	case ReferencePublicDomain:
		return c.checkPublicDomain(ref)
	case ReferenceStyleOnly:
		return c.checkStyleOnly(ref)
	case ReferenceCommentary:
		return c.checkCommentary(ref)
	default:
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("unknown reference type %q for %q", ref.Type, ref.Title),
			RiskScore: riskAutoBlock,
		}
	}
}

func (c *RightsChecker) checkLicensedDirect(ref Reference) RightsDecision {
	record, ok := c.registry.Lookup(ref.Title)
	if !ok {
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("no registry record for licensed reference %q", ref.Title),
			RiskScore: riskLicensedNoRecord,
		}
	}
	if record.Status != "active" || record.Expired(c.now()) {
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("license for %q is not active or has expired", ref.Title),
			RiskScore: riskLicensedExpired,
		}
	}
	if !record.Scope.Commercial || !record.Scope.Social {
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("license for %q lacks commercial or social scope", ref.Title),
			RiskScore: riskLicensedScope,
		}
	}
	if strings.TrimSpace(record.ProofURL) == "" {
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("license for %q has no proof document on file", ref.Title),
			RiskScore: riskLicensedNoProof,
		}
	}
	return RightsDecision{
		Decision:  DecisionApprove,
		Reason:    fmt.Sprintf("active license with commercial and social scope for %q", ref.Title),
		RiskScore: riskLicensedApproved,
	}
}

func (c *RightsChecker) checkPublicDomain(ref Reference) RightsDecision {
	record, ok := c.registry.Lookup(ref.Title)
	if !ok {
		// Unconfirmed status is rejected, never assumed safe.
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("unconfirmed public domain rejected: no registry record for %q", ref.Title),
			RiskScore: riskPublicNoRecord,
		}
	}
	if record.Type != string(ReferencePublicDomain) {
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("registry lists %q as %s, not public domain", ref.Title, record.Type),
			RiskScore: riskPublicWrongType,
		}
	}
	if record.Status != "active" {
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("public domain record for %q has status %q, expected active", ref.Title, record.Status),
			RiskScore: riskPublicInactive,
		}
	}
	return RightsDecision{
		Decision:  DecisionApprove,
		Reason:    fmt.Sprintf("confirmed public domain record for %q", ref.Title),
		RiskScore: riskPublicApproved,
	}
}

func (c *RightsChecker) checkStyleOnly(ref Reference) RightsDecision {
	if record, ok := c.registry.Lookup(ref.Title); ok && record.AutoBlock {
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("registry auto-block flag set for %q", ref.Title),
			RiskScore: riskAutoBlock,
		}
	}
	matched := c.registry.MatchTrademarks(ref.Title, ref.UsageMode)
	if len(matched) > 0 {
		return RightsDecision{
			Decision:            DecisionRewrite,
			Reason:              fmt.Sprintf("style reference %q matches protected terms: %s", ref.Title, strings.Join(matched, ", ")),
			RiskScore:           riskStyleRewrite,
			RewriteInstructions: fmt.Sprintf("remove or replace the terms %s", strings.Join(matched, ", ")),
		}
	}
	return RightsDecision{
		Decision:  DecisionApprove,
		Reason:    fmt.Sprintf("no trademark or IP patterns matched for style reference %q", ref.Title),
		RiskScore: riskStyleApproved,
	}
}

func (c *RightsChecker) checkCommentary(ref Reference) RightsDecision {
	if record, ok := c.registry.Lookup(ref.Title); ok && record.AutoBlock {
		return RightsDecision{
			Decision:  DecisionReject,
			Reason:    fmt.Sprintf("registry auto-block flag set for %q", ref.Title),
			RiskScore: riskAutoBlock,
		}
	}
	matched := c.registry.MatchBlockedElements(ref.Title, ref.UsageMode)
	if len(matched) > 0 {
		return RightsDecision{
			Decision:            DecisionRewrite,
			Reason:              fmt.Sprintf("commentary on %q includes blocked elements: %s", ref.Title, strings.Join(matched, ", ")),
			RiskScore:           riskCommentaryRewrite,
			RewriteInstructions: fmt.Sprintf("drop the blocked elements %s", strings.Join(matched, ", ")),
		}
	}
	return RightsDecision{
		Decision:  DecisionApprove,
		Reason:    fmt.Sprintf("no blocked elements matched for commentary on %q", ref.Title),
		RiskScore: riskCommentaryApproved,
	}
}
