package compliance

import (
	"fmt"

	"presswork/internal/registry"
)

// Recommendation is the threshold policy outcome for a final risk score.
type Recommendation string

const (
	RecommendAutoBlock   Recommendation = "auto_block"
	RecommendHumanReview Recommendation = "human_review"
	RecommendAutoApprove Recommendation = "auto_approve"
)

const (
	basePublicDomain       = 5
	baseLicensedApproved   = 10
	baseLicensedUnapproved = 90
	baseStyleOnly          = 20
	baseCommentary         = 30

	penaltyUnknownReference = 30
	penaltyPerTrademark     = 5
	penaltyRewrite          = 10
)

// RiskScorer derives the final risk posture of a reference from its rights
// decision and the registry state. Like the rights checker it is
// deterministic: no I/O beyond the already-loaded registry.
type RiskScorer struct {
	registry             *registry.Registry
	autoBlockThreshold   int
	humanReviewThreshold int
}

// NewRiskScorer builds a scorer with the supplied thresholds.
func NewRiskScorer(reg *registry.Registry, autoBlockThreshold, humanReviewThreshold int) *RiskScorer {
	return &RiskScorer{
		registry:             reg,
		autoBlockThreshold:   autoBlockThreshold,
		humanReviewThreshold: humanReviewThreshold,
	}
}

// Score computes the final risk score and compliance status for one
// reference.
func (s *RiskScorer) Score(ref Reference, decision RightsDecision) ScoredReference {
	if decision.Decision == DecisionReject {
		return ScoredReference{
			Reference:        ref,
			FinalRiskScore:   100,
			AutoBlocked:      true,
			ComplianceStatus: StatusRejected,
			ComplianceReason: decision.Reason,
		}
	}

	score := s.baseScore(ref, decision)
	score += s.registryPenalty(ref)
	if decision.RiskScore > score {
		score = decision.RiskScore
	}
	if ref.BaselineRisk > score {
		score = ref.BaselineRisk
	}
	if decision.Decision == DecisionRewrite {
		score += penaltyRewrite
	}
	score = clamp(score)

	scored := ScoredReference{
		Reference:           ref,
		FinalRiskScore:      score,
		RewriteInstructions: decision.RewriteInstructions,
	}

	switch s.RecommendAction(score) {
	case RecommendAutoBlock:
		scored.AutoBlocked = true
		scored.ComplianceStatus = StatusRejected
		scored.ComplianceReason = fmt.Sprintf("risk score %d at or above auto-block threshold %d", score, s.autoBlockThreshold)
	case RecommendHumanReview:
		scored.HumanReviewRequired = true
		scored.ComplianceStatus = statusForDecision(decision.Decision)
		scored.ComplianceReason = fmt.Sprintf("risk score %d requires human review: %s", score, decision.Reason)
	default:
		scored.ComplianceStatus = statusForDecision(decision.Decision)
		scored.ComplianceReason = decision.Reason
	}
	return scored
}

// RecommendAction applies the threshold policy to a final risk score. The
// boundaries are inclusive: a score exactly at the auto-block threshold
// blocks, and a score exactly at the review threshold requires review.
func (s *RiskScorer) RecommendAction(score int) Recommendation {
	switch {
	case score >= s.autoBlockThreshold:
		return RecommendAutoBlock
	case score >= s.humanReviewThreshold:
		return RecommendHumanReview
	default:
		return RecommendAutoApprove
	}
}

func (s *RiskScorer) baseScore(ref Reference, decision RightsDecision) int {
	switch ref.Type {
	case ReferenceLicensedDirect:
		if decision.Decision == DecisionApprove {
			return baseLicensedApproved
		}
		return baseLicensedUnapproved
	case ReferencePublicDomain:
		return basePublicDomain
	case ReferenceStyleOnly:
		return baseStyleOnly
	case ReferenceCommentary:
		return baseCommentary
	default:
		return baseLicensedUnapproved
	}
}

func (s *RiskScorer) registryPenalty(ref Reference) int {
	record, ok := s.registry.Lookup(ref.Title)
	if !ok {
		return penaltyUnknownReference
	}
	return penaltyPerTrademark * len(record.TrademarkElements)
}

func statusForDecision(decision Decision) Status {
	switch decision {
	case DecisionApprove:
		return StatusApproved
	case DecisionRewrite:
		return StatusRewrite
	default:
		return StatusRejected
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
