package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"presswork/internal/audit"
	"presswork/internal/config"
	"presswork/internal/logging"
	"presswork/internal/registry"
)

// Agent identifiers recorded in the audit ledger.
const (
	agentRightsChecker = "rights_checker"
	agentRiskScorer    = "risk_scorer"
	agentQAChecker     = "qa_checker"
)

// GateResult aggregates per-reference outcomes into one rights-gate verdict.
type GateResult struct {
	Scored              []ScoredReference
	Verdict             Decision
	Reason              string
	RewriteInstructions string
}

// Gate composes the rights checker, risk scorer, and QA checker into the
// decision pipeline the state machine consults, recording every decision in
// the audit ledger before returning it.
type Gate struct {
	rights   *RightsChecker
	scorer   *RiskScorer
	qa       *QAChecker
	auditLog *audit.Log
	logger   *slog.Logger
}

// NewGate wires the gate from configuration and collaborators.
func NewGate(cfg *config.Config, reg *registry.Registry, published PublishedIndex, auditLog *audit.Log, logger *slog.Logger) *Gate {
	return &Gate{
		rights:   NewRightsChecker(reg),
		scorer:   NewRiskScorer(reg, cfg.Compliance.AutoBlockThreshold, cfg.Compliance.HumanReviewThreshold),
		qa:       NewQAChecker(cfg.Compliance.DisclosureTag, published),
		auditLog: auditLog,
		logger:   logging.NewComponentLogger(logger, "compliance_gate"),
	}
}

// EvaluateReference runs rights verification and risk scoring for one
// reference. Both decisions are audited; the returned scored reference
// carries the final compliance status.
func (g *Gate) EvaluateReference(ctx context.Context, sessionID string, ref Reference) (ScoredReference, error) {
	decision := g.rights.Check(ref)

	event, err := g.auditLog.Record(ctx, audit.Entry{
		AgentID:   agentRightsChecker,
		Action:    "rights_check",
		Decision:  string(decision.Decision),
		Reason:    decision.Reason,
		Input:     ref,
		Output:    decision,
		SessionID: sessionID,
	})
	if err != nil {
		return ScoredReference{}, err
	}
	decision.AuditID = event.ID

	scored := g.scorer.Score(ref, decision)
	if _, err := g.auditLog.Record(ctx, audit.Entry{
		AgentID:   agentRiskScorer,
		Action:    "risk_score",
		Decision:  string(scored.ComplianceStatus),
		Reason:    fmt.Sprintf("final risk %d (auto_blocked=%t, human_review=%t)", scored.FinalRiskScore, scored.AutoBlocked, scored.HumanReviewRequired),
		Input:     decision,
		Output:    scored,
		SessionID: sessionID,
	}); err != nil {
		return ScoredReference{}, err
	}

	g.logger.Info("reference evaluated",
		logging.String("reference", ref.Title),
		logging.String("reference_type", string(ref.Type)),
		logging.String(logging.FieldDecision, string(scored.ComplianceStatus)),
		logging.Int("risk_score", scored.FinalRiskScore),
	)
	return scored, nil
}

// EvaluateReferences evaluates every reference and aggregates a single gate
// verdict: any rejection rejects the run, otherwise any rewrite requests one,
// otherwise the gate approves.
func (g *Gate) EvaluateReferences(ctx context.Context, sessionID string, refs []Reference) (GateResult, error) {
	result := GateResult{Verdict: DecisionApprove, Reason: "no references to clear"}
	if len(refs) == 0 {
		return result, nil
	}

	var rewriteReasons, rewriteInstructions []string
	for _, ref := range refs {
		scored, err := g.EvaluateReference(ctx, sessionID, ref)
		if err != nil {
			return GateResult{}, err
		}
		result.Scored = append(result.Scored, scored)

		switch scored.ComplianceStatus {
		case StatusRejected:
			result.Verdict = DecisionReject
			result.Reason = scored.ComplianceReason
			// A rejection is terminal for the whole set; keep scoring
			// the remaining references so the audit trail is complete.
		case StatusRewrite:
			rewriteReasons = append(rewriteReasons, scored.ComplianceReason)
			if scored.RewriteInstructions != "" {
				rewriteInstructions = append(rewriteInstructions, scored.RewriteInstructions)
			}
		}
	}

	if result.Verdict == DecisionReject {
		return result, nil
	}
	if len(rewriteReasons) > 0 {
		result.Verdict = DecisionRewrite
		result.Reason = strings.Join(rewriteReasons, "; ")
		result.RewriteInstructions = strings.Join(rewriteInstructions, "; ")
		return result, nil
	}
	result.Reason = fmt.Sprintf("all %d references cleared", len(refs))
	return result, nil
}

// ReviewPackage runs the QA checks for one platform package and audits the
// outcome with pass/fail counts.
func (g *Gate) ReviewPackage(ctx context.Context, sessionID string, pkg PlatformPackage) (QADecision, error) {
	decision, err := g.qa.Check(ctx, pkg)
	if err != nil {
		return QADecision{}, err
	}

	if _, err := g.auditLog.Record(ctx, audit.Entry{
		AgentID:   agentQAChecker,
		Action:    "qa_check",
		Decision:  string(decision.Verdict),
		Reason:    fmt.Sprintf("%s (%d passed, %d failed)", decision.Reason, decision.Passed(), decision.Failed()),
		Input:     pkg,
		Output:    decision,
		SessionID: sessionID,
	}); err != nil {
		return QADecision{}, err
	}

	g.logger.Info("package reviewed",
		logging.String("platform", pkg.Platform),
		logging.String(logging.FieldDecision, string(decision.Verdict)),
		logging.Int("checks_passed", decision.Passed()),
		logging.Int("checks_failed", decision.Failed()),
	)
	return decision, nil
}
