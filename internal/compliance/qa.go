package compliance

import (
	"context"
	"fmt"
	"strings"

	"presswork/internal/services"
)

// QA check names, in the order they run.
const (
	CheckComplianceStatus = "compliance_status"
	CheckDisclosure       = "disclosure"
	CheckUniqueContent    = "unique_content"
	CheckCompleteness     = "completeness"
	CheckContentHash      = "content_hash"
)

// minCaptionLength is the shortest caption considered non-trivial.
const minCaptionLength = 10

// PublishedIndex answers whether a content hash has already been published on
// a platform.
type PublishedIndex interface {
	IsPublished(ctx context.Context, platform, contentHash string) (bool, error)
}

// QAChecker runs the pre-publish checks against one platform package.
type QAChecker struct {
	disclosureTag string
	published     PublishedIndex
}

// NewQAChecker builds a checker. disclosureTag is the marker every caption
// must carry; published backs the duplicate-content check.
func NewQAChecker(disclosureTag string, published PublishedIndex) *QAChecker {
	return &QAChecker{disclosureTag: disclosureTag, published: published}
}

// Check runs all five checks and aggregates the verdict. Checks always all
// run; a failing check never short-circuits the rest, so the decision records
// the complete picture.
func (q *QAChecker) Check(ctx context.Context, pkg PlatformPackage) (QADecision, error) {
	var checks []CheckResult

	checks = append(checks, q.checkComplianceStatus(pkg))
	checks = append(checks, q.checkDisclosure(pkg))

	unique, err := q.checkUniqueContent(ctx, pkg)
	if err != nil {
		return QADecision{}, err
	}
	checks = append(checks, unique)

	checks = append(checks, q.checkCompleteness(pkg))
	checks = append(checks, q.checkContentHash(pkg))

	return finalize(checks), nil
}

// finalize aggregates check results into a verdict: all pass means APPROVE;
// if the disclosure check is the only failure the package is recoverable and
// gets REWRITE; any other failure is REJECT.
func finalize(checks []CheckResult) QADecision {
	var failing []CheckResult
	for _, check := range checks {
		if !check.Passed {
			failing = append(failing, check)
		}
	}

	decision := QADecision{Checks: checks}
	switch {
	case len(failing) == 0:
		decision.Verdict = DecisionApprove
		decision.Reason = "all QA checks passed"
	case onlyDisclosureFailed(failing):
		decision.Verdict = DecisionRewrite
		decision.Reason = "disclosure marker missing; caption can be rewritten with the marker inserted"
	default:
		names := make([]string, 0, len(failing))
		for _, check := range failing {
			names = append(names, check.Name)
		}
		decision.Verdict = DecisionReject
		decision.Reason = fmt.Sprintf("QA checks failed: %s", strings.Join(names, ", "))
	}
	return decision
}

func onlyDisclosureFailed(failing []CheckResult) bool {
	for _, check := range failing {
		if check.Name != CheckDisclosure {
			return false
		}
	}
	return len(failing) > 0
}

func (q *QAChecker) checkComplianceStatus(pkg PlatformPackage) CheckResult {
	result := CheckResult{Name: CheckComplianceStatus, Passed: pkg.ComplianceStatus == StatusApproved}
	if !result.Passed {
		result.Detail = fmt.Sprintf("compliance status is %s, expected %s", pkg.ComplianceStatus, StatusApproved)
	}
	return result
}

func (q *QAChecker) checkDisclosure(pkg PlatformPackage) CheckResult {
	result := CheckResult{
		Name:   CheckDisclosure,
		Passed: strings.Contains(strings.ToLower(pkg.Caption), strings.ToLower(q.disclosureTag)),
	}
	if !result.Passed {
		result.Detail = fmt.Sprintf("caption lacks disclosure marker %q", q.disclosureTag)
	}
	return result
}

func (q *QAChecker) checkUniqueContent(ctx context.Context, pkg PlatformPackage) (CheckResult, error) {
	if pkg.ContentHash == "" {
		// The content_hash check reports the missing hash; treat it as
		// unique here rather than failing two checks for one cause.
		return CheckResult{Name: CheckUniqueContent, Passed: true}, nil
	}
	published, err := q.published.IsPublished(ctx, pkg.Platform, pkg.ContentHash)
	if err != nil {
		return CheckResult{}, services.Wrap(services.ErrTransient, "qa", "duplicate lookup", "published-content index unavailable", err)
	}
	result := CheckResult{Name: CheckUniqueContent, Passed: !published}
	if published {
		result.Detail = fmt.Sprintf("content hash already published on %s", pkg.Platform)
	}
	return result, nil
}

func (q *QAChecker) checkCompleteness(pkg PlatformPackage) CheckResult {
	caption := strings.TrimSpace(pkg.Caption)
	result := CheckResult{
		Name:   CheckCompleteness,
		Passed: len(caption) >= minCaptionLength && strings.TrimSpace(pkg.MediaRef) != "",
	}
	if !result.Passed {
		result.Detail = "package needs a non-trivial caption and a media reference"
	}
	return result
}

func (q *QAChecker) checkContentHash(pkg PlatformPackage) CheckResult {
	result := CheckResult{Name: CheckContentHash, Passed: strings.TrimSpace(pkg.ContentHash) != ""}
	if !result.Passed {
		result.Detail = "content hash is empty"
	}
	return result
}
