package compliance

// Decision is a gate verdict.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionRewrite Decision = "REWRITE"
	DecisionReject  Decision = "REJECT"
)

// ReferenceType classifies how a cultural or IP artifact is being used.
type ReferenceType string

const (
	ReferenceLicensedDirect ReferenceType = "licensed_direct"
	ReferencePublicDomain   ReferenceType = "public_domain"
	ReferenceStyleOnly      ReferenceType = "style_only"
	ReferenceCommentary     ReferenceType = "commentary"
)

// Reference is a cultural/IP artifact considered for inclusion in generated
// content.
type Reference struct {
	Title        string        `json:"title"`
	Medium       string        `json:"medium"`
	Type         ReferenceType `json:"reference_type"`
	UsageMode    string        `json:"usage_mode"`
	BaselineRisk int           `json:"baseline_risk"`
}

// RightsDecision is the rights checker's verdict for one reference. Immutable
// once produced.
type RightsDecision struct {
	Decision            Decision `json:"decision"`
	Reason              string   `json:"reason"`
	RiskScore           int      `json:"risk_score"`
	RewriteInstructions string   `json:"rewrite_instructions,omitempty"`
	AuditID             string   `json:"audit_id,omitempty"`
}

// Status is the compliance state attached to scored references and packages.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRewrite  Status = "REWRITE"
	StatusRejected Status = "REJECTED"
)

// ScoredReference is the risk scorer's final word on one reference, derived
// deterministically from the reference and its rights decision.
type ScoredReference struct {
	Reference           Reference `json:"reference"`
	FinalRiskScore      int       `json:"final_risk_score"`
	AutoBlocked         bool      `json:"auto_blocked"`
	HumanReviewRequired bool      `json:"human_review_required"`
	ComplianceStatus    Status    `json:"compliance_status"`
	ComplianceReason    string    `json:"compliance_reason"`
	RewriteInstructions string    `json:"rewrite_instructions,omitempty"`
}

// PlatformPackage is a content unit pending QA for one target platform.
type PlatformPackage struct {
	Platform         string `json:"platform"`
	Caption          string `json:"caption"`
	Script           string `json:"script"`
	ContentHash      string `json:"content_hash"`
	ComplianceStatus Status `json:"compliance_status"`
	MediaRef         string `json:"media_ref"`
}

// CheckResult is one named QA check outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// QADecision is the ordered check list plus the aggregated verdict for one
// package.
type QADecision struct {
	Checks  []CheckResult `json:"checks"`
	Verdict Decision      `json:"verdict"`
	Reason  string        `json:"reason"`
}

// Passed counts passing checks.
func (d QADecision) Passed() int {
	count := 0
	for _, check := range d.Checks {
		if check.Passed {
			count++
		}
	}
	return count
}

// Failed counts failing checks.
func (d QADecision) Failed() int {
	return len(d.Checks) - d.Passed()
}
