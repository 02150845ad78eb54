package agents

import "presswork/internal/compliance"

// Agent identifiers used for supervision and audit attribution.
const (
	AgentIntake          = "intake_agent"
	AgentTopicAnalysis   = "topic_analysis"
	AgentAudienceProfile = "audience_profile"
	AgentTrendScan       = "trend_scan"
	AgentReferenceMapper = "reference_mapper"
	AgentScriptWriter    = "script_writer"
	AgentCaptioner       = "captioner"
	AgentPackager        = "packager"
)

// IntakeRequest is the trigger input handed to the intake agent.
type IntakeRequest struct {
	ProductRef      string            `json:"product_ref"`
	TargetPlatforms []string          `json:"target_platforms"`
	SourceData      map[string]string `json:"source_data"`
}

// IntakeResult is the validated, normalized trigger.
type IntakeResult struct {
	ProductRef string   `json:"product_ref"`
	Platforms  []string `json:"platforms"`
	Brief      string   `json:"brief"`
}

// EnrichmentResult joins the independent analysis outputs.
type EnrichmentResult struct {
	Topics    []string `json:"topics"`
	Audience  string   `json:"audience"`
	Keywords  []string `json:"keywords"`
	TrendNote string   `json:"trend_note"`
}

// ReferenceMappingRequest asks the mapper to extract references from the
// source material. RewriteInstructions is non-empty on rights rewrite passes
// and names the terms or elements to remove.
type ReferenceMappingRequest struct {
	SourceData          map[string]string `json:"source_data"`
	Enrichment          EnrichmentResult  `json:"enrichment"`
	RewriteInstructions string            `json:"rewrite_instructions,omitempty"`
}

// ReferenceMappingResult lists the references proposed for inclusion.
type ReferenceMappingResult struct {
	References []compliance.Reference `json:"references"`
}

// ScriptRequest asks the writer for the run's master script.
type ScriptRequest struct {
	ProductRef string                 `json:"product_ref"`
	Enrichment EnrichmentResult       `json:"enrichment"`
	References []compliance.Reference `json:"references"`
}

// ScriptResult is the master script shared by all platform packages.
type ScriptResult struct {
	Hook   string `json:"hook"`
	Script string `json:"script"`
}

// CaptionRequest asks the captioner for one platform's caption. On QA rewrite
// passes InsertDisclosure is set and the captioner must include the
// disclosure tag.
type CaptionRequest struct {
	Platform         string   `json:"platform"`
	Hook             string   `json:"hook"`
	Keywords         []string `json:"keywords"`
	DisclosureTag    string   `json:"disclosure_tag"`
	InsertDisclosure bool     `json:"insert_disclosure"`
}

// CaptionResult is the platform caption.
type CaptionResult struct {
	Caption string `json:"caption"`
}

// PackageRequest asks the packager to assemble one platform package. An empty
// MediaRef lets the packager derive the render output path for the platform.
type PackageRequest struct {
	Platform         string            `json:"platform"`
	Caption          string            `json:"caption"`
	Script           string            `json:"script"`
	MediaRef         string            `json:"media_ref,omitempty"`
	ComplianceStatus compliance.Status `json:"compliance_status"`
}

// PackageResult wraps the assembled platform package.
type PackageResult struct {
	Package compliance.PlatformPackage `json:"package"`
}
