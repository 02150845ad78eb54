package agents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"presswork/internal/compliance"
	"presswork/internal/services"
	"presswork/internal/stage"
)

// Intake validates and normalizes the trigger. An empty product reference or
// empty platform list fails validation and rejects the run before any other
// agent observes it.
func Intake() stage.Stage[IntakeRequest, IntakeResult] {
	return stage.NewFunc(AgentIntake, func(_ context.Context, req IntakeRequest) (IntakeResult, error) {
		if strings.TrimSpace(req.ProductRef) == "" {
			return IntakeResult{}, services.Wrap(services.ErrValidation, "intake", "validate", "product reference is required", nil)
		}
		platforms := make([]string, 0, len(req.TargetPlatforms))
		seen := make(map[string]bool, len(req.TargetPlatforms))
		for _, p := range req.TargetPlatforms {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			platforms = append(platforms, p)
		}
		if len(platforms) == 0 {
			return IntakeResult{}, services.Wrap(services.ErrValidation, "intake", "validate", "at least one target platform is required", nil)
		}
		return IntakeResult{
			ProductRef: strings.TrimSpace(req.ProductRef),
			Platforms:  platforms,
			Brief:      strings.TrimSpace(req.SourceData["brief"]),
		}, nil
	})
}

// TopicAnalysis derives topic labels from the brief. The analyses in this file
// are deterministic keyword passes standing in for model-backed agents behind
// the same contracts.
func TopicAnalysis() stage.Stage[IntakeResult, []string] {
	return stage.NewFunc(AgentTopicAnalysis, func(_ context.Context, in IntakeResult) ([]string, error) {
		topics := keywords(in.Brief, 5)
		if len(topics) == 0 {
			topics = []string{strings.ToLower(in.ProductRef)}
		}
		return topics, nil
	})
}

// AudienceProfile derives a coarse audience descriptor from the platform mix.
func AudienceProfile() stage.Stage[IntakeResult, string] {
	return stage.NewFunc(AgentAudienceProfile, func(_ context.Context, in IntakeResult) (string, error) {
		short := false
		for _, p := range in.Platforms {
			switch p {
			case "tiktok", "reels", "shorts":
				short = true
			}
		}
		if short {
			return "short-form discovery audience", nil
		}
		return "general social audience", nil
	})
}

// TrendScan produces keyword and trend hints for the captioner.
func TrendScan() stage.Stage[IntakeResult, []string] {
	return stage.NewFunc(AgentTrendScan, func(_ context.Context, in IntakeResult) ([]string, error) {
		kws := keywords(in.Brief, 8)
		sort.Strings(kws)
		return kws, nil
	})
}

// ReferenceMapper extracts the references the content intends to lean on.
// Source data carries them as a JSON array under the "references" key. On a
// rights rewrite pass the mapper drops every reference whose title or medium
// appears in the rewrite instructions, so repeated passes converge toward an
// approvable set.
func ReferenceMapper() stage.Stage[ReferenceMappingRequest, ReferenceMappingResult] {
	return stage.NewFunc(AgentReferenceMapper, func(_ context.Context, req ReferenceMappingRequest) (ReferenceMappingResult, error) {
		raw := strings.TrimSpace(req.SourceData["references"])
		if raw == "" {
			return ReferenceMappingResult{}, nil
		}
		var refs []compliance.Reference
		if err := json.Unmarshal([]byte(raw), &refs); err != nil {
			return ReferenceMappingResult{}, services.Wrap(services.ErrValidation, "reference_mapping", "parse", "source references are not valid JSON", err)
		}
		if req.RewriteInstructions == "" {
			return ReferenceMappingResult{References: refs}, nil
		}
		terms := instructionTerms(req.RewriteInstructions)
		kept := refs[:0]
		for _, ref := range refs {
			if referenceMatchesTerms(ref, terms) {
				continue
			}
			kept = append(kept, ref)
		}
		return ReferenceMappingResult{References: kept}, nil
	})
}

// ScriptWriter produces the master script shared across platforms.
func ScriptWriter() stage.Stage[ScriptRequest, ScriptResult] {
	return stage.NewFunc(AgentScriptWriter, func(_ context.Context, req ScriptRequest) (ScriptResult, error) {
		if req.ProductRef == "" {
			return ScriptResult{}, services.Wrap(services.ErrValidation, "content_generation", "script", "product reference is required", nil)
		}
		var b strings.Builder
		hook := fmt.Sprintf("Why %s is worth a look", req.ProductRef)
		fmt.Fprintf(&b, "%s.\n\n", hook)
		fmt.Fprintf(&b, "Today we dig into %s", req.ProductRef)
		if len(req.Enrichment.Topics) > 0 {
			fmt.Fprintf(&b, ", focusing on %s", strings.Join(req.Enrichment.Topics, ", "))
		}
		b.WriteString(".\n")
		if req.Enrichment.Audience != "" {
			fmt.Fprintf(&b, "Made for a %s.\n", req.Enrichment.Audience)
		}
		for _, ref := range req.References {
			if ref.Type == compliance.ReferenceCommentary {
				fmt.Fprintf(&b, "We comment on %s for context.\n", ref.Title)
			}
		}
		return ScriptResult{Hook: hook, Script: b.String()}, nil
	})
}

// Captioner produces a platform caption. When InsertDisclosure is set the
// disclosure tag is appended, which is how a QA rewrite pass repairs a
// missing-disclosure failure.
func Captioner() stage.Stage[CaptionRequest, CaptionResult] {
	return stage.NewFunc(AgentCaptioner, func(_ context.Context, req CaptionRequest) (CaptionResult, error) {
		var b strings.Builder
		b.WriteString(req.Hook)
		for i, kw := range req.Keywords {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, " #%s", strings.ReplaceAll(kw, " ", ""))
		}
		if req.InsertDisclosure && req.DisclosureTag != "" && !strings.Contains(b.String(), req.DisclosureTag) {
			b.WriteString(" ")
			b.WriteString(req.DisclosureTag)
		}
		return CaptionResult{Caption: b.String()}, nil
	})
}

// Packager assembles one platform package and stamps its content hash. The
// media reference is the trigger's pinned asset when one exists, otherwise
// the render output path keyed by the content hash.
func Packager() stage.Stage[PackageRequest, PackageResult] {
	return stage.NewFunc(AgentPackager, func(_ context.Context, req PackageRequest) (PackageResult, error) {
		if req.Platform == "" {
			return PackageResult{}, services.Wrap(services.ErrValidation, "content_generation", "package", "platform is required", nil)
		}
		hash := ContentHash(req.Platform, req.Script, req.Caption)
		media := strings.TrimSpace(req.MediaRef)
		if media == "" {
			media = fmt.Sprintf("media/%s/%s.mp4", req.Platform, hash[:12])
		}
		return PackageResult{Package: compliance.PlatformPackage{
			Platform:         req.Platform,
			Caption:          req.Caption,
			Script:           req.Script,
			MediaRef:         media,
			ContentHash:      hash,
			ComplianceStatus: req.ComplianceStatus,
		}}, nil
	})
}

// ContentHash fingerprints a platform package for the duplicate-publish check.
func ContentHash(platform, script, caption string) string {
	sum := sha256.Sum256([]byte(platform + "\x00" + script + "\x00" + caption))
	return hex.EncodeToString(sum[:])
}

// instructionBoilerplate holds the verbs and fillers the compliance gate uses
// when phrasing rewrite instructions. They never identify a reference.
var instructionBoilerplate = map[string]bool{
	"remove": true, "replace": true, "drop": true, "avoid": true,
	"terms": true, "elements": true, "blocked": true, "references": true,
}

// instructionTerms extracts the identifying tokens from a rewrite
// instruction.
func instructionTerms(instructions string) []string {
	candidates := keywords(instructions, 16)
	terms := candidates[:0]
	for _, term := range candidates {
		if instructionBoilerplate[term] {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// referenceMatchesTerms reports whether any instruction term appears in the
// reference's title or usage mode.
func referenceMatchesTerms(ref compliance.Reference, terms []string) bool {
	hay := strings.ToLower(ref.Title + " " + ref.UsageMode)
	for _, term := range terms {
		if strings.Contains(hay, term) {
			return true
		}
	}
	return false
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "from": true,
	"in": true, "is": true, "it": true, "of": true, "on": true,
	"the": true, "to": true, "with": true,
}

func keywords(text string, limit int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out
}
