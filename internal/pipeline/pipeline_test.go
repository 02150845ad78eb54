package pipeline

import (
	"context"
	"strings"
	"testing"

	"presswork/internal/audit"
	"presswork/internal/compliance"
	"presswork/internal/logging"
	"presswork/internal/publish"
	"presswork/internal/registry"
	"presswork/internal/runstore"
	"presswork/internal/supervisor"
	"presswork/internal/testsupport"
)

const pipelineRegistry = `
records:
  - id: rec-symphony
    title: "Old Symphony"
    type: public_domain
    status: active
  - id: rec-rival
    title: "Rival Show"
    type: commentary
    status: active
blocked_elements:
  - "character likeness"
`

type testHarness struct {
	pipeline *Pipeline
	store    *runstore.Store
	auditLog *audit.Log
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *testHarness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenRunStore(t, cfg)
	auditLog := testsupport.MustOpenAuditLog(t, cfg)

	reg, err := registry.Parse([]byte(pipelineRegistry))
	if err != nil {
		t.Fatalf("Parse registry: %v", err)
	}
	gate := compliance.NewGate(cfg, reg, store, auditLog, logging.NewNop())
	publisher := publish.NewService(store, logging.NewNop())
	p := New(cfg, store, gate, auditLog, supervisor.New(logging.NewNop()), publisher, nil, logging.NewNop())
	return &testHarness{pipeline: p, store: store, auditLog: auditLog}
}

func TestRunPublishesCleanTrigger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := testsupport.NewRun(t, h.store, "prod-1", []string{"tiktok", "reels"}, map[string]string{
		"brief":      "launch video for the new widget line",
		"references": `[{"title":"Old Symphony","medium":"music","reference_type":"public_domain"}]`,
	})
	if err := h.pipeline.Run(ctx, run); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != runstore.StatusCompleted {
		t.Fatalf("status = %q (%s)", run.Status, run.ErrorMessage)
	}
	if run.RightsRewrites != 0 || run.QARewrites != 0 {
		t.Fatalf("rewrites = %d/%d", run.RightsRewrites, run.QARewrites)
	}
	if run.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}

	var pkgs []compliance.PlatformPackage
	if err := runstore.DecodePayload(run.PackagesJSON, &pkgs); err != nil {
		t.Fatalf("decode packages: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("packages = %d", len(pkgs))
	}
	for _, pkg := range pkgs {
		if !strings.Contains(pkg.Caption, "#ad") {
			t.Fatalf("caption missing disclosure: %q", pkg.Caption)
		}
		if pkg.MediaRef == "" {
			t.Fatalf("package for %s has no media reference", pkg.Platform)
		}
		published, err := h.store.IsPublished(ctx, pkg.Platform, pkg.ContentHash)
		if err != nil {
			t.Fatalf("IsPublished: %v", err)
		}
		if !published {
			t.Fatalf("package for %s not recorded as published", pkg.Platform)
		}
	}

	stored, err := h.store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != runstore.StatusCompleted {
		t.Fatalf("persisted status = %q", stored.Status)
	}

	events, err := h.auditLog.Events(ctx, run.SessionID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	last := events[len(events)-1]
	if last.Action != "run_finalized" || last.Decision != "PUBLISHED" {
		t.Fatalf("final event = %s/%s", last.Action, last.Decision)
	}
	ok, err := h.auditLog.VerifyChainIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyChainIntegrity: %v", err)
	}
	if !ok {
		t.Fatal("audit chain broken after full run")
	}
}

func TestRunRejectsInvalidTrigger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := testsupport.NewRun(t, h.store, "   ", []string{"tiktok"}, nil)
	if err := h.pipeline.Run(ctx, run); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != runstore.StatusRejected {
		t.Fatalf("status = %q", run.Status)
	}

	events, err := h.auditLog.Events(ctx, run.SessionID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	found := false
	for _, event := range events {
		if event.Action == "intake_validation" && event.Decision == "BLOCKED" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected BLOCKED intake audit event")
	}
}

func TestRunRightsRewriteLoopConverges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := testsupport.NewRun(t, h.store, "prod-2", []string{"tiktok"}, map[string]string{
		"brief": "reaction video",
		"references": `[
			{"title":"Old Symphony","medium":"music","reference_type":"public_domain"},
			{"title":"Rival Show","medium":"tv","reference_type":"commentary","usage_mode":"recreating the character likeness scenes"}
		]`,
	})
	if err := h.pipeline.Run(ctx, run); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != runstore.StatusCompleted {
		t.Fatalf("status = %q (%s)", run.Status, run.ErrorMessage)
	}
	if run.RightsRewrites != 1 {
		t.Fatalf("rights rewrites = %d", run.RightsRewrites)
	}

	var refs []compliance.Reference
	if err := runstore.DecodePayload(run.ReferencesJSON, &refs); err != nil {
		t.Fatalf("decode references: %v", err)
	}
	if len(refs) != 1 || refs[0].Title != "Old Symphony" {
		t.Fatalf("surviving references = %+v", refs)
	}
}

func TestRunRejectsWhenRightsLoopExceeded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := testsupport.NewRun(t, h.store, "prod-3", []string{"tiktok"}, nil)
	run.Status = runstore.StatusRightsCheck
	run.RightsRewrites = 3
	encoded, err := runstore.EncodePayload([]compliance.Reference{
		{Title: "Rival Show", Type: compliance.ReferenceCommentary, UsageMode: "recreating the character likeness scenes"},
	})
	if err != nil {
		t.Fatalf("encode references: %v", err)
	}
	run.ReferencesJSON = encoded
	if err := h.store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := h.pipeline.Run(ctx, run); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != runstore.StatusRejected {
		t.Fatalf("status = %q", run.Status)
	}
	if !strings.Contains(run.ErrorMessage, "rights rewrite loop exceeded") {
		t.Fatalf("reason = %q", run.ErrorMessage)
	}
}

func TestRunQARewriteRestoresDisclosure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := testsupport.NewRun(t, h.store, "prod-4", []string{"tiktok"}, map[string]string{
		"brief":      "sponsored unboxing segment",
		"disclosure": "omit",
	})
	if err := h.pipeline.Run(ctx, run); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != runstore.StatusCompleted {
		t.Fatalf("status = %q (%s)", run.Status, run.ErrorMessage)
	}
	if run.QARewrites != 1 {
		t.Fatalf("qa rewrites = %d", run.QARewrites)
	}

	var pkgs []compliance.PlatformPackage
	if err := runstore.DecodePayload(run.PackagesJSON, &pkgs); err != nil {
		t.Fatalf("decode packages: %v", err)
	}
	if len(pkgs) != 1 || !strings.Contains(pkgs[0].Caption, "#ad") {
		t.Fatalf("packages = %+v", pkgs)
	}
}

func TestRunRejectsWhenQALoopExceeded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := testsupport.NewRun(t, h.store, "prod-5", []string{"tiktok"}, nil)
	run.Status = runstore.StatusQA
	run.QARewrites = 3
	encoded, err := runstore.EncodePayload([]compliance.PlatformPackage{{
		Platform:         "tiktok",
		Caption:          "a caption without the required tag",
		Script:           "a long enough script",
		MediaRef:         "media/tiktok/deadbeef.mp4",
		ContentHash:      "deadbeef",
		ComplianceStatus: compliance.StatusApproved,
	}})
	if err != nil {
		t.Fatalf("encode packages: %v", err)
	}
	run.PackagesJSON = encoded
	if err := h.store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := h.pipeline.Run(ctx, run); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != runstore.StatusRejected {
		t.Fatalf("status = %q", run.Status)
	}
	if !strings.Contains(run.ErrorMessage, "qa rewrite loop exceeded") {
		t.Fatalf("reason = %q", run.ErrorMessage)
	}
}

func TestRunErrorsOnMalformedReferences(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := testsupport.NewRun(t, h.store, "prod-6", []string{"tiktok"}, map[string]string{
		"references": "{not json",
	})
	if err := h.pipeline.Run(ctx, run); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != runstore.StatusError {
		t.Fatalf("status = %q", run.Status)
	}
	if run.ErrorMessage == "" {
		t.Fatal("expected error message on errored run")
	}

	events, err := h.auditLog.Events(ctx, run.SessionID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	last := events[len(events)-1]
	if last.Decision != "ERROR" {
		t.Fatalf("final audit decision = %q", last.Decision)
	}
}

func TestRouteTable(t *testing.T) {
	cases := []struct {
		name        string
		scope       loopScope
		verdict     compliance.Decision
		counter     int
		next        runstore.Status
		cont        bool
		wantCounter int
	}{
		{"rights approve", scopeRights, compliance.DecisionApprove, 0, runstore.StatusContentGeneration, true, 0},
		{"rights rewrite", scopeRights, compliance.DecisionRewrite, 0, runstore.StatusReferenceMapping, true, 1},
		{"rights reject", scopeRights, compliance.DecisionReject, 0, runstore.StatusRejected, false, 0},
		{"qa approve", scopeQA, compliance.DecisionApprove, 0, runstore.StatusPublishing, true, 0},
		{"qa rewrite", scopeQA, compliance.DecisionRewrite, 0, runstore.StatusContentGeneration, true, 1},
		{"qa reject", scopeQA, compliance.DecisionReject, 0, runstore.StatusRejected, false, 0},
		{"rights rewrite at bound", scopeRights, compliance.DecisionRewrite, 2, runstore.StatusReferenceMapping, true, 3},
		{"rights rewrite past bound", scopeRights, compliance.DecisionRewrite, 3, runstore.StatusRejected, false, 4},
		{"qa rewrite past bound", scopeQA, compliance.DecisionRewrite, 3, runstore.StatusRejected, false, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			counter := tc.counter
			got := route(tc.scope, tc.verdict, "because", &counter, 3)
			if got.next != tc.next || got.shouldContinue != tc.cont {
				t.Fatalf("route(%s, %s) = %+v", tc.scope, tc.verdict, got)
			}
			if counter != tc.wantCounter {
				t.Fatalf("counter = %d, want %d", counter, tc.wantCounter)
			}
			if !strings.Contains(got.reason, "because") {
				t.Fatalf("reason = %q", got.reason)
			}
		})
	}
}

func TestRouteRewriteReasonCarriesAttempt(t *testing.T) {
	counter := 0
	got := route(scopeQA, compliance.DecisionRewrite, "missing disclosure", &counter, 3)
	if got.reason != "qa rewrite attempt 1 of 3: missing disclosure" {
		t.Fatalf("reason = %q", got.reason)
	}
	got = route(scopeQA, compliance.DecisionRewrite, "missing disclosure", &counter, 1)
	if got.shouldContinue || !strings.Contains(got.reason, "qa rewrite loop exceeded 1 attempts") {
		t.Fatalf("decision = %+v", got)
	}
}
