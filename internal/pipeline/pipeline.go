// Package pipeline drives runs through the content production state machine:
// intake, enrichment, reference mapping, the rights gate, content generation,
// QA, and publishing. Both gate loops are bounded; a run that keeps failing a
// gate is rejected rather than retried forever.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"presswork/internal/agents"
	"presswork/internal/audit"
	"presswork/internal/compliance"
	"presswork/internal/config"
	"presswork/internal/logging"
	"presswork/internal/publish"
	"presswork/internal/runstore"
	"presswork/internal/services"
	"presswork/internal/stageexec"
	"presswork/internal/supervisor"
)

const agentPipeline = "pipeline"

// Pipeline owns the run lifecycle. Every stage call is supervised, every
// compliance decision is audited, and the run row is persisted after each
// transition so a restart resumes where the run stopped.
type Pipeline struct {
	cfg       *config.Config
	store     *runstore.Store
	gate      *compliance.Gate
	auditLog  *audit.Log
	sup       *supervisor.Supervisor
	publisher *publish.Service
	notifier  Notifier
	logger    *slog.Logger
}

// New wires the pipeline. A nil notifier drops terminal events.
func New(cfg *config.Config, store *runstore.Store, gate *compliance.Gate, auditLog *audit.Log, sup *supervisor.Supervisor, publisher *publish.Service, notifier Notifier, logger *slog.Logger) *Pipeline {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		gate:      gate,
		auditLog:  auditLog,
		sup:       sup,
		publisher: publisher,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run drives run to a terminal status. Rejections and gate outcomes are
// states, not errors; an unexpected stage failure lands the run in the error
// state. Run itself returns an error only when persistence fails.
func (p *Pipeline) Run(ctx context.Context, run *runstore.Run) error {
	ctx = services.WithRunID(ctx, run.ID)
	ctx = services.WithSessionID(ctx, run.SessionID)

	if run.Status == runstore.StatusPending {
		run.Status = runstore.StatusIntake
		if err := p.persist(ctx, run); err != nil {
			return err
		}
	}

	for !run.Status.Terminal() {
		stageCtx := services.WithStage(ctx, string(run.Status))
		p.logger.Info("stage starting",
			logging.String(logging.FieldRunID, run.ID),
			logging.String(logging.FieldStage, string(run.Status)),
		)

		var err error
		switch run.Status {
		case runstore.StatusIntake:
			err = p.runIntake(stageCtx, run)
		case runstore.StatusEnrichment:
			err = p.runEnrichment(stageCtx, run)
		case runstore.StatusReferenceMapping:
			err = p.runReferenceMapping(stageCtx, run)
		case runstore.StatusRightsCheck:
			err = p.runRightsCheck(stageCtx, run)
		case runstore.StatusContentGeneration:
			err = p.runContentGeneration(stageCtx, run)
		case runstore.StatusQA:
			err = p.runQA(stageCtx, run)
		case runstore.StatusPublishing:
			err = p.runPublishing(stageCtx, run)
		default:
			err = fmt.Errorf("run %s is in unroutable status %q", run.ID, run.Status)
		}
		if err != nil {
			p.logger.Error("stage failed",
				logging.String(logging.FieldRunID, run.ID),
				logging.String(logging.FieldStage, string(run.Status)),
				logging.Error(err),
			)
			run.SetTerminal(runstore.StatusError, err.Error())
		}
		if err := p.persist(ctx, run); err != nil {
			return err
		}
	}

	p.finalize(ctx, run)
	return nil
}

func (p *Pipeline) runIntake(ctx context.Context, run *runstore.Run) error {
	res, err := supervisor.Supervise(ctx, p.sup, agents.Intake(), agents.IntakeRequest{
		ProductRef:      run.ProductRef,
		TargetPlatforms: run.TargetPlatforms,
		SourceData:      run.SourceData,
	})
	if err != nil {
		if !errors.Is(err, services.ErrValidation) {
			return err
		}
		// Malformed triggers are a rejection, not a pipeline fault.
		if _, aerr := p.auditLog.Record(ctx, audit.Entry{
			AgentID:   agents.AgentIntake,
			Action:    "intake_validation",
			Decision:  "BLOCKED",
			Reason:    err.Error(),
			Input:     map[string]any{"product_ref": run.ProductRef, "platforms": run.TargetPlatforms},
			SessionID: run.SessionID,
		}); aerr != nil {
			return aerr
		}
		run.SetTerminal(runstore.StatusRejected, err.Error())
		return nil
	}

	run.ProductRef = res.ProductRef
	run.TargetPlatforms = res.Platforms
	run.Status = runstore.StatusEnrichment
	return nil
}

func (p *Pipeline) runEnrichment(ctx context.Context, run *runstore.Run) error {
	intake := agents.IntakeResult{
		ProductRef: run.ProductRef,
		Platforms:  run.TargetPlatforms,
		Brief:      strings.TrimSpace(run.SourceData["brief"]),
	}

	exec := stageexec.New(p.cfg.Pipeline.MaxConcurrentStages, p.logger)
	exec.AddParallel("enrichment",
		stageexec.Member{Name: agents.AgentTopicAnalysis, Task: func(ctx context.Context) (any, error) {
			return supervisor.Supervise(ctx, p.sup, agents.TopicAnalysis(), intake)
		}},
		stageexec.Member{Name: agents.AgentAudienceProfile, Task: func(ctx context.Context) (any, error) {
			return supervisor.Supervise(ctx, p.sup, agents.AudienceProfile(), intake)
		}},
		stageexec.Member{Name: agents.AgentTrendScan, Task: func(ctx context.Context) (any, error) {
			return supervisor.Supervise(ctx, p.sup, agents.TrendScan(), intake)
		}},
	)
	result := exec.Run(ctx)
	if result.Failed {
		return firstFailure(result)
	}

	topics, err := outputAs[[]string](result, agents.AgentTopicAnalysis)
	if err != nil {
		return err
	}
	audience, err := outputAs[string](result, agents.AgentAudienceProfile)
	if err != nil {
		return err
	}
	keywords, err := outputAs[[]string](result, agents.AgentTrendScan)
	if err != nil {
		return err
	}

	enrichment := agents.EnrichmentResult{
		Topics:    topics,
		Audience:  audience,
		Keywords:  keywords,
		TrendNote: fmt.Sprintf("%d candidate keywords", len(keywords)),
	}
	encoded, err := runstore.EncodePayload(enrichment)
	if err != nil {
		return err
	}
	run.EnrichmentJSON = encoded
	run.Status = runstore.StatusReferenceMapping
	return nil
}

func (p *Pipeline) runReferenceMapping(ctx context.Context, run *runstore.Run) error {
	var enrichment agents.EnrichmentResult
	if err := runstore.DecodePayload(run.EnrichmentJSON, &enrichment); err != nil {
		return err
	}
	// On a rights rewrite pass the prior gate result carries the
	// instructions the mapper must honor.
	var gateRes compliance.GateResult
	if err := runstore.DecodePayload(run.ScoredJSON, &gateRes); err != nil {
		return err
	}

	res, err := supervisor.Supervise(ctx, p.sup, agents.ReferenceMapper(), agents.ReferenceMappingRequest{
		SourceData:          run.SourceData,
		Enrichment:          enrichment,
		RewriteInstructions: gateRes.RewriteInstructions,
	})
	if err != nil {
		return err
	}

	encoded, err := runstore.EncodePayload(res.References)
	if err != nil {
		return err
	}
	run.ReferencesJSON = encoded
	run.Status = runstore.StatusRightsCheck
	return nil
}

func (p *Pipeline) runRightsCheck(ctx context.Context, run *runstore.Run) error {
	var refs []compliance.Reference
	if err := runstore.DecodePayload(run.ReferencesJSON, &refs); err != nil {
		return err
	}

	gateRes, err := p.gate.EvaluateReferences(ctx, run.SessionID, refs)
	if err != nil {
		return err
	}
	encoded, err := runstore.EncodePayload(gateRes)
	if err != nil {
		return err
	}
	run.ScoredJSON = encoded

	decision := route(scopeRights, gateRes.Verdict, gateRes.Reason, &run.RightsRewrites, p.cfg.Pipeline.MaxRewriteLoops)
	if !decision.shouldContinue {
		run.SetTerminal(decision.next, decision.reason)
		return nil
	}
	run.Status = decision.next
	return nil
}

func (p *Pipeline) runContentGeneration(ctx context.Context, run *runstore.Run) error {
	var enrichment agents.EnrichmentResult
	if err := runstore.DecodePayload(run.EnrichmentJSON, &enrichment); err != nil {
		return err
	}
	var refs []compliance.Reference
	if err := runstore.DecodePayload(run.ReferencesJSON, &refs); err != nil {
		return err
	}

	// A QA rewrite pass always restores the disclosure tag. The first pass
	// honors the trigger's disclosure preference so the gate has something
	// real to catch.
	insertDisclosure := run.QARewrites > 0 || !strings.EqualFold(run.SourceData["disclosure"], "omit")

	var script agents.ScriptResult
	exec := stageexec.New(p.cfg.Pipeline.MaxConcurrentStages, p.logger)
	exec.AddSequential(agents.AgentScriptWriter, func(ctx context.Context) (any, error) {
		res, err := supervisor.Supervise(ctx, p.sup, agents.ScriptWriter(), agents.ScriptRequest{
			ProductRef: run.ProductRef,
			Enrichment: enrichment,
			References: refs,
		})
		if err != nil {
			return nil, err
		}
		script = res
		return res, nil
	})

	members := make([]stageexec.Member, 0, len(run.TargetPlatforms))
	for _, platform := range run.TargetPlatforms {
		members = append(members, stageexec.Member{Name: "package_" + platform, Task: func(ctx context.Context) (any, error) {
			caption, err := supervisor.Supervise(ctx, p.sup, agents.Captioner(), agents.CaptionRequest{
				Platform:         platform,
				Hook:             script.Hook,
				Keywords:         enrichment.Keywords,
				DisclosureTag:    p.cfg.Compliance.DisclosureTag,
				InsertDisclosure: insertDisclosure,
			})
			if err != nil {
				return nil, err
			}
			pkg, err := supervisor.Supervise(ctx, p.sup, agents.Packager(), agents.PackageRequest{
				Platform:         platform,
				Caption:          caption.Caption,
				Script:           script.Script,
				MediaRef:         strings.TrimSpace(run.SourceData["media"]),
				ComplianceStatus: compliance.StatusApproved,
			})
			if err != nil {
				return nil, err
			}
			return pkg.Package, nil
		}})
	}
	exec.AddParallel("platform_packages", members...)

	result := exec.Run(ctx)
	if result.Failed {
		return firstFailure(result)
	}

	pkgs := make([]compliance.PlatformPackage, 0, len(run.TargetPlatforms))
	for _, platform := range run.TargetPlatforms {
		pkg, err := outputAs[compliance.PlatformPackage](result, "package_"+platform)
		if err != nil {
			return err
		}
		pkgs = append(pkgs, pkg)
	}

	scriptJSON, err := runstore.EncodePayload(script)
	if err != nil {
		return err
	}
	packagesJSON, err := runstore.EncodePayload(pkgs)
	if err != nil {
		return err
	}
	run.ScriptJSON = scriptJSON
	run.PackagesJSON = packagesJSON
	run.Status = runstore.StatusQA
	return nil
}

func (p *Pipeline) runQA(ctx context.Context, run *runstore.Run) error {
	var pkgs []compliance.PlatformPackage
	if err := runstore.DecodePayload(run.PackagesJSON, &pkgs); err != nil {
		return err
	}

	verdict := compliance.DecisionApprove
	var reasons []string
	for _, pkg := range pkgs {
		decision, err := p.gate.ReviewPackage(ctx, run.SessionID, pkg)
		if err != nil {
			return err
		}
		switch decision.Verdict {
		case compliance.DecisionReject:
			// Keep reviewing the remaining packages so every audit
			// record exists, but the run is already lost.
			verdict = compliance.DecisionReject
			reasons = append(reasons, fmt.Sprintf("%s: %s", pkg.Platform, decision.Reason))
		case compliance.DecisionRewrite:
			if verdict != compliance.DecisionReject {
				verdict = compliance.DecisionRewrite
			}
			reasons = append(reasons, fmt.Sprintf("%s: %s", pkg.Platform, decision.Reason))
		}
	}

	reason := strings.Join(reasons, "; ")
	if verdict == compliance.DecisionApprove {
		reason = fmt.Sprintf("all %d packages passed qa", len(pkgs))
	}

	decision := route(scopeQA, verdict, reason, &run.QARewrites, p.cfg.Pipeline.MaxRewriteLoops)
	if !decision.shouldContinue {
		run.SetTerminal(decision.next, decision.reason)
		return nil
	}
	run.Status = decision.next
	return nil
}

func (p *Pipeline) runPublishing(ctx context.Context, run *runstore.Run) error {
	var pkgs []compliance.PlatformPackage
	if err := runstore.DecodePayload(run.PackagesJSON, &pkgs); err != nil {
		return err
	}

	releases, err := p.publisher.Publish(ctx, run.ID, pkgs)
	if err != nil {
		return err
	}
	p.logger.Info("run published",
		logging.String(logging.FieldRunID, run.ID),
		logging.Int("releases", len(releases)),
	)
	run.SetTerminal(runstore.StatusCompleted, "")
	return nil
}

// finalize records the terminal audit event and emits the notification. A
// failed audit append here is logged loudly; the run itself already reached
// its terminal state.
func (p *Pipeline) finalize(ctx context.Context, run *runstore.Run) {
	decision := "ERROR"
	switch run.Status {
	case runstore.StatusCompleted:
		decision = "PUBLISHED"
	case runstore.StatusRejected:
		decision = "REJECTED"
	}

	reason := fmt.Sprintf("rights_rewrites=%d qa_rewrites=%d platforms=%s",
		run.RightsRewrites, run.QARewrites, strings.Join(run.TargetPlatforms, ","))
	if run.ErrorMessage != "" {
		reason = run.ErrorMessage + "; " + reason
	}
	if _, err := p.auditLog.Record(ctx, audit.Entry{
		AgentID:   agentPipeline,
		Action:    "run_finalized",
		Decision:  decision,
		Reason:    reason,
		SessionID: run.SessionID,
	}); err != nil {
		p.logger.Error("terminal audit event failed",
			logging.String(logging.FieldRunID, run.ID),
			logging.Error(err),
		)
	}

	switch run.Status {
	case runstore.StatusCompleted:
		p.notifier.RunCompleted(ctx, run, run.TargetPlatforms)
	case runstore.StatusRejected:
		p.notifier.RunRejected(ctx, run, run.ErrorMessage)
	default:
		p.notifier.RunFailed(ctx, run, run.ErrorMessage)
	}

	p.logger.Info("run finished",
		logging.String(logging.FieldRunID, run.ID),
		logging.String("final_status", string(run.Status)),
		logging.Int("rights_rewrites", run.RightsRewrites),
		logging.Int("qa_rewrites", run.QARewrites),
	)
}

func (p *Pipeline) persist(ctx context.Context, run *runstore.Run) error {
	if err := p.store.Update(ctx, run); err != nil {
		return services.Wrap(services.ErrTransient, string(run.Status), "persist", "persist run", err)
	}
	return nil
}

func firstFailure(result stageexec.PipelineResult) error {
	for _, st := range result.Stages {
		if st.Status == stageexec.StatusFailed && st.Err != nil {
			return st.Err
		}
	}
	return errors.New("stage execution failed")
}

func outputAs[T any](result stageexec.PipelineResult, name string) (T, error) {
	var zero T
	out, ok := result.Output(name)
	if !ok {
		return zero, fmt.Errorf("stage %q produced no output", name)
	}
	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("stage %q produced %T", name, out)
	}
	return typed, nil
}
