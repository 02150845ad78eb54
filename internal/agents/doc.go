// Package agents holds the content-production stages the pipeline drives:
// intake validation, enrichment analysis, reference mapping, script writing,
// captioning, and packaging. Each agent is a stage.Stage with typed request
// and response records.
//
// The agents here are deliberately deterministic. Generation quality is an
// external concern; the pipeline only depends on the agent contract, so a
// model-backed implementation can replace any of these without touching the
// orchestration or gating code.
package agents
