// Package runstore persists pipeline runs and the published-content index in
// SQLite. A run row is the durable snapshot of a PipelineRun: the state
// machine owns the in-memory state and writes it back after every transition,
// so the CLI and daemon can inspect historical and in-flight runs. The
// published-content table backs the QA duplicate check and is only ever
// inserted into.
package runstore
