package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"presswork/internal/audit"
	"presswork/internal/logging"
	"presswork/internal/services"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "config.toml")
	body := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
registry_path = %q
`, filepath.Join(base, "data"), filepath.Join(base, "logs"), filepath.Join(base, "registry.yaml"))
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command %v: %v\noutput: %s", args, err, buf.String())
	}
	return buf.String()
}

func TestSubmitListShow(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := runCommand(t,
		"-c", cfgPath,
		"submit",
		"--product", "widget-1",
		"--platform", "tiktok",
		"--platform", "reels",
		"-s", "brief=launch teaser",
	)
	match := regexp.MustCompile(`Queued run (\S+) for widget-1`).FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("submit output missing run id: %q", out)
	}
	runID := match[1]

	out = runCommand(t, "-c", cfgPath, "list")
	if !strings.Contains(out, "widget-1") || !strings.Contains(out, "Pending") {
		t.Fatalf("list output = %q", out)
	}

	out = runCommand(t, "-c", cfgPath, "show", runID)
	if !strings.Contains(out, "widget-1") || !strings.Contains(out, "tiktok, reels") {
		t.Fatalf("show output = %q", out)
	}
}

func TestSubmitRejectsMalformedReferences(t *testing.T) {
	cfgPath := writeTestConfig(t)

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{
		"-c", cfgPath,
		"submit",
		"--product", "widget-2",
		"--platform", "tiktok",
		"--references", "{not json",
	})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected malformed references to fail")
	}
}

func TestStatusCountsRuns(t *testing.T) {
	cfgPath := writeTestConfig(t)

	runCommand(t, "-c", cfgPath, "submit", "--product", "widget-3", "--platform", "tiktok")
	out := runCommand(t, "-c", cfgPath, "status")
	if !strings.Contains(out, "Pending") {
		t.Fatalf("status output = %q", out)
	}
}

func TestAuditVerifyEmptyLedger(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := runCommand(t, "-c", cfgPath, "audit", "verify")
	if !strings.Contains(out, "Audit chain intact") {
		t.Fatalf("verify output = %q", out)
	}
}

func TestAuditVerifyTamperedLedger(t *testing.T) {
	cfgPath := writeTestConfig(t)
	dataDir := filepath.Join(filepath.Dir(cfgPath), "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	dbPath := filepath.Join(dataDir, "audit.db")

	store, err := audit.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	log := audit.NewLog(store, logging.NewNop())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := log.Record(ctx, audit.Entry{AgentID: "qa_checker", Action: "qa_check", Decision: "APPROVE"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec("UPDATE audit_events SET decision = 'REJECT' WHERE seq = 2"); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	db.Close()

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"-c", cfgPath, "audit", "verify"})
	if err := cmd.Execute(); !errors.Is(err, services.ErrAuditIntegrity) {
		t.Fatalf("expected audit integrity error, got %v", err)
	}
}

func TestRegistryCheckUnknownCommentary(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := runCommand(t, "-c", cfgPath, "registry", "check", "Some Show", "--type", "commentary")
	if !strings.Contains(out, "APPROVE") {
		t.Fatalf("registry check output = %q", out)
	}
	if !strings.Contains(out, "Human review") {
		t.Fatalf("registry check output missing review row: %q", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out := runCommand(t, "config", "init", "-p", target)
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("init output = %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
}

func TestParseSourcePairs(t *testing.T) {
	pairs, err := parseSourcePairs([]string{"brief=launch", "disclosure=omit"})
	if err != nil {
		t.Fatalf("parseSourcePairs: %v", err)
	}
	if pairs["brief"] != "launch" || pairs["disclosure"] != "omit" {
		t.Fatalf("pairs = %v", pairs)
	}
	if _, err := parseSourcePairs([]string{"no-equals"}); err == nil {
		t.Fatal("expected malformed pair to fail")
	}
}
