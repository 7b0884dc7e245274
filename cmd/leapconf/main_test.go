// Package main provides tests for the leapconf CLI.
package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapconf/internal/cli"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// initProject creates the example project and returns its directory.
func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, err := run(t, "init", dir, "--example"); err != nil {
		t.Fatalf("init command error = %v", err)
	}
	return dir
}

func TestVersionCommand(t *testing.T) {
	output, err := run(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "leapconf") {
		t.Errorf("version output should contain 'leapconf', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := run(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	for _, expected := range []string{"init", "resolve", "validate", "fields", "diff"} {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	dir := initProject(t)

	output, err := run(t, "validate", "--project-dir", dir, "--state", filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if !strings.Contains(output, "All 4 resources valid") {
		t.Errorf("validate output should report 4 valid resources, got: %s", output)
	}
}

func TestResolveCommandJSON(t *testing.T) {
	dir := initProject(t)

	output, err := run(t, "resolve", "model", "-o", "json", "--project-dir", dir)
	if err != nil {
		t.Fatalf("resolve command error = %v", err)
	}

	var configs map[string]map[string]any
	if err := json.Unmarshal([]byte(output), &configs); err != nil {
		t.Fatalf("resolve output is not JSON: %v\n%s", err, output)
	}
	if got := configs["model.shop.orders"]["materialized"]; got != "incremental" {
		t.Errorf("orders materialized = %v, want incremental", got)
	}
	if got := configs["model.shop.stg_orders"]["schema"]; got != "staging" {
		t.Errorf("stg_orders schema = %v, want staging", got)
	}
}

func TestFieldsCommand(t *testing.T) {
	output, err := run(t, "fields", "seed", "--project-dir", t.TempDir())
	if err != nil {
		t.Fatalf("fields command error = %v", err)
	}
	for _, expected := range []string{"SeedConfig", "quote_columns", "delimiter"} {
		if !strings.Contains(output, expected) {
			t.Errorf("fields output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestDiffCommand(t *testing.T) {
	dir := initProject(t)
	state := filepath.Join(dir, "state.db")

	output, err := run(t, "diff", "--save", "--project-dir", dir, "--state", state)
	if err != nil {
		t.Fatalf("diff --save error = %v", err)
	}
	if !strings.Contains(output, "4 of 4 resources changed") {
		t.Errorf("first diff should report every resource, got: %s", output)
	}

	output, err = run(t, "diff", "--project-dir", dir, "--state", state)
	if err != nil {
		t.Fatalf("diff error = %v", err)
	}
	if !strings.Contains(output, "0 of 4 resources changed") {
		t.Errorf("second diff should report no changes, got: %s", output)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := run(t, "fields", "model", "-o", "xml", "--project-dir", t.TempDir())
	if err == nil {
		t.Error("expected error for unsupported output format")
	}
}

func TestMissingProject(t *testing.T) {
	_, err := run(t, "validate", "--project-dir", t.TempDir())
	if err == nil {
		t.Error("expected error when the project file is missing")
	}
}
