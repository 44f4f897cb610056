package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestRuntimeFlagsOnlyChangedValuesOverride(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := &runtimeFlagSet{}
	bindRuntimeFlags(cmd, flags)

	if err := cmd.ParseFlags([]string{"--format", "table", "--detectors", "stacks, deploy", "--exclude", "**/gen", "--exclude", "third_party"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	ov := flags.toOverrides(cmd)

	if ov.Format != "table" {
		t.Fatalf("expected format table, got %q", ov.Format)
	}
	if len(ov.Detectors) != 2 || ov.Detectors[1] != "deploy" {
		t.Fatalf("unexpected detectors: %#v", ov.Detectors)
	}
	if len(ov.Exclude) != 2 || ov.Exclude[0] != "**/gen" {
		t.Fatalf("unexpected excludes: %#v", ov.Exclude)
	}
	if ov.MaxEvidence != nil {
		t.Fatal("max evidence was not set and must not override")
	}
	if ov.IncludeTests != nil || ov.Verbose != nil || ov.Events != nil {
		t.Fatal("unset boolean flags must not override")
	}
}

func TestRuntimeFlagsExplicitFalseOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := &runtimeFlagSet{}
	bindRuntimeFlags(cmd, flags)

	if err := cmd.ParseFlags([]string{"--include-tests=false", "--max-evidence", "5"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	ov := flags.toOverrides(cmd)
	if ov.IncludeTests == nil || *ov.IncludeTests {
		t.Fatalf("expected explicit include-tests=false override, got %v", ov.IncludeTests)
	}
	if ov.MaxEvidence == nil || *ov.MaxEvidence != 5 {
		t.Fatalf("expected max evidence 5, got %v", ov.MaxEvidence)
	}
}
