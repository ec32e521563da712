package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "helpline dev") {
		t.Errorf("unexpected version output: %q", out.String())
	}
}

func TestRootSubcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"version", "serve", "db", "agents", "queue"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestAgentsStatus_RejectsBadStatus(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"agents", "status", "AGENT-001", "sleeping"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for invalid status")
	}
}
