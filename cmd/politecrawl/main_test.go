package main

import (
	"os"
	"testing"

	"github.com/masahif/politecrawl/internal/cmd"
)

func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty string")
	}

	if BuildTime == "" {
		t.Error("BuildTime should not be empty string")
	}

	cmd.SetVersionInfo(Version, BuildTime)
}

// TestMainLogic runs the sequence main() performs without exiting the process
func TestMainLogic(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	cmd.SetVersionInfo(Version, BuildTime)

	os.Args = []string{"politecrawl", "--help"}
	if err := cmd.Execute(); err != nil {
		t.Errorf("cmd.Execute() with help should not return error, got: %v", err)
	}
}

func TestMainWithVersion(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"politecrawl", "--version"}
	cmd.SetVersionInfo("1.0.0-test", "2023-12-01T10:00:00Z")

	if err := cmd.Execute(); err != nil {
		t.Errorf("Execute with version returned: %v", err)
	}
}
