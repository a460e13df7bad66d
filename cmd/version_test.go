package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)
	if got := buf.String(); got != "sus version "+Version+"\n" {
		t.Fatalf("unexpected output: %q", got)
	}

	buf.Reset()
	if err := versionCmd.Flags().Set("verbose", "true"); err != nil {
		t.Fatalf("failed to set verbose: %v", err)
	}
	defer func() { _ = versionCmd.Flags().Set("verbose", "false") }()

	versionCmd.Run(versionCmd, nil)
	for _, want := range []string{"Git Commit:", "Go Version:", "OS/Arch:"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("verbose output missing %q", want)
		}
	}
}
