package cmd

import (
	"strings"
	"testing"
)

func TestRunVersion(t *testing.T) {
	originalVersion := Version
	originalCommit := GitCommit
	originalBuildTime := BuildTime
	defer func() {
		Version = originalVersion
		GitCommit = originalCommit
		BuildTime = originalBuildTime
	}()

	tests := []struct {
		name            string
		version         string
		commit          string
		buildTime       string
		expectedStrings []string
	}{
		{
			name:      "release build",
			version:   "1.2.3",
			commit:    "abc123",
			buildTime: "2026-01-15T00:00:00Z",
			expectedStrings: []string{
				"frontdesk 1.2.3",
				"commit:  abc123",
				"built:   2026-01-15T00:00:00Z",
			},
		},
		{
			name:      "development build",
			version:   "development",
			commit:    "unknown",
			buildTime: "unknown",
			expectedStrings: []string{
				"frontdesk development",
				"commit:  unknown",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = tt.version
			GitCommit = tt.commit
			BuildTime = tt.buildTime

			output := captureStdout(t, runVersion)

			for _, expected := range tt.expectedStrings {
				if !strings.Contains(output, expected) {
					t.Errorf("expected output to contain %q\nGot: %s", expected, output)
				}
			}
			if !strings.Contains(output, "go:") {
				t.Error("expected output to include the Go runtime version")
			}
		})
	}
}
