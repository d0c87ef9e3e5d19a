package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn with os.Stdout redirected and returns what it
// printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = oldStdout }()

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	r.Close()
	return buf.String()
}

func TestExecuteUnknownCommand(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"frontdesk", "bogus"}
	err := Execute()
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("expected error to name the command, got %q", err.Error())
	}
}

func TestExecuteNoArgsShowsHelp(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"frontdesk"}
	var err error
	output := captureStdout(t, func() {
		err = Execute()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, expected := range []string{"Usage:", "serve", "sync", "version"} {
		if !strings.Contains(output, expected) {
			t.Errorf("expected help output to contain %q\nGot: %s", expected, output)
		}
	}
}

func TestRunHelp(t *testing.T) {
	output := captureStdout(t, runHelp)

	for _, expected := range []string{
		"frontdesk serve",
		"frontdesk sync",
		"GEMINI_API_KEY",
		"GOOGLE_MAPS_API_KEY",
		"FRONTDESK_*",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("expected help output to contain %q", expected)
		}
	}
}
