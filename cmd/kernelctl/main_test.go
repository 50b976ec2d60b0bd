package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeBundleFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write bundle fixture: %v", err)
	}
	return path
}

func TestRunVerifyMissingBundleFlagIsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"kernelctl", "verify"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunVerifyUnreadableBundleIsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"kernelctl", "verify", "--bundle", "/nonexistent/path.json"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunVerifyEmptyBundlePasses(t *testing.T) {
	path := writeBundleFile(t, "empty.json", "{}")

	var stdout, stderr bytes.Buffer
	code := Run([]string{"kernelctl", "verify", "--bundle", path}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0, stderr=%s", code, stderr.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("DeterministicReplayPassed")) {
		t.Fatalf("stdout missing verification report: %s", stdout.String())
	}
}

func TestRunVerifyMalformedBundleIsUsageError(t *testing.T) {
	path := writeBundleFile(t, "bad.json", "not json")

	var stdout, stderr bytes.Buffer
	code := Run([]string{"kernelctl", "verify", "--bundle", path}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunUnknownCommandIsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"kernelctl", "bogus"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"kernelctl", "help"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if stdout.Len() == 0 {
		t.Fatal("expected usage text on stdout")
	}
}
