package cmd_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestBuiltBinaryServesStdio verifies the compiled binary starts the stdio
// server without crashing, even when the Messages database is unreadable.
func TestBuiltBinaryServesStdio(t *testing.T) {
	tmpDir := t.TempDir()
	binary := filepath.Join(tmpDir, "imessage-mcp")
	build := exec.Command("go", "build", "-o", binary, "..")
	build.Dir = filepath.Join(".")
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}

	cmd := exec.Command(binary, "serve")
	cmd.Env = append(os.Environ(),
		"IMESSAGE_MCP_HOME="+tmpDir,
		"IMESSAGE_MCP_CHAT_DB="+filepath.Join(tmpDir, "chat.db"),
		"IMESSAGE_MCP_CONTACTS_DB="+filepath.Join(tmpDir, "contacts.abcddb"),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	out := &strings.Builder{}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start binary: %v", err)
	}

	// Keep stdin open so the server waits for requests, then kill it.
	timer := time.AfterFunc(3*time.Second, func() {
		cmd.Process.Kill()
	})
	defer timer.Stop()
	defer stdin.Close()

	err = cmd.Wait()
	output := out.String()

	if err != nil && len(output) == 0 {
		t.Errorf("binary exited immediately with no output: %v", err)
	}
	if !strings.Contains(output, "Messages database not readable") {
		t.Errorf("expected startup warning, got:\n%s", output)
	}
	if strings.Contains(output, "panic:") || strings.Contains(output, "runtime error") {
		t.Errorf("binary panicked:\n%s", output)
	}
}
