package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/stash/internal/auth"
)

const cliSecret = "cli-test-secret-0123456789abcdef"

func setEnv(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "stash.db")
	t.Setenv("STASH_DB_DSN", dsn)
	t.Setenv("STASH_AUTH_SECRET", cliSecret)
	t.Setenv("STASH_LOG_LEVEL", "error")
	t.Setenv("STASH_PRETTY_LOG", "false")
	return dsn
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	setEnv(t)

	out, err := run(t, "token", "--user", "alice")
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}

	id, err := auth.NewVerifier(cliSecret, "stash", "stash-api").Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
	if id.OwnerID != "alice" {
		t.Errorf("expected owner alice, got %q", id.OwnerID)
	}
}

func TestTokenCommandRequiresUser(t *testing.T) {
	setEnv(t)
	if _, err := run(t, "token"); err == nil {
		t.Error("expected missing --user error")
	}
}

func TestMigrateCommand(t *testing.T) {
	dsn := setEnv(t)

	out, err := run(t, "migrate")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "schema up to date") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(dsn); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestImportCommand(t *testing.T) {
	setEnv(t)

	yamlPath := filepath.Join(t.TempDir(), "bookmarks.yaml")
	content := `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go:
        - href: https://go.dev/
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	out, err := run(t, "import", "--owner", "alice", "--file", yamlPath)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "saved=2 skipped=0 failed=0") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = run(t, "import", "--owner", "alice", "--file", yamlPath)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if !strings.Contains(out, "saved=0 skipped=2 failed=0") {
		t.Errorf("re-import should skip duplicates, got %q", out)
	}
}
