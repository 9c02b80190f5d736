package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/laguz/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Data.Debounce() != 300*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Data.Debounce())
	}
	if cfg.Data.StorageTimeout() != 5*time.Second {
		t.Errorf("storage timeout = %v", cfg.Data.StorageTimeout())
	}
	if got := cfg.Data.DatabasePath(); filepath.Base(got) != "laguz.db" {
		t.Errorf("db path = %q", got)
	}
}

func TestDataConfig_Invalid(t *testing.T) {
	cases := []DataConfig{
		{Dir: "", DebounceMs: 300, Workers: 4, StorageTimeoutMs: 5000},
		{Dir: "./.laguz", DebounceMs: -1, Workers: 4, StorageTimeoutMs: 5000},
		{Dir: "./.laguz", DebounceMs: 300, Workers: 0, StorageTimeoutMs: 5000},
		{Dir: "./.laguz", DebounceMs: 300, Workers: 4, StorageTimeoutMs: 0},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d should fail validation: %+v", i, c)
		}
	}
}

func TestWorkspaceConfig_RequiresPath(t *testing.T) {
	cfg := WorkspaceConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty workspace path should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  log_level: debug
  http:
    port: 9090
workspace:
  path: /tmp/notes
  exclude:
    - drafts
data:
  dir: /tmp/laguz-data
  debounce_ms: 100
  workers: 2
  storage_timeout_ms: 1000
auth:
  mode: token
  token: ${LAGUZ_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LAGUZ_TEST_TOKEN", "sekrit")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.Workspace.Path != "/tmp/notes" || len(cfg.Workspace.Exclude) != 1 {
		t.Errorf("workspace = %+v", cfg.Workspace)
	}
	if cfg.Data.Workers != 2 {
		t.Errorf("workers = %d", cfg.Data.Workers)
	}
	if cfg.Auth.Token != "sekrit" {
		t.Errorf("token env expansion failed: %q", cfg.Auth.Token)
	}
}
