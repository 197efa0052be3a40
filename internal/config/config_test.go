package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"OPENAI_API_KEY", "GOOGLE_API_KEY", "SHEETCHARTS_OPENAI_API_KEY", "SHEETCHARTS_GOOGLE_API_KEY", "SHEETCHARTS_MODEL", "SHEETCHARTS_PROVIDER", "SHEETCHARTS_CORS_ORIGINS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(home); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Model != "gpt-4-turbo" || c.Provider != "openai" {
		t.Fatalf("unexpected model/provider: %s/%s", c.Model, c.Provider)
	}
	if c.SheetRange != "A1:Z1000" || c.ListenAddr != ":5000" {
		t.Fatalf("unexpected sheet range/listen: %s %s", c.SheetRange, c.ListenAddr)
	}
	if len(c.CORSOrigins) != 1 || c.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", c.CORSOrigins)
	}
	if !c.StructuredOutput {
		t.Fatalf("structured output should default on")
	}
	if c.FetchTimeout().Seconds() != 30 || c.ReasoningTimeout().Seconds() != 120 {
		t.Fatalf("unexpected timeouts")
	}
	if err := c.Validate(); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
}

func TestLoadBareAndPrefixedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-bare")
	t.Setenv("GOOGLE_API_KEY", "g-bare")
	t.Setenv("SHEETCHARTS_GOOGLE_API_KEY", "g-prefixed")
	t.Setenv("SHEETCHARTS_MODEL", "gpt-4o")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.OpenAIAPIKey != "sk-bare" {
		t.Fatalf("openai key = %q", c.OpenAIAPIKey)
	}
	if c.GoogleAPIKey != "g-prefixed" {
		t.Fatalf("prefixed var should win, got %q", c.GoogleAPIKey)
	}
	if c.Model != "gpt-4o" {
		t.Fatalf("model = %q", c.Model)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	home := isolate(t)
	t.Setenv("OPENAI_API_KEY", "from-env")
	os.Setenv("OPENAI_API_KEY", "from-env")
	if err := os.WriteFile(filepath.Join(home, ".env"), []byte("OPENAI_API_KEY=from-file\nGOOGLE_API_KEY=g-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_API_KEY", "")
	os.Unsetenv("GOOGLE_API_KEY")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.OpenAIAPIKey != "from-env" {
		t.Fatalf("process env should win over .env, got %q", c.OpenAIAPIKey)
	}
	if c.GoogleAPIKey != "g-file" {
		t.Fatalf("expected key from .env, got %q", c.GoogleAPIKey)
	}
}

func TestSaveAndReload(t *testing.T) {
	home := isolate(t)
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.GoogleAPIKey = "g-saved"
	c.Provider = "ollama"
	c.ListenAddr = "127.0.0.1:8080"
	if err := Save(c, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	path := filepath.Join(home, DirName, "config.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config mode = %v", info.Mode().Perm())
	}
	c2, err := Load("")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if c2.GoogleAPIKey != "g-saved" || c2.ListenAddr != "127.0.0.1:8080" {
		t.Fatalf("values not persisted: %+v", c2)
	}
	// ollama needs no reasoning key
	if err := c2.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	home := isolate(t)
	c, err := Load(filepath.Join(home, "absent.yaml"))
	if err != nil {
		t.Fatalf("missing explicit file should fall back to defaults, got %v", err)
	}
	if c.Model == "" {
		t.Fatalf("defaults not applied")
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(path, []byte("model: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
