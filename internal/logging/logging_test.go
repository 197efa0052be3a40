package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("json", "debug", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("config.loaded", "google_api_key", "AIzaSyVerySecret1234", "model", "gpt-4-turbo")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["google_api_key"] != "****1234" {
		t.Fatalf("expected masked key, got %v", entry["google_api_key"])
	}
	if entry["model"] != "gpt-4-turbo" {
		t.Fatalf("non-secret attr changed: %v", entry["model"])
	}
	if entry["msg"] != "config.loaded" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("text", "warn", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("dropped")
	log.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New("xml", "info", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := New("json", "loud", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestRedactAny(t *testing.T) {
	in := map[string]any{
		"Authorization": "Bearer sk-abcdef123456",
		"nested":        map[string]any{"api_key": "xy"},
		"list":          []any{map[string]any{"token": "tok_98765"}},
		"plain":         "visible",
	}
	out := RedactAny(in).(map[string]any)
	if out["Authorization"] != "Bearer ****3456" {
		t.Fatalf("authorization = %v", out["Authorization"])
	}
	if out["nested"].(map[string]any)["api_key"] != "****" {
		t.Fatalf("short secret not fully masked: %v", out["nested"])
	}
	if out["list"].([]any)[0].(map[string]any)["token"] != "****8765" {
		t.Fatalf("list secret = %v", out["list"])
	}
	if out["plain"] != "visible" {
		t.Fatalf("plain value changed")
	}
	if RedactValue("   ") != "" {
		t.Fatalf("blank should stay blank")
	}
}
