package config

import (
	"path/filepath"
	"testing"
)

func TestGetInt(t *testing.T) {
	t.Setenv("CODEDUP_TEST_INT", "42")
	if got := GetInt("CODEDUP_TEST_INT", 7); got != 42 {
		t.Fatalf("GetInt = %d, want 42", got)
	}

	t.Setenv("CODEDUP_TEST_INT", "not a number")
	if got := GetInt("CODEDUP_TEST_INT", 7); got != 7 {
		t.Fatalf("malformed value: GetInt = %d, want fallback 7", got)
	}

	if got := GetInt("CODEDUP_TEST_UNSET", 7); got != 7 {
		t.Fatalf("unset value: GetInt = %d, want fallback 7", got)
	}
}

func TestGetBool(t *testing.T) {
	for _, falsy := range []string{"0", "false", "False", "FALSE", "no", "NO"} {
		t.Setenv("CODEDUP_TEST_BOOL", falsy)
		if GetBool("CODEDUP_TEST_BOOL", true) {
			t.Errorf("GetBool(%q) = true, want false", falsy)
		}
	}
	// Anything else counts as true.
	for _, truthy := range []string{"1", "true", "yes", "banana"} {
		t.Setenv("CODEDUP_TEST_BOOL", truthy)
		if !GetBool("CODEDUP_TEST_BOOL", false) {
			t.Errorf("GetBool(%q) = false, want true", truthy)
		}
	}
	if !GetBool("CODEDUP_TEST_UNSET", true) {
		t.Error("unset value must yield the fallback")
	}
}

func TestGetFirstNonEmpty(t *testing.T) {
	t.Setenv("CODEDUP_TEST_A", "")
	t.Setenv("CODEDUP_TEST_B", "second")
	if got := Get("CODEDUP_TEST_A", "CODEDUP_TEST_B"); got != "second" {
		t.Fatalf("Get = %q, want second", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INPUT_DIR", "/tmp/src")
	t.Setenv("OUTPUT_DIR", "/tmp/out")

	cfg := Load()
	if cfg.Repo != "src" {
		t.Fatalf("Repo = %q, want base of input dir", cfg.Repo)
	}
	if cfg.MinChunkChars != 120 || cfg.MaxChunkChars != 12000 {
		t.Fatalf("size window = %d-%d, want 120-12000", cfg.MinChunkChars, cfg.MaxChunkChars)
	}
	if cfg.Collection != "code_chunks" {
		t.Fatalf("Collection = %q", cfg.Collection)
	}
	if cfg.SessionID != "default" {
		t.Fatalf("SessionID = %q", cfg.SessionID)
	}
	if got := cfg.ChunksPath(); got != filepath.Join("/tmp/out", "chunks.jsonl") {
		t.Fatalf("ChunksPath = %q", got)
	}
	if got := cfg.DupsPath(); got != filepath.Join("/tmp/out", "candidates_exact_dups.jsonl") {
		t.Fatalf("DupsPath = %q", got)
	}
}

func TestRepoNameOverride(t *testing.T) {
	t.Setenv("INPUT_DIR", "/tmp/src")
	t.Setenv("REPO_NAME", "custom-repo")

	cfg := Load()
	if cfg.Repo != "custom-repo" {
		t.Fatalf("Repo = %q, want custom-repo", cfg.Repo)
	}
}
