package language

import "testing"

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"src/app.tsx", "tsx"},
		{"src/app.ts", "typescript"},
		{"lib/util.h", "c"},
		{"Service.java", "java"},
		{"SCRIPT.PY", "python"},
		{"deploy.yaml", "yaml"},
		{"README.md", ""},
		{"Makefile", ""},
	}
	for _, tt := range tests {
		if got := DetectLanguage(tt.path); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestForPath(t *testing.T) {
	t.Parallel()

	spec := ForPath("cmd/root.go")
	if spec == nil {
		t.Fatal("no spec for .go file")
	}
	if spec.Name != "go" {
		t.Fatalf("spec.Name = %q, want go", spec.Name)
	}
	if spec.Grammar == nil {
		t.Fatal("spec has no grammar")
	}
	if !spec.ChunkKinds["function_declaration"] {
		t.Fatal("go spec missing function_declaration chunk kind")
	}
	if spec.ChunkKinds["comment"] {
		t.Fatal("go spec treats comments as chunk-worthy")
	}

	if ForPath("notes.txt") != nil {
		t.Fatal("unsupported extension returned a spec")
	}
}

// Every registered language must resolve through at least one extension, and
// every extension must point at a registered language.
func TestExtensionSpecConsistency(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for ext, lang := range extToLang {
		spec := Lookup(lang)
		if spec == nil {
			t.Errorf("extension %s maps to unregistered language %q", ext, lang)
			continue
		}
		if spec.Name != lang {
			t.Errorf("spec name %q does not match key %q", spec.Name, lang)
		}
		seen[lang] = true
	}
	for lang := range specs {
		if !seen[lang] {
			t.Errorf("language %q is unreachable from any extension", lang)
		}
	}
}
