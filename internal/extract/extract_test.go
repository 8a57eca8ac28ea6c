package extract

import (
	"testing"
	"unicode/utf8"

	"codedup/internal/fingerprint"
	"codedup/internal/language"
	"codedup/internal/models"
)

var goSource = []byte(`package demo

func alpha(items []int) int {
	total := 0
	for _, v := range items {
		total += v
	}
	return total
}

func beta(values []int) int {
	acc := 0
	for _, v := range values {
		acc += v
	}
	return acc
}
`)

func extractGo(t *testing.T, src []byte, minChars, maxChars int) []models.Chunk {
	t.Helper()
	spec := language.Lookup("go")
	if spec == nil {
		t.Fatal("go language spec not registered")
	}
	chunks, err := File(src, "src/demo.go", spec, Options{
		Repo:     "demo",
		MinChars: minChars,
		MaxChars: maxChars,
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return chunks
}

func functionsOf(chunks []models.Chunk) []models.Chunk {
	var out []models.Chunk
	for _, c := range chunks {
		if c.NodeType == "function_declaration" {
			out = append(out, c)
		}
	}
	return out
}

func TestExtractDuplicateFunctions(t *testing.T) {
	t.Parallel()

	chunks := extractGo(t, goSource, 10, 10000)
	fns := functionsOf(chunks)
	if len(fns) != 2 {
		t.Fatalf("got %d function chunks, want 2", len(fns))
	}

	if fns[0].ChunkID == fns[1].ChunkID {
		t.Fatal("distinct spans produced the same chunk id")
	}
	// The two functions differ only in identifier names, so they are exact
	// duplicates after normalization.
	if fns[0].Fingerprint != fns[1].Fingerprint {
		t.Fatalf("renamed copies got different fingerprints:\n%q\n%q",
			fns[0].NormalizedText, fns[1].NormalizedText)
	}

	for _, c := range chunks {
		if c.StartByte >= c.EndByte {
			t.Fatalf("chunk %s has empty span [%d, %d)", c.NodeType, c.StartByte, c.EndByte)
		}
		if c.Repo != "demo" || c.Path != "src/demo.go" || c.Language != "go" {
			t.Fatalf("chunk metadata wrong: %+v", c)
		}
	}
}

func TestExtractLineNumbers(t *testing.T) {
	t.Parallel()

	chunks := extractGo(t, goSource, 10, 10000)
	fns := functionsOf(chunks)
	if len(fns) != 2 {
		t.Fatalf("got %d function chunks, want 2", len(fns))
	}

	if fns[0].StartLine != 3 || fns[0].EndLine != 9 {
		t.Fatalf("first function spans lines %d-%d, want 3-9", fns[0].StartLine, fns[0].EndLine)
	}
	if fns[1].StartLine != 11 || fns[1].EndLine != 17 {
		t.Fatalf("second function spans lines %d-%d, want 11-17", fns[1].StartLine, fns[1].EndLine)
	}
	if got := fns[0].LineCount(); got != 7 {
		t.Fatalf("LineCount = %d, want 7", got)
	}
}

func TestExtractParentLinkage(t *testing.T) {
	t.Parallel()

	chunks := extractGo(t, goSource, 10, 10000)
	fns := functionsOf(chunks)
	if len(fns) == 0 {
		t.Fatal("no function chunks")
	}

	fn := fns[0]
	wantParent := fingerprint.AncestorID(fn.Path, fn.StartByte, fn.EndByte)

	var body *models.Chunk
	for i := range chunks {
		if chunks[i].NodeType == "block" && chunks[i].ParentID == wantParent {
			body = &chunks[i]
			break
		}
	}
	if body == nil {
		t.Fatal("function body block is not linked to the function's ancestor id")
	}
	if body.Depth <= fn.Depth {
		t.Fatalf("body depth %d not below function depth %d", body.Depth, fn.Depth)
	}
}

// A node dropped by the size window must still anchor its descendants'
// parent_id, so linkage is stable across window settings.
func TestExtractParentSurvivesSizeFilter(t *testing.T) {
	t.Parallel()

	wide := extractGo(t, goSource, 10, 10000)
	fns := functionsOf(wide)
	if len(fns) == 0 {
		t.Fatal("no function chunks in wide extraction")
	}
	fn := fns[0]
	wantParent := fingerprint.AncestorID(fn.Path, fn.StartByte, fn.EndByte)

	// Shrink the window so the function itself no longer fits.
	maxChars := utf8.RuneCountInString(fn.RawText) - 1
	narrow := extractGo(t, goSource, 10, maxChars)

	for _, c := range narrow {
		if c.NodeType == "function_declaration" && c.StartByte == fn.StartByte {
			t.Fatal("oversized function chunk was not filtered")
		}
	}

	found := false
	for _, c := range narrow {
		if c.ParentID == wantParent {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("filtered-out function no longer anchors its children's parent_id")
	}
}
