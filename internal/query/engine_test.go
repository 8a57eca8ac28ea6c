package query

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"codedup/internal/annotations"
	"codedup/internal/models"
)

func writeJSONLines(t *testing.T, path string, records ...any) {
	t.Helper()
	var b strings.Builder
	for _, r := range records {
		data, err := json.Marshal(r)
		require.NoError(t, err)
		b.Write(data)
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func fixtureChunks() []models.Chunk {
	return []models.Chunk{
		{
			ChunkID: "c1", Repo: "demo", Path: "a/one.go", Language: "go",
			NodeType: "function_declaration", StartLine: 1, EndLine: 10,
			RawText: "func one() { helperAlpha() }", NormalizedText: "func ID ( ) { ID ( ) }",
			TokenEstimate: 9, Fingerprint: "fpA",
		},
		{
			ChunkID: "c2", Repo: "demo", Path: "b/two.go", Language: "go",
			NodeType: "function_declaration", StartLine: 5, EndLine: 14,
			RawText: "func two() { helperBeta() }", NormalizedText: "func ID ( ) { ID ( ) }",
			TokenEstimate: 9, Fingerprint: "fpA",
		},
		{
			ChunkID: "c3", Repo: "demo", Path: "a/three.py", Language: "python",
			NodeType: "function_definition", StartLine: 1, EndLine: 3,
			RawText: "def render_widget():\n    return Widget()", NormalizedText: "def ID ( ) : return ID ( )",
			TokenEstimate: 4, Fingerprint: "fpB",
		},
		{
			ChunkID: "c4", Repo: "demo", Path: "c/four.py", Language: "python",
			NodeType: "class_definition", StartLine: 1, EndLine: 30,
			RawText: "class Exporter:\n    pass", NormalizedText: "class ID : ID",
			TokenEstimate: 50, Fingerprint: "fpC",
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, *annotations.Store) {
	t.Helper()
	dir := t.TempDir()

	chunksPath := filepath.Join(dir, "chunks.jsonl")
	chunks := fixtureChunks()
	records := make([]any, len(chunks))
	for i := range chunks {
		records[i] = chunks[i]
	}
	writeJSONLines(t, chunksPath, records...)

	dupsPath := filepath.Join(dir, "candidates_exact_dups.jsonl")
	writeJSONLines(t, dupsPath, models.DuplicateGroup{
		Fingerprint: "fpA", Count: 2, ChunkIDs: []string{"c1", "c2"},
	})

	store, err := annotations.Open(filepath.Join(dir, "progress.sqlite"), "test", true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewEngine(NewFileSource(chunksPath), NewDupCache(dupsPath), store), store
}

func ids(page models.Page[models.ChunkSummary]) []string {
	out := make([]string, 0, len(page.Items))
	for _, it := range page.Items {
		out = append(out, it.ChunkID)
	}
	return out
}

func TestSearchFilters(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	page, err := e.Search(models.SearchParams{Language: "python"})
	require.NoError(t, err)
	require.Equal(t, []string{"c3", "c4"}, ids(page))

	page, err = e.Search(models.SearchParams{PathContains: "a/"})
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c3"}, ids(page))

	// Raw-text matching is case-insensitive.
	page, err = e.Search(models.SearchParams{TextContains: "widget"})
	require.NoError(t, err)
	require.Equal(t, []string{"c3"}, ids(page))

	two := 2
	page, err = e.Search(models.SearchParams{MinDupCount: &two})
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, ids(page))

	ten := 10
	page, err = e.Search(models.SearchParams{MinTokens: &ten})
	require.NoError(t, err)
	require.Equal(t, []string{"c4"}, ids(page))

	page, err = e.Search(models.SearchParams{Language: "rust"})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Equal(t, 0, page.Count)
}

func TestSearchDupCountsJoined(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	page, err := e.Search(models.SearchParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)
	byID := make(map[string]models.ChunkSummary)
	for _, it := range page.Items {
		byID[it.ChunkID] = it
	}
	require.Equal(t, 2, byID["c1"].DupCount)
	require.Equal(t, 2, byID["c2"].DupCount)
	// Fingerprints outside the index count as a group of one.
	require.Equal(t, 1, byID["c3"].DupCount)
	require.Equal(t, 10, byID["c1"].LineCount)
}

func TestSearchPagination(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	page, err := e.Search(models.SearchParams{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, ids(page))

	page, err = e.Search(models.SearchParams{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"c2", "c3"}, ids(page))
	require.Equal(t, 1, page.Offset)
}

func TestSearchSorted(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	// Default direction is descending.
	page, err := e.Search(models.SearchParams{SortBy: models.SortByTokenEstimate})
	require.NoError(t, err)
	require.Equal(t, "c4", page.Items[0].ChunkID)
	require.Equal(t, "c3", page.Items[len(page.Items)-1].ChunkID)

	page, err = e.Search(models.SearchParams{SortBy: models.SortByTokenEstimate, SortOrder: "asc"})
	require.NoError(t, err)
	require.Equal(t, "c3", page.Items[0].ChunkID)

	// Ties keep corpus order under the stable sort.
	page, err = e.Search(models.SearchParams{SortBy: models.SortByDupCount, SortOrder: "asc"})
	require.NoError(t, err)
	require.Equal(t, []string{"c3", "c4", "c1", "c2"}, ids(page))
}

func TestSearchExcludeStatuses(t *testing.T) {
	t.Parallel()
	e, store := newTestEngine(t)

	status := "ignored"
	_, err := store.Set(annotations.SetParams{
		TargetType: models.TargetChunk, TargetID: "c1", Status: &status,
	})
	require.NoError(t, err)

	page, err := e.Search(models.SearchParams{ExcludeStatuses: []string{"ignored"}})
	require.NoError(t, err)
	require.Equal(t, []string{"c2", "c3", "c4"}, ids(page))

	// Without the exclusion the chunk is still visible.
	page, err = e.Search(models.SearchParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)
}

func TestGetChunkText(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	text, err := e.GetChunkText("c1", 2000)
	require.NoError(t, err)
	require.NotNil(t, text)
	require.Equal(t, "func one() { helperAlpha() }", text.RawText)
	require.False(t, text.RawTextTruncated)

	text, err = e.GetChunkText("c1", 8)
	require.NoError(t, err)
	require.Equal(t, "func one\n...[truncated]...", text.RawText)
	require.True(t, text.RawTextTruncated)

	text, err = e.GetChunkText("missing", 2000)
	require.NoError(t, err)
	require.Nil(t, text)
}

func TestListDupGroups(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	page := e.ListDupGroups(models.DupListParams{})
	require.Len(t, page.Items, 1)
	require.Equal(t, "fpA", page.Items[0].Fingerprint)
	require.Equal(t, 2, page.Items[0].Count)
	require.Equal(t, []string{"c1", "c2"}, page.Items[0].ChunkIDs)

	page = e.ListDupGroups(models.DupListParams{MinCount: 3})
	require.Empty(t, page.Items)

	page = e.ListDupGroups(models.DupListParams{MaxChunkIDs: 1})
	require.Equal(t, []string{"c1"}, page.Items[0].ChunkIDs)
	require.Equal(t, 2, page.Items[0].Count, "count must reflect the full group, not the sample")
}

func TestGetDupGroup(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	group, err := e.GetDupGroup("fpA", false, 2000)
	require.NoError(t, err)
	require.NotNil(t, group)
	require.Equal(t, 2, group.Count)
	require.Nil(t, group.Chunks)

	group, err = e.GetDupGroup("fpA", true, 2000)
	require.NoError(t, err)
	require.Len(t, group.Chunks, 2)
	require.Equal(t, "func one() { helperAlpha() }", group.Chunks[0].RawText)

	group, err = e.GetDupGroup("nope", false, 2000)
	require.NoError(t, err)
	require.Nil(t, group)
}

// Filtered listings recompute counts from the chunks visible under the
// filters, so a group can shrink below the minimum and disappear.
func TestListDupGroupsFiltered(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	page, err := e.ListDupGroupsFiltered(models.SearchParams{}, 2, 50, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "fpA", page.Items[0].Fingerprint)
	require.Equal(t, 2, page.Items[0].Count)

	page, err = e.ListDupGroupsFiltered(models.SearchParams{PathContains: "a/"}, 2, 50, 0)
	require.NoError(t, err)
	require.Empty(t, page.Items, "group with one surviving member must fall below min_count")

	page, err = e.ListDupGroupsFiltered(models.SearchParams{PathContains: "a/"}, 1, 50, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	// Equal counts fall back to fingerprint order.
	require.Equal(t, "fpA", page.Items[0].Fingerprint)
	require.Equal(t, "fpB", page.Items[1].Fingerprint)
}

func TestGetDupGroupFiltered(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	group, err := e.GetDupGroupFiltered("fpA", models.SearchParams{PathContains: "a/"}, 2000)
	require.NoError(t, err)
	require.NotNil(t, group)
	require.Equal(t, 1, group.Count)
	require.Equal(t, []string{"c1"}, group.ChunkIDs)
	require.Len(t, group.Chunks, 1)

	group, err = e.GetDupGroupFiltered("fpA", models.SearchParams{Language: "python"}, 2000)
	require.NoError(t, err)
	require.Nil(t, group)
}
