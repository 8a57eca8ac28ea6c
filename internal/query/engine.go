// Package query answers filtered searches and duplicate-group lookups over
// the chunk corpus, joining in the externally owned annotation overlay by
// chunk id. It never mutates the corpus; every answer is derived per call
// from the selected Source, the duplicate-count cache, and the overlay.
package query

import (
	"sort"
	"strings"
	"unicode/utf8"

	"codedup/internal/annotations"
	"codedup/internal/models"
)

const (
	// DefaultMaxTextLen bounds raw-text payloads unless the caller asks
	// otherwise.
	DefaultMaxTextLen = 2000

	// filteredGroupSampleSize caps member-id samples in filtered listings.
	filteredGroupSampleSize = 5
)

// Engine is the query/join layer. It is read-mostly and stateless per call
// except for the duplicate-count cache.
type Engine struct {
	source Source
	dups   *DupCache
	ann    *annotations.Store
}

func NewEngine(source Source, dups *DupCache, ann *annotations.Store) *Engine {
	return &Engine{source: source, dups: dups, ann: ann}
}

// DupCounts exposes the current fingerprint → group-size map.
func (e *Engine) DupCounts() map[string]int {
	return e.dups.Counts()
}

// statusOverlay loads the exclusion overlay for the given statuses; nil and
// empty sets both mean "exclude nothing". Overlay load failures degrade to
// no exclusion rather than failing the search.
func (e *Engine) statusOverlay(statuses []string) map[string]string {
	if e.ann == nil || len(statuses) == 0 {
		return nil
	}
	overlay, err := e.ann.StatusMap(models.TargetChunk, statuses)
	if err != nil {
		return nil
	}
	return overlay
}

// matches applies the conjunction of all set filters to one chunk.
func matches(c *models.Chunk, p models.SearchParams, dupCounts map[string]int, overlay map[string]string) bool {
	if p.Repo != "" && c.Repo != p.Repo {
		return false
	}
	if p.PathContains != "" && !strings.Contains(c.Path, p.PathContains) {
		return false
	}
	if p.Language != "" && c.Language != p.Language {
		return false
	}
	if p.NodeType != "" && c.NodeType != p.NodeType {
		return false
	}
	if p.Fingerprint != "" && c.Fingerprint != p.Fingerprint {
		return false
	}
	if p.MinTokens != nil && c.TokenEstimate < *p.MinTokens {
		return false
	}
	if p.MaxTokens != nil && c.TokenEstimate > *p.MaxTokens {
		return false
	}
	if p.TextContains != "" && !strings.Contains(strings.ToLower(c.RawText), strings.ToLower(p.TextContains)) {
		return false
	}
	if p.NormalizedContains != "" && !strings.Contains(strings.ToLower(c.NormalizedText), strings.ToLower(p.NormalizedContains)) {
		return false
	}
	lines := c.LineCount()
	if p.MinLines != nil && lines < *p.MinLines {
		return false
	}
	if p.MaxLines != nil && lines > *p.MaxLines {
		return false
	}
	if p.MinDupCount != nil && dupCount(dupCounts, c.Fingerprint) < *p.MinDupCount {
		return false
	}
	if p.MaxDupCount != nil && dupCount(dupCounts, c.Fingerprint) > *p.MaxDupCount {
		return false
	}
	if overlay != nil {
		if _, excluded := overlay[c.ChunkID]; excluded {
			return false
		}
	}
	return true
}

// dupCount treats a fingerprint absent from the index as a group of one.
func dupCount(counts map[string]int, fp string) int {
	if n, ok := counts[fp]; ok {
		return n
	}
	return 1
}

func summarize(c *models.Chunk, dupCounts map[string]int) models.ChunkSummary {
	return models.ChunkSummary{
		ChunkID:       c.ChunkID,
		Repo:          c.Repo,
		Path:          c.Path,
		Language:      c.Language,
		NodeType:      c.NodeType,
		StartLine:     c.StartLine,
		EndLine:       c.EndLine,
		LineCount:     c.LineCount(),
		TokenEstimate: c.TokenEstimate,
		Fingerprint:   c.Fingerprint,
		DupCount:      dupCount(dupCounts, c.Fingerprint),
	}
}

// Search pages over matching chunks. Without a sort key it streams the
// corpus, skipping Offset matches and collecting up to Limit. With a sort
// key it materializes every match first and slices after a stable sort,
// since a global ordering cannot be paged from a stream.
func (e *Engine) Search(p models.SearchParams) (models.Page[models.ChunkSummary], error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	dupCounts := e.dups.Counts()
	overlay := e.statusOverlay(p.ExcludeStatuses)

	page := models.Page[models.ChunkSummary]{Items: []models.ChunkSummary{}, Offset: p.Offset}

	if p.SortBy != "" {
		var all []models.ChunkSummary
		err := e.source.ForEach(p.Repo, func(c *models.Chunk) bool {
			if matches(c, p, dupCounts, overlay) {
				all = append(all, summarize(c, dupCounts))
			}
			return true
		})
		if err != nil {
			return page, err
		}
		sortSummaries(all, p.SortBy, p.SortOrder)
		page.Items = slicePage(all, p.Offset, p.Limit)
		page.Count = len(page.Items)
		return page, nil
	}

	skipped := 0
	err := e.source.ForEach(p.Repo, func(c *models.Chunk) bool {
		if !matches(c, p, dupCounts, overlay) {
			return true
		}
		if skipped < p.Offset {
			skipped++
			return true
		}
		page.Items = append(page.Items, summarize(c, dupCounts))
		return len(page.Items) < p.Limit
	})
	if err != nil {
		return page, err
	}
	page.Count = len(page.Items)
	return page, nil
}

func sortSummaries(items []models.ChunkSummary, key, order string) {
	asc := order == "asc"
	var less func(a, b models.ChunkSummary) bool
	switch key {
	case models.SortByDupCount:
		less = func(a, b models.ChunkSummary) bool { return a.DupCount < b.DupCount }
	case models.SortByTokenEstimate:
		less = func(a, b models.ChunkSummary) bool { return a.TokenEstimate < b.TokenEstimate }
	case models.SortByLineCount:
		less = func(a, b models.ChunkSummary) bool { return a.LineCount < b.LineCount }
	default:
		less = func(a, b models.ChunkSummary) bool { return a.Path < b.Path }
	}
	sort.SliceStable(items, func(i, j int) bool {
		if asc {
			return less(items[i], items[j])
		}
		return less(items[j], items[i])
	})
}

func slicePage[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// GetChunkText returns one chunk with its raw text truncated to maxLength
// runes, or nil when the id is unknown.
func (e *Engine) GetChunkText(chunkID string, maxLength int) (*models.ChunkText, error) {
	c, err := e.source.FetchByID(chunkID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	text, truncated := truncate(c.RawText, maxLength)
	return &models.ChunkText{
		ChunkID:          c.ChunkID,
		Repo:             c.Repo,
		Path:             c.Path,
		Language:         c.Language,
		NodeType:         c.NodeType,
		StartLine:        c.StartLine,
		EndLine:          c.EndLine,
		RawText:          text,
		RawTextTruncated: truncated,
	}, nil
}

func truncate(text string, maxLen int) (string, bool) {
	if maxLen <= 0 {
		return "", text != ""
	}
	if utf8.RuneCountInString(text) <= maxLen {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:maxLen]) + "\n...[truncated]...", true
}

// ListDupGroups pages over the precomputed duplicate index, independent of
// chunk-level filters.
func (e *Engine) ListDupGroups(p models.DupListParams) models.Page[models.DuplicateGroup] {
	if p.MinCount <= 0 {
		p.MinCount = 2
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.MaxChunkIDs <= 0 {
		p.MaxChunkIDs = 50
	}

	page := models.Page[models.DuplicateGroup]{Items: []models.DuplicateGroup{}, Offset: p.Offset}
	skipped := 0
	forEachGroup(e.dups.path, func(g *models.DuplicateGroup) bool {
		if g.Count < p.MinCount {
			return true
		}
		if skipped < p.Offset {
			skipped++
			return true
		}
		ids := g.ChunkIDs
		if len(ids) > p.MaxChunkIDs {
			ids = ids[:p.MaxChunkIDs]
		}
		page.Items = append(page.Items, models.DuplicateGroup{
			Fingerprint: g.Fingerprint,
			Count:       g.Count,
			ChunkIDs:    ids,
		})
		return len(page.Items) < p.Limit
	})
	page.Count = len(page.Items)
	return page
}

// GetDupGroup returns one group by fingerprint, optionally with per-member
// detail. nil means the fingerprint is not in the index.
func (e *Engine) GetDupGroup(fp string, includeChunks bool, chunkTextMax int) (*models.DuplicateGroup, error) {
	var found *models.DuplicateGroup
	forEachGroup(e.dups.path, func(g *models.DuplicateGroup) bool {
		if g.Fingerprint != fp {
			return true
		}
		found = &models.DuplicateGroup{
			Fingerprint: g.Fingerprint,
			Count:       g.Count,
			ChunkIDs:    g.ChunkIDs,
		}
		return false
	})
	if found == nil {
		return nil, nil
	}
	if !includeChunks {
		return found, nil
	}

	dupCounts := e.dups.Counts()
	for _, id := range found.ChunkIDs {
		c, err := e.source.FetchByID(id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		found.Chunks = append(found.Chunks, detail(c, dupCounts, chunkTextMax))
	}
	return found, nil
}

func detail(c *models.Chunk, dupCounts map[string]int, maxLen int) models.ChunkDetail {
	text, truncated := truncate(c.RawText, maxLen)
	return models.ChunkDetail{
		ChunkSummary:     summarize(c, dupCounts),
		RawText:          text,
		RawTextTruncated: truncated,
	}
}

// ListDupGroupsFiltered recomputes group membership after applying the
// chunk-level search filters (dup-count bounds excluded, they would be
// circular), then applies minCount. This answers "how many duplicates remain
// visible under the current triage view".
func (e *Engine) ListDupGroupsFiltered(p models.SearchParams, minCount, limit, offset int) (models.Page[models.DuplicateGroup], error) {
	if minCount <= 0 {
		minCount = 2
	}
	if limit <= 0 {
		limit = 50
	}
	base := p.WithoutDupCountFilters()
	dupCounts := e.dups.Counts()
	overlay := e.statusOverlay(base.ExcludeStatuses)

	counts := make(map[string]int)
	samples := make(map[string][]string)
	err := e.source.ForEach(base.Repo, func(c *models.Chunk) bool {
		if !matches(c, base, dupCounts, overlay) {
			return true
		}
		if c.Fingerprint == "" {
			return true
		}
		counts[c.Fingerprint]++
		if len(samples[c.Fingerprint]) < filteredGroupSampleSize && c.ChunkID != "" {
			samples[c.Fingerprint] = append(samples[c.Fingerprint], c.ChunkID)
		}
		return true
	})
	page := models.Page[models.DuplicateGroup]{Items: []models.DuplicateGroup{}, Offset: offset}
	if err != nil {
		return page, err
	}

	var groups []models.DuplicateGroup
	for fp, cnt := range counts {
		if cnt < minCount {
			continue
		}
		groups = append(groups, models.DuplicateGroup{
			Fingerprint: fp,
			Count:       cnt,
			ChunkIDs:    samples[fp],
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Fingerprint < groups[j].Fingerprint
	})

	page.Items = slicePage(groups, offset, limit)
	page.Count = len(page.Items)
	return page, nil
}

// GetDupGroupFiltered returns the group for fp as seen through the given
// chunk filters, with full member detail. nil when no member survives the
// filters.
func (e *Engine) GetDupGroupFiltered(fp string, p models.SearchParams, chunkTextMax int) (*models.DuplicateGroup, error) {
	base := p.WithoutDupCountFilters()
	dupCounts := e.dups.Counts()
	overlay := e.statusOverlay(base.ExcludeStatuses)

	group := &models.DuplicateGroup{Fingerprint: fp, ChunkIDs: []string{}}
	err := e.source.ForEach(base.Repo, func(c *models.Chunk) bool {
		if c.Fingerprint != fp {
			return true
		}
		if !matches(c, base, dupCounts, overlay) {
			return true
		}
		group.Count++
		group.ChunkIDs = append(group.ChunkIDs, c.ChunkID)
		group.Chunks = append(group.Chunks, detail(c, dupCounts, chunkTextMax))
		return true
	})
	if err != nil {
		return nil, err
	}
	if group.Count == 0 {
		return nil, nil
	}
	return group, nil
}
