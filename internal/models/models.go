package models

// Chunk is a syntactic unit extracted from one source file. The JSON field
// names define the on-disk JSONL format and the vector-store payload keys.
type Chunk struct {
	ChunkID        string `json:"chunk_id"`
	Repo           string `json:"repo"`
	Path           string `json:"path"`
	Language       string `json:"language"`
	NodeType       string `json:"node_type"`
	ParentID       string `json:"parent_id"`
	Depth          int    `json:"depth"`
	StartByte      int    `json:"start_byte"`
	EndByte        int    `json:"end_byte"`
	StartLine      int    `json:"start_line"`
	EndLine        int    `json:"end_line"`
	RawText        string `json:"raw_text"`
	NormalizedText string `json:"normalized_text"`
	TokenEstimate  int    `json:"token_estimate"`
	Fingerprint    string `json:"fingerprint"`
}

// LineCount returns the inclusive 1-based line span of the chunk.
func (c *Chunk) LineCount() int {
	n := c.EndLine - c.StartLine + 1
	if n < 0 {
		return 0
	}
	return n
}

// ChunkSummary is the search-result projection of a chunk: no text bodies,
// plus the derived line count and the duplicate-group size of its fingerprint.
type ChunkSummary struct {
	ChunkID       string `json:"chunk_id"`
	Repo          string `json:"repo"`
	Path          string `json:"path"`
	Language      string `json:"language"`
	NodeType      string `json:"node_type"`
	StartLine     int    `json:"start_line"`
	EndLine       int    `json:"end_line"`
	LineCount     int    `json:"line_count"`
	TokenEstimate int    `json:"token_estimate"`
	Fingerprint   string `json:"fingerprint"`
	DupCount      int    `json:"dup_count"`
}

// ChunkDetail is a summary plus the (possibly truncated) raw text body.
type ChunkDetail struct {
	ChunkSummary
	RawText          string `json:"raw_text"`
	RawTextTruncated bool   `json:"raw_text_truncated"`
}

// ChunkText is the full-text retrieval shape for a single chunk id.
type ChunkText struct {
	ChunkID          string `json:"chunk_id"`
	Repo             string `json:"repo"`
	Path             string `json:"path"`
	Language         string `json:"language"`
	NodeType         string `json:"node_type"`
	StartLine        int    `json:"start_line"`
	EndLine          int    `json:"end_line"`
	RawText          string `json:"raw_text"`
	RawTextTruncated bool   `json:"raw_text_truncated"`
}

// DuplicateGroup is the set of chunks sharing one fingerprint. Groups are
// derived from the chunk corpus and only reported when Count >= 2. ChunkIDs
// is a bounded, order-stable sample of the members.
type DuplicateGroup struct {
	Fingerprint string        `json:"fingerprint"`
	Count       int           `json:"count"`
	ChunkIDs    []string      `json:"chunk_ids"`
	Chunks      []ChunkDetail `json:"chunks,omitempty"`
}

// Annotation is externally owned triage state for a chunk or duplicate
// group, keyed by (session, target_type, target_id).
type Annotation struct {
	SessionID     string  `json:"session_id"`
	TargetType    string  `json:"target_type"`
	TargetID      string  `json:"target_id"`
	Status        *string `json:"status"`
	HumanPriority *int    `json:"human_priority"`
	AIPriority    *int    `json:"ai_priority"`
	Comment       *string `json:"comment"`
	UpdatedAt     float64 `json:"updated_at"`
}

// Annotation target types.
const (
	TargetChunk    = "chunk"
	TargetDupGroup = "dup_group"
)

// Sort keys accepted by SearchParams.SortBy.
const (
	SortByDupCount      = "dup_count"
	SortByTokenEstimate = "token_estimate"
	SortByLineCount     = "line_count"
	SortByPath          = "path"
)

// SearchParams is the filter-criteria value for chunk search. String fields
// are unset when empty; numeric bounds are unset when nil. All set filters
// are conjoined.
type SearchParams struct {
	Repo               string
	PathContains       string
	Language           string
	NodeType           string
	Fingerprint        string
	TextContains       string
	NormalizedContains string
	ExcludeStatuses    []string
	MinTokens          *int
	MaxTokens          *int
	MinLines           *int
	MaxLines           *int
	MinDupCount        *int
	MaxDupCount        *int
	Limit              int
	Offset             int
	SortBy             string
	SortOrder          string
}

// WithoutDupCountFilters returns a copy with the duplicate-count bounds
// cleared. Filtered group listings recompute membership counts themselves, so
// keeping those bounds would be circular.
func (p SearchParams) WithoutDupCountFilters() SearchParams {
	p.MinDupCount = nil
	p.MaxDupCount = nil
	return p
}

// DupListParams controls plain duplicate-group listing.
type DupListParams struct {
	MinCount    int
	Limit       int
	Offset      int
	MaxChunkIDs int
}

// Page is the common list-response envelope.
type Page[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Offset int `json:"offset"`
}

// Stats is the summary artifact written after a corpus scan.
type Stats struct {
	FilesScanned    int              `json:"files_scanned"`
	ChunksExtracted int              `json:"chunks_extracted"`
	ByLanguage      map[string]int   `json:"by_language"`
	ByNodeType      map[string]int   `json:"by_node_type"`
	TokenBins       map[string]int   `json:"token_bins"`
	TopDupGroups    []DuplicateGroup `json:"exact_duplicate_fingerprint_groups_top"`
	DurationSeconds float64          `json:"duration_seconds"`
}
