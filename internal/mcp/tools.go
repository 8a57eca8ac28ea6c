package mcp

import (
	"encoding/json"
	"fmt"

	"codedup/internal/annotations"
	"codedup/internal/models"
)

// searchArgs is the shared filter argument shape for chunk-level tools.
type searchArgs struct {
	Repo               string   `json:"repo"`
	PathContains       string   `json:"path_contains"`
	Language           string   `json:"language"`
	NodeType           string   `json:"node_type"`
	Fingerprint        string   `json:"fingerprint"`
	TextContains       string   `json:"text_contains"`
	NormalizedContains string   `json:"normalized_contains"`
	ExcludeStatuses    []string `json:"exclude_statuses"`
	MinTokens          *int     `json:"min_tokens"`
	MaxTokens          *int     `json:"max_tokens"`
	MinLines           *int     `json:"min_lines"`
	MaxLines           *int     `json:"max_lines"`
	MinDupCount        *int     `json:"min_dup_count"`
	MaxDupCount        *int     `json:"max_dup_count"`
	Limit              int      `json:"limit"`
	Offset             int      `json:"offset"`
	SortBy             string   `json:"sort_by"`
	SortOrder          string   `json:"sort_order"`
}

func (a searchArgs) toParams() models.SearchParams {
	return models.SearchParams{
		Repo:               a.Repo,
		PathContains:       a.PathContains,
		Language:           a.Language,
		NodeType:           a.NodeType,
		Fingerprint:        a.Fingerprint,
		TextContains:       a.TextContains,
		NormalizedContains: a.NormalizedContains,
		ExcludeStatuses:    a.ExcludeStatuses,
		MinTokens:          a.MinTokens,
		MaxTokens:          a.MaxTokens,
		MinLines:           a.MinLines,
		MaxLines:           a.MaxLines,
		MinDupCount:        a.MinDupCount,
		MaxDupCount:        a.MaxDupCount,
		Limit:              a.Limit,
		Offset:             a.Offset,
		SortBy:             a.SortBy,
		SortOrder:          a.SortOrder,
	}
}

type toolHandlerFunc func(args json.RawMessage) (interface{}, error)

func (s *Server) toolHandler(name string) (toolHandlerFunc, bool) {
	switch name {
	case "search_chunks":
		return s.handleSearchChunks, true
	case "get_chunk_text":
		return s.handleGetChunkText, true
	case "list_duplicate_groups":
		return s.handleListDupGroups, true
	case "get_duplicate_group":
		return s.handleGetDupGroup, true
	case "list_duplicate_groups_filtered":
		return s.handleListDupGroupsFiltered, true
	case "get_duplicate_group_filtered":
		return s.handleGetDupGroupFiltered, true
	case "set_annotation":
		return s.handleSetAnnotation, true
	case "get_annotation":
		return s.handleGetAnnotation, true
	case "list_annotations":
		return s.handleListAnnotations, true
	}
	return nil, false
}

func (s *Server) handleSearchChunks(args json.RawMessage) (interface{}, error) {
	var input searchArgs
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	return s.engine.Search(input.toParams())
}

func (s *Server) handleGetChunkText(args json.RawMessage) (interface{}, error) {
	var input struct {
		ChunkID   string `json:"chunk_id"`
		MaxLength *int   `json:"max_length"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	if input.ChunkID == "" {
		return nil, fmt.Errorf("chunk_id is required")
	}
	maxLen := s.maxTextLen
	if input.MaxLength != nil {
		maxLen = *input.MaxLength
	}
	text, err := s.engine.GetChunkText(input.ChunkID, maxLen)
	if err != nil {
		return nil, err
	}
	if text == nil {
		return nil, fmt.Errorf("chunk not found: %s", input.ChunkID)
	}
	return text, nil
}

func (s *Server) handleListDupGroups(args json.RawMessage) (interface{}, error) {
	var input struct {
		MinCount    int `json:"min_count"`
		Limit       int `json:"limit"`
		Offset      int `json:"offset"`
		MaxChunkIDs int `json:"max_chunk_ids"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	return s.engine.ListDupGroups(models.DupListParams{
		MinCount:    input.MinCount,
		Limit:       input.Limit,
		Offset:      input.Offset,
		MaxChunkIDs: input.MaxChunkIDs,
	}), nil
}

func (s *Server) handleGetDupGroup(args json.RawMessage) (interface{}, error) {
	var input struct {
		Fingerprint   string `json:"fingerprint"`
		IncludeChunks bool   `json:"include_chunks"`
		MaxLength     *int   `json:"max_length"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	if input.Fingerprint == "" {
		return nil, fmt.Errorf("fingerprint is required")
	}
	maxLen := s.maxTextLen
	if input.MaxLength != nil {
		maxLen = *input.MaxLength
	}
	group, err := s.engine.GetDupGroup(input.Fingerprint, input.IncludeChunks, maxLen)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("duplicate group not found: %s", input.Fingerprint)
	}
	return group, nil
}

func (s *Server) handleListDupGroupsFiltered(args json.RawMessage) (interface{}, error) {
	var input struct {
		searchArgs
		MinCount int `json:"min_count"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	return s.engine.ListDupGroupsFiltered(input.toParams(), input.MinCount, input.Limit, input.Offset)
}

func (s *Server) handleGetDupGroupFiltered(args json.RawMessage) (interface{}, error) {
	var input struct {
		searchArgs
		MaxLength *int `json:"max_length"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	if input.Fingerprint == "" {
		return nil, fmt.Errorf("fingerprint is required")
	}
	maxLen := s.maxTextLen
	if input.MaxLength != nil {
		maxLen = *input.MaxLength
	}
	params := input.toParams()
	params.Fingerprint = ""
	group, err := s.engine.GetDupGroupFiltered(input.Fingerprint, params, maxLen)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("no group members match the filters: %s", input.Fingerprint)
	}
	return group, nil
}

func (s *Server) handleSetAnnotation(args json.RawMessage) (interface{}, error) {
	var input struct {
		TargetType    string  `json:"target_type"`
		TargetID      string  `json:"target_id"`
		Status        *string `json:"status"`
		Priority      *int    `json:"priority"`
		AIPriority    *int    `json:"ai_priority"`
		HumanPriority *int    `json:"human_priority"`
		Comment       *string `json:"comment"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	if input.TargetType != models.TargetChunk && input.TargetType != models.TargetDupGroup {
		return nil, fmt.Errorf("target_type must be %q or %q", models.TargetChunk, models.TargetDupGroup)
	}
	if input.TargetID == "" {
		return nil, fmt.Errorf("target_id is required")
	}
	ann, err := s.ann.Set(annotations.SetParams{
		TargetType:    input.TargetType,
		TargetID:      input.TargetID,
		Status:        input.Status,
		Priority:      input.Priority,
		AIPriority:    input.AIPriority,
		HumanPriority: input.HumanPriority,
		Comment:       input.Comment,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"annotation":             ann,
		"human_priority_allowed": s.ann.AllowHumanPriority(),
	}, nil
}

func (s *Server) handleGetAnnotation(args json.RawMessage) (interface{}, error) {
	var input struct {
		TargetType string `json:"target_type"`
		TargetID   string `json:"target_id"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	if input.TargetType == "" || input.TargetID == "" {
		return nil, fmt.Errorf("target_type and target_id are required")
	}
	ann, err := s.ann.Get(input.TargetType, input.TargetID)
	if err != nil {
		return nil, err
	}
	if ann == nil {
		return map[string]interface{}{"found": false}, nil
	}
	return ann, nil
}

func (s *Server) handleListAnnotations(args json.RawMessage) (interface{}, error) {
	var input struct {
		TargetType string `json:"target_type"`
		Status     string `json:"status"`
		Limit      int    `json:"limit"`
		Offset     int    `json:"offset"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	items, err := s.ann.List(annotations.ListParams{
		TargetType: input.TargetType,
		Status:     input.Status,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Annotation{}
	}
	return map[string]interface{}{"items": items, "count": len(items)}, nil
}
