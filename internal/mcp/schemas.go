package mcp

// toolSchemas returns the tools/list payload. Schemas mirror the handler
// argument shapes in tools.go.
func toolSchemas() []map[string]interface{} {
	strProp := map[string]string{"type": "string"}
	intProp := map[string]string{"type": "integer"}
	boolProp := map[string]string{"type": "boolean"}
	strArrayProp := map[string]interface{}{
		"type":  "array",
		"items": map[string]string{"type": "string"},
	}

	filterProps := map[string]interface{}{
		"repo":                strProp,
		"path_contains":       strProp,
		"language":            strProp,
		"node_type":           strProp,
		"fingerprint":         strProp,
		"text_contains":       strProp,
		"normalized_contains": strProp,
		"exclude_statuses":    strArrayProp,
		"min_tokens":          intProp,
		"max_tokens":          intProp,
		"min_lines":           intProp,
		"max_lines":           intProp,
		"min_dup_count":       intProp,
		"max_dup_count":       intProp,
		"limit":               intProp,
		"offset":              intProp,
		"sort_by":             strProp,
		"sort_order":          strProp,
	}

	withFilter := func(extra map[string]interface{}) map[string]interface{} {
		props := make(map[string]interface{}, len(filterProps)+len(extra))
		for k, v := range filterProps {
			props[k] = v
		}
		for k, v := range extra {
			props[k] = v
		}
		return props
	}

	return []map[string]interface{}{
		{
			"name":        "search_chunks",
			"description": "Search extracted code chunks with structural and text filters",
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": filterProps,
			},
		},
		{
			"name":        "get_chunk_text",
			"description": "Fetch one chunk's raw source text by chunk id",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"chunk_id":   strProp,
					"max_length": intProp,
				},
				"required": []string{"chunk_id"},
			},
		},
		{
			"name":        "list_duplicate_groups",
			"description": "List exact-duplicate chunk groups from the precomputed index, largest first",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"min_count":     intProp,
					"limit":         intProp,
					"offset":        intProp,
					"max_chunk_ids": intProp,
				},
			},
		},
		{
			"name":        "get_duplicate_group",
			"description": "Fetch one duplicate group by fingerprint, optionally with member chunk details",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"fingerprint":    strProp,
					"include_chunks": boolProp,
					"max_length":     intProp,
				},
				"required": []string{"fingerprint"},
			},
		},
		{
			"name":        "list_duplicate_groups_filtered",
			"description": "List duplicate groups with member counts recomputed under chunk filters",
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": withFilter(map[string]interface{}{"min_count": intProp}),
			},
		},
		{
			"name":        "get_duplicate_group_filtered",
			"description": "Fetch one duplicate group as seen through chunk filters, with member details",
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": withFilter(map[string]interface{}{"max_length": intProp}),
				"required":   []string{"fingerprint"},
			},
		},
		{
			"name":        "set_annotation",
			"description": "Create or update triage state (status, priorities, comment) for a chunk or duplicate group",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"target_type":    map[string]interface{}{"type": "string", "enum": []string{"chunk", "dup_group"}},
					"target_id":      strProp,
					"status":         strProp,
					"priority":       intProp,
					"ai_priority":    intProp,
					"human_priority": intProp,
					"comment":        strProp,
				},
				"required": []string{"target_type", "target_id"},
			},
		},
		{
			"name":        "get_annotation",
			"description": "Fetch the annotation for one chunk or duplicate group",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"target_type": strProp,
					"target_id":   strProp,
				},
				"required": []string{"target_type", "target_id"},
			},
		},
		{
			"name":        "list_annotations",
			"description": "List annotations for the current session, newest first",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"target_type": strProp,
					"status":      strProp,
					"limit":       intProp,
					"offset":      intProp,
				},
			},
		},
	}
}
