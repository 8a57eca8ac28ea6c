package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"codedup/internal/models"
)

// Query parameter parsing is best-effort: a malformed numeric value is
// treated as absent rather than rejecting the request.

func intParam(c *gin.Context, name string) *int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func intParamDefault(c *gin.Context, name string, fallback int) int {
	if v := intParam(c, name); v != nil {
		return *v
	}
	return fallback
}

func boolParam(c *gin.Context, name string) bool {
	switch strings.TrimSpace(c.Query(name)) {
	case "", "0", "false", "False", "FALSE", "no", "NO":
		return false
	}
	return true
}

// csvParam splits a comma-separated value list, dropping empty entries.
func csvParam(c *gin.Context, name string) []string {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func searchParams(c *gin.Context) models.SearchParams {
	return models.SearchParams{
		Repo:               c.Query("repo"),
		PathContains:       c.Query("path_contains"),
		Language:           c.Query("language"),
		NodeType:           c.Query("node_type"),
		Fingerprint:        c.Query("fingerprint"),
		TextContains:       c.Query("text_contains"),
		NormalizedContains: c.Query("normalized_contains"),
		ExcludeStatuses:    csvParam(c, "exclude_statuses"),
		MinTokens:          intParam(c, "min_tokens"),
		MaxTokens:          intParam(c, "max_tokens"),
		MinLines:           intParam(c, "min_lines"),
		MaxLines:           intParam(c, "max_lines"),
		MinDupCount:        intParam(c, "min_dup_count"),
		MaxDupCount:        intParam(c, "max_dup_count"),
		Limit:              intParamDefault(c, "limit", 50),
		Offset:             intParamDefault(c, "offset", 0),
		SortBy:             c.Query("sort_by"),
		SortOrder:          c.Query("sort_order"),
	}
}
