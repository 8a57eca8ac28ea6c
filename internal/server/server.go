// Package server exposes the query/join layer over HTTP. Handlers are thin:
// parameter parsing, one engine or store call, JSON out. Not-found answers
// are 404s with a JSON body; engine failures are 500s.
package server

import (
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"codedup/internal/annotations"
	"codedup/internal/models"
	"codedup/internal/query"
)

type Server struct {
	engine     *query.Engine
	ann        *annotations.Store
	statsPath  string
	maxTextLen int
}

func New(engine *query.Engine, ann *annotations.Store, statsPath string, maxTextLen int) *Server {
	if maxTextLen <= 0 {
		maxTextLen = query.DefaultMaxTextLen
	}
	return &Server{engine: engine, ann: ann, statsPath: statsPath, maxTextLen: maxTextLen}
}

// Router builds the route table. gin's default logger is replaced so request
// logs share the process logger's format.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	api.GET("/stats", s.handleStats)
	api.GET("/chunks/search", s.handleSearch)
	api.GET("/chunks/text", s.handleChunkText)
	api.GET("/dups/list", s.handleDupList)
	api.GET("/dups/get", s.handleDupGet)
	api.GET("/dups/list_filtered", s.handleDupListFiltered)
	api.GET("/dups/get_filtered", s.handleDupGetFiltered)
	api.POST("/annotations/set", s.handleAnnotationSet)
	api.GET("/annotations/get", s.handleAnnotationGet)
	api.GET("/annotations/list", s.handleAnnotationList)

	return r
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	log.Info("HTTP API listening", "addr", addr)
	return s.Router().Run(addr)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                 "ok",
		"session_id":             s.ann.Session(),
		"human_priority_allowed": s.ann.AllowHumanPriority(),
		"default_max_text_len":   s.maxTextLen,
	})
}

// handleStats serves the scan summary artifact verbatim. No scan yet means no
// stats.
func (s *Server) handleStats(c *gin.Context) {
	data, err := os.ReadFile(s.statsPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no stats available; run a scan first"})
			return
		}
		serverError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleSearch(c *gin.Context) {
	page, err := s.engine.Search(searchParams(c))
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleChunkText(c *gin.Context) {
	chunkID := c.Query("chunk_id")
	if chunkID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chunk_id is required"})
		return
	}
	text, err := s.engine.GetChunkText(chunkID, intParamDefault(c, "max_length", s.maxTextLen))
	if err != nil {
		serverError(c, err)
		return
	}
	if text == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chunk not found", "chunk_id": chunkID})
		return
	}
	c.JSON(http.StatusOK, text)
}

func (s *Server) handleDupList(c *gin.Context) {
	page := s.engine.ListDupGroups(models.DupListParams{
		MinCount:    intParamDefault(c, "min_count", 2),
		Limit:       intParamDefault(c, "limit", 50),
		Offset:      intParamDefault(c, "offset", 0),
		MaxChunkIDs: intParamDefault(c, "max_chunk_ids", 50),
	})
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleDupGet(c *gin.Context) {
	fp := c.Query("fingerprint")
	if fp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fingerprint is required"})
		return
	}
	group, err := s.engine.GetDupGroup(fp, boolParam(c, "include_chunks"), intParamDefault(c, "max_length", s.maxTextLen))
	if err != nil {
		serverError(c, err)
		return
	}
	if group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "duplicate group not found", "fingerprint": fp})
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) handleDupListFiltered(c *gin.Context) {
	page, err := s.engine.ListDupGroupsFiltered(searchParams(c),
		intParamDefault(c, "min_count", 2),
		intParamDefault(c, "limit", 50),
		intParamDefault(c, "offset", 0))
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleDupGetFiltered(c *gin.Context) {
	fp := c.Query("fingerprint")
	if fp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fingerprint is required"})
		return
	}
	group, err := s.engine.GetDupGroupFiltered(fp, searchParams(c), intParamDefault(c, "max_length", s.maxTextLen))
	if err != nil {
		serverError(c, err)
		return
	}
	if group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no group members match the filters", "fingerprint": fp})
		return
	}
	c.JSON(http.StatusOK, group)
}

type setAnnotationRequest struct {
	TargetType    string  `json:"target_type"`
	TargetID      string  `json:"target_id"`
	Status        *string `json:"status"`
	Priority      *int    `json:"priority"`
	AIPriority    *int    `json:"ai_priority"`
	HumanPriority *int    `json:"human_priority"`
	Comment       *string `json:"comment"`
}

func (s *Server) handleAnnotationSet(c *gin.Context) {
	var req setAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if !validTargetType(req.TargetType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_type must be chunk or dup_group"})
		return
	}
	if req.TargetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_id is required"})
		return
	}

	ann, err := s.ann.Set(annotations.SetParams{
		TargetType:    req.TargetType,
		TargetID:      req.TargetID,
		Status:        req.Status,
		Priority:      req.Priority,
		AIPriority:    req.AIPriority,
		HumanPriority: req.HumanPriority,
		Comment:       req.Comment,
	})
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"annotation":             ann,
		"human_priority_allowed": s.ann.AllowHumanPriority(),
	})
}

func (s *Server) handleAnnotationGet(c *gin.Context) {
	targetType := c.Query("target_type")
	targetID := c.Query("target_id")
	if !validTargetType(targetType) || targetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_type and target_id are required"})
		return
	}
	ann, err := s.ann.Get(targetType, targetID)
	if err != nil {
		serverError(c, err)
		return
	}
	if ann == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "annotation not found"})
		return
	}
	c.JSON(http.StatusOK, ann)
}

func (s *Server) handleAnnotationList(c *gin.Context) {
	items, err := s.ann.List(annotations.ListParams{
		TargetType: c.Query("target_type"),
		Status:     c.Query("status"),
		Limit:      intParamDefault(c, "limit", 100),
		Offset:     intParamDefault(c, "offset", 0),
	})
	if err != nil {
		serverError(c, err)
		return
	}
	if items == nil {
		items = []models.Annotation{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func validTargetType(t string) bool {
	return t == models.TargetChunk || t == models.TargetDupGroup
}

func serverError(c *gin.Context, err error) {
	log.Error("request failed", "path", c.Request.URL.Path, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
