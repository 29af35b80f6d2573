package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidrag/vidrag/internal/ingest"
	"github.com/vidrag/vidrag/internal/rag"
	"github.com/vidrag/vidrag/internal/vector"
)

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Prefix      string
	CORSOrigins []string
	Debug       bool
}

// API exposes ingestion and question answering over HTTP.
type API struct {
	svc      *rag.Service
	pipeline *ingest.Pipeline
	store    vector.Store
	namer    vector.Namer
	health   *HealthRegistry
	cfg      APIConfig
	logger   *slog.Logger
}

// NewAPI wires the HTTP API.
func NewAPI(
	svc *rag.Service,
	pipeline *ingest.Pipeline,
	store vector.Store,
	namer vector.Namer,
	health *HealthRegistry,
	cfg APIConfig,
	logger *slog.Logger,
) *API {
	if cfg.Prefix == "" {
		cfg.Prefix = "/api/v1"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		svc:      svc,
		pipeline: pipeline,
		store:    store,
		namer:    namer,
		health:   health,
		cfg:      cfg,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes mounted.
func (a *API) Router() *gin.Engine {
	if !a.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger(), a.corsMiddleware())

	r.GET("/health", a.handleHealth)

	g := r.Group(a.cfg.Prefix)
	g.POST("/chat", a.handleChat)
	g.POST("/chat/stream", a.handleChatStream)
	g.POST("/upload", a.handleUpload)
	g.POST("/upload/rebuild", a.handleUploadRebuild)
	g.DELETE("/upload/collection", a.handleDropCollection)

	return r
}

type chatRequest struct {
	Question   string `json:"question"`
	VideoID    string `json:"video_id"`
	Collection string `json:"collection"`
	TopK       int    `json:"top_k"`
}

type uploadRequest struct {
	URL        string `json:"url"`
	Collection string `json:"collection"`
	Rebuild    bool   `json:"rebuild"`
}

type dropRequest struct {
	Collection string `json:"collection"`
}

func (a *API) handleHealth(c *gin.Context) {
	response := a.health.Run(c.Request.Context())

	status := http.StatusOK
	if response.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

func (a *API) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeClientError(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		a.writeClientError(c, "question is required")
		return
	}

	collection := a.namer.Resolve(req.VideoID, req.Collection)

	result, err := a.svc.AnswerQuestion(c.Request.Context(), req.Question, collection, req.TopK)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SSE frame types emitted by the streaming chat endpoint.
const (
	frameSources = "sources"
	frameToken   = "token"
	frameDone    = "done"
)

type sseFrame struct {
	Type    string       `json:"type"`
	Sources []rag.Source `json:"sources,omitempty"`
	Content string       `json:"content,omitempty"`
}

func (a *API) handleChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeClientError(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		a.writeClientError(c, "question is required")
		return
	}

	collection := a.namer.Resolve(req.VideoID, req.Collection)

	stream, sources, err := a.svc.StreamAnswer(c.Request.Context(), req.Question, collection, req.TopK)
	if err != nil {
		a.writeError(c, err)
		return
	}
	defer stream.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	a.writeFrame(c, sseFrame{Type: frameSources, Sources: sources})

	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			a.logger.Warn("answer stream interrupted", "error", err)
			return
		}
		a.writeFrame(c, sseFrame{Type: frameToken, Content: delta})
	}

	a.writeFrame(c, sseFrame{Type: frameDone})
}

func (a *API) writeFrame(c *gin.Context, frame sseFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		a.logger.Warn("encoding stream frame", "error", err)
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}

func (a *API) handleUpload(c *gin.Context) {
	a.upload(c, false)
}

func (a *API) handleUploadRebuild(c *gin.Context) {
	a.upload(c, true)
}

func (a *API) upload(c *gin.Context, rebuild bool) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeClientError(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		a.writeClientError(c, "url is required")
		return
	}

	report, err := a.pipeline.Process(c.Request.Context(), req.URL, req.Collection, rebuild || req.Rebuild)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *API) handleDropCollection(c *gin.Context) {
	collection := c.Query("collection")
	if collection == "" {
		var req dropRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			collection = req.Collection
		}
	}
	if collection == "" {
		a.writeClientError(c, "collection is required")
		return
	}

	dropped, err := a.store.Drop(c.Request.Context(), collection)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !dropped {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found", "collection": collection})
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": collection, "dropped": true})
}

func (a *API) writeClientError(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// writeError maps caller-caused failures to 400 and everything else to
// 500. Internal detail leaves the process only in debug mode.
func (a *API) writeError(c *gin.Context, err error) {
	if ingest.IsBadInput(err) {
		a.writeClientError(c, err.Error())
		return
	}

	a.logger.Error("request failed", "path", c.FullPath(), "error", err)

	msg := "internal server error"
	if a.cfg.Debug {
		msg = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (a *API) corsMiddleware() gin.HandlerFunc {
	allowed := make(map[string]bool, len(a.cfg.CORSOrigins))
	wildcard := false
	for _, origin := range a.cfg.CORSOrigins {
		if origin == "*" {
			wildcard = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (wildcard || allowed[origin]) {
			header := origin
			if wildcard {
				header = "*"
			}
			c.Header("Access-Control-Allow-Origin", header)
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
