package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/engram/engram/internal/memory"
)

func (s *Server) healthHandler(c *gin.Context) {
	jsonOK(c, gin.H{
		"status":   "healthy",
		"version":  memory.Version,
		"uptime_s": time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) capabilitiesHandler(c *gin.Context) {
	jsonOK(c, s.memoryService.Capabilities())
}

type rememberBody struct {
	Content        string `json:"content"`
	Category       string `json:"category"`
	ScopeID        string `json:"scope_id"`
	ChatID         string `json:"chat_id"`
	ThreadID       string `json:"thread_id"`
	TaskID         string `json:"task_id"`
	Metadata       string `json:"metadata"`
	IdempotencyKey string `json:"idempotency_key"`
	Upsert         bool   `json:"upsert"`
	SessionID      string `json:"session_id"`
}

func (s *Server) rememberHandler(c *gin.Context) {
	var body rememberBody
	if err := c.ShouldBindJSON(&body); err != nil {
		jsonError(c, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	out, err := s.memoryService.Remember(c.Request.Context(), memory.RememberInput{
		Content:        body.Content,
		Category:       body.Category,
		ScopeID:        body.ScopeID,
		ChatID:         body.ChatID,
		ThreadID:       body.ThreadID,
		TaskID:         body.TaskID,
		Metadata:       body.Metadata,
		IdempotencyKey: body.IdempotencyKey,
		Upsert:         body.Upsert,
		SessionID:      body.SessionID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	jsonOK(c, gin.H{"id": out.ID, "status": out.Status})
}

type recallBody struct {
	Query       string   `json:"query"`
	Limit       int      `json:"limit"`
	Category    string   `json:"category"`
	MinStrength *float64 `json:"min_strength"`
	SessionID   string   `json:"session_id"`
	ScopeID     string   `json:"scope_id"`
	ChatID      string   `json:"chat_id"`
	ThreadID    string   `json:"thread_id"`
	TaskID      string   `json:"task_id"`
}

func toRecallInput(body recallBody) memory.RecallInput {
	return memory.RecallInput{
		Query:       body.Query,
		Limit:       body.Limit,
		Category:    body.Category,
		MinStrength: body.MinStrength,
		SessionID:   body.SessionID,
		ScopeID:     body.ScopeID,
		ChatID:      body.ChatID,
		ThreadID:    body.ThreadID,
		TaskID:      body.TaskID,
	}
}

func recallResponseBody(out *memory.RecallOutput) gin.H {
	results := make([]gin.H, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, gin.H{
			"id":           r.ID,
			"content":      r.Content,
			"category":     r.Category,
			"strength":     r.Strength,
			"relevance":    r.Relevance,
			"created_at":   r.CreatedAt,
			"access_count": r.AccessCount,
		})
	}
	return gin.H{"results": results, "fallback_mode": out.FallbackMode}
}

func (s *Server) recallHandler(c *gin.Context) {
	var body recallBody
	if err := c.ShouldBindJSON(&body); err != nil {
		jsonError(c, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	out, err := s.memoryService.Recall(c.Request.Context(), toRecallInput(body))
	if err != nil {
		respondErr(c, err)
		return
	}
	jsonOK(c, recallResponseBody(out))
}

func (s *Server) contextHydrateHandler(c *gin.Context) {
	var body recallBody
	if err := c.ShouldBindJSON(&body); err != nil {
		jsonError(c, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	out, err := s.memoryService.ContextHydrate(c.Request.Context(), toRecallInput(body))
	if err != nil {
		respondErr(c, err)
		return
	}
	jsonOK(c, recallResponseBody(out))
}

type forgetBody struct {
	ID        string `json:"id"`
	ScopeID   string `json:"scope_id"`
	SessionID string `json:"session_id"`
}

func (s *Server) forgetHandler(c *gin.Context) {
	var body forgetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		jsonError(c, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	out, err := s.memoryService.Forget(memory.ForgetInput{
		ID:        body.ID,
		ScopeID:   body.ScopeID,
		SessionID: body.SessionID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	jsonOK(c, gin.H{"id": out.ID, "deleted": out.Deleted})
}
