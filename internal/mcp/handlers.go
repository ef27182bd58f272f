package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/engram/engram/internal/memory"
)

func (s *Server) handleRemember(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p RememberParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid remember arguments: %w", err)
	}
	return s.memSvc.Remember(ctx, memory.RememberInput{
		Content:        p.Content,
		Category:       p.Category,
		ScopeID:        p.ScopeID,
		ChatID:         p.ChatID,
		ThreadID:       p.ThreadID,
		TaskID:         p.TaskID,
		Metadata:       p.Metadata,
		IdempotencyKey: p.IdempotencyKey,
		Upsert:         p.Upsert,
		SessionID:      p.SessionID,
	})
}

func toRecallInput(p RecallParams) memory.RecallInput {
	return memory.RecallInput{
		Query:       p.Query,
		Limit:       p.Limit,
		Category:    p.Category,
		MinStrength: p.MinStrength,
		SessionID:   p.SessionID,
		ScopeID:     p.ScopeID,
		ChatID:      p.ChatID,
		ThreadID:    p.ThreadID,
		TaskID:      p.TaskID,
	}
}

func (s *Server) handleRecall(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p RecallParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid recall arguments: %w", err)
	}
	return s.memSvc.Recall(ctx, toRecallInput(p))
}

func (s *Server) handleContextHydrate(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var p RecallParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid context_hydrate arguments: %w", err)
	}
	return s.memSvc.ContextHydrate(ctx, toRecallInput(p))
}

func (s *Server) handleForget(argsJSON []byte) (interface{}, error) {
	var p ForgetParams
	if err := json.Unmarshal(argsJSON, &p); err != nil {
		return nil, fmt.Errorf("invalid forget arguments: %w", err)
	}
	return s.memSvc.Forget(memory.ForgetInput{ID: p.ID, ScopeID: p.ScopeID, SessionID: p.SessionID})
}

func (s *Server) handleCapabilities() (interface{}, error) {
	return s.memSvc.Capabilities(), nil
}
