package memory

import "context"

// ContextHydrate is the `context_hydrate` tool/route: identical to Recall
// except query is optional (an empty query runs the same recent-mode path
// Recall already gives it) and it is gated by the context_hydration feature
// flag, inspected per-request rather than at startup.
func (s *Service) ContextHydrate(ctx context.Context, in RecallInput) (*RecallOutput, error) {
	if !s.cfg.EnableContextHydration {
		return nil, newError(FeatureDisabled, "context_hydrate is disabled")
	}
	return s.Recall(ctx, in)
}
