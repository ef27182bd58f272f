package memory

import "github.com/engram/engram/internal/storage"

// Get fetches a single memory by id for the `show` command and surfaces a
// NotFound error (not a nil result) — unlike Forget, which reports absence
// via a bool, a direct lookup of a nonexistent id is the caller's mistake.
func (s *Service) Get(id string) (*storage.Memory, error) {
	if id == "" {
		return nil, newError(InvalidArgument, "id is required")
	}
	m, err := s.db.GetMemory(id)
	if err != nil {
		return nil, wrapError(StorageError, err, "get memory")
	}
	if m == nil {
		return nil, newError(NotFound, "memory %s not found", id)
	}
	return m, nil
}

// MetricsSummary returns the append-only metrics ledger's aggregate view for
// a session (or globally when session is empty).
func (s *Service) MetricsSummary(session string) (*storage.MetricsSummary, error) {
	summary, err := s.db.MetricsSummary(session)
	if err != nil {
		return nil, wrapError(StorageError, err, "metrics summary")
	}
	return summary, nil
}

// Stats returns storage-level counts for the `stats` command.
func (s *Service) Stats() (*storage.Stats, error) {
	stats, err := s.db.GetStats()
	if err != nil {
		return nil, wrapError(StorageError, err, "get stats")
	}
	return stats, nil
}
