package memory

import (
	"time"

	"github.com/engram/engram/internal/decay"
)

// DecayReport summarizes one ApplyDecay run.
type DecayReport struct {
	Scanned int
	Updated int
}

// ApplyDecay is the one deliberate exception to "decay is computed on read,
// never written back": the `decay` maintenance command persists each
// memory's recomputed effective strength as its new stored base strength.
// recall and context_hydrate must never call this — see internal/decay's
// package doc on ephemeral decay.
func (s *Service) ApplyDecay() (*DecayReport, error) {
	memories, err := s.db.GetForDecay()
	if err != nil {
		return nil, wrapError(StorageError, err, "load memories for decay")
	}

	now := time.Now().UTC()
	report := &DecayReport{Scanned: len(memories)}
	for _, m := range memories {
		eff := decay.EffectiveStrength(m.Strength, m.LastAccessed, m.AccessCount, now, s.cfg.DecayRate)
		if eff == m.Strength {
			continue
		}
		if err := s.db.SetStrength(m.ID, eff); err != nil {
			return nil, wrapError(StorageError, err, "set strength for %s", m.ID)
		}
		report.Updated++
	}
	return report, nil
}

// Prune removes memories whose currently-stored strength is below
// threshold. Unlike ApplyDecay, this reads the stored (not recomputed)
// strength — callers that want decay-aware pruning run ApplyDecay first.
func (s *Service) Prune(threshold float64) (int, error) {
	n, err := s.db.PruneBelowStrength(threshold)
	if err != nil {
		return 0, wrapError(StorageError, err, "prune below strength")
	}
	return n, nil
}
