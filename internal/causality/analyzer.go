// Package causality implements heuristic cause/effect scoring over recorded
// events and traversal of producer-declared causal links.
//
// The inference here is best-effort ranking, not ground truth: scores order
// plausible candidates, they do not prove causation.
package causality

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/halwest/tapline/internal/temporal"
)

// Scorer computes a confidence in [0,1] that candidate caused effect.
//
// The scoring function is an injectable strategy so alternative causal
// models can be substituted without touching traversal or filtering logic.
// The temporal precedence filter is NOT part of the scorer: candidates that
// do not strictly precede the effect are excluded before scoring.
type Scorer interface {
	Score(candidate, effect temporal.Event) float64
}

// Default weights for HeuristicScorer. The exact values are tunables, not
// derived constants: only the relative ordering (closer in time and same
// agent score higher) is load-bearing.
const (
	DefaultBaseWeight      = 0.3
	DefaultSameAgentBonus  = 0.15
	DefaultDeclaredBonus   = 0.25
	DefaultProximityWeight = 0.3
	DefaultProximityScale  = 5 * time.Minute
)

// HeuristicScorer is the default scoring policy.
//
// Confidence = BaseWeight
//   - SameAgentBonus when both events carry the same non-empty agent id
//   - DeclaredBonus when the producer listed the candidate in the
//     effect's causes
//   - ProximityWeight * exp(-gap/ProximityScale), a temporal-proximity
//     bonus that decays monotonically with the time gap
//
// The sum is clamped to [0,1].
type HeuristicScorer struct {
	BaseWeight      float64
	SameAgentBonus  float64
	DeclaredBonus   float64
	ProximityWeight float64
	ProximityScale  time.Duration
}

// NewHeuristicScorer returns a scorer with the default weights.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{
		BaseWeight:      DefaultBaseWeight,
		SameAgentBonus:  DefaultSameAgentBonus,
		DeclaredBonus:   DefaultDeclaredBonus,
		ProximityWeight: DefaultProximityWeight,
		ProximityScale:  DefaultProximityScale,
	}
}

// Score implements Scorer.
func (s *HeuristicScorer) Score(candidate, effect temporal.Event) float64 {
	score := s.BaseWeight

	if candidate.AgentID != "" && candidate.AgentID == effect.AgentID {
		score += s.SameAgentBonus
	}
	if slices.Contains(effect.Causes, candidate.ID) {
		score += s.DeclaredBonus
	}

	gap := effect.Timestamp.Sub(candidate.Timestamp)
	if gap >= 0 && s.ProximityScale > 0 {
		score += s.ProximityWeight * math.Exp(-float64(gap)/float64(s.ProximityScale))
	}

	return math.Min(math.Max(score, 0), 1)
}

// Inference pairs a surviving candidate with its computed confidence.
// Confidence is analyzer-computed and distinct from the producer-asserted
// CausalStrength on the event itself.
type Inference struct {
	Event      temporal.Event
	Confidence float64
}

// Analyzer is a stateless heuristic engine over raw event values.
// The zero value is not usable; construct with New.
type Analyzer struct {
	scorer Scorer
}

// New creates an Analyzer with the given scorer.
// A nil scorer selects the default HeuristicScorer.
func New(scorer Scorer) *Analyzer {
	if scorer == nil {
		scorer = NewHeuristicScorer()
	}
	return &Analyzer{scorer: scorer}
}

// Infer scores each candidate as a probable cause of effect and returns
// the candidates whose confidence strictly exceeds threshold, ordered by
// descending confidence (ties by event id for determinism).
//
// Temporal precedence is absolute: a candidate whose timestamp is at or
// after the effect's is excluded outright regardless of score, because an
// effect cannot be caused by something that has not yet happened. An empty
// result is the correct, non-error outcome when nothing clears the bar.
func (a *Analyzer) Infer(effect temporal.Event, candidates []temporal.Event, threshold float64) []Inference {
	var out []Inference
	for _, cand := range candidates {
		if cand.ID == effect.ID {
			continue
		}
		// Hard filter, applied before any scoring.
		if !cand.Timestamp.Before(effect.Timestamp) {
			continue
		}
		conf := a.scorer.Score(cand, effect)
		if conf > threshold {
			out = append(out, Inference{Event: cand, Confidence: conf})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Event.ID < out[j].Event.ID
	})
	return out
}
