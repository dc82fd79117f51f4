// Package scoring turns a window of detector events into a risk score,
// level and recommended action.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/sentinelvnc/sentinel/riskengine/internal/models"
)

const (
	MaxScore = 100

	lowCeiling    = 30
	mediumCeiling = 70
)

// Scorer applies the currently loaded weight table. The table can be swapped
// at runtime with SetWeights; in-flight calls finish with the table they
// started with.
type Scorer struct {
	weights atomic.Pointer[Weights]
}

// NewScorer creates a Scorer. A nil table scores everything as zero.
func NewScorer(w Weights) *Scorer {
	s := &Scorer{}
	s.SetWeights(w)
	return s
}

// SetWeights replaces the weight table.
func (s *Scorer) SetWeights(w Weights) {
	if w == nil {
		w = Weights{}
	}
	s.weights.Store(&w)
}

// Weights returns the active weight table.
func (s *Scorer) Weights() Weights {
	return *s.weights.Load()
}

// Score returns round(clamp(sum(weight*confidence), 0, 100)). Halves round to
// even, so 30.5 scores 30 and 70.5 scores 70.
func (s *Scorer) Score(events []models.DetectorEvent) int {
	w := s.Weights()
	var total float64
	for _, ev := range events {
		total += float64(w.Weight(ev.Type)) * ev.Confidence
	}
	return ScoreFromRaw(total)
}

// ScoreFromRaw clamps and rounds a raw weighted sum.
func ScoreFromRaw(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	clamped := math.Max(0, math.Min(MaxScore, raw))
	return int(math.RoundToEven(clamped))
}

// LevelOf maps a score to its risk level. 30 is LOW and 70 is MEDIUM.
func LevelOf(score int) models.RiskLevel {
	switch {
	case score <= lowCeiling:
		return models.RiskLow
	case score <= mediumCeiling:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// ActionOf maps a risk level to the recommended response. Levels only come
// from LevelOf; any other value is a programming error and panics.
func ActionOf(level models.RiskLevel) models.Action {
	switch level {
	case models.RiskLow:
		return models.ActionAllow
	case models.RiskMedium:
		return models.ActionDeceive
	case models.RiskHigh:
		return models.ActionKill
	}
	panic(fmt.Sprintf("scoring: unknown risk level %q", level))
}

// Assess scores events and derives the level and action in one call.
func (s *Scorer) Assess(events []models.DetectorEvent) (int, models.RiskLevel, models.Action) {
	score := s.Score(events)
	level := LevelOf(score)
	return score, level, ActionOf(level)
}

// Explain re-attributes the score of events to their types. Each share is
// round(total * raw_t / sum(raw)) computed on its own, so shares need not add
// up to the total. Ties keep first-seen order.
func (s *Scorer) Explain(events []models.DetectorEvent) models.Explanation {
	if len(events) == 0 {
		return models.Explanation{TotalScore: 0, TopContributors: []models.Contributor{}}
	}

	w := s.Weights()
	var order []string
	raw := make(map[string]float64)
	for _, ev := range events {
		if _, seen := raw[ev.Type]; !seen {
			order = append(order, ev.Type)
		}
		raw[ev.Type] += float64(w.Weight(ev.Type)) * ev.Confidence
	}

	var sumRaw float64
	for _, t := range order {
		sumRaw += raw[t]
	}
	if sumRaw == 0 {
		sumRaw = 1
	}

	total := s.Score(events)
	contributors := make([]models.Contributor, 0, len(order))
	for _, t := range order {
		share := int(math.RoundToEven(float64(total) * (raw[t] / sumRaw)))
		contributors = append(contributors, models.Contributor{Type: t, Score: share})
	}
	sort.SliceStable(contributors, func(i, j int) bool {
		return contributors[i].Score > contributors[j].Score
	})

	return models.Explanation{TotalScore: total, TopContributors: contributors}
}
