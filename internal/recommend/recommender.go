package recommend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/autocoin/futures-trader/internal/market"
	"github.com/autocoin/futures-trader/internal/strategy"
)

// Component weights for the composite score
const (
	weightSuitability = 0.4
	weightPerformance = 0.3
	weightAlignment   = 0.2
	weightRisk        = 0.1
)

// ConfidenceLevel buckets a recommendation score
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// Scorer supplies historical performance scores per strategy and condition
type Scorer interface {
	Score(strategyName string, condition market.Condition) float64
}

// Scored is one strategy with its composite score breakdown
type Scored struct {
	Strategy    string
	Score       float64
	Suitability float64
	Performance float64
	Alignment   float64
	Risk        float64
}

// Recommendation is the full output for one market analysis
type Recommendation struct {
	Strategy        string
	Score           float64
	Confidence      float64
	ConfidenceLevel ConfidenceLevel
	Condition       market.Condition
	Reasoning       string
	Alternatives    []Scored
	Timestamp       time.Time
}

// Recommender ranks strategies for the current market condition.
// Pure given its inputs: the registry, the scorer state, and the analysis.
type Recommender struct {
	registry    *strategy.Registry
	scorer      Scorer
	suitability map[string]map[market.Condition]float64
}

// NewRecommender creates a recommender over the given registry and scorer
func NewRecommender(registry *strategy.Registry, scorer Scorer) *Recommender {
	return &Recommender{
		registry:    registry,
		scorer:      scorer,
		suitability: defaultSuitability(),
	}
}

// defaultSuitability maps each strategy to how well it fits each condition
func defaultSuitability() map[string]map[market.Condition]float64 {
	return map[string]map[market.Condition]float64{
		"breakout": {
			market.ConditionBreakout:      0.9,
			market.ConditionTrendingUp:    0.8,
			market.ConditionTrendingDown:  0.7,
			market.ConditionVolatile:      0.6,
			market.ConditionRanging:       0.3,
			market.ConditionConsolidating: 0.4,
		},
		"scalping": {
			market.ConditionRanging:       0.9,
			market.ConditionVolatile:      0.8,
			market.ConditionConsolidating: 0.7,
			market.ConditionTrendingUp:    0.4,
			market.ConditionTrendingDown:  0.4,
			market.ConditionBreakout:      0.3,
		},
		"trend_following": {
			market.ConditionTrendingUp:    0.95,
			market.ConditionTrendingDown:  0.9,
			market.ConditionBreakout:      0.7,
			market.ConditionVolatile:      0.5,
			market.ConditionRanging:       0.2,
			market.ConditionConsolidating: 0.2,
		},
		"funding_arbitrage": {
			market.ConditionConsolidating: 0.8,
			market.ConditionRanging:       0.7,
			market.ConditionTrendingUp:    0.5,
			market.ConditionTrendingDown:  0.5,
			market.ConditionVolatile:      0.4,
			market.ConditionBreakout:      0.3,
		},
		"grid": {
			market.ConditionRanging:       0.9,
			market.ConditionConsolidating: 0.8,
			market.ConditionVolatile:      0.5,
			market.ConditionTrendingUp:    0.3,
			market.ConditionTrendingDown:  0.3,
			market.ConditionBreakout:      0.2,
		},
		"long_short_switch": {
			market.ConditionTrendingUp:    0.85,
			market.ConditionTrendingDown:  0.85,
			market.ConditionBreakout:      0.6,
			market.ConditionVolatile:      0.5,
			market.ConditionRanging:       0.3,
			market.ConditionConsolidating: 0.3,
		},
		"volatility_breakout": {
			market.ConditionConsolidating: 0.9,
			market.ConditionBreakout:      0.8,
			market.ConditionVolatile:      0.6,
			market.ConditionRanging:       0.5,
			market.ConditionTrendingUp:    0.4,
			market.ConditionTrendingDown:  0.4,
		},
	}
}

// Recommend scores every registered strategy and returns the top pick with
// up to two ranked alternatives
func (r *Recommender) Recommend(analysis market.Analysis) (*Recommendation, error) {
	scored := make([]Scored, 0, len(r.registry.Names()))
	for _, s := range r.registry.All() {
		scored = append(scored, r.scoreStrategy(s, analysis))
	}
	if len(scored) == 0 {
		return nil, fmt.Errorf("no strategies registered")
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Strategy < scored[j].Strategy
	})

	top := scored[0]
	confidence := r.confidence(top, scored, analysis)

	alternatives := scored[1:]
	if len(alternatives) > 2 {
		alternatives = alternatives[:2]
	}

	return &Recommendation{
		Strategy:        top.Strategy,
		Score:           top.Score,
		Confidence:      confidence,
		ConfidenceLevel: bucket(confidence),
		Condition:       analysis.Condition,
		Reasoning:       reasoning(top, analysis),
		Alternatives:    alternatives,
		Timestamp:       analysis.Timestamp,
	}, nil
}

// ScoreFor returns the composite score of one strategy on the same 0-1
// scale as Recommend, so callers can compare the active strategy against
// the top pick.
func (r *Recommender) ScoreFor(name string, analysis market.Analysis) (float64, error) {
	s, err := r.registry.Get(name)
	if err != nil {
		return 0, err
	}
	return r.scoreStrategy(s, analysis).Score, nil
}

func (r *Recommender) scoreStrategy(s strategy.Strategy, analysis market.Analysis) Scored {
	name := s.GetName()

	suitability := 0.5
	if row, ok := r.suitability[name]; ok {
		if v, ok := row[analysis.Condition]; ok {
			suitability = v
		}
	}

	performance := r.scorer.Score(name, analysis.Condition) / 100.0
	alignment := alignmentScore(name, analysis)
	risk := riskScore(s.RiskParams(), analysis)

	return Scored{
		Strategy:    name,
		Suitability: suitability,
		Performance: performance,
		Alignment:   alignment,
		Risk:        risk,
		Score: weightSuitability*suitability +
			weightPerformance*performance +
			weightAlignment*alignment +
			weightRisk*risk,
	}
}

// alignmentScore measures how well the strategy's style matches the trend
// shape beyond the coarse condition label
func alignmentScore(name string, analysis market.Analysis) float64 {
	trendy := name == "trend_following" || name == "long_short_switch" || name == "breakout"

	switch analysis.TrendStrength {
	case market.TrendStrengthStrong:
		if trendy {
			return 1.0
		}
		return 0.2
	case market.TrendStrengthModerate:
		if trendy {
			return 0.8
		}
		return 0.4
	case market.TrendStrengthWeak:
		if trendy {
			return 0.4
		}
		return 0.7
	default:
		if trendy {
			return 0.2
		}
		return 0.9
	}
}

// riskScore penalizes high leverage when volatility is elevated
func riskScore(params strategy.RiskParams, analysis market.Analysis) float64 {
	leverageFactor := 1.0 - math.Min(float64(params.Leverage)/20.0, 1.0)

	if analysis.ATRPercent > 2.5 {
		// In violent tape, leverage dominates the risk picture
		return leverageFactor * 0.8
	}
	return 0.4 + leverageFactor*0.6
}

// confidence starts from the top score and adjusts for differentiation from
// the runner-up and for trend strength clarity
func (r *Recommender) confidence(top Scored, scored []Scored, analysis market.Analysis) float64 {
	confidence := top.Score

	if len(scored) > 1 {
		gap := top.Score - scored[1].Score
		if gap > 0.1 {
			confidence += 0.1
		} else if gap < 0.05 {
			confidence -= 0.1
		}
	}

	switch analysis.TrendStrength {
	case market.TrendStrengthStrong:
		confidence += 0.05
	case market.TrendStrengthNone:
		confidence -= 0.05
	}

	return math.Max(0, math.Min(1, confidence))
}

func bucket(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.8:
		return ConfidenceHigh
	case confidence >= 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func reasoning(top Scored, analysis market.Analysis) string {
	dominant := "suitability"
	best := top.Suitability * weightSuitability
	if v := top.Performance * weightPerformance; v > best {
		dominant, best = "recent performance", v
	}
	if v := top.Alignment * weightAlignment; v > best {
		dominant, best = "trend alignment", v
	}
	if v := top.Risk * weightRisk; v > best {
		dominant = "risk profile"
	}

	return fmt.Sprintf("%s scored %.2f in %s conditions, driven by %s",
		top.Strategy, top.Score, analysis.Condition, dominant)
}
