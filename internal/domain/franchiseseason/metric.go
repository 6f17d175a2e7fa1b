package franchiseseason

import (
	"fmt"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
)

// Metric is the season-level efficiency profile of a franchise season.
// There is at most one per franchise season.
type Metric struct {
	ID                     string
	FranchiseSeasonID      string
	Season                 int
	GamesPlayed            int
	Ypp                    float64
	SuccessRate            float64
	ExplosiveRate          float64
	PointsPerDrive         float64
	ThirdFourthRate        float64
	RzTdRate               *float64
	RzScoreRate            *float64
	TimePossRatio          float64
	OppYpp                 float64
	OppSuccessRate         float64
	OppExplosiveRate       float64
	OppPointsPerDrive      float64
	OppThirdFourthRate     float64
	OppRzTdRate            *float64
	OppScoreTdRate         *float64
	NetPunt                float64
	FgPctShrunk            float64
	FieldPosDiff           float64
	TurnoverMarginPerDrive float64
	PenaltyYardsPerPlay    float64
	ComputedUTC            time.Time
	audit.Audit
}

func (m Metric) Validate() error {
	if m.FranchiseSeasonID == "" {
		return fmt.Errorf("metric franchise season id is required")
	}
	if m.GamesPlayed < 0 {
		return fmt.Errorf("metric games played must be >= 0")
	}
	rates := map[string]float64{
		"success_rate":       m.SuccessRate,
		"explosive_rate":     m.ExplosiveRate,
		"third_fourth_rate":  m.ThirdFourthRate,
		"time_poss_ratio":    m.TimePossRatio,
		"opp_success_rate":   m.OppSuccessRate,
		"opp_explosive_rate": m.OppExplosiveRate,
		"fg_pct_shrunk":      m.FgPctShrunk,
	}
	for name, v := range rates {
		if v < 0 || v > 1 {
			return fmt.Errorf("metric %s must be within [0,1], got %v", name, v)
		}
	}
	for name, v := range map[string]*float64{
		"rz_td_rate":        m.RzTdRate,
		"rz_score_rate":     m.RzScoreRate,
		"opp_rz_td_rate":    m.OppRzTdRate,
		"opp_score_td_rate": m.OppScoreTdRate,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("metric %s must be within [0,1], got %v", name, *v)
		}
	}
	return nil
}
