package usecase

import (
	"fmt"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/gowebpki/jcs"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/hashing"
)

// oddsLine is the hashed view of an odds document. Audit and identity
// fields are left out so a re-import of the same line hashes the same.
type oddsLine struct {
	ProviderID       string   `json:"providerId"`
	ProviderName     string   `json:"providerName"`
	ProviderPriority int      `json:"providerPriority"`
	Details          *string  `json:"details"`
	OverUnder        *float64 `json:"overUnder"`
	Spread           *float64 `json:"spread"`
	OverOdds         *float64 `json:"overOdds"`
	UnderOdds        *float64 `json:"underOdds"`
	MoneylineWinner  *bool    `json:"moneylineWinner"`
	SpreadWinner     *bool    `json:"spreadWinner"`
}

func oddsContentHash(o contest.Odds) (string, error) {
	raw, err := sonic.Marshal(oddsLine{
		ProviderID:       o.ProviderID,
		ProviderName:     o.ProviderName,
		ProviderPriority: o.ProviderPriority,
		Details:          o.Details,
		OverUnder:        o.OverUnder,
		Spread:           o.Spread,
		OverOdds:         o.OverOdds,
		UnderOdds:        o.UnderOdds,
		MoneylineWinner:  o.MoneylineWinner,
		SpreadWinner:     o.SpreadWinner,
	})
	if err != nil {
		return "", fmt.Errorf("marshal odds: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize odds: %w", err)
	}
	return hashing.HashContent(canonical), nil
}

// imageHash keeps the query string since image CDNs use it for sizing.
func imageHash(href string) string {
	return hashing.HashURL(href, false)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	return optionalString(*value)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
