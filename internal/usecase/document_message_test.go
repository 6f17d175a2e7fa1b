package usecase

import (
	"errors"
	"testing"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/documenttype"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
)

func TestDecodeDocumentMessage(t *testing.T) {
	body := []byte(`{
		"id": "doc-1",
		"documentType": "Venue",
		"provider": "ESPN",
		"sport": "football_nfl",
		"sourceUrl": " http://sports.core.api.espn.com/v2/venues/3798 ",
		"correlationId": "0192b6c4-1000-7000-8000-00000000c0de",
		"payload": null
	}`)

	env, err := DecodeDocumentMessage(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.DocumentType != documenttype.Venue || env.Provider != externalid.ProviderESPN || env.Sport != sport.FootballNFL {
		t.Fatalf("unexpected enums %+v", env)
	}
	if env.SourceURL != "http://sports.core.api.espn.com/v2/venues/3798" {
		t.Fatalf("expected trimmed source url, got %q", env.SourceURL)
	}
	if env.Payload != nil {
		t.Fatalf("expected null payload to be dropped, got %s", env.Payload)
	}
}

func TestDecodeDocumentMessage_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":         `{"id":`,
		"unknown type":     `{"id":"d","documentType":"podcast","provider":"espn","sport":"football_nfl"}`,
		"unknown provider": `{"id":"d","documentType":"venue","provider":"acme","sport":"football_nfl"}`,
		"unknown sport":    `{"id":"d","documentType":"venue","provider":"espn","sport":"curling"}`,
		"sport all":        `{"id":"d","documentType":"venue","provider":"espn","sport":"all"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeDocumentMessage([]byte(body)); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
