package venue

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
)

type Image struct {
	ID              string
	VenueID         string
	OriginalURLHash string
	URI             string
	Height          *int64
	Width           *int64
}

// Venue is a stadium or arena where contests are played.
type Venue struct {
	ID          string
	Name        string
	ShortName   *string
	IsGrass     bool
	IsIndoor    bool
	Slug        string
	Capacity    int
	City        *string
	State       *string
	PostalCode  *string
	Country     *string
	Latitude    *float64
	Longitude   *float64
	ExternalIDs []externalid.ExternalID
	Images      []Image
	audit.Audit
}

func (v Venue) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("venue id is required")
	}
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("venue name is required")
	}
	if strings.TrimSpace(v.Slug) == "" {
		return fmt.Errorf("venue slug is required")
	}
	if v.Capacity < 0 {
		return fmt.Errorf("venue capacity must be >= 0")
	}
	for _, e := range v.ExternalIDs {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("venue %s: %w", v.ID, err)
		}
	}
	return nil
}

// SameDetails reports whether the descriptive fields match, ignoring
// identity, children and audit data.
func (v Venue) SameDetails(o Venue) bool {
	return v.Name == o.Name &&
		eqString(v.ShortName, o.ShortName) &&
		v.IsGrass == o.IsGrass &&
		v.IsIndoor == o.IsIndoor &&
		v.Slug == o.Slug &&
		v.Capacity == o.Capacity &&
		eqString(v.City, o.City) &&
		eqString(v.State, o.State) &&
		eqString(v.PostalCode, o.PostalCode) &&
		eqString(v.Country, o.Country) &&
		eqFloat(v.Latitude, o.Latitude) &&
		eqFloat(v.Longitude, o.Longitude)
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
