package season

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
)

// Phase is one season type such as the preseason, regular season or
// postseason. TypeCode is the provider's type number and is unique within a
// season.
type Phase struct {
	ID           string
	SeasonID     string
	TypeCode     int
	Name         string
	Abbreviation string
	Slug         string
	Year         int
	StartDate    time.Time
	EndDate      time.Time
	HasGroups    bool
	HasStandings bool
	HasLegs      bool
}

type Season struct {
	ID            string
	Year          int
	Name          string
	StartDate     time.Time
	EndDate       time.Time
	ActivePhaseID *string
	Phases        []Phase
	audit.Audit
}

func (s Season) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("season id is required")
	}
	if s.Year <= 0 {
		return fmt.Errorf("season year is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("season name is required")
	}
	if s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("season %d ends before it starts", s.Year)
	}
	for _, p := range s.Phases {
		if p.ID == "" || p.SeasonID != s.ID {
			return fmt.Errorf("season %d: phase %q does not belong to season %s", s.Year, p.Name, s.ID)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("season %d: phase %d name is required", s.Year, p.TypeCode)
		}
	}
	if s.ActivePhaseID != nil && s.Phase(*s.ActivePhaseID) == nil {
		return fmt.Errorf("season %d: active phase %s is not one of its phases", s.Year, *s.ActivePhaseID)
	}
	return nil
}

// Phase returns the phase with phaseID, or nil.
func (s Season) Phase(phaseID string) *Phase {
	for i := range s.Phases {
		if s.Phases[i].ID == phaseID {
			return &s.Phases[i]
		}
	}
	return nil
}

// PhaseByType returns the phase with the provider type code, or nil.
func (s Season) PhaseByType(typeCode int) *Phase {
	for i := range s.Phases {
		if s.Phases[i].TypeCode == typeCode {
			return &s.Phases[i]
		}
	}
	return nil
}

// SameDetails compares the descriptive fields and phases, ignoring audit data.
func (s Season) SameDetails(o Season) bool {
	if s.Year != o.Year || s.Name != o.Name ||
		!s.StartDate.Equal(o.StartDate) || !s.EndDate.Equal(o.EndDate) ||
		!eqString(s.ActivePhaseID, o.ActivePhaseID) ||
		len(s.Phases) != len(o.Phases) {
		return false
	}
	for _, p := range s.Phases {
		other := o.PhaseByType(p.TypeCode)
		if other == nil || !p.same(*other) {
			return false
		}
	}
	return true
}

func (p Phase) same(o Phase) bool {
	return p.ID == o.ID &&
		p.Name == o.Name &&
		p.Abbreviation == o.Abbreviation &&
		p.Slug == o.Slug &&
		p.Year == o.Year &&
		p.StartDate.Equal(o.StartDate) &&
		p.EndDate.Equal(o.EndDate) &&
		p.HasGroups == o.HasGroups &&
		p.HasStandings == o.HasStandings &&
		p.HasLegs == o.HasLegs
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
