package franchise

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
)

var hexColor = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

type Logo struct {
	ID              string
	ParentID        string
	OriginalURLHash string
	URI             string
	Height          *int64
	Width           *int64
	Rel             []string
}

// Franchise is a team identity that persists across seasons.
type Franchise struct {
	ID               string
	Sport            sport.Sport
	Name             string
	Nickname         *string
	Abbreviation     *string
	Location         string
	DisplayName      string
	DisplayNameShort string
	ColorCodeHex     string
	ColorCodeAltHex  *string
	IsActive         bool
	Slug             string
	VenueID          *string
	ExternalIDs      []externalid.ExternalID
	Logos            []Logo
	audit.Audit
}

func (f Franchise) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("franchise id is required")
	}
	if !f.Sport.Valid() {
		return fmt.Errorf("franchise sport %d is unknown", int(f.Sport))
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("franchise name is required")
	}
	if strings.TrimSpace(f.Slug) == "" {
		return fmt.Errorf("franchise slug is required")
	}
	if !hexColor.MatchString(f.ColorCodeHex) {
		return fmt.Errorf("franchise color %q is not a hex color", f.ColorCodeHex)
	}
	for _, e := range f.ExternalIDs {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("franchise %s: %w", f.ID, err)
		}
	}
	return nil
}

// NormalizeColor returns a 7 character #rrggbb value, defaulting to black.
func NormalizeColor(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if !hexColor.MatchString(raw) {
		return "#000000"
	}
	return "#" + strings.ToLower(raw)
}

func (f Franchise) SameDetails(o Franchise) bool {
	return f.Sport == o.Sport &&
		f.Name == o.Name &&
		eq(f.Nickname, o.Nickname) &&
		eq(f.Abbreviation, o.Abbreviation) &&
		f.Location == o.Location &&
		f.DisplayName == o.DisplayName &&
		f.DisplayNameShort == o.DisplayNameShort &&
		f.ColorCodeHex == o.ColorCodeHex &&
		eq(f.ColorCodeAltHex, o.ColorCodeAltHex) &&
		f.IsActive == o.IsActive &&
		f.Slug == o.Slug &&
		eq(f.VenueID, o.VenueID)
}

// HasLogo reports whether a logo with the given original url hash exists.
func HasLogo(logos []Logo, hash string) bool {
	for _, l := range logos {
		if l.OriginalURLHash == hash {
			return true
		}
	}
	return false
}

func eq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
