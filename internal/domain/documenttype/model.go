package documenttype

import (
	"fmt"
	"strings"
)

// DocumentType names a provider resource kind in kebab case.
type DocumentType string

const (
	Athlete                    DocumentType = "athlete"
	AthleteSeason              DocumentType = "athlete-season"
	Award                      DocumentType = "award"
	Coach                      DocumentType = "coach"
	CoachSeason                DocumentType = "coach-season"
	Event                      DocumentType = "event"
	EventCompetition           DocumentType = "event-competition"
	EventCompetitionCompetitor DocumentType = "event-competition-competitor"
	EventCompetitionDrive      DocumentType = "event-competition-drive"
	EventCompetitionOdds       DocumentType = "event-competition-odds"
	EventCompetitionPlay       DocumentType = "event-competition-play"
	Franchise                  DocumentType = "franchise"
	GroupSeason                DocumentType = "group-season"
	Position                   DocumentType = "position"
	Season                     DocumentType = "season"
	SeasonType                 DocumentType = "season-type"
	SeasonTypeWeek             DocumentType = "season-type-week"
	TeamSeason                 DocumentType = "team-season"
	TeamSeasonRank             DocumentType = "team-season-rank"
	TeamSeasonRecord           DocumentType = "team-season-record"
	Venue                      DocumentType = "venue"
)

var known = map[DocumentType]struct{}{
	Athlete: {}, AthleteSeason: {}, Award: {}, Coach: {}, CoachSeason: {},
	Event: {}, EventCompetition: {}, EventCompetitionCompetitor: {},
	EventCompetitionDrive: {}, EventCompetitionOdds: {}, EventCompetitionPlay: {},
	Franchise: {}, GroupSeason: {}, Position: {}, Season: {}, SeasonType: {},
	SeasonTypeWeek: {}, TeamSeason: {}, TeamSeasonRank: {}, TeamSeasonRecord: {},
	Venue: {},
}

func Parse(raw string) (DocumentType, error) {
	value := DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := known[value]; !ok {
		return "", fmt.Errorf("unknown document type %q", raw)
	}
	return value, nil
}

func (t DocumentType) Known() bool {
	_, ok := known[t]
	return ok
}

func (t DocumentType) String() string {
	return string(t)
}
