package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/documenttype"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/groupseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/season"
)

// processSeason stores the season for a year with its phases. Seasons are
// keyed by year; phases by their type code. New phases that carry groups
// request their group-season documents.
func (s *DocumentService) processSeason(ctx context.Context, env DocumentEnvelope, raw []byte) (DocumentResult, error) {
	var doc providerSeasonDocument
	if err := decodeDocument(raw, &doc); err != nil {
		return DocumentResult{}, err
	}
	year := doc.Year
	if year == 0 {
		year = env.SeasonYear
	}
	if err := validateSeasonYear(year); err != nil {
		return DocumentResult{}, err
	}
	env.SeasonYear = year

	start, err := parseProviderTime(doc.StartDate)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("%w: season start date: %v", ErrInvalidInput, err)
	}
	end, err := parseProviderTime(doc.EndDate)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("%w: season end date: %v", ErrInvalidInput, err)
	}

	existing, found, err := s.seasons.GetByYear(ctx, year)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("get season: %w", err)
	}

	candidate := season.Season{
		Year:      year,
		Name:      firstNonEmpty(doc.DisplayName, strconv.Itoa(year)),
		StartDate: start,
		EndDate:   end,
	}
	result := DocumentResult{}
	if !found {
		if candidate.ID, err = s.ids.NewID(); err != nil {
			return result, err
		}
		candidate.Audit = auditCreated(env, s.now())
		result.Created = true
	} else {
		candidate.ID = existing.ID
		candidate.Audit = existing.Audit
		candidate.ActivePhaseID = existing.ActivePhaseID
		candidate.Phases = append([]season.Phase(nil), existing.Phases...)
	}

	var added []season.Phase
	for _, item := range seasonPhaseDocuments(doc) {
		phase, err := seasonPhaseFromDocument(item, candidate)
		if err != nil {
			return result, err
		}
		if current := candidate.PhaseByType(phase.TypeCode); current != nil {
			phase.ID = current.ID
			*current = phase
			continue
		}
		if phase.ID, err = s.ids.NewID(); err != nil {
			return result, err
		}
		candidate.Phases = append(candidate.Phases, phase)
		added = append(added, phase)
	}
	if doc.Type != nil {
		if active := candidate.PhaseByType(doc.Type.typeCode()); active != nil {
			activeID := active.ID
			candidate.ActivePhaseID = &activeID
		}
	}

	var requests []messaging.Event
	for _, phase := range added {
		ref := groupsRef(doc, phase.TypeCode)
		if !phase.HasGroups || ref == "" {
			continue
		}
		req, err := s.documentRequest(env, documenttype.GroupSeason, ref, phase.ID)
		if err != nil {
			return result, err
		}
		requests = append(requests, req)
	}

	if found {
		if existing.SameDetails(candidate) {
			return DocumentResult{EntityID: existing.ID}, nil
		}
		candidate.Touch(env.CorrelationID, s.now())
		result.Updated = true
	}

	eventType := messaging.TypeSeasonCreated
	if found {
		eventType = messaging.TypeSeasonUpdated
	}
	changed, err := s.newEvent(env, eventType, messaging.SeasonChanged{
		SeasonID:      candidate.ID,
		Year:          candidate.Year,
		Sport:         env.Sport,
		ActivePhaseID: candidate.ActivePhaseID,
	})
	if err != nil {
		return result, err
	}
	events := append([]messaging.Event{changed}, requests...)

	if err := s.seasons.Save(ctx, candidate, events); err != nil {
		return result, fmt.Errorf("save season: %w", err)
	}
	result.EntityID = candidate.ID
	result.Events = eventTypes(events)
	return result, nil
}

// seasonPhaseDocuments lists the phases of a season document once per type
// code. The embedded current type comes last so it wins over the list item.
func seasonPhaseDocuments(doc providerSeasonDocument) []providerSeasonType {
	var items []providerSeasonType
	if doc.Types != nil {
		items = append(items, doc.Types.Items...)
	}
	if doc.Type != nil {
		items = append(items, *doc.Type)
	}

	out := make([]providerSeasonType, 0, len(items))
	index := make(map[int]int, len(items))
	for _, item := range items {
		code := item.typeCode()
		if code <= 0 {
			continue
		}
		if i, ok := index[code]; ok {
			out[i] = item
			continue
		}
		index[code] = len(out)
		out = append(out, item)
	}
	return out
}

func groupsRef(doc providerSeasonDocument, typeCode int) string {
	for _, item := range seasonPhaseDocuments(doc) {
		if item.typeCode() == typeCode && item.Groups != nil {
			return strings.TrimSpace(item.Groups.Ref)
		}
	}
	return ""
}

// seasonPhaseFromDocument maps a phase. Missing dates fall back to the
// season's own range.
func seasonPhaseFromDocument(item providerSeasonType, parent season.Season) (season.Phase, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return season.Phase{}, fmt.Errorf("%w: season %d phase %d requires a name", ErrInvalidInput, parent.Year, item.typeCode())
	}
	start, err := phaseTime(item.StartDate, parent.StartDate)
	if err != nil {
		return season.Phase{}, fmt.Errorf("%w: season %d phase %d start date: %v", ErrInvalidInput, parent.Year, item.typeCode(), err)
	}
	end, err := phaseTime(item.EndDate, parent.EndDate)
	if err != nil {
		return season.Phase{}, fmt.Errorf("%w: season %d phase %d end date: %v", ErrInvalidInput, parent.Year, item.typeCode(), err)
	}
	year := item.Year
	if year == 0 {
		year = parent.Year
	}
	return season.Phase{
		SeasonID:     parent.ID,
		TypeCode:     item.typeCode(),
		Name:         name,
		Abbreviation: strings.TrimSpace(item.Abbreviation),
		Slug:         firstNonEmpty(item.Slug, slugify(name)),
		Year:         year,
		StartDate:    start,
		EndDate:      end,
		HasGroups:    item.HasGroups,
		HasStandings: item.HasStandings,
		HasLegs:      item.HasLegs,
	}, nil
}

func phaseTime(raw string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return parseProviderTime(raw)
}

// processGroupSeason stores a conference or division for one season year,
// matched by its source url. A parent group that is not stored yet is
// requested and linked when the child is next processed.
func (s *DocumentService) processGroupSeason(ctx context.Context, env DocumentEnvelope, raw []byte) (DocumentResult, error) {
	var doc providerGroupSeasonDocument
	if err := decodeDocument(raw, &doc); err != nil {
		return DocumentResult{}, err
	}
	value := doc.ID.String()
	name := strings.TrimSpace(doc.Name)
	if value == "" || name == "" {
		return DocumentResult{}, fmt.Errorf("%w: group-season document requires id and name", ErrInvalidInput)
	}
	if env.SeasonYear == 0 {
		return DocumentResult{}, fmt.Errorf("%w: group-season document requires a season year", ErrInvalidInput)
	}
	sourceURL := firstNonEmpty(env.SourceURL, doc.Ref)

	candidate := groupseason.GroupSeason{
		SeasonYear:   env.SeasonYear,
		Name:         name,
		Slug:         firstNonEmpty(doc.Slug, slugify(name)),
		Abbreviation: strings.TrimSpace(doc.Abbreviation),
		ShortName:    firstNonEmpty(doc.ShortName, doc.Abbreviation, name),
		MidsizeName:  optionalString(doc.MidsizeName),
		IsConference: doc.IsConference,
	}

	existing, found, err := s.groupSeasons.GetBySourceURLHash(ctx, env.Provider, externalid.SourceURLHash(sourceURL))
	if err != nil {
		return DocumentResult{}, fmt.Errorf("get group season by source url: %w", err)
	}

	result := DocumentResult{}
	if !found {
		if candidate.ID, err = s.ids.NewID(); err != nil {
			return result, err
		}
		candidate.Audit = auditCreated(env, s.now())
		result.Created = true
	} else {
		candidate.ID = existing.ID
		candidate.Audit = existing.Audit
		candidate.ExternalIDs = existing.ExternalIDs
		candidate.ParentID = existing.ParentID
		candidate.SeasonID = existing.SeasonID
	}

	if s.seasons != nil {
		sn, ok, err := s.seasons.GetByYear(ctx, env.SeasonYear)
		if err != nil {
			return result, fmt.Errorf("get season: %w", err)
		}
		if ok {
			candidate.SeasonID = &sn.ID
		}
	}

	var requests []messaging.Event
	if doc.Parent != nil && strings.TrimSpace(doc.Parent.Ref) != "" {
		parentRef := strings.TrimSpace(doc.Parent.Ref)
		parent, ok, err := s.groupSeasons.GetBySourceURLHash(ctx, env.Provider, externalid.SourceURLHash(parentRef))
		if err != nil {
			return result, fmt.Errorf("get parent group season: %w", err)
		}
		switch {
		case ok && parent.ID != candidate.ID:
			candidate.ParentID = &parent.ID
		case !ok:
			req, err := s.documentRequest(env, documenttype.GroupSeason, parentRef, "")
			if err != nil {
				return result, err
			}
			requests = append(requests, req)
			s.logger.WarnContext(ctx, "parent group season not found, requesting source document", "parent_ref", parentRef, "group_season_id", candidate.ID)
		}
	}

	addedExternalID, err := s.appendExternalID(&candidate.ExternalIDs, candidate.ID, value, env.Provider, sourceURL)
	if err != nil {
		return result, err
	}

	if found {
		if existing.SameDetails(candidate) && !addedExternalID && len(requests) == 0 {
			return DocumentResult{EntityID: existing.ID}, nil
		}
		candidate.Touch(env.CorrelationID, s.now())
		result.Updated = true
	}

	eventType := messaging.TypeGroupSeasonCreated
	if found {
		eventType = messaging.TypeGroupSeasonUpdated
	}
	changed, err := s.newEvent(env, eventType, messaging.GroupSeasonChanged{
		GroupSeasonID: candidate.ID,
		ParentID:      candidate.ParentID,
		SeasonYear:    candidate.SeasonYear,
		Name:          candidate.Name,
		IsConference:  candidate.IsConference,
	})
	if err != nil {
		return result, err
	}
	events := append([]messaging.Event{changed}, requests...)

	if err := s.groupSeasons.Save(ctx, candidate, events); err != nil {
		return result, fmt.Errorf("save group season: %w", err)
	}
	result.EntityID = candidate.ID
	result.Events = eventTypes(events)
	return result, nil
}
