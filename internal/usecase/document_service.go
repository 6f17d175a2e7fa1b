package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/documenttype"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/groupseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/season"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

// DocumentFetcher loads a provider document by url.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DocumentEnvelope is one provider document to ingest. Payload is optional;
// when empty the document is fetched from SourceURL.
type DocumentEnvelope struct {
	ID            string                    `json:"id" validate:"required"`
	DocumentType  documenttype.DocumentType `json:"documentType" validate:"required"`
	Provider      externalid.Provider       `json:"provider"`
	Sport         sport.Sport               `json:"sport" validate:"required"`
	SeasonYear    int                       `json:"seasonYear" validate:"omitempty,gte=1869,lte=2100"`
	SourceURL     string                    `json:"sourceUrl" validate:"required,url"`
	ParentID      string                    `json:"parentId,omitempty" validate:"omitempty,uuid"`
	CorrelationID string                    `json:"correlationId,omitempty"`
	Payload       []byte                    `json:"payload,omitempty"`
}

// DocumentResult reports what processing a document changed.
type DocumentResult struct {
	DocumentType documenttype.DocumentType `json:"documentType"`
	EntityID     string                    `json:"entityId,omitempty"`
	Created      bool                      `json:"created"`
	Updated      bool                      `json:"updated"`
	Events       []string                  `json:"events,omitempty"`
}

type DocumentServiceDeps struct {
	Venues           venue.Repository
	Franchises       franchise.Repository
	FranchiseSeasons franchiseseason.Repository
	Seasons          season.Repository
	GroupSeasons     groupseason.Repository
	Contests         contest.Repository
	Odds             contest.OddsRepository
	Events           messaging.EventSink
	Fetcher          DocumentFetcher
	IDs              id.Generator
	Logger           *logging.Logger
}

type DocumentService struct {
	venues           venue.Repository
	franchises       franchise.Repository
	franchiseSeasons franchiseseason.Repository
	seasons          season.Repository
	groupSeasons     groupseason.Repository
	contests         contest.Repository
	odds             contest.OddsRepository
	events           messaging.EventSink
	fetcher          DocumentFetcher
	ids              id.Generator
	logger           *logging.Logger
	validate         *validator.Validate
	now              func() time.Time
}

func NewDocumentService(deps DocumentServiceDeps) *DocumentService {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ids := deps.IDs
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &DocumentService{
		venues:           deps.Venues,
		franchises:       deps.Franchises,
		franchiseSeasons: deps.FranchiseSeasons,
		seasons:          deps.Seasons,
		groupSeasons:     deps.GroupSeasons,
		contests:         deps.Contests,
		odds:             deps.Odds,
		events:           deps.Events,
		fetcher:          deps.Fetcher,
		ids:              ids,
		logger:           logger,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		now:              time.Now,
	}
}

// Process ingests one provider document. Documents whose references are not
// stored yet fail with ErrDependencyNotReady after the missing documents
// have been requested.
func (s *DocumentService) Process(ctx context.Context, env DocumentEnvelope) (DocumentResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DocumentService.Process")
	defer span.End()

	env, err := s.normalizeEnvelope(env)
	if err != nil {
		return DocumentResult{}, err
	}
	result := DocumentResult{DocumentType: env.DocumentType}

	var process func(context.Context, DocumentEnvelope, []byte) (DocumentResult, error)
	switch env.DocumentType {
	case documenttype.Venue:
		process = s.processVenue
	case documenttype.Franchise:
		process = s.processFranchise
	case documenttype.Season:
		process = s.processSeason
	case documenttype.GroupSeason:
		process = s.processGroupSeason
	case documenttype.TeamSeason:
		process = s.processTeamSeason
	case documenttype.Event:
		process = s.processEvent
	case documenttype.EventCompetitionOdds:
		process = s.processOdds
	default:
		return result, fmt.Errorf("%w: %s", ErrUnsupportedDocument, env.DocumentType)
	}

	raw, err := s.loadPayload(ctx, env)
	if err != nil {
		return result, err
	}

	result, err = process(ctx, env, raw)
	result.DocumentType = env.DocumentType
	if err != nil {
		return result, err
	}

	s.logger.InfoContext(ctx, "document processed",
		"document_id", env.ID,
		"document_type", env.DocumentType,
		"entity_id", result.EntityID,
		"created", result.Created,
		"updated", result.Updated,
		"correlation_id", env.CorrelationID,
	)
	return result, nil
}

func (s *DocumentService) normalizeEnvelope(env DocumentEnvelope) (DocumentEnvelope, error) {
	env.ID = strings.TrimSpace(env.ID)
	env.SourceURL = strings.TrimSpace(env.SourceURL)
	env.ParentID = strings.TrimSpace(env.ParentID)
	env.CorrelationID = strings.TrimSpace(env.CorrelationID)
	env.DocumentType = documenttype.DocumentType(strings.ToLower(strings.TrimSpace(string(env.DocumentType))))

	if err := s.validate.Struct(env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !env.DocumentType.Known() {
		return env, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, env.DocumentType)
	}
	if !env.Provider.Valid() {
		return env, fmt.Errorf("%w: unknown provider %d", ErrInvalidInput, int(env.Provider))
	}
	if !env.Sport.Valid() {
		return env, fmt.Errorf("%w: unknown sport %d", ErrInvalidInput, int(env.Sport))
	}

	// created_by columns are uuids, so a missing or foreign correlation id is
	// replaced by the document id when that is a uuid, or a fresh one.
	if !id.Valid(env.CorrelationID) {
		if id.Valid(env.ID) {
			env.CorrelationID = env.ID
		} else {
			correlationID, err := s.ids.NewID()
			if err != nil {
				return env, err
			}
			env.CorrelationID = correlationID
		}
	}
	return env, nil
}

func (s *DocumentService) loadPayload(ctx context.Context, env DocumentEnvelope) ([]byte, error) {
	if len(env.Payload) > 0 {
		return env.Payload, nil
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: document %s has no payload and no fetcher is configured", ErrInvalidInput, env.ID)
	}
	raw, err := s.fetcher.Fetch(ctx, env.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", env.SourceURL, err)
	}
	return raw, nil
}

func (s *DocumentService) processVenue(ctx context.Context, env DocumentEnvelope, raw []byte) (DocumentResult, error) {
	var doc providerVenueDocument
	if err := decodeDocument(raw, &doc); err != nil {
		return DocumentResult{}, err
	}
	value := doc.ID.String()
	if value == "" || strings.TrimSpace(doc.FullName) == "" {
		return DocumentResult{}, fmt.Errorf("%w: venue document requires id and fullName", ErrInvalidInput)
	}
	sourceURL := firstNonEmpty(env.SourceURL, doc.Ref)

	candidate := venue.Venue{
		Name:       strings.TrimSpace(doc.FullName),
		ShortName:  optionalString(doc.ShortName),
		IsGrass:    doc.Grass,
		IsIndoor:   doc.Indoor,
		Slug:       slugify(doc.FullName),
		Capacity:   max(doc.Capacity, 0),
		City:       optionalString(doc.Address.City),
		State:      optionalString(doc.Address.State),
		PostalCode: optionalString(doc.Address.ZipCode.String()),
		Country:    optionalString(doc.Address.Country),
		Latitude:   doc.Latitude,
		Longitude:  doc.Longitude,
	}

	existing, found, err := s.venues.GetByExternalValue(ctx, env.Provider, value)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("get venue by external id: %w", err)
	}

	var events []messaging.Event
	result := DocumentResult{}
	if !found {
		if candidate.ID, err = s.ids.NewID(); err != nil {
			return result, err
		}
		candidate.Audit = auditCreated(env, s.now())
		extID, err := s.newExternalID(candidate.ID, value, env.Provider, sourceURL)
		if err != nil {
			return result, err
		}
		candidate.ExternalIDs = []externalid.ExternalID{extID}
		result.Created = true
	} else {
		candidate.ID = existing.ID
		candidate.Audit = existing.Audit
		candidate.ExternalIDs = existing.ExternalIDs
		candidate.Images = existing.Images
	}

	newImages, imageEvents, err := s.venueImages(env, candidate, doc.Images)
	if err != nil {
		return result, err
	}
	candidate.Images = append(candidate.Images, newImages...)
	addedExternalID, err := s.appendExternalID(&candidate.ExternalIDs, candidate.ID, value, env.Provider, sourceURL)
	if err != nil {
		return result, err
	}

	if found {
		if existing.SameDetails(candidate) && len(newImages) == 0 && !addedExternalID {
			return DocumentResult{EntityID: existing.ID}, nil
		}
		candidate.Touch(env.CorrelationID, s.now())
		result.Updated = true
	}

	eventType := messaging.TypeVenueCreated
	if found {
		eventType = messaging.TypeVenueUpdated
	}
	changed, err := s.newEvent(env, eventType, messaging.VenueChanged{VenueID: candidate.ID, Name: candidate.Name, Slug: candidate.Slug})
	if err != nil {
		return result, err
	}
	events = append(events, changed)
	events = append(events, imageEvents...)

	if err := s.venues.Save(ctx, candidate, events); err != nil {
		return result, fmt.Errorf("save venue: %w", err)
	}
	result.EntityID = candidate.ID
	result.Events = eventTypes(events)
	return result, nil
}

func (s *DocumentService) venueImages(env DocumentEnvelope, v venue.Venue, images []providerImage) ([]venue.Image, []messaging.Event, error) {
	var (
		added  []venue.Image
		events []messaging.Event
	)
	seen := map[string]bool{}
	for _, img := range v.Images {
		seen[img.OriginalURLHash] = true
	}
	for _, img := range images {
		href := strings.TrimSpace(img.Href)
		if href == "" {
			continue
		}
		hash := imageHash(href)
		if seen[hash] {
			continue
		}
		seen[hash] = true

		imageID, err := s.ids.NewID()
		if err != nil {
			return nil, nil, err
		}
		added = append(added, venue.Image{
			ID:              imageID,
			VenueID:         v.ID,
			OriginalURLHash: hash,
			URI:             href,
			Height:          img.Height,
			Width:           img.Width,
		})
		ev, err := s.newEvent(env, messaging.TypeProcessImageRequest, messaging.ProcessImageRequest{
			URL:             href,
			ImageID:         imageID,
			ParentEntityID:  v.ID,
			OriginalURLHash: hash,
			DocumentType:    env.DocumentType,
			Sport:           env.Sport,
			SeasonYear:      env.SeasonYear,
			Height:          img.Height,
			Width:           img.Width,
			Rel:             img.Rel,
		})
		if err != nil {
			return nil, nil, err
		}
		events = append(events, ev)
	}
	return added, events, nil
}

func (s *DocumentService) processFranchise(ctx context.Context, env DocumentEnvelope, raw []byte) (DocumentResult, error) {
	var doc providerFranchiseDocument
	if err := decodeDocument(raw, &doc); err != nil {
		return DocumentResult{}, err
	}
	value := doc.ID.String()
	if value == "" || strings.TrimSpace(doc.DisplayName) == "" {
		return DocumentResult{}, fmt.Errorf("%w: franchise document requires id and displayName", ErrInvalidInput)
	}
	sourceURL := firstNonEmpty(env.SourceURL, doc.Ref)

	candidate := franchise.Franchise{
		Sport:            env.Sport,
		Name:             firstNonEmpty(doc.Name, doc.DisplayName),
		Nickname:         optionalString(doc.Nickname),
		Abbreviation:     optionalString(doc.Abbreviation),
		Location:         strings.TrimSpace(doc.Location),
		DisplayName:      strings.TrimSpace(doc.DisplayName),
		DisplayNameShort: firstNonEmpty(doc.ShortDisplayName, doc.DisplayName),
		ColorCodeHex:     franchise.NormalizeColor(doc.Color),
		IsActive:         doc.IsActive,
		Slug:             firstNonEmpty(doc.Slug, slugify(doc.DisplayName)),
	}
	if alt := strings.TrimSpace(doc.AlternateColor); alt != "" {
		normalized := franchise.NormalizeColor(alt)
		candidate.ColorCodeAltHex = &normalized
	}

	existing, found, err := s.franchises.GetByExternalValue(ctx, env.Provider, value)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("get franchise by external id: %w", err)
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
		candidate.Logos = existing.Logos
		candidate.VenueID = existing.VenueID
	}

	var events []messaging.Event
	if doc.Venue != nil {
		venueID, requested, err := s.resolveVenue(ctx, env, *doc.Venue, candidate.ID)
		if err != nil {
			return result, err
		}
		if venueID != nil {
			candidate.VenueID = venueID
		}
		if requested != nil {
			events = append(events, *requested)
		}
	}

	addedExternalID, err := s.appendExternalID(&candidate.ExternalIDs, candidate.ID, value, env.Provider, sourceURL)
	if err != nil {
		return result, err
	}
	newLogos, logoEvents, err := s.logos(env, candidate.ID, candidate.Logos, doc.Logos)
	if err != nil {
		return result, err
	}
	candidate.Logos = append(candidate.Logos, newLogos...)

	if found {
		if existing.SameDetails(candidate) && len(newLogos) == 0 && !addedExternalID && len(events) == 0 {
			return DocumentResult{EntityID: existing.ID}, nil
		}
		candidate.Touch(env.CorrelationID, s.now())
		result.Updated = true
	}

	eventType := messaging.TypeFranchiseCreated
	if found {
		eventType = messaging.TypeFranchiseUpdated
	}
	changed, err := s.newEvent(env, eventType, messaging.FranchiseChanged{
		FranchiseID: candidate.ID,
		Sport:       candidate.Sport,
		Slug:        candidate.Slug,
		DisplayName: candidate.DisplayName,
		VenueID:     candidate.VenueID,
	})
	if err != nil {
		return result, err
	}
	events = append([]messaging.Event{changed}, events...)
	events = append(events, logoEvents...)

	if err := s.franchises.Save(ctx, candidate, events); err != nil {
		return result, fmt.Errorf("save franchise: %w", err)
	}
	result.EntityID = candidate.ID
	result.Events = eventTypes(events)
	return result, nil
}

// resolveVenue finds the venue a document points at. An unknown venue is
// requested and nil is returned so the parent can be stored without it.
func (s *DocumentService) resolveVenue(ctx context.Context, env DocumentEnvelope, ref providerVenue, parentID string) (*string, *messaging.Event, error) {
	venueID, err := s.findVenue(ctx, env, ref)
	if err != nil || venueID != nil || ref.Ref == "" {
		return venueID, nil, err
	}

	requested, err := s.documentRequest(env, documenttype.Venue, ref.Ref, parentID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Warn("venue not found, requesting source document", "venue_ref", ref.Ref, "parent_id", parentID)
	return nil, &requested, nil
}

func (s *DocumentService) findVenue(ctx context.Context, env DocumentEnvelope, ref providerVenue) (*string, error) {
	if ref.Ref != "" {
		v, ok, err := s.venues.GetBySourceURLHash(ctx, env.Provider, externalid.SourceURLHash(ref.Ref))
		if err != nil {
			return nil, fmt.Errorf("get venue by source url: %w", err)
		}
		if ok {
			return &v.ID, nil
		}
	}
	if value := ref.ID.String(); value != "" {
		v, ok, err := s.venues.GetByExternalValue(ctx, env.Provider, value)
		if err != nil {
			return nil, fmt.Errorf("get venue by external id: %w", err)
		}
		if ok {
			return &v.ID, nil
		}
	}
	return nil, nil
}

func (s *DocumentService) logos(env DocumentEnvelope, parentID string, existing []franchise.Logo, images []providerImage) ([]franchise.Logo, []messaging.Event, error) {
	var (
		added  []franchise.Logo
		events []messaging.Event
	)
	for _, img := range images {
		href := strings.TrimSpace(img.Href)
		if href == "" {
			continue
		}
		hash := imageHash(href)
		if franchise.HasLogo(existing, hash) || franchise.HasLogo(added, hash) {
			continue
		}

		logoID, err := s.ids.NewID()
		if err != nil {
			return nil, nil, err
		}
		added = append(added, franchise.Logo{
			ID:              logoID,
			ParentID:        parentID,
			OriginalURLHash: hash,
			URI:             href,
			Height:          img.Height,
			Width:           img.Width,
			Rel:             append([]string(nil), img.Rel...),
		})
		ev, err := s.newEvent(env, messaging.TypeProcessImageRequest, messaging.ProcessImageRequest{
			URL:             href,
			ImageID:         logoID,
			ParentEntityID:  parentID,
			OriginalURLHash: hash,
			DocumentType:    env.DocumentType,
			Sport:           env.Sport,
			SeasonYear:      env.SeasonYear,
			Height:          img.Height,
			Width:           img.Width,
			Rel:             img.Rel,
		})
		if err != nil {
			return nil, nil, err
		}
		events = append(events, ev)
	}
	return added, events, nil
}

func (s *DocumentService) processTeamSeason(ctx context.Context, env DocumentEnvelope, raw []byte) (DocumentResult, error) {
	var doc providerTeamSeasonDocument
	if err := decodeDocument(raw, &doc); err != nil {
		return DocumentResult{}, err
	}
	value := doc.ID.String()
	if value == "" || strings.TrimSpace(doc.DisplayName) == "" {
		return DocumentResult{}, fmt.Errorf("%w: team-season document requires id and displayName", ErrInvalidInput)
	}
	if env.SeasonYear == 0 {
		return DocumentResult{}, fmt.Errorf("%w: team-season document requires a season year", ErrInvalidInput)
	}
	sourceURL := firstNonEmpty(env.SourceURL, doc.Ref)

	owner, err := s.resolveFranchise(ctx, env, doc)
	if err != nil {
		return DocumentResult{}, err
	}

	candidate := franchiseseason.FranchiseSeason{
		FranchiseID:      owner.ID,
		SeasonYear:       env.SeasonYear,
		Slug:             firstNonEmpty(doc.Slug, owner.Slug, slugify(doc.DisplayName)),
		Location:         firstNonEmpty(doc.Location, owner.Location),
		Name:             firstNonEmpty(doc.Name, owner.Name),
		Abbreviation:     optionalString(doc.Abbreviation),
		DisplayName:      strings.TrimSpace(doc.DisplayName),
		DisplayNameShort: firstNonEmpty(doc.ShortDisplayName, doc.DisplayName),
		ColorCodeHex:     franchise.NormalizeColor(firstNonEmpty(doc.Color, owner.ColorCodeHex)),
		IsActive:         doc.IsActive,
		IsAllStar:        doc.IsAllStar,
	}
	if alt := strings.TrimSpace(doc.AlternateColor); alt != "" {
		normalized := franchise.NormalizeColor(alt)
		candidate.ColorCodeAltHex = &normalized
	}

	existing, found, err := s.franchiseSeasons.GetBySourceURLHash(ctx, env.Provider, externalid.SourceURLHash(sourceURL))
	if err != nil {
		return DocumentResult{}, fmt.Errorf("get franchise season by source url: %w", err)
	}
	if !found {
		existing, found, err = s.franchiseSeasons.GetByFranchiseAndYear(ctx, owner.ID, env.SeasonYear)
		if err != nil {
			return DocumentResult{}, fmt.Errorf("get franchise season by year: %w", err)
		}
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
		candidate.Logos = existing.Logos
		candidate.Records = existing.Records
		candidate.VenueID = existing.VenueID
		candidate.GroupSeasonID = existing.GroupSeasonID
	}

	if doc.Venue != nil {
		// team seasons do not request venues; the franchise document does.
		venueID, err := s.findVenue(ctx, env, *doc.Venue)
		if err != nil {
			return result, err
		}
		if venueID != nil {
			candidate.VenueID = venueID
		}
	}
	if candidate.VenueID == nil {
		candidate.VenueID = owner.VenueID
	}

	if doc.Groups != nil && doc.Groups.Ref != "" {
		group, ok, err := s.groupSeasons.GetBySourceURLHash(ctx, env.Provider, externalid.SourceURLHash(doc.Groups.Ref))
		if err != nil {
			return result, fmt.Errorf("get group season: %w", err)
		}
		if ok {
			candidate.GroupSeasonID = &group.ID
		} else {
			s.logger.Debug("group season not found", "group_ref", doc.Groups.Ref, "franchise_season_id", candidate.ID)
		}
	}

	addedExternalID, err := s.appendExternalID(&candidate.ExternalIDs, candidate.ID, value, env.Provider, sourceURL)
	if err != nil {
		return result, err
	}
	newLogos, logoEvents, err := s.logos(env, candidate.ID, candidate.Logos, doc.Logos)
	if err != nil {
		return result, err
	}
	candidate.Logos = append(candidate.Logos, newLogos...)

	if found {
		candidate.Wins, candidate.Losses, candidate.Ties = existing.Wins, existing.Losses, existing.Ties
		candidate.ConferenceWins, candidate.ConferenceLosses, candidate.ConferenceTies = existing.ConferenceWins, existing.ConferenceLosses, existing.ConferenceTies
		candidate.Scoring = existing.Scoring
		if existing.SameDetails(candidate) && len(newLogos) == 0 && !addedExternalID {
			return DocumentResult{EntityID: existing.ID}, nil
		}
		candidate.Touch(env.CorrelationID, s.now())
		result.Updated = true
	}

	eventType := messaging.TypeFranchiseSeasonCreated
	if found {
		eventType = messaging.TypeFranchiseSeasonUpdated
	}
	changed, err := s.newEvent(env, eventType, messaging.FranchiseSeasonChanged{
		FranchiseSeasonID: candidate.ID,
		FranchiseID:       candidate.FranchiseID,
		SeasonYear:        candidate.SeasonYear,
		Sport:             env.Sport,
	})
	if err != nil {
		return result, err
	}
	events := append([]messaging.Event{changed}, logoEvents...)

	if err := s.franchiseSeasons.Save(ctx, candidate, events); err != nil {
		return result, fmt.Errorf("save franchise season: %w", err)
	}
	result.EntityID = candidate.ID
	result.Events = eventTypes(events)
	return result, nil
}

func (s *DocumentService) resolveFranchise(ctx context.Context, env DocumentEnvelope, doc providerTeamSeasonDocument) (franchise.Franchise, error) {
	if env.ParentID != "" {
		f, ok, err := s.franchises.GetByID(ctx, env.ParentID)
		if err != nil {
			return franchise.Franchise{}, fmt.Errorf("get franchise: %w", err)
		}
		if ok {
			return f, nil
		}
	}

	franchiseRef := ""
	if doc.Franchise != nil {
		franchiseRef = strings.TrimSpace(doc.Franchise.Ref)
	}
	if franchiseRef != "" {
		f, ok, err := s.franchises.GetBySourceURLHash(ctx, env.Provider, externalid.SourceURLHash(franchiseRef))
		if err != nil {
			return franchise.Franchise{}, fmt.Errorf("get franchise by source url: %w", err)
		}
		if ok {
			return f, nil
		}
	}
	if franchiseRef == "" {
		return franchise.Franchise{}, fmt.Errorf("%w: team-season %s has no franchise reference", ErrInvalidInput, doc.ID)
	}

	if err := s.requestDocuments(ctx, env, documenttype.Franchise, []string{franchiseRef}, ""); err != nil {
		return franchise.Franchise{}, err
	}
	return franchise.Franchise{}, fmt.Errorf("%w: franchise %s for team-season %s", ErrDependencyNotReady, franchiseRef, doc.ID)
}

func (s *DocumentService) processEvent(ctx context.Context, env DocumentEnvelope, raw []byte) (DocumentResult, error) {
	var doc providerEventDocument
	if err := decodeDocument(raw, &doc); err != nil {
		return DocumentResult{}, err
	}
	if doc.ID.String() == "" || strings.TrimSpace(doc.Name) == "" || len(doc.Competitions) == 0 {
		return DocumentResult{}, fmt.Errorf("%w: event document requires id, name and a competition", ErrInvalidInput)
	}
	if env.SeasonYear == 0 {
		return DocumentResult{}, fmt.Errorf("%w: event document requires a season year", ErrInvalidInput)
	}
	start, err := parseProviderTime(doc.Date)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("%w: event date: %v", ErrInvalidInput, err)
	}
	sourceURL := firstNonEmpty(env.SourceURL, doc.Ref)

	sides, err := s.resolveCompetitors(ctx, env, doc.Competitions[0])
	if err != nil {
		return DocumentResult{}, err
	}

	var venueID *string
	venueRefs := make([]string, 0, len(doc.Venues)+1)
	if v := doc.Competitions[0].Venue; v != nil {
		venueRefs = append(venueRefs, v.Ref)
	}
	for _, v := range doc.Venues {
		venueRefs = append(venueRefs, v.Ref)
	}
	for _, ref := range venueRefs {
		if strings.TrimSpace(ref) == "" {
			continue
		}
		v, ok, err := s.venues.GetBySourceURLHash(ctx, env.Provider, externalid.SourceURLHash(ref))
		if err != nil {
			return DocumentResult{}, fmt.Errorf("get venue by source url: %w", err)
		}
		if ok {
			venueID = &v.ID
			break
		}
	}

	var week *int
	if doc.Week != nil && doc.Week.Number != nil {
		n := *doc.Week.Number
		week = &n
	}

	existing, found, err := s.contests.GetBySourceURLHash(ctx, env.Provider, externalid.SourceURLHash(sourceURL))
	if err != nil {
		return DocumentResult{}, fmt.Errorf("get contest by source url: %w", err)
	}

	result := DocumentResult{}
	var candidate contest.Contest
	if found {
		candidate = existing
	} else {
		if candidate.ID, err = s.ids.NewID(); err != nil {
			return result, err
		}
		candidate.Audit = auditCreated(env, s.now())
		candidate.Sport = env.Sport
		candidate.SeasonYear = env.SeasonYear
		result.Created = true
	}

	before := existing
	candidate.Name = strings.TrimSpace(doc.Name)
	candidate.ShortName = firstNonEmpty(doc.ShortName, doc.Name)
	candidate.StartDateUTC = start
	candidate.HomeFranchiseSeasonID = sides[contest.HomeAwayHome]
	candidate.AwayFranchiseSeasonID = sides[contest.HomeAwayAway]
	if venueID != nil {
		candidate.VenueID = venueID
	}
	if week != nil {
		candidate.Week = week
	}

	addedExternalID, err := s.appendExternalID(&candidate.ExternalIDs, candidate.ID, doc.ID.String(), env.Provider, sourceURL)
	if err != nil {
		return result, err
	}
	competitionsChanged, err := s.mergeCompetitions(ctx, env, &candidate, doc.Competitions, sides)
	if err != nil {
		return result, err
	}

	if found {
		if sameContestSchedule(before, candidate) && !addedExternalID && !competitionsChanged {
			return DocumentResult{EntityID: existing.ID}, nil
		}
		candidate.Touch(env.CorrelationID, s.now())
		result.Updated = true
	}

	eventType := messaging.TypeContestCreated
	if found {
		eventType = messaging.TypeContestUpdated
	}
	changed, err := s.newEvent(env, eventType, messaging.ContestChanged{
		ContestID:  candidate.ID,
		Sport:      candidate.Sport,
		SeasonYear: candidate.SeasonYear,
		StartUTC:   candidate.StartDateUTC,
	})
	if err != nil {
		return result, err
	}
	events := []messaging.Event{changed}

	if err := s.contests.Save(ctx, candidate, events); err != nil {
		return result, fmt.Errorf("save contest: %w", err)
	}
	result.EntityID = candidate.ID
	result.Events = eventTypes(events)
	return result, nil
}

// resolveCompetitors maps home and away to franchise season ids. Missing
// team seasons are requested and the event is retried later.
func (s *DocumentService) resolveCompetitors(ctx context.Context, env DocumentEnvelope, comp providerCompetition) (map[string]string, error) {
	sides := map[string]string{}
	var missing []string
	for _, c := range comp.Competitors {
		side := strings.ToLower(strings.TrimSpace(c.HomeAway))
		if side != contest.HomeAwayHome && side != contest.HomeAwayAway {
			return nil, fmt.Errorf("%w: competitor home/away %q", ErrInvalidInput, c.HomeAway)
		}
		if strings.TrimSpace(c.Team.Ref) == "" {
			return nil, fmt.Errorf("%w: competitor %s has no team reference", ErrInvalidInput, c.ID)
		}
		fs, ok, err := s.franchiseSeasons.GetBySourceURLHash(ctx, env.Provider, externalid.SourceURLHash(c.Team.Ref))
		if err != nil {
			return nil, fmt.Errorf("get franchise season by source url: %w", err)
		}
		if !ok {
			missing = append(missing, c.Team.Ref)
			continue
		}
		sides[side] = fs.ID
	}

	if len(missing) > 0 {
		if err := s.requestDocuments(ctx, env, documenttype.TeamSeason, missing, ""); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d team season(s) for event %s", ErrDependencyNotReady, len(missing), env.SourceURL)
	}
	if sides[contest.HomeAwayHome] == "" || sides[contest.HomeAwayAway] == "" {
		return nil, fmt.Errorf("%w: event %s needs one home and one away competitor", ErrInvalidInput, env.SourceURL)
	}
	return sides, nil
}

// mergeCompetitions keeps the ids of known competitions and competitors so a
// re-import updates rows in place.
func (s *DocumentService) mergeCompetitions(ctx context.Context, env DocumentEnvelope, c *contest.Contest, docs []providerCompetition, sides map[string]string) (bool, error) {
	changed := false
	for _, doc := range docs {
		date, err := parseProviderTime(doc.Date)
		if err != nil {
			date = c.StartDateUTC
		}

		idx := -1
		if doc.Ref != "" {
			hash := externalid.SourceURLHash(doc.Ref)
			for i := range c.Competitions {
				if externalid.ContainsHash(c.Competitions[i].ExternalIDs, env.Provider, hash) {
					idx = i
					break
				}
			}
		}
		if idx < 0 && len(c.Competitions) == 1 && len(docs) == 1 {
			idx = 0
		}

		var comp contest.Competition
		if idx >= 0 {
			comp = c.Competitions[idx]
		} else {
			if comp.ID, err = s.ids.NewID(); err != nil {
				return false, err
			}
			comp.ContestID = c.ID
			changed = true
		}
		prev := comp

		comp.Date = date
		comp.Attendance = doc.Attendance
		comp.IsTimeValid = doc.TimeValid
		comp.IsDateValid = doc.DateValid
		comp.IsNeutralSite = doc.NeutralSite
		comp.IsConferenceCompetition = doc.ConferenceCompetition
		comp.IsDivisionCompetition = doc.DivisionCompetition
		comp.IsRecent = doc.Recent
		comp.IsBoxscoreAvailable = doc.BoxscoreAvailable
		comp.IsPlayByPlayAvailable = doc.PlayByPlayAvailable
		comp.VenueID = c.VenueID
		if doc.Type != nil {
			comp.TypeID = optionalString(doc.Type.ID.String())
			comp.TypeName = optionalString(doc.Type.Abbreviation)
		}
		if !sameCompetition(prev, comp) {
			changed = true
		}

		if doc.Ref != "" {
			value := firstNonEmpty(doc.ID.String(), c.ExternalIDs[0].Value)
			added, err := s.appendExternalID(&comp.ExternalIDs, comp.ID, value, env.Provider, doc.Ref)
			if err != nil {
				return false, err
			}
			changed = changed || added
		}

		competitors := make([]contest.Competitor, 0, len(doc.Competitors))
		for _, pc := range doc.Competitors {
			side := strings.ToLower(strings.TrimSpace(pc.HomeAway))
			next := contest.Competitor{
				CompetitionID:     comp.ID,
				FranchiseSeasonID: sides[side],
				Type:              firstNonEmpty(pc.Type, "team"),
				SortOrder:         pc.Order,
				HomeAway:          side,
			}
			if pc.CuratedRank != nil && pc.CuratedRank.Current != nil && *pc.CuratedRank.Current < 99 {
				rank := *pc.CuratedRank.Current
				next.CuratedRankCurrent = &rank
			}
			matched := false
			for _, known := range comp.Competitors {
				if known.HomeAway == side {
					next.ID = known.ID
					next.Winner = known.Winner
					matched = true
					if !sameCompetitor(known, next) {
						changed = true
					}
					break
				}
			}
			if !matched {
				if next.ID, err = s.ids.NewID(); err != nil {
					return false, err
				}
				changed = true
			}
			competitors = append(competitors, next)
		}
		comp.Competitors = competitors

		if idx >= 0 {
			c.Competitions[idx] = comp
		} else {
			c.Competitions = append(c.Competitions, comp)
		}
	}
	return changed, nil
}

func (s *DocumentService) processOdds(ctx context.Context, env DocumentEnvelope, raw []byte) (DocumentResult, error) {
	if env.ParentID == "" {
		return DocumentResult{}, fmt.Errorf("%w: odds document requires the competition id as parent id", ErrInvalidInput)
	}
	var doc providerOddsDocument
	if err := decodeDocument(raw, &doc); err != nil {
		return DocumentResult{}, err
	}
	providerID := doc.Provider.ID.String()
	if providerID == "" {
		return DocumentResult{}, fmt.Errorf("%w: odds document has no provider id", ErrInvalidInput)
	}

	comp, ok, err := s.contests.GetCompetition(ctx, env.ParentID)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("get competition: %w", err)
	}
	if !ok {
		return DocumentResult{}, fmt.Errorf("%w: competition %s", ErrDependencyNotReady, env.ParentID)
	}

	candidate := contest.Odds{
		CompetitionID:    comp.ID,
		ProviderRef:      firstNonEmpty(doc.Ref, env.SourceURL),
		ProviderID:       providerID,
		ProviderName:     strings.TrimSpace(doc.Provider.Name),
		ProviderPriority: doc.Provider.Priority,
		Details:          trimmedPtr(doc.Details),
		OverUnder:        doc.OverUnder,
		Spread:           doc.Spread,
		OverOdds:         doc.OverOdds,
		UnderOdds:        doc.UnderOdds,
		MoneylineWinner:  doc.MoneylineWinner,
		SpreadWinner:     doc.SpreadWinner,
	}
	candidate.ContentHash, err = oddsContentHash(candidate)
	if err != nil {
		return DocumentResult{}, err
	}

	existing, found, err := s.odds.GetByCompetitionAndProvider(ctx, comp.ID, providerID)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("get odds: %w", err)
	}

	result := DocumentResult{}
	eventType := messaging.TypeContestOddsCreated
	if found {
		if existing.ContentHash == candidate.ContentHash {
			return DocumentResult{EntityID: existing.ID}, nil
		}
		candidate.ID = existing.ID
		candidate.Audit = existing.Audit
		candidate.Touch(env.CorrelationID, s.now())
		eventType = messaging.TypeContestOddsUpdated
		result.Updated = true
	} else {
		if candidate.ID, err = s.ids.NewID(); err != nil {
			return result, err
		}
		candidate.Audit = auditCreated(env, s.now())
		result.Created = true
	}

	changed, err := s.newEvent(env, eventType, messaging.ContestOddsChanged{
		ContestID:     comp.ContestID,
		CompetitionID: comp.ID,
		ProviderID:    providerID,
		ContentHash:   candidate.ContentHash,
	})
	if err != nil {
		return result, err
	}
	events := []messaging.Event{changed}
	if err := s.odds.Upsert(ctx, candidate, events); err != nil {
		return result, fmt.Errorf("upsert odds: %w", err)
	}
	result.EntityID = candidate.ID
	result.Events = eventTypes(events)
	return result, nil
}

func (s *DocumentService) requestDocuments(ctx context.Context, env DocumentEnvelope, docType documenttype.DocumentType, uris []string, parentID string) error {
	if s.events == nil {
		return nil
	}
	events := make([]messaging.Event, 0, len(uris))
	for _, uri := range uris {
		ev, err := s.documentRequest(env, docType, uri, parentID)
		if err != nil {
			return err
		}
		events = append(events, ev)
	}
	if err := s.events.Emit(ctx, events); err != nil {
		return fmt.Errorf("request %s documents: %w", docType, err)
	}
	s.logger.InfoContext(ctx, "requested missing documents", "document_type", docType, "count", len(events), "correlation_id", env.CorrelationID)
	return nil
}

func (s *DocumentService) documentRequest(env DocumentEnvelope, docType documenttype.DocumentType, uri, parentID string) (messaging.Event, error) {
	requestID, err := s.ids.NewID()
	if err != nil {
		return messaging.Event{}, err
	}
	return s.newEvent(env, messaging.TypeDocumentRequested, messaging.DocumentRequested{
		ID:           requestID,
		ParentID:     parentID,
		URI:          strings.TrimSpace(uri),
		Sport:        env.Sport,
		SeasonYear:   env.SeasonYear,
		DocumentType: docType,
		Provider:     env.Provider,
	})
}

func (s *DocumentService) newEvent(env DocumentEnvelope, messageType string, payload any) (messaging.Event, error) {
	eventID, err := s.ids.NewID()
	if err != nil {
		return messaging.Event{}, err
	}
	return messaging.Event{
		ID:            eventID,
		Type:          messageType,
		Payload:       payload,
		CorrelationID: env.CorrelationID,
		CausationID:   env.ID,
		OccurredAt:    s.now().UTC(),
	}, nil
}

func (s *DocumentService) newExternalID(parentID, value string, provider externalid.Provider, sourceURL string) (externalid.ExternalID, error) {
	extID, err := s.ids.NewID()
	if err != nil {
		return externalid.ExternalID{}, err
	}
	return externalid.New(extID, parentID, value, provider, sourceURL), nil
}

// appendExternalID adds the provider link unless its source url is already known.
func (s *DocumentService) appendExternalID(ids *[]externalid.ExternalID, parentID, value string, provider externalid.Provider, sourceURL string) (bool, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return false, nil
	}
	if externalid.ContainsHash(*ids, provider, externalid.SourceURLHash(sourceURL)) {
		return false, nil
	}
	extID, err := s.newExternalID(parentID, value, provider, sourceURL)
	if err != nil {
		return false, err
	}
	*ids = append(*ids, extID)
	return true, nil
}

func decodeDocument(raw []byte, target any) error {
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode provider document: %v", ErrInvalidInput, err)
	}
	return nil
}

func auditCreated(env DocumentEnvelope, now time.Time) audit.Audit {
	return audit.Created(env.CorrelationID, now)
}

func eventTypes(events []messaging.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

var providerTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z",
	"2006-01-02",
}

func parseProviderTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range providerTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

func sameContestSchedule(a, b contest.Contest) bool {
	return a.Name == b.Name &&
		a.ShortName == b.ShortName &&
		a.StartDateUTC.Equal(b.StartDateUTC) &&
		a.HomeFranchiseSeasonID == b.HomeFranchiseSeasonID &&
		a.AwayFranchiseSeasonID == b.AwayFranchiseSeasonID &&
		equalStringPtr(a.VenueID, b.VenueID) &&
		equalIntPtr(a.Week, b.Week)
}

func sameCompetition(a, b contest.Competition) bool {
	return a.Date.Equal(b.Date) &&
		a.Attendance == b.Attendance &&
		a.IsTimeValid == b.IsTimeValid &&
		a.IsDateValid == b.IsDateValid &&
		a.IsNeutralSite == b.IsNeutralSite &&
		a.IsConferenceCompetition == b.IsConferenceCompetition &&
		a.IsDivisionCompetition == b.IsDivisionCompetition &&
		a.IsRecent == b.IsRecent &&
		a.IsBoxscoreAvailable == b.IsBoxscoreAvailable &&
		a.IsPlayByPlayAvailable == b.IsPlayByPlayAvailable &&
		equalStringPtr(a.TypeID, b.TypeID) &&
		equalStringPtr(a.TypeName, b.TypeName) &&
		equalStringPtr(a.VenueID, b.VenueID)
}

func sameCompetitor(a, b contest.Competitor) bool {
	return a.FranchiseSeasonID == b.FranchiseSeasonID &&
		a.Type == b.Type &&
		a.SortOrder == b.SortOrder &&
		a.HomeAway == b.HomeAway &&
		equalIntPtr(a.CuratedRankCurrent, b.CuratedRankCurrent)
}
