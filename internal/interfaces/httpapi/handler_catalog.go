package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/usecase"
)

func (h *Handler) ListFranchises(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFranchises")
	defer span.End()

	input := usecase.ListFranchisesInput{Sport: sport.All}
	if raw := strings.TrimSpace(r.URL.Query().Get("sport")); raw != "" && !strings.EqualFold(raw, "all") {
		s, err := sport.Parse(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
			return
		}
		input.Sport = s
	}
	var err error
	if input.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	if input.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.catalog.ListFranchises(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "list franchises failed", "sport", input.Sport.String(), "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]franchiseDTO, 0, len(items))
	for _, f := range items {
		out = append(out, franchiseToDTO(f))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetFranchise(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFranchise")
	defer span.End()

	franchiseID := r.PathValue("franchiseID")
	item, err := h.catalog.GetFranchise(ctx, franchiseID)
	if err != nil {
		h.logger.WarnContext(ctx, "get franchise failed", "franchise_id", franchiseID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, franchiseToDTO(item))
}

func (h *Handler) ListFranchiseSeasons(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFranchiseSeasons")
	defer span.End()

	franchiseID := r.PathValue("franchiseID")
	items, err := h.catalog.ListFranchiseSeasons(ctx, franchiseID)
	if err != nil {
		h.logger.WarnContext(ctx, "list franchise seasons failed", "franchise_id", franchiseID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]franchiseSeasonDTO, 0, len(items))
	for _, fs := range items {
		out = append(out, franchiseSeasonToDTO(fs))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetFranchiseSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFranchiseSeason")
	defer span.End()

	franchiseSeasonID := r.PathValue("franchiseSeasonID")
	item, err := h.catalog.GetFranchiseSeason(ctx, franchiseSeasonID)
	if err != nil {
		h.logger.WarnContext(ctx, "get franchise season failed", "franchise_season_id", franchiseSeasonID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, franchiseSeasonToDTO(item))
}

func (h *Handler) GetFranchiseSeasonMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFranchiseSeasonMetrics")
	defer span.End()

	franchiseSeasonID := r.PathValue("franchiseSeasonID")
	item, err := h.metrics.GetByFranchiseSeason(ctx, franchiseSeasonID)
	if err != nil {
		h.logger.WarnContext(ctx, "get franchise season metrics failed", "franchise_season_id", franchiseSeasonID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, metricToDTO(item))
}

func (h *Handler) GetSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSeason")
	defer span.End()

	seasonYear, err := pathSeasonYear(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	item, err := h.catalog.GetSeason(ctx, seasonYear)
	if err != nil {
		h.logger.WarnContext(ctx, "get season failed", "season_year", seasonYear, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, seasonToDTO(item))
}

func (h *Handler) ListSeasonMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSeasonMetrics")
	defer span.End()

	seasonYear, err := pathSeasonYear(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	items, err := h.metrics.ListBySeason(ctx, seasonYear)
	if err != nil {
		h.logger.WarnContext(ctx, "list season metrics failed", "season_year", seasonYear, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]metricDTO, 0, len(items))
	for _, m := range items {
		out = append(out, metricToDTO(m))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetVenue(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetVenue")
	defer span.End()

	venueID := r.PathValue("venueID")
	item, err := h.catalog.GetVenue(ctx, venueID)
	if err != nil {
		h.logger.WarnContext(ctx, "get venue failed", "venue_id", venueID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, venueToDTO(item))
}

func (h *Handler) GetContest(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetContest")
	defer span.End()

	contestID := r.PathValue("contestID")
	item, err := h.contests.GetByID(ctx, contestID)
	if err != nil {
		h.logger.WarnContext(ctx, "get contest failed", "contest_id", contestID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, contestToDTO(item))
}
