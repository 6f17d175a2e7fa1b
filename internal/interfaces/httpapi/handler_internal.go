package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/sportsdata-producer/internal/schema"
	"github.com/riskibarqy/sportsdata-producer/internal/usecase"
)

func (h *Handler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ProcessDocument")
	defer span.End()

	var req usecase.DocumentMessage
	if err := decodeJSONBody(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	env, err := req.Envelope()
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if env.CorrelationID == "" {
		env.CorrelationID = correlationIDFromContext(ctx)
	}

	result, err := h.documents.Process(ctx, env)
	if err != nil {
		h.logger.WarnContext(ctx, "process document failed",
			"document_id", req.ID,
			"document_type", req.DocumentType,
			"source_url", req.SourceURL,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeSuccess(ctx, w, status, result)
}

func (h *Handler) FinalizeContest(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FinalizeContest")
	defer span.End()

	var req finalizeContestRequest
	if err := decodeJSONBody(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	contestID := r.PathValue("contestID")
	item, err := h.contests.Finalize(ctx, usecase.FinalizeContestInput{
		ContestID:     contestID,
		HomeScore:     *req.HomeScore,
		AwayScore:     *req.AwayScore,
		CorrelationID: correlationIDFromContext(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "finalize contest failed", "contest_id", contestID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, contestToDTO(item))
}

func (h *Handler) EnrichFranchiseSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EnrichFranchiseSeason")
	defer span.End()

	franchiseSeasonID := r.PathValue("franchiseSeasonID")
	item, err := h.enrichment.Enrich(ctx, franchiseSeasonID, correlationIDFromContext(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "enrich franchise season failed", "franchise_season_id", franchiseSeasonID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, franchiseSeasonToDTO(item))
}

func (h *Handler) EnrichSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EnrichSeason")
	defer span.End()

	seasonYear, err := pathSeasonYear(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	result, err := h.enrichment.EnrichSeason(ctx, seasonYear, correlationIDFromContext(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "enrich season failed", "season_year", seasonYear, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) UpsertFranchiseSeasonMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpsertFranchiseSeasonMetrics")
	defer span.End()

	var input usecase.UpsertMetricInput
	if err := decodeJSONBody(r, &input, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	input.FranchiseSeasonID = r.PathValue("franchiseSeasonID")
	if input.CorrelationID == "" {
		input.CorrelationID = correlationIDFromContext(ctx)
	}

	item, err := h.metrics.Upsert(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "upsert franchise season metrics failed", "franchise_season_id", input.FranchiseSeasonID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, metricToDTO(item))
}

func (h *Handler) GetOutboxStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetOutboxStats")
	defer span.End()

	if h.outbox == nil {
		writeError(ctx, w, fmt.Errorf("%w: outbox relay is not configured", usecase.ErrDependencyUnavailable))
		return
	}
	stats, err := h.outbox.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "outbox stats failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, outboxStatsToDTO(stats))
}

func (h *Handler) RunOutboxRelay(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunOutboxRelay")
	defer span.End()

	if h.outbox == nil {
		writeError(ctx, w, fmt.Errorf("%w: outbox relay is not configured", usecase.ErrDependencyUnavailable))
		return
	}
	stats, err := h.outbox.RunOnce(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "outbox relay run failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, relayRunToDTO(stats))
}

// VerifySchema replays the migration set and reports the structural checks.
func (h *Handler) VerifySchema(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.VerifySchema")
	defer span.End()

	if h.migrations == nil {
		writeError(ctx, w, fmt.Errorf("%w: migration source is not configured", usecase.ErrDependencyUnavailable))
		return
	}
	set, err := schema.Load(h.migrations, ".")
	if err != nil {
		h.logger.ErrorContext(ctx, "load migration set failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	report := schema.Verify(set, schema.DefaultRules())
	if !report.OK() {
		h.logger.WarnContext(ctx, "schema verification found problems", "findings", len(report.Findings))
	}
	writeSuccess(ctx, w, http.StatusOK, schemaReportToDTO(report))
}
