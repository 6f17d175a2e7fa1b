package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/franchises", handler.ListFranchises)
	mux.HandleFunc("GET /v1/franchises/{franchiseID}", handler.GetFranchise)
	mux.HandleFunc("GET /v1/franchises/{franchiseID}/seasons", handler.ListFranchiseSeasons)
	mux.HandleFunc("GET /v1/franchise-seasons/{franchiseSeasonID}", handler.GetFranchiseSeason)
	mux.HandleFunc("GET /v1/franchise-seasons/{franchiseSeasonID}/metrics", handler.GetFranchiseSeasonMetrics)
	mux.HandleFunc("GET /v1/seasons/{seasonYear}", handler.GetSeason)
	mux.HandleFunc("GET /v1/seasons/{seasonYear}/franchise-season-metrics", handler.ListSeasonMetrics)
	mux.HandleFunc("GET /v1/venues/{venueID}", handler.GetVenue)
	mux.HandleFunc("GET /v1/contests/{contestID}", handler.GetContest)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	internal := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, RequireInternalJobToken(internalJobToken, fn))
	}

	internal("POST /v1/internal/documents", handler.ProcessDocument)
	internal("POST /v1/internal/contests/{contestID}/finalize", handler.FinalizeContest)
	internal("POST /v1/internal/franchise-seasons/{franchiseSeasonID}/enrich", handler.EnrichFranchiseSeason)
	internal("POST /v1/internal/seasons/{seasonYear}/enrich", handler.EnrichSeason)
	internal("PUT /v1/internal/franchise-seasons/{franchiseSeasonID}/metrics", handler.UpsertFranchiseSeasonMetrics)
	internal("GET /v1/internal/outbox/stats", handler.GetOutboxStats)
	internal("POST /v1/internal/outbox/relay", handler.RunOutboxRelay)
	internal("GET /v1/internal/schema/verify", handler.VerifySchema)
}
