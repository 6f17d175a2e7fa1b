package httpapi

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
	"github.com/riskibarqy/sportsdata-producer/internal/usecase"
)

const maxRequestBodyBytes = 4 << 20

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

// OutboxRelay is the part of the outbox relay exposed to operators.
type OutboxRelay interface {
	RunOnce(ctx context.Context) (outbox.RunStats, error)
	Stats(ctx context.Context) (messaging.OutboxStats, error)
}

type HandlerDeps struct {
	Documents  *usecase.DocumentService
	Contests   *usecase.ContestService
	Enrichment *usecase.EnrichmentService
	Metrics    *usecase.MetricService
	Catalog    *usecase.CatalogService
	Outbox     OutboxRelay
	// Migrations is the migration source checked by the schema verify route.
	Migrations fs.FS
	Logger     *logging.Logger
}

type Handler struct {
	documents  *usecase.DocumentService
	contests   *usecase.ContestService
	enrichment *usecase.EnrichmentService
	metrics    *usecase.MetricService
	catalog    *usecase.CatalogService
	outbox     OutboxRelay
	migrations fs.FS
	logger     *logging.Logger
	validator  *validator.Validate
}

func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		documents:  deps.Documents,
		contests:   deps.Contests,
		enrichment: deps.Enrichment,
		metrics:    deps.Metrics,
		catalog:    deps.Catalog,
		outbox:     deps.Outbox,
		migrations: deps.Migrations,
		logger:     logger,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSONBody reads a JSON request body. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeJSONBody(r *http.Request, dst any, allowEmpty bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(body) > maxRequestBodyBytes {
		return fmt.Errorf("%w: request body exceeds %d bytes", usecase.ErrInvalidInput, maxRequestBodyBytes)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
	}

	if err := strictJSON.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: query %s must be an integer", usecase.ErrInvalidInput, key)
	}
	return v, nil
}

func pathSeasonYear(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("seasonYear"))
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: season year %q must be an integer", usecase.ErrInvalidInput, raw)
	}
	return v, nil
}
