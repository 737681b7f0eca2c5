package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/procurehub/procurehub/internal/platform/httpx"
	"github.com/procurehub/procurehub/internal/shared"
)

// Lister is the listing capability the handler depends on.
type Lister interface {
	List(ctx context.Context, q Query) (Page, error)
}

// Handler manages procurement endpoints.
type Handler struct {
	logger  *slog.Logger
	service Lister
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Lister) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers procurement routes. Callers are expected to wrap the
// router with bearer authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/procurement", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	errs := make(map[string]string)
	page := parsePositive(values.Get("page"), 1, "page", errs)
	perPage := parsePositive(values.Get("per_page"), shared.DefaultPerPage, "per_page", errs)
	if perPage > shared.MaxPerPage {
		errs["per_page"] = "max"
	}
	if len(errs) > 0 {
		httpx.ValidationProblem(w, errs)
		return
	}

	result, err := h.service.List(r.Context(), Query{Search: values.Get("q"), Page: page, PerPage: perPage})
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, result)
	case errors.Is(err, ErrDatasetMissing):
		httpx.RespondError(w, ErrDatasetMissing)
	case errors.Is(err, ErrDatasetInvalid):
		h.logger.Error("procurement dataset invalid", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", ErrDatasetInvalid.Error())
	default:
		h.logger.Error("list procurement", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parsePositive(raw string, fallback int, field string, errs map[string]string) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		errs[field] = "min"
		return fallback
	}
	return v
}
