package insights

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkroute/inkroute/internal/platform/httpx"
)

// Handler manages the read-only insight endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers insight routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/debtors", h.debtors)
	r.Get("/insights", h.summary)
	r.Get("/dashboard-stats", h.dashboard)
}

type debtorsResponse struct {
	Debtors []Debtor `json:"debtors"`
}

func (h *Handler) debtors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	debtors, err := h.service.Debtors(r.Context(), DebtorSort(q.Get("sort")), q.Get("dir") == "desc")
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("list debtors", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, debtorsResponse{Debtors: debtors})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("business summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
