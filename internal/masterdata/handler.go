package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkroute/inkroute/internal/platform/httpx"
	"github.com/inkroute/inkroute/internal/shared"
)

// Handler manages the reference-table endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers master-data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/authors", h.listAuthors)
	r.Post("/authors", h.createAuthor)
	r.Get("/authors/{id}", h.showAuthor)
	r.Get("/publishers", h.listPublishers)
	r.Post("/publishers", h.createPublisher)
	r.Get("/publishers/{id}", h.showPublisher)
	r.Get("/route-axes", h.listRouteAxes)
	r.Post("/route-axes", h.createRouteAxis)
	r.Get("/route-axes/{id}", h.showRouteAxis)
}

type nameRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func parseFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("search")}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return filter
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrAuthorNotFound),
		errors.Is(err, ErrPublisherNotFound),
		errors.Is(err, ErrRouteAxisNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrDuplicate):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) decodeName(w http.ResponseWriter, r *http.Request) (nameRequest, bool) {
	var req nameRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return nameRequest{}, false
	}
	return req, true
}

type listResponse[T any] struct {
	Items      []T               `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listAuthors(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)
	authors, total, err := h.service.ListAuthors(r.Context(), filter)
	if err != nil {
		h.respondErr(w, "list authors", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[Author]{
		Items:      authors,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) showAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid author id")
		return
	}
	author, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get author", err)
		return
	}
	httpx.JSON(w, http.StatusOK, author)
}

func (h *Handler) createAuthor(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeName(w, r)
	if !ok {
		return
	}
	author, err := h.service.CreateAuthor(r.Context(), req.Name)
	if err != nil {
		h.respondErr(w, "create author", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, author)
}

func (h *Handler) listPublishers(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)
	publishers, total, err := h.service.ListPublishers(r.Context(), filter)
	if err != nil {
		h.respondErr(w, "list publishers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[Publisher]{
		Items:      publishers,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) showPublisher(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid publisher id")
		return
	}
	publisher, err := h.service.GetPublisher(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get publisher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, publisher)
}

func (h *Handler) createPublisher(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeName(w, r)
	if !ok {
		return
	}
	publisher, err := h.service.CreatePublisher(r.Context(), req.Name)
	if err != nil {
		h.respondErr(w, "create publisher", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, publisher)
}

func (h *Handler) listRouteAxes(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)
	axes, total, err := h.service.ListRouteAxes(r.Context(), filter)
	if err != nil {
		h.respondErr(w, "list route axes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[RouteAxis]{
		Items:      axes,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) showRouteAxis(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid route axis id")
		return
	}
	axis, err := h.service.GetRouteAxis(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get route axis", err)
		return
	}
	httpx.JSON(w, http.StatusOK, axis)
}

func (h *Handler) createRouteAxis(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeName(w, r)
	if !ok {
		return
	}
	axis, err := h.service.CreateRouteAxis(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondErr(w, "create route axis", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, axis)
}
