package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inkroute/inkroute/internal/platform/httpx"
	"github.com/inkroute/inkroute/internal/shared"
)

// Handler manages catalog endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/books", h.list)
	r.Post("/books", h.create)
	r.Get("/books/{id}", h.show)
	r.Put("/books/{id}", h.update)
}

type bookRequest struct {
	Title           string `json:"title" validate:"required,max=255"`
	AuthorID        int64  `json:"author_id" validate:"required,gt=0"`
	PublisherID     int64  `json:"publisher_id" validate:"required,gt=0"`
	Price           string `json:"price" validate:"required"`
	QuantityInStock int64  `json:"quantity_in_stock" validate:"gte=0"`
}

type bookListResponse struct {
	Books      []Book            `json:"books"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := BookFilter{Search: q.Get("search")}
	filter.AuthorID, _ = strconv.ParseInt(q.Get("author_id"), 10, 64)
	filter.PublisherID, _ = strconv.ParseInt(q.Get("publisher_id"), 10, 64)
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	books, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list books", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bookListResponse{
		Books:      books,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	book, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get book", err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	book, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondErr(w, "create book", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, book)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	book, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondErr(w, "update book", err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (BookInput, bool) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return BookInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return BookInput{}, false
	}
	return BookInput{
		Title:           req.Title,
		AuthorID:        req.AuthorID,
		PublisherID:     req.PublisherID,
		Price:           req.Price,
		QuantityInStock: req.QuantityInStock,
	}, true
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrBookNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	if !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
