package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inkroute/inkroute/internal/inventory"
	"github.com/inkroute/inkroute/internal/money"
	"github.com/inkroute/inkroute/internal/platform/httpx"
	"github.com/inkroute/inkroute/internal/shared"
)

// Handler manages invoice, payment and credit-note endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.listInvoices)
	r.Post("/invoices", h.createInvoice)
	r.Get("/invoices/{id}", h.showInvoice)
	r.Post("/invoices/{id}/payments", h.recordPayment)
	r.Post("/credit-notes", h.createCreditNote)
	r.Get("/credit-notes/{id}", h.showCreditNote)
}

type invoiceLineRequest struct {
	BookID   int64 `json:"book_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

type createInvoiceRequest struct {
	CustomerID int64                `json:"customer_id" validate:"required,gt=0"`
	DueDate    string               `json:"due_date" validate:"required"`
	Items      []invoiceLineRequest `json:"items" validate:"dive"`
}

type recordPaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
	Notes  string `json:"notes" validate:"max=500"`
}

type creditLineRequest struct {
	BookID    int64  `json:"book_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	UnitPrice string `json:"unit_price" validate:"required"`
}

type createCreditNoteRequest struct {
	CustomerID        int64               `json:"customer_id" validate:"required,gt=0"`
	OriginalInvoiceID int64               `json:"original_invoice_id" validate:"required,gt=0"`
	Reason            string              `json:"reason" validate:"max=500"`
	Items             []creditLineRequest `json:"items" validate:"min=1,dive"`
}

type invoiceListResponse struct {
	Invoices   []InvoiceSummary  `json:"invoices"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := InvoiceFilter{Status: InvoiceStatus(q.Get("status"))}
	filter.CustomerID, _ = strconv.ParseInt(q.Get("customer_id"), 10, 64)
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	invoices, total, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoiceListResponse{
		Invoices:   invoices,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
		return
	}

	input := CreateInvoiceInput{CustomerID: req.CustomerID, DueDate: dueDate}
	for _, line := range req.Items {
		input.Lines = append(input.Lines, InvoiceLine{BookID: line.BookID, Quantity: line.Quantity})
	}

	view, err := h.service.CreateInvoice(r.Context(), input)
	if err != nil {
		h.respondWriteErr(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	view, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.respondReadErr(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	var req recordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	view, err := h.service.RecordPayment(r.Context(), id, req.Amount, req.Notes)
	if err != nil {
		h.respondWriteErr(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) createCreditNote(w http.ResponseWriter, r *http.Request) {
	var req createCreditNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateCreditNoteInput{
		CustomerID:        req.CustomerID,
		OriginalInvoiceID: req.OriginalInvoiceID,
		Reason:            req.Reason,
	}
	for _, line := range req.Items {
		price, err := money.Parse(line.UnitPrice)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unit_price must be a numeric amount")
			return
		}
		input.Lines = append(input.Lines, CreditLine{
			BookID:    line.BookID,
			Quantity:  line.Quantity,
			UnitPrice: price,
		})
	}

	note, err := h.service.CreateCreditNote(r.Context(), input)
	if err != nil {
		h.respondWriteErr(w, "create credit note", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, note)
}

func (h *Handler) showCreditNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid credit note id")
		return
	}
	note, err := h.service.GetCreditNote(r.Context(), id)
	if err != nil {
		h.respondReadErr(w, "get credit note", err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}

// Write paths report unresolvable references as client faults, not 404s:
// the URL exists, the payload is wrong.
func (h *Handler) respondWriteErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound),
		errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, inventory.ErrBookNotFound),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrOverpayment),
		errors.Is(err, ErrInvoiceAlreadyPaid):
		httpx.Problem(w, http.StatusBadRequest, "Unprocessable Request", err.Error())
	case errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) respondReadErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrCreditNoteNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
