package production

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lenana-drops/lenana/internal/platform/httpx"
	"github.com/lenana-drops/lenana/internal/shared"
)

// Handler serves production batch endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type createBatchRequest struct {
	ProductID       int64 `json:"product_id" validate:"required,gt=0"`
	QuantityPlanned int64 `json:"quantity_planned" validate:"required,gt=0"`
}

type completeBatchRequest struct {
	QuantityCompleted *int64 `json:"quantity_completed" validate:"required,gte=0"`
}

type rejectBatchRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type qcApproveRequest struct {
	DefectiveQty *int64 `json:"defective_qty" validate:"required,gte=0"`
	PassedQty    *int64 `json:"passed_qty" validate:"required,gte=0"`
	Notes        string `json:"notes"`
}

// Create handles POST /batches.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())

	batch, err := h.service.Create(r.Context(), CreateInput{
		ProductID:       req.ProductID,
		QuantityPlanned: req.QuantityPlanned,
		ActorID:         actor.ID,
	})
	if err != nil {
		h.logger.Error("create batch", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, batch)
}

// Start handles POST /batches/{id}/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	batch, err := h.service.Start(r.Context(), id, actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

// Complete handles POST /batches/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}
	var req completeBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	batch, err := h.service.Complete(r.Context(), id, *req.QuantityCompleted, actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

// Reject handles POST /batches/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}
	var req rejectBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	batch, err := h.service.Reject(r.Context(), id, req.Reason, actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

// QCApprove handles POST /batches/{id}/qc-approve.
func (h *Handler) QCApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}
	var req qcApproveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	batch, err := h.service.QCApprove(r.Context(), QCApproveInput{
		BatchID:      id,
		DefectiveQty: *req.DefectiveQty,
		PassedQty:    *req.PassedQty,
		Notes:        req.Notes,
		ActorID:      actor.ID,
	})
	if err != nil {
		h.logger.Error("qc approve", slog.Int64("batch_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

// Show handles GET /batches/{id}.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.batchID(w, r)
	if !ok {
		return
	}
	batch, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

// List handles GET /batches.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	}
	if v := q.Get("status"); v != "" {
		status := BatchStatus(v)
		filter.Status = &status
	}
	if v := q.Get("product_id"); v != "" {
		if productID, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.ProductID = &productID
		}
	}
	if t := parseDate(q.Get("date_from")); t != nil {
		filter.DateFrom = t
	}
	if t := parseDate(q.Get("date_to")); t != nil {
		filter.DateTo = t
	}
	page := shared.ParsePage(r)
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	batches, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list batches", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) batchID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return 0, false
	}
	return id, true
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}
