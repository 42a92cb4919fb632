package stockin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lenana-drops/lenana/internal/platform/httpx"
	"github.com/lenana-drops/lenana/internal/shared"
)

// Handler serves stock intake endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type createIntakeRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	Source    string `json:"source" validate:"max=200"`
	Note      string `json:"note" validate:"max=500"`
}

// Create handles POST /stock-intakes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIntakeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	intake, err := h.service.Create(r.Context(), CreateInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Source:    req.Source,
		Note:      req.Note,
		ActorID:   actor.ID,
	})
	if err != nil {
		h.logger.Error("create intake", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, intake)
}

// Approve handles POST /stock-intakes/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := intakeID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid intake id")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	intake, err := h.service.Approve(r.Context(), id, actor.ID)
	if err != nil {
		h.logger.Error("approve intake", slog.Int64("intake_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, intake)
}

// Reject handles POST /stock-intakes/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := intakeID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid intake id")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	intake, err := h.service.Reject(r.Context(), id, actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, intake)
}

// Show handles GET /stock-intakes/{id}.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := intakeID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid intake id")
		return
	}
	intake, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, intake)
}

// List handles GET /stock-intakes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePage(r)
	var status *IntakeStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := IntakeStatus(raw)
		status = &st
	}
	out, err := h.service.List(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		h.logger.Error("list intakes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func intakeID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
