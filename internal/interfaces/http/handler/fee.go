package handler

import (
	"github.com/gin-gonic/gin"

	feeapp "github.com/schoolfees/backend/internal/application/fee"
	"github.com/schoolfees/backend/internal/interfaces/http/dto"
	"github.com/schoolfees/backend/internal/interfaces/http/middleware"
)

// FeeHandler serves the collection desk: dashboard, statement, form
// pre-fill, collection and the transaction register.
type FeeHandler struct {
	BaseHandler
	dashboard    *feeapp.DashboardService
	prefill      *feeapp.PrefillService
	collection   *feeapp.CollectionService
	transactions *feeapp.TransactionService
}

// FeeHandlerDeps holds the services a FeeHandler needs
type FeeHandlerDeps struct {
	Dashboard    *feeapp.DashboardService
	Prefill      *feeapp.PrefillService
	Collection   *feeapp.CollectionService
	Transactions *feeapp.TransactionService
}

// NewFeeHandler creates a new FeeHandler
func NewFeeHandler(deps FeeHandlerDeps) *FeeHandler {
	return &FeeHandler{
		dashboard:    deps.Dashboard,
		prefill:      deps.Prefill,
		collection:   deps.Collection,
		transactions: deps.Transactions,
	}
}

// Dashboard godoc
// @Summary      Student fee dashboard
// @Tags         fees
// @Produce      json
// @Param        student_id path string true "Student admission number"
// @Param        session_id path int true "Session"
// @Success      200 {object} dto.Response{data=feeapp.DashboardResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fees/dashboard/{student_id}/session/{session_id} [get]
func (h *FeeHandler) Dashboard(c *gin.Context) {
	sessionID, ok := pathInt(c, "session_id")
	if !ok {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidInput), dto.ErrCodeInvalidInput, "session_id must be a positive integer")
		return
	}
	dashboard, err := h.dashboard.Get(c.Request.Context(), c.Param("student_id"), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}

// Statement returns a student's statement, optionally limited to a date range
func (h *FeeHandler) Statement(c *gin.Context) {
	var req feeapp.StatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	statement, err := h.dashboard.Statement(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statement)
}

// Prefill godoc
// @Summary      Pre-fill a collection form
// @Description  Applies one of the pre-fill modes (bill, all_pending, first_unpaid, fee_head)
// @Description  to the submitted form and returns it. Dues whose fee type is unknown are
// @Description  listed as unmatched instead of being dropped.
// @Tags         fees
// @Accept       json
// @Produce      json
// @Param        request body feeapp.PrefillRequest true "Mode and current form"
// @Success      200 {object} dto.Response{data=feeapp.PrefillResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fees/prefill [post]
func (h *FeeHandler) Prefill(c *gin.Context) {
	var req feeapp.PrefillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	resp, err := h.prefill.Prefill(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Collect godoc
// @Summary      Collect a fee
// @Description  Records a payment and allocates it to the student's open bills.
// @Description  A repeated Idempotency-Key is rejected with 409.
// @Tags         fees
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client generated key for safe retries"
// @Param        request body feeapp.CollectFeeRequest true "Collection"
// @Success      201 {object} dto.Response{data=feeapp.ReceiptResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fees/collect [post]
func (h *FeeHandler) Collect(c *gin.Context) {
	var req feeapp.CollectFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(middleware.IdempotencyKeyHeader)
	if claims := middleware.GetJWTClaims(c); claims != nil {
		req.CollectedBy = claims.CollectorName()
	}

	receipt, err := h.collection.Collect(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, receipt)
}

// Transactions lists fee transactions with filters and pagination
func (h *FeeHandler) Transactions(c *gin.Context) {
	var filter feeapp.TransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}
	page, err := h.transactions.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
