package handler

import (
	"github.com/gin-gonic/gin"

	feeapp "github.com/schoolfees/backend/internal/application/fee"
	"github.com/schoolfees/backend/internal/interfaces/http/dto"
)

// DemandBillHandler handles demand bill endpoints
type DemandBillHandler struct {
	BaseHandler
	bills *feeapp.BillService
}

// NewDemandBillHandler creates a new DemandBillHandler
func NewDemandBillHandler(bills *feeapp.BillService) *DemandBillHandler {
	return &DemandBillHandler{bills: bills}
}

// Generate godoc
// @Summary      Generate demand bills
// @Description  Bills one student, a list of students, or a whole class for a month.
// @Description  Students already billed for the period are reported as skipped.
// @Tags         demand-bills
// @Accept       json
// @Produce      json
// @Param        request body feeapp.GenerateBillsRequest true "Generation target"
// @Success      200 {object} dto.Response{data=fee.GenerationReport}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fees/demand-bills/generate [post]
func (h *DemandBillHandler) Generate(c *gin.Context) {
	var req feeapp.GenerateBillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	report, err := h.bills.Generate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// History returns the generation batches of a session
func (h *DemandBillHandler) History(c *gin.Context) {
	sessionID, ok := pathInt(c, "session_id")
	if !ok {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidInput), dto.ErrCodeInvalidInput, "session_id must be a positive integer")
		return
	}
	batches, err := h.bills.History(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// Get godoc
// @Summary      Get a demand bill
// @Description  Returns the bill with its per-item outstanding balances.
// @Tags         demand-bills
// @Produce      json
// @Param        bill_no path string true "Bill number"
// @Success      200 {object} dto.Response{data=feeapp.BillResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fees/demand-bills/{bill_no} [get]
func (h *DemandBillHandler) Get(c *gin.Context) {
	bill, err := h.bills.Get(c.Request.Context(), c.Param("bill_no"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// DeleteBatch removes unpaid bills. Bills with payments are refused.
func (h *DemandBillHandler) DeleteBatch(c *gin.Context) {
	var req feeapp.DeleteBillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	result, err := h.bills.DeleteBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
