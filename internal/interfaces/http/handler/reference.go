package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	feeapp "github.com/schoolfees/backend/internal/application/fee"
)

// ReferenceHandler serves the reference data the fee desk works from:
// fee types, students, class fee structures and student discounts.
type ReferenceHandler struct {
	BaseHandler
	feeTypes   *feeapp.FeeTypeService
	students   *feeapp.StudentService
	structures *feeapp.StructureService
}

// NewReferenceHandler creates a new ReferenceHandler
func NewReferenceHandler(
	feeTypes *feeapp.FeeTypeService,
	students *feeapp.StudentService,
	structures *feeapp.StructureService,
) *ReferenceHandler {
	return &ReferenceHandler{feeTypes: feeTypes, students: students, structures: structures}
}

// ListFeeTypes godoc
// @Summary      List fee types
// @Tags         fee-types
// @Produce      json
// @Param        active_only query bool false "Only active fee types"
// @Success      200 {object} dto.Response{data=[]feeapp.FeeTypeResponse}
// @Security     BearerAuth
// @Router       /fee-types [get]
func (h *ReferenceHandler) ListFeeTypes(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active_only"))
	types, err := h.feeTypes.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, types)
}

// CreateFeeType godoc
// @Summary      Create a fee type
// @Tags         fee-types
// @Accept       json
// @Produce      json
// @Param        request body feeapp.CreateFeeTypeRequest true "Fee type"
// @Success      201 {object} dto.Response{data=feeapp.FeeTypeResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fee-types [post]
func (h *ReferenceHandler) CreateFeeType(c *gin.Context) {
	var req feeapp.CreateFeeTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	ft, err := h.feeTypes.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ft)
}

// CreateStudent registers a student for a session
func (h *ReferenceHandler) CreateStudent(c *gin.Context) {
	var req feeapp.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, student)
}

// ListStudents lists students with pagination
func (h *ReferenceHandler) ListStudents(c *gin.Context) {
	var filter feeapp.StudentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}
	page, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetStudent returns one student by admission number
func (h *ReferenceHandler) GetStudent(c *gin.Context) {
	student, err := h.students.GetByStudentID(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, student)
}

// SetFeeStructure replaces a class fee structure
func (h *ReferenceHandler) SetFeeStructure(c *gin.Context) {
	var req feeapp.SetFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	structure, err := h.structures.Set(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, structure)
}

type feeStructureQuery struct {
	SessionID int    `form:"session_id" binding:"required,min=1"`
	ClassName string `form:"class_name" binding:"required"`
}

// GetFeeStructure returns the fee structure of a class in a session
func (h *ReferenceHandler) GetFeeStructure(c *gin.Context) {
	var q feeStructureQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	structure, err := h.structures.Get(c.Request.Context(), q.SessionID, q.ClassName)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, structure)
}

// UpsertDiscount sets a student's concession on one fee type
func (h *ReferenceHandler) UpsertDiscount(c *gin.Context) {
	var req feeapp.UpsertDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	discount, err := h.structures.UpsertDiscount(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, discount)
}
