package router

import (
	"github.com/schoolfees/backend/internal/infrastructure/auth"
	"github.com/schoolfees/backend/internal/interfaces/http/handler"
	"github.com/schoolfees/backend/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers served under /api/v1
type Handlers struct {
	Auth       *handler.AuthHandler
	Reference  *handler.ReferenceHandler
	DemandBill *handler.DemandBillHandler
	Fee        *handler.FeeHandler
	Strategy   *handler.StrategyHandler
}

// FeeDeskGroups returns the route groups of the fee desk API.
//
// Reading is open to any authenticated staff member. Collecting needs the
// collector or accounts role; billing and reference data changes need
// accounts. Admins hold every role.
func FeeDeskGroups(h Handlers) []*DomainGroup {
	collect := middleware.RequireRole(auth.RoleCollector, auth.RoleAccounts)
	accounts := middleware.RequireRole(auth.RoleAccounts)

	authGroup := NewDomainGroup("auth", "/auth").
		GET("/me", h.Auth.Me)

	feeTypes := NewDomainGroup("fee-types", "/fee-types").
		GET("", h.Reference.ListFeeTypes).
		POST("", accounts, h.Reference.CreateFeeType)

	students := NewDomainGroup("students", "/students").
		POST("", accounts, h.Reference.CreateStudent).
		GET("", h.Reference.ListStudents).
		GET("/:student_id", h.Reference.GetStudent)

	structures := NewDomainGroup("fee-structures", "/fee-structures").
		PUT("", accounts, h.Reference.SetFeeStructure).
		GET("", h.Reference.GetFeeStructure)

	discounts := NewDomainGroup("discounts", "/discounts").
		PUT("", accounts, h.Reference.UpsertDiscount)

	fees := NewDomainGroup("fees", "/fees").
		GET("/dashboard/:student_id/session/:session_id", h.Fee.Dashboard).
		POST("/statement", h.Fee.Statement).
		POST("/prefill", collect, h.Fee.Prefill).
		POST("/collect", collect, h.Fee.Collect).
		GET("/transactions", h.Fee.Transactions).
		GET("/allocation-strategies", h.Strategy.ListAllocationStrategies)

	fees.Group("demand-bills", "/demand-bills").
		POST("/generate", accounts, h.DemandBill.Generate).
		GET("/history/:session_id", h.DemandBill.History).
		DELETE("/batch", accounts, h.DemandBill.DeleteBatch).
		GET("/:bill_no", h.DemandBill.Get)

	return []*DomainGroup{authGroup, feeTypes, students, structures, discounts, fees}
}
