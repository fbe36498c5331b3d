package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	feeapp "github.com/schoolfees/backend/internal/application/fee"
	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/auth"
	"github.com/schoolfees/backend/internal/infrastructure/cache"
	"github.com/schoolfees/backend/internal/infrastructure/persistence"
	"github.com/schoolfees/backend/internal/infrastructure/persistence/models"
	infraStrategy "github.com/schoolfees/backend/internal/infrastructure/strategy"
	"github.com/schoolfees/backend/internal/interfaces/http/dto"
	"github.com/schoolfees/backend/internal/interfaces/http/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type feeDesk struct {
	t      *testing.T
	engine *gin.Engine
}

// newFeeDesk wires the fee handlers to real services over an in-memory
// sqlite database. Every request is made as collector "ravi".
func newFeeDesk(t *testing.T) *feeDesk {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	feeTypes := persistence.NewGormFeeTypeRepository(db)
	students := persistence.NewGormStudentRepository(db)
	structures := persistence.NewGormFeeStructureRepository(db)
	discounts := persistence.NewGormDiscountRepository(db)
	bills := persistence.NewGormDemandBillRepository(db)
	txns := persistence.NewGormFeeTransactionRepository(db)

	registry, err := infraStrategy.NewRegistryWithDefaults("fifo")
	require.NoError(t, err)
	idem := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idem.Close() })
	dashCache := cache.NewInMemoryDashboardCache(time.Minute)
	settings := feeapp.BillingSettings{DefaultDueDay: 10, LateFeeName: "Late Fee", AllocationStrategy: "fifo"}

	dashboards := feeapp.NewDashboardService(students, bills, txns, dashCache, nil, nil)
	ref := NewReferenceHandler(
		feeapp.NewFeeTypeService(feeTypes),
		feeapp.NewStudentService(students),
		feeapp.NewStructureService(structures, discounts, feeTypes, students),
	)
	billHandler := NewDemandBillHandler(
		feeapp.NewBillService(bills, txns, students, structures, discounts, dashCache, nil, settings, nil),
	)
	feeHandler := NewFeeHandler(FeeHandlerDeps{
		Dashboard: dashboards,
		Prefill:   feeapp.NewPrefillService(dashboards, feeTypes, nil, nil),
		Collection: feeapp.NewCollectionService(feeapp.CollectionServiceDeps{
			StudentRepo:       students,
			BillRepo:          bills,
			TxnRepo:           txns,
			FeeTypeRepo:       feeTypes,
			Strategies:        registry,
			Idempotency:       idem,
			IdempotencyConfig: shared.DefaultIdempotencyConfig(),
			Cache:             dashCache,
			Settings:          settings,
		}),
		Transactions: feeapp.NewTransactionService(txns),
	})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(func(c *gin.Context) {
		c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: "u-1", Username: "ravi", Roles: []string{auth.RoleCollector}})
		c.Next()
	})
	api := engine.Group("/api/v1")
	api.GET("/fee-types", ref.ListFeeTypes)
	api.POST("/fee-types", ref.CreateFeeType)
	api.POST("/students", ref.CreateStudent)
	api.GET("/students", ref.ListStudents)
	api.GET("/students/:student_id", ref.GetStudent)
	api.PUT("/fee-structures", ref.SetFeeStructure)
	api.GET("/fee-structures", ref.GetFeeStructure)
	api.PUT("/discounts", ref.UpsertDiscount)
	api.POST("/fees/demand-bills/generate", billHandler.Generate)
	api.GET("/fees/demand-bills/history/:session_id", billHandler.History)
	api.GET("/fees/demand-bills/:bill_no", billHandler.Get)
	api.DELETE("/fees/demand-bills/batch", billHandler.DeleteBatch)
	api.GET("/fees/dashboard/:student_id/session/:session_id", feeHandler.Dashboard)
	api.POST("/fees/statement", feeHandler.Statement)
	api.POST("/fees/prefill", feeHandler.Prefill)
	api.POST("/fees/collect", feeHandler.Collect)
	api.GET("/fees/transactions", feeHandler.Transactions)

	return &feeDesk{t: t, engine: engine}
}

func (d *feeDesk) do(method, path string, body any, headers ...string) (int, envelope) {
	d.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(d.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	d.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(d.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// seed creates two fee types, student S1 in class 5 and the class structure
func (d *feeDesk) seed() (tuitionID, transportID int64) {
	t := d.t
	code, env := d.do(http.MethodPost, "/api/v1/fee-types", gin.H{"name": "Tuition Fee"})
	require.Equal(t, http.StatusCreated, code)
	tuitionID = decodeData[feeapp.FeeTypeResponse](t, env).ID

	code, env = d.do(http.MethodPost, "/api/v1/fee-types", gin.H{"name": "Transport Fee"})
	require.Equal(t, http.StatusCreated, code)
	transportID = decodeData[feeapp.FeeTypeResponse](t, env).ID

	code, _ = d.do(http.MethodPost, "/api/v1/students", gin.H{
		"student_id": "S1", "name": "Asha", "class_name": "5", "section": "A", "session_id": 1,
	})
	require.Equal(t, http.StatusCreated, code)

	code, _ = d.do(http.MethodPut, "/api/v1/fee-structures", gin.H{
		"session_id": 1, "class_name": "5",
		"items": []gin.H{
			{"fee_type_id": tuitionID, "amount": "1000"},
			{"fee_type_id": transportID, "amount": "300"},
		},
	})
	require.Equal(t, http.StatusOK, code)
	return tuitionID, transportID
}

func (d *feeDesk) generateMay() string {
	code, env := d.do(http.MethodPost, "/api/v1/fees/demand-bills/generate", gin.H{
		"session_id": 1, "month": 5, "year": 2024, "student_id": "S1",
	})
	require.Equal(d.t, http.StatusOK, code)
	report := decodeData[fee.GenerationReport](d.t, env)
	require.Equal(d.t, 1, report.Generated)
	return report.Results[0].BillNo
}

func TestFeeDesk_GenerateThenCollect(t *testing.T) {
	desk := newFeeDesk(t)
	desk.seed()
	billNo := desk.generateMay()

	t.Run("regenerating the period skips the student", func(t *testing.T) {
		code, env := desk.do(http.MethodPost, "/api/v1/fees/demand-bills/generate", gin.H{
			"session_id": 1, "month": 5, "year": 2024, "student_id": "S1",
		})
		require.Equal(t, http.StatusOK, code)
		report := decodeData[fee.GenerationReport](t, env)
		assert.Equal(t, 1, report.Skipped)
	})

	code, env := desk.do(http.MethodGet, "/api/v1/fees/dashboard/S1/session/1", nil)
	require.Equal(t, http.StatusOK, code)
	dashboard := decodeData[feeapp.DashboardResponse](t, env)
	require.Len(t, dashboard.PendingBills, 1)
	assert.True(t, dashboard.PendingBills[0].Balance.Equal(decimal.NewFromInt(1300)))

	code, env = desk.do(http.MethodPost, "/api/v1/fees/prefill", gin.H{
		"mode": "first_unpaid",
		"form": gin.H{"student_id": "S1", "session_id": 1},
	})
	require.Equal(t, http.StatusOK, code)
	prefill := decodeData[feeapp.PrefillResponse](t, env)
	require.True(t, prefill.Applied)
	assert.Equal(t, billNo, prefill.Form.BillNo)
	assert.Equal(t, "Payment for Bill: "+billNo, prefill.Form.Remarks)
	assert.True(t, prefill.Total.Equal(decimal.NewFromInt(1300)))

	collect := gin.H{
		"student_id":   "S1",
		"session_id":   1,
		"payment_mode": "cash",
		"fee_details":  prefill.Form.FeeDetails,
		"remarks":      prefill.Form.Remarks,
	}
	code, env = desk.do(http.MethodPost, "/api/v1/fees/collect", collect, middleware.IdempotencyKeyHeader, "desk-1-0001")
	require.Equal(t, http.StatusCreated, code, string(env.Data))
	receipt := decodeData[feeapp.ReceiptResponse](t, env)
	assert.Equal(t, "ravi", receipt.CollectedBy)
	require.Len(t, receipt.Allocations, 1)
	assert.Equal(t, billNo, receipt.Allocations[0].BillNo)
	assert.True(t, receipt.Allocations[0].BalanceAfter.IsZero())

	t.Run("retry with the same key is refused", func(t *testing.T) {
		code, env := desk.do(http.MethodPost, "/api/v1/fees/collect", collect, middleware.IdempotencyKeyHeader, "desk-1-0001")
		assert.Equal(t, http.StatusConflict, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeDuplicateRequest, env.Error.Code)
	})

	t.Run("bill is paid", func(t *testing.T) {
		code, env := desk.do(http.MethodGet, "/api/v1/fees/demand-bills/"+billNo, nil)
		require.Equal(t, http.StatusOK, code)
		bill := decodeData[feeapp.BillResponse](t, env)
		assert.Equal(t, string(fee.BillStatusPaid), bill.Status)
		assert.True(t, bill.Balance.IsZero())
	})

	t.Run("paid bills cannot be deleted", func(t *testing.T) {
		code, env := desk.do(http.MethodDelete, "/api/v1/fees/demand-bills/batch", gin.H{"bill_nos": []string{billNo}})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeInvalidState, env.Error.Code)
	})

	t.Run("register lists the receipt", func(t *testing.T) {
		code, env := desk.do(http.MethodGet, "/api/v1/fees/transactions?student_id=S1", nil)
		require.Equal(t, http.StatusOK, code)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)
		txns := decodeData[[]feeapp.TransactionResponse](t, env)
		require.Len(t, txns, 1)
		assert.Equal(t, receipt.ReceiptNo, txns[0].ReceiptNo)
	})

	t.Run("no dues left for a regular collection", func(t *testing.T) {
		code, env := desk.do(http.MethodPost, "/api/v1/fees/collect", collect)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, dto.ErrCodeInvalidState, env.Error.Code)
	})
}

func TestFeeDesk_DeleteUnpaidBill(t *testing.T) {
	desk := newFeeDesk(t)
	desk.seed()
	billNo := desk.generateMay()

	code, env := desk.do(http.MethodDelete, "/api/v1/fees/demand-bills/batch", gin.H{"bill_nos": []string{billNo}})
	require.Equal(t, http.StatusOK, code)
	result := decodeData[feeapp.DeleteBillsResult](t, env)
	assert.Equal(t, int64(1), result.Deleted)

	code, env = desk.do(http.MethodGet, "/api/v1/fees/demand-bills/"+billNo, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)
}

func TestFeeDesk_RequestErrors(t *testing.T) {
	desk := newFeeDesk(t)
	desk.seed()

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown student dashboard",
			method:     http.MethodGet,
			path:       "/api/v1/fees/dashboard/S9/session/1",
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name:       "non numeric session",
			method:     http.MethodGet,
			path:       "/api/v1/fees/dashboard/S1/session/abc",
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeInvalidInput,
		},
		{
			name:       "collect without rows",
			method:     http.MethodPost,
			path:       "/api/v1/fees/collect",
			body:       gin.H{"student_id": "S1", "session_id": 1, "payment_mode": "cash"},
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeInvalidInput,
		},
		{
			name:       "unsupported payment mode",
			method:     http.MethodPost,
			path:       "/api/v1/fees/collect",
			body:       gin.H{"student_id": "S1", "session_id": 1, "payment_mode": "barter"},
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
		},
		{
			name:       "unknown prefill mode",
			method:     http.MethodPost,
			path:       "/api/v1/fees/prefill",
			body:       gin.H{"mode": "everything", "form": gin.H{"student_id": "S1", "session_id": 1}},
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
		},
		{
			name:       "duplicate fee type",
			method:     http.MethodPost,
			path:       "/api/v1/fee-types",
			body:       gin.H{"name": "Tuition Fee"},
			wantStatus: http.StatusConflict,
			wantCode:   dto.ErrCodeAlreadyExists,
		},
		{
			name:       "generation without target",
			method:     http.MethodPost,
			path:       "/api/v1/fees/demand-bills/generate",
			body:       gin.H{"session_id": 1, "month": 5, "year": 2024},
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := desk.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.NotEmpty(t, env.Error.RequestID)
		})
	}
}

func TestFeeDesk_ReferenceData(t *testing.T) {
	desk := newFeeDesk(t)
	tuitionID, _ := desk.seed()

	code, env := desk.do(http.MethodGet, "/api/v1/students?session_id=1&class_name=5", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Meta.Total)

	code, env = desk.do(http.MethodGet, "/api/v1/fee-structures?session_id=1&class_name=5", nil)
	require.Equal(t, http.StatusOK, code)
	structure := decodeData[feeapp.FeeStructureResponse](t, env)
	assert.True(t, structure.Total.Equal(decimal.NewFromInt(1300)))

	code, _ = desk.do(http.MethodPut, "/api/v1/discounts", gin.H{
		"student_id": "S1", "session_id": 1, "fee_type_id": tuitionID,
		"discount_type": "PERCENTAGE", "value": "10",
	})
	require.Equal(t, http.StatusOK, code)

	billNo := desk.generateMay()
	code, env = desk.do(http.MethodGet, "/api/v1/fees/demand-bills/"+billNo, nil)
	require.Equal(t, http.StatusOK, code)
	bill := decodeData[feeapp.BillResponse](t, env)
	assert.True(t, bill.Discount.Equal(decimal.NewFromInt(100)))
	assert.True(t, bill.Net.Equal(decimal.NewFromInt(1200)))

	code, env = desk.do(http.MethodGet, "/api/v1/fees/demand-bills/history/1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEqual(t, "null", string(env.Data))
}
