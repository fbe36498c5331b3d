package fee

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolfees/backend/internal/domain/fee"
)

// CreateFeeTypeRequest represents a request to create a fee type
type CreateFeeTypeRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// FeeTypeResponse represents a fee type in API responses
type FeeTypeResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToFeeTypeResponse converts a domain FeeType to FeeTypeResponse
func ToFeeTypeResponse(ft *fee.FeeType) FeeTypeResponse {
	return FeeTypeResponse{
		ID:          ft.ID,
		Name:        ft.Name,
		Description: ft.Description,
		IsActive:    ft.IsActive,
		CreatedAt:   ft.CreatedAt,
		UpdatedAt:   ft.UpdatedAt,
	}
}

// CreateStudentRequest represents a request to register a student
type CreateStudentRequest struct {
	StudentID  string `json:"student_id" binding:"required,min=1,max=50"`
	Name       string `json:"name" binding:"required,min=1,max=200"`
	FatherName string `json:"father_name" binding:"max=200"`
	ClassName  string `json:"class_name" binding:"required,min=1,max=50"`
	Section    string `json:"section" binding:"max=20"`
	SessionID  int    `json:"session_id" binding:"required,min=1"`
}

// StudentListFilter narrows a student listing
type StudentListFilter struct {
	SessionID int    `form:"session_id"`
	ClassName string `form:"class_name"`
	Section   string `form:"section"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// StudentResponse represents a student in API responses
type StudentResponse struct {
	ID         uuid.UUID `json:"id"`
	StudentID  string    `json:"student_id"`
	Name       string    `json:"name"`
	FatherName string    `json:"father_name,omitempty"`
	ClassName  string    `json:"class_name"`
	Section    string    `json:"section,omitempty"`
	SessionID  int       `json:"session_id"`
	Status     string    `json:"status"`
}

// ToStudentResponse converts a domain Student to StudentResponse
func ToStudentResponse(s *fee.Student) StudentResponse {
	return StudentResponse{
		ID:         s.ID,
		StudentID:  s.StudentID,
		Name:       s.Name,
		FatherName: s.FatherName,
		ClassName:  s.ClassName,
		Section:    s.Section,
		SessionID:  s.SessionID,
		Status:     string(s.Status),
	}
}

// FeeStructureItemRequest is one fee type charge in a structure
type FeeStructureItemRequest struct {
	FeeTypeID int64           `json:"fee_type_id" binding:"required,min=1"`
	Amount    decimal.Decimal `json:"amount"`
}

// SetFeeStructureRequest replaces the fee structure of a class
type SetFeeStructureRequest struct {
	SessionID int                       `json:"session_id" binding:"required,min=1"`
	ClassName string                    `json:"class_name" binding:"required,min=1,max=50"`
	Items     []FeeStructureItemRequest `json:"items" binding:"required,min=1,dive"`
}

// FeeStructureItemResponse is one item of a structure response
type FeeStructureItemResponse struct {
	FeeTypeID   int64           `json:"fee_type_id"`
	FeeTypeName string          `json:"fee_type_name"`
	Amount      decimal.Decimal `json:"amount"`
}

// FeeStructureResponse represents a class fee structure
type FeeStructureResponse struct {
	SessionID int                        `json:"session_id"`
	ClassName string                     `json:"class_name"`
	Items     []FeeStructureItemResponse `json:"items"`
	Total     decimal.Decimal            `json:"total"`
}

// ToFeeStructureResponse converts a domain FeeStructure
func ToFeeStructureResponse(s *fee.FeeStructure) FeeStructureResponse {
	resp := FeeStructureResponse{
		SessionID: s.SessionID,
		ClassName: s.ClassName,
		Items:     make([]FeeStructureItemResponse, len(s.Items)),
		Total:     decimal.Zero,
	}
	for i, item := range s.Items {
		resp.Items[i] = FeeStructureItemResponse{
			FeeTypeID:   item.FeeTypeID,
			FeeTypeName: item.FeeTypeName,
			Amount:      item.Amount,
		}
		resp.Total = resp.Total.Add(item.Amount)
	}
	return resp
}

// UpsertDiscountRequest sets a student's concession on one fee type
type UpsertDiscountRequest struct {
	StudentID    string          `json:"student_id" binding:"required"`
	SessionID    int             `json:"session_id" binding:"required,min=1"`
	FeeTypeID    int64           `json:"fee_type_id" binding:"required,min=1"`
	DiscountType string          `json:"discount_type" binding:"required,oneof=PERCENTAGE FIXED"`
	Value        decimal.Decimal `json:"value"`
}

// DiscountResponse represents a student discount
type DiscountResponse struct {
	StudentID    string          `json:"student_id"`
	SessionID    int             `json:"session_id"`
	FeeTypeID    int64           `json:"fee_type_id"`
	DiscountType string          `json:"discount_type"`
	Value        decimal.Decimal `json:"value"`
}

// GenerateBillsRequest asks for demand bills for one period. The target is
// a single student, a list of students, or a class with an optional section.
type GenerateBillsRequest struct {
	SessionID             int        `json:"session_id" binding:"required,min=1"`
	Month                 int        `json:"month" binding:"required,min=1,max=12"`
	Year                  int        `json:"year" binding:"required,min=2000,max=2100"`
	DueDate               *time.Time `json:"due_date"`
	StudentID             string     `json:"student_id"`
	StudentIDs            []string   `json:"student_ids"`
	ClassName             string     `json:"class_name"`
	Section               string     `json:"section"`
	SelectedFeeTypeIDs    []int64    `json:"selected_fee_type_ids"`
	AutoCalculateLateFees *bool      `json:"auto_calculate_late_fees"`
}

// DeleteBillsRequest lists the bills to remove
type DeleteBillsRequest struct {
	BillNos []string `json:"bill_nos" binding:"required,min=1,dive,required"`
}

// DeleteBillsResult reports a batch deletion
type DeleteBillsResult struct {
	Deleted int64    `json:"deleted"`
	BillNos []string `json:"bill_nos"`
}

// BillItemResponse is one fee line of a bill
type BillItemResponse struct {
	FeeTypeID int64           `json:"fee_type_id,omitempty"`
	FeeType   string          `json:"fee_type"`
	Amount    decimal.Decimal `json:"amount"`
	Discount  decimal.Decimal `json:"discount"`
}

// BillResponse represents a demand bill with its outstanding items
type BillResponse struct {
	BillNo      string                 `json:"bill_no"`
	StudentID   string                 `json:"student_id"`
	SessionID   int                    `json:"session_id"`
	Month       int                    `json:"month"`
	Year        int                    `json:"year"`
	BillDate    time.Time              `json:"bill_date"`
	DueDate     time.Time              `json:"due_date"`
	Items       []BillItemResponse     `json:"items"`
	Gross       decimal.Decimal        `json:"gross_amount"`
	Discount    decimal.Decimal        `json:"discount"`
	Net         decimal.Decimal        `json:"net_amount"`
	Paid        decimal.Decimal        `json:"paid_amount"`
	AdvanceUsed decimal.Decimal        `json:"advance_used"`
	Balance     decimal.Decimal        `json:"balance"`
	Status      string                 `json:"status"`
	PaidDate    *time.Time             `json:"paid_date,omitempty"`
	Outstanding []fee.OutstandingEntry `json:"outstanding"`
}

// ToBillResponse converts a domain DemandBill, deriving its status at now
func ToBillResponse(b *fee.DemandBill, now time.Time) BillResponse {
	return BillResponse{
		BillNo:      b.BillNo,
		StudentID:   b.StudentID,
		SessionID:   b.SessionID,
		Month:       b.Month,
		Year:        b.Year,
		BillDate:    b.BillDate,
		DueDate:     b.DueDate,
		Items:       toBillItems(b.Items),
		Gross:       b.GrossAmount(),
		Discount:    b.TotalDiscount(),
		Net:         b.NetAmount(),
		Paid:        b.PaidAmount,
		AdvanceUsed: b.AdvanceApplied,
		Balance:     b.Balance(),
		Status:      string(b.DynamicStatus(now)),
		PaidDate:    b.PaidDate,
		Outstanding: b.Outstanding(),
	}
}

func toBillItems(items []fee.BillItem) []BillItemResponse {
	out := make([]BillItemResponse, len(items))
	for i, item := range items {
		out[i] = BillItemResponse{
			FeeTypeID: item.FeeTypeID,
			FeeType:   item.FeeTypeName,
			Amount:    item.Amount,
			Discount:  item.DiscountAmount,
		}
	}
	return out
}

// PendingBillView is a pending bill as shown on the dashboard
type PendingBillView struct {
	BillNo  string             `json:"bill_no"`
	Month   int                `json:"month"`
	Year    int                `json:"year"`
	DueDate time.Time          `json:"due_date"`
	Amount  decimal.Decimal    `json:"amount"`
	Paid    decimal.Decimal    `json:"paid"`
	Balance decimal.Decimal    `json:"balance"`
	Status  string             `json:"status"`
	Items   []BillItemResponse `json:"items"`
}

// Ledger returns the view in the shape the waterfall reader consumes
func (v PendingBillView) Ledger() fee.LedgerBill {
	items := make([]fee.LineItem, len(v.Items))
	for i, item := range v.Items {
		items[i] = fee.LineItem{FeeType: item.FeeType, Amount: item.Amount, Discount: item.Discount}
	}
	return fee.LedgerBill{BillNo: v.BillNo, Items: items, Paid: v.Paid, Balance: v.Balance}
}

func toPendingBillView(b *fee.DemandBill, now time.Time) PendingBillView {
	return PendingBillView{
		BillNo:  b.BillNo,
		Month:   b.Month,
		Year:    b.Year,
		DueDate: b.DueDate,
		Amount:  b.GrossAmount(),
		Paid:    b.PaidAmount,
		Balance: b.Balance(),
		Status:  string(b.DynamicStatus(now)),
		Items:   toBillItems(b.Items),
	}
}

// PaymentDetailResponse is the per-fee-type line of a receipt
type PaymentDetailResponse struct {
	FeeTypeID int64           `json:"fee_type_id"`
	FeeType   string          `json:"fee_type"`
	Amount    decimal.Decimal `json:"amount"`
	Discount  decimal.Decimal `json:"discount"`
	NetAmount decimal.Decimal `json:"net_amount"`
}

// AllocationResponse is the share of a collection applied to one bill
type AllocationResponse struct {
	BillNo        string          `json:"bill_no"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// TransactionResponse represents a fee transaction
type TransactionResponse struct {
	TransactionID  string                  `json:"transaction_id"`
	ReceiptNo      string                  `json:"receipt_no"`
	StudentID      string                  `json:"student_id"`
	SessionID      int                     `json:"session_id"`
	Amount         decimal.Decimal         `json:"amount"`
	Description    string                  `json:"description,omitempty"`
	PaymentMode    string                  `json:"payment_mode"`
	Date           time.Time               `json:"date"`
	Remarks        string                  `json:"remarks,omitempty"`
	CollectedBy    string                  `json:"collected_by,omitempty"`
	PaymentDetails []PaymentDetailResponse `json:"payment_details"`
	Allocations    []AllocationResponse    `json:"allocations,omitempty"`
}

// ToTransactionResponse converts a domain FeeTransaction
func ToTransactionResponse(t *fee.FeeTransaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:  t.TransactionID,
		ReceiptNo:      t.ReceiptNo,
		StudentID:      t.StudentID,
		SessionID:      t.SessionID,
		Amount:         t.Amount,
		Description:    t.Description,
		PaymentMode:    string(t.PaymentMode),
		Date:           t.Date,
		Remarks:        t.Remarks,
		CollectedBy:    t.CollectedBy,
		PaymentDetails: make([]PaymentDetailResponse, len(t.Details)),
	}
	for i, d := range t.Details {
		resp.PaymentDetails[i] = PaymentDetailResponse{
			FeeTypeID: d.FeeTypeID,
			FeeType:   d.FeeTypeName,
			Amount:    d.Amount,
			Discount:  d.DiscountAmount,
			NetAmount: d.NetAmount,
		}
	}
	for _, a := range t.Allocations {
		resp.Allocations = append(resp.Allocations, AllocationResponse{
			BillNo:        a.BillNo,
			Amount:        a.Amount,
			BalanceBefore: a.BalanceBefore,
			BalanceAfter:  a.BalanceAfter,
		})
	}
	return resp
}

// TransactionListFilter narrows a transaction listing
type TransactionListFilter struct {
	From        *time.Time `form:"from" time_format:"2006-01-02"`
	To          *time.Time `form:"to" time_format:"2006-01-02"`
	StudentID   string     `form:"student_id"`
	SessionID   int        `form:"session_id"`
	ClassName   string     `form:"class_name"`
	Section     string     `form:"section"`
	StudentName string     `form:"student_name"`
	Page        int        `form:"page"`
	PageSize    int        `form:"page_size"`
}

// DashboardResponse is a student's fee position for a session
type DashboardResponse struct {
	Student            StudentResponse       `json:"student"`
	SessionID          int                   `json:"session_id"`
	Summary            fee.Summary           `json:"summary"`
	FeeHeads           []fee.FeeHead         `json:"fee_heads"`
	RecentTransactions []TransactionResponse `json:"recent_transactions"`
	PendingBills       []PendingBillView     `json:"pending_bills"`
}

// Snapshot returns the dues snapshot a prefill is computed from
func (d *DashboardResponse) Snapshot(feeTypes []fee.FeeTypeRef) fee.DuesSnapshot {
	ledgers := make([]fee.LedgerBill, len(d.PendingBills))
	for i, b := range d.PendingBills {
		ledgers[i] = b.Ledger()
	}
	return fee.DuesSnapshot{
		StudentID:    d.Student.StudentID,
		SessionID:    d.SessionID,
		PendingBills: ledgers,
		FeeTypes:     feeTypes,
	}
}

// StatementRequest asks for a student's statement, optionally for a date range
type StatementRequest struct {
	StudentID string     `json:"student_id" binding:"required"`
	SessionID int        `json:"session_id" binding:"required,min=1"`
	From      *time.Time `json:"from"`
	To        *time.Time `json:"to"`
}

// StatementResponse is a student's full fee statement
type StatementResponse struct {
	Student      StudentResponse       `json:"student"`
	SessionID    int                   `json:"session_id"`
	Summary      fee.Summary           `json:"summary"`
	FeeHeads     []fee.FeeHead         `json:"fee_heads"`
	Transactions []TransactionResponse `json:"transactions"`
}

// PrefillRequest asks for a form to be pre-filled from a student's dues.
// Mode fee_head fills the single row RowIndex from the head of FeeTypeID.
type PrefillRequest struct {
	Mode      string             `json:"mode" binding:"required,oneof=bill all_pending first_unpaid fee_head"`
	BillNo    string             `json:"bill_no"`
	FeeTypeID int64              `json:"fee_type_id"`
	RowIndex  int                `json:"row_index" binding:"min=0"`
	Form      fee.CollectionForm `json:"form"`
}

// PrefillResponse returns the form after the prefill was applied
type PrefillResponse struct {
	Applied   bool                `json:"applied"`
	Form      fee.CollectionForm  `json:"form"`
	BillNos   []string            `json:"bill_nos,omitempty"`
	Total     decimal.Decimal     `json:"total"`
	Unmatched []fee.UnmatchedItem `json:"unmatched,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
}

// FeeDetailRequest is one row of a collection
type FeeDetailRequest struct {
	FeeTypeID      int64           `json:"fee_type_id" binding:"required,min=1"`
	Amount         decimal.Decimal `json:"amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// CollectFeeRequest represents a fee collection submitted from the form
type CollectFeeRequest struct {
	StudentID   string             `json:"student_id" binding:"required"`
	SessionID   int                `json:"session_id" binding:"required,min=1"`
	FeeDetails  []FeeDetailRequest `json:"fee_details" binding:"dive"`
	PaymentMode string             `json:"payment_mode" binding:"required,oneof=cash cheque online card upi advance"`
	Date        *time.Time         `json:"date"`
	Remarks     string             `json:"remarks" binding:"max=500"`
	Description string             `json:"description" binding:"max=500"`
	BillNo      string             `json:"bill_no"`
	ReceiptNo   string             `json:"receipt_no" binding:"max=50"`

	// Set by the handler from the request, never bound from the body
	IdempotencyKey string `json:"-"`
	CollectedBy    string `json:"-"`
}

func (r CollectFeeRequest) drafts() []fee.FeeDetailDraft {
	rows := make([]fee.FeeDetailDraft, len(r.FeeDetails))
	for i, d := range r.FeeDetails {
		rows[i] = fee.FeeDetailDraft{FeeTypeID: d.FeeTypeID, Amount: d.Amount, DiscountAmount: d.DiscountAmount}
	}
	return rows
}

// ReceiptResponse is returned after a successful collection
type ReceiptResponse struct {
	ReceiptNo      string                  `json:"receipt_no"`
	TransactionID  string                  `json:"transaction_id"`
	Amount         decimal.Decimal         `json:"amount"`
	Date           time.Time               `json:"date"`
	PaymentMode    string                  `json:"payment_mode"`
	IsAdvance      bool                    `json:"is_advance"`
	Unallocated    decimal.Decimal         `json:"unallocated"`
	CollectedBy    string                  `json:"collected_by,omitempty"`
	Student        StudentResponse         `json:"student"`
	PaymentDetails []PaymentDetailResponse `json:"payment_details"`
	Allocations    []AllocationResponse    `json:"allocations"`
}
