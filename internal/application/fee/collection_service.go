package fee

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/domain/shared/strategy"
	"github.com/schoolfees/backend/internal/infrastructure/logger"
	"github.com/schoolfees/backend/internal/infrastructure/telemetry"
)

const idempotencyKeyPrefix = "fee_collect:"

// CollectionService records fee collections and applies them to demand bills
type CollectionService struct {
	studentRepo  fee.StudentRepository
	billRepo     fee.DemandBillRepository
	txnRepo      fee.TransactionRepository
	feeTypeRepo  fee.FeeTypeRepository
	strategies   AllocationStrategyGetter
	idempotency  shared.IdempotencyStore
	idemConfig   shared.IdempotencyConfig
	cache        DashboardCache
	metrics      *telemetry.FeeMetrics
	strategyName string
	logger       *zap.Logger
	now          func() time.Time
}

// CollectionServiceDeps groups the collaborators of CollectionService
type CollectionServiceDeps struct {
	StudentRepo       fee.StudentRepository
	BillRepo          fee.DemandBillRepository
	TxnRepo           fee.TransactionRepository
	FeeTypeRepo       fee.FeeTypeRepository
	Strategies        AllocationStrategyGetter
	Idempotency       shared.IdempotencyStore
	IdempotencyConfig shared.IdempotencyConfig
	Cache             DashboardCache
	Metrics           *telemetry.FeeMetrics
	Settings          BillingSettings
	Logger            *zap.Logger
}

// NewCollectionService creates a new CollectionService
func NewCollectionService(deps CollectionServiceDeps) *CollectionService {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &CollectionService{
		studentRepo:  deps.StudentRepo,
		billRepo:     deps.BillRepo,
		txnRepo:      deps.TxnRepo,
		feeTypeRepo:  deps.FeeTypeRepo,
		strategies:   deps.Strategies,
		idempotency:  deps.Idempotency,
		idemConfig:   deps.IdempotencyConfig,
		cache:        deps.Cache,
		metrics:      deps.Metrics,
		strategyName: deps.Settings.AllocationStrategy,
		logger:       log,
		now:          time.Now,
	}
}

// Collect validates a submitted collection form, stores the transaction and
// applies it to the student's bills in one database transaction.
//
// The bill is chosen by the form's bill number, then by a bill number found
// in single-bill remarks, then by the configured allocation strategy across
// all pending bills. Money no bill absorbs stays on the transaction as
// advance. Advance payments link no bill.
func (s *CollectionService) Collect(ctx context.Context, req CollectFeeRequest) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "collection", "collect")
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, "collect_fee", time.Now())

	telemetry.SetAttributes(span,
		telemetry.SpanAttrStudentID, req.StudentID,
		telemetry.SpanAttrSessionID, req.SessionID,
		telemetry.SpanAttrFeeTypeCount, len(req.FeeDetails),
	)

	var receipt *ReceiptResponse
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("collect_fee", map[string]string{
		telemetry.ProfilingLabelMode: req.PaymentMode,
	}), func(c context.Context) {
		receipt, opErr = s.collect(c, req)
	})

	if opErr != nil {
		telemetry.RecordError(span, opErr)
		outcome := telemetry.OutcomeFailed
		if shared.IsCode(opErr, shared.CodeDuplicateRequest) {
			outcome = telemetry.OutcomeDuplicate
		}
		s.metrics.RecordCollection(ctx, req.PaymentMode, s.strategyName, outcome, decimal.Zero)
		return nil, opErr
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrReceiptNo, receipt.ReceiptNo,
		telemetry.SpanAttrAmount, receipt.Amount,
	)
	telemetry.SetOK(span)
	s.metrics.RecordCollection(ctx, req.PaymentMode, s.strategyName, telemetry.OutcomeSuccess, receipt.Amount)
	return receipt, nil
}

func (s *CollectionService) collect(ctx context.Context, req CollectFeeRequest) (receipt *ReceiptResponse, err error) {
	if len(req.FeeDetails) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Fee details cannot be empty")
	}

	// Claimed ahead of the dues check; any later failure releases the key.
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" && s.idempotency != nil && s.idemConfig.Enabled {
		key = idempotencyKeyPrefix + key
		fresh, markErr := s.idempotency.MarkProcessed(ctx, key, s.idemConfig.TTL)
		if markErr != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", markErr)
		}
		if !fresh {
			return nil, shared.ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if ferr := s.idempotency.Forget(context.WithoutCancel(ctx), key); ferr != nil {
				logger.WithLogger(ctx, s.logger).Warn("Failed to release idempotency key", zap.Error(ferr))
			}
		}()
	}

	student, err := s.studentRepo.FindByStudentID(ctx, req.StudentID)
	if err != nil {
		return nil, studentLookupError(err, req.StudentID)
	}

	mode := fee.PaymentMode(req.PaymentMode)
	bills, err := s.billRepo.FindForStudent(ctx, req.StudentID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bills: %w", err)
	}
	if !fee.OutstandingDues(bills).IsPositive() && mode != fee.PaymentModeAdvance {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			"Student has no outstanding dues; use advance payment mode")
	}

	now := s.now()
	date := now
	if req.Date != nil {
		date = *req.Date
	}
	txn, err := fee.NewFeeTransaction(req.StudentID, req.SessionID, mode, req.drafts(), date)
	if err != nil {
		return nil, err
	}
	if err := s.nameDetails(ctx, txn); err != nil {
		return nil, err
	}

	txn.TransactionID = fmt.Sprintf("TXN%d", now.UnixMilli())
	txn.ReceiptNo = strings.TrimSpace(req.ReceiptNo)
	if txn.ReceiptNo == "" {
		txn.ReceiptNo = fmt.Sprintf("REC%d", now.UnixMilli())
	}
	txn.Remarks = req.Remarks
	txn.CollectedBy = req.CollectedBy
	txn.Description = req.Description
	if txn.Description == "" {
		txn.Description = "Fee collection"
		if txn.IsAdvance() {
			txn.Description = "Advance payment"
		}
	}

	var touched []*fee.DemandBill
	if !txn.IsAdvance() {
		touched, err = s.allocate(ctx, txn, bills, req, now)
		if err != nil {
			return nil, err
		}
	}

	if err := s.txnRepo.SaveWithBills(ctx, txn, touched); err != nil {
		if shared.IsCode(err, shared.CodeConcurrencyConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	invalidateDashboard(ctx, s.cache, s.logger, req.StudentID, req.SessionID)
	logger.WithLogger(ctx, s.logger).Info("Fee collected",
		logger.StudentID(req.StudentID),
		logger.ReceiptNo(txn.ReceiptNo),
		logger.Amount(txn.Amount),
		zap.Int("bills", len(touched)),
	)
	return toReceipt(txn, student), nil
}

// nameDetails fills fee type names on the payment details, rejecting unknown ids
func (s *CollectionService) nameDetails(ctx context.Context, txn *fee.FeeTransaction) error {
	types, err := s.feeTypeRepo.FindAll(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list fee types: %w", err)
	}
	names := make(map[int64]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}
	for i := range txn.Details {
		name, ok := names[txn.Details[i].FeeTypeID]
		if !ok {
			return shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Unknown fee type: %d", txn.Details[i].FeeTypeID))
		}
		txn.Details[i].FeeTypeName = name
	}
	return nil
}

// allocate applies the transaction amount to bills and returns the bills it changed
func (s *CollectionService) allocate(
	ctx context.Context,
	txn *fee.FeeTransaction,
	bills []fee.DemandBill,
	req CollectFeeRequest,
	now time.Time,
) ([]*fee.DemandBill, error) {
	byNo := make(map[string]*fee.DemandBill, len(bills))
	for i := range bills {
		byNo[bills[i].BillNo] = &bills[i]
	}

	var allocations []strategy.Allocation
	target := strings.TrimSpace(req.BillNo)
	if target == "" {
		target = fee.ParseBillNoFromRemarks(req.Remarks)
	}

	if target != "" {
		bill, ok := byNo[target]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Bill not found for student: "+target)
		}
		if !bill.IsOpen() {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Bill is already settled: "+target)
		}
		balance := bill.Balance()
		amount := decimal.Min(txn.Amount, balance)
		allocations = []strategy.Allocation{{
			BillNo:          bill.BillNo,
			AllocatedAmount: amount,
			BalanceBefore:   balance,
			BalanceAfter:    balance.Sub(amount),
		}}
	} else {
		open := fee.PendingBills(bills)
		pending := make([]strategy.PendingBill, len(open))
		for i := range open {
			pending[i] = strategy.PendingBill{
				BillNo:  open[i].BillNo,
				Month:   open[i].Month,
				Year:    open[i].Year,
				DueDate: open[i].DueDate,
				Balance: open[i].Balance(),
			}
		}
		strat := s.strategies.GetAllocationStrategyOrDefault(s.strategyName)
		result, err := strat.Allocate(ctx, strategy.AllocationContext{
			StudentID:     txn.StudentID,
			SessionID:     txn.SessionID,
			PaymentAmount: txn.Amount,
			PaymentDate:   txn.Date,
		}, pending)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate payment: %w", err)
		}
		allocations = result.Allocations
	}

	touched := make([]*fee.DemandBill, 0, len(allocations))
	for _, a := range allocations {
		if !a.AllocatedAmount.IsPositive() {
			continue
		}
		bill := byNo[a.BillNo]
		if err := bill.ApplyPayment(a.AllocatedAmount, now); err != nil {
			return nil, err
		}
		txn.Allocations = append(txn.Allocations, fee.BillAllocation{
			BillNo:        a.BillNo,
			Amount:        a.AllocatedAmount,
			BalanceBefore: a.BalanceBefore,
			BalanceAfter:  a.BalanceAfter,
		})
		touched = append(touched, bill)
	}
	return touched, nil
}

func toReceipt(txn *fee.FeeTransaction, student *fee.Student) *ReceiptResponse {
	t := ToTransactionResponse(txn)
	allocations := t.Allocations
	if allocations == nil {
		allocations = []AllocationResponse{}
	}
	return &ReceiptResponse{
		ReceiptNo:      txn.ReceiptNo,
		TransactionID:  txn.TransactionID,
		Amount:         txn.Amount,
		Date:           txn.Date,
		PaymentMode:    string(txn.PaymentMode),
		IsAdvance:      txn.IsAdvance() || len(txn.Allocations) == 0,
		Unallocated:    txn.UnallocatedAmount(),
		CollectedBy:    txn.CollectedBy,
		Student:        ToStudentResponse(student),
		PaymentDetails: t.PaymentDetails,
		Allocations:    allocations,
	}
}
