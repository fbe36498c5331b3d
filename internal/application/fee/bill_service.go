package fee

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/logger"
	"github.com/schoolfees/backend/internal/infrastructure/telemetry"
)

// BillService generates, inspects and removes demand bills
type BillService struct {
	billRepo      fee.DemandBillRepository
	txnRepo       fee.TransactionRepository
	studentRepo   fee.StudentRepository
	structureRepo fee.FeeStructureRepository
	discountRepo  fee.DiscountRepository
	cache         DashboardCache
	metrics       *telemetry.FeeMetrics
	settings      BillingSettings
	logger        *zap.Logger
	billNos       *fee.BillNumberGenerator
	now           func() time.Time
}

// NewBillService creates a new BillService
func NewBillService(
	billRepo fee.DemandBillRepository,
	txnRepo fee.TransactionRepository,
	studentRepo fee.StudentRepository,
	structureRepo fee.FeeStructureRepository,
	discountRepo fee.DiscountRepository,
	cache DashboardCache,
	metrics *telemetry.FeeMetrics,
	settings BillingSettings,
	logger *zap.Logger,
) *BillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillService{
		billRepo:      billRepo,
		txnRepo:       txnRepo,
		studentRepo:   studentRepo,
		structureRepo: structureRepo,
		discountRepo:  discountRepo,
		cache:         cache,
		metrics:       metrics,
		settings:      settings,
		logger:        logger,
		billNos:       fee.NewBillNumberGenerator(),
		now:           time.Now,
	}
}

// Generate creates one demand bill per target student for the period.
// Students already billed for the period are skipped; students whose class
// has no fee structure fail. One student's failure never stops the run.
// Advance a student holds is drawn onto the new bill as it is saved.
func (s *BillService) Generate(ctx context.Context, req GenerateBillsRequest) (*fee.GenerationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", "generate")
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, "generate_bills", time.Now())

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSessionID, req.SessionID,
		telemetry.SpanAttrMonth, req.Month,
		telemetry.SpanAttrYear, req.Year,
	)

	if req.Month < 1 || req.Month > 12 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Month must be between 1 and 12")
	}

	students, err := s.targetStudents(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(students) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "No students match the generation target")
	}

	opts := fee.GenerationOptions{
		SelectedFeeTypeIDs: req.SelectedFeeTypeIDs,
		AutoLateFees:       req.AutoCalculateLateFees == nil || *req.AutoCalculateLateFees,
		LateFeeName:        s.settings.LateFeeName,
	}
	dueDate := fee.DefaultDueDate(req.Month, req.Year, s.settings.DefaultDueDay, s.settings.location())
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	report := &fee.GenerationReport{Results: make([]fee.GenerationResult, 0, len(students))}
	structures := make(map[string]*fee.FeeStructure)

	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("generate_bills", map[string]string{
		telemetry.ProfilingLabelClass: req.ClassName,
	}), func(c context.Context) {
		for i := range students {
			res := s.generateOne(c, &students[i], req, opts, dueDate, structures)
			report.Add(res)
			if res.Status == fee.GenerationGenerated {
				invalidateDashboard(c, s.cache, s.logger, res.StudentID, req.SessionID)
			}
		}
	})

	s.metrics.RecordBillGeneration(ctx, report.Generated, report.Skipped, report.Failed)
	telemetry.AddEvent(span, "bills_generated",
		"generated", report.Generated,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	logger.WithLogger(ctx, s.logger).Info("Demand bills generated",
		logger.SessionID(req.SessionID),
		zap.Int("month", req.Month),
		zap.Int("year", req.Year),
		zap.Int("generated", report.Generated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *BillService) generateOne(
	ctx context.Context,
	student *fee.Student,
	req GenerateBillsRequest,
	opts fee.GenerationOptions,
	dueDate time.Time,
	structures map[string]*fee.FeeStructure,
) fee.GenerationResult {
	res := fee.GenerationResult{StudentID: student.StudentID, Amount: decimal.Zero, AdvanceUsed: decimal.Zero}
	fail := func(reason string) fee.GenerationResult {
		res.Status = fee.GenerationFailed
		res.Reason = reason
		return res
	}

	exists, err := s.billRepo.ExistsForPeriod(ctx, student.StudentID, req.SessionID, req.Month, req.Year)
	if err != nil {
		return fail(err.Error())
	}
	if exists {
		res.Status = fee.GenerationSkipped
		res.Reason = "Bill already exists for this period"
		return res
	}

	structure, ok := structures[student.ClassName]
	if !ok {
		structure, err = s.structureRepo.FindBySessionAndClass(ctx, req.SessionID, student.ClassName)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fail(err.Error())
		}
		structures[student.ClassName] = structure
	}
	if structure == nil {
		return fail("No fee structure for class " + student.ClassName)
	}

	discounts, err := s.discountRepo.FindForStudent(ctx, student.StudentID, req.SessionID)
	if err != nil {
		return fail(err.Error())
	}
	earlier, err := s.billRepo.FindForStudent(ctx, student.StudentID, req.SessionID)
	if err != nil {
		return fail(err.Error())
	}

	studentOpts := opts
	studentOpts.UnpaidEarlierBills = fee.CountUnpaidBefore(earlier, req.Month, req.Year)
	items := fee.BuildBillItems(structure, discounts, studentOpts)
	if len(items) == 0 {
		return fail("No billable fee items")
	}

	bill, err := fee.NewDemandBill(s.billNos.Next(req.Month, req.Year), student.StudentID,
		req.SessionID, req.Month, req.Year, s.now(), dueDate, items)
	if err != nil {
		return fail(err.Error())
	}

	txns, err := s.txnRepo.FindForStudent(ctx, student.StudentID, req.SessionID, fee.DateRange{})
	if err != nil {
		return fail(err.Error())
	}
	draws := fee.DrawAdvance(bill, txns, fee.AvailableAdvance(earlier, txns))
	if err := s.billRepo.SaveWithAdvance(ctx, bill, draws); err != nil {
		return fail(err.Error())
	}

	res.Status = fee.GenerationGenerated
	res.BillNo = bill.BillNo
	res.Amount = bill.NetAmount()
	res.AdvanceUsed = bill.AdvanceApplied
	if len(draws) > 0 {
		logger.WithLogger(ctx, s.logger).Debug("Advance drawn onto bill",
			logger.StudentID(student.StudentID),
			zap.String("bill_no", bill.BillNo),
			zap.String("advance_used", bill.AdvanceApplied.String()),
			zap.Int("collections", len(draws)),
		)
	}
	return res
}

// targetStudents resolves the generation target. A single student wins over
// a list, and a list wins over a class.
func (s *BillService) targetStudents(ctx context.Context, req GenerateBillsRequest) ([]fee.Student, error) {
	switch {
	case req.StudentID != "":
		student, err := s.studentRepo.FindByStudentID(ctx, req.StudentID)
		if err != nil {
			return nil, studentLookupError(err, req.StudentID)
		}
		return []fee.Student{*student}, nil
	case len(req.StudentIDs) > 0:
		students, err := s.studentRepo.FindByStudentIDs(ctx, req.StudentIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get students: %w", err)
		}
		return students, nil
	case req.ClassName != "":
		return s.classStudents(ctx, req.SessionID, req.ClassName, req.Section)
	default:
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Specify a student, a list of students or a class")
	}
}

// classStudents pages through the active students of a class
func (s *BillService) classStudents(ctx context.Context, sessionID int, className, section string) ([]fee.Student, error) {
	filter := fee.StudentFilter{
		Filter:    shared.Filter{Page: 1, PageSize: 200, OrderBy: "student_id", OrderDir: "asc"},
		SessionID: sessionID,
		ClassName: className,
		Section:   section,
	}

	var out []fee.Student
	for {
		page, total, err := s.studentRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list class students: %w", err)
		}
		for i := range page {
			if page[i].IsActive() {
				out = append(out, page[i])
			}
		}
		if len(page) == 0 || int64(filter.Page*filter.PageSize) >= total {
			return out, nil
		}
		filter.Page++
	}
}

// Get returns a bill with its per-item outstanding dues
func (s *BillService) Get(ctx context.Context, billNo string) (*BillResponse, error) {
	bill, err := s.billRepo.FindByBillNo(ctx, billNo)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Bill not found: "+billNo)
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	resp := ToBillResponse(bill, s.now())
	return &resp, nil
}

// DeleteBatch removes the listed bills. If any of them has taken a payment
// nothing is deleted. Advance drawn onto a deleted bill becomes available again.
func (s *BillService) DeleteBatch(ctx context.Context, req DeleteBillsRequest) (*DeleteBillsResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", "delete_batch")
	defer span.End()

	bills, err := s.billRepo.FindByBillNos(ctx, req.BillNos)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get bills: %w", err)
	}
	if len(bills) == 0 {
		return nil, shared.NewDomainError(shared.CodeNotFound, "None of the listed bills exist")
	}

	paid := 0
	for i := range bills {
		if !bills[i].CanDelete() {
			paid++
		}
	}
	if paid > 0 {
		err := shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot delete: %d bill(s) have payments recorded", paid)).
			WithDetails(map[string]any{"paid_bills": paid})
		telemetry.RecordError(span, err)
		return nil, err
	}

	found := make([]string, len(bills))
	for i := range bills {
		found[i] = bills[i].BillNo
	}
	deleted, err := s.billRepo.DeleteByBillNos(ctx, found)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to delete bills: %w", err)
	}

	for i := range bills {
		invalidateDashboard(ctx, s.cache, s.logger, bills[i].StudentID, bills[i].SessionID)
	}
	logger.WithLogger(ctx, s.logger).Info("Demand bills deleted", zap.Int64("deleted", deleted))
	return &DeleteBillsResult{Deleted: deleted, BillNos: found}, nil
}

// History groups a session's bills into generation batches, newest first
func (s *BillService) History(ctx context.Context, sessionID int) ([]fee.GenerationBatch, error) {
	bills, err := s.billRepo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session bills: %w", err)
	}
	if len(bills) == 0 {
		return []fee.GenerationBatch{}, nil
	}

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for i := range bills {
		if !seen[bills[i].StudentID] {
			seen[bills[i].StudentID] = true
			ids = append(ids, bills[i].StudentID)
		}
	}
	students, err := s.studentRepo.FindByStudentIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get students: %w", err)
	}
	byID := make(map[string]fee.Student, len(students))
	for _, st := range students {
		byID[st.StudentID] = st
	}
	return fee.GroupGenerationHistory(bills, byID), nil
}

// invalidateDashboard drops a cached dashboard. A cache failure is logged,
// the entry expires on its own.
func invalidateDashboard(ctx context.Context, cache DashboardCache, log *zap.Logger, studentID string, sessionID int) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, studentID, sessionID); err != nil {
		logger.WithLogger(ctx, log).Warn("Failed to invalidate dashboard cache",
			logger.StudentID(studentID),
			logger.SessionID(sessionID),
			zap.Error(err),
		)
	}
}
