package fee

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/infrastructure/logger"
	"github.com/schoolfees/backend/internal/infrastructure/telemetry"
)

// RecentTransactionLimit is how many transactions the dashboard lists
const RecentTransactionLimit = 10

// DashboardService builds student fee dashboards and statements
type DashboardService struct {
	studentRepo fee.StudentRepository
	billRepo    fee.DemandBillRepository
	txnRepo     fee.TransactionRepository
	cache       DashboardCache
	metrics     *telemetry.FeeMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService creates a new DashboardService. cache may be nil.
func NewDashboardService(
	studentRepo fee.StudentRepository,
	billRepo fee.DemandBillRepository,
	txnRepo fee.TransactionRepository,
	cache DashboardCache,
	metrics *telemetry.FeeMetrics,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		studentRepo: studentRepo,
		billRepo:    billRepo,
		txnRepo:     txnRepo,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Get returns the dashboard of a student for a session, reading through the cache
func (s *DashboardService) Get(ctx context.Context, studentID string, sessionID int) (*DashboardResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dashboard", "get")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStudentID, studentID,
		telemetry.SpanAttrSessionID, sessionID,
	)

	if s.cache != nil {
		var cached DashboardResponse
		hit, err := s.cache.Get(ctx, studentID, sessionID, &cached)
		if err != nil {
			logger.WithLogger(ctx, s.logger).Warn("Dashboard cache read failed",
				logger.StudentID(studentID), zap.Error(err))
		}
		s.metrics.RecordDashboardCache(ctx, hit)
		if hit {
			telemetry.AddEvent(span, "dashboard_cache_hit")
			return &cached, nil
		}
	}

	dashboard, err := s.build(ctx, studentID, sessionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, studentID, sessionID, dashboard); err != nil {
			logger.WithLogger(ctx, s.logger).Warn("Dashboard cache write failed",
				logger.StudentID(studentID), zap.Error(err))
		}
	}
	return dashboard, nil
}

func (s *DashboardService) build(ctx context.Context, studentID string, sessionID int) (*DashboardResponse, error) {
	student, err := s.studentRepo.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, studentLookupError(err, studentID)
	}
	bills, err := s.billRepo.FindForStudent(ctx, studentID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bills: %w", err)
	}
	txns, err := s.txnRepo.FindForStudent(ctx, studentID, sessionID, fee.DateRange{})
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	recent, err := s.txnRepo.FindRecent(ctx, studentID, sessionID, RecentTransactionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent transactions: %w", err)
	}

	heads := fee.BuildFeeHeads(bills, txns)
	now := s.now()

	pending := fee.PendingBills(bills)
	views := make([]PendingBillView, len(pending))
	for i := range pending {
		views[i] = toPendingBillView(&pending[i], now)
	}

	return &DashboardResponse{
		Student:            ToStudentResponse(student),
		SessionID:          sessionID,
		Summary:            fee.Summarize(heads, bills, txns),
		FeeHeads:           heads,
		RecentTransactions: toTransactionResponses(recent),
		PendingBills:       views,
	}, nil
}

// Statement returns the full statement of a student for a session. Fee heads
// and the summary always cover the whole session; the date range only limits
// the transactions listed.
func (s *DashboardService) Statement(ctx context.Context, req StatementRequest) (*StatementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dashboard", "statement")
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, "statement", time.Now())

	student, err := s.studentRepo.FindByStudentID(ctx, req.StudentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, studentLookupError(err, req.StudentID)
	}
	bills, err := s.billRepo.FindForStudent(ctx, req.StudentID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bills: %w", err)
	}
	txns, err := s.txnRepo.FindForStudent(ctx, req.StudentID, req.SessionID, fee.DateRange{})
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	period := fee.DateRange{}
	if req.From != nil {
		period.From = *req.From
	}
	if req.To != nil {
		period.To = *req.To
	}
	listed := make([]fee.FeeTransaction, 0, len(txns))
	for _, t := range txns {
		if period.Contains(t.Date) {
			listed = append(listed, t)
		}
	}

	heads := fee.BuildFeeHeads(bills, txns)
	return &StatementResponse{
		Student:      ToStudentResponse(student),
		SessionID:    req.SessionID,
		Summary:      fee.Summarize(heads, bills, txns),
		FeeHeads:     heads,
		Transactions: toTransactionResponses(listed),
	}, nil
}

// Invalidate drops the cached dashboard of a student
func (s *DashboardService) Invalidate(ctx context.Context, studentID string, sessionID int) {
	invalidateDashboard(ctx, s.cache, s.logger, studentID, sessionID)
}

func toTransactionResponses(txns []fee.FeeTransaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txns))
	for i := range txns {
		out[i] = ToTransactionResponse(&txns[i])
	}
	return out
}
