package fee

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/logger"
	"github.com/schoolfees/backend/internal/infrastructure/telemetry"
)

// modeFeeHead fills a single form row from one fee head
const modeFeeHead = "fee_head"

// PrefillService fills a collection form from a student's outstanding dues
type PrefillService struct {
	dashboards  *DashboardService
	feeTypeRepo fee.FeeTypeRepository
	metrics     *telemetry.FeeMetrics
	logger      *zap.Logger
}

// NewPrefillService creates a new PrefillService
func NewPrefillService(
	dashboards *DashboardService,
	feeTypeRepo fee.FeeTypeRepository,
	metrics *telemetry.FeeMetrics,
	logger *zap.Logger,
) *PrefillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrefillService{
		dashboards:  dashboards,
		feeTypeRepo: feeTypeRepo,
		metrics:     metrics,
		logger:      logger,
	}
}

// Prefill loads the dues of the form's student, computes the requested
// prefill and applies it to the form. Nothing is written unless both the
// dashboard and the fee-type list loaded, and the dashboard belongs to the
// form's student and session.
func (s *PrefillService) Prefill(ctx context.Context, req PrefillRequest) (*PrefillResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "prefill", req.Mode)
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, "prefill", time.Now())

	form := req.Form
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStudentID, form.StudentID,
		telemetry.SpanAttrSessionID, form.SessionID,
		telemetry.SpanAttrBillNo, req.BillNo,
	)
	if form.StudentID == "" || form.SessionID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Form must name a student and session")
	}

	dashboard, err := s.dashboards.Get(ctx, form.StudentID, form.SessionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if dashboard.Student.StudentID != form.StudentID || dashboard.SessionID != form.SessionID {
		telemetry.RecordError(span, fee.ErrStaleStudent)
		return nil, fee.ErrStaleStudent
	}

	if req.Mode == modeFeeHead {
		return s.fillHeadRow(dashboard, req)
	}

	feeTypes, err := s.feeTypeRepo.FindAll(ctx, false)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list fee types: %w", err)
	}
	snapshot := dashboard.Snapshot(fee.Refs(feeTypes))

	var p fee.Prefill
	switch fee.PrefillMode(req.Mode) {
	case fee.PrefillModeBill:
		if req.BillNo == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "bill_no is required for bill mode")
		}
		p = fee.PrefillForBill(snapshot, req.BillNo)
	case fee.PrefillModeAllPending:
		p = fee.PrefillAllPending(snapshot)
	case fee.PrefillModeFirstUnpaid:
		p = fee.PrefillFirstUnpaid(snapshot)
	default:
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown prefill mode: "+req.Mode)
	}

	applied, err := fee.ApplyPrefill(&form, p)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := &PrefillResponse{
		Applied:   applied,
		Form:      form,
		BillNos:   p.BillNos,
		Total:     form.Total(),
		Unmatched: p.Unmatched,
	}
	if len(p.Unmatched) > 0 {
		s.metrics.RecordPrefillUnmatched(ctx, len(p.Unmatched))
		for _, u := range p.Unmatched {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf(
				"Bill %s: fee type %q is not defined, %s left out of the form",
				u.BillNo, u.FeeType, u.Due.StringFixed(2)))
		}
		logger.WithLogger(ctx, s.logger).Warn("Prefill left out unknown fee types",
			logger.StudentID(form.StudentID),
			zap.Int("unmatched", len(p.Unmatched)),
		)
	}
	if !applied && req.Mode == string(fee.PrefillModeBill) {
		resp.Warnings = append(resp.Warnings, "Bill "+req.BillNo+" has nothing left to collect")
	}
	return resp, nil
}

func (s *PrefillService) fillHeadRow(dashboard *DashboardResponse, req PrefillRequest) (*PrefillResponse, error) {
	var head *fee.FeeHead
	for i := range dashboard.FeeHeads {
		if dashboard.FeeHeads[i].FeeTypeID == req.FeeTypeID {
			head = &dashboard.FeeHeads[i]
			break
		}
	}
	if head == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound,
			fmt.Sprintf("Student has no fee head for fee type %d", req.FeeTypeID))
	}

	form := req.Form
	form.FeeDetails = append([]fee.FeeDetailDraft(nil), req.Form.FeeDetails...)
	applied := fee.FillFeeHeadRow(&form, req.RowIndex, *head)
	if !applied && req.RowIndex > len(form.FeeDetails) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Row index is out of range")
	}
	return &PrefillResponse{Applied: applied, Form: form, Total: form.Total()}, nil
}

