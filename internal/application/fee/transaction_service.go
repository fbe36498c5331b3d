package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
)

// TransactionService lists fee transactions
type TransactionService struct {
	txnRepo fee.TransactionRepository
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(txnRepo fee.TransactionRepository) *TransactionService {
	return &TransactionService{txnRepo: txnRepo}
}

// List returns transactions matching the filter, newest first
func (s *TransactionService) List(ctx context.Context, filter TransactionListFilter) (*shared.Paginated[TransactionResponse], error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "'to' date is before 'from' date")
	}

	to := filter.To
	if to != nil && to.Hour() == 0 && to.Minute() == 0 && to.Second() == 0 && to.Nanosecond() == 0 {
		// a bare date includes the whole day
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}

	f := fee.TransactionFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  "payment_date",
			OrderDir: "desc",
		}.Normalize(),
		From:        filter.From,
		To:          to,
		StudentID:   filter.StudentID,
		SessionID:   filter.SessionID,
		ClassName:   filter.ClassName,
		Section:     filter.Section,
		StudentName: filter.StudentName,
	}

	txns, total, err := s.txnRepo.FindAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	page := shared.NewPaginated(toTransactionResponses(txns), total, f.Page, f.PageSize)
	return &page, nil
}
