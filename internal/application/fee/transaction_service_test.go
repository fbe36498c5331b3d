package fee

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
)

func TestTransactionService_List(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	repo := new(MockTransactionRepository)
	repo.On("FindAll", ctx, mock.MatchedBy(func(f fee.TransactionFilter) bool {
		return f.StudentName == "asha" &&
			f.OrderBy == "payment_date" && f.OrderDir == "desc" &&
			f.From.Equal(from) &&
			f.To.Equal(time.Date(2024, 6, 30, 23, 59, 59, 999999999, time.UTC))
	})).Return([]fee.FeeTransaction{
		paymentTxn(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), "400"),
	}, int64(1), nil)

	page, err := NewTransactionService(repo).List(ctx, TransactionListFilter{
		From:        &from,
		To:          &to,
		StudentName: "asha",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "REC0603", page.Items[0].ReceiptNo)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)
	repo.AssertExpectations(t)
}

func TestTransactionService_List_KeepsExplicitTime(t *testing.T) {
	ctx := context.Background()
	to := time.Date(2024, 6, 30, 12, 30, 0, 0, time.UTC)

	repo := new(MockTransactionRepository)
	repo.On("FindAll", ctx, mock.MatchedBy(func(f fee.TransactionFilter) bool {
		return f.From == nil && f.To.Equal(to)
	})).Return([]fee.FeeTransaction{}, int64(0), nil)

	page, err := NewTransactionService(repo).List(ctx, TransactionListFilter{To: &to})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestTransactionService_List_InvertedRange(t *testing.T) {
	from := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewTransactionService(new(MockTransactionRepository)).List(context.Background(),
		TransactionListFilter{From: &from, To: &to})
	assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
}
