package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormDemandBillRepository_ExistsForPeriod_Postgres(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormDemandBillRepository(gormDB)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "demand_bills" WHERE student_id = \$1 AND session_id = \$2 AND month = \$3 AND year = \$4`).
		WithArgs("STU001", 2024, 4, 2024).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsForPeriod(context.Background(), "STU001", 2024, 4, 2024)

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDemandBillRepository_FindByBillNo_NotFound(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormDemandBillRepository(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "demand_bills" WHERE bill_no = \$1 ORDER BY .* LIMIT .*`).
		WithArgs("BILL404", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	bill, err := repo.FindByBillNo(context.Background(), "BILL404")

	assert.Nil(t, bill)
	assert.Equal(t, shared.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDemandBillRepository_DeleteByBillNos_Empty(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()

	n, err := NewGormDemandBillRepository(gormDB).DeleteByBillNos(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
