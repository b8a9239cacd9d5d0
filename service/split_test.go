package service

import (
	"testing"
	"time"

	"budgetwise/database"
	"budgetwise/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualShares(t *testing.T) {
	// 整除
	shares, err := EqualShares(90, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 30, 30}, shares)

	// 除不尽：多出的分从前往后分配，总和仍等于原金额
	shares, err = EqualShares(100, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{33.34, 33.33, 33.33}, shares)

	sum := 0.0
	for _, s := range shares {
		sum += s
	}
	assert.InDelta(t, 100, sum, 1e-9)

	// 0.01 元 2 人：一人 1 分，一人 0
	shares, err = EqualShares(0.01, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.01, 0}, shares)

	// 单人
	shares, err = EqualShares(55.55, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{55.55}, shares)

	// 非法人数
	_, err = EqualShares(10, 0)
	assert.ErrorIs(t, err, ErrEmptySplit)
}

func TestEqualSharesAlwaysReconcile(t *testing.T) {
	amounts := []float64{0.03, 1, 7.77, 99.99, 100, 1234.56}
	for _, amount := range amounts {
		for n := 1; n <= 7; n++ {
			shares, err := EqualShares(amount, n)
			require.NoError(t, err)
			require.Len(t, shares, n)
			sum := 0.0
			for _, s := range shares {
				sum += s
			}
			assert.InDeltaf(t, amount, sum, 1e-9, "amount=%v n=%d", amount, n)
			// 最大最小份额相差不超过 1 分
			assert.LessOrEqual(t, shares[0]-shares[n-1], 0.01+1e-9)
		}
	}
}

func TestValidateCustomShares(t *testing.T) {
	// 恰好相等
	assert.NoError(t, ValidateCustomShares(100, []float64{60, 30, 10}))

	// 分级精度的相等
	assert.NoError(t, ValidateCustomShares(0.03, []float64{0.01, 0.02}))

	// 不一致
	err := ValidateCustomShares(100, []float64{60, 30})
	assert.ErrorIs(t, err, ErrShareMismatch)

	// 空份额
	assert.ErrorIs(t, ValidateCustomShares(10, nil), ErrEmptySplit)
}

func groupDebtRows(id, groupID, debtorID, creditorID uint, amount float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "group_id", "debtor_id", "creditor_id", "amount", "created_at", "updated_at"}).
		AddRow(id, groupID, debtorID, creditorID, amount, time.Now(), time.Now())
}

func TestApplyDebtCreatesFreshBalance(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 双向均无余额 → 新建一条正向欠款
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(3), uint(2)).
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(2), uint(3)).
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `group_debts`").
		WithArgs(uint(1), uint(2), uint(3), 40.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, ApplyDebt(database.DB, 1, 2, 3, 40))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDebtReverseBalanceAbsorbsDelta(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 反向余额 100 足以吞下增量 40 → 只把反向余额减到 60，不碰正向
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(3), uint(2)).
		WillReturnRows(groupDebtRows(5, 1, 3, 2, 100))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `group_debts`").
		WithArgs(60.0, sqlmock.AnyArg(), uint(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, ApplyDebt(database.DB, 1, 2, 3, 40))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDebtPartialOffsetCarriesResidue(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 反向余额 30 不足以抵销增量 100 → 反向清零，差额 70 落到正向
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(3), uint(2)).
		WillReturnRows(groupDebtRows(5, 1, 3, 2, 30))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `group_debts`").
		WithArgs(0, sqlmock.AnyArg(), uint(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(2), uint(3)).
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `group_debts`").
		WithArgs(uint(1), uint(2), uint(3), 70.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, ApplyDebt(database.DB, 1, 2, 3, 100))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDebtMergesIntoExistingForward(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 无反向余额，正向已有 25 → 累加到 65
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(3), uint(2)).
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(2), uint(3)).
		WillReturnRows(groupDebtRows(8, 1, 2, 3, 25))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `group_debts`").
		WithArgs(65.0, sqlmock.AnyArg(), uint(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, ApplyDebt(database.DB, 1, 2, 3, 40))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleDebtReducesBalance(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(2), uint(3)).
		WillReturnRows(groupDebtRows(5, 1, 2, 3, 50))
	mock.ExpectExec("UPDATE `group_debts`").
		WithArgs(20.0, sqlmock.AnyArg(), uint(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, SettleDebt(1, 2, 3, 30))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleDebtRejectsOverpayment(t *testing.T) {
	// 非正金额直接拒绝，不触库
	require.Error(t, SettleDebt(1, 2, 3, 0))

	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 欠款 50，还 80 → 回滚并报错
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(2), uint(3)).
		WillReturnRows(groupDebtRows(5, 1, 2, 3, 50))
	mock.ExpectRollback()

	err := SettleDebt(1, 2, 3, 80)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "超过当前欠款")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitGroupExpensePersistsSharesAndDebts(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	expense := &models.GroupExpense{
		GroupID:     1,
		PayerID:     1,
		Amount:      100,
		Description: "dinner",
		SplitType:   models.SplitTypeEqual,
	}

	// 一个事务内：写消费、写份额、更新净欠款；付款人自己的份额不产生欠款
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `group_expenses`").
		WithArgs(uint(1), uint(1), 100.0, "dinner", models.SplitTypeEqual,
			sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("INSERT INTO `expense_splits`").
		WithArgs(uint(9), uint(1), 50.0, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `expense_splits`").
		WithArgs(uint(9), uint(2), 50.0, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(1), uint(2)).
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery("SELECT .* FROM `group_debts`").
		WithArgs(uint(1), uint(2), uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectExec("INSERT INTO `group_debts`").
		WithArgs(uint(1), uint(2), uint(1), 50.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, SplitGroupExpense(expense, []uint{1, 2}, []float64{50, 50}))
	assert.Equal(t, uint(9), expense.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
