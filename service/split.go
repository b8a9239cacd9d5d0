package service

import (
	"errors"
	"fmt"

	"budgetwise/database"
	"budgetwise/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrEmptySplit 没有可分摊的成员
	ErrEmptySplit = errors.New("没有可分摊的成员")
	// ErrShareMismatch 自定义份额之和与总金额不一致
	ErrShareMismatch = errors.New("份额之和与总金额不一致")
)

// EqualShares 按分计算均摊份额
// 先取每人份额向下取整到分，余下的分从前往后逐人加一，
// 保证所有份额之和恰好等于总金额
func EqualShares(amount float64, n int) ([]float64, error) {
	if n <= 0 {
		return nil, ErrEmptySplit
	}
	total := decimal.NewFromFloat(amount).Round(2)
	cents := total.Mul(decimal.NewFromInt(100)).IntPart()
	base := cents / int64(n)
	remainder := cents % int64(n)

	shares := make([]float64, n)
	hundred := decimal.NewFromInt(100)
	for i := 0; i < n; i++ {
		c := base
		if int64(i) < remainder {
			c++
		}
		share, _ := decimal.NewFromInt(c).Div(hundred).Float64()
		shares[i] = share
	}
	return shares, nil
}

// ValidateCustomShares 校验自定义份额之和等于总金额（按分比较）
func ValidateCustomShares(amount float64, shares []float64) error {
	if len(shares) == 0 {
		return ErrEmptySplit
	}
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(decimal.NewFromFloat(s).Round(2))
	}
	if !sum.Equal(decimal.NewFromFloat(amount).Round(2)) {
		return fmt.Errorf("%w: %s != %s", ErrShareMismatch,
			sum.StringFixed(2), decimal.NewFromFloat(amount).StringFixed(2))
	}
	return nil
}

// ApplyDebt 把 debtor 欠 creditor 的增量计入群组净欠款
// 两个方向的余额相互抵销：若反向已有欠款，先冲抵反向余额，
// 多出的部分才落到正向余额上
func ApplyDebt(tx *gorm.DB, groupID, debtorID, creditorID uint, delta float64) error {
	if debtorID == creditorID || delta <= 0 {
		return nil
	}
	d := decimal.NewFromFloat(delta).Round(2)

	// 先冲抵反向余额（creditor 欠 debtor）
	var reverse models.GroupDebt
	err := tx.Where("group_id = ? AND debtor_id = ? AND creditor_id = ?",
		groupID, creditorID, debtorID).First(&reverse).Error
	if err == nil {
		rev := decimal.NewFromFloat(reverse.Amount)
		if rev.GreaterThanOrEqual(d) {
			remaining, _ := rev.Sub(d).Float64()
			return tx.Model(&reverse).Update("amount", remaining).Error
		}
		// 反向余额不足以抵销，清零后把差额记到正向
		if err := tx.Model(&reverse).Update("amount", 0).Error; err != nil {
			return err
		}
		d = d.Sub(rev)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var forward models.GroupDebt
	err = tx.Where("group_id = ? AND debtor_id = ? AND creditor_id = ?",
		groupID, debtorID, creditorID).First(&forward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		amt, _ := d.Float64()
		return tx.Create(&models.GroupDebt{
			GroupID:    groupID,
			DebtorID:   debtorID,
			CreditorID: creditorID,
			Amount:     amt,
		}).Error
	}
	if err != nil {
		return err
	}
	amt, _ := decimal.NewFromFloat(forward.Amount).Add(d).Float64()
	return tx.Model(&forward).Update("amount", amt).Error
}

// SplitGroupExpense 持久化一笔群组消费：写 ExpenseSplit 行并更新两两净欠款
// memberIDs 与 shares 一一对应；付款人自己的份额不产生欠款
func SplitGroupExpense(expense *models.GroupExpense, memberIDs []uint, shares []float64) error {
	if len(memberIDs) != len(shares) || len(memberIDs) == 0 {
		return ErrEmptySplit
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(expense).Error; err != nil {
			return err
		}
		for i, uid := range memberIDs {
			split := models.ExpenseSplit{
				GroupExpenseID: expense.ID,
				UserID:         uid,
				ShareAmount:    shares[i],
			}
			if err := tx.Create(&split).Error; err != nil {
				return err
			}
			if err := ApplyDebt(tx, expense.GroupID, uid, expense.PayerID, shares[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SettleDebt 记录一笔 debtor→creditor 的还款，减少对应方向的净欠款
func SettleDebt(groupID, debtorID, creditorID uint, amount float64) error {
	if amount <= 0 {
		return errors.New("还款金额必须大于0")
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var debt models.GroupDebt
		if err := tx.Where("group_id = ? AND debtor_id = ? AND creditor_id = ?",
			groupID, debtorID, creditorID).First(&debt).Error; err != nil {
			return err
		}
		remaining := decimal.NewFromFloat(debt.Amount).Sub(decimal.NewFromFloat(amount).Round(2))
		if remaining.IsNegative() {
			return fmt.Errorf("还款金额 %.2f 超过当前欠款 %.2f", amount, debt.Amount)
		}
		amt, _ := remaining.Float64()
		return tx.Model(&debt).Update("amount", amt).Error
	})
}
