package service

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"budgetwise/config"
	"budgetwise/database"
	"budgetwise/models"

	"gorm.io/gorm"
)

// Evaluator 阈值/预算评估器
// 在请求结束后以后台任务方式运行：汇总用户消费、与阈值或预算上限比较，
// 超出时写入通知行、推送在线连接并按配置发送邮件。
// 评估失败只记日志，不回传给触发它的请求。
type Evaluator struct {
	email *EmailService
}

var defaultEvaluator *Evaluator

// InitEvaluator 初始化默认评估器
func InitEvaluator(cfg *config.Config) {
	defaultEvaluator = NewEvaluator(cfg)
}

// NewEvaluator 创建评估器
func NewEvaluator(cfg *config.Config) *Evaluator {
	return &Evaluator{email: NewEmailService(&cfg.Email)}
}

// GetEvaluator 获取默认评估器（未初始化时惰性创建，便于测试）
func GetEvaluator() *Evaluator {
	if defaultEvaluator == nil {
		defaultEvaluator = NewEvaluator(&config.Config{})
	}
	return defaultEvaluator
}

// formatAmount 以最短形式输出金额（100 而非 100.00），与通知文案保持稳定
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// sumExpenses 汇总用户消费总额，scope 追加额外过滤条件
func sumExpenses(query *gorm.DB) (float64, error) {
	var total float64
	err := query.Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}

// CheckThresholds 检查用户所有提醒阈值
// 超出即 overage = 总消费 - 阈值 > 0 时才触发，未超出不提醒
func (e *Evaluator) CheckThresholds(userID uint) error {
	var alerts []models.Alert
	if err := database.DB.Where("user_id = ?", userID).Find(&alerts).Error; err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}

	total, err := sumExpenses(database.DB.Model(&models.Expense{}).Where("user_id = ?", userID))
	if err != nil {
		return err
	}

	for _, alert := range alerts {
		overage := total - alert.Threshold
		if overage <= 0 {
			continue
		}
		message := fmt.Sprintf("Your alert threshold of %s has been exceeded by %.2f",
			formatAmount(alert.Threshold), overage)
		if err := e.emit(userID, message); err != nil {
			return err
		}
	}
	return nil
}

// CheckBudgets 检查用户所有生效中的预算（全局 + 类别）
// 统计窗口为 [start_date, end_date] 闭区间
func (e *Evaluator) CheckBudgets(userID uint) error {
	var generals []models.GeneralBudget
	if err := database.DB.Where("user_id = ? AND status = ?",
		userID, models.BudgetStatusActive).Find(&generals).Error; err != nil {
		return err
	}
	for _, b := range generals {
		total, err := sumExpenses(database.DB.Model(&models.Expense{}).
			Where("user_id = ? AND date >= ? AND date <= ?", userID, b.StartDate, b.EndDate))
		if err != nil {
			return err
		}
		overage := total - b.AmountLimit
		if overage <= 0 {
			continue
		}
		message := fmt.Sprintf("You've exceeded your budget of %s by %.2f.",
			formatAmount(b.AmountLimit), overage)
		if err := e.emit(userID, message); err != nil {
			return err
		}
	}

	var byCategory []models.CategoryBudget
	if err := database.DB.Where("user_id = ? AND status = ?",
		userID, models.BudgetStatusActive).Find(&byCategory).Error; err != nil {
		return err
	}
	for _, b := range byCategory {
		total, err := sumExpenses(database.DB.Model(&models.Expense{}).
			Where("user_id = ? AND category_id = ? AND date >= ? AND date <= ?",
				userID, b.CategoryID, b.StartDate, b.EndDate))
		if err != nil {
			return err
		}
		overage := total - b.AmountLimit
		if overage <= 0 {
			continue
		}
		message := fmt.Sprintf("You've exceeded your category budget of %s by %.2f.",
			formatAmount(b.AmountLimit), overage)
		if err := e.emit(userID, message); err != nil {
			return err
		}
	}
	return nil
}

// emit 持久化通知并推送
// 去重：同一用户存在相同文本的未读通知时不再写入；
// 唯一索引兜底并发下的 check-then-insert 竞态，唯一键冲突视同已去重
func (e *Evaluator) emit(userID uint, message string) error {
	var existing models.Notification
	err := database.DB.Where("user_id = ? AND message = ? AND is_read = ?",
		userID, message, false).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	notification := models.Notification{UserID: userID, Message: message}
	if err := database.DB.Create(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}

	// 实时推送，不在线则静默
	Live.Send(userID, message)

	// 邮件提醒尽力而为，失败只记日志
	var user models.User
	if err := database.DB.First(&user, userID).Error; err == nil {
		if err := e.email.SendBreachEmail(user.Email, user.Username, message); err != nil {
			log.Printf("提醒邮件发送失败 (user_id=%d): %v", userID, err)
		}
	}
	return nil
}
