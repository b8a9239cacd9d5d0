package api

import (
	"log"

	"budgetwise/service"
)

// schedule 以 fire-and-forget 方式调度一个后台任务
// 测试中可替换为同步执行或空操作
var schedule = func(fn func()) {
	go fn()
}

// scheduleThresholdCheck 请求返回后在后台检查用户的提醒阈值
// 评估使用连接池中独立的数据库连接，失败只记日志，不影响原请求
func scheduleThresholdCheck(userID uint) {
	schedule(func() {
		if err := service.GetEvaluator().CheckThresholds(userID); err != nil {
			log.Printf("阈值检查失败 (user_id=%d): %v", userID, err)
		}
	})
}

// scheduleBudgetCheck 请求返回后在后台检查用户的预算执行情况
func scheduleBudgetCheck(userID uint) {
	schedule(func() {
		if err := service.GetEvaluator().CheckBudgets(userID); err != nil {
			log.Printf("预算检查失败 (user_id=%d): %v", userID, err)
		}
	})
}
