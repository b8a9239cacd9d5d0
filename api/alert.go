package api

import (
	"errors"

	"budgetwise/database"
	"budgetwise/middleware"
	"budgetwise/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AlertHandler 提醒阈值处理器
type AlertHandler struct{}

// NewAlertHandler 创建提醒阈值处理器
func NewAlertHandler() *AlertHandler {
	return &AlertHandler{}
}

// AlertCreateRequest 创建提醒请求
type AlertCreateRequest struct {
	Threshold float64 `json:"threshold" binding:"required,gt=0" example:"100"`
}

// AlertUpdateRequest 更新提醒请求
type AlertUpdateRequest struct {
	Threshold float64 `json:"threshold" binding:"required,gt=0" example:"150"`
}

// CreateAlert 创建提醒阈值
// @Summary 创建提醒阈值
// @Description 同一用户同一阈值只允许一条；创建后异步触发阈值检查
// @Tags 提醒
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AlertCreateRequest true "提醒信息"
// @Success 201 {object} Response{data=models.Alert} "创建成功"
// @Failure 400 {object} Response "同一阈值的提醒已存在"
// @Router /alerts/ [post]
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req AlertCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var existing models.Alert
	if err := database.DB.Where("user_id = ? AND threshold = ?", userID, req.Threshold).
		First(&existing).Error; err == nil {
		BadRequest(c, "An alert with the same threshold already exists. Please delete it first to create a new one.")
		return
	}

	alert := models.Alert{
		UserID:    userID,
		Threshold: req.Threshold,
	}
	if err := database.DB.Create(&alert).Error; err != nil {
		// 唯一索引兜底并发下的重复创建
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, "An alert with the same threshold already exists. Please delete it first to create a new one.")
			return
		}
		InternalError(c, SafeErrorMessage(err, "创建提醒失败"))
		return
	}

	scheduleThresholdCheck(userID)
	Created(c, alert)
}

// GetAlerts 获取提醒阈值列表
// @Summary 获取提醒阈值列表
// @Description 返回用户全部提醒，同时异步触发一次阈值检查
// @Tags 提醒
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Alert} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /alerts/ [get]
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var alerts []models.Alert
	if err := database.DB.Where("user_id = ?", userID).Order("threshold").Find(&alerts).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	scheduleThresholdCheck(userID)
	Success(c, alerts)
}

// UpdateAlert 更新提醒阈值
// @Summary 更新提醒阈值
// @Description 更新用户最早创建的提醒，更新后异步触发阈值检查
// @Tags 提醒
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AlertUpdateRequest true "更新信息"
// @Success 200 {object} Response{data=models.Alert} "更新成功"
// @Failure 404 {object} Response "提醒不存在"
// @Router /alerts/ [put]
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req AlertUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var alert models.Alert
	if err := database.DB.Where("user_id = ?", userID).First(&alert).Error; err != nil {
		NotFound(c, "Alert not found")
		return
	}

	alert.Threshold = req.Threshold
	if err := database.DB.Save(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, "An alert with the same threshold already exists. Please delete it first to create a new one.")
			return
		}
		InternalError(c, SafeErrorMessage(err, "更新提醒失败"))
		return
	}

	scheduleThresholdCheck(userID)
	Success(c, alert)
}

// DeleteAlert 删除提醒阈值
// @Summary 删除提醒阈值
// @Description 删除用户最早创建的提醒
// @Tags 提醒
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "删除成功"
// @Failure 404 {object} Response "提醒不存在"
// @Router /alerts/ [delete]
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var alert models.Alert
	if err := database.DB.Where("user_id = ?", userID).First(&alert).Error; err != nil {
		NotFound(c, "Alert not found")
		return
	}

	if err := database.DB.Delete(&alert).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	c.JSON(200, gin.H{"detail": "Alert deleted successfully"})
}
