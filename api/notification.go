package api

import (
	"encoding/json"
	"errors"
	"strconv"

	"budgetwise/database"
	"budgetwise/middleware"
	"budgetwise/models"
	"budgetwise/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NotificationHandler 通知处理器
type NotificationHandler struct{}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

func writeSSEJSON(c *gin.Context, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = c.Writer.WriteString("data: " + string(b) + "\n\n")
	c.Writer.Flush()
}

// sseNotificationFrame 通知推送帧
type sseNotificationFrame struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// List 获取通知列表
// @Summary 获取通知列表
// @Description 按创建时间倒序返回用户全部通知，可按已读状态筛选
// @Tags 通知
// @Produce json
// @Security BearerAuth
// @Param is_read query bool false "已读状态筛选"
// @Success 200 {object} Response{data=[]models.Notification} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /notifications/ [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	query := database.DB.Where("user_id = ?", userID)
	if isReadStr := c.Query("is_read"); isReadStr != "" {
		if isRead, err := strconv.ParseBool(isReadStr); err == nil {
			query = query.Where("is_read = ?", isRead)
		}
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, notifications)
}

// MarkRead 标记通知为已读
// @Summary 标记通知为已读
// @Description 已存在相同文本的已读通知时，删除本条未读通知以保持去重索引约束
// @Tags 通知
// @Produce json
// @Security BearerAuth
// @Param id path int true "通知ID"
// @Success 200 {object} Response{data=models.Notification} "标记成功"
// @Failure 404 {object} Response "通知不存在"
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var notification models.Notification
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).
		First(&notification).Error; err != nil {
		NotFound(c, "Notification not found")
		return
	}

	err = database.DB.Model(&notification).Update("is_read", true).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 同文本的已读通知已存在，保留旧的已读记录即可
		if err := database.DB.Delete(&notification).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "标记失败"))
			return
		}
		notification.IsRead = true
		SuccessWithMessage(c, "标记成功", notification)
		return
	}
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "标记失败"))
		return
	}

	SuccessWithMessage(c, "标记成功", notification)
}

// Delete 删除通知
// @Summary 删除通知
// @Tags 通知
// @Produce json
// @Security BearerAuth
// @Param id path int true "通知ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "通知不存在"
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var notification models.Notification
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).
		First(&notification).Error; err != nil {
		NotFound(c, "Notification not found")
		return
	}

	if err := database.DB.Delete(&notification).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// Stream 实时通知推送
// @Summary 实时通知推送
// @Description SSE 长连接，新通知产生时即时推送；断开连接的用户仍可通过列表接口取回通知
// @Tags 通知
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "SSE流：data: {\"type\":\"notification\",\"message\":\"...\"}"
// @Failure 401 {object} Response "未授权"
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	// SSE响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch, cancel := service.Live.Subscribe(userID)
	defer cancel()

	writeSSEJSON(c, sseNotificationFrame{Type: "connected"})

	for {
		select {
		case message, ok := <-ch:
			if !ok {
				return
			}
			writeSSEJSON(c, sseNotificationFrame{Type: "notification", Message: message})
		case <-c.Request.Context().Done():
			return
		}
	}
}
