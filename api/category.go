package api

import (
	"strconv"
	"strings"

	"budgetwise/database"
	"budgetwise/middleware"
	"budgetwise/models"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 消费类别处理器
type CategoryHandler struct{}

// NewCategoryHandler 创建消费类别处理器
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// CategoryRequest 创建/更新类别请求
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=50" example:"餐饮"`
	Description string `json:"description" binding:"max=255" example:"一日三餐"`
}

// Create 创建消费类别
// @Summary 创建消费类别
// @Description 类别按用户隔离，同一用户下名称唯一
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryRequest true "类别信息"
// @Success 201 {object} Response{data=models.Category} "创建成功"
// @Failure 400 {object} Response "同名类别已存在"
// @Router /categories/ [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		BadRequest(c, "类别名称不能为空")
		return
	}

	var existing models.Category
	if err := database.DB.Where("name = ? AND user_id = ?", req.Name, userID).
		First(&existing).Error; err == nil {
		BadRequest(c, "Category already exists")
		return
	}

	category := models.Category{
		Name:        req.Name,
		Description: req.Description,
		UserID:      userID,
	}
	if err := database.DB.Create(&category).Error; err != nil {
		BadRequest(c, "Category already exists")
		return
	}

	Created(c, category)
}

// List 获取消费类别列表
// @Summary 获取消费类别列表
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /categories/ [get]
func (h *CategoryHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var categories []models.Category
	if err := database.DB.Where("user_id = ?", userID).Order("name").Find(&categories).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, categories)
}

// Update 更新消费类别
// @Summary 更新消费类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Param request body CategoryRequest true "类别信息"
// @Success 200 {object} Response{data=models.Category} "更新成功"
// @Failure 404 {object} Response "类别不存在"
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var category models.Category
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&category).Error; err != nil {
		NotFound(c, "Category not found")
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	if err := database.DB.Save(&category).Error; err != nil {
		BadRequest(c, "Category already exists")
		return
	}

	SuccessWithMessage(c, "更新成功", category)
}

// Delete 删除消费类别
// @Summary 删除消费类别
// @Description 删除类别时将其下消费记录置为未分类，类别预算一并删除
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "类别不存在"
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var category models.Category
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&category).Error; err != nil {
		NotFound(c, "Category not found")
		return
	}

	// 其下消费置为未分类，关联的类别预算删除
	if err := database.DB.Model(&models.Expense{}).
		Where("category_id = ? AND user_id = ?", category.ID, userID).
		Update("category_id", nil).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}
	if err := database.DB.Where("category_id = ? AND user_id = ?", category.ID, userID).
		Delete(&models.CategoryBudget{}).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}
	if err := database.DB.Delete(&category).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}
