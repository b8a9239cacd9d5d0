package api

import (
	"strconv"
	"time"

	"budgetwise/database"
	"budgetwise/middleware"
	"budgetwise/models"

	"github.com/gin-gonic/gin"
)

// BudgetHandler 预算处理器，同时管理全局预算与类别预算
type BudgetHandler struct{}

// NewBudgetHandler 创建预算处理器
func NewBudgetHandler() *BudgetHandler {
	return &BudgetHandler{}
}

// GeneralBudgetRequest 全局预算请求
type GeneralBudgetRequest struct {
	AmountLimit float64 `json:"amount_limit" binding:"required,gt=0" example:"2000"`
	StartDate   string  `json:"start_date" binding:"required" example:"2024-01-01"`
	EndDate     string  `json:"end_date" binding:"required" example:"2024-01-31"`
}

// CategoryBudgetRequest 类别预算请求
type CategoryBudgetRequest struct {
	CategoryID  uint    `json:"category_id" binding:"required"`
	AmountLimit float64 `json:"amount_limit" binding:"gte=0" example:"500"`
	StartDate   string  `json:"start_date" binding:"required" example:"2024-01-01"`
	EndDate     string  `json:"end_date" binding:"required" example:"2024-01-31"`
}

// BudgetUpdateRequest 预算更新请求
type BudgetUpdateRequest struct {
	AmountLimit float64 `json:"amount_limit" binding:"omitempty,gte=0"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Status      string  `json:"status" binding:"omitempty,oneof=active inactive"`
}

// parseBudgetWindow 解析并校验预算时间窗口
func parseBudgetWindow(startStr, endStr string) (time.Time, time.Time, bool) {
	start, err := parseDay(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := parseDay(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// CreateGeneralBudget 创建全局预算
// @Summary 创建全局预算
// @Description 同一时间窗口内不允许存在重叠的生效中全局预算；创建后异步触发预算检查
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GeneralBudgetRequest true "预算信息"
// @Success 201 {object} Response{data=models.GeneralBudget} "创建成功"
// @Failure 400 {object} Response "时间窗口重叠"
// @Router /budgets/general [post]
func (h *BudgetHandler) CreateGeneralBudget(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req GeneralBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	start, end, ok := parseBudgetWindow(req.StartDate, req.EndDate)
	if !ok {
		BadRequest(c, "日期格式错误或结束日期早于开始日期")
		return
	}

	// 与生效中预算的窗口重叠检查（建议性约束，非事务排他）
	var existing models.GeneralBudget
	if err := database.DB.Where(
		"user_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
		userID, models.BudgetStatusActive, end, start,
	).First(&existing).Error; err == nil {
		BadRequest(c, "An active budget already exists for this period")
		return
	}

	budget := models.GeneralBudget{
		UserID:      userID,
		AmountLimit: req.AmountLimit,
		StartDate:   start,
		EndDate:     end,
		Status:      models.BudgetStatusActive,
	}
	if err := database.DB.Create(&budget).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建预算失败"))
		return
	}

	scheduleBudgetCheck(userID)
	Created(c, budget)
}

// ListGeneralBudgets 获取全局预算列表
// @Summary 获取全局预算列表
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.GeneralBudget} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /budgets/general [get]
func (h *BudgetHandler) ListGeneralBudgets(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var budgets []models.GeneralBudget
	if err := database.DB.Where("user_id = ?", userID).Order("start_date DESC").Find(&budgets).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, budgets)
}

// UpdateGeneralBudget 更新全局预算
// @Summary 更新全局预算
// @Description 更新后异步触发预算检查
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Param request body BudgetUpdateRequest true "更新信息"
// @Success 200 {object} Response{data=models.GeneralBudget} "更新成功"
// @Failure 404 {object} Response "预算不存在"
// @Router /budgets/general/{id} [put]
func (h *BudgetHandler) UpdateGeneralBudget(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var budget models.GeneralBudget
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&budget).Error; err != nil {
		NotFound(c, "Budget not found")
		return
	}

	var req BudgetUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	updates, ok := budgetUpdates(c, &req)
	if !ok {
		return
	}
	if err := database.DB.Model(&budget).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	database.DB.First(&budget, budget.ID)
	scheduleBudgetCheck(userID)
	SuccessWithMessage(c, "更新成功", budget)
}

// DeleteGeneralBudget 删除全局预算
// @Summary 删除全局预算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "预算不存在"
// @Router /budgets/general/{id} [delete]
func (h *BudgetHandler) DeleteGeneralBudget(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var budget models.GeneralBudget
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&budget).Error; err != nil {
		NotFound(c, "Budget not found")
		return
	}
	if err := database.DB.Delete(&budget).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// CreateCategoryBudget 创建类别预算
// @Summary 创建类别预算
// @Description 同一类别同一时间窗口内不允许重叠的生效中预算；创建后异步触发预算检查
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryBudgetRequest true "预算信息"
// @Success 201 {object} Response{data=models.CategoryBudget} "创建成功"
// @Failure 400 {object} Response "时间窗口重叠或类别无效"
// @Router /budgets/category [post]
func (h *BudgetHandler) CreateCategoryBudget(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CategoryBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	start, end, ok := parseBudgetWindow(req.StartDate, req.EndDate)
	if !ok {
		BadRequest(c, "日期格式错误或结束日期早于开始日期")
		return
	}

	var category models.Category
	if err := database.DB.Where("id = ? AND user_id = ?", req.CategoryID, userID).
		First(&category).Error; err != nil {
		BadRequest(c, "无效的消费类别")
		return
	}

	var existing models.CategoryBudget
	if err := database.DB.Where(
		"category_id = ? AND user_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
		req.CategoryID, userID, models.BudgetStatusActive, end, start,
	).First(&existing).Error; err == nil {
		BadRequest(c, "An active budget already exists for this category and period")
		return
	}

	budget := models.CategoryBudget{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		AmountLimit: req.AmountLimit,
		StartDate:   start,
		EndDate:     end,
		Status:      models.BudgetStatusActive,
	}
	if err := database.DB.Create(&budget).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建预算失败"))
		return
	}

	scheduleBudgetCheck(userID)
	Created(c, budget)
}

// ListCategoryBudgets 获取类别预算列表
// @Summary 获取类别预算列表
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param category_id query int false "类别筛选"
// @Success 200 {object} Response{data=[]models.CategoryBudget} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /budgets/category [get]
func (h *BudgetHandler) ListCategoryBudgets(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	query := database.DB.Where("user_id = ?", userID)
	if categoryIDStr := c.Query("category_id"); categoryIDStr != "" {
		if categoryID, err := strconv.ParseUint(categoryIDStr, 10, 32); err == nil {
			query = query.Where("category_id = ?", categoryID)
		}
	}

	var budgets []models.CategoryBudget
	if err := query.Order("start_date DESC").Find(&budgets).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, budgets)
}

// UpdateCategoryBudget 更新类别预算
// @Summary 更新类别预算
// @Description 更新后异步触发预算检查
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Param request body BudgetUpdateRequest true "更新信息"
// @Success 200 {object} Response{data=models.CategoryBudget} "更新成功"
// @Failure 404 {object} Response "预算不存在"
// @Router /budgets/category/{id} [put]
func (h *BudgetHandler) UpdateCategoryBudget(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var budget models.CategoryBudget
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&budget).Error; err != nil {
		NotFound(c, "Budget not found")
		return
	}

	var req BudgetUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	updates, ok := budgetUpdates(c, &req)
	if !ok {
		return
	}
	if err := database.DB.Model(&budget).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	database.DB.First(&budget, budget.ID)
	scheduleBudgetCheck(userID)
	SuccessWithMessage(c, "更新成功", budget)
}

// DeleteCategoryBudget 删除类别预算
// @Summary 删除类别预算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "预算不存在"
// @Router /budgets/category/{id} [delete]
func (h *BudgetHandler) DeleteCategoryBudget(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var budget models.CategoryBudget
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&budget).Error; err != nil {
		NotFound(c, "Budget not found")
		return
	}
	if err := database.DB.Delete(&budget).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// budgetUpdates 组装预算更新字段，出错时已写入响应
func budgetUpdates(c *gin.Context, req *BudgetUpdateRequest) (map[string]interface{}, bool) {
	updates := make(map[string]interface{})
	if req.AmountLimit > 0 {
		updates["amount_limit"] = req.AmountLimit
	}
	if req.StartDate != "" {
		start, err := parseDay(req.StartDate)
		if err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return nil, false
		}
		updates["start_date"] = start
	}
	if req.EndDate != "" {
		end, err := parseDay(req.EndDate)
		if err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return nil, false
		}
		updates["end_date"] = end
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	return updates, true
}
