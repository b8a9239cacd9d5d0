package api

import (
	"strconv"

	"budgetwise/database"
	"budgetwise/middleware"
	"budgetwise/models"
	"budgetwise/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GroupHandler 共享群组处理器
type GroupHandler struct{}

// NewGroupHandler 创建共享群组处理器
func NewGroupHandler() *GroupHandler {
	return &GroupHandler{}
}

// GroupCreateRequest 创建群组请求
type GroupCreateRequest struct {
	Name string `json:"name" binding:"required,max=100" example:"合租开销"`
}

// GroupMemberRequest 添加成员请求
type GroupMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// GroupMemberStatusRequest 成员状态更新请求（接受/拒绝邀请）
type GroupMemberStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active declined"`
}

// GroupExpenseRequest 群组消费请求
// split_type 为 equal 时忽略 shares，按在组成员均摊；
// 为 custom 时 shares 必须覆盖全部参与成员且按分累加等于总金额
type GroupExpenseRequest struct {
	Amount      float64            `json:"amount" binding:"required,gt=0" example:"300"`
	Description string             `json:"description" binding:"max=255" example:"房租"`
	SplitType   string             `json:"split_type" binding:"omitempty,oneof=equal custom"`
	Shares      map[string]float64 `json:"shares"`
}

// SettlementRequest 还款请求
type SettlementRequest struct {
	CreditorID uint    `json:"creditor_id" binding:"required"`
	Amount     float64 `json:"amount" binding:"required,gt=0"`
}

// groupIDParam 解析路径中的群组ID
func groupIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}

// requireMembership 校验当前用户是该群组的在组成员
func requireMembership(c *gin.Context, groupID, userID uint) (*models.GroupMember, bool) {
	var member models.GroupMember
	err := database.DB.Where("group_id = ? AND user_id = ? AND status = ?",
		groupID, userID, models.GroupMemberStatusActive).First(&member).Error
	if err != nil {
		Forbidden(c, "Not an active member of this group")
		return nil, false
	}
	return &member, true
}

// Create 创建群组
// @Summary 创建群组
// @Description 创建者自动成为群组管理员并处于在组状态
// @Tags 群组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GroupCreateRequest true "群组信息"
// @Success 201 {object} Response{data=models.Group} "创建成功"
// @Failure 401 {object} Response "未授权"
// @Router /groups/ [post]
func (h *GroupHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req GroupCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	group := models.Group{Name: req.Name}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{
			GroupID: group.ID,
			UserID:  userID,
			Role:    models.GroupRoleAdmin,
			Status:  models.GroupMemberStatusActive,
		}).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "创建群组失败"))
		return
	}

	Created(c, group)
}

// List 获取我的群组列表
// @Summary 获取我的群组列表
// @Description 返回当前用户在组或被邀请的群组
// @Tags 群组
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Group} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /groups/ [get]
func (h *GroupHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var groups []models.Group
	err := database.DB.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ? AND group_members.status <> ?",
			userID, models.GroupMemberStatusDeclined).
		Find(&groups).Error
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, groups)
}

// Delete 解散群组
// @Summary 解散群组
// @Description 仅群组管理员可解散，群组消费、份额、欠款与成员关系一并删除
// @Tags 群组
// @Produce json
// @Security BearerAuth
// @Param id path int true "群组ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "无权限"
// @Failure 404 {object} Response "群组不存在"
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		NotFound(c, "Group not found")
		return
	}

	var member models.GroupMember
	err := database.DB.Where("group_id = ? AND user_id = ? AND role = ?",
		groupID, userID, models.GroupRoleAdmin).First(&member).Error
	if err != nil {
		Forbidden(c, "Only a group admin can delete the group")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		return deleteGroupCascade(tx, groupID)
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "删除群组失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// AddMember 添加群组成员
// @Summary 添加群组成员
// @Description 仅在组成员可邀请；被邀请用户进入待接受状态
// @Tags 群组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "群组ID"
// @Param request body GroupMemberRequest true "成员信息"
// @Success 201 {object} Response{data=models.GroupMember} "添加成功"
// @Failure 400 {object} Response "该用户已在群组中"
// @Failure 403 {object} Response "无权限"
// @Router /groups/{id}/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	if _, ok := requireMembership(c, groupID, userID); !ok {
		return
	}

	var req GroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var user models.User
	if err := database.DB.First(&user, req.UserID).Error; err != nil {
		NotFound(c, "User not found")
		return
	}

	member := models.GroupMember{
		GroupID: groupID,
		UserID:  req.UserID,
		Role:    models.GroupRoleMember,
		Status:  models.GroupMemberStatusInvited,
	}
	if err := database.DB.Create(&member).Error; err != nil {
		// 唯一索引兜底重复邀请
		BadRequest(c, "User is already a member of this group")
		return
	}

	Created(c, member)
}

// ListMembers 获取群组成员列表
// @Summary 获取群组成员列表
// @Tags 群组
// @Produce json
// @Security BearerAuth
// @Param id path int true "群组ID"
// @Success 200 {object} Response{data=[]models.GroupMember} "获取成功"
// @Failure 403 {object} Response "无权限"
// @Router /groups/{id}/members [get]
func (h *GroupHandler) ListMembers(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	if _, ok := requireMembership(c, groupID, userID); !ok {
		return
	}

	var members []models.GroupMember
	if err := database.DB.Where("group_id = ?", groupID).Find(&members).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, members)
}

// UpdateMemberStatus 更新自己的成员状态（接受或拒绝邀请）
// @Summary 更新成员状态
// @Description 被邀请用户接受（active）或拒绝（declined）邀请
// @Tags 群组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "群组ID"
// @Param request body GroupMemberStatusRequest true "状态"
// @Success 200 {object} Response{data=models.GroupMember} "更新成功"
// @Failure 404 {object} Response "邀请不存在"
// @Router /groups/{id}/members/status [put]
func (h *GroupHandler) UpdateMemberStatus(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req GroupMemberStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var member models.GroupMember
	err := database.DB.Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error
	if err != nil {
		NotFound(c, "Invitation not found")
		return
	}

	member.Status = req.Status
	if err := database.DB.Save(&member).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	SuccessWithMessage(c, "更新成功", member)
}

// CreateExpense 创建群组消费
// @Summary 创建群组消费
// @Description 当前用户作为付款人垫付，按均摊或自定义份额拆分给在组成员并更新两两净欠款
// @Tags 群组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "群组ID"
// @Param request body GroupExpenseRequest true "消费信息"
// @Success 201 {object} Response{data=models.GroupExpense} "创建成功"
// @Failure 400 {object} Response "份额不一致或成员无效"
// @Failure 403 {object} Response "无权限"
// @Router /groups/{id}/expenses [post]
func (h *GroupHandler) CreateExpense(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	if _, ok := requireMembership(c, groupID, userID); !ok {
		return
	}

	var req GroupExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	if req.SplitType == "" {
		req.SplitType = models.SplitTypeEqual
	}

	// 在组成员集合
	var members []models.GroupMember
	if err := database.DB.Where("group_id = ? AND status = ?",
		groupID, models.GroupMemberStatusActive).Find(&members).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	activeIDs := make(map[uint]bool, len(members))
	for _, m := range members {
		activeIDs[m.UserID] = true
	}

	var memberIDs []uint
	var shares []float64

	switch req.SplitType {
	case models.SplitTypeEqual:
		for _, m := range members {
			memberIDs = append(memberIDs, m.UserID)
		}
		equalShares, err := service.EqualShares(req.Amount, len(memberIDs))
		if err != nil {
			BadRequest(c, SafeErrorMessage(err, "拆分失败"))
			return
		}
		shares = equalShares

	case models.SplitTypeCustom:
		for uidStr, share := range req.Shares {
			uid, err := strconv.ParseUint(uidStr, 10, 32)
			if err != nil {
				BadRequest(c, "份额中的用户ID无效")
				return
			}
			if !activeIDs[uint(uid)] {
				BadRequest(c, "份额中的用户不是在组成员")
				return
			}
			memberIDs = append(memberIDs, uint(uid))
			shares = append(shares, share)
		}
		if err := service.ValidateCustomShares(req.Amount, shares); err != nil {
			BadRequest(c, SafeErrorMessage(err, "份额之和与总金额不一致"))
			return
		}
	}

	expense := models.GroupExpense{
		GroupID:     groupID,
		PayerID:     userID,
		Amount:      req.Amount,
		Description: req.Description,
		SplitType:   req.SplitType,
	}
	if err := service.SplitGroupExpense(&expense, memberIDs, shares); err != nil {
		BadRequest(c, SafeErrorMessage(err, "拆分失败"))
		return
	}

	Created(c, expense)
}

// ListExpenses 获取群组消费列表
// @Summary 获取群组消费列表
// @Tags 群组
// @Produce json
// @Security BearerAuth
// @Param id path int true "群组ID"
// @Success 200 {object} Response{data=[]models.GroupExpense} "获取成功"
// @Failure 403 {object} Response "无权限"
// @Router /groups/{id}/expenses [get]
func (h *GroupHandler) ListExpenses(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	if _, ok := requireMembership(c, groupID, userID); !ok {
		return
	}

	var expenses []models.GroupExpense
	if err := database.DB.Where("group_id = ?", groupID).
		Order("created_at DESC").Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, expenses)
}

// ListDebts 获取群组欠款列表
// @Summary 获取群组欠款列表
// @Description 返回群组内全部非零两两净欠款
// @Tags 群组
// @Produce json
// @Security BearerAuth
// @Param id path int true "群组ID"
// @Success 200 {object} Response{data=[]models.GroupDebt} "获取成功"
// @Failure 403 {object} Response "无权限"
// @Router /groups/{id}/debts [get]
func (h *GroupHandler) ListDebts(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	if _, ok := requireMembership(c, groupID, userID); !ok {
		return
	}

	var debts []models.GroupDebt
	if err := database.DB.Where("group_id = ? AND amount > 0", groupID).
		Find(&debts).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, debts)
}

// Settle 记录还款
// @Summary 记录还款
// @Description 当前用户向债权人还款，减少对应方向的净欠款
// @Tags 群组
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "群组ID"
// @Param request body SettlementRequest true "还款信息"
// @Success 200 {object} Response "还款成功"
// @Failure 400 {object} Response "金额超出欠款"
// @Failure 403 {object} Response "无权限"
// @Router /groups/{id}/settlements [post]
func (h *GroupHandler) Settle(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	if _, ok := requireMembership(c, groupID, userID); !ok {
		return
	}

	var req SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	if err := service.SettleDebt(groupID, userID, req.CreditorID, req.Amount); err != nil {
		BadRequest(c, SafeErrorMessage(err, "还款失败"))
		return
	}

	SuccessWithMessage(c, "还款成功", nil)
}
