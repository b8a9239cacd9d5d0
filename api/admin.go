package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"budgetwise/config"
	"budgetwise/database"
	"budgetwise/middleware"
	"budgetwise/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminHandler 后台管理处理器
type AdminHandler struct {
	cfg *config.Config
}

// NewAdminHandler 创建后台管理处理器
func NewAdminHandler(cfg *config.Config) *AdminHandler {
	return &AdminHandler{cfg: cfg}
}

// AdminLoginRequest 管理员登录请求
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required" example:"root"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// AdminRegisterRequest 管理员注册请求，必须出示主密钥
type AdminRegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50" example:"root"`
	Email     string `json:"email" binding:"omitempty,email" example:"root@example.com"`
	Password  string `json:"password" binding:"required,min=6,max=50" example:"password123"`
	MasterKey string `json:"master_key" binding:"required"`
}

// Login 管理员登录
// @Summary 管理员登录
// @Description 管理员与普通用户是独立的凭证空间，登录仅返回访问令牌
// @Tags 后台管理
// @Accept json
// @Produce json
// @Param request body AdminLoginRequest true "登录信息"
// @Success 200 {object} map[string]string "登录成功"
// @Failure 400 {object} Response "凭证无效"
// @Router /admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var admin models.Admin
	if err := database.DB.Where("username = ?", req.Username).First(&admin).Error; err != nil {
		BadRequest(c, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		BadRequest(c, "Invalid credentials")
		return
	}

	token, err := middleware.GenerateAdminToken(admin.ID, admin.Username, h.cfg.JWT.AccessExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	c.JSON(200, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Register 管理员注册
// @Summary 管理员注册
// @Description 需要出示带外分发的主密钥
// @Tags 后台管理
// @Accept json
// @Produce json
// @Param request body AdminRegisterRequest true "注册信息"
// @Success 200 {object} map[string]interface{} "注册成功"
// @Failure 400 {object} Response "主密钥错误或用户名已存在"
// @Router /admin/register [post]
func (h *AdminHandler) Register(c *gin.Context) {
	var req AdminRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	if req.MasterKey != h.cfg.Admin.MasterKey {
		BadRequest(c, "Incorrect master key")
		return
	}

	var existing models.Admin
	if err := database.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		BadRequest(c, "Username already registered")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}

	admin := models.Admin{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := database.DB.Create(&admin).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建管理员失败"))
		return
	}

	c.JSON(200, gin.H{
		"id":       admin.ID,
		"username": admin.Username,
		"message":  "Registered successfully!",
	})
}

// GetAllUsers 获取全部用户
// @Summary 获取全部用户
// @Tags 后台管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.User} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 403 {object} Response "无权限"
// @Router /admin/users [get]
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := database.DB.Order("id").Find(&users).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, users)
}

// GetAllExpenses 获取全部消费记录
// @Summary 获取全部消费记录
// @Tags 后台管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Expense} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /admin/expenses [get]
func (h *AdminHandler) GetAllExpenses(c *gin.Context) {
	var expenses []models.Expense
	if err := database.DB.Order("date DESC").Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, expenses)
}

// DeleteUser 删除指定用户及其全部数据
// @Summary 删除指定用户
// @Description 连同该用户的消费、预算、类别、提醒、通知一并删除
// @Tags 后台管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} map[string]string "删除成功"
// @Failure 404 {object} Response "用户不存在"
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		NotFound(c, "User not found")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		// 该用户垫付的群组消费连同其份额一并删除
		var payerExpenseIDs []uint
		if err := tx.Model(&models.GroupExpense{}).Where("payer_id = ?", user.ID).
			Pluck("id", &payerExpenseIDs).Error; err != nil {
			return err
		}
		if len(payerExpenseIDs) > 0 {
			if err := tx.Unscoped().Where("group_expense_id IN ?", payerExpenseIDs).
				Delete(&models.ExpenseSplit{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("payer_id = ?", user.ID).
				Delete(&models.GroupExpense{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Where("debtor_id = ? OR creditor_id = ?", user.ID, user.ID).
			Delete(&models.GroupDebt{}).Error; err != nil {
			return err
		}

		for _, m := range []interface{}{
			&models.Expense{}, &models.GeneralBudget{}, &models.CategoryBudget{},
			&models.Category{}, &models.Alert{}, &models.Notification{},
			&models.GroupMember{}, &models.ExpenseSplit{},
		} {
			if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&user).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "删除用户失败"))
		return
	}

	c.JSON(200, gin.H{
		"message": fmt.Sprintf("Deleted user '%s' successfully", user.Username),
	})
}

// ExportExcel 导出用户与消费记录
// @Summary 导出用户与消费记录 Excel
// @Tags 后台管理
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "Excel 文件"
// @Failure 500 {object} Response "生成失败"
// @Router /admin/export/excel [get]
func (h *AdminHandler) ExportExcel(c *gin.Context) {
	var users []models.User
	if err := database.DB.Order("id").Find(&users).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	var expenses []models.Expense
	if err := database.DB.Order("date DESC").Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	usernames := make(map[uint]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 用户表
	userSheet := "用户"
	f.SetSheetName("Sheet1", userSheet)
	for i, header := range []string{"ID", "用户名", "邮箱", "注册时间"} {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(userSheet, cell, header)
		f.SetCellStyle(userSheet, cell, cell, headerStyle)
	}
	for i, u := range users {
		row := i + 2
		f.SetCellValue(userSheet, fmt.Sprintf("A%d", row), u.ID)
		f.SetCellValue(userSheet, fmt.Sprintf("B%d", row), u.Username)
		f.SetCellValue(userSheet, fmt.Sprintf("C%d", row), u.Email)
		f.SetCellValue(userSheet, fmt.Sprintf("D%d", row), u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	f.SetColWidth(userSheet, "B", "C", 25)
	f.SetColWidth(userSheet, "D", "D", 20)

	// 消费记录表
	expenseSheet := "消费记录"
	f.NewSheet(expenseSheet)
	for i, header := range []string{"ID", "用户名", "金额", "描述", "消费日期"} {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(expenseSheet, cell, header)
		f.SetCellStyle(expenseSheet, cell, cell, headerStyle)
	}
	var totalAmount float64
	for i, e := range expenses {
		row := i + 2
		f.SetCellValue(expenseSheet, fmt.Sprintf("A%d", row), e.ID)
		f.SetCellValue(expenseSheet, fmt.Sprintf("B%d", row), usernames[e.UserID])
		f.SetCellValue(expenseSheet, fmt.Sprintf("C%d", row), e.Amount)
		f.SetCellValue(expenseSheet, fmt.Sprintf("D%d", row), e.Description)
		f.SetCellValue(expenseSheet, fmt.Sprintf("E%d", row), e.Date.Format("2006-01-02"))
		totalAmount += e.Amount
	}
	summaryRow := len(expenses) + 2
	f.SetCellValue(expenseSheet, fmt.Sprintf("A%d", summaryRow), "合计")
	f.SetCellValue(expenseSheet, fmt.Sprintf("C%d", summaryRow), totalAmount)
	f.SetColWidth(expenseSheet, "B", "B", 20)
	f.SetColWidth(expenseSheet, "D", "D", 30)

	filename := fmt.Sprintf("budgetwise_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "生成 Excel 失败"})
		return
	}
}
